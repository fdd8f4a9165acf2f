package sim_test

import (
	"bytes"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/sim"
	"github.com/sarchlab/csim/trace"
)

type failingSource struct {
	records []trace.Record
	err     error
}

func (s *failingSource) Next() (trace.Record, error) {
	if len(s.records) == 0 {
		return trace.Record{}, s.err
	}
	rec := s.records[0]
	s.records = s.records[1:]
	return rec, nil
}

var _ = Describe("Dispatcher", func() {
	var (
		mockCtrl *gomock.Controller
		model    *MockModel
		geometry cache.Geometry
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		model = NewMockModel(mockCtrl)
		geometry = cache.Geometry{SetIndexBits: 4, BlockOffsetBits: 4, Associativity: 1}
		model.EXPECT().Geometry().Return(geometry).AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should access the model once for a load", func() {
		model.EXPECT().Access(uint64(3), uint64(0x12)).Return(cache.Miss)

		d := sim.NewDispatcher(model)
		outcomes := d.Dispatch(trace.Record{Kind: trace.Load, Address: 0x1234, Size: 8})

		Expect(outcomes).To(Equal([]cache.Outcome{cache.Miss}))
		Expect(d.Dispatched()).To(Equal(uint64(1)))
	})

	It("should access the model once for a store", func() {
		model.EXPECT().Access(uint64(0), uint64(1)).Return(cache.Hit)

		d := sim.NewDispatcher(model)
		Expect(d.Dispatch(trace.Record{Kind: trace.Store, Address: 0x100})).
			To(Equal([]cache.Outcome{cache.Hit}))
	})

	It("should access the model twice for a modify", func() {
		gomock.InOrder(
			model.EXPECT().Access(uint64(2), uint64(0)).Return(cache.MissEviction),
			model.EXPECT().Access(uint64(2), uint64(0)).Return(cache.Hit),
		)

		d := sim.NewDispatcher(model)
		outcomes := d.Dispatch(trace.Record{Kind: trace.Modify, Address: 0x20})

		Expect(outcomes).To(Equal([]cache.Outcome{cache.MissEviction, cache.Hit}))
	})

	It("should ignore instruction fetches", func() {
		model.EXPECT().Access(gomock.Any(), gomock.Any()).Times(0)

		d := sim.NewDispatcher(model)
		Expect(d.Dispatch(trace.Record{Kind: trace.Instruction, Address: 0x400})).To(BeNil())
		Expect(d.Dispatched()).To(BeZero())
	})

	It("should notify observers with the decoded record", func() {
		observer := NewMockObserver(mockCtrl)
		rec := trace.Record{Kind: trace.Modify, Address: 0x7ff0, Size: 4}

		model.EXPECT().Access(uint64(0xf), uint64(0x7f)).Return(cache.Miss)
		model.EXPECT().Access(uint64(0xf), uint64(0x7f)).Return(cache.Hit)
		observer.EXPECT().Observe(sim.Event{
			Seq:      1,
			Record:   rec,
			SetIndex: 0xf,
			Tag:      0x7f,
			Outcomes: []cache.Outcome{cache.Miss, cache.Hit},
		})

		d := sim.NewDispatcher(model, sim.WithObserver(observer))
		d.Dispatch(rec)
	})

	It("should stop on a source error", func() {
		model.EXPECT().Access(gomock.Any(), gomock.Any()).Return(cache.Miss).Times(1)

		boom := errors.New("boom")
		d := sim.NewDispatcher(model)
		err := d.Run(&failingSource{
			records: []trace.Record{{Kind: trace.Load, Address: 0x10}},
			err:     boom,
		})

		Expect(err).To(MatchError(boom))
	})

	It("should finish cleanly at EOF", func() {
		d := sim.NewDispatcher(model)
		Expect(d.Run(&failingSource{err: io.EOF})).To(Succeed())
	})
})

var _ = Describe("Simulation", func() {
	run := func(geometry cache.Geometry, text string) cache.Statistics {
		s, err := sim.NewSimulation(sim.EngineNative, geometry)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Run(trace.NewReader(strings.NewReader(text)))).To(Succeed())
		return s.Stats()
	}

	It("should report zero counters for an empty trace", func() {
		for _, g := range []cache.Geometry{
			{SetIndexBits: 1, BlockOffsetBits: 1, Associativity: 1},
			{SetIndexBits: 4, BlockOffsetBits: 4, Associativity: 4},
		} {
			Expect(run(g, "")).To(Equal(cache.Statistics{}))
		}
	})

	It("should thrash two aliasing blocks", func() {
		stats := run(
			cache.Geometry{SetIndexBits: 1, BlockOffsetBits: 1, Associativity: 1},
			" L 0,1\n L 8,1\n L 0,1\n L 8,1\n")

		Expect(stats).To(Equal(cache.Statistics{Misses: 4, Evictions: 3}))
	})

	It("should evict the LRU line of a fully associative cache", func() {
		stats := run(
			cache.Geometry{SetIndexBits: 0, BlockOffsetBits: 4, Associativity: 2},
			" L a0,1\n L b0,1\n L a0,1\n L c0,1\n")

		Expect(stats).To(Equal(cache.Statistics{Hits: 1, Misses: 3, Evictions: 1}))
	})

	It("should never count two misses for one modify", func() {
		s, err := sim.NewSimulation(sim.EngineNative,
			cache.Geometry{SetIndexBits: 1, BlockOffsetBits: 2, Associativity: 1})
		Expect(err).NotTo(HaveOccurred())

		for _, addr := range []uint64{0, 0x40, 0, 0x80, 0x40, 0x44} {
			outcomes := s.Dispatch(trace.Record{Kind: trace.Modify, Address: addr})
			Expect(outcomes).To(HaveLen(2))
			Expect(outcomes[1]).To(Equal(cache.Hit))
		}
	})

	It("should ignore instruction records in the counters", func() {
		stats := run(
			cache.Geometry{SetIndexBits: 4, BlockOffsetBits: 4, Associativity: 1},
			"I 0400d7d4,8\n L 10,1\n M 20,1\n L 22,1\n S 18,1\n L 110,1\n L 210,1\n M 12,1\n")

		Expect(stats).To(Equal(cache.Statistics{Hits: 4, Misses: 5, Evictions: 3}))
	})

	It("should be deterministic across fresh simulations", func() {
		g := cache.Geometry{SetIndexBits: 2, BlockOffsetBits: 3, Associativity: 2}
		text := " L 0,4\n S 40,4\n M 80,4\n L 0,4\n L c0,4\n S 40,4\n M 100,4\n"

		Expect(run(g, text)).To(Equal(run(g, text)))
	})

	It("should agree between the native and akita engines", func() {
		g := cache.Geometry{SetIndexBits: 2, BlockOffsetBits: 3, Associativity: 2}
		records := []trace.Record{}
		for i := uint64(0); i < 400; i++ {
			kind := []trace.Kind{trace.Load, trace.Store, trace.Modify}[i%3]
			records = append(records, trace.Record{Kind: kind, Address: (i * 0x38) % 0x300})
		}

		native, err := sim.NewSimulation(sim.EngineNative, g)
		Expect(err).NotTo(HaveOccurred())
		akita, err := sim.NewSimulation(sim.EngineAkita, g)
		Expect(err).NotTo(HaveOccurred())

		native.Replay(records)
		akita.Replay(records)

		Expect(akita.Stats()).To(Equal(native.Stats()))
		Expect(native.Stats().Accesses()).To(Equal(uint64(400 + 133)))
	})

	It("should reject unknown engines and bad geometry", func() {
		_, err := sim.NewSimulation("lfu", cache.Geometry{SetIndexBits: 1, BlockOffsetBits: 1, Associativity: 1})
		Expect(err).To(MatchError(ContainSubstring("unknown engine")))

		_, err = sim.NewModel(sim.EngineNative, cache.Geometry{SetIndexBits: 1}, nil)
		Expect(err).To(MatchError(ContainSubstring("invalid geometry")))
	})
})

var _ = Describe("VerbosePrinter", func() {
	It("should print each record with its outcomes", func() {
		out := &bytes.Buffer{}
		printer := sim.NewVerbosePrinter(out)

		s, err := sim.NewSimulation(sim.EngineNative,
			cache.Geometry{SetIndexBits: 4, BlockOffsetBits: 4, Associativity: 1},
			sim.WithObserver(printer))
		Expect(err).NotTo(HaveOccurred())

		s.Replay([]trace.Record{
			{Kind: trace.Instruction, Address: 0x400, Size: 8},
			{Kind: trace.Load, Address: 0x10, Size: 1},
			{Kind: trace.Modify, Address: 0x20, Size: 1},
			{Kind: trace.Load, Address: 0x110, Size: 1},
		})

		Expect(printer.Err()).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal(
			"L 10,1 miss\n" +
				"M 20,1 miss hit\n" +
				"L 110,1 miss eviction\n"))
	})
})
