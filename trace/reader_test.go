package trace_test

import (
	"bytes"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/csim/trace"
)

const sample = `I 0400d7d4,8
 M 0421c7f0,4
 L 04f6b868,8
==12== banner
 S 7ff0005c8,8
`

var _ = Describe("Reader", func() {
	var logs *bytes.Buffer

	BeforeEach(func() {
		logs = &bytes.Buffer{}
	})

	It("should stream records in order", func() {
		r := trace.NewReader(strings.NewReader(sample))

		kinds := []trace.Kind{}
		for {
			rec, err := r.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			Expect(err).NotTo(HaveOccurred())
			kinds = append(kinds, rec.Kind)
		}

		Expect(kinds).To(Equal([]trace.Kind{
			trace.Instruction, trace.Modify, trace.Load, trace.Store,
		}))
		Expect(r.Line()).To(Equal(5))
	})

	It("should return nothing for an empty trace", func() {
		records, err := trace.ReadAll(strings.NewReader(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(BeEmpty())
	})

	Context("with a malformed record line", func() {
		const broken = " L 10,1\n L nothex,4\n S 20,1\n"

		It("should skip and log it by default", func() {
			r := trace.NewReader(strings.NewReader(broken),
				trace.WithLogger(log.New(logs, "", 0)))

			first, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Address).To(Equal(uint64(0x10)))

			second, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Address).To(Equal(uint64(0x20)))

			Expect(r.Skipped()).To(Equal(1))
			Expect(logs.String()).To(ContainSubstring("trace line 2"))
		})

		It("should fail under the fail policy", func() {
			records, err := trace.ReadAll(strings.NewReader(broken),
				trace.WithPolicy(trace.Fail))

			var perr *trace.ParseError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Line).To(Equal(2))
			Expect(records).To(HaveLen(1))
		})
	})

	Describe("Open", func() {
		It("should read a trace file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "t.trace")
			Expect(os.WriteFile(path, []byte(sample), 0o644)).To(Succeed())

			f, err := trace.Open(path)
			Expect(err).NotTo(HaveOccurred())
			defer func() { _ = f.Close() }()

			rec, err := f.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Kind).To(Equal(trace.Instruction))
		})

		It("should report the OS reason for a missing file", func() {
			_, err := trace.Open(filepath.Join(GinkgoT().TempDir(), "missing"))
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
		})
	})

	Describe("ParsePolicy", func() {
		It("should accept skip and fail", func() {
			Expect(trace.ParsePolicy("skip")).To(Equal(trace.Skip))
			Expect(trace.ParsePolicy("fail")).To(Equal(trace.Fail))
			_, err := trace.ParsePolicy("ignore")
			Expect(err).To(HaveOccurred())
		})
	})
})
