package config_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/config"
	"github.com/sarchlab/csim/trace"
)

var _ = Describe("Config", func() {
	var valid *config.Config

	BeforeEach(func() {
		valid = config.Default()
		valid.SetIndexBits = 4
		valid.Associativity = 2
		valid.BlockOffsetBits = 5
		valid.TracePath = "traces/yi.trace"
	})

	Describe("Defaults", func() {
		It("should use the native engine and skip malformed lines", func() {
			c := config.Default()
			Expect(c.Engine).To(Equal("native"))
			Expect(c.Malformed).To(Equal("skip"))
			Expect(c.Policy()).To(Equal(trace.Skip))
		})
	})

	Describe("Validate", func() {
		It("should accept a complete config", func() {
			Expect(valid.Validate()).To(Succeed())
			Expect(valid.Geometry()).To(Equal(cache.Geometry{
				SetIndexBits: 4, BlockOffsetBits: 5, Associativity: 2,
			}))
		})

		It("should list every missing argument", func() {
			err := config.Default().Validate()

			var usage *config.UsageError
			Expect(errors.As(err, &usage)).To(BeTrue())
			Expect(usage.Problems).To(HaveLen(4))
			Expect(err.Error()).To(ContainSubstring("-t"))
		})

		It("should reject non-positive values", func() {
			valid.Associativity = -1
			valid.BlockOffsetBits = 0
			err := valid.Validate()

			var usage *config.UsageError
			Expect(errors.As(err, &usage)).To(BeTrue())
			Expect(usage.Problems).To(HaveLen(2))
		})

		It("should reject geometries wider than an address", func() {
			valid.SetIndexBits = 30
			valid.BlockOffsetBits = 40
			Expect(valid.Validate()).To(MatchError(ContainSubstring("<= 64")))
		})

		It("should reject too many sets", func() {
			valid.SetIndexBits = 31
			Expect(valid.Validate()).To(MatchError(ContainSubstring("<= 30")))
		})

		It("should reject geometries too large to allocate", func() {
			valid.SetIndexBits = 30
			valid.Associativity = 1 << 34
			valid.BlockOffsetBits = 1
			err := valid.Validate()

			var usage *config.UsageError
			Expect(errors.As(err, &usage)).To(BeTrue())
			Expect(usage.Problems).To(ConsistOf(ContainSubstring("total lines")))
		})

		It("should reject blocks wider than an int", func() {
			valid.SetIndexBits = 1
			valid.BlockOffsetBits = 63
			Expect(valid.Validate()).To(MatchError(ContainSubstring("block offset bits (-b) must be <= 62")))
		})

		It("should reject unknown engines and policies", func() {
			valid.Engine = "lfu"
			valid.Malformed = "ignore"

			var usage *config.UsageError
			Expect(errors.As(valid.Validate(), &usage)).To(BeTrue())
			Expect(usage.Problems).To(HaveLen(2))
		})
	})

	Describe("Files", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("should round trip through JSON", func() {
			valid.Verbose = true
			valid.Malformed = "fail"
			path := filepath.Join(dir, "csim.json")

			Expect(valid.SaveConfig(path)).To(Succeed())
			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(valid))
			Expect(loaded.Policy()).To(Equal(trace.Fail))
		})

		It("should keep defaults for missing keys", func() {
			path := filepath.Join(dir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"set_index_bits": 2}`), 0o644)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.SetIndexBits).To(Equal(2))
			Expect(loaded.Engine).To(Equal("native"))
		})

		It("should fail on a missing or broken file", func() {
			_, err := config.LoadConfig(filepath.Join(dir, "missing.json"))
			Expect(err).To(MatchError(ContainSubstring("failed to read")))

			path := filepath.Join(dir, "broken.json")
			Expect(os.WriteFile(path, []byte(`{`), 0o644)).To(Succeed())
			_, err = config.LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("failed to parse")))
		})
	})
})
