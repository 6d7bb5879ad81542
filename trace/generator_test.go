package trace_test

import (
	"bytes"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/csim/trace"
)

var _ = Describe("Generators", func() {
	It("should walk addresses with a fixed stride", func() {
		records, err := trace.Collect(trace.NewSequential(0x100, 0x10, 3, trace.Load), 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(Equal([]trace.Record{
			{Kind: trace.Load, Addr: 0x100, Size: 8},
			{Kind: trace.Load, Addr: 0x110, Size: 8},
			{Kind: trace.Load, Addr: 0x120, Size: 8},
		}))
	})

	It("should keep uniform addresses inside the span", func() {
		records, err := trace.Collect(trace.NewUniform(1, 64, 500, trace.Store), 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(500))
		for _, r := range records {
			Expect(r.Addr).To(BeNumerically("<", 64))
			Expect(r.Kind).To(Equal(trace.Store))
		}
	})

	It("should be reproducible for a seed", func() {
		a, _ := trace.Collect(trace.NewUniform(9, 1<<20, 50, trace.Load), 0)
		b, _ := trace.Collect(trace.NewUniform(9, 1<<20, 50, trace.Load), 0)
		Expect(a).To(Equal(b))
	})

	It("should skew zipfian addresses toward small values", func() {
		g, err := trace.NewZipfian(3, 1.5, 1, 1024, 2000, trace.Load)
		Expect(err).NotTo(HaveOccurred())

		records, err := trace.Collect(g, 0)
		Expect(err).NotTo(HaveOccurred())

		counts := map[uint64]int{}
		for _, r := range records {
			Expect(r.Addr).To(BeNumerically("<", 1024))
			counts[r.Addr]++
		}
		Expect(counts[0]).To(BeNumerically(">", counts[512]))
		Expect(len(counts)).To(BeNumerically(">", 1))
	})

	It("should reject invalid zipf parameters", func() {
		_, err := trace.NewZipfian(3, 0.5, 1, 1024, 10, trace.Load)
		Expect(err).To(HaveOccurred())
	})

	It("should concatenate sources in order", func() {
		g := trace.Concat(
			trace.NewSequential(0, 1, 2, trace.Load),
			trace.NewSequential(100, 1, 1, trace.Store),
		)
		records, err := trace.Collect(g, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(3))
		Expect(records[2]).To(Equal(trace.Record{Kind: trace.Store, Addr: 100, Size: 8}))

		_, err = g.Next()
		Expect(err).To(Equal(io.EOF))
	})

	It("should limit a source", func() {
		g := trace.Limit(trace.NewSequential(0, 1, 10, trace.Load), 3)
		records, err := trace.Collect(g, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(3))
		Expect(records[2].Addr).To(Equal(uint64(2)))
	})

	It("should not limit a source with n <= 0", func() {
		records, err := trace.Collect(trace.Limit(trace.NewSequential(0, 1, 5, trace.Load), 0), 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(5))
	})

	It("should stop collecting at n records", func() {
		records, err := trace.Collect(trace.NewSequential(0, 1, 10, trace.Load), 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(4))
	})
})

var _ = Describe("Writer", func() {
	It("should write lines the reader parses back", func() {
		var buf bytes.Buffer
		w := trace.NewWriter(&buf)

		src := trace.Concat(
			trace.NewSequential(0x400000, 4, 2, trace.Instruction),
			trace.NewSequential(0x7ff000, 8, 2, trace.Modify),
		)
		n, err := w.WriteAll(src)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(4))

		Expect(buf.String()).To(HavePrefix("I 00400000,8\n"))
		Expect(buf.String()).To(ContainSubstring("\n M 007ff000,8\n"))

		records, err := trace.Collect(trace.NewReader(strings.NewReader(buf.String())), 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(4))
		Expect(records[3]).To(Equal(trace.Record{Kind: trace.Modify, Addr: 0x7ff008, Size: 8}))
	})
})
