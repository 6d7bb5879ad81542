package trace_test

import (
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/csim/trace"
)

var _ = Describe("Reader", func() {
	readAll := func(text string) ([]trace.Record, error) {
		return trace.Collect(trace.NewReader(strings.NewReader(text)), 0)
	}

	It("should parse valgrind lackey lines", func() {
		records, err := readAll(
			"I 0400d7d4,8\n" +
				" M 0421c7f0,4\n" +
				" L 04f6b868,8\n" +
				" S 7ff0005c8,8\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(Equal([]trace.Record{
			{Kind: trace.Instruction, Addr: 0x0400d7d4, Size: 8},
			{Kind: trace.Modify, Addr: 0x0421c7f0, Size: 4},
			{Kind: trace.Load, Addr: 0x04f6b868, Size: 8},
			{Kind: trace.Store, Addr: 0x7ff0005c8, Size: 8},
		}))
	})

	It("should accept a 0x prefix and skip blank and banner lines", func() {
		records, err := readAll("==1234== lackey\n\n L 0x10,1\n   \n S 20,1\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))
		Expect(records[0].Addr).To(Equal(uint64(0x10)))
		Expect(records[1].Addr).To(Equal(uint64(0x20)))
	})

	It("should return io.EOF at the end", func() {
		r := trace.NewReader(strings.NewReader(" L 10,1\n"))
		_, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		_, err = r.Next()
		Expect(err).To(Equal(io.EOF))
	})

	It("should read full 64-bit addresses", func() {
		records, err := readAll(" L ffffffffffffffff,8\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(records[0].Addr).To(Equal(uint64(0xffffffffffffffff)))
	})

	DescribeTable("rejecting malformed lines",
		func(line string, target error) {
			r := trace.NewReader(strings.NewReader(" L 10,1\n" + line + "\n"))
			_, err := r.Next()
			Expect(err).NotTo(HaveOccurred())

			_, err = r.Next()
			var formatErr *trace.FormatError
			Expect(errors.As(err, &formatErr)).To(BeTrue())
			Expect(formatErr.Line).To(Equal(2))
			if target != nil {
				Expect(err).To(MatchError(target))
			}
		},
		Entry("unknown kind", " X 10,1", trace.ErrUnknownKind),
		Entry("missing comma", " L 10 1", nil),
		Entry("bad address", " L zz,1", nil),
		Entry("bad size", " L 10,abc", nil),
		Entry("negative size", " L 10,-4", nil),
		Entry("kind glued to address", " L10,1", nil),
		Entry("address too wide", " L 1ffffffffffffffff,1", nil),
	)

	It("should report the physical line number past skipped lines", func() {
		r := trace.NewReader(strings.NewReader("\n\n L 10,1\n\n bogus\n"))
		_, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Line()).To(Equal(3))

		_, err = r.Next()
		var formatErr *trace.FormatError
		Expect(errors.As(err, &formatErr)).To(BeTrue())
		Expect(formatErr.Line).To(Equal(5))
		Expect(formatErr.Text).To(Equal("bogus"))
	})
})

var _ = Describe("Kind", func() {
	It("should count data accesses per kind", func() {
		Expect(trace.Instruction.Accesses()).To(Equal(0))
		Expect(trace.Load.Accesses()).To(Equal(1))
		Expect(trace.Store.Accesses()).To(Equal(1))
		Expect(trace.Modify.Accesses()).To(Equal(2))
	})

	It("should parse the four kind characters", func() {
		for _, c := range []byte("ILSM") {
			k, err := trace.ParseKind(c)
			Expect(err).NotTo(HaveOccurred())
			Expect(k.String()).To(Equal(string(c)))
		}
		_, err := trace.ParseKind('x')
		Expect(err).To(MatchError(trace.ErrUnknownKind))
	})

	It("should format records like the verbose echo", func() {
		rec := trace.Record{Kind: trace.Load, Addr: 0x10, Size: 1}
		Expect(rec.String()).To(Equal("L 10,1"))
	})
})
