package sim_test

import (
	"bytes"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/sim"
	"github.com/sarchlab/csim/trace"
)

var _ = Describe("Simulator", func() {
	var (
		mockCtrl *gomock.Controller
		observer *MockObserver
		c        *cache.Cache
		s        *sim.Simulator
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		observer = NewMockObserver(mockCtrl)

		var err error
		c, err = cache.New(cache.Geometry{SetBits: 1, Lines: 1, BlockBits: 1})
		Expect(err).NotTo(HaveOccurred())

		s = sim.NewSimulator(c, sim.WithObserver(observer))
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Describe("Process", func() {
		It("should ignore instruction fetches", func() {
			rec := trace.Record{Kind: trace.Instruction, Addr: 0x400000, Size: 4}
			observer.EXPECT().Observe(rec, gomock.Len(0))

			outcomes, err := s.Process(rec)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcomes).To(BeEmpty())
			Expect(s.Stats()).To(Equal(cache.Statistics{}))
			Expect(s.Records()).To(Equal(uint64(1)))
			Expect(s.Accesses()).To(BeZero())
		})

		It("should access once for a load and a store", func() {
			load := trace.Record{Kind: trace.Load, Addr: 0x0, Size: 1}
			store := trace.Record{Kind: trace.Store, Addr: 0x0, Size: 1}
			gomock.InOrder(
				observer.EXPECT().Observe(load, []cache.Outcome{cache.Miss}),
				observer.EXPECT().Observe(store, []cache.Outcome{cache.Hit}),
			)

			_, err := s.Process(load)
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Process(store)
			Expect(err).NotTo(HaveOccurred())

			Expect(s.Accesses()).To(Equal(uint64(2)))
		})

		It("should access twice for a modify", func() {
			rec := trace.Record{Kind: trace.Modify, Addr: 0x0, Size: 1}
			observer.EXPECT().Observe(rec, []cache.Outcome{cache.Miss, cache.Hit})

			outcomes, err := s.Process(rec)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcomes).To(Equal([]cache.Outcome{cache.Miss, cache.Hit}))
			Expect(s.Stats()).To(Equal(cache.Statistics{Hits: 1, Misses: 1}))
		})

		It("should report a modify that evicts", func() {
			observer.EXPECT().Observe(gomock.Any(), gomock.Any())
			_, err := s.Process(trace.Record{Kind: trace.Load, Addr: 0x0, Size: 1})
			Expect(err).NotTo(HaveOccurred())

			rec := trace.Record{Kind: trace.Modify, Addr: 0x8, Size: 1}
			observer.EXPECT().Observe(rec, []cache.Outcome{cache.MissEviction, cache.Hit})
			_, err = s.Process(rec)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should reject an unknown kind", func() {
			_, err := s.Process(trace.Record{Kind: 'X', Addr: 0})
			Expect(err).To(MatchError(trace.ErrUnknownKind))
			Expect(s.Records()).To(BeZero())
		})
	})

	Describe("Run", func() {
		run := func(text string) error {
			return s.Run(trace.NewReader(strings.NewReader(text)))
		}

		It("should reproduce the direct-mapped scenario", func() {
			observer.EXPECT().Observe(gomock.Any(), gomock.Any()).Times(3)

			Expect(run(" L 0,1\n L 8,1\n L 0,1\n")).To(Succeed())
			Expect(s.Stats()).To(Equal(cache.Statistics{
				Hits: 0, Misses: 3, Evictions: 2,
			}))
		})

		It("should count hits plus misses as non-instruction accesses", func() {
			observer.EXPECT().Observe(gomock.Any(), gomock.Any()).AnyTimes()

			Expect(run("I 10,4\n L 10,1\n M 20,1\n S 10,1\nI 14,4\n M 30,2\n")).To(Succeed())

			stats := s.Stats()
			Expect(stats.Hits + stats.Misses).To(Equal(uint64(6)))
			Expect(s.Accesses()).To(Equal(uint64(6)))
			Expect(s.Records()).To(Equal(uint64(6)))
		})

		It("should stop at a malformed line", func() {
			observer.EXPECT().Observe(gomock.Any(), gomock.Any()).Times(1)

			err := run(" L 0,1\n L zz,1\n L 8,1\n")

			var formatErr *trace.FormatError
			Expect(errors.As(err, &formatErr)).To(BeTrue())
			Expect(formatErr.Line).To(Equal(2))
			Expect(s.Records()).To(Equal(uint64(1)))
		})
	})
})

var _ = Describe("Simulator with a reference model", func() {
	It("should agree with the akita LRU directory on a mixed trace", func() {
		g := cache.Geometry{SetBits: 2, Lines: 2, BlockBits: 3}
		c, err := cache.New(g)
		Expect(err).NotTo(HaveOccurred())
		ref, err := cache.NewReference(g)
		Expect(err).NotTo(HaveOccurred())

		var seen int
		s := sim.NewSimulator(c,
			sim.WithReference(ref),
			sim.WithObserver(sim.ObserverFunc(
				func(trace.Record, []cache.Outcome) { seen++ })),
		)

		src := trace.Concat(
			trace.NewUniform(5, 1<<8, 3000, trace.Load),
			trace.NewUniform(6, 1<<8, 3000, trace.Modify),
		)
		Expect(s.Run(src)).To(Succeed())
		Expect(seen).To(Equal(6000))
		Expect(s.Stats()).To(Equal(ref.Stats()))
		Expect(s.Accesses()).To(Equal(uint64(9000)))
	})

	It("should fail when the reference has drifted", func() {
		g := cache.Geometry{SetBits: 0, Lines: 1, BlockBits: 0}
		c, _ := cache.New(g)
		ref, _ := cache.NewReference(g)
		ref.Access(1)

		s := sim.NewSimulator(c, sim.WithReference(ref))
		_, err := s.Process(trace.Record{Kind: trace.Load, Addr: 1, Size: 1})
		Expect(err).To(MatchError(sim.ErrReferenceMismatch))
	})
})

var _ = Describe("Simulator logging", func() {
	It("should log each record at trace level", func() {
		var buf bytes.Buffer
		logger := logrus.New()
		logger.SetOutput(&buf)
		logger.SetLevel(logrus.TraceLevel)

		c, err := cache.New(cache.Geometry{SetBits: 0, Lines: 1, BlockBits: 0})
		Expect(err).NotTo(HaveOccurred())

		s := sim.NewSimulator(c, sim.WithLogger(logger))
		Expect(s.Run(trace.NewReader(strings.NewReader(" L 1,1\n")))).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("processed record"))
		Expect(buf.String()).To(ContainSubstring("trace exhausted"))
	})
})
