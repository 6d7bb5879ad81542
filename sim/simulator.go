// Package sim drives a cache with a memory-access trace.
package sim

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/trace"
)

// ErrReferenceMismatch is returned when the attached reference model
// disagrees with the cache about an access.
var ErrReferenceMismatch = errors.New("cache and reference model disagree")

// Observer is notified of every record the simulator processes, together with
// the outcome of each access it caused. Instruction fetches are reported with
// no outcomes.
type Observer interface {
	Observe(rec trace.Record, outcomes []cache.Outcome)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(rec trace.Record, outcomes []cache.Outcome)

// Observe calls f.
func (f ObserverFunc) Observe(rec trace.Record, outcomes []cache.Outcome) {
	f(rec, outcomes)
}

// Simulator feeds trace records to a cache in order.
type Simulator struct {
	cache     *cache.Cache
	reference *cache.Reference
	observers []Observer
	logger    *logrus.Logger

	records  uint64
	accesses uint64

	// outcomes is reused across records; observers must copy it to keep it.
	outcomes []cache.Outcome
}

// Option is a functional option for configuring the Simulator.
type Option func(*Simulator)

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(s *Simulator) {
		s.observers = append(s.observers, o)
	}
}

// WithReference checks every access against a reference model.
func WithReference(r *cache.Reference) Option {
	return func(s *Simulator) {
		s.reference = r
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Simulator) {
		s.logger = l
	}
}

// NewSimulator creates a simulator that owns c for the duration of a run.
func NewSimulator(c *cache.Cache, opts ...Option) *Simulator {
	s := &Simulator{
		cache:    c,
		outcomes: make([]cache.Outcome, 0, 2),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logrus.New()
		s.logger.SetOutput(io.Discard)
	}

	return s
}

// Cache returns the simulated cache.
func (s *Simulator) Cache() *cache.Cache {
	return s.cache
}

// Stats returns the cache counters.
func (s *Simulator) Stats() cache.Statistics {
	return s.cache.Stats()
}

// Records returns the number of records processed, instruction fetches
// included.
func (s *Simulator) Records() uint64 {
	return s.records
}

// Accesses returns the number of simulated cache accesses. A modify counts
// twice and an instruction fetch not at all.
func (s *Simulator) Accesses() uint64 {
	return s.accesses
}

// Process simulates one record. Loads and stores access the cache once,
// modifies twice, and instruction fetches are ignored. The returned slice is
// only valid until the next call.
func (s *Simulator) Process(rec trace.Record) ([]cache.Outcome, error) {
	s.outcomes = s.outcomes[:0]

	n := rec.Kind.Accesses()
	if n == 0 && rec.Kind != trace.Instruction {
		return nil, errors.Wrapf(trace.ErrUnknownKind, "%q", byte(rec.Kind))
	}

	for i := 0; i < n; i++ {
		outcome, err := s.access(rec.Addr)
		if err != nil {
			return nil, err
		}
		s.outcomes = append(s.outcomes, outcome)
	}

	s.records++

	if s.logger.IsLevelEnabled(logrus.TraceLevel) {
		s.logger.WithFields(logrus.Fields{
			"record":   rec.String(),
			"outcomes": s.outcomes,
		}).Trace("processed record")
	}

	for _, o := range s.observers {
		o.Observe(rec, s.outcomes)
	}

	return s.outcomes, nil
}

func (s *Simulator) access(addr uint64) (cache.Outcome, error) {
	outcome := s.cache.Access(addr)
	s.accesses++

	if s.reference == nil {
		return outcome, nil
	}

	want := s.reference.Access(addr)
	if want != outcome {
		return outcome, errors.Wrapf(ErrReferenceMismatch,
			"access %d to %#x: cache %s, reference %s",
			s.accesses, addr, outcome, want)
	}

	return outcome, nil
}

// Run processes every record from src until io.EOF. It stops at the first
// error from the source or from Process.
func (s *Simulator) Run(src trace.Source) error {
	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "after %d records", s.records)
		}

		if _, err := s.Process(rec); err != nil {
			return err
		}
	}

	stats := s.Stats()
	s.logger.WithFields(logrus.Fields{
		"records":   s.records,
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"evictions": stats.Evictions,
	}).Debug("trace exhausted")

	return nil
}
