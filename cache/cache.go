// Package cache models a set-associative cache with LRU replacement. It
// tracks only which blocks are resident, not their contents.
package cache

import (
	"fmt"

	"github.com/pkg/errors"
)

// Outcome is the result of a single simulated access.
type Outcome int

const (
	// Hit means the block was already resident.
	Hit Outcome = iota
	// Miss means the block was installed into an empty line.
	Miss
	// MissEviction means the block replaced the least recently used line.
	MissEviction
)

// String returns the outcome the way verbose traces print it.
func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	case MissEviction:
		return "miss eviction"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// IsHit reports whether the outcome is a hit.
func (o Outcome) IsHit() bool {
	return o == Hit
}

// Statistics holds the cache counters.
type Statistics struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Accesses returns the number of accesses counted so far.
func (s Statistics) Accesses() uint64 {
	return s.Hits + s.Misses
}

// HitRate returns the fraction of accesses that hit, or 0 before any access.
func (s Statistics) HitRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Accesses())
}

// record applies an outcome to the counters.
func (s *Statistics) record(o Outcome) {
	switch o {
	case Hit:
		s.Hits++
	case Miss:
		s.Misses++
	case MissEviction:
		s.Misses++
		s.Evictions++
	}
}

// Line is one slot of a set.
type Line struct {
	Valid bool
	Tag   uint64
	// Recency counts accesses to the set since the line was last touched.
	// Zero is the most recently used line.
	Recency uint64
}

// Set is a view of the lines that share one set index.
type Set struct {
	lines []Line
}

// Len returns the number of lines in the set.
func (s Set) Len() int {
	return len(s.lines)
}

// Lines returns a copy of the lines in way order.
func (s Set) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Lookup returns the way holding tag, if any.
func (s Set) Lookup(tag uint64) (way int, ok bool) {
	for i := range s.lines {
		if s.lines[i].Valid && s.lines[i].Tag == tag {
			return i, true
		}
	}
	return -1, false
}

// Full reports whether every line of the set is valid.
func (s Set) Full() bool {
	for i := range s.lines {
		if !s.lines[i].Valid {
			return false
		}
	}
	return true
}

// age bumps the recency counter of every valid line.
func (s Set) age() {
	for i := range s.lines {
		if s.lines[i].Valid {
			s.lines[i].Recency++
		}
	}
}

// emptyWay returns the lowest-index invalid line, or -1 when the set is full.
func (s Set) emptyWay() int {
	for i := range s.lines {
		if !s.lines[i].Valid {
			return i
		}
	}
	return -1
}

// victimWay returns the line with the largest recency. Ties go to the
// lowest index.
func (s Set) victimWay() int {
	victim := 0
	for i := 1; i < len(s.lines); i++ {
		if s.lines[i].Recency > s.lines[victim].Recency {
			victim = i
		}
	}
	return victim
}

// Cache is a set-associative cache. All lines live in one slice indexed by
// set*Lines + way.
type Cache struct {
	geometry Geometry
	lines    []Line
	stats    Statistics
}

// New creates an empty cache with the given geometry.
func New(g Geometry) (*Cache, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	return &Cache{
		geometry: g,
		lines:    make([]Line, g.NumSets()*g.Lines),
	}, nil
}

// Geometry returns the cache geometry.
func (c *Cache) Geometry() Geometry {
	return c.geometry
}

// Stats returns the cache counters.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears the counters but keeps the cache contents.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// Reset invalidates every line and clears the counters.
func (c *Cache) Reset() {
	for i := range c.lines {
		c.lines[i] = Line{}
	}
	c.stats = Statistics{}
}

// NumSets returns the number of sets.
func (c *Cache) NumSets() int {
	return c.geometry.NumSets()
}

// Set returns the set with the given index. The returned Set aliases the
// cache storage.
func (c *Cache) Set(index int) Set {
	e := c.geometry.Lines
	return Set{lines: c.lines[index*e : (index+1)*e : (index+1)*e]}
}

// Access simulates one access to addr and returns its outcome.
func (c *Cache) Access(addr uint64) Outcome {
	tag, index := c.geometry.Decode(addr)
	set := c.Set(int(index))

	set.age()

	if way, ok := set.Lookup(tag); ok {
		set.lines[way].Recency = 0
		c.stats.record(Hit)
		return Hit
	}

	outcome := Miss
	way := set.emptyWay()
	if way < 0 {
		outcome = MissEviction
		way = set.victimWay()
	}

	set.lines[way] = Line{Valid: true, Tag: tag}
	c.stats.record(outcome)

	return outcome
}

// CheckInvariants verifies that no set holds the same tag twice.
func (c *Cache) CheckInvariants() error {
	for i := 0; i < c.NumSets(); i++ {
		set := c.Set(i)
		seen := make(map[uint64]int, set.Len())
		for way, line := range set.lines {
			if !line.Valid {
				continue
			}
			if prev, dup := seen[line.Tag]; dup {
				return errors.Errorf(
					"set %d holds tag %#x in ways %d and %d",
					i, line.Tag, prev, way)
			}
			seen[line.Tag] = way
		}
	}
	return nil
}
