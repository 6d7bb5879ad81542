package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/pkg/errors"
)

// maxReferenceBlockBits limits the block size the akita directory is built
// with, since it stores the block size as an int.
const maxReferenceBlockBits = 32

// Reference is an independent LRU cache model built on the akita cache
// directory. It keeps blocks in an LRU queue instead of recency counters,
// so comparing it with Cache checks that the counter scheme really is LRU.
type Reference struct {
	geometry  Geometry
	directory *akitacache.DirectoryImpl
	stats     Statistics
}

// NewReference creates a reference model with the same geometry as a Cache.
func NewReference(g Geometry) (*Reference, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	if g.BlockBits > maxReferenceBlockBits {
		return nil, errors.Wrapf(ErrInvalidGeometry,
			"reference model supports at most %d block bits, got %d",
			maxReferenceBlockBits, g.BlockBits)
	}

	return &Reference{
		geometry: g,
		directory: akitacache.NewDirectory(
			g.NumSets(),
			g.Lines,
			int(g.BlockSize()),
			akitacache.NewLRUVictimFinder(),
		),
	}, nil
}

// Geometry returns the reference geometry.
func (r *Reference) Geometry() Geometry {
	return r.geometry
}

// Stats returns the reference counters.
func (r *Reference) Stats() Statistics {
	return r.stats
}

// Reset invalidates all blocks and clears the counters.
func (r *Reference) Reset() {
	r.directory.Reset()
	r.stats = Statistics{}
}

// Access simulates one access to addr.
func (r *Reference) Access(addr uint64) Outcome {
	blockAddr := addr &^ (r.geometry.BlockSize() - 1)

	block := r.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		r.directory.Visit(block)
		r.stats.record(Hit)
		return Hit
	}

	victim := r.directory.FindVictim(blockAddr)
	if victim == nil {
		// Every way is locked, which this model never does.
		panic("akita directory returned no victim")
	}

	outcome := Miss
	if victim.IsValid {
		outcome = MissEviction
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	r.directory.Visit(victim)

	r.stats.record(outcome)

	return outcome
}
