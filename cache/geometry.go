package cache

import (
	"encoding/json"
	"math"
	"os"

	"github.com/pkg/errors"
)

// AddressWidth is the number of bits in a simulated address.
const AddressWidth = 64

// MaxLines bounds the line arena, 2^s * E. At 24 bytes per Line it keeps a
// cache under 1.5 GiB.
const MaxLines = 1 << 26

// ErrInvalidGeometry is returned when a cache geometry cannot be built.
var ErrInvalidGeometry = errors.New("invalid cache geometry")

// Geometry describes the shape of a set-associative cache.
type Geometry struct {
	// SetBits is the number of set-index bits (s). The cache has 2^s sets.
	SetBits uint `json:"set_bits"`

	// Lines is the number of lines per set (E), i.e. the associativity.
	Lines int `json:"lines"`

	// BlockBits is the number of block-offset bits (b). A block holds 2^b
	// bytes.
	BlockBits uint `json:"block_bits"`
}

// DefaultGeometry returns the direct-mapped geometry used by the small lab
// traces (s=4, E=1, b=4).
func DefaultGeometry() Geometry {
	return Geometry{
		SetBits:   4,
		Lines:     1,
		BlockBits: 4,
	}
}

// Validate checks that the geometry describes a cache that can be built.
func (g Geometry) Validate() error {
	if g.Lines <= 0 {
		return errors.Wrapf(ErrInvalidGeometry,
			"lines per set must be > 0, got %d", g.Lines)
	}

	if g.SetBits+g.BlockBits > AddressWidth {
		return errors.Wrapf(ErrInvalidGeometry,
			"set bits (%d) + block bits (%d) exceed the %d-bit address",
			g.SetBits, g.BlockBits, AddressWidth)
	}

	if uint64(g.Lines) > uint64(MaxLines>>g.SetBits) {
		return errors.Wrapf(ErrInvalidGeometry,
			"2^%d sets x %d lines exceeds %d lines", g.SetBits, g.Lines, MaxLines)
	}

	return nil
}

// NumSets returns the number of sets, 2^s.
func (g Geometry) NumSets() int {
	return 1 << g.SetBits
}

// TagBits returns the number of address bits left for the tag.
func (g Geometry) TagBits() uint {
	return AddressWidth - g.SetBits - g.BlockBits
}

// BlockSize returns the number of bytes in a block, 2^b.
func (g Geometry) BlockSize() uint64 {
	return 1 << g.BlockBits
}

// Capacity returns the number of bytes the cache can hold. ok is false when
// the capacity does not fit in a uint64.
func (g Geometry) Capacity() (bytes uint64, ok bool) {
	lines := uint64(g.NumSets()) * uint64(g.Lines)
	if lines > uint64(math.MaxUint64)>>g.BlockBits {
		return math.MaxUint64, false
	}
	return lines << g.BlockBits, true
}

// Decode splits an address into its tag and set index under this geometry.
func (g Geometry) Decode(addr uint64) (tag, set uint64) {
	return Decode(addr, g.SetBits, g.BlockBits)
}

// Decode splits addr into the tag and the set index. The set index is the
// setBits bits directly above the blockBits block offset; the tag is
// everything above that.
func Decode(addr uint64, setBits, blockBits uint) (tag, set uint64) {
	set = (addr >> blockBits) & (uint64(1)<<setBits - 1)
	tag = addr >> (setBits + blockBits)
	return tag, set
}

// LoadGeometry reads a Geometry from a JSON file. Fields missing from the
// file keep their DefaultGeometry values.
func LoadGeometry(path string) (Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Geometry{}, errors.Wrap(err, "failed to read geometry file")
	}

	g := DefaultGeometry()
	if err := json.Unmarshal(data, &g); err != nil {
		return Geometry{}, errors.Wrap(err, "failed to parse geometry")
	}

	return g, nil
}

// SaveGeometry writes the geometry to a JSON file.
func (g Geometry) SaveGeometry(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize geometry")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write geometry file")
	}

	return nil
}
