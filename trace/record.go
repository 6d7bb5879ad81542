// Package trace reads and writes memory-access traces in the valgrind lackey
// format used by the cache simulator, and generates synthetic ones.
package trace

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the type of a trace record.
type Kind byte

const (
	// Instruction is an instruction fetch. It does not touch the data cache.
	Instruction Kind = 'I'
	// Load is a data load.
	Load Kind = 'L'
	// Store is a data store.
	Store Kind = 'S'
	// Modify is a load followed by a store to the same address.
	Modify Kind = 'M'
)

// ErrUnknownKind is returned for a record kind other than I, L, S or M.
var ErrUnknownKind = errors.New("unknown record kind")

// ParseKind converts a kind character into a Kind.
func ParseKind(c byte) (Kind, error) {
	switch k := Kind(c); k {
	case Instruction, Load, Store, Modify:
		return k, nil
	default:
		return 0, errors.Wrapf(ErrUnknownKind, "%q", c)
	}
}

// String returns the kind character.
func (k Kind) String() string {
	return string(rune(k))
}

// Accesses returns how many data-cache accesses a record of this kind makes.
func (k Kind) Accesses() int {
	switch k {
	case Load, Store:
		return 1
	case Modify:
		return 2
	default:
		return 0
	}
}

// Record is one line of a trace.
type Record struct {
	Kind Kind
	Addr uint64
	// Size is the number of bytes accessed. It does not affect the simulation.
	Size int
}

// String formats the record the way the verbose simulator echoes it.
func (r Record) String() string {
	return fmt.Sprintf("%s %x,%d", r.Kind, r.Addr, r.Size)
}

// Source supplies records in trace order. Next returns io.EOF after the last
// record.
type Source interface {
	Next() (Record, error)
}
