package trace

import (
	"io"
	"math/rand"

	"github.com/pkg/errors"
)

// Generator produces a synthetic trace one record at a time. It returns
// io.EOF when exhausted.
type Generator func() (Record, error)

// Next implements Source.
func (g Generator) Next() (Record, error) {
	return g()
}

// NewSequential walks count addresses starting at base, stride bytes apart.
func NewSequential(base, stride uint64, count int, kind Kind) Generator {
	i := 0
	return func() (Record, error) {
		if i >= count {
			return Record{}, io.EOF
		}
		addr := base + uint64(i)*stride
		i++
		return Record{Kind: kind, Addr: addr, Size: 8}, nil
	}
}

// NewUniform draws count addresses uniformly from [0, span). A zero span
// is treated as 1.
func NewUniform(seed int64, span uint64, count int, kind Kind) Generator {
	if span == 0 {
		span = 1
	}
	r := rand.New(rand.NewSource(seed))
	i := 0
	return func() (Record, error) {
		if i >= count {
			return Record{}, io.EOF
		}
		i++
		return Record{Kind: kind, Addr: r.Uint64() % span, Size: 8}, nil
	}
}

// NewZipfian draws count addresses from [0, span) with a Zipf distribution,
// so a few blocks are touched far more often than the rest. s must be > 1
// and v >= 1.
func NewZipfian(seed int64, s, v float64, span uint64, count int, kind Kind) (Generator, error) {
	if span == 0 {
		return nil, errors.New("zipfian span must be > 0")
	}

	z := rand.NewZipf(rand.New(rand.NewSource(seed)), s, v, span-1)
	if z == nil {
		return nil, errors.Errorf("invalid zipf parameters s=%g v=%g", s, v)
	}

	i := 0
	return func() (Record, error) {
		if i >= count {
			return Record{}, io.EOF
		}
		i++
		return Record{Kind: kind, Addr: z.Uint64(), Size: 8}, nil
	}, nil
}

// Concat plays the sources one after another.
func Concat(srcs ...Source) Generator {
	return func() (Record, error) {
		for len(srcs) > 0 {
			rec, err := srcs[0].Next()
			if err != io.EOF {
				return rec, err
			}
			srcs = srcs[1:]
		}
		return Record{}, io.EOF
	}
}

// Limit stops src after n records. n <= 0 means no limit.
func Limit(src Source, n int) Generator {
	seen := 0
	return func() (Record, error) {
		if n > 0 && seen >= n {
			return Record{}, io.EOF
		}
		rec, err := src.Next()
		if err == nil {
			seen++
		}
		return rec, err
	}
}

// Collect reads up to n records from src. n <= 0 reads until io.EOF.
func Collect(src Source, n int) ([]Record, error) {
	var records []Record
	for n <= 0 || len(records) < n {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}
