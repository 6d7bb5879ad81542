package trace

import (
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// ErrSourceUnavailable is returned when a trace file cannot be opened.
var ErrSourceUnavailable = errors.New("trace source unavailable")

// File is a trace read from disk. It hashes every byte it reads so a run can
// be tied to the exact trace it consumed.
type File struct {
	*Reader

	path   string
	file   *os.File
	digest *xxhash.Digest
}

// Open opens the trace file at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrSourceUnavailable, "%v", err)
	}

	digest := xxhash.New()

	return &File{
		Reader: NewReader(io.TeeReader(f, digest)),
		path:   path,
		file:   f,
		digest: digest,
	}, nil
}

// Path returns the path the file was opened from.
func (f *File) Path() string {
	return f.path
}

// Digest returns the xxhash of the bytes read so far. Once Next has returned
// io.EOF it covers the whole file.
func (f *File) Digest() uint64 {
	return f.digest.Sum64()
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.file.Close()
}
