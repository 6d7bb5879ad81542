package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FormatError reports a trace line that could not be parsed.
type FormatError struct {
	// Line is the 1-based line number.
	Line int
	// Text is the offending line.
	Text string
	// Err describes what is wrong with it.
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("trace line %d %q: %v", e.Line, e.Text, e.Err)
}

// Unwrap returns the underlying parse error.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// Reader parses records from a text trace.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader on r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Line returns the number of the last line read.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next record. Blank lines and valgrind banner lines
// (starting with "==") are skipped.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++

		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "==") {
			continue
		}

		rec, err := ParseLine(text)
		if err != nil {
			return Record{}, &FormatError{Line: r.line, Text: text, Err: err}
		}

		return rec, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Record{}, errors.Wrap(err, "failed to read trace")
	}

	return Record{}, io.EOF
}

// ParseLine parses a single trace line such as " L 7ff0005c8,8".
func ParseLine(line string) (Record, error) {
	text := strings.TrimSpace(line)
	if text == "" {
		return Record{}, errors.New("empty line")
	}

	kind, err := ParseKind(text[0])
	if err != nil {
		return Record{}, err
	}

	rest := strings.TrimSpace(text[1:])
	if len(rest) == len(text)-1 && rest != "" {
		return Record{}, errors.New("missing space after kind")
	}

	addrText, sizeText, ok := strings.Cut(rest, ",")
	if !ok {
		return Record{}, errors.New("missing ',' between address and size")
	}

	addrText = strings.TrimPrefix(strings.TrimPrefix(addrText, "0x"), "0X")
	addr, err := strconv.ParseUint(addrText, 16, 64)
	if err != nil {
		return Record{}, errors.Wrapf(err, "bad address %q", addrText)
	}

	size, err := strconv.Atoi(strings.TrimSpace(sizeText))
	if err != nil {
		return Record{}, errors.Wrapf(err, "bad size %q", sizeText)
	}
	if size < 0 {
		return Record{}, errors.Errorf("negative size %d", size)
	}

	return Record{Kind: kind, Addr: addr, Size: size}, nil
}
