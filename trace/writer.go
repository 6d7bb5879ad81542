package trace

import (
	"bufio"
	"fmt"
	"io"
)

// Writer writes records in the valgrind lackey format. Data accesses are
// indented by one space, instruction fetches are not.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes one record.
func (w *Writer) Write(rec Record) error {
	indent := " "
	if rec.Kind == Instruction {
		indent = ""
	}

	_, err := fmt.Fprintf(w.w, "%s%s %08x,%d\n", indent, rec.Kind, rec.Addr, rec.Size)
	return err
}

// WriteAll writes every record src produces and flushes.
func (w *Writer) WriteAll(src Source) (int, error) {
	n := 0
	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, err
		}

		if err := w.Write(rec); err != nil {
			return n, err
		}
		n++
	}

	return n, w.Flush()
}

// Flush writes any buffered data.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
