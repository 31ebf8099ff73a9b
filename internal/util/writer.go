// writer.go provides a buffered output sink modelled on the teacher's
// util.Writer/util.ListenWrite pair, collapsed to a sequential implementation
// because spec.md §5 forbids concurrency inside the compilation unit: there
// is exactly one writer and nothing ever contends for it.

package util

import (
	"bufio"
	"fmt"
	"io/ioutil"
	"os"
	"strings"
)

// Writer buffers textual output in a strings.Builder and flushes it to an
// underlying io.Writer on demand.
type Writer struct {
	sb  strings.Builder
	dst *bufio.Writer
	f   *os.File
}

// NewFileWriter opens (truncating/creating) the file at path for writing and
// returns a Writer backed by it.
func NewFileWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &Writer{dst: bufio.NewWriter(f), f: f}, nil
}

// NewStdoutWriter returns a Writer backed by stdout.
func NewStdoutWriter() *Writer {
	return &Writer{dst: bufio.NewWriter(os.Stdout)}
}

// Write writes a format string to the Writer's buffer.
func (w *Writer) Write(format string, args ...interface{}) {
	w.sb.WriteString(fmt.Sprintf(format, args...))
}

// WriteString writes a plain string to the Writer's buffer.
func (w *Writer) WriteString(s string) {
	w.sb.WriteString(s)
}

// String returns the buffer contents without flushing.
func (w *Writer) String() string {
	return w.sb.String()
}

// Flush empties the buffer into the underlying writer.
func (w *Writer) Flush() error {
	if _, err := w.dst.WriteString(w.sb.String()); err != nil {
		return err
	}
	w.sb.Reset()
	return w.dst.Flush()
}

// Close flushes the buffer and closes the underlying file, if any.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if w.f != nil {
		return w.f.Close()
	}
	return nil
}

// ReadSource reads the MyLang source file at path.
func ReadSource(path string) (string, error) {
	b, err := ioutil.ReadFile(path)
	return string(b), err
}

// WriteFailure truncates the file at path and writes msg as its only
// content, per spec.md §6: "On error, the IR-output file is truncated and
// re-opened, and the serialised error message is written as its only
// content."
func WriteFailure(path, msg string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(msg)
	return err
}
