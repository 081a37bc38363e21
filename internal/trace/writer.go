package trace

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"
)

// Writer appends JSONL records to a file. Safe for concurrent use; each
// line is written whole. Close flushes, and the runner also closes writers
// on every exit path including cancellation and fatal errors so partial
// traces survive.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	buf *bufio.Writer
}

// NewWriter truncates or creates path for a fresh run's output.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open trace output: %w", err)
	}
	return &Writer{f: f, buf: bufio.NewWriter(f)}, nil
}

// Append marshals v and writes it as one line.
func (w *Writer) Append(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal trace record: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.buf.Write(data); err != nil {
		return err
	}
	return w.buf.WriteByte('\n')
}

// Flush pushes buffered lines to the file.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Flush()
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	flushErr := w.buf.Flush()
	closeErr := w.f.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
