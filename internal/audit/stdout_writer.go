package audit

import (
	"encoding/json"
	"io"
	"os"
	"sync"
)

// stdoutWriter writes audit events to a stream as JSON lines
type stdoutWriter struct {
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewStdoutWriter creates a writer that emits JSON lines on stdout
func NewStdoutWriter() Writer {
	return NewStreamWriter(os.Stdout)
}

// NewStreamWriter creates a writer over an arbitrary stream, used in tests
func NewStreamWriter(w io.Writer) Writer {
	return &stdoutWriter{encoder: json.NewEncoder(w)}
}

func (w *stdoutWriter) Write(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.encoder.Encode(event)
}

func (w *stdoutWriter) Close() error {
	return nil
}
