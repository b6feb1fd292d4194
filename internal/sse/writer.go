package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Writer emits named events, flushing after each one.
type Writer struct {
	mu      sync.Mutex
	writer  *bufio.Writer
	flusher http.Flusher
}

// NewWriter wraps w. When w implements http.Flusher every event is pushed to
// the client immediately.
func NewWriter(w io.Writer) *Writer {
	flusher, _ := w.(http.Flusher)
	return &Writer{writer: bufio.NewWriter(w), flusher: flusher}
}

// WriteEvent writes "event: <name>\ndata: <json>\n\n".
func (w *Writer) WriteEvent(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", name, err)
	}
	return w.WriteRaw(name, string(data))
}

// WriteRaw writes an event with a preformatted data value. Multi-line data
// is split into several data lines.
func (w *Writer) WriteRaw(name, data string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var b strings.Builder
	if name != "" {
		b.WriteString("event: ")
		b.WriteString(name)
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if _, err := w.writer.WriteString(b.String()); err != nil {
		return err
	}
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

// Send satisfies event sinks that take a name and a JSON payload.
func (w *Writer) Send(name string, payload any) error {
	return w.WriteEvent(name, payload)
}
