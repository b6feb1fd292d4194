// Package sse reads and writes server-sent event streams.
package sse

import (
	"bufio"
	"io"
	"strings"
)

// Event is one parsed SSE event, delimited by a blank line.
type Event struct {
	// Type is the "event:" field; empty means the default "message" type.
	Type string
	// Data joins all "data:" lines of the event with "\n".
	Data string
	ID   string
}

// Reader parses SSE events from an upstream body.
type Reader struct {
	scanner *bufio.Scanner
	current Event
	hasData bool
}

func NewReader(src io.Reader) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
	return &Reader{scanner: scanner}
}

// Next blocks until a complete event is available. It returns nil, nil when
// the source is exhausted.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")
		if line == "" {
			if r.hasData {
				return r.take(), nil
			}
			continue
		}
		// Comment lines carry keep-alives such as ": OPENROUTER PROCESSING".
		if strings.HasPrefix(line, ":") {
			continue
		}
		r.parseLine(line)
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	// A final event without a trailing blank line is still delivered.
	if r.hasData {
		return r.take(), nil
	}
	return nil, nil
}

func (r *Reader) parseLine(line string) {
	field, value, ok := strings.Cut(line, ":")
	if ok {
		value = strings.TrimPrefix(value, " ")
	} else {
		field = line
	}
	switch field {
	case "data":
		if r.hasData && r.current.Data != "" {
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.hasData = true
	case "event":
		r.current.Type = value
		r.hasData = true
	case "id":
		r.current.ID = value
		r.hasData = true
	}
}

func (r *Reader) take() *Event {
	ev := r.current
	r.current = Event{}
	r.hasData = false
	return &ev
}
