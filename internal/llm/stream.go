package llm

import (
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/deepchat-ai/deepchat/internal/chat"
	"github.com/deepchat-ai/deepchat/internal/sse"
)

const doneMarker = "[DONE]"

// chunkStream decodes SSE events from a completion body into raw chunks.
type chunkStream struct {
	body      io.ReadCloser
	reader    *sse.Reader
	closeOnce sync.Once
	closeErr  error
	done      bool
}

func newChunkStream(body io.ReadCloser) *chunkStream {
	return &chunkStream{body: body, reader: sse.NewReader(body)}
}

// Next returns the next chunk. Data that is not a JSON object comes back as a
// nil chunk so the caller can skip it. An in-band error payload is returned
// as an *APIError.
func (s *chunkStream) Next() (chat.RawChunk, error) {
	if s.done {
		return nil, io.EOF
	}
	for {
		ev, err := s.reader.Next()
		if err != nil {
			return nil, err
		}
		if ev == nil {
			s.done = true
			return nil, io.EOF
		}
		data := strings.TrimSpace(ev.Data)
		if data == "" {
			continue
		}
		if data == doneMarker {
			s.done = true
			return nil, io.EOF
		}
		var chunk chat.RawChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil, nil
		}
		if apiErr := providerError(chunk); apiErr != nil {
			return nil, apiErr
		}
		return chunk, nil
	}
}

func (s *chunkStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
