package sse

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, src string) []Event {
	t.Helper()
	r := NewReader(strings.NewReader(src))
	var out []Event
	for {
		ev, err := r.Next()
		require.NoError(t, err)
		if ev == nil {
			return out
		}
		out = append(out, *ev)
	}
}

func TestReader_Events(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		src  string
		want []Event
	}{
		{name: "single", src: "data: hello\n\n", want: []Event{{Data: "hello"}}},
		{name: "multiple", src: "data: a\n\ndata: b\n\n", want: []Event{{Data: "a"}, {Data: "b"}}},
		{name: "typed with id", src: "event: content\nid: 7\ndata: {\"x\":1}\n\n", want: []Event{{Type: "content", ID: "7", Data: `{"x":1}`}}},
		{name: "multi line data", src: "data: one\ndata: two\n\n", want: []Event{{Data: "one\ntwo"}}},
		{name: "comments and keepalives", src: ": OPENROUTER PROCESSING\n\n\ndata: x\n\n", want: []Event{{Data: "x"}}},
		{name: "crlf", src: "data: x\r\n\r\n", want: []Event{{Data: "x"}}},
		{name: "no space after colon", src: "data:x\n\n", want: []Event{{Data: "x"}}},
		{name: "trailing event without blank line", src: "data: a\n\ndata: tail", want: []Event{{Data: "a"}, {Data: "tail"}}},
		{name: "unknown fields ignored", src: "retry: 100\nfoo: bar\ndata: x\n\n", want: []Event{{Data: "x"}}},
		{name: "empty", src: "", want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, readAll(t, tc.src))
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("reset") }

func TestReader_PropagatesReadError(t *testing.T) {
	t.Parallel()

	_, err := NewReader(failingReader{}).Next()
	assert.EqualError(t, err, "reset")
}

func TestWriter_NamedEvents(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	require.NoError(t, w.WriteEvent("start", map[string]string{"conversationId": "c1"}))
	require.NoError(t, w.Send("content", map[string]string{"content": "你好"}))

	assert.Equal(t,
		"event: start\ndata: {\"conversationId\":\"c1\"}\n\n"+
			"event: content\ndata: {\"content\":\"你好\"}\n\n",
		rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestWriter_RoundTripsThroughReader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteRaw("reasoning", "line1\nline2"))
	require.NoError(t, w.WriteEvent("complete", map[string]any{"ok": true}))

	events := readAll(t, buf.String())
	assert.Equal(t, []Event{
		{Type: "reasoning", Data: "line1\nline2"},
		{Type: "complete", Data: `{"ok":true}`},
	}, events)
}

func TestWriter_RejectsUnencodablePayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	assert.Error(t, NewWriter(&buf).WriteEvent("content", make(chan int)))
	assert.Zero(t, buf.Len())
}
