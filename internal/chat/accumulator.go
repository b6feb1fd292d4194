package chat

import (
	"errors"
	"strings"
	"time"
)

// EmptyReplyPlaceholder replaces an assistant reply whose content came back empty.
const EmptyReplyPlaceholder = "抱歉，AI无法生成有效回复"

var ErrAlreadyFinalized = errors.New("accumulator already finalized")

type Channel int

const (
	ChannelReasoning Channel = iota
	ChannelContent
)

func (c Channel) String() string {
	switch c {
	case ChannelReasoning:
		return "reasoning"
	case ChannelContent:
		return "content"
	default:
		return "unknown"
	}
}

// Accumulator keeps the running reasoning and content text of one stream.
// It is owned by a single run and is not safe for concurrent use.
type Accumulator struct {
	reasoning strings.Builder
	content   strings.Builder
	chunks    int
	finalized bool
	now       func() time.Time
}

func NewAccumulator() *Accumulator {
	return &Accumulator{now: time.Now}
}

// Append concatenates fragment onto the named buffer.
func (a *Accumulator) Append(ch Channel, fragment string) {
	switch ch {
	case ChannelReasoning:
		a.reasoning.WriteString(fragment)
	case ChannelContent:
		a.content.WriteString(fragment)
	}
}

// Observe records one classified chunk, empty or not, and appends both of
// its fragments.
func (a *Accumulator) Observe(f Fragment) {
	a.chunks++
	if f.Reasoning != "" {
		a.Append(ChannelReasoning, f.Reasoning)
	}
	if f.Content != "" {
		a.Append(ChannelContent, f.Content)
	}
}

// ChunkCount is the number of chunks observed, including those that carried
// no fragment.
func (a *Accumulator) ChunkCount() int {
	return a.chunks
}

// Finalize builds the assistant message. It succeeds once.
func (a *Accumulator) Finalize() (ChatMessage, error) {
	if a.finalized {
		return ChatMessage{}, ErrAlreadyFinalized
	}
	a.finalized = true
	msg := ChatMessage{
		Role:      RoleAssistant,
		Timestamp: a.now().UTC(),
	}
	if a.reasoning.Len() > 0 {
		msg.HasReasoning = true
		msg.Reasoning = a.reasoning.String()
	}
	content := a.content.String()
	if content == "" {
		content = EmptyReplyPlaceholder
	}
	msg.Content = NewTextContent(content)
	return msg, nil
}
