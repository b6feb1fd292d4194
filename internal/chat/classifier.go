package chat

import "strconv"

// RawChunk is one decoded increment of an upstream stream. Its shape is
// provider-defined; nil means the increment could not be decoded.
type RawChunk map[string]any

// Fragment is the classified payload of a chunk. Either field may be empty.
type Fragment struct {
	Reasoning string `json:"reasoning,omitempty"`
	Content   string `json:"content,omitempty"`
}

func (f Fragment) Empty() bool {
	return f.Reasoning == "" && f.Content == ""
}

// DefaultReasoningPaths lists the fields providers use for exposed thinking
// output, most common first.
func DefaultReasoningPaths() []FieldPath {
	return []FieldPath{
		{Provider: "openrouter", Path: "reasoning"},
		{Provider: "deepseek", Path: "reasoning_content"},
		{Provider: "anthropic-compat", Path: "thinking"},
		{Provider: "openrouter", Path: "reasoning.text"},
		{Provider: "qwen", Path: "reasoning_text"},
		{Provider: "generic", Path: "thoughts"},
	}
}

// DefaultContentPaths lists the fields providers use for answer text.
func DefaultContentPaths() []FieldPath {
	return []FieldPath{
		{Provider: "openai", Path: "content"},
		{Provider: "generic", Path: "text"},
		{Provider: "generic", Path: "message.content"},
		{Provider: "generic", Path: "answer"},
	}
}

// DefaultDeltaLocators lists where a chunk keeps its delta record. Numeric
// segments index into arrays.
func DefaultDeltaLocators() []string {
	return []string{"choices.0.delta", "choices.0.message", "delta"}
}

// Classifier splits raw chunks into reasoning and content fragments.
type Classifier struct {
	locators  []string
	reasoning []FieldPath
	content   []FieldPath
}

// NewClassifier builds a classifier. Empty path lists fall back to the defaults.
func NewClassifier(reasoning, content []FieldPath) *Classifier {
	if len(reasoning) == 0 {
		reasoning = DefaultReasoningPaths()
	}
	if len(content) == 0 {
		content = DefaultContentPaths()
	}
	return &Classifier{
		locators:  DefaultDeltaLocators(),
		reasoning: append([]FieldPath(nil), reasoning...),
		content:   append([]FieldPath(nil), content...),
	}
}

// Classify returns the fragments carried by raw. Chunks without a readable
// delta, and control-only chunks such as role announcements, yield an empty
// Fragment.
func (c *Classifier) Classify(raw RawChunk) Fragment {
	delta, ok := c.locateDelta(raw)
	if !ok {
		return Fragment{}
	}
	var f Fragment
	f.Reasoning, _ = Extract(delta, c.reasoning)
	f.Content, _ = Extract(delta, c.content)
	return f
}

func (c *Classifier) locateDelta(raw RawChunk) (map[string]any, bool) {
	if raw == nil {
		return nil, false
	}
	for _, loc := range c.locators {
		if d, ok := walkIndexed(map[string]any(raw), loc); ok {
			return d, true
		}
	}
	return nil, false
}

// walkIndexed resolves a dotted locator that may index arrays, and returns
// the target only when it is a record.
func walkIndexed(root map[string]any, locator string) (map[string]any, bool) {
	var current any = root
	start := 0
	for i := 0; i <= len(locator); i++ {
		if i < len(locator) && locator[i] != '.' {
			continue
		}
		seg := locator[start:i]
		start = i + 1
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	m, ok := current.(map[string]any)
	return m, ok
}
