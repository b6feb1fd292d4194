package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func TestContent_DecodesStringAndParts(t *testing.T) {
	t.Parallel()

	var msg ChatMessage
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":"你好"}`), &msg))
	assert.False(t, msg.Content.IsMultipart())
	assert.Equal(t, "你好", msg.Content.PlainText())

	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":[
		{"type":"text","text":"这是什么"},
		{"type":"image_url","image_url":{"url":"https://example.com/cat.png"}}
	]}`), &msg))
	assert.True(t, msg.Content.IsMultipart())
	assert.True(t, msg.Content.HasImage())
	assert.Equal(t, "这是什么", msg.Content.PlainText())

	assert.Error(t, json.Unmarshal([]byte(`{"content":{"text":"x"}}`), &msg))
}

func TestContent_EncodesByShape(t *testing.T) {
	t.Parallel()

	text, err := json.Marshal(NewTextContent("hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `"hi"`, string(text))

	parts, err := json.Marshal(NewPartsContent(TextPart("hi"), ImagePart("https://example.com/x.png")))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"text","text":"hi"},{"type":"image_url","image_url":{"url":"https://example.com/x.png"}}]`, string(parts))
}

func TestNewUserMessage(t *testing.T) {
	t.Parallel()

	plain := NewUserMessage("hello", "  ", testNow)
	assert.False(t, plain.HasImage)
	assert.False(t, plain.Content.IsMultipart())

	withImage := NewUserMessage("", "https://example.com/x.png", testNow)
	assert.True(t, withImage.HasImage)
	require.Len(t, withImage.Content.Parts, 1)
	assert.Equal(t, PartTypeImageURL, withImage.Content.Parts[0].Type)
	assert.True(t, ContainsImage([]ChatMessage{plain, withImage}))
	assert.False(t, ContainsImage([]ChatMessage{plain}))
}

func TestGate(t *testing.T) {
	t.Parallel()

	gate := NewGate(testCatalog(t))
	text := []ChatMessage{NewUserMessage("hi", "", testNow)}
	image := []ChatMessage{NewUserMessage("hi", "https://example.com/x.png", testNow)}

	assert.True(t, gate.Allowed("text-only-A", text))
	assert.True(t, gate.Allowed("unknown-model", text))
	assert.True(t, gate.Allowed("vision-B", image))
	assert.False(t, gate.Allowed("text-only-A", image))
	assert.False(t, gate.Allowed("unknown-model", image))

	err := gate.Check("text-only-A", image)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Text Only A")
	assert.Contains(t, err.Error(), "不支持图像理解")

	assert.False(t, Gate{}.Allowed("vision-B", image))
}
