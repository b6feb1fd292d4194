package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
)

// ContentPart is one typed element of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

func TextPart(text string) ContentPart {
	return ContentPart{Type: PartTypeText, Text: text}
}

func ImagePart(url string) ContentPart {
	return ContentPart{Type: PartTypeImageURL, ImageURL: &ImageURL{URL: url}}
}

// Content holds either plain text or an ordered list of parts. It encodes
// as a JSON string or a JSON array accordingly.
type Content struct {
	Text  string
	Parts []ContentPart
}

func NewTextContent(text string) Content {
	return Content{Text: text}
}

func NewPartsContent(parts ...ContentPart) Content {
	return Content{Parts: parts}
}

// IsMultipart reports whether the content is a part list.
func (c Content) IsMultipart() bool {
	return c.Parts != nil
}

// HasImage reports whether any part is an image.
func (c Content) HasImage() bool {
	for _, p := range c.Parts {
		if p.Type == PartTypeImageURL && p.ImageURL != nil && strings.TrimSpace(p.ImageURL.URL) != "" {
			return true
		}
	}
	return false
}

// PlainText flattens the content into its text, joining text parts with a newline.
func (c Content) PlainText() string {
	if !c.IsMultipart() {
		return c.Text
	}
	texts := make([]string, 0, len(c.Parts))
	for _, p := range c.Parts {
		if p.Type == PartTypeText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func (c Content) IsEmpty() bool {
	if c.IsMultipart() {
		for _, p := range c.Parts {
			if p.Text != "" || (p.ImageURL != nil && p.ImageURL.URL != "") {
				return false
			}
		}
		return true
	}
	return c.Text == ""
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsMultipart() {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = Content{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*c = Content{Text: text}
		return nil
	case '[':
		var parts []ContentPart
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return err
		}
		if parts == nil {
			parts = []ContentPart{}
		}
		*c = Content{Parts: parts}
		return nil
	default:
		return errors.New("content must be a string or an array of parts")
	}
}

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role         Role      `json:"role"`
	Content      Content   `json:"content"`
	HasImage     bool      `json:"hasImage"`
	HasReasoning bool      `json:"hasReasoning"`
	Reasoning    string    `json:"reasoning,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewUserMessage builds a user turn from text and an optional image URL.
// With an image the content becomes a part list.
func NewUserMessage(text, imageURL string, now time.Time) ChatMessage {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return ChatMessage{Role: RoleUser, Content: NewTextContent(text), Timestamp: now}
	}
	parts := make([]ContentPart, 0, 2)
	if strings.TrimSpace(text) != "" {
		parts = append(parts, TextPart(text))
	}
	parts = append(parts, ImagePart(imageURL))
	return ChatMessage{Role: RoleUser, Content: NewPartsContent(parts...), HasImage: true, Timestamp: now}
}

// ContainsImage reports whether any message carries an image part.
func ContainsImage(messages []ChatMessage) bool {
	for _, m := range messages {
		if m.Content.HasImage() {
			return true
		}
	}
	return false
}
