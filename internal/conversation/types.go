// Package conversation stores chat histories owned by users.
package conversation

import (
	"errors"
	"time"

	"github.com/deepchat-ai/deepchat/internal/chat"
)

const (
	DefaultTitle   = "新对话"
	MaxTitleLength = 100

	// DerivedTitleLength is how many runes of the first message name a new conversation.
	DerivedTitleLength = 30
)

var (
	ErrNotFound     = errors.New("conversation not found")
	ErrInvalidTitle = errors.New("invalid conversation title")
)

// Conversation is a titled, user-owned history. Messages is only populated by Get.
type Conversation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	MessageCount int64     `json:"messageCount"`
	Messages     []Message `json:"messages,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Message is a stored turn.
type Message struct {
	ID string `json:"id"`
	chat.ChatMessage
}

type CreateRequest struct {
	Title string `json:"title" validate:"max=100"`
}

// RenameRequest keeps Title a pointer so a missing title can be told apart
// from a blank one.
type RenameRequest struct {
	Title *string `json:"title"`
}

type ListResponse struct {
	Count int            `json:"count"`
	Items []Conversation `json:"items"`
}
