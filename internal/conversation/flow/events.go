package flow

import (
	"context"
	"errors"

	"github.com/deepchat-ai/deepchat/internal/chat"
	"github.com/deepchat-ai/deepchat/internal/conversation"
)

// Downstream event names.
const (
	EventStart     = "start"
	EventReasoning = "reasoning"
	EventContent   = "content"
	EventComplete  = "complete"
	EventError     = "error"
)

// Sink receives named events with JSON-encodable payloads. sse.Writer and the
// websocket session both implement it.
type Sink interface {
	Send(event string, payload any) error
}

type StartEvent struct {
	ConversationID string `json:"conversationId"`
	Model          string `json:"model"`
}

type FragmentEvent struct {
	Content string `json:"content"`
}

type CompleteEvent struct {
	ConversationID string               `json:"conversationId"`
	Message        conversation.Message `json:"message"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

// ErrorMessage renders err for end users.
func ErrorMessage(err error) string {
	var mismatch *chat.CapabilityMismatchError
	var connect *chat.UpstreamConnectError
	var stream *chat.UpstreamStreamError
	switch {
	case errors.As(err, &mismatch):
		return mismatch.Error()
	case errors.Is(err, ErrEmptyMessage):
		return "消息内容不能为空"
	case errors.Is(err, conversation.ErrNotFound):
		return "未找到对话"
	case errors.Is(err, context.Canceled):
		return "请求已取消"
	case errors.As(err, &connect):
		return "AI服务连接失败: " + connect.Err.Error()
	case errors.As(err, &stream):
		return "AI服务响应中断: " + stream.Err.Error()
	default:
		return "服务器错误"
	}
}
