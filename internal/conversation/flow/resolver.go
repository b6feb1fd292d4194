package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deepchat-ai/deepchat/internal/chat"
	"github.com/deepchat-ai/deepchat/internal/conversation"
)

const (
	defaultHistoryLimit  = 20
	defaultAnalyzePrompt = "请详细描述这张图片的内容"
	imagePlaceholder     = "[图片]"
)

var ErrEmptyMessage = errors.New("message and image are both empty")

// Store persists conversations and their turns.
type Store interface {
	Create(ctx context.Context, userID, title string) (conversation.Conversation, error)
	Require(ctx context.Context, userID, id string) (conversation.Conversation, error)
	AppendMessage(ctx context.Context, conversationID string, msg chat.ChatMessage) (conversation.Message, error)
	History(ctx context.Context, conversationID string, limit int) ([]chat.ChatMessage, error)
}

// ModelResolver maps a requested model id onto one the catalog serves.
type ModelResolver interface {
	Resolve(modelID string) string
}

// Completer performs one non-streaming completion.
type Completer interface {
	Complete(ctx context.Context, req chat.Request) (chat.RawChunk, error)
}

type Config struct {
	HistoryLimit int
	Classifier   *chat.Classifier
}

// SendRequest is one user turn. Model is the user's preferred model; unknown
// ids fall back to the catalog default.
type SendRequest struct {
	UserID         string `json:"-"`
	Model          string `json:"-"`
	ConversationID string `json:"conversationId,omitempty"`
	Message        string `json:"message,omitempty"`
	ImageURL       string `json:"imageUrl,omitempty"`
}

type SendResult struct {
	ConversationID string               `json:"conversationId"`
	Model          string               `json:"model"`
	Message        conversation.Message `json:"message"`
}

type AnalyzeRequest struct {
	Model    string `json:"-"`
	ImageURL string `json:"imageUrl" validate:"required"`
	Prompt   string `json:"prompt,omitempty"`
}

// Resolver runs chat turns: it checkpoints the user turn, relays the
// upstream reply and stores the assistant turn once the relay completes.
type Resolver struct {
	store        Store
	models       ModelResolver
	upstream     chat.Upstream
	completer    Completer
	gate         chat.Gate
	classifier   *chat.Classifier
	historyLimit int
	logger       *slog.Logger
	now          func() time.Time
}

func NewResolver(
	log *slog.Logger,
	store Store,
	models ModelResolver,
	upstream chat.Upstream,
	completer Completer,
	gate chat.Gate,
	cfg Config,
) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.Classifier == nil {
		cfg.Classifier = chat.NewClassifier(nil, nil)
	}
	return &Resolver{
		store:        store,
		models:       models,
		upstream:     upstream,
		completer:    completer,
		gate:         gate,
		classifier:   cfg.Classifier,
		historyLimit: cfg.HistoryLimit,
		logger:       log.With(slog.String("service", "chat_resolver")),
		now:          time.Now,
	}
}

type preparedTurn struct {
	conversationID string
	model          string
	history        []chat.ChatMessage
}

// prepare validates the turn, then persists it. Nothing is written when the
// capability gate rejects the turn.
func (r *Resolver) prepare(ctx context.Context, req SendRequest) (preparedTurn, error) {
	text := strings.TrimSpace(req.Message)
	imageURL := strings.TrimSpace(req.ImageURL)
	if text == "" && imageURL == "" {
		return preparedTurn{}, ErrEmptyMessage
	}
	model := r.models.Resolve(req.Model)
	userMsg := chat.NewUserMessage(text, imageURL, r.now())
	if err := r.gate.Check(model, []chat.ChatMessage{userMsg}); err != nil {
		return preparedTurn{}, err
	}

	var conversationID string
	if id := strings.TrimSpace(req.ConversationID); id != "" {
		conv, err := r.store.Require(ctx, req.UserID, id)
		if err != nil {
			return preparedTurn{}, err
		}
		conversationID = conv.ID
	} else {
		conv, err := r.store.Create(ctx, req.UserID, conversation.DeriveTitle(text))
		if err != nil {
			return preparedTurn{}, err
		}
		conversationID = conv.ID
	}

	if _, err := r.store.AppendMessage(ctx, conversationID, userMsg); err != nil {
		return preparedTurn{}, fmt.Errorf("store user message: %w", err)
	}
	history, err := r.store.History(ctx, conversationID, r.historyLimit)
	if err != nil {
		return preparedTurn{}, err
	}
	if !r.gate.Allowed(model, history) {
		history = flattenImages(history)
	}
	return preparedTurn{conversationID: conversationID, model: model, history: history}, nil
}

// flattenImages rewrites multimodal turns as text so older images do not
// block a text-only model.
func flattenImages(messages []chat.ChatMessage) []chat.ChatMessage {
	out := make([]chat.ChatMessage, len(messages))
	for i, m := range messages {
		if m.Content.HasImage() {
			text := m.Content.PlainText()
			if text == "" {
				text = imagePlaceholder
			}
			m.Content = chat.NewTextContent(text)
			m.HasImage = false
		}
		out[i] = m
	}
	return out
}

func (r *Resolver) newRelay() *chat.Relay {
	return chat.NewRelay(r.logger, r.upstream, r.gate, r.classifier)
}

// Send runs a turn without streaming and returns the stored assistant reply.
func (r *Resolver) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	turn, err := r.prepare(ctx, req)
	if err != nil {
		return SendResult{}, err
	}
	res := r.newRelay().Run(ctx, chat.Request{Model: turn.model, Messages: turn.history}, chat.Callbacks{})
	if res.Err != nil {
		r.logger.Warn("chat send failed", slog.String("model", turn.model), slog.Any("error", res.Err))
		return SendResult{}, res.Err
	}
	stored, err := r.store.AppendMessage(ctx, turn.conversationID, res.Message)
	if err != nil {
		return SendResult{}, fmt.Errorf("store assistant message: %w", err)
	}
	return SendResult{ConversationID: turn.conversationID, Model: turn.model, Message: stored}, nil
}

// Stream runs a turn and forwards it to sink as start, reasoning/content
// fragments and exactly one complete or error event. The assistant turn is
// stored before complete is sent; on error it is not stored.
func (r *Resolver) Stream(ctx context.Context, req SendRequest, sink Sink) error {
	turn, err := r.prepare(ctx, req)
	if err != nil {
		r.sendError(sink, err)
		return err
	}
	if err := sink.Send(EventStart, StartEvent{ConversationID: turn.conversationID, Model: turn.model}); err != nil {
		return fmt.Errorf("send start event: %w", err)
	}

	relayCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	forward := func(event string) func(string) {
		return func(fragment string) {
			if err := sink.Send(event, FragmentEvent{Content: fragment}); err != nil {
				r.logger.Debug("downstream write failed", slog.String("event", event), slog.Any("error", err))
				cancel()
			}
		}
	}
	res := r.newRelay().Run(relayCtx, chat.Request{Model: turn.model, Messages: turn.history}, chat.Callbacks{
		OnReasoning: forward(EventReasoning),
		OnContent:   forward(EventContent),
	})
	if res.Err != nil {
		r.logger.Warn("chat stream failed",
			slog.String("conversation_id", turn.conversationID),
			slog.String("model", turn.model),
			slog.Any("error", res.Err),
		)
		r.sendError(sink, res.Err)
		return res.Err
	}

	stored, err := r.store.AppendMessage(ctx, turn.conversationID, res.Message)
	if err != nil {
		r.sendError(sink, err)
		return fmt.Errorf("store assistant message: %w", err)
	}
	if err := sink.Send(EventComplete, CompleteEvent{ConversationID: turn.conversationID, Message: stored}); err != nil {
		return fmt.Errorf("send complete event: %w", err)
	}
	return nil
}

func (r *Resolver) sendError(sink Sink, err error) {
	if serr := sink.Send(EventError, ErrorEvent{Message: ErrorMessage(err)}); serr != nil {
		r.logger.Debug("send error event failed", slog.Any("error", serr))
	}
}

// AnalyzeImage describes one image. Nothing is persisted.
func (r *Resolver) AnalyzeImage(ctx context.Context, req AnalyzeRequest) (string, error) {
	imageURL := strings.TrimSpace(req.ImageURL)
	if imageURL == "" {
		return "", ErrEmptyMessage
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = defaultAnalyzePrompt
	}
	model := r.models.Resolve(req.Model)
	messages := []chat.ChatMessage{chat.NewUserMessage(prompt, imageURL, r.now())}
	if err := r.gate.Check(model, messages); err != nil {
		return "", err
	}
	if r.completer == nil {
		return "", &chat.UpstreamConnectError{Err: errors.New("upstream not configured")}
	}
	raw, err := r.completer.Complete(ctx, chat.Request{Model: model, Messages: messages})
	if err != nil {
		return "", &chat.UpstreamConnectError{Err: err}
	}
	acc := chat.NewAccumulator()
	acc.Observe(r.classifier.Classify(raw))
	msg, err := acc.Finalize()
	if err != nil {
		return "", err
	}
	return msg.Content.PlainText(), nil
}
