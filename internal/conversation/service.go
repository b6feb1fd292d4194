package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/deepchat-ai/deepchat/internal/chat"
	"github.com/deepchat-ai/deepchat/internal/db"
	"github.com/deepchat-ai/deepchat/internal/db/sqlc"
)

// Queries is the subset of sqlc.Queries used for conversations.
type Queries interface {
	CreateConversation(ctx context.Context, arg sqlc.CreateConversationParams) (sqlc.Conversation, error)
	GetConversation(ctx context.Context, arg sqlc.GetConversationParams) (sqlc.Conversation, error)
	ListConversationsByUser(ctx context.Context, userID pgtype.UUID) ([]sqlc.ListConversationsByUserRow, error)
	UpdateConversationTitle(ctx context.Context, arg sqlc.UpdateConversationTitleParams) (sqlc.Conversation, error)
	TouchConversation(ctx context.Context, id pgtype.UUID) error
	DeleteConversation(ctx context.Context, arg sqlc.DeleteConversationParams) (int64, error)
	CreateConversationMessage(ctx context.Context, arg sqlc.CreateConversationMessageParams) (sqlc.ConversationMessage, error)
	ListConversationMessages(ctx context.Context, conversationID pgtype.UUID) ([]sqlc.ConversationMessage, error)
	ListRecentConversationMessages(ctx context.Context, arg sqlc.ListRecentConversationMessagesParams) ([]sqlc.ConversationMessage, error)
}

type Service struct {
	queries Queries
	logger  *slog.Logger
}

func NewService(log *slog.Logger, queries Queries) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		queries: queries,
		logger:  log.With(slog.String("service", "conversation")),
	}
}

// List returns the user's conversations, most recently updated first.
func (s *Service) List(ctx context.Context, userID string) ([]Conversation, error) {
	uid, err := db.ParseUUID(userID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := s.queries.ListConversationsByUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	items := make([]Conversation, 0, len(rows))
	for _, row := range rows {
		items = append(items, Conversation{
			ID:           db.UUIDString(row.ID),
			UserID:       db.UUIDString(row.UserID),
			Title:        row.Title,
			MessageCount: row.MessageCount,
			CreatedAt:    db.TimeFromPg(row.CreatedAt),
			UpdatedAt:    db.TimeFromPg(row.UpdatedAt),
		})
	}
	return items, nil
}

// Require loads a conversation header, scoped to its owner.
func (s *Service) Require(ctx context.Context, userID, id string) (Conversation, error) {
	row, err := s.load(ctx, userID, id)
	if err != nil {
		return Conversation{}, err
	}
	return toConversation(row), nil
}

// Get loads a conversation with all of its messages.
func (s *Service) Get(ctx context.Context, userID, id string) (Conversation, error) {
	row, err := s.load(ctx, userID, id)
	if err != nil {
		return Conversation{}, err
	}
	rows, err := s.queries.ListConversationMessages(ctx, row.ID)
	if err != nil {
		return Conversation{}, fmt.Errorf("list messages: %w", err)
	}
	conv := toConversation(row)
	conv.Messages = make([]Message, 0, len(rows))
	for _, m := range rows {
		msg, err := toMessage(m)
		if err != nil {
			s.logger.Warn("skip undecodable message", slog.String("message_id", db.UUIDString(m.ID)), slog.Any("error", err))
			continue
		}
		conv.Messages = append(conv.Messages, msg)
	}
	conv.MessageCount = int64(len(conv.Messages))
	return conv, nil
}

// Create starts an empty conversation. A blank title becomes DefaultTitle.
func (s *Service) Create(ctx context.Context, userID, title string) (Conversation, error) {
	uid, err := db.ParseUUID(userID)
	if err != nil {
		return Conversation{}, fmt.Errorf("invalid user id: %w", err)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return Conversation{}, ErrInvalidTitle
	}
	row, err := s.queries.CreateConversation(ctx, sqlc.CreateConversationParams{UserID: uid, Title: title})
	if err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return toConversation(row), nil
}

// Rename sets the title. A blank title resets it to DefaultTitle.
func (s *Service) Rename(ctx context.Context, userID, id, title string) (Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return Conversation{}, ErrInvalidTitle
	}
	uid, cid, err := parseIDs(userID, id)
	if err != nil {
		return Conversation{}, err
	}
	row, err := s.queries.UpdateConversationTitle(ctx, sqlc.UpdateConversationTitleParams{ID: cid, UserID: uid, Title: title})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("rename conversation: %w", err)
	}
	return toConversation(row), nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	uid, cid, err := parseIDs(userID, id)
	if err != nil {
		return err
	}
	n, err := s.queries.DeleteConversation(ctx, sqlc.DeleteConversationParams{ID: cid, UserID: uid})
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage stores msg at the end of the conversation and bumps its
// updated time. Ownership must already have been checked.
func (s *Service) AppendMessage(ctx context.Context, conversationID string, msg chat.ChatMessage) (Message, error) {
	cid, err := db.ParseUUID(conversationID)
	if err != nil {
		return Message{}, ErrNotFound
	}
	content, err := json.Marshal(msg.Content)
	if err != nil {
		return Message{}, fmt.Errorf("encode content: %w", err)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	row, err := s.queries.CreateConversationMessage(ctx, sqlc.CreateConversationMessageParams{
		ConversationID: cid,
		Role:           string(msg.Role),
		Content:        content,
		HasImage:       msg.HasImage || msg.Content.HasImage(),
		HasReasoning:   msg.HasReasoning,
		Reasoning:      msg.Reasoning,
		CreatedAt:      db.TimeToPg(msg.Timestamp.UTC()),
	})
	if err != nil {
		return Message{}, fmt.Errorf("store message: %w", err)
	}
	if err := s.queries.TouchConversation(ctx, cid); err != nil {
		s.logger.Warn("touch conversation failed", slog.String("conversation_id", conversationID), slog.Any("error", err))
	}
	return toMessage(row)
}

// History returns up to limit of the newest messages in chronological order.
func (s *Service) History(ctx context.Context, conversationID string, limit int) ([]chat.ChatMessage, error) {
	cid, err := db.ParseUUID(conversationID)
	if err != nil {
		return nil, ErrNotFound
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.queries.ListRecentConversationMessages(ctx, sqlc.ListRecentConversationMessagesParams{
		ConversationID: cid,
		Limit:          int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make([]chat.ChatMessage, 0, len(rows))
	for _, row := range rows {
		msg, err := toMessage(row)
		if err != nil {
			continue
		}
		out = append(out, msg.ChatMessage)
	}
	return out, nil
}

// DeriveTitle names a conversation after its first message.
func DeriveTitle(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return DefaultTitle
	}
	runes := []rune(message)
	if len(runes) <= DerivedTitleLength {
		return message
	}
	return string(runes[:DerivedTitleLength]) + "..."
}

func (s *Service) load(ctx context.Context, userID, id string) (sqlc.Conversation, error) {
	uid, cid, err := parseIDs(userID, id)
	if err != nil {
		return sqlc.Conversation{}, err
	}
	row, err := s.queries.GetConversation(ctx, sqlc.GetConversationParams{ID: cid, UserID: uid})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sqlc.Conversation{}, ErrNotFound
		}
		return sqlc.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return row, nil
}

func parseIDs(userID, id string) (pgtype.UUID, pgtype.UUID, error) {
	uid, err := db.ParseUUID(userID)
	if err != nil {
		return pgtype.UUID{}, pgtype.UUID{}, ErrNotFound
	}
	cid, err := db.ParseUUID(id)
	if err != nil {
		return pgtype.UUID{}, pgtype.UUID{}, ErrNotFound
	}
	return uid, cid, nil
}

func toConversation(row sqlc.Conversation) Conversation {
	return Conversation{
		ID:        db.UUIDString(row.ID),
		UserID:    db.UUIDString(row.UserID),
		Title:     row.Title,
		CreatedAt: db.TimeFromPg(row.CreatedAt),
		UpdatedAt: db.TimeFromPg(row.UpdatedAt),
	}
}

func toMessage(row sqlc.ConversationMessage) (Message, error) {
	var content chat.Content
	if err := json.Unmarshal(row.Content, &content); err != nil {
		return Message{}, fmt.Errorf("decode content: %w", err)
	}
	return Message{
		ID: db.UUIDString(row.ID),
		ChatMessage: chat.ChatMessage{
			Role:         chat.Role(row.Role),
			Content:      content,
			HasImage:     row.HasImage,
			HasReasoning: row.HasReasoning,
			Reasoning:    row.Reasoning,
			Timestamp:    db.TimeFromPg(row.CreatedAt),
		},
	}, nil
}
