package conversation

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepchat-ai/deepchat/internal/chat"
	"github.com/deepchat-ai/deepchat/internal/db/sqlc"
)

type fakeQueries struct {
	mu       sync.Mutex
	convs    map[[16]byte]sqlc.Conversation
	messages []sqlc.ConversationMessage
	clock    time.Time
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{
		convs: map[[16]byte]sqlc.Conversation{},
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeQueries) tick() pgtype.Timestamptz {
	f.clock = f.clock.Add(time.Second)
	return pgtype.Timestamptz{Time: f.clock, Valid: true}
}

func newID() pgtype.UUID { return pgtype.UUID{Bytes: uuid.New(), Valid: true} }

func (f *fakeQueries) CreateConversation(_ context.Context, arg sqlc.CreateConversationParams) (sqlc.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	c := sqlc.Conversation{ID: newID(), UserID: arg.UserID, Title: arg.Title, CreatedAt: now, UpdatedAt: now}
	f.convs[c.ID.Bytes] = c
	return c, nil
}

func (f *fakeQueries) GetConversation(_ context.Context, arg sqlc.GetConversationParams) (sqlc.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[arg.ID.Bytes]
	if !ok || c.UserID != arg.UserID {
		return sqlc.Conversation{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeQueries) ListConversationsByUser(_ context.Context, userID pgtype.UUID) ([]sqlc.ListConversationsByUserRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []sqlc.ListConversationsByUserRow
	for _, c := range f.convs {
		if c.UserID != userID {
			continue
		}
		var count int64
		for _, m := range f.messages {
			if m.ConversationID == c.ID {
				count++
			}
		}
		rows = append(rows, sqlc.ListConversationsByUserRow{
			ID: c.ID, UserID: c.UserID, Title: c.Title, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt, MessageCount: count,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UpdatedAt.Time.After(rows[j].UpdatedAt.Time) })
	return rows, nil
}

func (f *fakeQueries) UpdateConversationTitle(_ context.Context, arg sqlc.UpdateConversationTitleParams) (sqlc.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[arg.ID.Bytes]
	if !ok || c.UserID != arg.UserID {
		return sqlc.Conversation{}, pgx.ErrNoRows
	}
	c.Title = arg.Title
	c.UpdatedAt = f.tick()
	f.convs[c.ID.Bytes] = c
	return c, nil
}

func (f *fakeQueries) TouchConversation(_ context.Context, id pgtype.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.convs[id.Bytes]; ok {
		c.UpdatedAt = f.tick()
		f.convs[id.Bytes] = c
	}
	return nil
}

func (f *fakeQueries) DeleteConversation(_ context.Context, arg sqlc.DeleteConversationParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[arg.ID.Bytes]
	if !ok || c.UserID != arg.UserID {
		return 0, nil
	}
	delete(f.convs, arg.ID.Bytes)
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.ConversationID != arg.ID {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return 1, nil
}

func (f *fakeQueries) CreateConversationMessage(_ context.Context, arg sqlc.CreateConversationMessageParams) (sqlc.ConversationMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := sqlc.ConversationMessage{
		ID:             newID(),
		ConversationID: arg.ConversationID,
		Role:           arg.Role,
		Content:        arg.Content,
		HasImage:       arg.HasImage,
		HasReasoning:   arg.HasReasoning,
		Reasoning:      arg.Reasoning,
		CreatedAt:      arg.CreatedAt,
	}
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeQueries) ListConversationMessages(_ context.Context, conversationID pgtype.UUID) ([]sqlc.ConversationMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sqlc.ConversationMessage
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeQueries) ListRecentConversationMessages(ctx context.Context, arg sqlc.ListRecentConversationMessagesParams) ([]sqlc.ConversationMessage, error) {
	all, _ := f.ListConversationMessages(ctx, arg.ConversationID)
	if len(all) > int(arg.Limit) {
		all = all[len(all)-int(arg.Limit):]
	}
	return all, nil
}

func TestCreateAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(nil, newFakeQueries())
	user := uuid.NewString()

	first, err := svc.Create(ctx, user, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, first.Title)

	second, err := svc.Create(ctx, user, "  旅行计划  ")
	require.NoError(t, err)
	assert.Equal(t, "旅行计划", second.Title)

	_, err = svc.Create(ctx, user, strings.Repeat("长", MaxTitleLength+1))
	assert.ErrorIs(t, err, ErrInvalidTitle)

	_, err = svc.Create(ctx, uuid.NewString(), "someone else")
	require.NoError(t, err)

	_, err = svc.AppendMessage(ctx, first.ID, chat.NewUserMessage("hi", "", time.Now()))
	require.NoError(t, err)

	items, err := svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID, "touched conversation sorts first")
	assert.EqualValues(t, 1, items[0].MessageCount)
	assert.EqualValues(t, 0, items[1].MessageCount)
}

func TestOwnershipScoping(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(nil, newFakeQueries())
	owner := uuid.NewString()
	other := uuid.NewString()

	conv, err := svc.Create(ctx, owner, "private")
	require.NoError(t, err)

	_, err = svc.Get(ctx, other, conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Rename(ctx, other, conv.ID, "mine now")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, other, conv.ID), ErrNotFound)
	_, err = svc.Require(ctx, owner, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := svc.Require(ctx, owner, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "private", got.Title)
}

func TestRename(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(nil, newFakeQueries())
	user := uuid.NewString()

	conv, err := svc.Create(ctx, user, "old")
	require.NoError(t, err)

	renamed, err := svc.Rename(ctx, user, conv.ID, "new")
	require.NoError(t, err)
	assert.Equal(t, "new", renamed.Title)

	reset, err := svc.Rename(ctx, user, conv.ID, "   ")
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, reset.Title)

	_, err = svc.Rename(ctx, user, conv.ID, strings.Repeat("x", 101))
	assert.ErrorIs(t, err, ErrInvalidTitle)
}

func TestGetWithMessagesAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(nil, newFakeQueries())
	user := uuid.NewString()

	conv, err := svc.Create(ctx, user, "")
	require.NoError(t, err)

	now := time.Now()
	_, err = svc.AppendMessage(ctx, conv.ID, chat.NewUserMessage("看这张图", "https://example.com/a.png", now))
	require.NoError(t, err)
	_, err = svc.AppendMessage(ctx, conv.ID, chat.ChatMessage{
		Role:         chat.RoleAssistant,
		Content:      chat.NewTextContent("一只猫"),
		HasReasoning: true,
		Reasoning:    "观察",
		Timestamp:    now.Add(time.Second),
	})
	require.NoError(t, err)

	full, err := svc.Get(ctx, user, conv.ID)
	require.NoError(t, err)
	require.Len(t, full.Messages, 2)
	assert.EqualValues(t, 2, full.MessageCount)

	userTurn := full.Messages[0]
	assert.Equal(t, chat.RoleUser, userTurn.Role)
	assert.True(t, userTurn.HasImage)
	require.True(t, userTurn.Content.IsMultipart())
	assert.Equal(t, "https://example.com/a.png", userTurn.Content.Parts[1].ImageURL.URL)
	assert.NotEmpty(t, userTurn.ID)

	reply := full.Messages[1]
	assert.Equal(t, "一只猫", reply.Content.PlainText())
	assert.Equal(t, "观察", reply.Reasoning)

	require.NoError(t, svc.Delete(ctx, user, conv.ID))
	_, err = svc.Get(ctx, user, conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(nil, newFakeQueries())
	user := uuid.NewString()

	conv, err := svc.Create(ctx, user, "")
	require.NoError(t, err)
	base := time.Now()
	for i := 0; i < 25; i++ {
		_, err := svc.AppendMessage(ctx, conv.ID, chat.NewUserMessage(string(rune('a'+i)), "", base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, conv.ID, 20)
	require.NoError(t, err)
	require.Len(t, history, 20)
	assert.Equal(t, "f", history[0].Content.Text)
	assert.Equal(t, "y", history[19].Content.Text)

	_, err = svc.History(ctx, "bad", 20)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeriveTitle(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"", DefaultTitle},
		{"  你好  ", "你好"},
		{strings.Repeat("字", 30), strings.Repeat("字", 30)},
		{strings.Repeat("字", 31), strings.Repeat("字", 30) + "..."},
		{strings.Repeat("a", 45), strings.Repeat("a", 30) + "..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveTitle(tt.in))
	}
}
