package accounts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/deepchat-ai/deepchat/internal/db"
	"github.com/deepchat-ai/deepchat/internal/db/sqlc"
)

// fakeQueries keeps users in memory.
type fakeQueries struct {
	mu     sync.Mutex
	users  map[[16]byte]sqlc.User
	logins int
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{users: map[[16]byte]sqlc.User{}}
}

func (f *fakeQueries) find(match func(sqlc.User) bool) (sqlc.User, error) {
	for _, u := range f.users {
		if match(u) {
			return u, nil
		}
	}
	return sqlc.User{}, pgx.ErrNoRows
}

func (f *fakeQueries) CreateUser(_ context.Context, arg sqlc.CreateUserParams) (sqlc.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true}
	u := sqlc.User{
		ID:            pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Username:      arg.Username,
		Email:         arg.Email,
		PasswordHash:  arg.PasswordHash,
		Avatar:        DefaultAvatar,
		IsVerified:    arg.IsVerified,
		Theme:         DefaultTheme,
		Language:      DefaultLanguage,
		Notifications: true,
		AiModel:       "deepseek/deepseek-chat-v3-0324:free",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.users[u.ID.Bytes] = u
	return u, nil
}

func (f *fakeQueries) GetUserByID(_ context.Context, id pgtype.UUID) (sqlc.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id.Bytes]
	if !ok {
		return sqlc.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeQueries) GetUserByEmail(_ context.Context, email string) (sqlc.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u sqlc.User) bool { return u.Email == email })
}

func (f *fakeQueries) GetUserByUsername(_ context.Context, username string) (sqlc.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u sqlc.User) bool { return u.Username == username })
}

func (f *fakeQueries) GetUserByResetToken(_ context.Context, hash pgtype.Text) (sqlc.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u sqlc.User) bool {
		return u.ResetTokenHash.Valid && u.ResetTokenHash.String == hash.String &&
			u.ResetTokenExpiresAt.Valid && u.ResetTokenExpiresAt.Time.After(time.Now())
	})
}

func (f *fakeQueries) update(id pgtype.UUID, fn func(*sqlc.User)) (sqlc.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id.Bytes]
	if !ok {
		return sqlc.User{}, pgx.ErrNoRows
	}
	fn(&u)
	f.users[id.Bytes] = u
	return u, nil
}

func (f *fakeQueries) UpdateUserLastLogin(_ context.Context, id pgtype.UUID) error {
	_, err := f.update(id, func(u *sqlc.User) {
		f.logins++
		u.LastLoginAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	})
	return err
}

func (f *fakeQueries) UpdateUserProfile(_ context.Context, arg sqlc.UpdateUserProfileParams) (sqlc.User, error) {
	return f.update(arg.ID, func(u *sqlc.User) {
		u.Username = arg.Username
		u.Avatar = arg.Avatar
		u.Theme = arg.Theme
		u.Language = arg.Language
		u.Notifications = arg.Notifications
		u.AiModel = arg.AiModel
	})
}

func (f *fakeQueries) UpdateUserAIModel(_ context.Context, arg sqlc.UpdateUserAIModelParams) error {
	_, err := f.update(arg.ID, func(u *sqlc.User) { u.AiModel = arg.AiModel })
	return err
}

func (f *fakeQueries) UpdateUserPassword(_ context.Context, arg sqlc.UpdateUserPasswordParams) error {
	_, err := f.update(arg.ID, func(u *sqlc.User) { u.PasswordHash = arg.PasswordHash })
	return err
}

func (f *fakeQueries) UpdateUserEmail(_ context.Context, arg sqlc.UpdateUserEmailParams) (sqlc.User, error) {
	return f.update(arg.ID, func(u *sqlc.User) { u.Email = arg.Email; u.IsVerified = true })
}

func (f *fakeQueries) SetUserResetToken(_ context.Context, arg sqlc.SetUserResetTokenParams) error {
	_, err := f.update(arg.ID, func(u *sqlc.User) {
		u.ResetTokenHash = arg.ResetTokenHash
		u.ResetTokenExpiresAt = arg.ResetTokenExpiresAt
	})
	return err
}

func (f *fakeQueries) ResetUserPassword(_ context.Context, arg sqlc.ResetUserPasswordParams) error {
	_, err := f.update(arg.ID, func(u *sqlc.User) {
		u.PasswordHash = arg.PasswordHash
		u.ResetTokenHash = pgtype.Text{}
		u.ResetTokenExpiresAt = pgtype.Timestamptz{}
	})
	return err
}

func (f *fakeQueries) ClearExpiredResetTokens(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, u := range f.users {
		if u.ResetTokenExpiresAt.Valid && !u.ResetTokenExpiresAt.Time.After(time.Now()) {
			u.ResetTokenHash = pgtype.Text{}
			u.ResetTokenExpiresAt = pgtype.Timestamptz{}
			f.users[id] = u
			n++
		}
	}
	return n, nil
}

func newTestService() (*Service, *fakeQueries) {
	q := newFakeQueries()
	svc := NewService(nil, q)
	svc.cost = bcrypt.MinCost
	return svc, q
}

func TestRegisterAndAuthenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, q := newTestService()

	user, err := svc.Register(ctx, " alice ", " Alice@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.IsVerified)
	assert.Equal(t, DefaultAvatar, user.Avatar)
	assert.Equal(t, "light", user.Settings.Theme)

	stored, err := q.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)

	logged, err := svc.Authenticate(ctx, "ALICE@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.NotNil(t, logged.LastLogin)
	assert.Equal(t, 1, q.logins)

	_, err = svc.Authenticate(ctx, "alice@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_Conflicts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice2", "alice@example.com", "secret1")
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Register(ctx, "alice", "other@example.com", "secret1")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, "al", "a@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Register(ctx, strings.Repeat("x", 31), "a@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Register(ctx, "张三丰", "a@example.com", "secret1")
	assert.NoError(t, err, "three runes is long enough")
	_, err = svc.Register(ctx, "bobby", "b@example.com", "12345")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoginOrCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, "carol", "carol@example.com", "secret1")
	require.NoError(t, err)

	existing, created, err := svc.LoginOrCreate(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "carol", existing.Username)

	fresh, created, err := svc.LoginOrCreate(ctx, "carol@other.org")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "carol1", fresh.Username)
	assert.NotNil(t, fresh.LastLogin)

	third, created, err := svc.LoginOrCreate(ctx, "carol@third.org")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "carol2", third.Username)

	short, _, err := svc.LoginOrCreate(ctx, "x@example.com")
	require.NoError(t, err)
	assert.Equal(t, "x__", short.Username)
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	alice, err := svc.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", "bob@example.com", "secret1")
	require.NoError(t, err)

	dark := "dark"
	en := "en-US"
	off := false
	model := "qwen/qwen2.5-vl-72b-instruct:free"
	name := "alicia"
	updated, err := svc.UpdateProfile(ctx, alice.ID, UpdateProfileRequest{
		Username: &name,
		Settings: &SettingsUpdate{Theme: &dark, Language: &en, Notifications: &off, AIModel: &model},
	})
	require.NoError(t, err)
	assert.Equal(t, "alicia", updated.Username)
	assert.Equal(t, Settings{Theme: "dark", Language: "en-US", Notifications: false, AIModel: model}, updated.Settings)

	taken := "bob"
	_, err = svc.UpdateProfile(ctx, alice.ID, UpdateProfileRequest{Username: &taken})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	bad := "sepia"
	_, err = svc.UpdateProfile(ctx, alice.ID, UpdateProfileRequest{Settings: &SettingsUpdate{Theme: &bad}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateProfile(ctx, uuid.NewString(), UpdateProfileRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	user, err := svc.Register(ctx, "dave", "dave@example.com", "secret1")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.UpdatePassword(ctx, user.ID, "nope", "secret2"), ErrInvalidPassword)
	require.NoError(t, svc.UpdatePassword(ctx, user.ID, "secret1", "secret2"))

	_, err = svc.Authenticate(ctx, "dave@example.com", "secret2")
	assert.NoError(t, err)
}

func TestUpdateEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	erin, err := svc.Register(ctx, "erin", "erin@example.com", "secret1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "frank", "frank@example.com", "secret1")
	require.NoError(t, err)

	_, err = svc.UpdateEmail(ctx, erin.ID, "frank@example.com")
	assert.ErrorIs(t, err, ErrEmailTaken)

	updated, err := svc.UpdateEmail(ctx, erin.ID, "Erin@New.org")
	require.NoError(t, err)
	assert.Equal(t, "erin@new.org", updated.Email)
}

func TestResetPasswordFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, q := newTestService()

	user, err := svc.Register(ctx, "gina", "gina@example.com", "secret1")
	require.NoError(t, err)

	_, err = svc.IssueResetToken(ctx, "unknown@example.com", time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)

	token, err := svc.IssueResetToken(ctx, "gina@example.com", 30*time.Minute)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	id, _ := db.ParseUUID(user.ID)
	stored, _ := q.GetUserByID(ctx, id)
	assert.Equal(t, hashToken(token), stored.ResetTokenHash.String)
	assert.NotEqual(t, token, stored.ResetTokenHash.String)

	_, err = svc.ResetPassword(ctx, "bogus", "newpass1")
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	reset, err := svc.ResetPassword(ctx, token, "newpass1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, reset.ID)

	_, err = svc.ResetPassword(ctx, token, "newpass2")
	assert.ErrorIs(t, err, ErrInvalidResetToken, "tokens are single use")

	_, err = svc.Authenticate(ctx, "gina@example.com", "newpass1")
	assert.NoError(t, err)
}

func TestResetToken_Expired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, "hank", "hank@example.com", "secret1")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := svc.IssueResetToken(ctx, "hank@example.com", 30*time.Minute)
	require.NoError(t, err)

	_, err = svc.ResetPassword(ctx, token, "newpass1")
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	n, err := svc.PurgeExpiredResetTokens(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSetModel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	user, err := svc.Register(ctx, "ivy", "ivy@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, svc.SetModel(ctx, user.ID, "google/gemini-2.0-flash-exp:free"))

	got, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "google/gemini-2.0-flash-exp:free", got.Settings.AIModel)

	assert.True(t, errors.Is(svc.SetModel(ctx, "not-a-uuid", "x"), ErrNotFound))
}
