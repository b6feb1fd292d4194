package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/deepchat-ai/deepchat/internal/accounts"
	"github.com/deepchat-ai/deepchat/internal/auth"
	"github.com/deepchat-ai/deepchat/internal/server"
	"github.com/deepchat-ai/deepchat/internal/verification"
)

const (
	testSecret = "test-secret"
	testUserID = "0b5e6f3a-8d52-4c1e-9d4b-2f0a7c1e5d10"
)

func newTestEcho(t *testing.T, handlers ...server.Handler) *echo.Echo {
	t.Helper()
	return server.NewServer(nil, server.Options{JWTSecret: testSecret}, handlers...).Echo()
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := auth.GenerateToken(userID, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, e *echo.Echo, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// fakeAccounts keeps users keyed by id and email.
type fakeAccounts struct {
	mu       sync.Mutex
	users    map[string]accounts.User
	password map[string]string
	reset    map[string]string
	nextID   int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		users:    map[string]accounts.User{},
		password: map[string]string{},
		reset:    map[string]string{},
	}
}

func (f *fakeAccounts) add(id, email, password, model string) accounts.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := accounts.User{ID: id, Username: email, Email: email, Settings: accounts.Settings{AIModel: model}}
	f.users[id] = u
	f.password[id] = password
	return u
}

func (f *fakeAccounts) byEmail(email string) (accounts.User, bool) {
	for _, u := range f.users {
		if u.Email == email {
			return u, true
		}
	}
	return accounts.User{}, false
}

func (f *fakeAccounts) Get(_ context.Context, userID string) (accounts.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return accounts.User{}, accounts.ErrNotFound
	}
	return u, nil
}

func (f *fakeAccounts) EmailExists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byEmail(email)
	return ok, nil
}

func (f *fakeAccounts) Register(_ context.Context, username, email, password string) (accounts.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail(email); ok {
		return accounts.User{}, accounts.ErrEmailTaken
	}
	f.nextID++
	u := accounts.User{ID: fmt.Sprintf("00000000-0000-4000-8000-%012d", f.nextID), Username: username, Email: email}
	f.users[u.ID] = u
	f.password[u.ID] = password
	return u, nil
}

func (f *fakeAccounts) Authenticate(_ context.Context, email, password string) (accounts.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail(email)
	if !ok || f.password[u.ID] != password {
		return accounts.User{}, accounts.ErrInvalidCredentials
	}
	return u, nil
}

func (f *fakeAccounts) LoginOrCreate(ctx context.Context, email string) (accounts.User, bool, error) {
	f.mu.Lock()
	u, ok := f.byEmail(email)
	f.mu.Unlock()
	if ok {
		return u, false, nil
	}
	u, err := f.Register(ctx, "new-user", email, "")
	return u, true, err
}

func (f *fakeAccounts) IssueResetToken(_ context.Context, email string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail(email)
	if !ok {
		return "", accounts.ErrNotFound
	}
	token := "reset-" + u.ID
	f.reset[token] = u.ID
	return token, nil
}

func (f *fakeAccounts) ResetPassword(_ context.Context, token, password string) (accounts.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.reset[token]
	if !ok {
		return accounts.User{}, accounts.ErrInvalidResetToken
	}
	delete(f.reset, token)
	f.password[id] = password
	return f.users[id], nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, userID string, req accounts.UpdateProfileRequest) (accounts.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return accounts.User{}, accounts.ErrNotFound
	}
	if req.Username != nil {
		u.Username = *req.Username
	}
	f.users[userID] = u
	return u, nil
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, userID, current, next string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.password[userID] != current {
		return accounts.ErrInvalidPassword
	}
	f.password[userID] = next
	return nil
}

func (f *fakeAccounts) UpdateEmail(_ context.Context, userID, newEmail string) (accounts.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail(newEmail); ok {
		return accounts.User{}, accounts.ErrEmailTaken
	}
	u := f.users[userID]
	u.Email = newEmail
	f.users[userID] = u
	return u, nil
}

func (f *fakeAccounts) SetModel(_ context.Context, userID, modelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return accounts.ErrNotFound
	}
	u.Settings.AIModel = modelID
	f.users[userID] = u
	return nil
}

// fakeCodes accepts "123456" for every address and purpose.
type fakeCodes struct {
	mu       sync.Mutex
	sendErr  error
	guessErr error
	sent     []verification.Purpose
	consumed []verification.Purpose
}

func (f *fakeCodes) Send(_ context.Context, _ string, purpose verification.Purpose) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, purpose)
	return nil
}

func (f *fakeCodes) Verify(_ context.Context, _ string, _ verification.Purpose, code string) error {
	if code != "123456" {
		if f.guessErr != nil {
			return f.guessErr
		}
		return verification.ErrInvalidCode
	}
	return nil
}

func (f *fakeCodes) Consume(_ context.Context, _ string, purpose verification.Purpose) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumed = append(f.consumed, purpose)
	return nil
}

func (f *fakeCodes) CodeTTL() time.Duration { return 10 * time.Minute }
