package email

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepchat-ai/deepchat/internal/verification"
)

type fakeAdapter struct {
	mu      sync.Mutex
	sent    []OutboundEmail
	configs []map[string]any
	sendErr error
}

func (f *fakeAdapter) Type() ProviderName { return "fake" }

func (f *fakeAdapter) Meta() ProviderMeta {
	return ProviderMeta{Provider: "fake", DisplayName: "Fake"}
}

func (f *fakeAdapter) NormalizeConfig(raw map[string]any) (map[string]any, error) {
	if _, ok := raw["token"]; !ok {
		return nil, errors.New("token is required")
	}
	raw["normalized"] = true
	return raw, nil
}

func (f *fakeAdapter) Send(_ context.Context, config map[string]any, msg OutboundEmail) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, msg)
	f.configs = append(f.configs, config)
	return "msg-1", nil
}

type receiveOnly struct{}

func (receiveOnly) Type() ProviderName { return "inbox" }
func (receiveOnly) Meta() ProviderMeta { return ProviderMeta{Provider: "inbox"} }
func (receiveOnly) NormalizeConfig(raw map[string]any) (map[string]any, error) {
	return raw, nil
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(&fakeAdapter{}, receiveOnly{})

	_, err := reg.Get("missing")
	require.Error(t, err)

	_, err = reg.GetSender("inbox")
	assert.ErrorContains(t, err, "does not support sending")

	s, err := reg.GetSender("fake")
	require.NoError(t, err)
	assert.NotNil(t, s)

	metas := reg.ListMeta()
	require.Len(t, metas, 2)
	assert.Equal(t, "fake", metas[0].Provider)
	assert.Equal(t, "inbox", metas[1].Provider)
}

func TestNewMailer_Provider(t *testing.T) {
	t.Parallel()
	adapter := &fakeAdapter{}
	reg := NewRegistry(adapter)

	_, err := NewMailer(nil, reg, MailerConfig{Provider: "nope"})
	require.Error(t, err)

	_, err = NewMailer(nil, reg, MailerConfig{Provider: "fake", Settings: map[string]any{}})
	assert.ErrorContains(t, err, "token is required")

	settings := map[string]any{"token": "t"}
	m, err := NewMailer(nil, reg, MailerConfig{Provider: " FAKE ", From: "DeepChat <no-reply@deepchat.dev>", Settings: settings, CodeTTL: 10 * time.Minute})
	require.NoError(t, err)
	_, copied := settings["normalized"]
	assert.False(t, copied, "configured settings must not be mutated")

	id, err := m.Send(context.Background(), OutboundEmail{To: []string{"a@example.com"}, Subject: "hi", Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	require.Len(t, adapter.sent, 1)
	assert.Equal(t, "DeepChat <no-reply@deepchat.dev>", adapter.sent[0].From)
	assert.Equal(t, true, adapter.configs[0]["normalized"])

	require.NoError(t, m.SendCode(context.Background(), "b@example.com", verification.PurposeLogin, "123456"))
	require.Len(t, adapter.sent, 2)
	assert.Equal(t, []string{"b@example.com"}, adapter.sent[1].To)
	assert.Equal(t, "登录验证码", adapter.sent[1].Subject)
	assert.Contains(t, adapter.sent[1].Text, "123456")
}

func TestMailer_SendError(t *testing.T) {
	t.Parallel()
	adapter := &fakeAdapter{sendErr: errors.New("smtp down")}
	m, err := NewMailer(nil, NewRegistry(adapter), MailerConfig{Provider: "fake", Settings: map[string]any{"token": "t"}})
	require.NoError(t, err)

	err = m.SendCode(context.Background(), "a@example.com", verification.PurposeRegister, "123456")
	assert.ErrorContains(t, err, "smtp down")
}

func TestMailer_LogOnly(t *testing.T) {
	t.Parallel()
	m, err := NewMailer(nil, NewRegistry(), MailerConfig{})
	require.NoError(t, err)

	id, err := m.Send(context.Background(), OutboundEmail{To: []string{"a@example.com"}})
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.NoError(t, m.SendCode(context.Background(), "a@example.com", verification.PurposeRegister, "123456"))
}

func TestCodeMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		purpose verification.Purpose
		subject string
		action  string
	}{
		{verification.PurposeRegister, "注册验证码", "您正在注册账号"},
		{verification.PurposePasswordReset, "重置密码验证码", "您正在重置密码"},
		{verification.PurposeEmailChange, "修改邮箱验证码", "您正在修改邮箱"},
		{verification.PurposeLogin, "登录验证码", "您正在使用验证码登录"},
	}
	for _, tt := range tests {
		t.Run(string(tt.purpose), func(t *testing.T) {
			t.Parallel()
			msg, err := CodeMessage("a@example.com", tt.purpose, "654321", 10*time.Minute)
			require.NoError(t, err)
			assert.Equal(t, tt.subject, msg.Subject)
			assert.True(t, msg.HTML)
			assert.True(t, strings.HasPrefix(msg.Text, tt.action))
			assert.Contains(t, msg.Text, "有效期10分钟")
			assert.Contains(t, msg.Body, "654321")
			assert.Equal(t, []string{"a@example.com"}, msg.To)
		})
	}
}

func TestCodeMessage_UnknownPurposeAndEscaping(t *testing.T) {
	t.Parallel()
	msg, err := CodeMessage("a@example.com", "other", "<b>1</b>", 0)
	require.NoError(t, err)
	assert.Equal(t, "验证码", msg.Subject)
	assert.Contains(t, msg.Text, "有效期10分钟")
	assert.NotContains(t, msg.Body, "<b>1</b>")
	assert.Contains(t, msg.Body, "&lt;b&gt;1&lt;/b&gt;")
}
