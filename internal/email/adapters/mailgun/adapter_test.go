package mailgun

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepchat-ai/deepchat/internal/email"
)

func TestNormalizeConfig(t *testing.T) {
	t.Parallel()
	a := New(nil)

	_, err := a.NormalizeConfig(map[string]any{"domain": "mg.example.com"})
	assert.ErrorContains(t, err, "api_key is required")

	_, err = a.NormalizeConfig(map[string]any{"domain": "d", "api_key": "k", "region": "ap"})
	require.Error(t, err)

	cfg, err := a.NormalizeConfig(map[string]any{"domain": "d", "api_key": "k"})
	require.NoError(t, err)
	assert.Equal(t, "us", cfg["region"])
}

func TestSend(t *testing.T) {
	t.Parallel()
	var (
		mu   sync.Mutex
		form map[string][]string
		path string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		mu.Lock()
		path = r.URL.Path
		if r.MultipartForm != nil {
			form = r.MultipartForm.Value
		} else {
			form = r.PostForm
		}
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"<20260101.1@mg.example.com>","message":"Queued. Thank you."}`))
	}))
	defer srv.Close()

	a := New(nil)
	cfg := map[string]any{"domain": "mg.example.com", "api_key": "key-1", "region": "us", "api_base": srv.URL}
	id, err := a.Send(context.Background(), cfg, email.OutboundEmail{
		To:      []string{"a@example.com"},
		Subject: "登录验证码",
		Body:    "<p>123456</p>",
		Text:    "123456",
		HTML:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "<20260101.1@mg.example.com>", id)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, path, "mg.example.com/messages")
	assert.Equal(t, []string{"noreply@mg.example.com"}, form["from"])
	assert.Equal(t, []string{"123456"}, form["text"])
	assert.Equal(t, []string{"<p>123456</p>"}, form["html"])
}
