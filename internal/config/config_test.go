package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepchat-ai/deepchat/internal/chat"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")
	t.Setenv(EnvAIAPIKey, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultHTTPAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultAIModel, cfg.AI.DefaultModel)
	assert.Equal(t, DefaultHistoryLimit, cfg.AI.HistoryLimit)
	assert.Equal(t, 24*time.Hour, cfg.Auth.ExpiresIn())
	assert.Equal(t, 10*time.Minute, cfg.Verification.CodeLifetime())
	assert.Equal(t, time.Minute, cfg.Verification.ResendEvery())
	assert.Equal(t, 30*time.Minute, cfg.Verification.ResetTokenLifetime())
	assert.Equal(t, DefaultMaxCodeAttempts, cfg.Verification.MaxAttempts)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")
	t.Setenv(EnvAIAPIKey, "")

	path := writeConfig(t, `
[server]
addr = ":9090"

[auth]
jwt_secret = "file-secret"
jwt_expires_in = "2h"

[email]
provider = "mailgun"
from = "DeepChat <no-reply@deepchat.dev>"

[email.mailgun]
domain = "mg.deepchat.dev"
api_key = "key-1"

[ai]
default_model = "qwen/qwen2.5-vl-72b-instruct:free"
history_limit = 0

[[chat.reasoning_paths]]
provider = "custom"
path = "choices.0.delta.thought"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.ExpiresIn())
	assert.Equal(t, "qwen/qwen2.5-vl-72b-instruct:free", cfg.AI.DefaultModel)
	assert.Equal(t, DefaultHistoryLimit, cfg.AI.HistoryLimit)
	assert.Equal(t, DefaultAIBaseURL, cfg.AI.BaseURL)
	assert.Equal(t, []chat.FieldPath{{Provider: "custom", Path: "choices.0.delta.thought"}}, cfg.Chat.ReasoningPaths)

	provider := cfg.Email.ProviderConfig()
	assert.Equal(t, "mg.deepchat.dev", provider["domain"])
	assert.Equal(t, "DeepChat <no-reply@deepchat.dev>", provider["from"])
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	t.Setenv(EnvJWTSecret, "env-secret")
	t.Setenv(EnvAIAPIKey, "sk-env")

	path := writeConfig(t, "[auth]\njwt_secret = \"file-secret\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "sk-env", cfg.AI.APIKey)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, "[server\naddr=")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/deepchat/config.toml")
	assert.Equal(t, "custom.toml", ResolvePath(" custom.toml "))
	assert.Equal(t, "/etc/deepchat/config.toml", ResolvePath(""))

	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, DefaultConfigPath, ResolvePath(""))
}

func TestDurationFallback(t *testing.T) {
	t.Parallel()

	v := VerificationConfig{CodeTTL: "soon", ResendInterval: "-1s"}
	assert.Equal(t, 10*time.Minute, v.CodeLifetime())
	assert.Equal(t, time.Minute, v.ResendEvery())
	assert.Equal(t, 120*time.Second, AIConfig{}.RequestTimeout())
}

func TestProviderConfig_NoProvider(t *testing.T) {
	t.Parallel()

	cfg := EmailConfig{Generic: map[string]any{"smtp_host": "x"}}
	assert.Empty(t, cfg.ProviderConfig())
}
