package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/deepchat-ai/deepchat/internal/chat"
)

const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultJWTExpiresIn    = "24h"
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "deepchat"
	DefaultPGSSLMode       = "disable"
	DefaultAIBaseURL       = "https://openrouter.ai/api/v1"
	DefaultAIAppTitle      = "DeepChat"
	DefaultAIModel         = "deepseek/deepseek-chat-v3-0324:free"
	DefaultAITimeout       = "120s"
	DefaultHistoryLimit    = 20
	DefaultCodeTTL         = "10m"
	DefaultResendInterval  = "60s"
	DefaultResetTokenTTL   = "30m"
	DefaultCleanupSchedule = "@every 15m"
	DefaultMaxCodeAttempts = 5

	EnvConfigPath = "CONFIG_PATH"
	EnvJWTSecret  = "DEEPCHAT_JWT_SECRET"
	EnvAIAPIKey   = "DEEPCHAT_AI_API_KEY"
)

type Config struct {
	Log          LogConfig          `toml:"log"`
	Server       ServerConfig       `toml:"server"`
	Auth         AuthConfig         `toml:"auth"`
	Postgres     PostgresConfig     `toml:"postgres"`
	Email        EmailConfig        `toml:"email"`
	AI           AIConfig           `toml:"ai"`
	Chat         ChatConfig         `toml:"chat"`
	Verification VerificationConfig `toml:"verification"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
	// AllowOrigins feeds the CORS middleware. Empty disables CORS headers.
	AllowOrigins []string `toml:"allow_origins"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

func (c AuthConfig) ExpiresIn() time.Duration {
	return parseDuration(c.JWTExpiresIn, DefaultJWTExpiresIn)
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// EmailConfig selects the outbound provider. Provider is "generic" (SMTP),
// "mailgun" or empty, in which case codes are only logged.
type EmailConfig struct {
	Provider string         `toml:"provider"`
	From     string         `toml:"from"`
	Generic  map[string]any `toml:"generic"`
	Mailgun  map[string]any `toml:"mailgun"`
}

// ProviderConfig returns a copy of the settings table of the selected provider.
func (c EmailConfig) ProviderConfig() map[string]any {
	var src map[string]any
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case "generic":
		src = c.Generic
	case "mailgun":
		src = c.Mailgun
	}
	out := make(map[string]any, len(src)+1)
	for k, v := range src {
		out[k] = v
	}
	if _, ok := out["from"]; !ok && c.From != "" {
		out["from"] = c.From
	}
	return out
}

type AIConfig struct {
	BaseURL      string `toml:"base_url"`
	APIKey       string `toml:"api_key"`
	AppTitle     string `toml:"app_title"`
	Referer      string `toml:"referer"`
	DefaultModel string `toml:"default_model"`
	ModelsFile   string `toml:"models_file"`
	Timeout      string `toml:"timeout"`
	HistoryLimit int    `toml:"history_limit"`
}

func (c AIConfig) RequestTimeout() time.Duration {
	return parseDuration(c.Timeout, DefaultAITimeout)
}

// ChatConfig overrides the ordered field lookup lists of the chunk classifier.
type ChatConfig struct {
	ReasoningPaths []chat.FieldPath `toml:"reasoning_paths"`
	ContentPaths   []chat.FieldPath `toml:"content_paths"`
}

type VerificationConfig struct {
	CodeTTL         string `toml:"code_ttl"`
	ResendInterval  string `toml:"resend_interval"`
	ResetTokenTTL   string `toml:"reset_token_ttl"`
	CleanupSchedule string `toml:"cleanup_schedule"`
	MaxAttempts     int    `toml:"max_attempts"`
}

func (c VerificationConfig) CodeLifetime() time.Duration {
	return parseDuration(c.CodeTTL, DefaultCodeTTL)
}

func (c VerificationConfig) ResendEvery() time.Duration {
	return parseDuration(c.ResendInterval, DefaultResendInterval)
}

func (c VerificationConfig) ResetTokenLifetime() time.Duration {
	return parseDuration(c.ResetTokenTTL, DefaultResetTokenTTL)
}

func parseDuration(value, fallback string) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}

func defaults() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		AI: AIConfig{
			BaseURL:      DefaultAIBaseURL,
			AppTitle:     DefaultAIAppTitle,
			DefaultModel: DefaultAIModel,
			Timeout:      DefaultAITimeout,
			HistoryLimit: DefaultHistoryLimit,
		},
		Verification: VerificationConfig{
			CodeTTL:         DefaultCodeTTL,
			ResendInterval:  DefaultResendInterval,
			ResetTokenTTL:   DefaultResetTokenTTL,
			CleanupSchedule: DefaultCleanupSchedule,
			MaxAttempts:     DefaultMaxCodeAttempts,
		},
	}
}

// Load reads the TOML file at path on top of the defaults. A missing file is
// not an error. Secrets in the environment override the file.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg)
	if cfg.AI.HistoryLimit <= 0 {
		cfg.AI.HistoryLimit = DefaultHistoryLimit
	}
	return cfg, nil
}

// ResolvePath picks the config path: explicit flag, then CONFIG_PATH, then
// the default.
func ResolvePath(flag string) string {
	if p := strings.TrimSpace(flag); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultConfigPath
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvJWTSecret)); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAIAPIKey)); v != "" {
		cfg.AI.APIKey = v
	}
}
