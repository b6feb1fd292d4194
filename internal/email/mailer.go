package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deepchat-ai/deepchat/internal/verification"
)

// Mailer delivers product mail through one configured provider. With no
// provider it only logs, which suits local development.
type Mailer struct {
	logger   *slog.Logger
	provider ProviderName
	sender   Sender
	config   map[string]any
	from     string
	codeTTL  time.Duration
}

type MailerConfig struct {
	Provider string
	From     string
	Settings map[string]any
	CodeTTL  time.Duration
}

func NewMailer(log *slog.Logger, registry *Registry, cfg MailerConfig) (*Mailer, error) {
	if log == nil {
		log = slog.Default()
	}
	m := &Mailer{
		logger:   log.With(slog.String("service", "mailer")),
		provider: ProviderName(strings.ToLower(strings.TrimSpace(cfg.Provider))),
		from:     strings.TrimSpace(cfg.From),
		codeTTL:  cfg.CodeTTL,
	}
	if m.provider == "" {
		m.logger.Warn("no email provider configured; verification codes are logged only")
		return m, nil
	}
	adapter, err := registry.Get(m.provider)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]any, len(cfg.Settings))
	for k, v := range cfg.Settings {
		raw[k] = v
	}
	normalized, err := adapter.NormalizeConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("email provider %s: %w", m.provider, err)
	}
	sender, err := registry.GetSender(m.provider)
	if err != nil {
		return nil, err
	}
	m.config = normalized
	m.sender = sender
	return m, nil
}

// Send delivers msg, filling From from the configuration when unset.
func (m *Mailer) Send(ctx context.Context, msg OutboundEmail) (string, error) {
	if msg.From == "" {
		msg.From = m.from
	}
	if m.sender == nil {
		m.logger.Info("email not sent: no provider", slog.Any("to", msg.To), slog.String("subject", msg.Subject))
		return "", nil
	}
	id, err := m.sender.Send(ctx, m.config, msg)
	if err != nil {
		return "", err
	}
	m.logger.Debug("email sent", slog.String("provider", string(m.provider)), slog.String("message_id", id))
	return id, nil
}

// SendCode renders and sends a verification code email.
func (m *Mailer) SendCode(ctx context.Context, to string, purpose verification.Purpose, code string) error {
	msg, err := CodeMessage(to, purpose, code, m.codeTTL)
	if err != nil {
		return err
	}
	if m.sender == nil {
		m.logger.Info("verification code", slog.String("to", to), slog.String("purpose", string(purpose)), slog.String("code", code))
		return nil
	}
	_, err = m.Send(ctx, msg)
	return err
}
