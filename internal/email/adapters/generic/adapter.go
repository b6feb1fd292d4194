package generic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mail "github.com/wneessen/go-mail"

	"github.com/deepchat-ai/deepchat/internal/email"
)

const ProviderName email.ProviderName = "generic"

// Adapter delivers mail through any SMTP server.
type Adapter struct {
	logger *slog.Logger
}

func New(log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{logger: log.With(slog.String("adapter", "generic"))}
}

func (a *Adapter) Type() email.ProviderName { return ProviderName }

func (a *Adapter) Meta() email.ProviderMeta {
	return email.ProviderMeta{
		Provider:    string(ProviderName),
		DisplayName: "Generic (SMTP)",
		ConfigSchema: email.ConfigSchema{
			Fields: []email.FieldSchema{
				{Key: "username", Type: "string", Title: "Username", Required: true, Example: "user@qq.com", Order: 1},
				{Key: "password", Type: "secret", Title: "Password", Description: "SMTP password or authorization code", Required: true, Order: 2},
				{Key: "smtp_host", Type: "string", Title: "SMTP Host", Required: true, Example: "smtp.qq.com", Order: 3},
				{Key: "smtp_port", Type: "number", Title: "SMTP Port", Example: 587, Order: 4},
				{Key: "smtp_security", Type: "enum", Title: "SMTP Security", Enum: []string{"tls", "starttls", "none"}, Example: "starttls", Order: 5},
				{Key: "from", Type: "string", Title: "From", Description: "Defaults to the username", Order: 6},
			},
		},
	}
}

func (a *Adapter) NormalizeConfig(raw map[string]any) (map[string]any, error) {
	for _, key := range []string{"smtp_host", "username", "password"} {
		if v, _ := raw[key].(string); strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("%s is required", key)
		}
	}
	if _, ok := raw["smtp_port"]; !ok {
		raw["smtp_port"] = float64(587)
	}
	security, _ := raw["smtp_security"].(string)
	switch security {
	case "":
		raw["smtp_security"] = "starttls"
	case "tls", "starttls", "none":
	default:
		return nil, fmt.Errorf("smtp_security must be tls, starttls or none")
	}
	return raw, nil
}

func (a *Adapter) buildMessage(config map[string]any, msg email.OutboundEmail) (*mail.Msg, error) {
	from := msg.From
	if from == "" {
		from, _ = config["from"].(string)
	}
	if from == "" {
		from, _ = config["username"].(string)
	}

	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	m.Subject(msg.Subject)
	switch {
	case msg.HTML && msg.Text != "":
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(mail.TypeTextHTML, msg.Body)
	case msg.HTML:
		m.SetBodyString(mail.TypeTextHTML, msg.Body)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.Body)
	}
	m.SetMessageID()
	return m, nil
}

func (a *Adapter) Send(ctx context.Context, config map[string]any, msg email.OutboundEmail) (string, error) {
	host, _ := config["smtp_host"].(string)
	port := intVal(config["smtp_port"], 587)
	username, _ := config["username"].(string)
	password, _ := config["password"].(string)
	smtpSecurity, _ := config["smtp_security"].(string)

	m, err := a.buildMessage(config, msg)
	if err != nil {
		return "", err
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(username),
		mail.WithPassword(password),
	}
	switch smtpSecurity {
	case "tls":
		opts = append(opts, mail.WithSSLPort(false), mail.WithTLSPolicy(mail.TLSMandatory))
	case "starttls":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return "", fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		a.logger.Error("smtp send failed", slog.String("host", host), slog.Any("error", err))
		return "", fmt.Errorf("send email: %w", err)
	}

	return m.GetMessageID(), nil
}

func intVal(v any, fallback int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return fallback
	}
}
