package mailgun

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mg "github.com/mailgun/mailgun-go/v5"

	"github.com/deepchat-ai/deepchat/internal/email"
)

const ProviderName email.ProviderName = "mailgun"

// Adapter delivers mail through the Mailgun HTTP API.
type Adapter struct {
	logger *slog.Logger
}

func New(log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{logger: log.With(slog.String("adapter", "mailgun"))}
}

func (a *Adapter) Type() email.ProviderName { return ProviderName }

func (a *Adapter) Meta() email.ProviderMeta {
	return email.ProviderMeta{
		Provider:    string(ProviderName),
		DisplayName: "Mailgun",
		ConfigSchema: email.ConfigSchema{
			Fields: []email.FieldSchema{
				{Key: "domain", Type: "string", Title: "Domain", Required: true, Example: "mg.example.com", Order: 1},
				{Key: "api_key", Type: "secret", Title: "API Key", Required: true, Order: 2},
				{Key: "region", Type: "enum", Title: "Region", Enum: []string{"us", "eu"}, Example: "us", Order: 3},
				{Key: "from", Type: "string", Title: "From", Description: "Defaults to noreply@<domain>", Order: 4},
				{Key: "api_base", Type: "string", Title: "API Base", Description: "Overrides the regional endpoint", Order: 5},
			},
		},
	}
}

func (a *Adapter) NormalizeConfig(raw map[string]any) (map[string]any, error) {
	for _, key := range []string{"domain", "api_key"} {
		if v, _ := raw[key].(string); strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("%s is required", key)
		}
	}
	region, _ := raw["region"].(string)
	switch region {
	case "":
		raw["region"] = "us"
	case "us", "eu":
	default:
		return nil, fmt.Errorf("region must be us or eu")
	}
	return raw, nil
}

func newClient(config map[string]any) *mg.Client {
	apiKey, _ := config["api_key"].(string)
	client := mg.NewMailgun(apiKey)
	if base, _ := config["api_base"].(string); strings.TrimSpace(base) != "" {
		client.SetAPIBase(strings.TrimSpace(base))
		return client
	}
	region, _ := config["region"].(string)
	if region == "eu" {
		client.SetAPIBase(mg.APIBaseEU)
	}
	return client
}

func (a *Adapter) Send(ctx context.Context, config map[string]any, msg email.OutboundEmail) (string, error) {
	client := newClient(config)
	domain, _ := config["domain"].(string)

	from := msg.From
	if from == "" {
		from, _ = config["from"].(string)
	}
	if from == "" {
		from = fmt.Sprintf("noreply@%s", domain)
	}

	text := msg.Body
	if msg.HTML {
		text = msg.Text
	}
	m := mg.NewMessage(domain, from, msg.Subject, text, msg.To...)
	if msg.HTML {
		m.SetHTML(msg.Body)
	}

	resp, err := client.Send(ctx, m)
	if err != nil {
		a.logger.Error("mailgun send failed", slog.String("domain", domain), slog.Any("error", err))
		return "", fmt.Errorf("mailgun send: %w", err)
	}
	return resp.ID, nil
}
