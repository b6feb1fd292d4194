// Package llm talks to OpenAI-compatible chat completion endpoints.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/deepchat-ai/deepchat/internal/chat"
	"github.com/deepchat-ai/deepchat/internal/prune"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

type Config struct {
	BaseURL  string
	APIKey   string
	AppTitle string
	Referer  string
	// Timeout bounds non-streaming calls. Streams are bounded by their context.
	Timeout time.Duration
}

// Client issues chat completions. It implements chat.Upstream.
type Client struct {
	logger          *slog.Logger
	baseURL         string
	apiKey          string
	appTitle        string
	referer         string
	httpClient      *http.Client
	streamingClient *http.Client
}

func NewClient(log *slog.Logger, cfg Config) *Client {
	if log == nil {
		log = slog.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		logger:          log.With(slog.String("service", "llm")),
		baseURL:         baseURL,
		apiKey:          strings.TrimSpace(cfg.APIKey),
		appTitle:        strings.TrimSpace(cfg.AppTitle),
		referer:         strings.TrimSpace(cfg.Referer),
		httpClient:      &http.Client{Timeout: timeout},
		streamingClient: &http.Client{},
	}
}

type completionRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type wireMessage struct {
	Role    chat.Role    `json:"role"`
	Content chat.Content `json:"content"`
}

func toWire(messages []chat.ChatMessage) []wireMessage {
	out := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, wireMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func (c *Client) newRequest(ctx context.Context, req chat.Request, stream bool) (*http.Request, error) {
	body, err := json.Marshal(completionRequest{
		Model:    req.Model,
		Messages: toWire(req.Messages),
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.appTitle != "" {
		httpReq.Header.Set("X-Title", c.appTitle)
	}
	if c.referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.referer)
	}
	return httpReq, nil
}

// OpenStream starts a streaming completion. The returned stream owns the
// response body until Close.
func (c *Client) OpenStream(ctx context.Context, req chat.Request) (chat.ChunkStream, error) {
	httpReq, err := c.newRequest(ctx, req, true)
	if err != nil {
		return nil, err
	}
	resp, err := c.streamingClient.Do(httpReq)
	if err != nil {
		c.logger.Error("upstream stream connect failed", slog.String("model", req.Model), slog.Any("error", err))
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		apiErr := readAPIError(resp)
		c.logger.Error("upstream stream rejected", slog.String("model", req.Model), slog.Int("status", resp.StatusCode), slog.Any("error", apiErr))
		return nil, apiErr
	}
	return newChunkStream(resp.Body), nil
}

// Complete performs a non-streaming completion and returns the decoded body.
func (c *Client) Complete(ctx context.Context, req chat.Request) (chat.RawChunk, error) {
	httpReq, err := c.newRequest(ctx, req, false)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("upstream completion failed", slog.String("model", req.Model), slog.Any("error", err))
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readAPIError(resp)
	}
	var body chat.RawChunk
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}
	if perr := providerError(body); perr != nil {
		return nil, perr
	}
	return body, nil
}

// APIError is a non-2xx reply or an in-band error payload from the provider.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
	}
	return "provider error: " + e.Message
}

func readAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	apiErr := &APIError{Status: resp.StatusCode, Message: prune.Text(strings.TrimSpace(string(raw)), prune.ErrorBody)}
	var body chat.RawChunk
	if err := json.Unmarshal(raw, &body); err == nil {
		if perr := providerError(body); perr != nil {
			apiErr.Code = perr.Code
			apiErr.Message = perr.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// providerError reads {"error":{"message":..,"code":..}} or {"error":"..."}.
func providerError(body chat.RawChunk) *APIError {
	raw, ok := body["error"]
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case string:
		return &APIError{Message: v}
	case map[string]any:
		apiErr := &APIError{}
		apiErr.Message, _ = v["message"].(string)
		switch code := v["code"].(type) {
		case string:
			apiErr.Code = code
		case float64:
			apiErr.Code = fmt.Sprintf("%d", int(code))
		}
		if apiErr.Message == "" {
			apiErr.Message = "unknown error"
		}
		return apiErr
	default:
		return &APIError{Message: fmt.Sprint(v)}
	}
}
