package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/deepchat-ai/deepchat/internal/auth"
	"github.com/deepchat-ai/deepchat/internal/conversation/flow"
)

const (
	wsMaxMessageSize = 1 << 20
	wsWriteTimeout   = 10 * time.Second
)

type chatSocket struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func newChatSocket(log *slog.Logger, allowOrigins []string) *chatSocket {
	return &chatSocket{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowOrigins),
		},
		logger: log,
	}
}

// originChecker admits browser upgrades from the configured CORS origins.
// Requests without an Origin header come from non-browser clients and are
// admitted; the bearer token still guards them. With no configured origins
// only same-origin upgrades pass.
func originChecker(allowOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowOrigins))
	for _, origin := range allowOrigins {
		allowed[strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))] = struct{}{}
	}
	if _, ok := allowed["*"]; ok {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get(echo.HeaderOrigin)
		if origin == "" {
			return true
		}
		if _, ok := allowed[strings.ToLower(origin)]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

// wsFrame is one event on the socket.
type wsFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// wsSink writes events as JSON frames. Writes are serialized because
// gorilla connections allow only one concurrent writer.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(event string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(wsFrame{Event: event, Data: payload})
}

// StreamSocket godoc
// @Summary Stream chat turns over a websocket
// @Description Each text frame is a send request. Replies use the same events as send-stream, framed as {event, data}. Pass the bearer token as the token query parameter.
// @Tags chat
// @Param token query string true "Bearer token"
// @Success 101 {string} string "switching protocols"
// @Router /api/chat/ws [get]
func (h *ChatHandler) StreamSocket(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	conn, err := h.ws.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return nil
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageSize)

	ctx := c.Request().Context()
	sink := &wsSink{conn: conn}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", slog.Any("error", err))
			}
			return nil
		}
		if err := h.streamTurn(ctx, userID, data, sink); err != nil {
			h.logger.Debug("websocket turn ended with error", slog.String("user_id", userID), slog.Any("error", err))
		}
	}
}

// streamTurn runs one turn. Problems with the request itself are reported
// as error events and keep the socket open.
func (h *ChatHandler) streamTurn(ctx context.Context, userID string, data []byte, sink flow.Sink) error {
	var req flow.SendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return sink.Send(flow.EventError, flow.ErrorEvent{Message: "请求格式错误"})
	}
	model, err := h.preferredModel(ctx, userID)
	if err != nil {
		return sink.Send(flow.EventError, flow.ErrorEvent{Message: messageServerError})
	}
	req.UserID = userID
	req.Model = model
	return h.runner.Stream(ctx, req, sink)
}
