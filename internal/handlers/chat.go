package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/deepchat-ai/deepchat/internal/accounts"
	"github.com/deepchat-ai/deepchat/internal/auth"
	"github.com/deepchat-ai/deepchat/internal/config"
	"github.com/deepchat-ai/deepchat/internal/conversation/flow"
	"github.com/deepchat-ai/deepchat/internal/models"
	"github.com/deepchat-ai/deepchat/internal/sse"
)

type chatRunner interface {
	Send(ctx context.Context, req flow.SendRequest) (flow.SendResult, error)
	Stream(ctx context.Context, req flow.SendRequest, sink flow.Sink) error
	AnalyzeImage(ctx context.Context, req flow.AnalyzeRequest) (string, error)
}

type userModels interface {
	Get(ctx context.Context, userID string) (accounts.User, error)
	SetModel(ctx context.Context, userID, modelID string) error
}

type modelCatalog interface {
	List() []models.Capability
	Multimodal() []string
	Lookup(modelID string) (models.Capability, bool)
	Resolve(modelID string) string
}

type ChatHandler struct {
	runner  chatRunner
	users   userModels
	catalog modelCatalog
	ws      *chatSocket
	logger  *slog.Logger
}

type ModelsResponse struct {
	Current      string              `json:"current"`
	Available    []models.Capability `json:"available"`
	Capabilities ModelCapabilities   `json:"capabilities"`
}

type ModelCapabilities struct {
	Multimodal []string `json:"multimodal"`
}

type SetModelRequest struct {
	Model string `json:"model" validate:"required"`
}

type SetModelResponse struct {
	Message        string `json:"message"`
	Model          string `json:"model"`
	SupportsImages bool   `json:"supportsImages"`
}

type AnalyzeImageResponse struct {
	Analysis string `json:"analysis"`
	Model    string `json:"model"`
}

func NewChatHandler(log *slog.Logger, cfg config.Config, resolver *flow.Resolver, accountService *accounts.Service, catalog *models.Catalog) *ChatHandler {
	return newChatHandler(log, resolver, accountService, catalog, cfg.Server.AllowOrigins)
}

func newChatHandler(log *slog.Logger, runner chatRunner, users userModels, catalog modelCatalog, allowOrigins []string) *ChatHandler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("handler", "chat"))
	return &ChatHandler{
		runner:  runner,
		users:   users,
		catalog: catalog,
		ws:      newChatSocket(log, allowOrigins),
		logger:  log,
	}
}

func (h *ChatHandler) Register(e *echo.Echo) {
	group := e.Group("/api/chat")
	group.GET("/models", h.ListModels)
	group.POST("/models/set", h.SetModel)
	group.POST("/send", h.Send)
	group.POST("/send-stream", h.SendStream)
	group.POST("/analyze-image", h.AnalyzeImage)
	group.GET("/ws", h.StreamSocket)
}

// preferredModel resolves the user's stored model against the catalog.
func (h *ChatHandler) preferredModel(ctx context.Context, userID string) (string, error) {
	user, err := h.users.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return h.catalog.Resolve(user.Settings.AIModel), nil
}

// ListModels godoc
// @Summary List models and the current selection
// @Tags chat
// @Success 200 {object} ModelsResponse
// @Router /api/chat/models [get]
func (h *ChatHandler) ListModels(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	current, err := h.preferredModel(c.Request().Context(), userID)
	if err != nil {
		return accountError(err)
	}
	return c.JSON(http.StatusOK, ModelsResponse{
		Current:      current,
		Available:    h.catalog.List(),
		Capabilities: ModelCapabilities{Multimodal: h.catalog.Multimodal()},
	})
}

// SetModel godoc
// @Summary Select the model used for new turns
// @Tags chat
// @Param payload body SetModelRequest true "Model id"
// @Success 200 {object} SetModelResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/chat/models/set [post]
func (h *ChatHandler) SetModel(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req SetModelRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	capability, ok := h.catalog.Lookup(strings.TrimSpace(req.Model))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "不支持的模型")
	}
	if err := h.users.SetModel(c.Request().Context(), userID, capability.ModelID); err != nil {
		return accountError(err)
	}
	return c.JSON(http.StatusOK, SetModelResponse{
		Message:        "模型设置成功",
		Model:          capability.ModelID,
		SupportsImages: capability.SupportsImages,
	})
}

func (h *ChatHandler) bindSend(c echo.Context) (flow.SendRequest, error) {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return flow.SendRequest{}, err
	}
	var req flow.SendRequest
	if err := bindAndValidate(c, &req); err != nil {
		return flow.SendRequest{}, err
	}
	if strings.TrimSpace(req.Message) == "" && strings.TrimSpace(req.ImageURL) == "" {
		return flow.SendRequest{}, chatError(flow.ErrEmptyMessage)
	}
	model, err := h.preferredModel(c.Request().Context(), userID)
	if err != nil {
		return flow.SendRequest{}, accountError(err)
	}
	req.UserID = userID
	req.Model = model
	return req, nil
}

// Send godoc
// @Summary Send a message and wait for the full reply
// @Tags chat
// @Param payload body flow.SendRequest true "Message"
// @Success 200 {object} flow.SendResult
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/chat/send [post]
func (h *ChatHandler) Send(c echo.Context) error {
	req, err := h.bindSend(c)
	if err != nil {
		return err
	}
	result, err := h.runner.Send(c.Request().Context(), req)
	if err != nil {
		return chatError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// SendStream godoc
// @Summary Send a message and stream the reply
// @Description Emits start, reasoning, content and one final complete or error event.
// @Tags chat
// @Param payload body flow.SendRequest true "Message"
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Failure 400 {object} ErrorResponse
// @Router /api/chat/send-stream [post]
func (h *ChatHandler) SendStream(c echo.Context) error {
	req, err := h.bindSend(c)
	if err != nil {
		return err
	}
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	if err := h.runner.Stream(c.Request().Context(), req, sse.NewWriter(res)); err != nil {
		h.logger.Debug("chat stream ended with error", slog.String("user_id", req.UserID), slog.Any("error", err))
	}
	return nil
}

// AnalyzeImage godoc
// @Summary Describe an image
// @Tags chat
// @Param payload body flow.AnalyzeRequest true "Image"
// @Success 200 {object} AnalyzeImageResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/chat/analyze-image [post]
func (h *ChatHandler) AnalyzeImage(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req flow.AnalyzeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	model, err := h.preferredModel(ctx, userID)
	if err != nil {
		return accountError(err)
	}
	req.Model = model
	analysis, err := h.runner.AnalyzeImage(ctx, req)
	if err != nil {
		return chatError(err)
	}
	return c.JSON(http.StatusOK, AnalyzeImageResponse{Analysis: analysis, Model: model})
}
