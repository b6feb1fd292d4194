package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deepchat-ai/deepchat/internal/auth"
	"github.com/deepchat-ai/deepchat/internal/conversation"
)

type conversationStore interface {
	List(ctx context.Context, userID string) ([]conversation.Conversation, error)
	Get(ctx context.Context, userID, id string) (conversation.Conversation, error)
	Create(ctx context.Context, userID, title string) (conversation.Conversation, error)
	Rename(ctx context.Context, userID, id, title string) (conversation.Conversation, error)
	Delete(ctx context.Context, userID, id string) error
}

type ConversationHandler struct {
	service conversationStore
	logger  *slog.Logger
}

func NewConversationHandler(log *slog.Logger, service *conversation.Service) *ConversationHandler {
	return newConversationHandler(log, service)
}

func newConversationHandler(log *slog.Logger, service conversationStore) *ConversationHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ConversationHandler{
		service: service,
		logger:  log.With(slog.String("handler", "conversations")),
	}
}

func (h *ConversationHandler) Register(e *echo.Echo) {
	group := e.Group("/api/conversations")
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Rename)
	group.DELETE("/:id", h.Delete)
}

// List godoc
// @Summary List conversations, most recently active first
// @Tags conversations
// @Success 200 {object} conversation.ListResponse
// @Router /api/conversations [get]
func (h *ConversationHandler) List(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	items, err := h.service.List(c.Request().Context(), userID)
	if err != nil {
		return conversationError(err)
	}
	if items == nil {
		items = []conversation.Conversation{}
	}
	return c.JSON(http.StatusOK, conversation.ListResponse{Count: len(items), Items: items})
}

// Get godoc
// @Summary Get a conversation with its messages
// @Tags conversations
// @Param id path string true "Conversation ID"
// @Success 200 {object} conversation.Conversation
// @Failure 404 {object} ErrorResponse
// @Router /api/conversations/{id} [get]
func (h *ConversationHandler) Get(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	conv, err := h.service.Get(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return conversationError(err)
	}
	return c.JSON(http.StatusOK, conv)
}

// Create godoc
// @Summary Create an empty conversation
// @Tags conversations
// @Param payload body conversation.CreateRequest false "Title"
// @Success 201 {object} conversation.Conversation
// @Failure 400 {object} ErrorResponse
// @Router /api/conversations [post]
func (h *ConversationHandler) Create(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req conversation.CreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	conv, err := h.service.Create(c.Request().Context(), userID, req.Title)
	if err != nil {
		return conversationError(err)
	}
	return c.JSON(http.StatusCreated, conv)
}

// Rename godoc
// @Summary Rename a conversation
// @Description A blank title resets it to the default.
// @Tags conversations
// @Param id path string true "Conversation ID"
// @Param payload body conversation.RenameRequest true "Title"
// @Success 200 {object} conversation.Conversation
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/conversations/{id} [put]
func (h *ConversationHandler) Rename(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req conversation.RenameRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Title == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "标题不能为空")
	}
	conv, err := h.service.Rename(c.Request().Context(), userID, c.Param("id"), *req.Title)
	if err != nil {
		return conversationError(err)
	}
	return c.JSON(http.StatusOK, conv)
}

// Delete godoc
// @Summary Delete a conversation and its messages
// @Tags conversations
// @Param id path string true "Conversation ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/conversations/{id} [delete]
func (h *ConversationHandler) Delete(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), userID, c.Param("id")); err != nil {
		return conversationError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "对话已删除"})
}
