package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deepchat-ai/deepchat/internal/accounts"
	"github.com/deepchat-ai/deepchat/internal/auth"
	"github.com/deepchat-ai/deepchat/internal/verification"
)

type profileStore interface {
	Get(ctx context.Context, userID string) (accounts.User, error)
	UpdateProfile(ctx context.Context, userID string, req accounts.UpdateProfileRequest) (accounts.User, error)
	UpdatePassword(ctx context.Context, userID, current, next string) error
	UpdateEmail(ctx context.Context, userID, newEmail string) (accounts.User, error)
}

type UserHandler struct {
	accounts profileStore
	codes    codeVerifier
	logger   *slog.Logger
}

type UserResponse struct {
	Message string        `json:"message"`
	Data    accounts.User `json:"data"`
}

func NewUserHandler(log *slog.Logger, accountService *accounts.Service, codeService *verification.Service) *UserHandler {
	return newUserHandler(log, accountService, codeService)
}

func newUserHandler(log *slog.Logger, accts profileStore, codes codeVerifier) *UserHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UserHandler{
		accounts: accts,
		codes:    codes,
		logger:   log.With(slog.String("handler", "users")),
	}
}

func (h *UserHandler) Register(e *echo.Echo) {
	group := e.Group("/api/users")
	group.GET("/profile", h.GetProfile)
	group.PUT("/profile", h.UpdateProfile)
	group.PUT("/password", h.UpdatePassword)
	group.PUT("/email", h.UpdateEmail)
}

// GetProfile godoc
// @Summary Current user profile
// @Tags users
// @Success 200 {object} accounts.User
// @Failure 404 {object} ErrorResponse
// @Router /api/users/profile [get]
func (h *UserHandler) GetProfile(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	user, err := h.accounts.Get(c.Request().Context(), userID)
	if err != nil {
		return accountError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile godoc
// @Summary Update username, avatar or settings
// @Tags users
// @Param payload body accounts.UpdateProfileRequest true "Changes"
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/users/profile [put]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req accounts.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.UpdateProfile(c.Request().Context(), userID, req)
	if err != nil {
		return accountError(err)
	}
	return c.JSON(http.StatusOK, UserResponse{Message: "个人资料更新成功", Data: user})
}

// UpdatePassword godoc
// @Summary Change password
// @Tags users
// @Param payload body accounts.UpdatePasswordRequest true "Current and new password"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/users/password [put]
func (h *UserHandler) UpdatePassword(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req accounts.UpdatePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.accounts.UpdatePassword(c.Request().Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		return accountError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "密码更新成功"})
}

// UpdateEmail godoc
// @Summary Change email with a code sent to the new address
// @Tags users
// @Param payload body accounts.UpdateEmailRequest true "New email and code"
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/users/email [put]
func (h *UserHandler) UpdateEmail(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req accounts.UpdateEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.codes.Verify(ctx, req.NewEmail, verification.PurposeEmailChange, req.Code); err != nil {
		return verificationError(err)
	}
	user, err := h.accounts.UpdateEmail(ctx, userID, req.NewEmail)
	if err != nil {
		if errors.Is(err, accounts.ErrConflict) {
			return echo.NewHTTPError(http.StatusBadRequest, "该邮箱已被其他账户使用")
		}
		return accountError(err)
	}
	if err := h.codes.Consume(ctx, req.NewEmail, verification.PurposeEmailChange); err != nil {
		h.logger.Warn("consume verification code failed", slog.Any("error", err))
	}
	return c.JSON(http.StatusOK, UserResponse{Message: "邮箱更新成功", Data: user})
}
