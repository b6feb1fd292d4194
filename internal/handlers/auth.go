package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/deepchat-ai/deepchat/internal/accounts"
	"github.com/deepchat-ai/deepchat/internal/auth"
	"github.com/deepchat-ai/deepchat/internal/config"
	"github.com/deepchat-ai/deepchat/internal/verification"
)

type accountStore interface {
	Get(ctx context.Context, userID string) (accounts.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Register(ctx context.Context, username, email, password string) (accounts.User, error)
	Authenticate(ctx context.Context, email, password string) (accounts.User, error)
	LoginOrCreate(ctx context.Context, email string) (accounts.User, bool, error)
	IssueResetToken(ctx context.Context, email string, ttl time.Duration) (string, error)
	ResetPassword(ctx context.Context, token, password string) (accounts.User, error)
}

type codeVerifier interface {
	Send(ctx context.Context, email string, purpose verification.Purpose) error
	Verify(ctx context.Context, email string, purpose verification.Purpose, code string) error
	Consume(ctx context.Context, email string, purpose verification.Purpose) error
	CodeTTL() time.Duration
}

type AuthHandler struct {
	accounts  accountStore
	codes     codeVerifier
	secret    string
	expiresIn time.Duration
	resetTTL  time.Duration
	logger    *slog.Logger
}

type SendVerificationRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"omitempty,oneof=register password_reset email_change login"`
}

type SendVerificationResponse struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expiresIn"`
}

type AuthResponse struct {
	Message   string        `json:"message"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      accounts.User `json:"user"`
	IsNewUser bool          `json:"isNewUser,omitempty"`
}

type ForgotPasswordResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken"`
}

type TokenResponse struct {
	Message   string    `json:"message,omitempty"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func NewAuthHandler(log *slog.Logger, cfg config.Config, accountService *accounts.Service, codeService *verification.Service) *AuthHandler {
	return newAuthHandler(log, cfg, accountService, codeService)
}

func newAuthHandler(log *slog.Logger, cfg config.Config, accts accountStore, codes codeVerifier) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{
		accounts:  accts,
		codes:     codes,
		secret:    cfg.Auth.JWTSecret,
		expiresIn: cfg.Auth.ExpiresIn(),
		resetTTL:  cfg.Verification.ResetTokenLifetime(),
		logger:    log.With(slog.String("handler", "auth")),
	}
}

func (h *AuthHandler) Register(e *echo.Echo) {
	group := e.Group("/api/auth")
	group.POST("/send-verification", h.SendVerification)
	group.POST("/register", h.RegisterUser)
	group.POST("/login", h.Login)
	group.POST("/login-with-code", h.LoginWithCode)
	group.POST("/forgot-password", h.ForgotPassword)
	group.POST("/reset-password", h.ResetPassword)
	group.GET("/me", h.Me)
	group.POST("/refresh", h.Refresh)
}

// SendVerification godoc
// @Summary Send a verification code
// @Description Issues a six digit code for the given purpose and mails it.
// @Tags auth
// @Param payload body SendVerificationRequest true "Email and purpose"
// @Success 200 {object} SendVerificationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/auth/send-verification [post]
func (h *AuthHandler) SendVerification(c echo.Context) error {
	var req SendVerificationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	purpose := verification.PurposeRegister
	if req.Purpose != "" {
		p, ok := verification.ParsePurpose(req.Purpose)
		if !ok {
			return verificationError(verification.ErrInvalidPurpose)
		}
		purpose = p
	}
	ctx := c.Request().Context()
	exists, err := h.accounts.EmailExists(ctx, req.Email)
	if err != nil {
		return accountError(err)
	}
	switch purpose {
	case verification.PurposeRegister:
		if exists {
			return echo.NewHTTPError(http.StatusBadRequest, "该邮箱已被注册")
		}
	case verification.PurposeEmailChange:
		if exists {
			return echo.NewHTTPError(http.StatusBadRequest, "该邮箱已被其他账户使用")
		}
	case verification.PurposePasswordReset:
		if !exists {
			return echo.NewHTTPError(http.StatusNotFound, "该邮箱未注册")
		}
	}
	if err := h.codes.Send(ctx, req.Email, purpose); err != nil {
		return verificationError(err)
	}
	minutes := int(h.codes.CodeTTL() / time.Minute)
	return c.JSON(http.StatusOK, SendVerificationResponse{
		Message:   fmt.Sprintf("验证码已发送，有效期%d分钟", minutes),
		ExpiresIn: int(h.codes.CodeTTL() / time.Second),
	})
}

// RegisterUser godoc
// @Summary Register with an email code
// @Tags auth
// @Param payload body accounts.RegisterRequest true "Registration"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/auth/register [post]
func (h *AuthHandler) RegisterUser(c echo.Context) error {
	var req accounts.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.codes.Verify(ctx, req.Email, verification.PurposeRegister, req.Code); err != nil {
		return verificationError(err)
	}
	user, err := h.accounts.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return accountError(err)
	}
	h.consume(ctx, req.Email, verification.PurposeRegister)
	return h.respondWithToken(c, http.StatusCreated, "注册成功", user, false)
}

// Login godoc
// @Summary Log in with email and password
// @Tags auth
// @Param payload body accounts.LoginRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req accounts.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return accountError(err)
	}
	return h.respondWithToken(c, http.StatusOK, "登录成功", user, false)
}

// LoginWithCode godoc
// @Summary Log in with an email code
// @Description Unknown addresses get a fresh account.
// @Tags auth
// @Param payload body accounts.CodeLoginRequest true "Email and code"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/auth/login-with-code [post]
func (h *AuthHandler) LoginWithCode(c echo.Context) error {
	var req accounts.CodeLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.codes.Verify(ctx, req.Email, verification.PurposeLogin, req.Code); err != nil {
		return verificationError(err)
	}
	user, created, err := h.accounts.LoginOrCreate(ctx, req.Email)
	if err != nil {
		return accountError(err)
	}
	h.consume(ctx, req.Email, verification.PurposeLogin)
	return h.respondWithToken(c, http.StatusOK, "登录成功", user, created)
}

// ForgotPassword godoc
// @Summary Exchange a reset code for a reset token
// @Tags auth
// @Param payload body accounts.ForgotPasswordRequest true "Email and code"
// @Success 200 {object} ForgotPasswordResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req accounts.ForgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.codes.Verify(ctx, req.Email, verification.PurposePasswordReset, req.Code); err != nil {
		return verificationError(err)
	}
	token, err := h.accounts.IssueResetToken(ctx, req.Email, h.resetTTL)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "该邮箱未注册")
		}
		return accountError(err)
	}
	h.consume(ctx, req.Email, verification.PurposePasswordReset)
	return c.JSON(http.StatusOK, ForgotPasswordResponse{
		Message:    "验证成功，请设置新密码",
		ResetToken: token,
	})
}

// ResetPassword godoc
// @Summary Set a new password with a reset token
// @Tags auth
// @Param payload body accounts.ResetPasswordRequest true "Reset token and password"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req accounts.ResetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.ResetPassword(c.Request().Context(), req.ResetToken, req.Password)
	if err != nil {
		return accountError(err)
	}
	token, expiresAt, err := auth.GenerateToken(user.ID, h.secret, h.expiresIn)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, messageServerError).SetInternal(err)
	}
	return c.JSON(http.StatusOK, TokenResponse{Message: "密码重置成功", Token: token, ExpiresAt: expiresAt})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Success 200 {object} accounts.User
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
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

// Refresh godoc
// @Summary Reissue the bearer token
// @Tags auth
// @Success 200 {object} TokenResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	token, expiresAt, err := auth.RefreshTokenFromContext(c, h.secret, h.expiresIn)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt})
}

func (h *AuthHandler) respondWithToken(c echo.Context, status int, message string, user accounts.User, created bool) error {
	token, expiresAt, err := auth.GenerateToken(user.ID, h.secret, h.expiresIn)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, messageServerError).SetInternal(err)
	}
	return c.JSON(status, AuthResponse{
		Message:   message,
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
		IsNewUser: created,
	})
}

// consume drops a used code. A failure only leaves the code to expire.
func (h *AuthHandler) consume(ctx context.Context, email string, purpose verification.Purpose) {
	if err := h.codes.Consume(ctx, email, purpose); err != nil {
		h.logger.Warn("consume verification code failed", slog.String("purpose", string(purpose)), slog.Any("error", err))
	}
}
