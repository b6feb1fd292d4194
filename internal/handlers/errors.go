package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deepchat-ai/deepchat/internal/accounts"
	"github.com/deepchat-ai/deepchat/internal/chat"
	"github.com/deepchat-ai/deepchat/internal/conversation"
	"github.com/deepchat-ai/deepchat/internal/conversation/flow"
	"github.com/deepchat-ai/deepchat/internal/verification"
)

const messageServerError = "服务器错误"

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Message string `json:"message"`
}

// MessageResponse is the body of replies that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "请求格式错误").SetInternal(err)
	}
	return c.Validate(req)
}

func accountError(err error) error {
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "未找到用户")
	case errors.Is(err, accounts.ErrEmailTaken):
		return echo.NewHTTPError(http.StatusBadRequest, "该邮箱已被注册")
	case errors.Is(err, accounts.ErrUsernameTaken):
		return echo.NewHTTPError(http.StatusBadRequest, "用户名已被使用")
	case errors.Is(err, accounts.ErrConflict):
		return echo.NewHTTPError(http.StatusBadRequest, "用户名或邮箱已被注册")
	case errors.Is(err, accounts.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "邮箱或密码不正确")
	case errors.Is(err, accounts.ErrInvalidPassword):
		return echo.NewHTTPError(http.StatusUnauthorized, "当前密码不正确")
	case errors.Is(err, accounts.ErrInvalidResetToken):
		return echo.NewHTTPError(http.StatusBadRequest, "重置令牌无效或已过期")
	case errors.Is(err, accounts.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, "请求参数无效").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, messageServerError).SetInternal(err)
	}
}

func verificationError(err error) error {
	switch {
	case errors.Is(err, verification.ErrInvalidCode):
		return echo.NewHTTPError(http.StatusBadRequest, "验证码无效或已过期")
	case errors.Is(err, verification.ErrTooManyGuesses):
		return echo.NewHTTPError(http.StatusBadRequest, "验证码错误次数过多，请重新获取")
	case errors.Is(err, verification.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, "验证码发送过于频繁，请稍后再试")
	case errors.Is(err, verification.ErrInvalidPurpose):
		return echo.NewHTTPError(http.StatusBadRequest, "无效的验证码类型")
	case errors.Is(err, verification.ErrDeliveryFailed):
		return echo.NewHTTPError(http.StatusInternalServerError, "发送验证码失败").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, messageServerError).SetInternal(err)
	}
}

func conversationError(err error) error {
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "未找到对话")
	case errors.Is(err, conversation.ErrInvalidTitle):
		return echo.NewHTTPError(http.StatusBadRequest, "标题长度不能超过100个字符")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, messageServerError).SetInternal(err)
	}
}

func chatError(err error) error {
	var connectErr *chat.UpstreamConnectError
	var streamErr *chat.UpstreamStreamError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, flow.ErrEmptyMessage), errors.Is(err, chat.ErrCapabilityMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, conversation.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &connectErr), errors.As(err, &streamErr):
		status = http.StatusBadGateway
	}
	return echo.NewHTTPError(status, flow.ErrorMessage(err)).SetInternal(err)
}
