package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldSkipJWT(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		want bool
	}{
		{path: "/ping", want: true},
		{path: "/health", want: true},
		{path: "/api/swagger.json", want: true},
		{path: "/api/docs/index.html", want: true},
		{path: "/api/auth/login", want: true},
		{path: "/api/auth/login-with-code", want: true},
		{path: "/api/auth/reset-password", want: true},
		{path: "/api/auth/me", want: false},
		{path: "/api/auth/refresh", want: false},
		{path: "/api/chat/send-stream", want: false},
		{path: "/api/conversations", want: false},
		{path: "/api/auth/login/extra", want: false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, shouldSkipJWT(tc.path), tc.path)
	}
}

type routeHandler struct{}

func (routeHandler) Register(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	e.GET("/api/private", func(c echo.Context) error { return c.String(http.StatusOK, "secret") })
}

func TestNewServer_JWTGuardsPrivateRoutes(t *testing.T) {
	t.Parallel()
	srv := NewServer(nil, Options{JWTSecret: "test-secret"}, routeHandler{}, nil)

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/private", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "未授权")
}

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=30"`
	Type     string `json:"type" validate:"omitempty,oneof=register login"`
}

func TestValidator(t *testing.T) {
	t.Parallel()
	v := NewValidator()

	require.NoError(t, v.Validate(signup{Email: "a@example.com", Username: "alice"}))

	tests := []struct {
		in   signup
		want string
	}{
		{signup{Username: "alice"}, "缺少必填字段 email"},
		{signup{Email: "nope", Username: "alice"}, "请提供有效的邮箱地址"},
		{signup{Email: "a@example.com", Username: "al"}, "username 长度不能少于 3"},
		{signup{Email: "a@example.com", Username: "alice", Type: "other"}, "type 必须是 register login 之一"},
	}
	for _, tt := range tests {
		err := v.Validate(tt.in)
		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusBadRequest, he.Code)
		assert.Equal(t, tt.want, he.Message)
	}
}
