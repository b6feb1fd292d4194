package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/deepchat-ai/deepchat/internal/config"
	"github.com/deepchat-ai/deepchat/internal/healthcheck"
	chatchecker "github.com/deepchat-ai/deepchat/internal/healthcheck/checkers/chat"
	databasechecker "github.com/deepchat-ai/deepchat/internal/healthcheck/checkers/database"
	"github.com/deepchat-ai/deepchat/internal/models"
	"github.com/deepchat-ai/deepchat/internal/version"
)

const healthCheckTimeout = 3 * time.Second

// HealthHandler serves the liveness and readiness probes. Liveness never
// touches dependencies.
type HealthHandler struct {
	checkers []healthcheck.Checker
	logger   *slog.Logger
}

func NewHealthHandler(log *slog.Logger, cfg config.Config, pool *pgxpool.Pool, catalog *models.Catalog) *HealthHandler {
	return newHealthHandler(log,
		databasechecker.NewChecker(log, pool),
		chatchecker.NewChecker(catalog, cfg.AI.BaseURL, cfg.AI.APIKey),
	)
}

func newHealthHandler(log *slog.Logger, checkers ...healthcheck.Checker) *HealthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &HealthHandler{checkers: checkers, logger: log.With(slog.String("handler", "health"))}
}

type PingResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

func (h *HealthHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.HEAD("/health", h.Alive)
	e.GET("/health", h.Health)
}

// Ping godoc
// @Summary Liveness probe
// @Tags ops
// @Produce json
// @Success 200 {object} PingResponse
// @Router /ping [get]
func (h *HealthHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, PingResponse{Status: "ok", Version: version.Version, Commit: version.Commit})
}

func (h *HealthHandler) Alive(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// Health godoc
// @Summary Readiness report
// @Description Returns 503 when any check fails. Warnings keep 200.
// @Tags ops
// @Success 200 {object} healthcheck.Report
// @Failure 503 {object} healthcheck.Report
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	report := healthcheck.Run(c.Request().Context(), healthCheckTimeout, h.checkers...)
	if !report.Healthy() {
		h.logger.Warn("health check failed", slog.String("status", report.Status))
		return c.JSON(http.StatusServiceUnavailable, report)
	}
	return c.JSON(http.StatusOK, report)
}
