package databasechecker

import (
	"context"
	"log/slog"
	"time"

	"github.com/deepchat-ai/deepchat/internal/healthcheck"
)

const checkTypeDatabase = "database.postgres"

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker reports whether PostgreSQL answers a ping.
type Checker struct {
	logger *slog.Logger
	pool   Pinger
}

func NewChecker(log *slog.Logger, pool Pinger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger: log.With(slog.String("checker", "healthcheck_database")),
		pool:   pool,
	}
}

func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	result := healthcheck.CheckResult{ID: "database", Type: checkTypeDatabase}
	if c.pool == nil {
		result.Status = healthcheck.StatusError
		result.Summary = "database is not configured"
		return []healthcheck.CheckResult{result}
	}
	start := time.Now()
	if err := c.pool.Ping(ctx); err != nil {
		c.logger.Warn("database ping failed", slog.Any("error", err))
		result.Status = healthcheck.StatusError
		result.Summary = "database unreachable"
		result.Detail = err.Error()
		return []healthcheck.CheckResult{result}
	}
	result.Status = healthcheck.StatusOK
	result.Summary = "database reachable"
	result.Metadata = map[string]any{"latency_ms": time.Since(start).Milliseconds()}
	return []healthcheck.CheckResult{result}
}
