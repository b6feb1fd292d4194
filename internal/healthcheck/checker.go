// Package healthcheck aggregates readiness checks into one report.
package healthcheck

import (
	"context"
	"sync"
	"time"
)

const (
	// StatusOK indicates check passed.
	StatusOK = "ok"
	// StatusWarn indicates the service works with reduced function.
	StatusWarn = "warn"
	// StatusError indicates check failed.
	StatusError = "error"
)

const defaultTimeout = 5 * time.Second

// CheckResult is one readiness check item produced by a checker.
type CheckResult struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Status   string         `json:"status"`
	Summary  string         `json:"summary"`
	Detail   string         `json:"detail,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Checker evaluates one or more readiness checks.
type Checker interface {
	ListChecks(ctx context.Context) []CheckResult
}

// Report is the combined result. Status is the worst status of all checks.
type Report struct {
	Status string        `json:"status"`
	Checks []CheckResult `json:"checks"`
}

func (r Report) Healthy() bool { return r.Status != StatusError }

// Run evaluates checkers concurrently, each bounded by timeout, and keeps
// results in checker order.
func Run(ctx context.Context, timeout time.Duration, checkers ...Checker) Report {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	results := make([][]CheckResult, len(checkers))
	var wg sync.WaitGroup
	for i, checker := range checkers {
		if checker == nil {
			continue
		}
		wg.Add(1)
		go func(i int, checker Checker) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			results[i] = checker.ListChecks(checkCtx)
		}(i, checker)
	}
	wg.Wait()

	report := Report{Status: StatusOK, Checks: []CheckResult{}}
	for _, items := range results {
		for _, item := range items {
			report.Checks = append(report.Checks, item)
			report.Status = worst(report.Status, item.Status)
		}
	}
	return report
}

func worst(a, b string) string {
	if rank(b) > rank(a) {
		return b
	}
	return a
}

func rank(status string) int {
	switch status {
	case StatusOK:
		return 0
	case StatusWarn:
		return 1
	default:
		return 2
	}
}
