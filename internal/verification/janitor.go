package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// PurgeFunc removes expired rows and reports how many.
type PurgeFunc func(ctx context.Context) (int64, error)

// Janitor runs purge jobs on a cron schedule.
type Janitor struct {
	cron    *cron.Cron
	logger  *slog.Logger
	jobs    map[string]PurgeFunc
	timeout time.Duration
}

func NewJanitor(log *slog.Logger, schedule string, jobs map[string]PurgeFunc) (*Janitor, error) {
	if log == nil {
		log = slog.Default()
	}
	j := &Janitor{
		cron:    cron.New(),
		logger:  log.With(slog.String("service", "janitor")),
		jobs:    jobs,
		timeout: time.Minute,
	}
	if _, err := j.cron.AddFunc(schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	return j, nil
}

func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Info("janitor started", slog.Int("jobs", len(j.jobs)))
}

// Stop halts scheduling and waits for a running pass, bounded by ctx.
func (j *Janitor) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunOnce executes every job once. Failures are logged and do not stop the
// remaining jobs.
func (j *Janitor) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	for name, job := range j.jobs {
		n, err := job(ctx)
		if err != nil {
			j.logger.Warn("purge failed", slog.String("job", name), slog.Any("error", err))
			continue
		}
		if n > 0 {
			j.logger.Info("purged", slog.String("job", name), slog.Int64("rows", n))
		}
	}
}
