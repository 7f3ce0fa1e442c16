package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/metrics"
	"github.com/angelmondragon/orderflow/pkg/outbox"
)

const defaultBacklogWarnAge = 15 * time.Minute

type outboxStatsReader interface {
	PendingStats(ctx context.Context) (outbox.PendingStats, error)
}

type OutboxBacklogJobParams struct {
	Logger  *logger.Logger
	Stats   outboxStatsReader
	Metrics *metrics.OutboxMetrics
	// WarnAge is the oldest-pending age that escalates the log to a warning.
	WarnAge time.Duration
}

func NewOutboxBacklogJob(params OutboxBacklogJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Stats == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	warnAge := params.WarnAge
	if warnAge <= 0 {
		warnAge = defaultBacklogWarnAge
	}
	return &outboxBacklogJob{
		logg:    params.Logger,
		stats:   params.Stats,
		metrics: params.Metrics,
		warnAge: warnAge,
		now:     time.Now,
	}, nil
}

type outboxBacklogJob struct {
	logg    *logger.Logger
	stats   outboxStatsReader
	metrics *metrics.OutboxMetrics
	warnAge time.Duration
	now     func() time.Time
}

func (j *outboxBacklogJob) Name() string { return "outbox-backlog" }

func (j *outboxBacklogJob) Run(ctx context.Context) error {
	stats, err := j.stats.PendingStats(ctx)
	if err != nil {
		return fmt.Errorf("outbox backlog: %w", err)
	}
	var oldestAge time.Duration
	if stats.OldestAt != nil {
		oldestAge = j.now().Sub(*stats.OldestAt)
		if oldestAge < 0 {
			oldestAge = 0
		}
	}
	j.metrics.SetBacklog(stats.Count, stats.WithErrors, oldestAge)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"pending":        stats.Count,
		"with_errors":    stats.WithErrors,
		"max_attempts":   stats.MaxAttempted,
		"oldest_age_sec": int64(oldestAge.Seconds()),
	})
	if stats.Count > 0 && oldestAge >= j.warnAge {
		j.logg.Warn(logCtx, "outbox backlog is not draining")
		return nil
	}
	j.logg.Info(logCtx, "outbox backlog checked")
	return nil
}
