package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/reports"
)

// NewReportsWarmupHandler returns the handler for TaskReportsWarmup. It
// refreshes the cached stock summary so dashboards never hit a cold cache.
func NewReportsWarmupHandler(logger *slog.Logger, svc *reports.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := svc.Warm(ctx); err != nil {
			return err
		}
		logger.Info("report cache warmed")
		return nil
	}
}
