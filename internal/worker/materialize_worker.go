package worker

import (
	"context"
	"time"

	applog "moneta/internal/log"
	"moneta/internal/services"
)

// MaterializeWorker periodically re-runs materialization so the forward
// horizon keeps sliding as calendar time passes. Each run is idempotent, so
// the interval only affects how quickly new months appear.
type MaterializeWorker struct {
	service  *services.LedgerService
	interval time.Duration
	logger   *applog.Logger
}

func NewMaterializeWorker(service *services.LedgerService, interval time.Duration) *MaterializeWorker {
	return &MaterializeWorker{
		service:  service,
		interval: interval,
		logger:   applog.ForComponent(applog.ComponentMaterialize),
	}
}

// Run executes one materialization immediately, then on every tick until the
// context is cancelled. Run errors are logged and the loop continues; only
// context cancellation stops it.
func (w *MaterializeWorker) Run(ctx context.Context) error {
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Materialize worker stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *MaterializeWorker) runOnce(ctx context.Context) {
	inserted, err := w.service.RunMaterialization(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Materialization run failed", "error", err)
		return
	}
	if inserted > 0 {
		w.logger.InfoContext(ctx, "Materialization inserted transactions", "inserted", inserted)
	}
}
