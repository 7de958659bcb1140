package app

import (
	"context"
	"time"
)

const (
	conversationSweepInterval = time.Minute
	catalogWarmTimeout        = 30 * time.Second
)

// startBackgroundJobs starts all background goroutines tracked by wg.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.warmCatalog(ctx)
	})
	a.wg.Go(func() {
		a.turnLogCleanup(ctx)
	})
	if a.webhookHandler != nil {
		a.wg.Go(func() {
			a.conversationSweep(ctx)
		})
	}
}

// warmCatalog fetches the catalog once so the first user does not wait for
// it. A failure only means the first turn fetches instead.
func (a *Application) warmCatalog(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, catalogWarmTimeout)
	defer cancel()

	start := time.Now()
	records, err := a.dialogue.Catalog.Courses(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Catalog warmup failed")
		return
	}
	a.logger.WithField("records", len(records)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Catalog warmed")
	a.metrics.RecordJob("catalog_warmup", time.Since(start).Seconds())
}

// turnLogCleanup prunes the turn log on startup and then every
// CleanupInterval until ctx is canceled.
func (a *Application) turnLogCleanup(ctx context.Context) {
	a.logger.Debug("Turn log cleanup job started")
	defer a.logger.Debug("Turn log cleanup job stopped")

	a.runTurnLogCleanup(ctx)

	ticker := time.NewTicker(a.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runTurnLogCleanup(ctx)
		}
	}
}

func (a *Application) runTurnLogCleanup(ctx context.Context) {
	start := time.Now()

	deleted, err := a.db.DeleteOlderThan(ctx, a.cfg.TurnLogRetention)
	if err != nil {
		a.logger.WithError(err).Error("Failed to prune turn log")
		return
	}
	if deleted > 0 {
		if err := a.db.Vacuum(ctx); err != nil {
			a.logger.WithError(err).Warn("Failed to VACUUM turn log")
		}
	}

	a.logger.WithField("deleted", deleted).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Turn log cleanup completed")
	a.metrics.RecordJob("turn_cleanup", time.Since(start).Seconds())
}

// conversationSweep drops idle LINE conversations so memory follows
// active chats.
func (a *Application) conversationSweep(ctx context.Context) {
	ticker := time.NewTicker(conversationSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if n := a.webhookHandler.Conversations().Sweep(); n > 0 {
				a.logger.WithField("removed", n).Debug("Idle conversations swept")
			}
			a.metrics.RecordJob("conversation_sweep", time.Since(start).Seconds())
		}
	}
}
