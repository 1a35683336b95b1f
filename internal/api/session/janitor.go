package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Janitor periodically removes expired sessions from a Store.
type Janitor struct {
	store    Store
	interval time.Duration
	logger   *slog.Logger
}

func NewJanitor(store Store, interval time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{store: store, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.InfoContext(ctx, "Session janitor started", slog.Duration("interval", j.interval))
	for {
		select {
		case <-ctx.Done():
			j.logger.InfoContext(context.WithoutCancel(ctx), "Session janitor stopped")
			return
		case <-ticker.C:
			if n := j.store.CleanupExpired(ctx); n > 0 {
				j.logger.DebugContext(ctx, "Janitor sweep finished", slog.Int("removed", n))
			}
		}
	}
}

// Start runs the janitor in a goroutine. The returned function cancels it and
// waits for it to exit.
func (j *Janitor) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		j.Run(ctx)
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}
