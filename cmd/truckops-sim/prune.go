package main

import (
	"context"
	"log/slog"
	"time"
)

type pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// pruneInterval checks ten times per retention window, between 1s and 10m.
func pruneInterval(retention time.Duration) time.Duration {
	d := retention / 10
	if d < time.Second {
		d = time.Second
	}
	if d > 10*time.Minute {
		d = 10 * time.Minute
	}
	return d
}

// pruneHistory deletes rows older than retention every interval until ctx is done.
func pruneHistory(ctx context.Context, p pruner, retention, every time.Duration, now func() time.Time, log *slog.Logger) {
	if retention <= 0 {
		return
	}
	prune := func() {
		cutoff := now().Add(-retention)
		n, err := p.Prune(ctx, cutoff)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("history prune failed", "cutoff", cutoff, "err", err)
			}
			return
		}
		if n > 0 {
			log.Debug("pruned history", "rows", n, "cutoff", cutoff)
		}
	}
	prune()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
