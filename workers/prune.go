package workers

import (
	"context"
	"log/slog"
	"time"

	"sealtalk/repositories"
)

// PruneWorker mirrors the platform's scheduled retention job on the local
// archive: every interval it drops archived messages older than the
// retention window. The live feed never depends on this, expiry of visible
// messages flows through delete events on the change stream.
type PruneWorker struct {
	log       *slog.Logger
	archive   repositories.IArchive
	interval  time.Duration
	retention time.Duration
}

func NewPruneWorker(log *slog.Logger, archive repositories.IArchive,
	interval, retention time.Duration) *PruneWorker {
	return &PruneWorker{log: log, archive: archive, interval: interval, retention: retention}
}

func (w *PruneWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pruned, err := w.archive.PruneBefore(time.Now().Add(-w.retention))
			if err != nil {
				w.log.Error("Archive prune failed", "error", err)
				continue
			}
			if pruned > 0 {
				w.log.Info("Pruned expired archive entries", "count", pruned)
			}
		}
	}
}
