package feed

import (
	"context"
	"log/slog"

	"sealtalk/domain"
)

// SessionWorker runs one feed session under a supervisor: start, stay live
// until the context ends, then tear down. The supervisor restarts it after
// a panic, which re-enters StartSession and resyncs through the bounded
// fetch.
type SessionWorker struct {
	log        *slog.Logger
	reconciler *Reconciler
	identity   domain.Identity
}

func NewSessionWorker(log *slog.Logger, reconciler *Reconciler, identity domain.Identity) *SessionWorker {
	return &SessionWorker{log: log, reconciler: reconciler, identity: identity}
}

func (w *SessionWorker) Run(ctx context.Context) error {
	if err := w.reconciler.StartSession(ctx, w.identity); err != nil {
		return err
	}
	<-ctx.Done()
	w.reconciler.EndSession()
	return nil
}
