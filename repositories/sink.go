package repositories

import (
	"context"
	"log/slog"

	"sealtalk/domain/event"
)

// ArchiveSink records observed change events into the local archive. It sits
// on the same serialized event path as the store, after it.
type ArchiveSink struct {
	archive IArchive
	log     *slog.Logger
}

func NewArchiveSink(archive IArchive, log *slog.Logger) *ArchiveSink {
	return &ArchiveSink{archive: archive, log: log}
}

func (s *ArchiveSink) Consume(_ context.Context, e event.ChangeEvent) error {
	switch evt := e.(type) {
	case event.MessageInserted:
		return s.archive.StoreMessage(evt.Message)
	case event.MessageDeleted:
		return s.archive.DeleteMessage(evt.ID)
	}
	return nil
}
