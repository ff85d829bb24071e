package repositories

import (
	"log/slog"
	"testing"
	"time"

	"sealtalk/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func testArchive(t *testing.T) Archive {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewArchive(db, logs.GetLoggerFromLevel(slog.LevelDebug))
}

func archived(content string, at time.Time) domain.Message {
	return domain.Message{
		ID:         uuid.New(),
		Content:    content,
		SenderID:   "sender-1",
		SenderName: "Frank",
		CreatedAt:  at,
	}
}

func TestArchive_ListSince_IsChronologicalAndBounded(t *testing.T) {
	req := require.New(t)
	archive := testArchive(t)
	now := time.Now().UTC()

	// Given entries stored out of order, one past the window
	old := archived("too old", now.Add(-48*time.Hour))
	mid := archived("middle", now.Add(-2*time.Hour))
	recent := archived("recent", now.Add(-time.Minute))
	for _, m := range []domain.Message{recent, old, mid} {
		req.NoError(archive.StoreMessage(m))
	}

	messages, err := archive.ListSince(now.Add(-24 * time.Hour))

	req.NoError(err)
	req.Len(messages, 2)
	req.Equal(mid.ID, messages[0].ID)
	req.Equal(recent.ID, messages[1].ID)
}

func TestArchive_StoreMessage_Invalid_IsRejected(t *testing.T) {
	req := require.New(t)
	archive := testArchive(t)

	err := archive.StoreMessage(domain.Message{ID: uuid.New(), CreatedAt: time.Now()})

	req.Error(err)
}

func TestArchive_DeleteMessage_ByID(t *testing.T) {
	req := require.New(t)
	archive := testArchive(t)
	now := time.Now().UTC()

	gone := archived("doomed", now)
	kept := archived("survivor", now.Add(time.Second))
	req.NoError(archive.StoreMessage(gone))
	req.NoError(archive.StoreMessage(kept))

	req.NoError(archive.DeleteMessage(gone.ID))

	messages, err := archive.ListSince(now.Add(-time.Hour))
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(kept.ID, messages[0].ID)
}

func TestArchive_DeleteMessage_UnknownID_IsNoOp(t *testing.T) {
	req := require.New(t)
	archive := testArchive(t)

	req.NoError(archive.DeleteMessage(uuid.New()))
}

func TestArchive_PruneBefore_DropsOnlyExpiredEntries(t *testing.T) {
	req := require.New(t)
	archive := testArchive(t)
	now := time.Now().UTC()

	expired1 := archived("expired 1", now.Add(-30*time.Hour))
	expired2 := archived("expired 2", now.Add(-25*time.Hour))
	fresh := archived("fresh", now.Add(-time.Hour))
	for _, m := range []domain.Message{expired1, expired2, fresh} {
		req.NoError(archive.StoreMessage(m))
	}

	pruned, err := archive.PruneBefore(now.Add(-24 * time.Hour))

	req.NoError(err)
	req.Equal(2, pruned)

	messages, err := archive.ListSince(now.Add(-48 * time.Hour))
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(fresh.ID, messages[0].ID)

	// Pruned ids lose their index entry too, so a late delete is a no-op
	req.NoError(archive.DeleteMessage(expired1.ID))
}
