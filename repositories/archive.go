//go:generate go run go.uber.org/mock/mockgen -source=archive.go -destination=../mocks/mock_archive.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"sealtalk/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IArchive interface {
	StoreMessage(msg domain.Message) error
	DeleteMessage(id uuid.UUID) error
	ListSince(since time.Time) ([]domain.Message, error)
	PruneBefore(cutoff time.Time) (int, error)
}

// Archive keeps a local on-disk copy of every message the session observed.
// It mirrors the platform's retention behavior through PruneBefore so the
// archive never outgrows the visibility window by much.
type Archive struct {
	db  *badger.DB
	log *slog.Logger
}

func NewArchive(db *badger.DB, log *slog.Logger) Archive {
	return Archive{db: db, log: log}
}

// messageKey formats the primary key as "msg:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the UUID as a collision disconnector if
//     two messages arrive at the same nanosecond.
func messageKey(at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%019d:%s", at.UnixNano(), id))
}

// indexKey maps a message id back to its primary key, so deletes (which
// only carry the id) don't need a full scan.
func indexKey(id uuid.UUID) []byte {
	return []byte("idx:" + id.String())
}

func (a Archive) StoreMessage(m domain.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	value, err := json.Marshal(m)
	if err != nil {
		return err
	}

	key := messageKey(m.CreatedAt, m.ID)
	return a.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(indexKey(m.ID), key)
	})
}

// DeleteMessage removes a message by id. Unknown ids are a no-op, the
// platform may delete rows this client never archived.
func (a Archive) DeleteMessage(id uuid.UUID) error {
	return a.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		primary, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Delete(primary); err != nil {
			return err
		}
		return txn.Delete(indexKey(id))
	})
}

// ListSince returns archived messages created at or after since, ascending.
// Thanks to the padded timestamp in the key, no sort is needed.
func (a Archive) ListSince(since time.Time) ([]domain.Message, error) {
	var messages []domain.Message
	err := a.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:")
		seek := []byte(fmt.Sprintf("msg:%019d:", since.UnixNano()))

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var m domain.Message
				if err := json.Unmarshal(value, &m); err != nil {
					a.log.Warn("Skipping undecodable archive entry",
						"key", string(it.Item().Key()), "error", err)
					return nil
				}
				messages = append(messages, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}

// PruneBefore drops every archived message older than cutoff and returns
// how many were removed.
func (a Archive) PruneBefore(cutoff time.Time) (int, error) {
	boundary := fmt.Sprintf("msg:%019d:", cutoff.UnixNano())

	var primaries [][]byte
	var ids []uuid.UUID
	err := a.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if string(key) >= boundary {
				break
			}
			primaries = append(primaries, key)

			err := it.Item().Value(func(value []byte) error {
				var m domain.Message
				if err := json.Unmarshal(value, &m); err == nil {
					ids = append(ids, m.ID)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = a.db.Update(func(txn *badger.Txn) error {
		for _, key := range primaries {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for _, id := range ids {
			if err := txn.Delete(indexKey(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(primaries), nil
}
