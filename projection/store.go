// Package projection builds the local message view from fetched snapshots
// and observed change events. Handles ordering, deduplication, and
// copy-on-read snapshots. Does not emit events or interact with UI directly.
package projection

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"sealtalk/domain"

	"github.com/google/uuid"
)

// Store is the authoritative in-memory ordered set of currently-visible
// messages for one session.
//
// Iteration order is non-decreasing by CreatedAt; ties keep arrival order.
// There is exactly one writer role (the reconciler); Snapshot may be called
// from any goroutine.
type Store struct {
	mu       sync.RWMutex
	log      *slog.Logger
	messages []domain.Message
	present  map[uuid.UUID]struct{}
}

func NewStore(log *slog.Logger) *Store {
	return &Store{
		log:     log,
		present: make(map[uuid.UUID]struct{}),
	}
}

// Initialize replaces the current content with a pre-sorted snapshot.
// The caller is responsible for requesting the records ascending by
// CreatedAt. An empty snapshot is a no-op so that a failed or empty fetch
// never wipes an already-populated view.
func (s *Store) Initialize(records []domain.Message) {
	if len(records) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = s.messages[:0]
	s.present = make(map[uuid.UUID]struct{}, len(records))
	for _, m := range records {
		if err := m.Validate(); err != nil {
			s.log.Warn("Dropping malformed record from snapshot", "error", err)
			continue
		}
		if _, ok := s.present[m.ID]; ok {
			continue
		}
		s.messages = append(s.messages, m)
		s.present[m.ID] = struct{}{}
	}
}

// Insert adds a record at the position preserving non-decreasing CreatedAt.
// Inserting an id already present is idempotent: no duplicate, no state
// change. This guards against an insert event racing the initial fetch for
// the same row. Malformed records are dropped and logged, never raised,
// since one bad event must not halt the reconciliation sequence.
func (s *Store) Insert(m domain.Message) {
	if err := m.Validate(); err != nil {
		s.log.Warn("Rejecting malformed message", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.present[m.ID]; ok {
		return
	}

	// First position strictly after m; equal timestamps stay in arrival order.
	idx := sort.Search(len(s.messages), func(i int) bool {
		return s.messages[i].CreatedAt.After(m.CreatedAt)
	})

	s.messages = append(s.messages, domain.Message{})
	copy(s.messages[idx+1:], s.messages[idx:])
	s.messages[idx] = m
	s.present[m.ID] = struct{}{}
}

// Remove deletes the record if present. Absent ids are a no-op, since
// deletes may arrive for rows the client never observed (expired before
// the fetch window).
func (s *Store) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.present[id]; !ok {
		return
	}

	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
	delete(s.present, id)
}

// Snapshot returns a copy of the current ordered sequence, safe to iterate
// without observing further mutation.
func (s *Store) Snapshot() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Contains reports whether the id is currently visible.
func (s *Store) Contains(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.present[id]
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Clear empties the store on session teardown.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.present = make(map[uuid.UUID]struct{})
}

func (s *Store) String() string {
	return fmt.Sprintf("Store(%d messages)", s.Len())
}
