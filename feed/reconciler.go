// Package feed owns the session-scoped lifecycle of the message feed:
// bounded initial load, continuous event application, and outbound send.
package feed

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"sealtalk/contract"
	"sealtalk/domain"
	"sealtalk/domain/event"
	"sealtalk/errors"
	"sealtalk/projection"
	"sealtalk/stream"

	"github.com/google/uuid"
)

type phase int

const (
	phaseIdle phase = iota
	phaseLoading
	phaseLive
)

const (
	defaultBackoffMin = 1 * time.Second
	defaultBackoffMax = 30 * time.Second
)

// Reconciler merges the bounded fetch and the change stream into one
// consistent ordered view.
//
// All store mutations (initial load results, buffered pre-load events, live
// events) are applied strictly one at a time in arrival order. Network calls
// may be in flight concurrently, but their effects on the store are
// serialized through the event-application path.
type Reconciler struct {
	log        *slog.Logger
	api        contract.IMessageAPI
	feed       contract.IChangeFeed
	store      *projection.Store
	extraSinks []contract.ChangeSink
	bufferSize int
	retention  time.Duration
	backoffMin time.Duration
	backoffMax time.Duration
	clock      func() time.Time
	onApply    func(event.ChangeEvent)

	mu       sync.Mutex
	phase    phase
	epoch    uint64
	identity domain.Identity
	buffer   []event.ChangeEvent
	adapter  *stream.Adapter
	cancel   context.CancelFunc
}

// NewReconciler wires the controller. sinks are secondary consumers (local
// archive, search index) fed after the store, on the same serialized path.
func NewReconciler(log *slog.Logger, api contract.IMessageAPI, feed contract.IChangeFeed,
	store *projection.Store, bufferSize int, sinks ...contract.ChangeSink) *Reconciler {
	return &Reconciler{
		log:        log,
		api:        api,
		feed:       feed,
		store:      store,
		extraSinks: sinks,
		bufferSize: bufferSize,
		retention:  domain.RetentionWindow,
		backoffMin: defaultBackoffMin,
		backoffMax: defaultBackoffMax,
		clock:      time.Now,
	}
}

// SetOnApply registers a callback invoked after each live event has been
// applied to the store. It runs on the event-application goroutine and must
// not call Send or session lifecycle methods.
func (r *Reconciler) SetOnApply(fn func(event.ChangeEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onApply = fn
}

// StartSession opens the subscription, performs the bounded fetch
// (created_at >= now - retention, ascending), initializes the store, and
// replays any events that arrived while the fetch was in flight. It blocks
// until the feed is live or ctx ends; fetch failures are retried with
// exponential backoff rather than surfaced.
func (r *Reconciler) StartSession(ctx context.Context, identity domain.Identity) error {
	r.mu.Lock()
	if r.phase != phaseIdle {
		r.mu.Unlock()
		return errors.ErrSessionActive
	}
	r.phase = phaseLoading
	r.epoch++
	epoch := r.epoch
	r.identity = identity
	r.buffer = nil

	sessionCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	sinks := append([]contract.ChangeSink{r}, r.extraSinks...)
	adapter := stream.NewAdapter(r.log, r.feed, r.bufferSize, sinks...)
	r.adapter = adapter
	r.mu.Unlock()

	// The subscription opens before the fetch so no insert produced during
	// the load can be lost; it is buffered and replayed below.
	if err := adapter.Open(sessionCtx); err != nil {
		r.abortStart(epoch, cancel)
		return err
	}

	go func() { _ = adapter.Run(sessionCtx) }()
	go r.watchResync(sessionCtx, epoch, adapter)

	records, err := r.boundedFetch(sessionCtx)
	if err != nil {
		r.abortStart(epoch, cancel)
		_ = adapter.Close()
		return err
	}

	r.mu.Lock()
	if r.epoch != epoch || r.phase != phaseLoading {
		r.mu.Unlock()
		return errors.ErrStaleFetch
	}
	r.store.Initialize(records)
	for _, evt := range r.buffer {
		r.applyLocked(evt)
	}
	r.buffer = nil
	r.phase = phaseLive
	r.mu.Unlock()

	r.log.Info("Feed is live", "sender", identity.ID, "loaded", len(records))
	return nil
}

// Send validates the content and submits it with the identity denormalized
// at call time. The message is not inserted locally; it becomes visible only
// when its own insert event is echoed back through the subscription, so the
// local notion of "sent" always matches what every other subscriber sees.
func (r *Reconciler) Send(ctx context.Context, content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.ValidationError{Reason: errors.ErrEmptyContent}
	}
	if utf8.RuneCountInString(trimmed) > domain.MaxContentLength {
		return errors.ValidationError{Reason: errors.ErrContentTooLong}
	}

	r.mu.Lock()
	if r.phase == phaseIdle {
		r.mu.Unlock()
		return errors.ErrNoSession
	}
	identity := r.identity
	r.mu.Unlock()

	draft := domain.Draft{
		Content:      trimmed,
		SenderID:     identity.ID,
		SenderName:   identity.DisplayName,
		SenderAvatar: identity.AvatarRef,
	}
	if _, err := r.api.InsertMessage(ctx, draft); err != nil {
		return errors.TransportError{Op: "send", Err: err}
	}
	return nil
}

// EndSession releases the subscription, clears the store, and returns to
// idle. A fetch still in flight for this session is discarded when it
// resolves, via the epoch check.
func (r *Reconciler) EndSession() {
	r.mu.Lock()
	if r.phase == phaseIdle {
		r.mu.Unlock()
		return
	}
	r.phase = phaseIdle
	r.epoch++
	cancel := r.cancel
	adapter := r.adapter
	r.cancel = nil
	r.adapter = nil
	r.buffer = nil
	r.identity = domain.Identity{}
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if adapter != nil {
		_ = adapter.Close()
	}
	r.store.Clear()
	r.log.Info("Session ended")
}

// Messages returns the current ordered snapshot.
func (r *Reconciler) Messages() []domain.Message {
	return r.store.Snapshot()
}

// Loading reports whether the initial bounded fetch of the current session
// is still in flight.
func (r *Reconciler) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase == phaseLoading
}

// Consume receives one normalized event from the change stream. Events
// arriving before the initial fetch completes are buffered and replayed
// idempotently right after initialization.
func (r *Reconciler) Consume(_ context.Context, e event.ChangeEvent) error {
	r.mu.Lock()
	applied := false
	switch r.phase {
	case phaseLoading:
		r.buffer = append(r.buffer, e)
	case phaseLive:
		r.applyLocked(e)
		applied = true
	default:
		r.log.Debug("Dropping event outside of a session", "id", e.MessageID())
	}
	cb := r.onApply
	r.mu.Unlock()

	if applied && cb != nil {
		cb(e)
	}
	return nil
}

func (r *Reconciler) applyLocked(e event.ChangeEvent) {
	switch evt := e.(type) {
	case event.MessageInserted:
		cutoff := r.clock().Add(-r.retention)
		if evt.Message.CreatedAt.Before(cutoff) {
			r.log.Debug("Ignoring insert past the retention window", "id", evt.Message.ID)
			return
		}
		r.store.Insert(evt.Message)
	case event.MessageDeleted:
		r.store.Remove(evt.ID)
	}
}

// boundedFetch requests all messages newer than the retention cutoff,
// retrying with exponential backoff until it succeeds or ctx ends.
func (r *Reconciler) boundedFetch(ctx context.Context) ([]domain.Message, error) {
	delay := r.backoffMin
	for {
		since := r.clock().Add(-r.retention)
		records, err := r.api.ListMessages(ctx, since)
		if err == nil {
			return records, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		r.log.Warn("Bounded fetch failed, retrying",
			"delay", delay, "error", errors.TransportError{Op: "fetch", Err: err})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > r.backoffMax {
			delay = r.backoffMax
		}
	}
}

func (r *Reconciler) watchResync(ctx context.Context, epoch uint64, adapter *stream.Adapter) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-adapter.Resync():
			r.log.Info("Transport re-established, reconciling gap")
			r.resync(ctx, epoch)
		}
	}
}

// resync re-runs the bounded fetch after a reconnection and merges the
// result through idempotent Insert/Remove. It never calls Initialize once
// the feed is live, so already-seen messages do not flicker.
func (r *Reconciler) resync(ctx context.Context, epoch uint64) {
	start := r.clock()
	records, err := r.boundedFetch(ctx)
	if err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch != epoch || r.phase != phaseLive {
		// Either the session moved on or the initial load is still in
		// flight; in the latter case its own buffered replay covers the gap.
		return
	}

	fetched := make(map[uuid.UUID]struct{}, len(records))
	for _, m := range records {
		r.store.Insert(m)
		fetched[m.ID] = struct{}{}
	}

	// Rows deleted while disconnected: still held locally, absent from the
	// fresh snapshot, and older than the snapshot request.
	for _, m := range r.store.Snapshot() {
		if _, ok := fetched[m.ID]; !ok && m.CreatedAt.Before(start) {
			r.store.Remove(m.ID)
		}
	}
}

func (r *Reconciler) abortStart(epoch uint64, cancel context.CancelFunc) {
	r.mu.Lock()
	if r.epoch == epoch && r.phase == phaseLoading {
		r.phase = phaseIdle
		r.cancel = nil
		r.adapter = nil
		r.buffer = nil
	}
	r.mu.Unlock()
	cancel()
}
