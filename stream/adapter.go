// Package stream presents the platform push channel as a single, ordered,
// lazy sequence of normalized change events for one table, scoped to the
// lifetime of one session.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"sealtalk/contract"
	"sealtalk/domain"
	"sealtalk/domain/event"
	"sealtalk/errors"

	"github.com/google/uuid"
)

// Adapter serializes raw changes into one channel and delivers normalized
// events to its sinks one at a time, in arrival order, even if the
// underlying transport delivers concurrently. This preserves the store's
// single-writer invariant.
//
// The adapter never synthesizes missed events. When the transport is
// re-established after a disconnect, a tick is published on Resync so the
// reconciler can re-run its bounded fetch.
type Adapter struct {
	log    *slog.Logger
	feed   contract.IChangeFeed
	sinks  []contract.ChangeSink
	raw    chan event.RawChange
	resync chan struct{}

	mu        sync.Mutex
	sub       contract.ISubscription
	done      chan struct{}
	closeOnce sync.Once
}

func NewAdapter(log *slog.Logger, feed contract.IChangeFeed, bufferSize int, sinks ...contract.ChangeSink) *Adapter {
	return &Adapter{
		log:    log,
		feed:   feed,
		sinks:  sinks,
		raw:    make(chan event.RawChange, bufferSize),
		resync: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Open acquires the platform subscription. It must be paired with Close on
// every exit path of the session that acquired it.
func (a *Adapter) Open(ctx context.Context) error {
	sub, err := a.feed.Subscribe(ctx, a.deliver, a.notifyResync)
	if err != nil {
		return errors.TransportError{Op: "subscribe", Err: err}
	}

	a.mu.Lock()
	a.sub = sub
	a.mu.Unlock()
	return nil
}

// deliver runs on whatever goroutine the transport reads from. It only
// enqueues; normalization and sink handling happen on the pump goroutine.
func (a *Adapter) deliver(r event.RawChange) {
	select {
	case a.raw <- r:
	case <-a.done:
	}
}

func (a *Adapter) notifyResync() {
	select {
	case a.resync <- struct{}{}:
	default:
		// A resync is already pending; one bounded fetch covers both gaps.
	}
}

// Resync ticks once per transport reconnection.
func (a *Adapter) Resync() <-chan struct{} {
	return a.resync
}

// Run pumps raw changes to the sinks until the context ends. A malformed
// change is dropped and logged; a failing sink is logged; neither halts
// the subscription.
func (a *Adapter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			a.log.Debug("Context done, stopping change pump")
			return nil
		case r := <-a.raw:
			evt, err := Normalize(r)
			if err != nil {
				a.log.Warn("Dropping change event", "error", err)
				continue
			}
			for _, sink := range a.sinks {
				if err := sink.Consume(ctx, evt); err != nil {
					a.log.Error("Sink failed to consume change event",
						"id", evt.MessageID(), "error", err)
				}
			}
		}
	}
}

// Close releases the platform channel. Safe to call more than once.
func (a *Adapter) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.done)
		a.mu.Lock()
		sub := a.sub
		a.mu.Unlock()
		if sub != nil {
			err = sub.Unsubscribe()
		}
	})
	return err
}

// Normalize translates one raw change into a ChangeEvent.
func Normalize(r event.RawChange) (event.ChangeEvent, error) {
	switch r.Op {
	case event.OpInsert:
		var m domain.Message
		if err := json.Unmarshal(r.Record, &m); err != nil {
			return nil, errors.MalformedEventError{Op: "insert", Reason: err.Error()}
		}
		if err := m.Validate(); err != nil {
			return nil, errors.MalformedEventError{Op: "insert", Reason: err.Error()}
		}
		return event.MessageInserted{Message: m}, nil

	case event.OpDelete:
		var old struct {
			ID uuid.UUID `json:"id"`
		}
		if err := json.Unmarshal(r.Record, &old); err != nil {
			return nil, errors.MalformedEventError{Op: "delete", Reason: err.Error()}
		}
		if old.ID == uuid.Nil {
			return nil, errors.MalformedEventError{Op: "delete", Reason: "missing id"}
		}
		return event.MessageDeleted{ID: old.ID}, nil

	default:
		return nil, errors.MalformedEventError{Op: string(r.Op), Reason: "unknown operation"}
	}
}
