//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"sealtalk/domain"
	"sealtalk/domain/event"
)

// IMessageAPI is the request/response surface of the platform table.
// ListMessages returns rows created at or after since, ascending by
// created_at. InsertMessage submits a draft; the stored row is returned
// but callers must not rely on it for visibility, the echo on the change
// stream is the sole path by which a sent message appears in the feed.
type IMessageAPI interface {
	ListMessages(ctx context.Context, since time.Time) ([]domain.Message, error)
	InsertMessage(ctx context.Context, draft domain.Draft) (domain.Message, error)
}

// IChangeFeed is the platform push channel for one table.
//
// deliver is invoked for every raw change, in the order the platform
// produced them. reset is invoked each time the underlying transport was
// lost and re-established; missed changes are never synthesized, the
// subscriber is expected to resync through IMessageAPI instead.
type IChangeFeed interface {
	Subscribe(ctx context.Context, deliver func(event.RawChange), reset func()) (ISubscription, error)
}

// ISubscription releases the platform channel. Unsubscribe is safe to
// call more than once; every exit path of a session must call it.
type ISubscription interface {
	Unsubscribe() error
}

// ChangeSink consumes normalized change events, one at a time.
type ChangeSink interface {
	Consume(ctx context.Context, e event.ChangeEvent) error
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming on the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
