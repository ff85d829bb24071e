package errors

import "fmt"

var (
	ErrSessionActive  = fmt.Errorf("a session is already active")
	ErrNoSession      = fmt.Errorf("no active session")
	ErrEmptyContent   = fmt.Errorf("message content is empty")
	ErrContentTooLong = fmt.Errorf("message content exceeds the maximum length")
	ErrStaleFetch     = fmt.Errorf("fetch resolved after its session ended")
	ErrWorkerPanic    = fmt.Errorf("worker panic")
)

// ValidationError reports bad local input. It is returned synchronously,
// before any network call is attempted.
type ValidationError struct {
	Reason error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Reason)
}

func (e ValidationError) Unwrap() error { return e.Reason }

// TransportError wraps a failed exchange with the platform (fetch, send,
// subscribe). The background resync path retries these; Send surfaces them.
type TransportError struct {
	Op  string
	Err error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e TransportError) Unwrap() error { return e.Err }

// MalformedEventError marks a pushed change that is missing required fields.
// Such events are dropped and logged; they never halt the subscription.
type MalformedEventError struct {
	Op     string
	Reason string
}

func (e MalformedEventError) Error() string {
	return fmt.Sprintf("malformed %s event: %s", e.Op, e.Reason)
}
