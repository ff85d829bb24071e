package event

import (
	"encoding/json"

	"sealtalk/domain"

	"github.com/google/uuid"
)

// Op is the row-level operation reported by the platform change stream.
type Op string

const (
	OpInsert Op = "INSERT"
	OpDelete Op = "DELETE"
)

// RawChange is a change notification as handed over by the transport,
// before normalization. Record holds the new row for inserts and the
// old row for deletes.
type RawChange struct {
	Op     Op
	Record json.RawMessage
}

// ChangeEvent is a normalized change applied to the local feed.
type ChangeEvent interface {
	MessageID() uuid.UUID
}

type MessageInserted struct {
	Message domain.Message
}

func (e MessageInserted) MessageID() uuid.UUID {
	return e.Message.ID
}

type MessageDeleted struct {
	ID uuid.UUID
}

func (e MessageDeleted) MessageID() uuid.UUID {
	return e.ID
}
