// Package domain contains core concepts of the chat feed.
// This file defines the Message record and its rules.
// Messages are immutable once created; the table supports only insert/delete.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxContentLength bounds the content of a single message, in runes.
	MaxContentLength = 4000

	// RetentionWindow is how long a message stays visible before the
	// platform's scheduled job purges it server-side.
	RetentionWindow = 24 * time.Hour
)

// Message represents one immutable chat utterance.
// ID and CreatedAt are assigned by the platform at insert time.
// Sender attributes are denormalized at send time and never live-updated.
type Message struct {
	ID           uuid.UUID `json:"id"`
	Content      string    `json:"content"`
	SenderID     string    `json:"sender_id"`
	SenderName   string    `json:"sender_name"`
	SenderAvatar string    `json:"sender_avatar"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate reports whether the record carries every required field.
func (m Message) Validate() error {
	if m.ID == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if m.Content == "" {
		return fmt.Errorf("missing content")
	}
	if m.SenderID == "" {
		return fmt.Errorf("missing sender_id")
	}
	if m.CreatedAt.IsZero() {
		return fmt.Errorf("missing created_at")
	}
	return nil
}

// Draft is an outbound message before the platform assigns id and timestamp.
type Draft struct {
	Content      string `json:"content"`
	SenderID     string `json:"sender_id"`
	SenderName   string `json:"sender_name"`
	SenderAvatar string `json:"sender_avatar"`
}
