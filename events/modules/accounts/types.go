// Package accounts defines the account lifecycle events published to Kafka.
package accounts

import (
	"time"

	"github.com/echolearn/echolearn-backend/model"
)

// EventType names what happened to an account
type EventType string

// Account lifecycle events
const (
	EventRegistered      EventType = "account.registered"
	EventLocked          EventType = "account.locked"
	EventPasswordChanged EventType = "account.password_changed"
	EventRoleChanged     EventType = "account.role_changed"
	EventActivated       EventType = "account.activated"
	EventDeactivated     EventType = "account.deactivated"
	EventDeleted         EventType = "account.deleted"
)

// SchemaVersion is stamped on every event
const SchemaVersion = "v1"

// AccountEvent is the message value written to the account events topic.
type AccountEvent struct {
	EventType     EventType `json:"event_type"`
	EventID       string    `json:"event_id"`
	EventTime     time.Time `json:"event_time"`
	SchemaVersion string    `json:"schema_version"`

	Account AccountRef `json:"account"`

	// Actor is the admin who made the change, empty for self-service events
	Actor string `json:"actor,omitempty"`
}

// AccountRef identifies the account an event is about. It never carries
// credentials or tokens.
type AccountRef struct {
	ID       string     `json:"id"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	IsActive bool       `json:"is_active"`

	LockedUntil *time.Time `json:"locked_until,omitempty"`
}
