// Package broadcast provides broadcast records addressed to every device at
// send time, plus per-device receive confirmations.
package broadcast

import (
	"errors"
	"time"

	"github.com/pushledger/pushledger/internal/api/models"
)

// Broadcast errors.
var (
	ErrNoDevices         = errors.New("no devices registered")
	ErrBroadcastNotFound = errors.New("broadcast not found")
)

// DefaultType is used when a broadcast omits its type tag.
const DefaultType = "info"

// DefaultRecentLimit bounds Recent when no limit is given.
const DefaultRecentLimit = 10

// Broadcast is a message fanned out to every device registered at send time.
// Recipients is frozen at send time; ReceivedBy grows as devices confirm,
// with set semantics. Whether ReceivedBy stays a subset of Recipients is not
// enforced. Records are never deleted.
type Broadcast struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Type       string         `json:"type"`
	Data       map[string]any `json:"data"`
	SentAt     time.Time      `json:"sentAt"`
	Recipients []string       `json:"recipients"`
	ReceivedBy []string       `json:"receivedBy"`
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// FieldErrors returns the per-field validation errors.
func (e *ValidationError) FieldErrors() []models.FieldError {
	return e.Errors
}
