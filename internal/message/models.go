// Package message provides the pending-message queue, the pending-to-sent
// transition with recipient fan-out, and per-recipient read receipts.
package message

import (
	"errors"
	"time"

	"github.com/pushledger/pushledger/internal/api/models"
)

// Lifecycle errors.
var (
	ErrNoDevices         = errors.New("no devices registered")
	ErrMessageNotFound   = errors.New("message not found")
	ErrNoMatchingDevices = errors.New("no matching devices")
	ErrRecipientNotFound = errors.New("recipient not found")
)

// Message statuses. A message moves from pending to sent exactly once;
// sent is terminal.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusRead    = "read"
)

// Target types recorded on a sent message.
const (
	TargetAll      = "all"
	TargetSpecific = "specific"
)

// Pending is a composed message waiting in the queue.
type Pending struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Recipient is one delivery entry on a sent message. Token and UserID are
// snapshots taken at send time; later device mutation does not propagate.
type Recipient struct {
	DeviceID string     `json:"deviceId"`
	Token    string     `json:"token"`
	UserID   string     `json:"userId,omitempty"`
	Status   string     `json:"status"`
	ReadAt   *time.Time `json:"readAt"`
}

// Sent is a message after fan-out. Only a recipient's Status/ReadAt pair is
// ever mutated afterwards; sent records are never deleted.
type Sent struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Data       map[string]any `json:"data,omitempty"`
	Status     string         `json:"status"`
	TargetType string         `json:"targetType"`
	CreatedAt  time.Time      `json:"createdAt"`
	SentAt     time.Time      `json:"sentAt"`
	Recipients []Recipient    `json:"recipients"`
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
