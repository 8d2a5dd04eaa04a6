// Package device provides the device registry and the derived user view.
package device

import (
	"errors"
	"time"

	"github.com/pushledger/pushledger/internal/api/models"
)

// Registry errors.
var (
	ErrUserNotFound = errors.New("user not found")
)

// DefaultPlatform is assumed when a registration omits the platform tag.
const DefaultPlatform = "android"

// Device is a registered push target, keyed by token: re-registering a known
// token updates the record in place, so the collection holds at most one
// record per token. Records are never deleted.
type Device struct {
	ID         string         `json:"id"`
	Token      string         `json:"token"`
	UserID     string         `json:"userId,omitempty"`
	Platform   string         `json:"platform"`
	Name       string         `json:"name,omitempty"`
	Email      string         `json:"email,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	LastSeen   time.Time      `json:"lastSeen"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// User is a read-only projection of devices sharing a userId. It has no
// backing store: a user with zero devices does not exist.
type User struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	DeviceCount int      `json:"deviceCount"`
	DeviceIDs   []string `json:"deviceIds"`
}

// RegisterInput carries a device registration. Optional fields are pointers
// so that only fields present in the request are applied on re-registration.
// Identity fields (id, createdAt) are always server-generated; the registry
// never honors caller-supplied values for them.
type RegisterInput struct {
	Token      string
	UserID     *string
	Platform   *string
	Name       *string
	Email      *string
	Attributes map[string]any
}

// UserUpsertInput carries a user upsert. Updates fan out to every device
// owned by the user; with zero devices and a token present, a device is
// synthesized instead.
type UserUpsertInput struct {
	ID    string
	Token *string
	Name  *string
	Email *string
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
