package broadcast

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pushledger/pushledger/internal/api/models"
	"github.com/pushledger/pushledger/internal/device"
	"github.com/pushledger/pushledger/internal/store"
)

// Service provides broadcast operations.
type Service struct {
	store store.Store
}

// NewService creates a new broadcast service.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Send creates a broadcast addressed to every currently registered device.
// With an empty registry no record is created. The data payload is stamped
// with a source marker and the broadcast's own id.
func (s *Service) Send(ctx context.Context, title, msg, typ string, data map[string]any) (*Broadcast, error) {
	var fieldErrors []models.FieldError
	if title == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "title", Message: "is required"})
	}
	if msg == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "message", Message: "is required"})
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}
	if typ == "" {
		typ = DefaultType
	}

	var record *Broadcast
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var devices []device.Device
		if err := tx.Load(store.Devices, &devices); err != nil {
			return err
		}
		if len(devices) == 0 {
			return ErrNoDevices
		}

		recipients := make([]string, 0, len(devices))
		for _, d := range devices {
			recipients = append(recipients, d.ID)
		}

		id := newBroadcastID()
		payload := make(map[string]any, len(data)+2)
		for k, v := range data {
			payload[k] = v
		}
		payload["source"] = "broadcast"
		payload["broadcastId"] = id

		b := Broadcast{
			ID:         id,
			Title:      title,
			Message:    msg,
			Type:       typ,
			Data:       payload,
			SentAt:     time.Now(),
			Recipients: recipients,
			ReceivedBy: []string{},
		}
		record = &b

		var broadcasts []Broadcast
		if err := tx.Load(store.Broadcasts, &broadcasts); err != nil {
			return err
		}
		return tx.Save(store.Broadcasts, append(broadcasts, b))
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns the full broadcasts collection in insertion order.
func (s *Service) List(ctx context.Context) ([]Broadcast, error) {
	var broadcasts []Broadcast
	if err := s.store.Load(ctx, store.Broadcasts, &broadcasts); err != nil {
		return nil, err
	}
	if broadcasts == nil {
		broadcasts = []Broadcast{}
	}
	return broadcasts, nil
}

// Recent returns the most recently sent broadcasts, newest first. The sort
// is stable, so broadcasts sharing a timestamp keep insertion order.
func (s *Service) Recent(ctx context.Context, limit int) ([]Broadcast, error) {
	broadcasts, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	sort.SliceStable(broadcasts, func(i, j int) bool {
		return broadcasts[i].SentAt.After(broadcasts[j].SentAt)
	})
	if len(broadcasts) > limit {
		broadcasts = broadcasts[:limit]
	}
	return broadcasts, nil
}

// MarkReceived appends deviceID to the broadcast's receivedBy set. Repeat
// confirmations are idempotent no-ops.
func (s *Service) MarkReceived(ctx context.Context, broadcastID, deviceID string) error {
	var fieldErrors []models.FieldError
	if broadcastID == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "broadcastId", Message: "is required"})
	}
	if deviceID == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "deviceId", Message: "is required"})
	}
	if len(fieldErrors) > 0 {
		return &ValidationError{Errors: fieldErrors}
	}

	return s.store.Update(ctx, func(tx store.Tx) error {
		var broadcasts []Broadcast
		if err := tx.Load(store.Broadcasts, &broadcasts); err != nil {
			return err
		}

		for i := range broadcasts {
			if broadcasts[i].ID != broadcastID {
				continue
			}
			for _, confirmed := range broadcasts[i].ReceivedBy {
				if confirmed == deviceID {
					return nil
				}
			}
			broadcasts[i].ReceivedBy = append(broadcasts[i].ReceivedBy, deviceID)
			return tx.Save(store.Broadcasts, broadcasts)
		}
		return ErrBroadcastNotFound
	})
}

// newBroadcastID generates a prefixed broadcast identifier.
func newBroadcastID() string {
	return "bct_" + uuid.New().String()[:22]
}
