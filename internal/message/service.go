package message

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pushledger/pushledger/internal/api/models"
	"github.com/pushledger/pushledger/internal/device"
	"github.com/pushledger/pushledger/internal/store"
)

// Service provides message lifecycle operations.
type Service struct {
	store store.Store
}

// NewService creates a new message service.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Create appends a pending message to the queue.
func (s *Service) Create(ctx context.Context, title, body string, data map[string]any) (*Pending, error) {
	var fieldErrors []models.FieldError
	if title == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "title", Message: "is required"})
	}
	if body == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "body", Message: "is required"})
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	msg := Pending{
		ID:        newMessageID(),
		Title:     title,
		Body:      body,
		Data:      data,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	err := s.store.Update(ctx, func(tx store.Tx) error {
		var pending []Pending
		if err := tx.Load(store.Pending, &pending); err != nil {
			return err
		}
		return tx.Save(store.Pending, append(pending, msg))
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Send transitions a pending message to sent, fanning out to every
// registered device. The registry-empty check deliberately precedes the
// message lookup. The remove and the append happen in one store update, so
// a message can never be sent twice and callers never observe it in both
// collections.
func (s *Service) Send(ctx context.Context, messageID string) (*Sent, error) {
	var sent *Sent
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var devices []device.Device
		if err := tx.Load(store.Devices, &devices); err != nil {
			return err
		}
		if len(devices) == 0 {
			return ErrNoDevices
		}

		var pending []Pending
		if err := tx.Load(store.Pending, &pending); err != nil {
			return err
		}
		idx := findPending(pending, messageID)
		if idx < 0 {
			return ErrMessageNotFound
		}

		record := buildSent(pending[idx], devices, TargetAll)
		sent = &record

		if err := tx.Save(store.Pending, append(pending[:idx], pending[idx+1:]...)); err != nil {
			return err
		}
		return s.appendSent(tx, record)
	})
	if err != nil {
		return nil, err
	}
	return sent, nil
}

// SendTargeted transitions a pending message to sent, fanning out to the
// devices whose owning user is in targetUserIDs. An empty target set falls
// back to every device. When the selection is empty the message stays in
// the pending queue untouched.
func (s *Service) SendTargeted(ctx context.Context, messageID string, targetUserIDs []string) (*Sent, error) {
	if messageID == "" {
		return nil, &ValidationError{Errors: []models.FieldError{
			{Field: "messageId", Message: "is required"},
		}}
	}

	var sent *Sent
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var pending []Pending
		if err := tx.Load(store.Pending, &pending); err != nil {
			return err
		}
		idx := findPending(pending, messageID)
		if idx < 0 {
			return ErrMessageNotFound
		}

		var devices []device.Device
		if err := tx.Load(store.Devices, &devices); err != nil {
			return err
		}

		targetType := TargetAll
		selected := devices
		if len(targetUserIDs) > 0 {
			targetType = TargetSpecific
			selected = selectByUser(devices, targetUserIDs)
		}
		if len(selected) == 0 {
			return ErrNoMatchingDevices
		}

		record := buildSent(pending[idx], selected, targetType)
		sent = &record

		if err := tx.Save(store.Pending, append(pending[:idx], pending[idx+1:]...)); err != nil {
			return err
		}
		return s.appendSent(tx, record)
	})
	if err != nil {
		return nil, err
	}
	return sent, nil
}

// MarkRead flips one recipient entry on a sent message to read. Re-marking
// overwrites the read timestamp and never errors.
func (s *Service) MarkRead(ctx context.Context, messageID, deviceID string) error {
	var fieldErrors []models.FieldError
	if messageID == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "messageId", Message: "is required"})
	}
	if deviceID == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "deviceId", Message: "is required"})
	}
	if len(fieldErrors) > 0 {
		return &ValidationError{Errors: fieldErrors}
	}

	return s.store.Update(ctx, func(tx store.Tx) error {
		var sent []Sent
		if err := tx.Load(store.Sent, &sent); err != nil {
			return err
		}

		msgIdx := -1
		for i := range sent {
			if sent[i].ID == messageID {
				msgIdx = i
				break
			}
		}
		if msgIdx < 0 {
			return ErrMessageNotFound
		}

		recipients := sent[msgIdx].Recipients
		for i := range recipients {
			if recipients[i].DeviceID == deviceID {
				now := time.Now()
				recipients[i].Status = StatusRead
				recipients[i].ReadAt = &now
				return tx.Save(store.Sent, sent)
			}
		}
		return ErrRecipientNotFound
	})
}

// ListPending returns the pending queue in insertion order.
func (s *Service) ListPending(ctx context.Context) ([]Pending, error) {
	var pending []Pending
	if err := s.store.Load(ctx, store.Pending, &pending); err != nil {
		return nil, err
	}
	if pending == nil {
		pending = []Pending{}
	}
	return pending, nil
}

// ListSent returns the sent collection in insertion order.
func (s *Service) ListSent(ctx context.Context) ([]Sent, error) {
	var sent []Sent
	if err := s.store.Load(ctx, store.Sent, &sent); err != nil {
		return nil, err
	}
	if sent == nil {
		sent = []Sent{}
	}
	return sent, nil
}

func (s *Service) appendSent(tx store.Tx, record Sent) error {
	var sent []Sent
	if err := tx.Load(store.Sent, &sent); err != nil {
		return err
	}
	return tx.Save(store.Sent, append(sent, record))
}

// buildSent snapshots the selected devices into recipient entries.
func buildSent(msg Pending, devices []device.Device, targetType string) Sent {
	recipients := make([]Recipient, 0, len(devices))
	for _, d := range devices {
		recipients = append(recipients, Recipient{
			DeviceID: d.ID,
			Token:    d.Token,
			UserID:   d.UserID,
			Status:   StatusSent,
		})
	}

	return Sent{
		ID:         msg.ID,
		Title:      msg.Title,
		Body:       msg.Body,
		Data:       msg.Data,
		Status:     StatusSent,
		TargetType: targetType,
		CreatedAt:  msg.CreatedAt,
		SentAt:     time.Now(),
		Recipients: recipients,
	}
}

func selectByUser(devices []device.Device, userIDs []string) []device.Device {
	targets := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		targets[id] = true
	}

	var selected []device.Device
	for _, d := range devices {
		if d.UserID != "" && targets[d.UserID] {
			selected = append(selected, d)
		}
	}
	return selected
}

func findPending(pending []Pending, id string) int {
	for i := range pending {
		if pending[i].ID == id {
			return i
		}
	}
	return -1
}

// newMessageID generates a prefixed message identifier.
func newMessageID() string {
	return "msg_" + uuid.New().String()[:22]
}
