package device

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pushledger/pushledger/internal/api/models"
	"github.com/pushledger/pushledger/internal/store"
)

// Service provides device registry operations.
type Service struct {
	store store.Store
}

// NewService creates a new device service.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Register registers a device or updates the record holding the same token.
// Returns the resolved device id and whether a new record was created.
func (s *Service) Register(ctx context.Context, input *RegisterInput) (string, bool, error) {
	if input.Token == "" {
		return "", false, &ValidationError{Errors: []models.FieldError{
			{Field: "token", Message: "is required"},
		}}
	}

	var (
		deviceID string
		created  bool
	)
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var devices []Device
		if err := tx.Load(store.Devices, &devices); err != nil {
			return err
		}

		now := time.Now()
		idx := findByToken(devices, input.Token)
		if idx >= 0 {
			applyInput(&devices[idx], input)
			devices[idx].LastSeen = now
			deviceID = devices[idx].ID
		} else {
			d := Device{
				ID:        newDeviceID(),
				Token:     input.Token,
				Platform:  DefaultPlatform,
				CreatedAt: now,
				LastSeen:  now,
			}
			applyInput(&d, input)
			devices = append(devices, d)
			deviceID = d.ID
			created = true
		}

		return tx.Save(store.Devices, devices)
	})
	if err != nil {
		return "", false, err
	}
	return deviceID, created, nil
}

// List returns the full devices collection in insertion order.
func (s *Service) List(ctx context.Context) ([]Device, error) {
	var devices []Device
	if err := s.store.Load(ctx, store.Devices, &devices); err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []Device{}
	}
	return devices, nil
}

// ListUsers derives the user view: devices grouped by owning user, in the
// order their users first appear in the collection. Devices without a userId
// are excluded.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	devices, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	users := []User{}
	index := map[string]int{}
	for _, d := range devices {
		if d.UserID == "" {
			continue
		}
		i, ok := index[d.UserID]
		if !ok {
			i = len(users)
			index[d.UserID] = i
			users = append(users, User{ID: d.UserID, Name: d.UserID})
		}
		users[i].DeviceCount++
		users[i].DeviceIDs = append(users[i].DeviceIDs, d.ID)
		if d.Name != "" {
			users[i].Name = d.Name
		}
		if d.Email != "" && users[i].Email == "" {
			users[i].Email = d.Email
		}
	}
	return users, nil
}

// GetUser returns the derived user for userID. A user with zero devices is
// indistinguishable from a nonexistent one.
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == userID {
			return &users[i], nil
		}
	}
	return nil, ErrUserNotFound
}

// GetUserDevices returns every device owned by userID.
func (s *Service) GetUserDevices(ctx context.Context, userID string) ([]Device, error) {
	devices, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	owned := []Device{}
	for _, d := range devices {
		if d.UserID == userID {
			owned = append(owned, d)
		}
	}
	if len(owned) == 0 {
		return nil, ErrUserNotFound
	}
	return owned, nil
}

// UpsertUser applies name/email/token updates to every device owned by the
// user. When the user owns no devices and a token was supplied, a device is
// synthesized so the user comes into existence.
func (s *Service) UpsertUser(ctx context.Context, input *UserUpsertInput) error {
	if input.ID == "" {
		return &ValidationError{Errors: []models.FieldError{
			{Field: "id", Message: "is required"},
		}}
	}

	return s.store.Update(ctx, func(tx store.Tx) error {
		var devices []Device
		if err := tx.Load(store.Devices, &devices); err != nil {
			return err
		}

		now := time.Now()
		owned := 0
		for i := range devices {
			if devices[i].UserID != input.ID {
				continue
			}
			owned++
			if input.Name != nil {
				devices[i].Name = *input.Name
			}
			if input.Email != nil {
				devices[i].Email = *input.Email
			}
			if input.Token != nil && *input.Token != "" {
				devices[i].Token = *input.Token
			}
			devices[i].LastSeen = now
		}

		if owned == 0 {
			if input.Token == nil || *input.Token == "" {
				return nil
			}
			d := Device{
				ID:        newDeviceID(),
				Token:     *input.Token,
				UserID:    input.ID,
				Platform:  DefaultPlatform,
				CreatedAt: now,
				LastSeen:  now,
			}
			if input.Name != nil {
				d.Name = *input.Name
			}
			if input.Email != nil {
				d.Email = *input.Email
			}
			devices = append(devices, d)
		}

		return tx.Save(store.Devices, devices)
	})
}

// newDeviceID generates a prefixed device identifier.
func newDeviceID() string {
	return "dev_" + uuid.New().String()[:22]
}

// findByToken returns the index of the device holding token, or -1.
func findByToken(devices []Device, token string) int {
	for i := range devices {
		if devices[i].Token == token {
			return i
		}
	}
	return -1
}

// applyInput merges input fields over d; fields present in the input win.
func applyInput(d *Device, input *RegisterInput) {
	if input.UserID != nil {
		d.UserID = *input.UserID
	}
	if input.Platform != nil && *input.Platform != "" {
		d.Platform = *input.Platform
	}
	if input.Name != nil {
		d.Name = *input.Name
	}
	if input.Email != nil {
		d.Email = *input.Email
	}
	if len(input.Attributes) > 0 {
		if d.Attributes == nil {
			d.Attributes = make(map[string]any, len(input.Attributes))
		}
		for k, v := range input.Attributes {
			d.Attributes[k] = v
		}
	}
}
