package message_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pushledger/pushledger/internal/device"
	"github.com/pushledger/pushledger/internal/message"
	"github.com/pushledger/pushledger/internal/store"
)

func strPtr(s string) *string { return &s }

type fixture struct {
	devices  *device.Service
	messages *message.Service
}

func newFixture() fixture {
	s := store.NewMemoryStore()
	return fixture{
		devices:  device.NewService(s),
		messages: message.NewService(s),
	}
}

func (f fixture) register(t *testing.T, token, userID string) {
	t.Helper()
	input := &device.RegisterInput{Token: token}
	if userID != "" {
		input.UserID = strPtr(userID)
	}
	if _, _, err := f.devices.Register(context.Background(), input); err != nil {
		t.Fatalf("register %s: %v", token, err)
	}
}

func (f fixture) compose(t *testing.T, title, body string) *message.Pending {
	t.Helper()
	msg, err := f.messages.Create(context.Background(), title, body, nil)
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	return msg
}

func TestService_Create(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	msg, err := f.messages.Create(ctx, "A", "B", map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("expected message id to start with 'msg_', got %q", msg.ID)
	}
	if msg.Status != message.StatusPending {
		t.Errorf("expected status pending, got %q", msg.Status)
	}

	pending, err := f.messages.ListPending(ctx)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != msg.ID {
		t.Errorf("expected queue to hold the new message, got %v", pending)
	}
}

func TestService_Create_ValidationErrors(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name       string
		title      string
		body       string
		wantFields []string
	}{
		{name: "missing title", body: "B", wantFields: []string{"title"}},
		{name: "missing body", title: "A", wantFields: []string{"body"}},
		{name: "missing both", wantFields: []string{"title", "body"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.messages.Create(context.Background(), tt.title, tt.body, nil)

			var ve *message.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(ve.Errors) != len(tt.wantFields) {
				t.Fatalf("expected %d field errors, got %+v", len(tt.wantFields), ve.Errors)
			}
			for i, field := range tt.wantFields {
				if ve.Errors[i].Field != field {
					t.Errorf("expected field %q, got %q", field, ve.Errors[i].Field)
				}
			}
		})
	}
}

func TestService_Send(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.register(t, "t1", "u1")
	f.register(t, "t2", "")
	msg := f.compose(t, "A", "B")

	sent, err := f.messages.Send(ctx, msg.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if sent.Status != message.StatusSent {
		t.Errorf("expected status sent, got %q", sent.Status)
	}
	if sent.TargetType != message.TargetAll {
		t.Errorf("expected target type all, got %q", sent.TargetType)
	}
	if len(sent.Recipients) != 2 {
		t.Fatalf("expected 2 recipients, got %d", len(sent.Recipients))
	}
	for _, r := range sent.Recipients {
		if r.Status != message.StatusSent {
			t.Errorf("expected recipient status sent, got %q", r.Status)
		}
		if r.ReadAt != nil {
			t.Error("expected readAt to start null")
		}
	}

	pending, _ := f.messages.ListPending(ctx)
	if len(pending) != 0 {
		t.Errorf("expected pending queue drained, got %v", pending)
	}
	sentList, _ := f.messages.ListSent(ctx)
	if len(sentList) != 1 || sentList[0].ID != msg.ID {
		t.Errorf("expected the message in sent exactly once, got %v", sentList)
	}
}

func TestService_Send_ChecksDevicesBeforeMessage(t *testing.T) {
	f := newFixture()

	// Empty registry wins even when the message id is also unknown.
	_, err := f.messages.Send(context.Background(), "msg_missing")
	if !errors.Is(err, message.ErrNoDevices) {
		t.Errorf("expected ErrNoDevices, got %v", err)
	}
}

func TestService_Send_UnknownMessage(t *testing.T) {
	f := newFixture()
	f.register(t, "t1", "")

	_, err := f.messages.Send(context.Background(), "msg_missing")
	if !errors.Is(err, message.ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestService_Send_RecipientsAreSnapshot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.register(t, "t1", "u1")
	msg := f.compose(t, "A", "B")

	sent, err := f.messages.Send(ctx, msg.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	// Registrations after the send never appear on the sent record, and a
	// token rotation does not propagate into the snapshot.
	f.register(t, "t2", "u2")
	f.register(t, "t1-rotated", "u1")

	sentList, _ := f.messages.ListSent(ctx)
	if len(sentList[0].Recipients) != len(sent.Recipients) {
		t.Errorf("expected recipient list frozen at send time")
	}
	if sentList[0].Recipients[0].Token != "t1" {
		t.Errorf("expected token snapshot t1, got %q", sentList[0].Recipients[0].Token)
	}
}

func TestService_SendTargeted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.register(t, "t1", "u1")
	f.register(t, "t2", "u2")
	f.register(t, "t3", "u2")
	msg := f.compose(t, "A", "B")

	sent, err := f.messages.SendTargeted(ctx, msg.ID, []string{"u2"})
	if err != nil {
		t.Fatalf("send targeted: %v", err)
	}
	if sent.TargetType != message.TargetSpecific {
		t.Errorf("expected target type specific, got %q", sent.TargetType)
	}
	if len(sent.Recipients) != 2 {
		t.Fatalf("expected 2 recipients, got %d", len(sent.Recipients))
	}
	for _, r := range sent.Recipients {
		if r.UserID != "u2" {
			t.Errorf("expected only u2 devices, got %q", r.UserID)
		}
	}
}

func TestService_SendTargeted_EmptyTargetsMeansAll(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.register(t, "t1", "u1")
	f.register(t, "t2", "")
	msg := f.compose(t, "A", "B")

	sent, err := f.messages.SendTargeted(ctx, msg.ID, nil)
	if err != nil {
		t.Fatalf("send targeted: %v", err)
	}
	if sent.TargetType != message.TargetAll {
		t.Errorf("expected target type all, got %q", sent.TargetType)
	}
	if len(sent.Recipients) != 2 {
		t.Errorf("expected fan-out to every device, got %d recipients", len(sent.Recipients))
	}
}

func TestService_SendTargeted_NoMatchLeavesMessagePending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.register(t, "t1", "u1")
	msg := f.compose(t, "A", "B")

	_, err := f.messages.SendTargeted(ctx, msg.ID, []string{"u9"})
	if !errors.Is(err, message.ErrNoMatchingDevices) {
		t.Fatalf("expected ErrNoMatchingDevices, got %v", err)
	}

	pending, _ := f.messages.ListPending(ctx)
	if len(pending) != 1 || pending[0].ID != msg.ID {
		t.Errorf("expected message to remain pending, got %v", pending)
	}
	sentList, _ := f.messages.ListSent(ctx)
	if len(sentList) != 0 {
		t.Errorf("expected no sent record, got %v", sentList)
	}
}

func TestService_SendTargeted_MessageIDRequired(t *testing.T) {
	f := newFixture()

	_, err := f.messages.SendTargeted(context.Background(), "", nil)

	var ve *message.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestService_MarkRead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.register(t, "t1", "u1")
	msg := f.compose(t, "A", "B")
	sent, err := f.messages.Send(ctx, msg.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	deviceID := sent.Recipients[0].DeviceID

	if err := f.messages.MarkRead(ctx, msg.ID, deviceID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	sentList, _ := f.messages.ListSent(ctx)
	r := sentList[0].Recipients[0]
	if r.Status != message.StatusRead {
		t.Errorf("expected recipient status read, got %q", r.Status)
	}
	if r.ReadAt == nil {
		t.Fatal("expected readAt to be set")
	}
	firstReadAt := *r.ReadAt

	// Re-marking stays read and overwrites the timestamp without error.
	if err := f.messages.MarkRead(ctx, msg.ID, deviceID); err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	sentList, _ = f.messages.ListSent(ctx)
	r = sentList[0].Recipients[0]
	if r.Status != message.StatusRead {
		t.Errorf("expected status to stay read, got %q", r.Status)
	}
	if r.ReadAt.Before(firstReadAt) {
		t.Error("expected readAt to be overwritten with a later or equal time")
	}
}

func TestService_MarkRead_Errors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.register(t, "t1", "u1")
	msg := f.compose(t, "A", "B")
	if _, err := f.messages.Send(ctx, msg.ID); err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := f.messages.MarkRead(ctx, "msg_missing", "dev_x"); !errors.Is(err, message.ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound, got %v", err)
	}
	if err := f.messages.MarkRead(ctx, msg.ID, "dev_missing"); !errors.Is(err, message.ErrRecipientNotFound) {
		t.Errorf("expected ErrRecipientNotFound, got %v", err)
	}

	var ve *message.ValidationError
	if err := f.messages.MarkRead(ctx, "", ""); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}
