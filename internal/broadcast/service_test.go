package broadcast_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pushledger/pushledger/internal/broadcast"
	"github.com/pushledger/pushledger/internal/device"
	"github.com/pushledger/pushledger/internal/store"
)

type fixture struct {
	devices    *device.Service
	broadcasts *broadcast.Service
}

func newFixture() fixture {
	s := store.NewMemoryStore()
	return fixture{
		devices:    device.NewService(s),
		broadcasts: broadcast.NewService(s),
	}
}

func (f fixture) register(t *testing.T, token string) string {
	t.Helper()
	id, _, err := f.devices.Register(context.Background(), &device.RegisterInput{Token: token})
	if err != nil {
		t.Fatalf("register %s: %v", token, err)
	}
	return id
}

func TestService_Send(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	d1 := f.register(t, "t1")
	d2 := f.register(t, "t2")

	b, err := f.broadcasts.Send(ctx, "Title", "Hello", "", map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if !strings.HasPrefix(b.ID, "bct_") {
		t.Errorf("expected broadcast id to start with 'bct_', got %q", b.ID)
	}
	if b.Type != broadcast.DefaultType {
		t.Errorf("expected default type info, got %q", b.Type)
	}
	if len(b.Recipients) != 2 || b.Recipients[0] != d1 || b.Recipients[1] != d2 {
		t.Errorf("expected recipients [%s %s], got %v", d1, d2, b.Recipients)
	}
	if len(b.ReceivedBy) != 0 {
		t.Errorf("expected receivedBy to start empty, got %v", b.ReceivedBy)
	}
	if b.Data["source"] != "broadcast" || b.Data["broadcastId"] != b.ID {
		t.Errorf("expected data stamped with source marker and id, got %v", b.Data)
	}
	if b.Data["k"] != "v" {
		t.Errorf("expected caller payload preserved, got %v", b.Data)
	}
}

func TestService_Send_ValidationErrors(t *testing.T) {
	f := newFixture()
	f.register(t, "t1")

	_, err := f.broadcasts.Send(context.Background(), "", "", "", nil)

	var ve *broadcast.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Errors) != 2 {
		t.Errorf("expected title and message field errors, got %+v", ve.Errors)
	}
}

func TestService_Send_NoDevicesCreatesNoRecord(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.broadcasts.Send(ctx, "Title", "Hello", "", nil)
	if !errors.Is(err, broadcast.ErrNoDevices) {
		t.Fatalf("expected ErrNoDevices, got %v", err)
	}

	broadcasts, _ := f.broadcasts.List(ctx)
	if len(broadcasts) != 0 {
		t.Errorf("expected no broadcast record, got %v", broadcasts)
	}
}

func TestService_Send_RecipientsAreSnapshot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.register(t, "t1")
	b, err := f.broadcasts.Send(ctx, "Title", "Hello", "", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	f.register(t, "t2")

	broadcasts, _ := f.broadcasts.List(ctx)
	if len(broadcasts[0].Recipients) != len(b.Recipients) {
		t.Error("expected recipient list frozen at send time")
	}
}

func TestService_MarkReceived(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	d1 := f.register(t, "t1")
	b, err := f.broadcasts.Send(ctx, "Title", "Hello", "", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	// Repeated confirmations never duplicate.
	for i := 0; i < 3; i++ {
		if err := f.broadcasts.MarkReceived(ctx, b.ID, d1); err != nil {
			t.Fatalf("mark received (%d): %v", i, err)
		}
	}

	broadcasts, _ := f.broadcasts.List(ctx)
	if got := broadcasts[0].ReceivedBy; len(got) != 1 || got[0] != d1 {
		t.Errorf("expected receivedBy [%s], got %v", d1, got)
	}
}

func TestService_MarkReceived_Errors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.register(t, "t1")

	if err := f.broadcasts.MarkReceived(ctx, "bct_missing", "dev_x"); !errors.Is(err, broadcast.ErrBroadcastNotFound) {
		t.Errorf("expected ErrBroadcastNotFound, got %v", err)
	}

	var ve *broadcast.ValidationError
	if err := f.broadcasts.MarkReceived(ctx, "", ""); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Errors) != 2 {
		t.Errorf("expected broadcastId and deviceId field errors, got %+v", ve.Errors)
	}
}

func TestService_Recent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.register(t, "t1")

	// Seed with distinct send times by sending in order; SentAt is
	// monotonic enough for ordering because each Send stamps time.Now.
	var ids []string
	for _, title := range []string{"first", "second", "third"} {
		b, err := f.broadcasts.Send(ctx, title, "m", "", nil)
		if err != nil {
			t.Fatalf("send %s: %v", title, err)
		}
		ids = append(ids, b.ID)
		time.Sleep(2 * time.Millisecond)
	}

	recent, err := f.broadcasts.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected limit applied, got %d", len(recent))
	}
	if recent[0].ID != ids[2] || recent[1].ID != ids[1] {
		t.Errorf("expected newest first [%s %s], got [%s %s]", ids[2], ids[1], recent[0].ID, recent[1].ID)
	}

	all, err := f.broadcasts.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent default: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected default limit to cover all 3, got %d", len(all))
	}
}
