package models

// MessageCreateRequest is the body for POST /api/messages.
type MessageCreateRequest struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// MessageSendRequest is the body for POST /api/messages/send.
type MessageSendRequest struct {
	MessageID string `json:"messageId"`
}

// MessageSendTargetedRequest is the body for POST /api/messages/send-targeted.
type MessageSendTargetedRequest struct {
	MessageID   string   `json:"messageId"`
	TargetUsers []string `json:"targetUsers,omitempty"`
}

// MessageReadRequest is the body for POST /api/messages/read.
type MessageReadRequest struct {
	MessageID string `json:"messageId"`
	DeviceID  string `json:"deviceId"`
}

// BroadcastSendRequest is the body for POST /api/broadcasts/send.
type BroadcastSendRequest struct {
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Type    string         `json:"type,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// BroadcastReceivedRequest is the body for the broadcast-receipt bindings.
// Clients send the broadcast identifier as either "broadcastId" or "id";
// the optional status field is accepted and ignored.
type BroadcastReceivedRequest struct {
	BroadcastID string `json:"broadcastId"`
	ID          string `json:"id"`
	DeviceID    string `json:"deviceId"`
	Status      string `json:"status,omitempty"`
}

// ResolveBroadcastID returns the broadcast identifier from whichever field
// the client used, preferring broadcastId.
func (r *BroadcastReceivedRequest) ResolveBroadcastID() string {
	if r.BroadcastID != "" {
		return r.BroadcastID
	}
	return r.ID
}

// UserUpsertRequest is the body for POST /api/users. Optional fields are
// pointers so that absent fields are left untouched on the user's devices.
type UserUpsertRequest struct {
	ID    string  `json:"id"`
	Token *string `json:"token,omitempty"`
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}
