package models

// SuccessResponse is the minimal success envelope.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// DeviceRegisterResponse is the body for POST /api/devices.
type DeviceRegisterResponse struct {
	Success  bool   `json:"success"`
	DeviceID string `json:"deviceId"`
}

// MessageResponse wraps a created or sent message record.
type MessageResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// MessageSendTargetedResponse is the body for POST /api/messages/send-targeted.
type MessageSendTargetedResponse struct {
	Success bool `json:"success"`
	SentTo  int  `json:"sentTo"`
}

// BroadcastSendResponse is the body for POST /api/broadcasts/send.
type BroadcastSendResponse struct {
	Success     bool   `json:"success"`
	BroadcastID string `json:"broadcastId"`
	Recipients  int    `json:"recipients"`
}
