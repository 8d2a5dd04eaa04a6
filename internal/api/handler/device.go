package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pushledger/pushledger/internal/api/models"
	"github.com/pushledger/pushledger/internal/api/response"
	"github.com/pushledger/pushledger/internal/device"
)

// DeviceHandler handles device registry endpoints.
type DeviceHandler struct {
	devices *device.Service
	log     zerolog.Logger
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(devices *device.Service, log zerolog.Logger) *DeviceHandler {
	return &DeviceHandler{devices: devices, log: log}
}

// RegisterDevice handles POST /api/devices - register or update a device.
// The body carries a few well-known fields; everything else is kept as
// passthrough attributes on the record. Identity fields supplied by the
// caller (id, createdAt, lastSeen) are stripped, never honored.
func (h *DeviceHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	deviceID, _, err := h.devices.Register(r.Context(), registerInputFromBody(raw))
	if err != nil {
		if fields, ok := validationErrors(err); ok {
			response.BadRequest(w, r, "validation failed", fields)
			return
		}
		h.log.Error().Err(err).Msg("register device failed")
		response.InternalError(w, r, "failed to register device")
		return
	}

	response.JSON(w, r, http.StatusOK, models.DeviceRegisterResponse{
		Success:  true,
		DeviceID: deviceID,
	})
}

// ListDevices handles GET /api/devices - list registered devices.
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list devices failed")
		response.InternalError(w, r, "failed to list devices")
		return
	}
	response.JSON(w, r, http.StatusOK, devices)
}

// registerInputFromBody splits a request body into the registry's known
// fields and passthrough attributes.
func registerInputFromBody(raw map[string]any) *device.RegisterInput {
	input := &device.RegisterInput{}
	attrs := make(map[string]any)

	for key, value := range raw {
		switch key {
		case "token":
			if s, ok := value.(string); ok {
				input.Token = s
			}
		case "userId":
			input.UserID = stringField(value)
		case "platform":
			input.Platform = stringField(value)
		case "name":
			input.Name = stringField(value)
		case "email":
			input.Email = stringField(value)
		case "id", "createdAt", "lastSeen":
			// server-managed, dropped
		default:
			attrs[key] = value
		}
	}

	if len(attrs) > 0 {
		input.Attributes = attrs
	}
	return input
}

func stringField(value any) *string {
	if s, ok := value.(string); ok {
		return &s
	}
	return nil
}
