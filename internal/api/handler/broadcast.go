package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/pushledger/pushledger/internal/api/models"
	"github.com/pushledger/pushledger/internal/api/response"
	"github.com/pushledger/pushledger/internal/broadcast"
)

// BroadcastHandler handles broadcast endpoints.
type BroadcastHandler struct {
	broadcasts *broadcast.Service
	log        zerolog.Logger
}

// NewBroadcastHandler creates a new BroadcastHandler.
func NewBroadcastHandler(broadcasts *broadcast.Service, log zerolog.Logger) *BroadcastHandler {
	return &BroadcastHandler{broadcasts: broadcasts, log: log}
}

// SendBroadcast handles POST /api/broadcasts/send.
func (h *BroadcastHandler) SendBroadcast(w http.ResponseWriter, r *http.Request) {
	var input models.BroadcastSendRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	b, err := h.broadcasts.Send(r.Context(), input.Title, input.Message, input.Type, input.Data)
	if err != nil {
		h.respondError(w, r, err, "send broadcast failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.BroadcastSendResponse{
		Success:     true,
		BroadcastID: b.ID,
		Recipients:  len(b.Recipients),
	})
}

// ListBroadcasts handles GET /api/broadcasts.
func (h *BroadcastHandler) ListBroadcasts(w http.ResponseWriter, r *http.Request) {
	broadcasts, err := h.broadcasts.List(r.Context())
	if err != nil {
		h.respondError(w, r, err, "list broadcasts failed")
		return
	}
	response.JSON(w, r, http.StatusOK, broadcasts)
}

// RecentBroadcasts handles GET /api/broadcasts/recent?limit= - newest first.
func (h *BroadcastHandler) RecentBroadcasts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, r, "validation failed", []models.FieldError{
				{Field: "limit", Message: "must be an integer"},
			})
			return
		}
		limit = parsed
	}

	broadcasts, err := h.broadcasts.Recent(r.Context(), limit)
	if err != nil {
		h.respondError(w, r, err, "recent broadcasts failed")
		return
	}
	response.JSON(w, r, http.StatusOK, broadcasts)
}

// MarkReceived handles every binding of the broadcast-receipt capability:
// POST/PUT/PATCH /api/broadcasts/received and PUT/PATCH /api/broadcasts.
func (h *BroadcastHandler) MarkReceived(w http.ResponseWriter, r *http.Request) {
	var input models.BroadcastReceivedRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if err := h.broadcasts.MarkReceived(r.Context(), input.ResolveBroadcastID(), input.DeviceID); err != nil {
		h.respondError(w, r, err, "mark received failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.SuccessResponse{Success: true})
}

// respondError maps broadcast errors onto the HTTP error taxonomy.
func (h *BroadcastHandler) respondError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	if fields, ok := validationErrors(err); ok {
		response.BadRequest(w, r, "validation failed", fields)
		return
	}

	switch {
	case errors.Is(err, broadcast.ErrNoDevices):
		response.NotFound(w, r, "no devices registered")
	case errors.Is(err, broadcast.ErrBroadcastNotFound):
		response.NotFound(w, r, "broadcast not found")
	default:
		h.log.Error().Err(err).Msg(logMsg)
		response.InternalError(w, r, "internal error")
	}
}
