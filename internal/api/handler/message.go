package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pushledger/pushledger/internal/api/models"
	"github.com/pushledger/pushledger/internal/api/response"
	"github.com/pushledger/pushledger/internal/message"
)

// MessageHandler handles message lifecycle endpoints.
type MessageHandler struct {
	messages *message.Service
	log      zerolog.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messages *message.Service, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, log: log}
}

// CreateMessage handles POST /api/messages - compose a pending message.
func (h *MessageHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var input models.MessageCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	msg, err := h.messages.Create(r.Context(), input.Title, input.Body, input.Data)
	if err != nil {
		h.respondError(w, r, err, "create message failed")
		return
	}

	response.Created(w, r, "", models.MessageResponse{Success: true, Data: msg})
}

// ListPending handles GET /api/messages/pending.
func (h *MessageHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.messages.ListPending(r.Context())
	if err != nil {
		h.respondError(w, r, err, "list pending failed")
		return
	}
	response.JSON(w, r, http.StatusOK, pending)
}

// ListSent handles GET /api/messages/sent.
func (h *MessageHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	sent, err := h.messages.ListSent(r.Context())
	if err != nil {
		h.respondError(w, r, err, "list sent failed")
		return
	}
	response.JSON(w, r, http.StatusOK, sent)
}

// SendMessage handles POST /api/messages/send - fan out to every device.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var input models.MessageSendRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if input.MessageID == "" {
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: "messageId", Message: "is required"},
		})
		return
	}

	sent, err := h.messages.Send(r.Context(), input.MessageID)
	if err != nil {
		h.respondError(w, r, err, "send message failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.MessageResponse{Success: true, Data: sent})
}

// SendTargeted handles POST /api/messages/send-targeted - fan out to the
// devices owned by the target users, or to every device when no target set
// is given.
func (h *MessageHandler) SendTargeted(w http.ResponseWriter, r *http.Request) {
	var input models.MessageSendTargetedRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	sent, err := h.messages.SendTargeted(r.Context(), input.MessageID, input.TargetUsers)
	if err != nil {
		h.respondError(w, r, err, "send targeted failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.MessageSendTargetedResponse{
		Success: true,
		SentTo:  len(sent.Recipients),
	})
}

// MarkRead handles POST /api/messages/read - flip one recipient to read.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var input models.MessageReadRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if err := h.messages.MarkRead(r.Context(), input.MessageID, input.DeviceID); err != nil {
		h.respondError(w, r, err, "mark read failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.SuccessResponse{Success: true})
}

// respondError maps lifecycle errors onto the HTTP error taxonomy.
func (h *MessageHandler) respondError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	if fields, ok := validationErrors(err); ok {
		response.BadRequest(w, r, "validation failed", fields)
		return
	}

	switch {
	case errors.Is(err, message.ErrNoDevices):
		response.NotFound(w, r, "no devices registered")
	case errors.Is(err, message.ErrMessageNotFound):
		response.NotFound(w, r, "message not found")
	case errors.Is(err, message.ErrNoMatchingDevices):
		response.NotFound(w, r, "no matching devices")
	case errors.Is(err, message.ErrRecipientNotFound):
		response.NotFound(w, r, "recipient not found")
	default:
		h.log.Error().Err(err).Msg(logMsg)
		response.InternalError(w, r, "internal error")
	}
}
