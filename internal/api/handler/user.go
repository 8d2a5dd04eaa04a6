package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pushledger/pushledger/internal/api/models"
	"github.com/pushledger/pushledger/internal/api/response"
	"github.com/pushledger/pushledger/internal/device"
)

// UserHandler handles the derived user view. Users have no storage of their
// own; every operation here is a query or fan-out over the device registry.
type UserHandler struct {
	devices *device.Service
	log     zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(devices *device.Service, log zerolog.Logger) *UserHandler {
	return &UserHandler{devices: devices, log: log}
}

// ListUsers handles GET /api/users.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.devices.ListUsers(r.Context())
	if err != nil {
		h.respondError(w, r, err, "list users failed")
		return
	}
	response.JSON(w, r, http.StatusOK, users)
}

// GetUser handles GET /api/users/{userId}.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	user, err := h.devices.GetUser(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err, "get user failed")
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

// GetUserDevices handles GET /api/users/{userId}/devices.
func (h *UserHandler) GetUserDevices(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	devices, err := h.devices.GetUserDevices(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err, "get user devices failed")
		return
	}
	response.JSON(w, r, http.StatusOK, devices)
}

// UpsertUser handles POST /api/users.
func (h *UserHandler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	var input models.UserUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	err := h.devices.UpsertUser(r.Context(), &device.UserUpsertInput{
		ID:    input.ID,
		Token: input.Token,
		Name:  input.Name,
		Email: input.Email,
	})
	if err != nil {
		h.respondError(w, r, err, "upsert user failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.SuccessResponse{Success: true})
}

func (h *UserHandler) respondError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	if fields, ok := validationErrors(err); ok {
		response.BadRequest(w, r, "validation failed", fields)
		return
	}
	if errors.Is(err, device.ErrUserNotFound) {
		response.NotFound(w, r, "user not found")
		return
	}
	h.log.Error().Err(err).Msg(logMsg)
	response.InternalError(w, r, "internal error")
}
