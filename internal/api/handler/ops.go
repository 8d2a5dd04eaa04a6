// Package handler provides HTTP handlers for the PushLedger API.
package handler

import (
	"net/http"
	"time"

	"github.com/pushledger/pushledger/internal/api/models"
	"github.com/pushledger/pushledger/internal/api/response"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct{}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler() *OpsHandler {
	return &OpsHandler{}
}

// HealthCheck handles GET /health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status:    "ok",
		Timestamp: models.Timestamp(time.Now()),
	}
	response.JSON(w, r, http.StatusOK, health)
}
