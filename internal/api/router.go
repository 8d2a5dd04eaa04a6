// Package api provides the HTTP API for PushLedger.
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pushledger/pushledger/internal/api/handler"
	"github.com/pushledger/pushledger/internal/api/middleware"
	"github.com/pushledger/pushledger/internal/api/response"
	"github.com/pushledger/pushledger/internal/broadcast"
	"github.com/pushledger/pushledger/internal/device"
	"github.com/pushledger/pushledger/internal/message"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger           zerolog.Logger
	Metrics          *middleware.Metrics
	DeviceService    *device.Service
	MessageService   *message.Service
	BroadcastService *broadcast.Service
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing())            // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler()
	deviceHandler := handler.NewDeviceHandler(cfg.DeviceService, cfg.Logger)
	messageHandler := handler.NewMessageHandler(cfg.MessageService, cfg.Logger)
	broadcastHandler := handler.NewBroadcastHandler(cfg.BroadcastService, cfg.Logger)
	userHandler := handler.NewUserHandler(cfg.DeviceService, cfg.Logger)

	// Create rate limit middleware for different endpoint categories
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min
	sendRateLimit := middleware.RateLimitByIP(middleware.SendRateLimit)         // 30 req/min

	// Unmatched routes get a problem response instead of chi's plain 404.
	// Registered before the subrouters so they inherit it.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
	})

	// Health endpoint (public, no rate limiting)
	r.Get("/health", opsHandler.HealthCheck)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(standardRateLimit)

		// Devices
		r.Route("/devices", func(r chi.Router) {
			r.Post("/", deviceHandler.RegisterDevice)
			r.Get("/", deviceHandler.ListDevices)
		})

		// Messages
		r.Route("/messages", func(r chi.Router) {
			r.Post("/", messageHandler.CreateMessage)
			r.Get("/pending", messageHandler.ListPending)
			r.Get("/sent", messageHandler.ListSent)
			// Fan-out endpoints touch every device - tighter rate limit
			r.With(sendRateLimit).Post("/send", messageHandler.SendMessage)
			r.With(sendRateLimit).Post("/send-targeted", messageHandler.SendTargeted)
			r.Post("/read", messageHandler.MarkRead)
		})

		// Broadcasts
		r.Route("/broadcasts", func(r chi.Router) {
			r.Get("/", broadcastHandler.ListBroadcasts)
			r.Get("/recent", broadcastHandler.RecentBroadcasts)
			r.With(sendRateLimit).Post("/send", broadcastHandler.SendBroadcast)

			// Delivery confirmation. Clients in the wild hit this with
			// several verbs and both paths, so all aliases land on the
			// same handler.
			r.Post("/received", broadcastHandler.MarkReceived)
			r.Put("/received", broadcastHandler.MarkReceived)
			r.Patch("/received", broadcastHandler.MarkReceived)
			r.Post("/", broadcastHandler.MarkReceived)
			r.Put("/", broadcastHandler.MarkReceived)
			r.Patch("/", broadcastHandler.MarkReceived)
		})

		// Users (derived view over the device registry)
		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.ListUsers)
			r.Post("/", userHandler.UpsertUser)
			r.Route("/{userId}", func(r chi.Router) {
				r.Get("/", userHandler.GetUser)
				r.Get("/devices", userHandler.GetUserDevices)
			})
		})
	})

	return r
}
