// Package api provides the HTTP handlers for the chat session service.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/avrillon/chatrelay/llm"
	"github.com/avrillon/chatrelay/relay"
	"github.com/avrillon/chatrelay/store"
)

// Handler handles HTTP requests.
type Handler struct {
	store  store.Store
	relay  *relay.Orchestrator
	llm    *llm.Client
	logger zerolog.Logger
}

// NewHandler creates a new handler.
func NewHandler(st store.Store, orch *relay.Orchestrator, llmClient *llm.Client, logger zerolog.Logger) *Handler {
	return &Handler{
		store:  st,
		relay:  orch,
		llm:    llmClient,
		logger: logger,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/session-chats", h.ListSessionChats)
	g.GET("/session-chats/:id", h.GetSessionChat)
	g.POST("/session-chats", h.CreateSessionChat)
	g.PUT("/session-chats/:id", h.ExchangeMessage)
	g.PATCH("/session-chats/:id/title", h.RenameSessionChat)
	g.DELETE("/session-chats/:id", h.DeleteSessionChat)
	g.GET("/models", h.ListModels)

	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// ListModels returns the models available on the upstream endpoint.
// GET /api/models
func (h *Handler) ListModels(c echo.Context) error {
	models, err := h.llm.ListModels(c.Request().Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list models")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to reach completion endpoint"})
	}
	return c.JSON(http.StatusOK, llm.ModelsResponse{Object: "list", Data: models})
}
