package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/avrillon/chatrelay/domain"
	"github.com/avrillon/chatrelay/metrics"
)

// createSessionRequest is the POST /api/session-chats body. A caller
// may supply its own id (the seed tool does); one is generated
// otherwise. An initial history is accepted for the same reason.
type createSessionRequest struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	ChatHistory []domain.ChatMessage `json:"chatHistory"`
}

// renameSessionRequest is the PATCH /api/session-chats/:id/title body.
type renameSessionRequest struct {
	Title string `json:"title"`
}

// ListSessionChats returns all sessions, newest first.
// GET /api/session-chats
func (h *Handler) ListSessionChats(c echo.Context) error {
	sessions, err := h.store.ListSessionChats(c.Request().Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list sessions")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list sessions"})
	}
	return c.JSON(http.StatusOK, sessions)
}

// GetSessionChat returns one session.
// GET /api/session-chats/:id
func (h *Handler) GetSessionChat(c echo.Context) error {
	session, err := h.store.GetSessionChat(c.Request().Context(), c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", c.Param("id")).Msg("failed to get session")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get session"})
	}
	return c.JSON(http.StatusOK, session)
}

// CreateSessionChat creates a new session.
// POST /api/session-chats
func (h *Handler) CreateSessionChat(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	session := &domain.SessionChat{
		ID:          req.ID,
		Title:       req.Title,
		CreatedAt:   time.Now().UTC(),
		ChatHistory: req.ChatHistory,
	}
	if session.ID == "" {
		session.ID = shortuuid.New()
	}
	if session.ChatHistory == nil {
		session.ChatHistory = []domain.ChatMessage{}
	}

	if err := h.store.CreateSessionChat(c.Request().Context(), session); err != nil {
		h.logger.Error().Err(err).Msg("failed to create session")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
	}

	metrics.SessionsCreated.Inc()
	return c.JSON(http.StatusCreated, session)
}

// RenameSessionChat updates a session title.
// PATCH /api/session-chats/:id/title
func (h *Handler) RenameSessionChat(c echo.Context) error {
	var req renameSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title is required"})
	}

	session, err := h.store.RenameSessionChat(c.Request().Context(), c.Param("id"), req.Title)
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", c.Param("id")).Msg("failed to rename session")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to rename session"})
	}
	return c.JSON(http.StatusOK, session)
}

// DeleteSessionChat deletes a session. Deleting an absent id still
// answers 200.
// DELETE /api/session-chats/:id
func (h *Handler) DeleteSessionChat(c echo.Context) error {
	if err := h.store.DeleteSessionChat(c.Request().Context(), c.Param("id")); err != nil {
		h.logger.Error().Err(err).Str("session_id", c.Param("id")).Msg("failed to delete session")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete session"})
	}
	metrics.SessionsDeleted.Inc()
	return c.JSON(http.StatusOK, map[string]string{"message": "session deleted"})
}
