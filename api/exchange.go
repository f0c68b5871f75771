package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avrillon/chatrelay/domain"
	"github.com/avrillon/chatrelay/relay"
)

// exchangeRequest is the PUT /api/session-chats/:id body.
type exchangeRequest struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
	Model   string      `json:"model"`
}

// ExchangeMessage appends the caller's message to the session, streams
// the upstream completion back verbatim, and persists the
// reconstructed assistant reply.
// PUT /api/session-chats/:id
func (h *Handler) ExchangeMessage(c echo.Context) error {
	var req exchangeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Role == "" || req.Content == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message must carry a role and a content"})
	}

	// The relay writes nothing before the upstream connection is up,
	// so the header only commits once streaming actually starts.
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)

	err := h.relay.Exchange(c.Request().Context(), c.Response(), relay.Request{
		SessionID: c.Param("id"),
		Role:      req.Role,
		Content:   req.Content,
		Model:     req.Model,
	})
	if err == nil {
		return nil
	}

	var interrupted *relay.StreamInterruptedError
	if errors.As(err, &interrupted) {
		// Streaming had begun; the forwarded bytes stand and the
		// connection just ends.
		return nil
	}

	c.Response().Header().Del(echo.HeaderContentType)
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}

	h.logger.Error().Err(err).Str("session_id", c.Param("id")).Msg("exchange failed")
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to reach completion endpoint"})
}
