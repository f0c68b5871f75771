package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/avrillon/chatrelay/domain"
	"github.com/avrillon/chatrelay/sse"
)

func putExchange(e *echo.Echo, h *Handler, sessionID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, "/api/session-chats/"+sessionID, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(sessionID)
	_ = h.ExchangeMessage(c)
	return rec
}

func TestExchangeMessageValidation(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, "http://localhost:0")

	rec := putExchange(e, h, "s1", `{"role":"user"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = putExchange(e, h, "s1", `{"content":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExchangeMessageSessionNotFound(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, "http://localhost:0")

	rec := putExchange(e, h, "missing", `{"role":"user","content":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExchangeMessageStreamsAndPersists(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, token := range []string{"Bon", "jour"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"%s\"}}]}\n\n", token)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	e := echo.New()
	h := newTestHandler(t, upstream.URL)

	session := &domain.SessionChat{
		ID:        "s1",
		Title:     "t",
		CreatedAt: time.Now().UTC(),
		ChatHistory: []domain.ChatMessage{
			{Role: domain.RoleAssistant, Content: "earlier"},
		},
	}
	if err := h.store.CreateSessionChat(context.Background(), session); err != nil {
		t.Fatalf("CreateSessionChat failed: %v", err)
	}

	rec := putExchange(e, h, "s1", `{"role":"user","content":"salut"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/plain")

	// Existing history of length 1 grows by user + assistant.
	updated, err := h.store.GetSessionChat(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Len(t, updated.ChatHistory, 3)
	assert.Equal(t, domain.ChatMessage{Role: domain.RoleUser, Content: "salut"}, updated.ChatHistory[1])
	assert.Equal(t, domain.RoleAssistant, updated.ChatHistory[2].Role)
	assert.Equal(t, "Bonjour", updated.ChatHistory[2].Content)

	// The raw response, parsed as SSE, reconstructs to the persisted content.
	parser := sse.NewParser(zerolog.Nop())
	reconstructed := strings.Join(parser.Feed(rec.Body.Bytes()), "")
	assert.Equal(t, updated.ChatHistory[2].Content, reconstructed)
}

func TestExchangeMessageUpstreamUnavailable(t *testing.T) {
	e := echo.New()
	// Nothing listens here; the connection fails before any streaming.
	h := newTestHandler(t, "http://127.0.0.1:1")

	session := &domain.SessionChat{ID: "s1", Title: "t", CreatedAt: time.Now().UTC()}
	if err := h.store.CreateSessionChat(context.Background(), session); err != nil {
		t.Fatalf("CreateSessionChat failed: %v", err)
	}

	rec := putExchange(e, h, "s1", `{"role":"user","content":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// The user message is durable even though the exchange failed.
	updated, err := h.store.GetSessionChat(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Len(t, updated.ChatHistory, 1)
	assert.Equal(t, domain.RoleUser, updated.ChatHistory[0].Role)
}

func TestExchangeMessageUpstreamRejects(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "rate limited")
	}))
	defer upstream.Close()

	e := echo.New()
	h := newTestHandler(t, upstream.URL)

	session := &domain.SessionChat{ID: "s1", Title: "t", CreatedAt: time.Now().UTC()}
	if err := h.store.CreateSessionChat(context.Background(), session); err != nil {
		t.Fatalf("CreateSessionChat failed: %v", err)
	}

	rec := putExchange(e, h, "s1", `{"role":"user","content":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
