package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/avrillon/chatrelay/domain"
	"github.com/avrillon/chatrelay/sse"
)

// State is the submission state of a session controller.
type State string

const (
	StateIdle              State = "idle"
	StateOptimisticPending State = "optimistic_pending"
	StateReconciled        State = "reconciled"
	StateFailed            State = "failed"
)

// ErrSubmissionInFlight is returned by Submit while a previous
// submission is still pending; input stays disabled until it settles.
var ErrSubmissionInFlight = errors.New("a submission is already in flight")

// SessionController keeps a local view of one session's history and
// submits messages with optimistic updates: the user message shows up
// locally at once, and the list is replaced wholesale with the
// server-confirmed state when the exchange completes. Cancelling an
// in-flight submission keeps the optimistic entry; the server may
// still finish and persist the exchange on its side.
type SessionController struct {
	client    *Client
	sessionID string

	// Model names the completion model sent with each exchange; empty
	// lets the server pick its default.
	Model string

	// OnToken, when set, receives each assistant content token as the
	// response stream is consumed.
	OnToken func(token string)

	mu      sync.Mutex
	history []domain.ChatMessage
	state   State
	cancel  context.CancelFunc
}

// NewSessionController fetches the session and seeds the local history
// from the confirmed server state.
func (c *Client) NewSessionController(ctx context.Context, sessionID string) (*SessionController, error) {
	session, err := c.GetSessionChat(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionController{
		client:    c,
		sessionID: sessionID,
		history:   session.ChatHistory,
		state:     StateIdle,
	}, nil
}

// History returns a copy of the local message list.
func (s *SessionController) History() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]domain.ChatMessage, len(s.history))
	copy(history, s.history)
	return history
}

// State returns the current submission state.
func (s *SessionController) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cancel aborts the in-flight submission, if any. The optimistic user
// message stays in the local history.
func (s *SessionController) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Submit sends one user message through the exchange endpoint. A blank
// message is a no-op. The trimmed content is appended to the local
// history before the request goes out; on success the history is
// replaced with the server-confirmed list, on failure or abort the
// optimistic entry remains and no assistant reply is added.
func (s *SessionController) Submit(ctx context.Context, content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.state == StateOptimisticPending {
		s.mu.Unlock()
		cancel()
		return ErrSubmissionInFlight
	}
	s.history = append(s.history, domain.ChatMessage{Role: domain.RoleUser, Content: trimmed})
	s.state = StateOptimisticPending
	s.cancel = cancel
	s.mu.Unlock()

	err := s.exchange(ctx, trimmed)

	s.mu.Lock()
	s.cancel = nil
	if err != nil {
		s.state = StateFailed
	} else {
		s.state = StateReconciled
	}
	s.mu.Unlock()
	return err
}

// exchange performs the PUT, drains the streamed response, and
// reconciles the local history with the server's confirmed state.
func (s *SessionController) exchange(ctx context.Context, content string) error {
	payload, err := json.Marshal(map[string]string{
		"role":    string(domain.RoleUser),
		"content": content,
		"model":   s.Model,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		s.client.BaseURL+"/api/session-chats/"+s.sessionID, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp)
	}

	parser := sse.NewParser(zerolog.Nop())
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 && s.OnToken != nil {
			for _, token := range parser.Feed(buf[:n]) {
				s.OnToken(token)
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				return readErr
			}
			break
		}
	}

	session, err := s.client.GetSessionChat(ctx, s.sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.history = session.ChatHistory
	s.mu.Unlock()
	return nil
}
