// Package relay coordinates one chat exchange: persist the user
// message, forward the upstream completion stream to the client as it
// arrives, and persist the reconstructed assistant reply once the
// stream ends.
package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avrillon/chatrelay/domain"
	"github.com/avrillon/chatrelay/metrics"
	"github.com/avrillon/chatrelay/sse"
	"github.com/avrillon/chatrelay/store"
)

// contextWindow is the number of trailing history messages sent to the
// upstream model as conversation context.
const contextWindow = 10

// readBufferSize is the size of the upstream read buffer. Chunks are
// forwarded as soon as a read returns, whatever their size.
const readBufferSize = 4096

// CompletionStreamer opens a streaming completion request and returns
// the raw response byte stream.
type CompletionStreamer interface {
	StreamCompletion(ctx context.Context, model string, messages []domain.ChatMessage) (io.ReadCloser, error)
}

// Request carries one exchange through the orchestrator.
type Request struct {
	SessionID string
	Role      domain.Role
	Content   string
	Model     string
}

// StreamInterruptedError reports an upstream failure after streaming
// began. The bytes already forwarded to the client stand; Partial
// tells whether the accumulated assistant content was persisted.
type StreamInterruptedError struct {
	Err     error
	Partial bool
}

func (e *StreamInterruptedError) Error() string {
	return fmt.Sprintf("upstream stream interrupted: %v", e.Err)
}

func (e *StreamInterruptedError) Unwrap() error { return e.Err }

// Orchestrator runs chat exchanges against a session store and an
// upstream completion client.
type Orchestrator struct {
	store        store.Store
	client       CompletionStreamer
	defaultModel string
	logger       zerolog.Logger
	locks        *sessionLocks
}

// New creates an orchestrator. defaultModel is used when a request
// does not name a model.
func New(st store.Store, client CompletionStreamer, defaultModel string, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:        st,
		client:       client,
		defaultModel: defaultModel,
		logger:       logger,
		locks:        newSessionLocks(),
	}
}

// Exchange runs one full exchange and writes the raw upstream stream
// to w as it arrives. Nothing is written to w before the upstream
// connection is established, so any error other than a
// StreamInterruptedError means the caller may still send its own
// response.
//
// The request context only governs validation and the user-message
// append. The upstream call runs detached from it: a client abort
// stops the forwarding but not the upstream read or the final persist.
func (o *Orchestrator) Exchange(ctx context.Context, w io.Writer, req Request) error {
	requestID := "xchg_" + uuid.New().String()[:8]
	logger := o.logger.With().Str("request_id", requestID).Str("session_id", req.SessionID).Logger()
	start := time.Now()

	// One exchange at a time per session: the read-modify-write below
	// spans the whole stream.
	lock := o.locks.get(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := o.store.GetSessionChat(ctx, req.SessionID)
	if err != nil {
		return err
	}

	// The user message is durably recorded before the upstream call is
	// issued, so a crash mid-stream cannot lose it.
	history := append(session.ChatHistory, domain.ChatMessage{Role: req.Role, Content: req.Content})
	session, err = o.store.ReplaceHistory(ctx, req.SessionID, history)
	if err != nil {
		metrics.RelayRequests.WithLabelValues("store_error").Inc()
		return fmt.Errorf("failed to persist user message: %w", err)
	}

	model := req.Model
	if model == "" {
		model = o.defaultModel
	}

	// The upstream call and everything after it run detached from the
	// request context: a client abort stops the forwarding, not the
	// relay itself or the eventual persist.
	detached := context.WithoutCancel(ctx)

	stream, err := o.client.StreamCompletion(detached, model, session.Tail(contextWindow))
	if err != nil {
		metrics.RelayRequests.WithLabelValues("upstream_error").Inc()
		logger.Error().Err(err).Str("model", model).Msg("upstream call failed")
		return err
	}
	defer stream.Close()

	flusher, _ := w.(http.Flusher)
	parser := sse.NewParser(logger)
	var content strings.Builder
	var streamErr error
	clientGone := false

	buf := make([]byte, readBufferSize)
	for {
		n, readErr := stream.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if !clientGone {
				if _, writeErr := w.Write(chunk); writeErr != nil {
					logger.Debug().Err(writeErr).Msg("client gone, draining upstream")
					clientGone = true
				} else if flusher != nil {
					flusher.Flush()
				}
			}
			tokens := parser.Feed(chunk)
			for _, token := range tokens {
				content.WriteString(token)
			}
			metrics.RelayTokens.Add(float64(len(tokens)))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			streamErr = readErr
			break
		}
	}

	if streamErr != nil {
		// Interrupted mid-stream: keep what was reconstructed so far
		// when there is any. The buffer only ever holds content fields
		// of fully parsed frames, so partial text is always valid UTF-8.
		interrupted := &StreamInterruptedError{Err: streamErr}
		if content.Len() > 0 {
			if _, err := o.persistAssistant(detached, req.SessionID, history, content.String()); err != nil {
				logger.Error().Err(err).Msg("failed to persist partial assistant message")
			} else {
				interrupted.Partial = true
			}
		}
		metrics.RelayRequests.WithLabelValues("interrupted").Inc()
		logger.Warn().Err(streamErr).Bool("partial_persisted", interrupted.Partial).Msg("upstream stream interrupted")
		return interrupted
	}

	if _, err := o.persistAssistant(detached, req.SessionID, history, content.String()); err != nil {
		metrics.RelayRequests.WithLabelValues("store_error").Inc()
		logger.Error().Err(err).Msg("failed to persist assistant message")
		return &StreamInterruptedError{Err: err}
	}

	metrics.RelayRequests.WithLabelValues("completed").Inc()
	metrics.RelayDuration.Observe(time.Since(start).Seconds())
	logger.Info().
		Str("model", model).
		Int("content_len", content.Len()).
		Dur("latency", time.Since(start)).
		Msg("exchange completed")
	return nil
}

// persistAssistant appends the assistant reply to the history recorded
// at the start of the exchange and writes the list back.
func (o *Orchestrator) persistAssistant(ctx context.Context, sessionID string, history []domain.ChatMessage, content string) (*domain.SessionChat, error) {
	history = append(history, domain.ChatMessage{Role: domain.RoleAssistant, Content: content})
	return o.store.ReplaceHistory(ctx, sessionID, history)
}
