package api

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/avrillon/chatrelay/llm"
	"github.com/avrillon/chatrelay/relay"
	"github.com/avrillon/chatrelay/store"
)

// newTestHandler wires a handler against an in-memory store and the
// given upstream URL.
func newTestHandler(t *testing.T, upstreamURL string) *Handler {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	llmClient := llm.NewClient(upstreamURL, "", 2*time.Second)
	orch := relay.New(st, llmClient, "gpt-4o", zerolog.Nop())
	return NewHandler(st, orch, llmClient, zerolog.Nop())
}
