package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avrillon/chatrelay/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := &domain.SessionChat{
		ID:        "s1",
		Title:     "first",
		CreatedAt: time.Now().UTC(),
		ChatHistory: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: "hello"},
		},
	}
	if err := s.CreateSessionChat(ctx, session); err != nil {
		t.Fatalf("CreateSessionChat failed: %v", err)
	}

	got, err := s.GetSessionChat(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSessionChat failed: %v", err)
	}
	if got.Title != "first" || len(got.ChatHistory) != 1 {
		t.Fatalf("unexpected session: %+v", got)
	}
	if !got.CreatedAt.Equal(session.CreatedAt) {
		t.Fatalf("createdAt mismatch: want %v, got %v", session.CreatedAt, got.CreatedAt)
	}
	if got.ChatHistory[0] != (domain.ChatMessage{Role: domain.RoleUser, Content: "hello"}) {
		t.Fatalf("unexpected history: %+v", got.ChatHistory)
	}
}

func TestReplaceHistoryAppendReadBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := &domain.SessionChat{ID: "s1", Title: "t", CreatedAt: time.Now().UTC()}
	if err := s.CreateSessionChat(ctx, session); err != nil {
		t.Fatalf("CreateSessionChat failed: %v", err)
	}

	appended := domain.ChatMessage{Role: domain.RoleAssistant, Content: "bonjour"}
	updated, err := s.ReplaceHistory(ctx, "s1", []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "salut"},
		appended,
	})
	if err != nil {
		t.Fatalf("ReplaceHistory failed: %v", err)
	}
	if len(updated.ChatHistory) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(updated.ChatHistory))
	}
	if updated.ChatHistory[len(updated.ChatHistory)-1] != appended {
		t.Fatalf("last message mismatch: %+v", updated.ChatHistory)
	}

	got, err := s.GetSessionChat(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSessionChat failed: %v", err)
	}
	if got.ChatHistory[len(got.ChatHistory)-1] != appended {
		t.Fatalf("read-back mismatch: %+v", got.ChatHistory)
	}
}

func TestReplaceHistoryNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReplaceHistory(context.Background(), "missing", []domain.ChatMessage{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrderingNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	// Created out of order on purpose.
	for _, tc := range []struct {
		id  string
		age time.Duration
	}{
		{"middle", time.Hour},
		{"newest", 0},
		{"oldest", 2 * time.Hour},
	} {
		session := &domain.SessionChat{ID: tc.id, Title: tc.id, CreatedAt: base.Add(-tc.age)}
		if err := s.CreateSessionChat(ctx, session); err != nil {
			t.Fatalf("CreateSessionChat(%s) failed: %v", tc.id, err)
		}
	}

	// Appending messages must not affect ordering.
	if _, err := s.ReplaceHistory(ctx, "oldest", []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "bump"},
	}); err != nil {
		t.Fatalf("ReplaceHistory failed: %v", err)
	}

	sessions, err := s.ListSessionChats(ctx)
	if err != nil {
		t.Fatalf("ListSessionChats failed: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	want := []string{"newest", "middle", "oldest"}
	for i, id := range want {
		if sessions[i].ID != id {
			t.Fatalf("position %d: want %s, got %s", i, id, sessions[i].ID)
		}
	}
}

func TestListOrderingTrailingZeroNanoseconds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// The older timestamp's fraction ends in a zero. A variable-width
	// encoding would render it as a prefix of the newer one and sort it
	// after ('Z' compares greater than any digit); the fixed-width
	// column encoding must keep it in chronological position.
	older := time.Date(2026, 8, 28, 10, 0, 0, 123456700, time.UTC)
	newer := time.Date(2026, 8, 28, 10, 0, 0, 123456780, time.UTC)

	for _, tc := range []struct {
		id string
		at time.Time
	}{
		{"older", older},
		{"newer", newer},
	} {
		session := &domain.SessionChat{ID: tc.id, Title: tc.id, CreatedAt: tc.at}
		if err := s.CreateSessionChat(ctx, session); err != nil {
			t.Fatalf("CreateSessionChat(%s) failed: %v", tc.id, err)
		}
	}

	sessions, err := s.ListSessionChats(ctx)
	if err != nil {
		t.Fatalf("ListSessionChats failed: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "newer" || sessions[1].ID != "older" {
		ids := []string{}
		for _, sc := range sessions {
			ids = append(ids, sc.ID)
		}
		t.Fatalf("newest-first violated: got order %v", ids)
	}
	if !sessions[1].CreatedAt.Equal(older) {
		t.Fatalf("createdAt round-trip mismatch: want %v, got %v", older, sessions[1].CreatedAt)
	}
}

func TestRenameSessionChat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := &domain.SessionChat{ID: "s1", Title: "old", CreatedAt: time.Now().UTC()}
	if err := s.CreateSessionChat(ctx, session); err != nil {
		t.Fatalf("CreateSessionChat failed: %v", err)
	}

	updated, err := s.RenameSessionChat(ctx, "s1", "new title")
	if err != nil {
		t.Fatalf("RenameSessionChat failed: %v", err)
	}
	if updated.Title != "new title" {
		t.Fatalf("unexpected title: %s", updated.Title)
	}

	if _, err := s.RenameSessionChat(ctx, "missing", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.DeleteSessionChat(ctx, "never-existed"); err != nil {
		t.Fatalf("delete of absent id failed: %v", err)
	}

	session := &domain.SessionChat{ID: "s1", Title: "t", CreatedAt: time.Now().UTC()}
	if err := s.CreateSessionChat(ctx, session); err != nil {
		t.Fatalf("CreateSessionChat failed: %v", err)
	}
	if err := s.DeleteSessionChat(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSessionChat failed: %v", err)
	}
	if _, err := s.GetSessionChat(ctx, "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteSessionChat(ctx, "s1"); err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
}
