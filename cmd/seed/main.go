// Command seed initializes the database and inserts a starter session.
// Running it again against an already-seeded database is a no-op.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/avrillon/chatrelay/config"
	"github.com/avrillon/chatrelay/domain"
	"github.com/avrillon/chatrelay/store"
)

const seedSessionID = "test-seed-001"

func main() {
	cfg := config.Load()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer db.Close()

	created, err := seed(context.Background(), db)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed failed")
	}
	if !created {
		logger.Info().Str("session_id", seedSessionID).Msg("seed session already present, nothing to do")
		return
	}
	logger.Info().Str("session_id", seedSessionID).Msg("seed complete: one chat session added")
}

// seed inserts the starter session unless it already exists. Returns
// whether a session was created.
func seed(ctx context.Context, db store.Store) (bool, error) {
	_, err := db.GetSessionChat(ctx, seedSessionID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	session := &domain.SessionChat{
		ID:        seedSessionID,
		Title:     "Starter session",
		CreatedAt: time.Now().UTC(),
		ChatHistory: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: "Hello, this is a message."},
			{Role: domain.RoleAssistant, Content: "Hello, how can I help you?"},
		},
	}
	if err := db.CreateSessionChat(ctx, session); err != nil {
		return false, err
	}
	return true, nil
}
