// Package store defines the session storage interface and implementations.
package store

import (
	"context"

	"github.com/avrillon/chatrelay/domain"
)

// Store defines the interface for session persistence.
//
// ReplaceHistory is a whole-list replace, not an append primitive:
// callers perform their own read-modify-write and must provide their
// own serialization if they need isolation between concurrent writers.
type Store interface {
	// Session operations
	ListSessionChats(ctx context.Context) ([]domain.SessionChat, error)
	GetSessionChat(ctx context.Context, id string) (*domain.SessionChat, error)
	CreateSessionChat(ctx context.Context, session *domain.SessionChat) error
	ReplaceHistory(ctx context.Context, id string, history []domain.ChatMessage) (*domain.SessionChat, error)
	RenameSessionChat(ctx context.Context, id, title string) (*domain.SessionChat, error)
	DeleteSessionChat(ctx context.Context, id string) error

	// Lifecycle
	Close() error
}
