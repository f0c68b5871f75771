// Package domain defines the core domain models for the chat service.
package domain

import "time"

// SessionChat is a persisted conversation: a title plus an ordered
// message history, identified by an opaque id.
type SessionChat struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	CreatedAt   time.Time     `json:"createdAt"`
	ChatHistory []ChatMessage `json:"chatHistory"`
}

// Tail returns the most recent n messages of the history, in order.
// It returns the whole history when it holds fewer than n messages.
func (s *SessionChat) Tail(n int) []ChatMessage {
	if len(s.ChatHistory) <= n {
		return s.ChatHistory
	}
	return s.ChatHistory[len(s.ChatHistory)-n:]
}
