// internal/conversation/session.go
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"sailmatch-workers/internal/common/logger"
)

// Message is one conversation turn. Role is "user", "assistant" or "tool".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PendingAction is a mutating tool call held until the caller explicitly
// approves it. It lives in the session for exactly one response cycle.
type PendingAction struct {
	ToolName  string                 `json:"toolName"`
	Arguments map[string]interface{} `json:"arguments"`
	Label     string                 `json:"label"`
}

// Session is the per-conversation state: trimmed turn history, the set of
// entity IDs returned by tool calls (the ground truth for citation checks),
// and at most one pending action.
type Session struct {
	ID       string          `json:"id"`
	History  []Message       `json:"history"`
	KnownIDs map[string]bool `json:"knownIds"`
	Pending  *PendingAction  `json:"pending,omitempty"`
}

// SessionStore persists sessions in Redis keyed by conversation ID.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewSessionStore(client *redis.Client, ttl time.Duration, log logger.Logger) *SessionStore {
	return &SessionStore{client: client, ttl: ttl, logger: log}
}

func sessionKey(id string) string {
	return "chat:session:" + id
}

// Load returns the session for id, or a fresh one when the key is missing or
// the stored payload no longer parses.
func (s *SessionStore) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return newSession(uuid.NewString()), nil
	}

	data, err := s.client.Get(ctx, sessionKey(id)).Result()
	if err == redis.Nil {
		return newSession(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading chat session %s: %w", id, err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		s.logger.Warn("discarding unreadable chat session", map[string]interface{}{
			"sessionId": id,
			"error":     err.Error(),
		})
		return newSession(id), nil
	}
	if session.KnownIDs == nil {
		session.KnownIDs = make(map[string]bool)
	}
	return &session, nil
}

// Save writes the session back and refreshes its TTL.
func (s *SessionStore) Save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding chat session %s: %w", session.ID, err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving chat session %s: %w", session.ID, err)
	}
	return nil
}

func newSession(id string) *Session {
	return &Session{
		ID:       id,
		KnownIDs: make(map[string]bool),
	}
}

// Trim returns the most recent limit turns of history.
func (s *Session) Trim(limit int) []Message {
	if limit <= 0 || len(s.History) <= limit {
		return s.History
	}
	return s.History[len(s.History)-limit:]
}
