// Package session provides the in-memory conversation session store.
//
// Sessions are ephemeral: the store lives for the process lifetime and is the
// single source of truth for whether a user is mid-dialogue. All map
// operations are atomic so concurrent turns from different users are safe;
// turns for one user are assumed to arrive one at a time.
package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/models"
)

// State is the explicit lifecycle state of a session.
type State string

const (
	// StateActive marks a dialogue in progress.
	StateActive State = "ACTIVE"
	// StateCompleted is terminal; further input gets a fixed reply and no state change.
	StateCompleted State = "COMPLETED"
)

// Session is one user's ongoing dialogue with the bot.
type Session struct {
	UserID    string
	State     State
	History   []models.ConversationMessage
	CreatedAt time.Time
}

// Append adds one turn to the session history.
func (s *Session) Append(role, content string) {
	s.History = append(s.History, models.ConversationMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// Transcript renders the history as a plain-text transcript, one line per
// turn. The finalization pipeline feeds this to the extraction prompt so the
// prompt never depends on the model client's native message representation.
func (s *Session) Transcript() string {
	var b strings.Builder
	for _, msg := range s.History {
		if msg.Role == models.RoleSystem {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	return b.String()
}

// Manager owns the process-wide mapping from user identity to session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	slog.Debug("session.NewManager: creating session manager")
	return &Manager{sessions: make(map[string]*Session)}
}

// Get returns the session for a user, if any.
func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// CreateOrReplace discards any existing session for the user and installs a
// fresh ACTIVE session seeded with the given history.
func (m *Manager) CreateOrReplace(userID string, seed []models.ConversationMessage) *Session {
	s := &Session{
		UserID:    userID,
		State:     StateActive,
		History:   seed,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s

	slog.Debug("session.Manager.CreateOrReplace: fresh session installed", "userID", userID, "seed_turns", len(seed))
	return s
}

// MarkCompleted transitions the user's session to the terminal state. The
// session entry stays in the map so completed users get the fixed
// already-finished reply instead of a new dialogue.
func (m *Manager) MarkCompleted(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		s.State = StateCompleted
		slog.Debug("session.Manager.MarkCompleted: session completed", "userID", userID, "turns", len(s.History))
	}
}

// Remove deletes the user's session entry entirely, so the next message from
// that user starts a brand-new dialogue.
func (m *Manager) Remove(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	slog.Debug("session.Manager.Remove: session removed", "userID", userID)
}

// Count returns the number of tracked sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
