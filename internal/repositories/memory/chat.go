package memory

import (
	"context"
	"sync"
	"time"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/repositories"
)

// ChatRepository keeps one support session per owner in memory.
type ChatRepository struct {
	mu       sync.RWMutex
	sessions map[string]domain.ChatSession
	limit    int
	now      func() time.Time
}

// NewChatRepository constructs an in-memory chat repository. History beyond
// limit messages is trimmed oldest-first; zero means unlimited.
func NewChatRepository(limit int) *ChatRepository {
	return &ChatRepository{
		sessions: make(map[string]domain.ChatSession),
		limit:    limit,
		now:      time.Now,
	}
}

// GetSession returns the owner's session.
func (r *ChatRepository) GetSession(_ context.Context, ownerID string) (domain.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[ownerID]
	if !ok {
		return domain.ChatSession{}, repositories.NotFoundErr("chats.get", "chat session not found")
	}
	return cloneSession(session), nil
}

// AppendMessage adds a message, creating the session on first use.
func (r *ChatRepository) AppendMessage(_ context.Context, ownerID string, msg domain.ChatMessage) (domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	session, ok := r.sessions[ownerID]
	if !ok {
		session = domain.ChatSession{
			ID:        ownerID,
			OwnerID:   ownerID,
			CreatedAt: now,
		}
	}

	msg.SessionID = session.ID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	session.Messages = append(session.Messages, msg)
	if r.limit > 0 && len(session.Messages) > r.limit {
		session.Messages = session.Messages[len(session.Messages)-r.limit:]
	}
	session.UpdatedAt = now
	r.sessions[ownerID] = session
	return cloneSession(session), nil
}

// ClearSession drops the owner's conversation.
func (r *ChatRepository) ClearSession(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, ownerID)
	return nil
}

func cloneSession(session domain.ChatSession) domain.ChatSession {
	messages := make([]domain.ChatMessage, len(session.Messages))
	copy(messages, session.Messages)
	session.Messages = messages
	return session
}
