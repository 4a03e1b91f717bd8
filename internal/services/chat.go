package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/repositories"
)

// ErrChatInvalidInput is returned for empty or oversized messages.
var ErrChatInvalidInput = errors.New("services: invalid chat input")

const maxChatMessageLen = 2000

// Responder produces the assistant's reply to a shopper message.
type Responder func(ctx context.Context, session domain.ChatSession, message string) string

// ChatServiceConfig wires the chat service dependencies.
type ChatServiceConfig struct {
	Stores Stores
	// Responder generates assistant replies. Defaults to the canned support
	// responder.
	Responder Responder
	Logger    EventLogger
	Clock     func() time.Time
}

// ChatService persists the support widget conversation and produces
// assistant replies so the widget round-trips without an agent backend.
type ChatService struct {
	stores    Stores
	responder Responder
	logger    EventLogger
	clock     func() time.Time
}

// NewChatService validates the configuration and builds the service.
func NewChatService(cfg ChatServiceConfig) (*ChatService, error) {
	if cfg.Stores.Account.Chats == nil || cfg.Stores.Guest.Chats == nil {
		return nil, errors.New("services: chat repositories are required")
	}
	responder := cfg.Responder
	if responder == nil {
		responder = CannedResponder
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &ChatService{
		stores:    cfg.Stores,
		responder: responder,
		logger:    logger,
		clock:     clockOrNow(cfg.Clock),
	}, nil
}

// SendMessage appends the shopper's message and the assistant's reply to the
// session and returns the updated conversation.
func (s *ChatService) SendMessage(ctx context.Context, text string) (domain.ChatSession, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatSession{}, fmt.Errorf("%w: message text is required", ErrChatInvalidInput)
	}
	if len(text) > maxChatMessageLen {
		return domain.ChatSession{}, fmt.Errorf("%w: message exceeds %d characters", ErrChatInvalidInput, maxChatMessageLen)
	}

	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return domain.ChatSession{}, err
	}

	now := s.clock()
	session, err := stores.Chats.AppendMessage(ctx, ownerID, domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.ChatRoleShopper,
		Text:      text,
		CreatedAt: now,
	})
	if err != nil {
		return domain.ChatSession{}, fmt.Errorf("append shopper message: %w", err)
	}

	reply := s.responder(ctx, session, text)
	session, err = stores.Chats.AppendMessage(ctx, ownerID, domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.ChatRoleAssistant,
		Text:      reply,
		CreatedAt: now,
	})
	if err != nil {
		return domain.ChatSession{}, fmt.Errorf("append assistant reply: %w", err)
	}

	s.logger(ctx, "chat.message_handled", map[string]any{
		"owner_id":      ownerID,
		"message_count": len(session.Messages),
	})
	return session, nil
}

// History returns the shopper's conversation, oldest first. A shopper with no
// history gets an empty session.
func (s *ChatService) History(ctx context.Context) (domain.ChatSession, error) {
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return domain.ChatSession{}, err
	}
	session, err := stores.Chats.GetSession(ctx, ownerID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.ChatSession{ID: ownerID, OwnerID: ownerID}, nil
		}
		return domain.ChatSession{}, fmt.Errorf("load chat history: %w", err)
	}
	return session, nil
}

// ClearHistory wipes the shopper's conversation.
func (s *ChatService) ClearHistory(ctx context.Context) error {
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return err
	}
	if err := stores.Chats.ClearSession(ctx, ownerID); err != nil && !repositories.IsNotFound(err) {
		return fmt.Errorf("clear chat history: %w", err)
	}
	return nil
}

// CannedResponder is the default assistant: keyword-matched support answers
// with a generic fallback.
func CannedResponder(_ context.Context, _ domain.ChatSession, message string) string {
	lowered := strings.ToLower(message)
	switch {
	case strings.Contains(lowered, "refund"):
		return "Refunds are processed to the original payment method within 5-7 business days of approval."
	case strings.Contains(lowered, "order") && strings.Contains(lowered, "cancel"):
		return "You can cancel an order from the Orders page while it is still pending. Confirmed orders need a support agent."
	case strings.Contains(lowered, "delivery") || strings.Contains(lowered, "deliver"):
		return "Standard delivery arrives within 15-30 minutes of order confirmation, depending on your area."
	case strings.Contains(lowered, "payment") || strings.Contains(lowered, "upi"):
		return "We accept cards, UPI, and popular wallets. If a payment failed, any debited amount is auto-reversed within 3 business days."
	case strings.Contains(lowered, "hello") || strings.Contains(lowered, "hi"):
		return "Hi! How can I help you with your order today?"
	default:
		return "Thanks for reaching out. A support agent will follow up shortly; meanwhile, check the FAQ for common questions."
	}
}
