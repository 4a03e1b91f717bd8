package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/swiftmart/api/internal/domain"
	pfirestore "github.com/swiftmart/api/internal/platform/firestore"
)

const chatCollectionPattern = "users/%s/chatMessages"

// ChatRepository persists support conversations under each user document,
// one document per message.
type ChatRepository struct {
	provider *pfirestore.Provider
	limit    int
}

// NewChatRepository constructs a Firestore-backed chat repository. History
// beyond limit messages is trimmed oldest-first; zero means unlimited.
func NewChatRepository(provider *pfirestore.Provider, limit int) (*ChatRepository, error) {
	if provider == nil {
		return nil, errors.New("chat repository requires firestore provider")
	}
	return &ChatRepository{provider: provider, limit: limit}, nil
}

type chatMessageDocument struct {
	Role      string    `firestore:"role"`
	Text      string    `firestore:"text"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// GetSession loads the owner's conversation ordered oldest first.
func (r *ChatRepository) GetSession(ctx context.Context, ownerID string) (domain.ChatSession, error) {
	coll, err := r.collection(ctx, ownerID)
	if err != nil {
		return domain.ChatSession{}, err
	}

	iter := coll.OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	session := domain.ChatSession{ID: ownerID, OwnerID: ownerID}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.ChatSession{}, pfirestore.WrapError("chats.get", err)
		}
		var doc chatMessageDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.ChatSession{}, pfirestore.WrapError("chats.decode", err)
		}
		session.Messages = append(session.Messages, domain.ChatMessage{
			ID:        snap.Ref.ID,
			SessionID: ownerID,
			Role:      domain.ChatRole(doc.Role),
			Text:      doc.Text,
			CreatedAt: doc.CreatedAt,
		})
	}

	if len(session.Messages) == 0 {
		return domain.ChatSession{}, pfirestore.WrapError("chats.get", errNotFoundStatus("chat session not found"))
	}
	session.CreatedAt = session.Messages[0].CreatedAt
	session.UpdatedAt = session.Messages[len(session.Messages)-1].CreatedAt
	return session, nil
}

// AppendMessage adds a message and trims history beyond the limit.
func (r *ChatRepository) AppendMessage(ctx context.Context, ownerID string, msg domain.ChatMessage) (domain.ChatSession, error) {
	coll, err := r.collection(ctx, ownerID)
	if err != nil {
		return domain.ChatSession{}, err
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	doc := chatMessageDocument{
		Role:      string(msg.Role),
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	}
	if _, err := coll.NewDoc().Set(ctx, doc); err != nil {
		return domain.ChatSession{}, pfirestore.WrapError("chats.append", err)
	}

	session, err := r.GetSession(ctx, ownerID)
	if err != nil {
		return domain.ChatSession{}, err
	}

	if r.limit > 0 && len(session.Messages) > r.limit {
		excess := session.Messages[:len(session.Messages)-r.limit]
		for _, old := range excess {
			if _, err := coll.Doc(old.ID).Delete(ctx); err != nil {
				return domain.ChatSession{}, pfirestore.WrapError("chats.trim", err)
			}
		}
		session.Messages = session.Messages[len(excess):]
	}
	return session, nil
}

// ClearSession deletes every message in the conversation.
func (r *ChatRepository) ClearSession(ctx context.Context, ownerID string) error {
	coll, err := r.collection(ctx, ownerID)
	if err != nil {
		return err
	}

	iter := coll.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return pfirestore.WrapError("chats.clear", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return pfirestore.WrapError("chats.clear", err)
		}
	}
	return nil
}

func (r *ChatRepository) collection(ctx context.Context, ownerID string) (*firestore.CollectionRef, error) {
	if ownerID == "" {
		return nil, errors.New("chat repository: owner id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf(chatCollectionPattern, ownerID)), nil
}
