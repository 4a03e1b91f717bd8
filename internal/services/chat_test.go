package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/platform/requestctx"
)

func newChatService(t *testing.T, responder Responder) *ChatService {
	t.Helper()
	svc, err := NewChatService(ChatServiceConfig{
		Stores:    Stores{Account: shopperStores(), Guest: shopperStores()},
		Responder: responder,
	})
	if err != nil {
		t.Fatalf("new chat service: %v", err)
	}
	return svc
}

func TestSendMessageRoundTrips(t *testing.T) {
	svc := newChatService(t, func(_ context.Context, _ domain.ChatSession, msg string) string {
		return "echo: " + msg
	})
	ctx := shopperContext()

	session, err := svc.SendMessage(ctx, "where is my order?")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if len(session.Messages) != 2 {
		t.Fatalf("expected shopper message plus reply, got %d", len(session.Messages))
	}
	if session.Messages[0].Role != domain.ChatRoleShopper || session.Messages[1].Role != domain.ChatRoleAssistant {
		t.Fatalf("unexpected roles: %+v", session.Messages)
	}
	if session.Messages[1].Text != "echo: where is my order?" {
		t.Fatalf("unexpected reply %q", session.Messages[1].Text)
	}
	if session.Messages[0].ID == "" || session.Messages[0].ID == session.Messages[1].ID {
		t.Fatal("messages need distinct ids")
	}
}

func TestSendMessageValidation(t *testing.T) {
	svc := newChatService(t, nil)
	ctx := shopperContext()

	if _, err := svc.SendMessage(ctx, "   "); !errors.Is(err, ErrChatInvalidInput) {
		t.Fatalf("expected empty-message rejection, got %v", err)
	}
	if _, err := svc.SendMessage(ctx, strings.Repeat("x", maxChatMessageLen+1)); !errors.Is(err, ErrChatInvalidInput) {
		t.Fatalf("expected oversize rejection, got %v", err)
	}
	if _, err := svc.SendMessage(context.Background(), "hello"); !errors.Is(err, ErrNoShopper) {
		t.Fatalf("expected ErrNoShopper for anonymous context, got %v", err)
	}
}

func TestHistoryIsScopedPerShopper(t *testing.T) {
	svc := newChatService(t, nil)
	accountCtx := shopperContext()
	guestCtx := requestctx.WithDeviceID(context.Background(), "device-7")

	if _, err := svc.SendMessage(accountCtx, "refund please"); err != nil {
		t.Fatalf("account message: %v", err)
	}
	if _, err := svc.SendMessage(guestCtx, "hi"); err != nil {
		t.Fatalf("guest message: %v", err)
	}

	account, err := svc.History(accountCtx)
	if err != nil {
		t.Fatalf("account history: %v", err)
	}
	guest, err := svc.History(guestCtx)
	if err != nil {
		t.Fatalf("guest history: %v", err)
	}
	if len(account.Messages) != 2 || len(guest.Messages) != 2 {
		t.Fatalf("expected two messages each, got %d and %d", len(account.Messages), len(guest.Messages))
	}
	if account.Messages[0].Text == guest.Messages[0].Text {
		t.Fatal("conversations must not leak across shoppers")
	}

	if err := svc.ClearHistory(accountCtx); err != nil {
		t.Fatalf("clear history: %v", err)
	}
	cleared, err := svc.History(accountCtx)
	if err != nil {
		t.Fatalf("history after clear: %v", err)
	}
	if len(cleared.Messages) != 0 {
		t.Fatalf("expected empty history, got %d messages", len(cleared.Messages))
	}
}

func TestCannedResponder(t *testing.T) {
	reply := CannedResponder(context.Background(), domain.ChatSession{}, "how do refunds work?")
	if !strings.Contains(reply, "Refunds") {
		t.Fatalf("expected refund answer, got %q", reply)
	}
	reply = CannedResponder(context.Background(), domain.ChatSession{}, "something unrelated entirely")
	if !strings.Contains(reply, "support agent") {
		t.Fatalf("expected fallback answer, got %q", reply)
	}
}
