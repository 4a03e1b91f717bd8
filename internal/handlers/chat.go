package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swiftmart/api/internal/platform/httpx"
	"github.com/swiftmart/api/internal/services"
)

// ChatHandlers exposes the support chat widget endpoints.
type ChatHandlers struct {
	chat *services.ChatService
}

const maxChatBodySize = 8 * 1024

// NewChatHandlers constructs the chat handler group.
func NewChatHandlers(chat *services.ChatService) *ChatHandlers {
	return &ChatHandlers{chat: chat}
}

// Routes wires the /chat endpoints onto the provided router.
func (h *ChatHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/message", h.sendMessage)
	r.Get("/history", h.history)
	r.Delete("/history", h.clearHistory)
}

func (h *ChatHandlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.chat == nil {
		httpx.WriteError(ctx, w, httpx.NewError("chat_service_unavailable", "chat service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSONBody(r, maxChatBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	session, err := h.chat.SendMessage(ctx, req.Text)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildChatSessionPayload(session))
}

func (h *ChatHandlers) history(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.chat == nil {
		httpx.WriteError(ctx, w, httpx.NewError("chat_service_unavailable", "chat service is unavailable", http.StatusServiceUnavailable))
		return
	}

	session, err := h.chat.History(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildChatSessionPayload(session))
}

func (h *ChatHandlers) clearHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.chat == nil {
		httpx.WriteError(ctx, w, httpx.NewError("chat_service_unavailable", "chat service is unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.chat.ClearHistory(ctx); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
