package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/chat/message", map[string]any{
		"text": "Where is my delivery?",
	}, asShopper())
	require.Equal(t, http.StatusOK, rec.Code)

	var session chatSessionPayload
	decodeResponse(t, rec, &session)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, "shopper", session.Messages[0].Role)
	assert.Equal(t, "assistant", session.Messages[1].Role)
	assert.NotEmpty(t, session.Messages[1].Text)

	rec = srv.do(t, http.MethodGet, "/api/chat/history", nil, asShopper())
	require.Equal(t, http.StatusOK, rec.Code)
	decodeResponse(t, rec, &session)
	assert.Len(t, session.Messages, 2)

	rec = srv.do(t, http.MethodDelete, "/api/chat/history", nil, asShopper())
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/chat/history", nil, asShopper())
	require.Equal(t, http.StatusOK, rec.Code)
	decodeResponse(t, rec, &session)
	assert.Empty(t, session.Messages)
}

func TestChatRejectsEmptyAndGuestWorks(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/chat/message", map[string]any{
		"text": "   ",
	}, asShopper())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/chat/message", map[string]any{
		"text": "hello",
	}, asDevice("device-3"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/chat/message", map[string]any{
		"text": "hello",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
