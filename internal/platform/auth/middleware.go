package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/swiftmart/api/internal/platform/httpx"
	"github.com/swiftmart/api/internal/platform/requestctx"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	deviceIDHeader      = "X-Device-ID"
)

// Middleware extracts bearer identity and the guest device id from requests.
type Middleware struct {
	verifier TokenVerifier
}

// NewMiddleware constructs the auth middleware over the supplied verifier.
func NewMiddleware(verifier TokenVerifier) *Middleware {
	return &Middleware{verifier: verifier}
}

// Optional resolves the identity when a valid bearer token is present and
// otherwise lets the request continue as a guest. The device id header is
// recorded either way so guest-scoped stores can be keyed.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	if next == nil {
		next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if device := strings.TrimSpace(r.Header.Get(deviceIDHeader)); device != "" {
			ctx = requestctx.WithDeviceID(ctx, device)
		}
		if token := bearerToken(r); token != "" && m != nil && m.verifier != nil {
			if identity, err := m.verifier.Verify(ctx, token); err == nil {
				ctx = WithIdentity(ctx, identity)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Required rejects requests without a valid bearer token. This is the single
// place a 401 is produced for protected routes.
func (m *Middleware) Required(next http.Handler) http.Handler {
	if next == nil {
		next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if _, ok := IdentityFromContext(ctx); ok {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" || m == nil || m.verifier == nil {
			unauthorized(ctx, w)
			return
		}
		identity, err := m.verifier.Verify(ctx, token)
		if err != nil {
			unauthorized(ctx, w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get(authorizationHeader))
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
}

func unauthorized(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
}
