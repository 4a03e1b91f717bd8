package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity describes the authenticated caller extracted from a bearer token.
type Identity struct {
	UID   string
	Email string
	Name  string
	Roles []string
}

// HasRole reports whether the identity carries the supplied role.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	role = strings.ToLower(strings.TrimSpace(role))
	for _, r := range i.Roles {
		if strings.ToLower(strings.TrimSpace(r)) == role {
			return true
		}
	}
	return false
}

type identityContextKey struct{}

// WithIdentity stores the identity on the context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext retrieves the identity when the request was authenticated.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	identity, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// ErrInvalidToken is returned when a bearer token fails verification.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenVerifier validates a bearer token and resolves the caller identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// JWTVerifier validates HS256-signed tokens issued by the accounts service.
type JWTVerifier struct {
	secret []byte
	issuer string
	clock  func() time.Time
}

// JWTVerifierOption customises the verifier.
type JWTVerifierOption func(*JWTVerifier)

// WithIssuer enforces the iss claim when non-empty.
func WithIssuer(issuer string) JWTVerifierOption {
	return func(v *JWTVerifier) {
		v.issuer = strings.TrimSpace(issuer)
	}
}

// WithClock overrides the time source, primarily for testing.
func WithClock(clock func() time.Time) JWTVerifierOption {
	return func(v *JWTVerifier) {
		if clock != nil {
			v.clock = clock
		}
	}
}

// NewJWTVerifier constructs a verifier over the shared signing secret.
func NewJWTVerifier(secret string, opts ...JWTVerifierOption) (*JWTVerifier, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	v := &JWTVerifier{
		secret: []byte(trimmed),
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v, nil
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Verify parses and validates the token, returning the embedded identity.
func (v *JWTVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if v == nil {
		return nil, errors.New("auth: verifier is nil")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &sessionClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return v.clock().UTC() }),
	)
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}

	uid := strings.TrimSpace(claims.Subject)
	if uid == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Identity{
		UID:   uid,
		Email: strings.TrimSpace(claims.Email),
		Name:  strings.TrimSpace(claims.Name),
		Roles: append([]string(nil), claims.Roles...),
	}, nil
}

// StaticVerifier resolves tokens from a fixed map. Test and local-dev use only.
type StaticVerifier struct {
	tokens map[string]Identity
}

// NewStaticVerifier constructs a StaticVerifier over the supplied token map.
func NewStaticVerifier(tokens map[string]Identity) *StaticVerifier {
	copied := make(map[string]Identity, len(tokens))
	for k, v := range tokens {
		copied[strings.TrimSpace(k)] = v
	}
	return &StaticVerifier{tokens: copied}
}

// Verify implements TokenVerifier.
func (s *StaticVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if s == nil {
		return nil, ErrInvalidToken
	}
	identity, ok := s.tokens[strings.TrimSpace(token)]
	if !ok {
		return nil, ErrInvalidToken
	}
	dup := identity
	return &dup, nil
}
