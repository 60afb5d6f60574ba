// Package auth verifies bearer tokens on inbound requests and carries the
// resulting caller identity through the context.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the caller established by token verification. The engine
// only needs the fact that a caller is authenticated; Subject is kept for
// request logging.
type Identity struct {
	Subject string
}

type contextKey struct{}

// WithIdentity returns a context carrying an authenticated identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext reports the caller identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// Verifier checks inbound bearer tokens against the configured API token.
type Verifier struct {
	token string
}

func NewVerifier(token string) *Verifier {
	return &Verifier{token: token}
}

// Authenticate extracts and verifies the Authorization header. Missing,
// malformed or mismatched tokens all yield ErrUnauthenticated.
func (v *Verifier) Authenticate(r *http.Request) (Identity, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return Identity{}, ErrUnauthenticated
	}

	presented := strings.TrimPrefix(header, "Bearer ")
	if subtle.ConstantTimeCompare([]byte(presented), []byte(v.token)) != 1 {
		return Identity{}, ErrUnauthenticated
	}

	return Identity{Subject: "api-token"}, nil
}
