package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

var ErrInvalidToken = errors.New("invalid or unknown token")

// Identity is the opaque principal resolved by the external identity
// provider. The service trusts it and scopes queries by ID.
type Identity struct {
	ID   uuid.UUID
	Role string
}

// Verifier resolves a bearer credential to an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type ctxKey struct{}

// FromContext returns the identity stashed by Middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// WithIdentity is used by tests to inject an identity directly.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Middleware rejects requests without a resolvable bearer token.
func Middleware(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Authorization required"}`))
				return
			}

			identity, err := v.Verify(r.Context(), token)
			if err != nil {
				log.Warn().Err(err).Msg("auth: token verification failed")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// StaticVerifier resolves tokens from a fixed in-memory table. It stands in
// for the external identity provider in development and tests.
type StaticVerifier struct {
	tokens map[string]Identity
}

// NewStaticVerifier parses a "token=user_id:role,token=user_id:role" spec.
func NewStaticVerifier(spec string) (*StaticVerifier, error) {
	tokens := make(map[string]Identity)
	if spec == "" {
		return &StaticVerifier{tokens: tokens}, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		token, rest, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("auth: malformed token entry %q", entry)
		}
		idPart, role, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, fmt.Errorf("auth: malformed identity in token entry %q", entry)
		}
		userID, err := uuid.FromString(idPart)
		if err != nil {
			return nil, fmt.Errorf("auth: invalid user id in token entry %q: %w", entry, err)
		}
		tokens[token] = Identity{ID: userID, Role: role}
	}

	return &StaticVerifier{tokens: tokens}, nil
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (Identity, error) {
	identity, ok := v.tokens[token]
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return identity, nil
}
