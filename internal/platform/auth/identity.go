package auth

import (
	"context"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// Identity captures the authenticated shopper or store owner extracted from a
// Firebase ID token.
type Identity struct {
	UID   string
	Email string
	Owner bool

	token *firebaseauth.Token
}

// Token exposes the decoded Firebase ID token associated with this identity.
func (i *Identity) Token() *firebaseauth.Token {
	if i == nil {
		return nil
	}
	return i.token
}

type contextKey string

const identityContextKey contextKey = "github.com/lojafacil/api/internal/platform/auth/identity"

// WithIdentity stores the identity within the context for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity previously stored in context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

func identityFromToken(token *firebaseauth.Token) *Identity {
	identity := &Identity{UID: token.UID, token: token}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = strings.TrimSpace(email)
	}
	if owner, ok := token.Claims["store_owner"].(bool); ok {
		identity.Owner = owner
	}
	return identity
}
