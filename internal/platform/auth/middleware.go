package auth

import (
	"context"
	"net/http"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/lojafacil/api/internal/platform/httpx"
)

// TokenVerifier abstracts Firebase ID token verification for testing.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// Authenticator builds middleware enforcing Firebase authentication.
type Authenticator struct {
	verifier TokenVerifier
}

// NewAuthenticator constructs an Authenticator over the given verifier.
func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resulting identity on the request context.
func (a *Authenticator) RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if a == nil || a.verifier == nil {
				httpx.WriteError(ctx, w, httpx.NewError("auth_unavailable", "authentication is unavailable", http.StatusServiceUnavailable))
				return
			}

			raw, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "bearer token required", http.StatusUnauthorized))
				return
			}

			token, err := a.verifier.VerifyIDToken(ctx, raw)
			if err != nil {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "token verification failed", http.StatusUnauthorized))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identityFromToken(token))))
		})
	}
}

// OptionalAuth attaches an identity when a valid token is present but lets
// anonymous requests through. Public storefront routes use this so signed-in
// shoppers keep their cart across devices.
func (a *Authenticator) OptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if a != nil && a.verifier != nil {
				if raw, ok := extractBearerToken(r.Header.Get("Authorization")); ok {
					if token, err := a.verifier.VerifyIDToken(ctx, raw); err == nil {
						ctx = WithIdentity(ctx, identityFromToken(token))
					}
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
