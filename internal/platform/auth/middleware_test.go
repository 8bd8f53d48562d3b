package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
)

type stubVerifier struct {
	token *firebaseauth.Token
	err   error
	seen  string
}

func (s *stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*firebaseauth.Token, error) {
	s.seen = idToken
	if s.err != nil {
		return nil, s.err
	}
	return s.token, nil
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	authn := NewAuthenticator(&stubVerifier{})
	handler := authn.RequireAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not run without a token")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestRequireAuthStoresIdentity(t *testing.T) {
	verifier := &stubVerifier{token: &firebaseauth.Token{
		UID:    "user-1",
		Claims: map[string]any{"email": "a@b.com", "store_owner": true},
	}}
	authn := NewAuthenticator(verifier)

	var got *Identity
	handler := authn.RequireAuth()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token-abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if verifier.seen != "token-abc" {
		t.Fatalf("verifier received %q", verifier.seen)
	}
	if got == nil || got.UID != "user-1" || got.Email != "a@b.com" || !got.Owner {
		t.Fatalf("unexpected identity %+v", got)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	authn := NewAuthenticator(&stubVerifier{err: errors.New("expired")})
	handler := authn.RequireAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not run with an invalid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestOptionalAuthLetsAnonymousThrough(t *testing.T) {
	authn := NewAuthenticator(&stubVerifier{err: errors.New("unused")})

	var called bool
	handler := authn.OptionalAuth()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := IdentityFromContext(r.Context()); ok {
			t.Fatalf("anonymous request must not carry an identity")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatalf("next handler not invoked")
	}
}
