package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lojafacil/api/internal/platform/auth"
	"github.com/lojafacil/api/internal/platform/httpx"
)

var errBodyTooLarge = errors.New("request body too large")

const customerHeader = "X-Customer-Id"

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errors.New("request body is required")
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, errBodyTooLarge
	}
	if len(body) == 0 {
		return nil, errors.New("request body is required")
	}
	return body, nil
}

func decodeJSONBody(r *http.Request, limit int64, dst any) error {
	body, err := readLimitedBody(r, limit)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("request body is not valid JSON")
	}
	return nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	httpx.WriteJSON(w, status, payload)
}

func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if errors.Is(err, errBodyTooLarge) {
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		return
	}
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
}

func storeIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "storeId"))
}

// customerIDFromRequest prefers the authenticated Firebase UID and falls back
// to the anonymous session identifier the storefront sends for guests.
func customerIDFromRequest(r *http.Request) string {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok && identity != nil {
		if uid := strings.TrimSpace(identity.UID); uid != "" {
			return uid
		}
	}
	return strings.TrimSpace(r.Header.Get(customerHeader))
}
