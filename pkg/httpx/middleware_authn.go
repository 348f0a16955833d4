package httpx

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

// VerifyFunc resolves a raw bearer token to the principal it was issued to.
type VerifyFunc func(ctx context.Context, token string) (Principal, error)

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(authz[len("Bearer "):])
	return raw, raw != ""
}

// BearerAuth rejects requests without a live access token and stores the
// resolved Principal in the request context.
func BearerAuth(verify VerifyFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			p, err := verify(ctx, raw)
			if err != nil {
				log.Info("bearer token rejected", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithPrincipal(ctx, p)))
		})
	}
}

// AdminToken guards operator endpoints with a static shared secret. An
// empty secret disables the guarded routes entirely.
func AdminToken(secret string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				WriteJSON(w, http.StatusForbidden, map[string]string{"error": "admin api disabled"})
				return
			}
			raw, ok := BearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(raw), []byte(secret)) != 1 {
				writeBearerError(w, "invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
}
