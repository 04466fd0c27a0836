package http

import (
	"context"
	"net/http"
	"strings"

	"timed-quiz-service/internal/auth"
)

// TokenParser validates bearer tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

type ctxKey int

const (
	ctxKeyUser ctxKey = iota
	ctxKeyNickname
)

// UserFromContext returns the authenticated user id, or "" for anonymous requests.
func UserFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUser).(string); ok {
		return v
	}
	return ""
}

func nicknameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyNickname).(string); ok {
		return v
	}
	return ""
}

type authenticator struct {
	tokens TokenParser
}

// optional attaches the caller's identity when a token is presented. Browsers
// cannot set headers on websocket upgrades, so a "token" query parameter is
// accepted as well. A presented but invalid token is rejected.
func (a authenticator) optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" || a.tokens == nil {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := a.tokens.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token"})
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUser, claims.Subject)
		ctx = context.WithValue(ctx, ctxKeyNickname, claims.Nickname)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "login required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
