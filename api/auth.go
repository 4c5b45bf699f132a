package api

import (
	"crypto/subtle"
	"net/http"
)

// TokenCookie is the cookie carrying the caller's session token.
const TokenCookie = "jwttoken"

// TokenChecker validates the session token presented by a caller.
type TokenChecker interface {
	CheckToken(token string) bool
}

// StaticTokenChecker accepts exactly one shared token.
type StaticTokenChecker struct {
	Token string
}

func (c StaticTokenChecker) CheckToken(token string) bool {
	if c.Token == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Token), []byte(token)) == 1
}

// RequireToken rejects requests whose jwttoken cookie the checker refuses.
// A nil checker lets every request through.
func RequireToken(checker TokenChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if checker == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(TokenCookie)
			if err != nil || !checker.CheckToken(cookie.Value) {
				writeCodedError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid session token", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
