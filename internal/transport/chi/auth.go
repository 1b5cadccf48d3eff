package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

const adminPrefix = "/v1/admin/"

// BearerAuthMiddleware returns a middleware that validates Bearer tokens.
// Admin routes accept only adminKeys; when adminKeys is empty they accept
// apiKeys like every other route. If both are empty, authentication is
// disabled (pass-through).
func BearerAuthMiddleware(apiKeys, adminKeys []string) func(http.Handler) http.Handler {
	api := nonEmpty(apiKeys)
	admin := nonEmpty(adminKeys)
	if len(admin) == 0 {
		admin = api
	}

	return func(next http.Handler) http.Handler {
		if len(api) == 0 && len(admin) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			keys := api
			if strings.HasPrefix(r.URL.Path, adminPrefix) {
				keys = admin
			}
			if len(keys) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized,
					codeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			if !known(keys, auth[len(bearerPrefix):]) {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func nonEmpty(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// known compares in constant time per key.
func known(keys []string, token string) bool {
	ok := false
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(token)) == 1 {
			ok = true
		}
	}
	return ok
}
