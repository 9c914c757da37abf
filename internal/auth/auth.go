package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/citizenwallet/multisig/internal/common"
)

type Auth struct {
	apiKey string
}

func New(apiKey string) *Auth {
	return &Auth{apiKey: apiKey}
}

// AuthMiddleware is a middleware that checks for a valid API key.
// It lets every request through when no key is configured.
func (a *Auth) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.apiKey == "" || r.URL.Path == "/health" || r.URL.Path == "/version" {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get("Authorization")
		apiKey = strings.TrimPrefix(apiKey, "Bearer ")
		if apiKey == "" {
			common.Error(w, http.StatusUnauthorized, "missing api key", nil)
			return
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(a.apiKey)) != 1 {
			common.Error(w, http.StatusUnauthorized, "invalid api key", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
