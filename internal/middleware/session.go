package middleware

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/Totarae/shorttty/internal/auth"
)

// RequireSession пропускает только запросы с действующей сессией.
// API получает 401, страницы уводятся на /auth?redirect=<исходный путь>.
func RequireSession(a *auth.Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := a.CurrentUser(r)
			if err != nil {
				if isAPIRequest(r) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
					return
				}
				http.Redirect(w, r, "/auth?redirect="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
