package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/raushankrgupta/tailorme/session"
	"github.com/raushankrgupta/tailorme/utils"
)

// CORSMiddleware answers preflight requests and allows any origin.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthMiddleware verifies the bearer token and attaches the session to the
// request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			utils.RespondError(w, nil, "Authorization header missing", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.RespondError(w, nil, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		sess, err := h.Auth.Authenticate(r.Context(), parts[1])
		if err != nil {
			utils.RespondAPIError(w, nil, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
	})
}

// RequireRole only lets sessions holding role through.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := session.FromContext(r.Context())
			if err != nil {
				utils.RespondError(w, nil, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !sess.HasRole(role) {
				utils.RespondError(w, nil, fmt.Sprintf("Forbidden: %s accounts only", role), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
