package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/juju/loggo"

	"connectme/auth"
)

var logger = loggo.GetLogger("connectme.middleware")

type contextKey string

// RoleKey - ключ роли из токена в контексте запроса.
const RoleKey contextKey = "role"

// TokenValidator проверяет ключ доступа.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// JWTMiddleware проверяет наличие и валидность ключа в заголовке Authorization.
// Роль из токена добавляется в контекст запроса.
func JWTMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debugf("missing Authorization header for %s %s", r.Method, r.URL.Path)
				unauthorized(w, "missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				logger.Debugf("malformed Authorization header for %s %s", r.Method, r.URL.Path)
				unauthorized(w, "expected Authorization: Bearer {token}")
				return
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				logger.Warningf("invalid token for %s %s: %v", r.Method, r.URL.Path, err)
				unauthorized(w, "invalid token: "+err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), RoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger пишет в лог каждый запрос.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debugf("%s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

// CORS разрешает запросы из браузера с любого источника.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Max-Age", "600")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
