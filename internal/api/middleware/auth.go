package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dom/mafia-server/internal/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	ClaimsKey contextKey = "claims"
)

func Auth(validator *auth.Validator, log *zap.Logger) func(http.Handler) http.Handler {
	log = log.Named("auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				log.Debug("missing bearer token", zap.String("path", r.URL.Path))
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				log.Debug("token validation failed", zap.Error(err))
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header,
// falling back to the token query parameter browsers use for websockets.
func BearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	token := r.URL.Query().Get("token")
	return token, token != ""
}

func GetClaims(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(auth.Claims)
	return claims, ok
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := GetClaims(ctx)
	return claims.UserID, ok
}
