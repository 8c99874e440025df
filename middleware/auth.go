package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"short-link-service/auth"

	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	userIDKey   contextKey = "userID"
	usernameKey contextKey = "username"
)

// UserAuth validates bearer tokens issued by the auth package.
type UserAuth struct {
	jwtManager *auth.JWTManager
}

func NewUserAuth(jwtManager *auth.JWTManager) *UserAuth {
	return &UserAuth{jwtManager: jwtManager}
}

// Protect requires a valid Bearer token and attaches the identity to the
// request context.
func (ua *UserAuth) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ua.claimsFrom(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "Missing or invalid authorization token",
			})
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		ctx = context.WithValue(ctx, usernameKey, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional attaches the identity when a valid token is present but lets
// anonymous requests through. Used by the public shorten endpoint so that
// logged-in callers still get ownership attached.
func (ua *UserAuth) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := ua.claimsFrom(r); ok {
			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, usernameKey, claims.Username)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func (ua *UserAuth) claimsFrom(r *http.Request) (*auth.Claims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}

	claims, err := ua.jwtManager.Validate(parts[1])
	if err != nil {
		log.Debug().Err(err).Msg("Token rejected")
		return nil, false
	}
	return claims, true
}

// GetUserID extracts the authenticated user ID from the request context,
// empty for anonymous requests.
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}
