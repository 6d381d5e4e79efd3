// middleware/auth_http.go - net/http compatible auth middleware
package middleware

import (
	"context"
	"errors"
	"net/http"

	"taskhub/apperr"
	"taskhub/services"
	"taskhub/utils"
)

type contextKey string

const userIDKey contextKey = "userId"

// HTTPAuth is the net/http counterpart of Auth for the standalone websocket
// server. It resolves the user only; organization context does not apply.
func HTTPAuth(tokens *utils.TokenIssuer, access *services.AccessService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := utils.BearerToken(r)
			if tokenString == "" {
				utils.JSONError(w, http.StatusUnauthorized, "Missing authorization token")
				return
			}

			claims, err := tokens.Parse(tokenString)
			if err != nil {
				utils.JSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			caps, _, err := access.Resolve(r.Context(), claims.UserID, "")
			if err != nil {
				var appErr *apperr.Error
				if errors.As(err, &appErr) {
					utils.JSONError(w, appErr.Status(), appErr.Message)
					return
				}
				utils.JSONError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, caps.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext extracts the user id stored by HTTPAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}
