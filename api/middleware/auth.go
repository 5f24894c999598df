package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storyframe-backend/api/responses"
	pkgAuth "github.com/angelmondragon/storyframe-backend/pkg/auth"
	"github.com/angelmondragon/storyframe-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storyframe-backend/pkg/errors"
	"github.com/angelmondragon/storyframe-backend/pkg/logger"
)

// Auth rejects requests without a valid access token. Downstream handlers
// read the caller through UserIDFromContext.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := pkgAuth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			userID := claims.UserID.String()
			ctx := context.WithValue(context.WithValue(r.Context(), ctxUserID, userID), ctxAuthToken, token)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
