package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/modelcontext/hub/internal/domain"
	"github.com/modelcontext/hub/internal/store"
)

type contextKey int

const userKey contextKey = iota

// UserFromContext extracts the authenticated user from the request context,
// or nil when the request is anonymous.
func UserFromContext(ctx context.Context) *domain.User {
	if u, ok := ctx.Value(userKey).(*domain.User); ok {
		return u
	}
	return nil
}

// Middleware resolves a bearer token into a user and injects it into the
// request context. Requests without a valid token pass through anonymously;
// individual handlers decide whether a principal is required.
func Middleware(repo store.Repository, issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := issuer.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				slog.Debug("Rejected bearer token", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			user, err := repo.GetUserByID(r.Context(), userID)
			if err != nil || user == nil || !user.IsActive {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
