package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/myrjola/manuscript/internal/contexthelpers"
	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/logging"
)

// AuthenticateMiddleware marks the request authenticated when the session belongs to an existing user.
//
// It must run inside the session manager's LoadAndSave.
func (s *Service) AuthenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := s.sessionManager.GetString(ctx, string(userIDSessionKey))

		// User has not yet authenticated.
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		// If user exists, set context values.
		exists, err := s.users.Exists(ctx, userID)
		if err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "server error",
				slog.String("method", r.Method), slog.String("uri", r.URL.RequestURI()), errors.SlogError(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"Internal Server Error"}`))
			return
		}
		if exists {
			r = contexthelpers.AuthenticateContext(r, userID)
		}

		// Add session information to logging context.
		token := s.sessionManager.Token(ctx)
		// Hash token with sha256 to avoid leaking it in logs.
		tokenHash := sha256.Sum256([]byte(token))
		ctx = logging.WithAttrs(r.Context(),
			slog.String("session_hash", hex.EncodeToString(tokenHash[:])),
			slog.String("user_id", userID),
		)
		r = r.WithContext(ctx)

		next.ServeHTTP(w, r)
	})
}

// RequireAuthentication rejects anonymous requests with 401 Unauthorized.
func RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !contexthelpers.IsAuthenticated(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		// Authenticated responses are user specific.
		w.Header().Add("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
