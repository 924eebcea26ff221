package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vaultclub/vault-api/internal/auth"
	"github.com/vaultclub/vault-api/internal/repos/accesslogs"
)

type ctxKey int

const (
	userCtxKey ctxKey = iota
	callerIDCtxKey
)

// userFrom returns the authenticated caller placed by requireAuth.
func userFrom(ctx context.Context) (auth.User, bool) {
	u, ok := ctx.Value(userCtxKey).(auth.User)

	return u, ok
}

// callerID lets the outer access-log middleware observe the identity the
// inner auth middleware resolved, if any.
type callerID struct {
	id uuid.NullUUID
}

// requireAPIKey checks the static service-to-service key with a
// constant-time compare.
func requireAPIKey(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("x-vault-club-api-key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
				writeError(w, http.StatusForbidden, "Invalid vault club API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth resolves the bearer token and stores the caller in the
// request context.
func requireAuth(verifier auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")

			user, err := verifier.Verify(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid authentication token")
				return
			}

			if caller, ok := r.Context().Value(callerIDCtxKey).(*callerID); ok {
				caller.id = uuid.NullUUID{UUID: user.ID, Valid: true}
			}

			ctx := context.WithValue(r.Context(), userCtxKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireIdempotencyKey rejects mutating requests without the header.
func requireIdempotencyKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-idempotency-key") == "" {
			writeError(w, http.StatusBadRequest, "Missing required header: x-idempotency-key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// cors answers preflight requests and stamps the allow headers for
// browser clients.
func cors(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	fallback := ""
	if len(allowedOrigins) > 0 {
		fallback = allowedOrigins[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if _, ok := allowed[origin]; !ok {
				origin = fallback
			}

			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Access-Control-Allow-Headers",
				"authorization, content-type, x-vault-club-api-key, x-idempotency-key")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// accessLog records each request to the access_logs table, best effort.
func accessLog(logs accesslogs.AccessLogs) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			caller := &callerID{}

			ctx := context.WithValue(r.Context(), callerIDCtxKey, caller)
			next.ServeHTTP(rec, r.WithContext(ctx))

			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			err = logs.Insert(r.Context(), accesslogs.Row{
				Endpoint:  r.URL.Path,
				UserID:    caller.id,
				IPAddress: ip,
				UserAgent: r.UserAgent(),
				Status:    rec.status,
			})
			if err != nil {
				slog.Error("failed to record access log", "error", err, "endpoint", r.URL.Path)
			}
		})
	}
}
