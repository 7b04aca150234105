package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/AdamBeresnev/op-tourney/internal/httputil"
	users "github.com/AdamBeresnev/op-tourney/internal/user"
	"github.com/google/uuid"
)

// Headers set by the identity provider in front of the API.
const (
	UserIDHeader  = "X-User-ID"
	IsAdminHeader = "X-User-Admin"
)

// LoadCaller puts the caller named by the identity headers into the context.
// Requests without them carry an anonymous caller.
func LoadCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := users.Caller{}

		if raw := r.Header.Get(UserIDHeader); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				httputil.BadRequest(w, "invalid "+UserIDHeader+" header", err)
				return
			}
			caller.ID = id
			caller.IsAdmin, _ = strconv.ParseBool(r.Header.Get(IsAdminHeader))
		}

		ctx := context.WithValue(r.Context(), users.CallerKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects anonymous callers.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := GetCallerFromContext(r.Context())
		if caller.ID == uuid.Nil {
			httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetCallerFromContext(ctx context.Context) users.Caller {
	caller, _ := ctx.Value(users.CallerKey).(users.Caller)
	return caller
}
