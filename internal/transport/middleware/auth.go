package middleware

import (
	"net/http"

	"github.com/frahmantamala/metro-ticketing/internal"
	"github.com/frahmantamala/metro-ticketing/pkg/logger"
)

// PrincipalContext tags the request logger with the authenticated caller.
// It must run after the auth middleware.
func PrincipalContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := internal.PrincipalFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		fields := []any{"user_id", p.UserID, "role", p.Role}
		if p.IsStationAdmin() {
			fields = append(fields, "station_id", p.StationID)
		}
		ctx := logger.With(r.Context(), fields...)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
