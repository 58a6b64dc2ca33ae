package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/metro-ticketing/internal"
	"github.com/frahmantamala/metro-ticketing/internal/transport"
)

// RoleAuthorization gates routes on the role carried by the access token.
// It must run after AuthMiddleware.
type RoleAuthorization struct {
	*transport.BaseHandler
}

func NewRoleAuthorization(logger *slog.Logger) *RoleAuthorization {
	return &RoleAuthorization{BaseHandler: transport.NewBaseHandler(logger)}
}

func (ra *RoleAuthorization) Require(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := ra.Principal(w, r)
			if !ok {
				return
			}

			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			ra.Logger.WarnContext(r.Context(), "access denied: insufficient role",
				"user_id", p.UserID,
				"role", p.Role,
				"required_roles", roles)
			ra.WriteAppError(w, internal.ErrInsufficientRole)
		})
	}
}

func (ra *RoleAuthorization) RequireCommuter() func(http.Handler) http.Handler {
	return ra.Require(internal.RoleCommuter)
}

func (ra *RoleAuthorization) RequireStationAdmin() func(http.Handler) http.Handler {
	return ra.Require(internal.RoleStationAdmin)
}
