package api

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/identity"
)

// Role sets a route may require.
var (
	admin   = []string{identity.RoleAdminActive}
	staff   = []string{identity.RoleAdminActive, identity.RoleMasterActive}
	members = []string{identity.RoleAdminActive, identity.RoleMasterActive, identity.RoleMasterInactive}
	inGame  = []string{identity.RoleAdminActive, identity.RoleMasterActive, identity.RolePlayer}
)

const claimsKey = "claims"

// authorize rejects requests without a valid bearer token whose role claim is
// in roles. Browsers cannot set headers on websocket handshakes, so the token
// is also accepted from the access_token query parameter.
func (a *API) authorize(roles []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearer(c.GetHeader("Authorization"))
		if tok == "" {
			tok = c.Query("access_token")
		}
		if tok == "" {
			renderError(c, errors.Unauthorized("authorization token is required"))
			return
		}

		claims, err := identity.ParseToken(a.tok, tok, a.now())
		if err != nil {
			renderError(c, errors.New(errors.CodeUnauthenticated,
				errors.WithMessagef("authorization token is invalid or expired"),
				errors.WithCause(err),
			))
			return
		}
		if !slices.Contains(roles, claims.Role) {
			renderError(c, errors.New(errors.CodePermissionDenied,
				errors.WithMessagef("role %q may not access %s", claims.Role, c.FullPath()),
			))
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

func bearer(header string) string {
	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}
