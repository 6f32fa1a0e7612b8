package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkarran/accessgate/internal/access"
	"github.com/mkarran/accessgate/internal/services"
	"github.com/mkarran/accessgate/pkg/errors"
	"github.com/mkarran/accessgate/pkg/metrics"
	"github.com/mkarran/accessgate/pkg/response"
)

// RequirePermission gates a route on a single permission name.
func RequirePermission(snapshots *services.SnapshotService, permission string) gin.HandlerFunc {
	return requireAccess(snapshots, permission, access.Query{Permissions: []string{permission}})
}

// RequireRole gates a route on a single role name.
func RequireRole(snapshots *services.SnapshotService, role string) gin.HandlerFunc {
	return requireAccess(snapshots, "role:"+role, access.Query{Roles: []string{role}})
}

// RequireGuard gates a route on a guard scope, e.g. "api".
func RequireGuard(snapshots *services.SnapshotService, guard string) gin.HandlerFunc {
	return requireAccess(snapshots, "guard:"+guard, access.Query{Guards: []string{guard}})
}

// RequireAccess gates a route on an arbitrary combined access query.
func RequireAccess(snapshots *services.SnapshotService, query access.Query) gin.HandlerFunc {
	return requireAccess(snapshots, "query", query)
}

func requireAccess(snapshots *services.SnapshotService, label string, query access.Query) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CtxUserIDKey)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		userID, _ := v.(string)

		evaluator, err := snapshots.EvaluatorFor(c.Request.Context(), userID)
		if err != nil {
			appErr := errors.FromError(err)
			if appErr.StatusCode == http.StatusNotFound || appErr.StatusCode == http.StatusForbidden {
				metrics.PermissionChecks.WithLabelValues(label, "denied").Inc()
				response.Error(c, errors.ErrForbidden)
				c.Abort()
				return
			}
			metrics.PermissionChecks.WithLabelValues(label, "error").Inc()
			response.Error(c, errors.ErrInternalServer)
			c.Abort()
			return
		}

		result := evaluator.Evaluate(query)
		if !result.Granted {
			metrics.PermissionChecks.WithLabelValues(label, "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		metrics.PermissionChecks.WithLabelValues(label, "allowed").Inc()
		c.Next()
	}
}
