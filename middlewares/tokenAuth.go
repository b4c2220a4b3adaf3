package middlewares

import (
	"context"
	"strconv"
	"strings"

	"PathLab/apperrors"
	"PathLab/models"
	"PathLab/services"
	"PathLab/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type contextKey string

const (
	actorKey contextKey = "actor"
	labKey   contextKey = "labID"
)

// WithActor stores the authenticated caller in ctx.
func WithActor(ctx context.Context, actor services.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext retrieves the caller stored by TokenAuthMiddleware.
func ActorFromContext(ctx context.Context) (services.Actor, error) {
	actor, ok := ctx.Value(actorKey).(services.Actor)
	if !ok {
		return services.Actor{}, apperrors.Unauthorized("not authenticated")
	}
	return actor, nil
}

// LabFromContext returns the lab the request operates on.
func LabFromContext(ctx context.Context) string {
	lab, _ := ctx.Value(labKey).(string)
	return lab
}

// accessToken looks in the X-Access-Token header, then the cookie, then
// the accessToken query parameter.
func accessToken(c *gin.Context) string {
	if t := strings.TrimSpace(c.GetHeader("X-Access-Token")); t != "" {
		return t
	}
	if t, err := c.Cookie("accessToken"); err == nil && t != "" {
		return t
	}
	return c.Query("accessToken")
}

// TokenAuthMiddleware validates the access token and adds the caller to
// the request context.
func TokenAuthMiddleware(maker *utils.TokenMaker, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			HttpError(c, log, apperrors.Unauthorized("missing access token"))
			return
		}

		claims, err := maker.ValidateToken(token)
		if err != nil {
			HttpError(c, log, err)
			return
		}

		actor := services.Actor{UserID: claims.UserID, Role: claims.Role, LabID: claims.LabID}
		c.Request = c.Request.WithContext(WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RoleAuthMiddleware restricts access to the given system roles.
func RoleAuthMiddleware(log *zap.Logger, roles ...models.SystemRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := ActorFromContext(c.Request.Context())
		if err != nil {
			HttpError(c, log, err)
			return
		}
		if !actor.HasSystemRole(roles...) {
			HttpError(c, log, apperrors.Forbidden("insufficient privileges"))
			return
		}
		c.Next()
	}
}

// PermissionSource resolves the permissions granted to a user.
type PermissionSource interface {
	GetUserPermissions(ctx context.Context, userID int64) ([]string, error)
}

// RequirePermission lets super admins through and checks everyone else's
// role permissions for perm.
func RequirePermission(source PermissionSource, log *zap.Logger, perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		actor, err := ActorFromContext(ctx)
		if err != nil {
			HttpError(c, log, err)
			return
		}
		if actor.HasSystemRole(models.RoleSuperAdmin) {
			c.Next()
			return
		}

		userID, err := strconv.ParseInt(actor.UserID, 10, 64)
		if err != nil {
			HttpError(c, log, apperrors.Unauthorized("invalid user in token"))
			return
		}
		perms, err := source.GetUserPermissions(ctx, userID)
		if err != nil {
			HttpError(c, log, err)
			return
		}
		for _, p := range perms {
			if p == perm {
				c.Next()
				return
			}
		}
		HttpError(c, log, apperrors.Forbidden("missing permission %s", perm))
	}
}

// LabScope fixes the lab for lab-scoped routes. Lab users are pinned to
// their own lab; super admins choose one with X-Lab-ID or ?lab_id.
func LabScope(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := ActorFromContext(c.Request.Context())
		if err != nil {
			HttpError(c, log, err)
			return
		}

		lab := actor.LabID
		if actor.HasSystemRole(models.RoleSuperAdmin) {
			lab = c.GetHeader("X-Lab-ID")
			if lab == "" {
				lab = c.Query("lab_id")
			}
		}
		if lab == "" {
			HttpError(c, log, apperrors.Validation("lab is required"))
			return
		}
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), labKey, lab))
		c.Next()
	}
}
