package controllers

import (
	"PathLab/middlewares"
	"PathLab/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Guard bundles what the route groups need to authenticate callers and
// check their permissions.
type Guard struct {
	Tokens *utils.TokenMaker
	Perms  middlewares.PermissionSource
	Log    *zap.Logger
}

func (g *Guard) Authenticated() gin.HandlerFunc {
	return middlewares.TokenAuthMiddleware(g.Tokens, g.Log)
}

func (g *Guard) Perm(perm string) gin.HandlerFunc {
	return middlewares.RequirePermission(g.Perms, g.Log, perm)
}

// LabGroup is an authenticated group whose handlers run against one lab.
func (g *Guard) LabGroup(router *gin.Engine, path string) *gin.RouterGroup {
	return router.Group(path, g.Authenticated(), middlewares.LabScope(g.Log))
}
