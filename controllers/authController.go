package controllers

import (
	"PathLab/handlers"
	"PathLab/middlewares"
	"PathLab/models"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Handler *handlers.AuthHandler
	guard   *Guard
}

// NewAuthController creates a new AuthController with the given AuthHandler
func NewAuthController(authHandler *handlers.AuthHandler, guard *Guard) *AuthController {
	return &AuthController{
		Handler: authHandler,
		guard:   guard,
	}
}

// RegisterRoutes initializes all authentication routes directly on the router
func (ac *AuthController) RegisterRoutes(router *gin.Engine) {
	// Public routes: No authentication required
	router.POST("/auth/login", ac.Handler.Login)
	router.POST("/auth/refresh-token", ac.Handler.RefreshToken)
	router.POST("/send-reset-code", ac.Handler.SendResetCode)
	router.POST("/change-password", ac.Handler.ChangePassword)

	// Protected routes: Requires a valid token
	authGroup := router.Group("/auth", ac.guard.Authenticated())
	{
		authGroup.POST("/change-email", ac.Handler.ChangeEmail)
		authGroup.POST("/logoff", ac.Handler.Logoff)
		authGroup.GET("/user/profile", ac.Handler.GetUserProfile)
		authGroup.PUT("/user/update-profile", ac.Handler.UpdateUserProfile)
		authGroup.GET("/user/permissions", ac.Handler.GetPermissions)
	}

	adminGroup := router.Group("/auth/admin",
		ac.guard.Authenticated(),
		middlewares.RoleAuthMiddleware(ac.guard.Log, models.RoleSuperAdmin, models.RoleLabAdmin),
		ac.guard.Perm(models.PermManageUsers),
	)
	{
		adminGroup.POST("/register", ac.Handler.Register)
		adminGroup.GET("/manage-users", ac.Handler.AdminManageUsers)
		adminGroup.DELETE("/users/:id", ac.Handler.DeleteAccount)
	}
}
