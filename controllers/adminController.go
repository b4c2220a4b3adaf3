package controllers

import (
	"PathLab/handlers"
	"PathLab/middlewares"
	"PathLab/models"

	"github.com/gin-gonic/gin"
)

// SetupAdminRoutes registers lab administration and custom roles.
func SetupAdminRoutes(router *gin.Engine, guard *Guard, labHandler *handlers.LabHandler) {
	labs := router.Group("/labs",
		guard.Authenticated(),
		middlewares.RoleAuthMiddleware(guard.Log, models.RoleSuperAdmin),
	)
	{
		labs.POST("", labHandler.CreateLab)
		labs.GET("", labHandler.GetAllLabs)
		labs.GET("/:lab_id", labHandler.GetLab)
		labs.PUT("/:lab_id", labHandler.UpdateLab)
		labs.PUT("/:lab_id/active", labHandler.SetLabActive)
	}

	roles := guard.LabGroup(router, "/roles")
	roles.Use(guard.Perm(models.PermManageRoles))
	{
		roles.POST("", labHandler.CreateRole)
		roles.GET("", labHandler.GetAllRoles)
		roles.DELETE("/:role_id", labHandler.DeactivateRole)
	}
}
