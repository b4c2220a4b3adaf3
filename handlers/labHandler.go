package handlers

import (
	"net/http"
	"strconv"

	"PathLab/middlewares"
	"PathLab/models"
	"PathLab/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LabHandler administers labs and their custom roles.
type LabHandler struct {
	labs  *services.LabService
	roles *services.RoleService
	log   *zap.Logger
}

func NewLabHandler(labs *services.LabService, roles *services.RoleService, log *zap.Logger) *LabHandler {
	return &LabHandler{labs: labs, roles: roles, log: log}
}

func (h *LabHandler) CreateLab(c *gin.Context) {
	actor, err := middlewares.ActorFromContext(c.Request.Context())
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	var lab models.Lab
	if err := c.ShouldBindJSON(&lab); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	if err := h.labs.Create(c.Request.Context(), &lab, actor); err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, lab)
}

func (h *LabHandler) GetLab(c *gin.Context) {
	lab, err := h.labs.Get(c.Request.Context(), c.Param("lab_id"))
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, lab)
}

func (h *LabHandler) GetAllLabs(c *gin.Context) {
	labs, err := h.labs.List(c.Request.Context())
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, labs)
}

func (h *LabHandler) UpdateLab(c *gin.Context) {
	actor, err := middlewares.ActorFromContext(c.Request.Context())
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	var changes models.Lab
	if err := c.ShouldBindJSON(&changes); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	lab, err := h.labs.Update(c.Request.Context(), c.Param("lab_id"), &changes, actor)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, lab)
}

func (h *LabHandler) SetLabActive(c *gin.Context) {
	actor, err := middlewares.ActorFromContext(c.Request.Context())
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	var body struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	if err := h.labs.SetActive(c.Request.Context(), c.Param("lab_id"), body.Active, actor); err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LabHandler) CreateRole(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	var body struct {
		Name        models.CustomRoleName `json:"name"`
		Permissions []string              `json:"permissions"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	role, err := h.roles.Create(c.Request.Context(), lab, body.Name, body.Permissions)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, role)
}

func (h *LabHandler) GetAllRoles(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	roles, err := h.roles.List(c.Request.Context(), lab, c.Query("all") == "true")
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

func (h *LabHandler) DeactivateRole(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("role_id"), 10, 64)
	if err != nil {
		middlewares.BadRequest(c, "invalid role_id")
		return
	}
	if err := h.roles.Deactivate(c.Request.Context(), lab, id); err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
