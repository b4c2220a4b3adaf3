package handlers

import (
	"net/http"

	"PathLab/middlewares"
	"PathLab/models"
	"PathLab/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CatalogueHandler struct {
	service *services.CatalogueService
	log     *zap.Logger
}

func NewCatalogueHandler(service *services.CatalogueService, log *zap.Logger) *CatalogueHandler {
	return &CatalogueHandler{service: service, log: log}
}

func (h *CatalogueHandler) CreateTest(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	var test models.TestDefinition
	if err := c.ShouldBindJSON(&test); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	if err := h.service.Create(c.Request.Context(), lab, &test); err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, test)
}

func (h *CatalogueHandler) GetTest(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	test, err := h.service.Get(c.Request.Context(), lab, c.Param("test_id"))
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

// GetAllTests lists active tests; ?all=true includes deactivated ones.
func (h *CatalogueHandler) GetAllTests(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	tests, err := h.service.List(c.Request.Context(), lab, c.Query("all") == "true")
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tests)
}

func (h *CatalogueHandler) UpdateTest(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	var changes models.TestDefinition
	if err := c.ShouldBindJSON(&changes); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	test, err := h.service.Update(c.Request.Context(), lab, c.Param("test_id"), &changes)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

func (h *CatalogueHandler) SetTestActive(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	var body struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	if err := h.service.SetActive(c.Request.Context(), lab, c.Param("test_id"), body.Active); err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
