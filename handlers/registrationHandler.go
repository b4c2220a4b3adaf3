package handlers

import (
	"net/http"

	"PathLab/middlewares"
	"PathLab/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegistrationHandler covers the pathology side of a receipt: sample
// registration and the generated report.
type RegistrationHandler struct {
	registrations *services.RegistrationService
	reports       *services.ReportService
	log           *zap.Logger
}

func NewRegistrationHandler(registrations *services.RegistrationService, reports *services.ReportService, log *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, reports: reports, log: log}
}

func (h *RegistrationHandler) CreateRegistration(c *gin.Context) {
	lab, actor, ok := scope(c, h.log)
	if !ok {
		return
	}
	receiptNumber, ok := int64Param(c, "receipt_number")
	if !ok {
		return
	}
	registration, err := h.registrations.Create(c.Request.Context(), lab, receiptNumber, actor)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, registration)
}

func (h *RegistrationHandler) GetRegistration(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	receiptNumber, ok := int64Param(c, "receipt_number")
	if !ok {
		return
	}
	registration, err := h.registrations.Get(c.Request.Context(), lab, receiptNumber)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, registration)
}

func (h *RegistrationHandler) SetEditAllowed(c *gin.Context) {
	lab, actor, ok := scope(c, h.log)
	if !ok {
		return
	}
	receiptNumber, ok := int64Param(c, "receipt_number")
	if !ok {
		return
	}
	var body struct {
		EditAllowed *bool `json:"editAllowed"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.EditAllowed == nil {
		middlewares.BadRequest(c, "editAllowed is required")
		return
	}
	registration, err := h.registrations.SetEditAllowed(c.Request.Context(), lab, receiptNumber, *body.EditAllowed, actor)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, registration)
}

func (h *RegistrationHandler) GenerateReport(c *gin.Context) {
	lab, actor, ok := scope(c, h.log)
	if !ok {
		return
	}
	receiptNumber, ok := int64Param(c, "receipt_number")
	if !ok {
		return
	}
	var body struct {
		Findings string `json:"findings"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	report, err := h.reports.Generate(c.Request.Context(), lab, receiptNumber, body.Findings, actor)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *RegistrationHandler) GetReport(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	receiptNumber, ok := int64Param(c, "receipt_number")
	if !ok {
		return
	}
	report, err := h.reports.Get(c.Request.Context(), lab, receiptNumber)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
