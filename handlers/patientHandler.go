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

type PatientHandler struct {
	service *services.PatientService
	log     *zap.Logger
}

func NewPatientHandler(service *services.PatientService, log *zap.Logger) *PatientHandler {
	return &PatientHandler{service: service, log: log}
}

func (h *PatientHandler) CreatePatient(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	var patient models.Patient
	if err := c.ShouldBindJSON(&patient); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	if err := h.service.Register(c.Request.Context(), lab, &patient); err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, patient)
}

func (h *PatientHandler) GetPatientByID(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	patient, err := h.service.GetByID(c.Request.Context(), lab, c.Param("patient_id"))
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

// GetAllPatients lists patients, or searches them when ?q is given.
func (h *PatientHandler) GetAllPatients(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if q := c.Query("q"); q != "" {
		patients, err := h.service.Search(ctx, lab, q)
		if err != nil {
			middlewares.HttpError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, patients)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	patients, err := h.service.List(ctx, lab, limit, offset)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, patients)
}

func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	var changes models.Patient
	if err := c.ShouldBindJSON(&changes); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	patient, err := h.service.Update(c.Request.Context(), lab, c.Param("patient_id"), &changes)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}
