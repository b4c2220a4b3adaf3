package handlers

import (
	"net/http"
	"time"

	"PathLab/middlewares"
	"PathLab/models"
	"PathLab/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AppointmentHandler struct {
	service *services.AppointmentService
	log     *zap.Logger
}

func NewAppointmentHandler(service *services.AppointmentService, log *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{service: service, log: log}
}

func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	var appointment models.Appointment
	if err := c.ShouldBindJSON(&appointment); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	appointment.PatientID = c.Param("patient_id")
	if err := h.service.Book(c.Request.Context(), lab, &appointment); err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, appointment)
}

func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	appointment, err := h.service.Get(c.Request.Context(), lab, c.Param("appointment_id"))
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

func (h *AppointmentHandler) GetPatientAppointments(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	appointments, err := h.service.ListByPatient(c.Request.Context(), lab, c.Param("patient_id"))
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

// GetAppointmentsByDay lists ?date (default today).
func (h *AppointmentHandler) GetAppointmentsByDay(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	day, ok := dateQuery(c, "date")
	if !ok {
		return
	}
	if day.IsZero() {
		day = time.Now()
	}
	appointments, err := h.service.ListByDay(c.Request.Context(), lab, day)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	var body struct {
		Status models.AppointmentStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	appointment, err := h.service.UpdateStatus(c.Request.Context(), lab, c.Param("appointment_id"), body.Status)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}
