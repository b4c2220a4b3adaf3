package controllers

import (
	"PathLab/handlers"
	"PathLab/models"

	"github.com/gin-gonic/gin"
)

// SetupPatientRoutes registers patients, their appointments and the test
// catalogue.
func SetupPatientRoutes(router *gin.Engine, guard *Guard, patientHandler *handlers.PatientHandler,
	appointmentHandler *handlers.AppointmentHandler, catalogueHandler *handlers.CatalogueHandler) {
	lab := guard.LabGroup(router, "")
	managePatients := guard.Perm(models.PermManagePatients)
	manageCatalogue := guard.Perm(models.PermManageCatalogue)

	lab.POST("/patients", managePatients, patientHandler.CreatePatient)
	lab.GET("/patients/:patient_id", patientHandler.GetPatientByID)
	lab.PUT("/patients/:patient_id", managePatients, patientHandler.UpdatePatient)
	lab.GET("/patients", patientHandler.GetAllPatients)

	lab.POST("/patients/:patient_id/appointments", managePatients, appointmentHandler.CreateAppointment)
	lab.GET("/patients/:patient_id/appointments", appointmentHandler.GetPatientAppointments)
	lab.GET("/appointments", appointmentHandler.GetAppointmentsByDay)
	lab.GET("/appointments/:appointment_id", appointmentHandler.GetAppointmentByID)
	lab.PUT("/appointments/:appointment_id/status", managePatients, appointmentHandler.UpdateAppointmentStatus)

	lab.POST("/tests", manageCatalogue, catalogueHandler.CreateTest)
	lab.GET("/tests", catalogueHandler.GetAllTests)
	lab.GET("/tests/:test_id", catalogueHandler.GetTest)
	lab.PUT("/tests/:test_id", manageCatalogue, catalogueHandler.UpdateTest)
	lab.PUT("/tests/:test_id/active", manageCatalogue, catalogueHandler.SetTestActive)
}
