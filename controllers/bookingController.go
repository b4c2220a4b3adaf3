package controllers

import (
	"PathLab/handlers"
	"PathLab/models"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes registers bookings, payments, registrations, reports
// and the collection report.
func SetupBookingRoutes(router *gin.Engine, guard *Guard, bookingHandler *handlers.BookingHandler,
	billingHandler *handlers.BillingHandler, registrationHandler *handlers.RegistrationHandler) {
	lab := guard.LabGroup(router, "")
	manageBookings := guard.Perm(models.PermManageBookings)

	bookings := lab.Group("/bookings")
	{
		bookings.POST("", manageBookings, bookingHandler.CreateBooking)
		bookings.GET("", bookingHandler.GetBookings)
		bookings.GET("/:booking_id", bookingHandler.GetBooking)
		bookings.POST("/:booking_id/tests", manageBookings, bookingHandler.AddTest)
		bookings.PUT("/:booking_id/tests", manageBookings, bookingHandler.EditTests)
		bookings.PUT("/:booking_id/status", manageBookings, bookingHandler.UpdateStatus)
		bookings.GET("/:booking_id/lock", bookingHandler.GetLockState)
		bookings.GET("/:booking_id/receipt", bookingHandler.GetReceipt)
		bookings.POST("/:booking_id/payments", guard.Perm(models.PermRecordPayments), billingHandler.RecordPayment)
		bookings.GET("/:booking_id/summary", billingHandler.GetSummary)
	}

	receipts := lab.Group("/receipts/:receipt_number")
	{
		receipts.GET("", bookingHandler.GetBookingByReceipt)
		receipts.POST("/registration", manageBookings, registrationHandler.CreateRegistration)
		receipts.GET("/registration", registrationHandler.GetRegistration)
		receipts.PUT("/registration/edit-allowed", guard.Perm(models.PermAllowEdit), registrationHandler.SetEditAllowed)
		receipts.POST("/report", guard.Perm(models.PermGenerateReports), registrationHandler.GenerateReport)
		receipts.GET("/report", registrationHandler.GetReport)
	}

	lab.GET("/collections/daily", guard.Perm(models.PermViewReports), billingHandler.GetDailyCollection)
}
