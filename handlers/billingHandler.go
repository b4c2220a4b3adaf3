package handlers

import (
	"fmt"
	"net/http"
	"time"

	"PathLab/middlewares"
	"PathLab/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BillingHandler serves payments, bill summaries and the collection report.
type BillingHandler struct {
	bookings  *services.BookingService
	reporting *services.ReportingService
	log       *zap.Logger
}

func NewBillingHandler(bookings *services.BookingService, reporting *services.ReportingService, log *zap.Logger) *BillingHandler {
	return &BillingHandler{bookings: bookings, reporting: reporting, log: log}
}

func (h *BillingHandler) RecordPayment(c *gin.Context) {
	lab, actor, ok := scope(c, h.log)
	if !ok {
		return
	}
	var input services.PaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	booking, err := h.bookings.RecordPayment(c.Request.Context(), lab, c.Param("booking_id"), input, actor)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *BillingHandler) GetSummary(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	summary, err := h.bookings.Summary(c.Request.Context(), lab, c.Param("booking_id"))
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetDailyCollection reports ?date (default today). ?format=xlsx
// downloads the workbook instead of JSON.
func (h *BillingHandler) GetDailyCollection(c *gin.Context) {
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

	collection, err := h.reporting.DailyCollection(c.Request.Context(), lab, day)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	if c.Query("format") != "xlsx" {
		c.JSON(http.StatusOK, collection)
		return
	}

	data, err := h.reporting.CollectionXLSX(collection)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="collection-%s.xlsx"`, collection.Date))
	c.Data(http.StatusOK, xlsxContentType, data)
}
