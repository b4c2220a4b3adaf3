package handlers

import (
	"net/http"

	"PathLab/middlewares"
	"PathLab/models"
	"PathLab/receipt"
	"PathLab/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service *services.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service *services.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{service: service, log: log}
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	lab, actor, ok := scope(c, h.log)
	if !ok {
		return
	}
	var input services.CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	booking, err := h.service.Create(c.Request.Context(), lab, input, actor)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	booking, err := h.service.Get(c.Request.Context(), lab, c.Param("booking_id"))
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) GetBookingByReceipt(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	receiptNumber, ok := int64Param(c, "receipt_number")
	if !ok {
		return
	}
	booking, err := h.service.GetByReceipt(c.Request.Context(), lab, receiptNumber)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// GetBookings lists bookings created between ?from and ?to (exclusive),
// both YYYY-MM-DD. Without them it lists today's.
func (h *BookingHandler) GetBookings(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	from, ok := dateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := dateQuery(c, "to")
	if !ok {
		return
	}
	bookings, err := h.service.List(c.Request.Context(), lab, from, to)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) AddTest(c *gin.Context) {
	lab, actor, ok := scope(c, h.log)
	if !ok {
		return
	}
	var item services.BookingItem
	if err := c.ShouldBindJSON(&item); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	booking, diff, err := h.service.AddTest(c.Request.Context(), lab, c.Param("booking_id"), item, actor)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking, "changes": diff})
}

func (h *BookingHandler) EditTests(c *gin.Context) {
	lab, actor, ok := scope(c, h.log)
	if !ok {
		return
	}
	var body struct {
		Operations []services.EditOp `json:"operations"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	booking, diff, err := h.service.EditTests(c.Request.Context(), lab, c.Param("booking_id"), body.Operations, actor)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking, "changes": diff})
}

func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	var body struct {
		Status models.BookingStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		middlewares.BadRequest(c, "Invalid request body")
		return
	}
	booking, err := h.service.UpdateStatus(c.Request.Context(), lab, c.Param("booking_id"), body.Status)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) GetLockState(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	state, err := h.service.LockState(c.Request.Context(), lab, c.Param("booking_id"))
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lockState": state, "editable": state.CheckEditable() == nil})
}

// GetReceipt renders the printable receipt. ?format=json returns the view.
func (h *BookingHandler) GetReceipt(c *gin.Context) {
	lab, _, ok := scope(c, h.log)
	if !ok {
		return
	}
	view, err := h.service.Receipt(c.Request.Context(), lab, c.Param("booking_id"))
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, view)
		return
	}
	page, err := receipt.Render(view)
	if err != nil {
		middlewares.HttpError(c, h.log, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}
