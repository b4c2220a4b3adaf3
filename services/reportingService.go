package services

import (
	"bytes"
	"context"
	"sort"
	"time"

	"PathLab/apperrors"
	"PathLab/models"
	"PathLab/repositories"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Collection is one day's billing for a lab.
type Collection struct {
	LabID    string          `json:"labId"`
	Date     string          `json:"date"`
	Bookings int             `json:"bookings"`
	Gross    decimal.Decimal `json:"gross"`
	Discount decimal.Decimal `json:"discount"`
	Net      decimal.Decimal `json:"net"`
	Paid     decimal.Decimal `json:"paid"`
	Due      decimal.Decimal `json:"due"`
	ByMethod []MethodTotal   `json:"byMethod"`
	ByHead   []CategoryTotal `json:"byCategory"`
	Rows     []CollectionRow `json:"rows"`
}

type MethodTotal struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Tests    int             `json:"tests"`
	Net      decimal.Decimal `json:"net"`
}

type CollectionRow struct {
	ReceiptNumber int64           `json:"receiptNumber"`
	Patient       string          `json:"patient"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	Paid          decimal.Decimal `json:"paid"`
	Due           decimal.Decimal `json:"due"`
	PaymentStatus string          `json:"paymentStatus"`
}

type ReportingService struct {
	bookings repositories.BookingRepository
}

func NewReportingService(bookings repositories.BookingRepository) *ReportingService {
	return &ReportingService{bookings: bookings}
}

// DailyCollection totals the bookings created on day's calendar date.
// Cancelled bookings are listed but excluded from the totals.
func (s *ReportingService) DailyCollection(ctx context.Context, labID string, day time.Time) (*Collection, error) {
	if err := requireLab(labID); err != nil {
		return nil, err
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	bookings, err := s.bookings.List(ctx, labID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, storeErr(err, "failed to list bookings")
	}
	return summarizeCollection(labID, start, bookings), nil
}

func summarizeCollection(labID string, day time.Time, bookings []models.PathologyBooking) *Collection {
	c := &Collection{LabID: labID, Date: day.Format("2006-01-02")}
	methods := map[string]decimal.Decimal{}
	heads := map[string]*CategoryTotal{}
	var headOrder []string

	for _, b := range bookings {
		c.Rows = append(c.Rows, CollectionRow{
			ReceiptNumber: b.ReceiptNumber,
			Patient:       b.Patient.Name,
			Status:        string(b.Status),
			Total:         b.Payment.TotalAmount,
			Paid:          b.Payment.PaidAmount,
			Due:           b.Payment.DueAmount,
			PaymentStatus: string(b.Payment.Status),
		})
		if b.Status == models.BookingCancelled {
			continue
		}
		c.Bookings++
		for _, l := range b.Lines() {
			c.Gross = c.Gross.Add(l.Gross())
			c.Discount = c.Discount.Add(l.EffectiveDiscount())
			head, ok := heads[l.Category]
			if !ok {
				head = &CategoryTotal{Category: l.Category}
				heads[l.Category] = head
				headOrder = append(headOrder, l.Category)
			}
			head.Tests += l.Quantity
			head.Net = head.Net.Add(l.NetAmount())
		}
		c.Net = c.Net.Add(b.Payment.TotalAmount)
		c.Paid = c.Paid.Add(b.Payment.PaidAmount)
		c.Due = c.Due.Add(b.Payment.DueAmount)
		for _, p := range b.Payment.History {
			methods[p.Method] = methods[p.Method].Add(p.Amount)
		}
	}

	for _, h := range headOrder {
		c.ByHead = append(c.ByHead, *heads[h])
	}
	for m, amount := range methods {
		c.ByMethod = append(c.ByMethod, MethodTotal{Method: m, Amount: amount})
	}
	sort.Slice(c.ByMethod, func(i, j int) bool { return c.ByMethod[i].Method < c.ByMethod[j].Method })
	return c
}

var collectionHeader = []string{"Receipt", "Patient", "Status", "Total", "Paid", "Due", "Payment Status"}

// CollectionXLSX renders the collection as a workbook with a bookings sheet
// and a summary sheet.
func (s *ReportingService) CollectionXLSX(c *Collection) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Bookings"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, apperrors.Infrastructure(err, "failed to create sheet")
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, apperrors.Infrastructure(err, "failed to delete default sheet")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, apperrors.Infrastructure(err, "failed to create header style")
	}

	for col, h := range collectionHeader {
		if err := setCell(f, sheet, col+1, 1, h); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "G1", headerStyle); err != nil {
		return nil, apperrors.Infrastructure(err, "failed to style header")
	}

	for i, r := range c.Rows {
		values := []interface{}{
			r.ReceiptNumber, r.Patient, r.Status,
			r.Total.InexactFloat64(), r.Paid.InexactFloat64(), r.Due.InexactFloat64(),
			r.PaymentStatus,
		}
		for col, v := range values {
			if err := setCell(f, sheet, col+1, i+2, v); err != nil {
				return nil, err
			}
		}
	}
	if err := f.SetColWidth(sheet, "B", "B", 28); err != nil {
		return nil, apperrors.Infrastructure(err, "failed to set column width")
	}

	const summary = "Summary"
	if _, err := f.NewSheet(summary); err != nil {
		return nil, apperrors.Infrastructure(err, "failed to create sheet")
	}
	rows := [][]interface{}{
		{"Date", c.Date},
		{"Bookings", c.Bookings},
		{"Gross", c.Gross.InexactFloat64()},
		{"Discount", c.Discount.InexactFloat64()},
		{"Net", c.Net.InexactFloat64()},
		{"Paid", c.Paid.InexactFloat64()},
		{"Due", c.Due.InexactFloat64()},
	}
	for _, m := range c.ByMethod {
		rows = append(rows, []interface{}{"Paid by " + m.Method, m.Amount.InexactFloat64()})
	}
	for _, h := range c.ByHead {
		rows = append(rows, []interface{}{h.Category, h.Net.InexactFloat64()})
	}
	for i, row := range rows {
		for col, v := range row {
			if err := setCell(f, summary, col+1, i+1, v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, apperrors.Infrastructure(err, "failed to write workbook")
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return apperrors.Infrastructure(err, "bad cell %d,%d", col, row)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return apperrors.Infrastructure(err, "failed to set %s!%s", sheet, cell)
	}
	return nil
}
