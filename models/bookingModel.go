package models

import (
	"fmt"
	"time"

	"PathLab/apperrors"
	"PathLab/billing"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type BookingStatus string

const (
	BookingBooked          BookingStatus = "Booked"
	BookingSampleCollected BookingStatus = "Sample Collected"
	BookingInProgress      BookingStatus = "In Progress"
	BookingCompleted       BookingStatus = "Completed"
	BookingCancelled       BookingStatus = "Cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingBooked:          {BookingSampleCollected, BookingCancelled},
	BookingSampleCollected: {BookingInProgress, BookingCancelled},
	BookingInProgress:      {BookingCompleted, BookingCancelled},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingBooked, BookingSampleCollected, BookingInProgress, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var ErrInvalidTransition = &apperrors.Error{Kind: apperrors.KindConflict, Message: "invalid status transition"}

// BookedTest is one line of a pathology booking.
type BookedTest struct {
	TestID    string          `json:"testId"`
	TestName  string          `json:"testName"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Discount  decimal.Decimal `json:"discount"`
	NetAmount decimal.Decimal `json:"netAmount"`
	Status    string          `json:"status"`
}

func (t BookedTest) Line() billing.Line {
	return billing.Line{
		Ref:      t.TestID,
		Name:     t.TestName,
		Category: t.Category,
		Price:    t.Price,
		Quantity: t.Quantity,
		Discount: t.Discount,
	}
}

func bookedTestFromLine(l billing.Line, status string) BookedTest {
	if status == "" {
		status = "Pending"
	}
	return BookedTest{
		TestID:    l.Ref,
		TestName:  l.Name,
		Category:  l.Category,
		Price:     l.Price,
		Quantity:  l.Quantity,
		Discount:  l.Discount,
		NetAmount: l.NetAmount(),
		Status:    status,
	}
}

// PatientSnapshot is the patient as printed at booking time.
type PatientSnapshot struct {
	PatientID          string  `gorm:"column:id;size:64" json:"patientId"`
	RegistrationNumber string  `gorm:"column:registration_number;size:32" json:"registrationNumber"`
	Name               string  `gorm:"column:name" json:"name"`
	Phone              string  `gorm:"column:phone" json:"phone"`
	Gender             string  `gorm:"column:gender" json:"gender"`
	Age                Age     `gorm:"embedded;embeddedPrefix:age_" json:"age"`
	Address            Address `gorm:"embedded;embeddedPrefix:address_" json:"address"`
}

type PaymentEntry struct {
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	TransactionID string          `json:"transactionId,omitempty"`
	ReceivedBy    string          `json:"receivedBy"`
	At            time.Time       `json:"at"`
}

type Payment struct {
	TotalAmount decimal.Decimal                   `gorm:"column:total_amount;type:numeric(12,2);not null" json:"totalAmount"`
	PaidAmount  decimal.Decimal                   `gorm:"column:paid_amount;type:numeric(12,2);not null" json:"paidAmount"`
	DueAmount   decimal.Decimal                   `gorm:"column:due_amount;type:numeric(12,2);not null" json:"dueAmount"`
	Status      billing.PaymentStatus             `gorm:"column:status;size:20;not null" json:"paymentStatus"`
	Method      string                            `gorm:"column:method;size:30" json:"paymentMethod"`
	History     datatypes.JSONSlice[PaymentEntry] `gorm:"column:history;type:jsonb" json:"paymentHistory"`
}

type AmountChange struct {
	Before decimal.Decimal `json:"before"`
	After  decimal.Decimal `json:"after"`
}

type EditChanges struct {
	TestsBefore  []billing.TestRef `json:"testsBefore"`
	TestsAfter   []billing.TestRef `json:"testsAfter"`
	AddedTests   []billing.TestRef `json:"addedTests"`
	RemovedTests []billing.TestRef `json:"removedTests"`
	TotalAmount  AmountChange      `json:"totalAmount"`
}

type EditEntry struct {
	At      time.Time   `json:"at"`
	By      string      `json:"by"`
	Changes EditChanges `json:"changes"`
}

// PathologyBooking is the invoice aggregate. Payment totals are derived from
// BookedTests and must only change through the methods below.
type PathologyBooking struct {
	ID            string                          `gorm:"primaryKey;type:uuid;column:id" json:"id"`
	LabID         string                          `gorm:"column:lab_id;size:64;not null;uniqueIndex:idx_booking_lab_receipt;index" json:"lab_id"`
	ReceiptNumber int64                           `gorm:"column:receipt_number;not null;uniqueIndex:idx_booking_lab_receipt" json:"receiptNumber"`
	Patient       PatientSnapshot                 `gorm:"embedded;embeddedPrefix:patient_" json:"patient"`
	BookedTests   datatypes.JSONSlice[BookedTest] `gorm:"column:booked_tests;type:jsonb;not null" json:"bookedTests"`
	Payment       Payment                         `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`
	Status        BookingStatus                   `gorm:"column:status;size:20;not null;index" json:"status"`
	EditHistory   datatypes.JSONSlice[EditEntry]  `gorm:"column:edit_history;type:jsonb" json:"editHistory"`
	CreatedBy     string                          `gorm:"column:created_by" json:"createdBy"`
	CreatedAt     time.Time                       `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time                       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (PathologyBooking) TableName() string {
	return "pathology_bookings"
}

func (b *PathologyBooking) Lines() []billing.Line {
	lines := make([]billing.Line, 0, len(b.BookedTests))
	for _, t := range b.BookedTests {
		lines = append(lines, t.Line())
	}
	return lines
}

// Recompute derives total, due and payment status from the tests and the
// amount paid.
func (b *PathologyBooking) Recompute() {
	b.Payment.TotalAmount = billing.Total(b.Lines())
	b.Payment.DueAmount = b.Payment.TotalAmount.Sub(b.Payment.PaidAmount)
	b.Payment.Status = billing.DerivePaymentStatus(b.Payment.PaidAmount, b.Payment.TotalAmount)
}

// SetTests replaces the booked tests without recording an edit. Used when
// the booking is first built.
func (b *PathologyBooking) SetTests(lines []billing.Line) error {
	var checked []billing.Line
	for _, l := range lines {
		var err error
		if checked, err = billing.Append(checked, l); err != nil {
			return err
		}
	}
	if err := billing.CheckTotalCoversPaid(b.Payment.PaidAmount, billing.Total(checked)); err != nil {
		return err
	}

	status := make(map[string]string, len(b.BookedTests))
	for _, t := range b.BookedTests {
		status[billing.NormalizeName(t.TestName)] = t.Status
	}
	tests := make(datatypes.JSONSlice[BookedTest], 0, len(checked))
	for _, l := range checked {
		tests = append(tests, bookedTestFromLine(l, status[billing.NormalizeName(l.Name)]))
	}
	b.BookedTests = tests
	b.Recompute()
	return nil
}

// AddTest appends a test and records the edit.
func (b *PathologyBooking) AddTest(line billing.Line, by string, at time.Time) (billing.Diff, error) {
	lines, err := billing.Append(b.Lines(), line)
	if err != nil {
		return billing.Diff{}, err
	}
	return b.ReplaceTests(lines, by, at)
}

// ReplaceTests swaps in a new set of tests and appends exactly one audit
// entry describing the change.
func (b *PathologyBooking) ReplaceTests(lines []billing.Line, by string, at time.Time) (billing.Diff, error) {
	before := billing.Refs(b.Lines())
	totalBefore := b.Payment.TotalAmount
	if err := b.SetTests(lines); err != nil {
		return billing.Diff{}, err
	}
	after := billing.Refs(b.Lines())
	diff := billing.DiffTests(before, after)
	b.RecordEdit(EditEntry{
		At: at,
		By: by,
		Changes: EditChanges{
			TestsBefore:  before,
			TestsAfter:   after,
			AddedTests:   diff.Added,
			RemovedTests: diff.Removed,
			TotalAmount:  AmountChange{Before: totalBefore, After: b.Payment.TotalAmount},
		},
	})
	return diff, nil
}

// RecordEdit appends to the edit history. Entries are never rewritten.
func (b *PathologyBooking) RecordEdit(entry EditEntry) {
	b.EditHistory = append(b.EditHistory, entry)
}

// LastEdit is the final history entry, or nil when never edited.
func (b *PathologyBooking) LastEdit() *EditEntry {
	if len(b.EditHistory) == 0 {
		return nil
	}
	e := b.EditHistory[len(b.EditHistory)-1]
	return &e
}

// ApplyPayment records a payment and recomputes paid, due and status.
func (b *PathologyBooking) ApplyPayment(entry PaymentEntry) error {
	paid, err := billing.AddPayment(b.Payment.PaidAmount, b.Payment.TotalAmount, entry.Amount)
	if err != nil {
		return err
	}
	b.Payment.PaidAmount = paid
	if entry.Method != "" {
		b.Payment.Method = entry.Method
	}
	b.Payment.History = append(b.Payment.History, entry)
	b.Recompute()
	return nil
}

func (b *PathologyBooking) TransitionTo(next BookingStatus) error {
	if !b.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, b.Status, next)
	}
	b.Status = next
	return nil
}
