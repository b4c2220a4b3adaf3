package services

import (
	"context"
	"strings"
	"time"

	"PathLab/apperrors"
	"PathLab/billing"
	"PathLab/counter"
	"PathLab/models"
	"PathLab/receipt"
	"PathLab/repositories"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BookingItem selects a catalogue test for a booking.
type BookingItem struct {
	TestID   string          `json:"testId"`
	Quantity int             `json:"quantity"`
	Discount decimal.Decimal `json:"discount"`
}

type PaymentInput struct {
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	TransactionID string          `json:"transactionId"`
}

type CreateBookingInput struct {
	PatientID string        `json:"patientId"`
	Tests     []BookingItem `json:"tests"`
	Payment   *PaymentInput `json:"payment"`
}

const (
	EditAdd    = "add"
	EditRemove = "remove"
)

// EditOp is one step of an edit. Add uses the item; remove uses TestName.
type EditOp struct {
	Action   string       `json:"action"`
	Item     *BookingItem `json:"item,omitempty"`
	TestName string       `json:"testName,omitempty"`
}

// BookingDeps are the collaborators of BookingService.
type BookingDeps struct {
	Bookings      repositories.BookingRepository
	Patients      repositories.PatientRepository
	Catalogue     *CatalogueService
	Registrations repositories.RegistrationRepository
	Reports       repositories.ReportRepository
	Labs          repositories.LabRepository
	Counters      *counter.Service
	Locker        Locker
	Policy        billing.NetPayablePolicy
	Log           *zap.Logger
}

type BookingService struct {
	BookingDeps
	now clock
}

func NewBookingService(deps BookingDeps) *BookingService {
	if deps.Policy == "" {
		deps.Policy = billing.PolicyLineNet
	}
	return &BookingService{BookingDeps: deps, now: time.Now}
}

var paymentMethods = []interface{}{"Cash", "Card", "UPI", "Bank Transfer", "Cheque", "Online"}

func validatePayment(p *PaymentInput) error {
	err := validation.ValidateStruct(p,
		validation.Field(&p.Method, validation.Required, validation.In(paymentMethods...)),
		validation.Field(&p.TransactionID, validation.Length(0, 100)),
	)
	return apperrors.ValidationFrom(err)
}

func (s *BookingService) lineFor(test models.TestDefinition, item BookingItem) (billing.Line, error) {
	qty := item.Quantity
	if qty == 0 {
		qty = 1
	}
	line := billing.Line{
		Ref:      test.ID,
		Name:     test.Name,
		Category: test.Category,
		Price:    test.Price,
		Quantity: qty,
		Discount: item.Discount,
	}
	return line, line.Validate()
}

func (s *BookingService) resolveLines(ctx context.Context, labID string, items []BookingItem) ([]billing.Line, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.TestID)
	}
	tests, err := s.Catalogue.Resolve(ctx, labID, ids)
	if err != nil {
		return nil, err
	}
	lines := make([]billing.Line, 0, len(items))
	for i, item := range items {
		line, err := s.lineFor(tests[i], item)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Create books tests for a patient under a newly allocated receipt number.
// Nothing is allocated until the patient and every test are known.
func (s *BookingService) Create(ctx context.Context, labID string, input CreateBookingInput, actor Actor) (*models.PathologyBooking, error) {
	if err := requireLab(labID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.PatientID) == "" {
		return nil, apperrors.Validation("patient is required")
	}
	if input.Payment != nil {
		if err := validatePayment(input.Payment); err != nil {
			return nil, err
		}
	}

	patient, err := s.Patients.GetByID(ctx, labID, input.PatientID)
	if err != nil {
		return nil, storeErr(err, "failed to get patient")
	}
	if patient == nil {
		return nil, apperrors.NotFound("patient not found")
	}
	lines, err := s.resolveLines(ctx, labID, input.Tests)
	if err != nil {
		return nil, err
	}

	booking := &models.PathologyBooking{
		ID:      uuid.New().String(),
		LabID:   labID,
		Patient: patient.Snapshot(),
		Status:  models.BookingBooked,
		Payment: models.Payment{
			PaidAmount: decimal.Zero,
		},
		CreatedBy: actor.Name(),
	}
	if err := booking.SetTests(lines); err != nil {
		return nil, err
	}
	if input.Payment != nil && !input.Payment.Amount.IsZero() {
		if err := booking.ApplyPayment(s.paymentEntry(*input.Payment, actor)); err != nil {
			return nil, err
		}
	}

	receiptNumber, err := s.Counters.Next(ctx, counter.ReceiptSequence(labID))
	if err != nil {
		return nil, err
	}
	booking.ReceiptNumber = receiptNumber

	if err := s.Bookings.Create(ctx, booking); err != nil {
		return nil, storeErr(err, "failed to create booking")
	}
	s.Log.Info("booking created",
		zap.String("lab_id", labID),
		zap.Int64("receipt", receiptNumber),
		zap.String("total", booking.Payment.TotalAmount.String()),
	)
	return booking, nil
}

func (s *BookingService) paymentEntry(p PaymentInput, actor Actor) models.PaymentEntry {
	return models.PaymentEntry{
		Amount:        p.Amount,
		Method:        p.Method,
		TransactionID: p.TransactionID,
		ReceivedBy:    actor.Name(),
		At:            s.now(),
	}
}

func (s *BookingService) Get(ctx context.Context, labID, id string) (*models.PathologyBooking, error) {
	booking, err := s.Bookings.GetByID(ctx, labID, id)
	if err != nil {
		return nil, storeErr(err, "failed to get booking")
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking not found")
	}
	return booking, nil
}

func (s *BookingService) GetByReceipt(ctx context.Context, labID string, receiptNumber int64) (*models.PathologyBooking, error) {
	booking, err := s.Bookings.GetByReceipt(ctx, labID, receiptNumber)
	if err != nil {
		return nil, storeErr(err, "failed to get booking")
	}
	if booking == nil {
		return nil, apperrors.NotFound("receipt %d not found", receiptNumber)
	}
	return booking, nil
}

// List returns bookings created in [from, to). Zero bounds default to today.
func (s *BookingService) List(ctx context.Context, labID string, from, to time.Time) ([]models.PathologyBooking, error) {
	if from.IsZero() {
		now := s.now()
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	if to.IsZero() {
		to = from.AddDate(0, 0, 1)
	}
	if !to.After(from) {
		return nil, apperrors.Validation("end of range must be after start")
	}
	bookings, err := s.Bookings.List(ctx, labID, from, to)
	return bookings, storeErr(err, "failed to list bookings")
}

func (s *BookingService) lockEvaluator(ctx context.Context, labID string, receiptNumber int64) billing.LockEvaluator {
	return func() (billing.LockState, error) {
		exists, err := s.Reports.Exists(ctx, labID, receiptNumber)
		if err != nil {
			return "", storeErr(err, "failed to check report")
		}
		if exists {
			return billing.HardLocked, nil
		}
		registration, err := s.Registrations.GetByReceipt(ctx, labID, receiptNumber)
		if err != nil {
			return "", storeErr(err, "failed to check registration")
		}
		return billing.EvaluateLock(false, registration.Facts()), nil
	}
}

// LockState reports whether the booking's tests can currently be edited.
func (s *BookingService) LockState(ctx context.Context, labID, id string) (billing.LockState, error) {
	booking, err := s.Get(ctx, labID, id)
	if err != nil {
		return "", err
	}
	return s.lockEvaluator(ctx, labID, booking.ReceiptNumber)()
}

// AddTest adds one test as a single audited edit.
func (s *BookingService) AddTest(ctx context.Context, labID, id string, item BookingItem, actor Actor) (*models.PathologyBooking, billing.Diff, error) {
	return s.EditTests(ctx, labID, id, []EditOp{{Action: EditAdd, Item: &item}}, actor)
}

// EditTests applies ops in order and records one audit entry. The lock is
// evaluated at every step that touches committed tests and again before
// saving.
func (s *BookingService) EditTests(ctx context.Context, labID, id string, ops []EditOp, actor Actor) (*models.PathologyBooking, billing.Diff, error) {
	if len(ops) == 0 {
		return nil, billing.Diff{}, apperrors.Validation("no changes given")
	}
	var (
		diff    billing.Diff
		changed bool
	)
	booking, err := s.mutate(ctx, labID, id, func(booking *models.PathologyBooking) (bool, error) {
		if booking.Status == models.BookingCancelled {
			return false, apperrors.Conflict("booking is cancelled")
		}

		session := billing.NewEditSession(booking.Lines(), s.lockEvaluator(ctx, labID, booking.ReceiptNumber))
		for _, op := range ops {
			if err := s.applyEdit(ctx, labID, session, op); err != nil {
				return false, err
			}
		}

		lines, ok, err := session.Commit()
		if err != nil || !ok {
			return false, err
		}
		if diff, err = booking.ReplaceTests(lines, actor.Name(), s.now()); err != nil {
			return false, err
		}
		changed = true
		return true, nil
	})
	if err != nil {
		return nil, billing.Diff{}, err
	}
	if changed {
		s.Log.Info("booking edited",
			zap.String("lab_id", labID),
			zap.Int64("receipt", booking.ReceiptNumber),
			zap.Int("added", len(diff.Added)),
			zap.Int("removed", len(diff.Removed)),
			zap.String("by", actor.Name()),
		)
	}
	return booking, diff, nil
}

func (s *BookingService) applyEdit(ctx context.Context, labID string, session *billing.EditSession, op EditOp) error {
	switch op.Action {
	case EditAdd:
		if op.Item == nil {
			return apperrors.Validation("add requires a test")
		}
		lines, err := s.resolveLines(ctx, labID, []BookingItem{*op.Item})
		if err != nil {
			return err
		}
		return session.Add(lines[0])
	case EditRemove:
		return session.Remove(op.TestName)
	}
	return apperrors.Validation("unknown edit action %q", op.Action)
}

// bookingLock serialises every write to one booking: edits, payments,
// status changes and the registration and report that lock it.
func bookingLock(labID, id string) string {
	return lockKey("booking", labID, id)
}

// mutate runs fn on the stored booking under the booking lock and saves the
// row when fn reports a change.
func (s *BookingService) mutate(ctx context.Context, labID, id string, fn func(*models.PathologyBooking) (bool, error)) (*models.PathologyBooking, error) {
	var booking *models.PathologyBooking
	err := s.Locker.WithLock(ctx, bookingLock(labID, id), func() error {
		var rejected error
		stored, err := s.Bookings.Update(ctx, labID, id, func(b *models.PathologyBooking) (bool, error) {
			changed, err := fn(b)
			rejected = err
			return changed, err
		})
		if rejected != nil {
			return rejected
		}
		if err != nil {
			return storeErr(err, "failed to save booking")
		}
		if stored == nil {
			return apperrors.NotFound("booking not found")
		}
		booking = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// RecordPayment adds a payment. Two cashiers paying at once cannot
// together overpay the booking.
func (s *BookingService) RecordPayment(ctx context.Context, labID, id string, input PaymentInput, actor Actor) (*models.PathologyBooking, error) {
	if err := validatePayment(&input); err != nil {
		return nil, err
	}
	booking, err := s.mutate(ctx, labID, id, func(booking *models.PathologyBooking) (bool, error) {
		if booking.Status == models.BookingCancelled {
			return false, apperrors.Conflict("booking is cancelled")
		}
		if err := booking.ApplyPayment(s.paymentEntry(input, actor)); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("payment recorded",
		zap.String("lab_id", labID),
		zap.Int64("receipt", booking.ReceiptNumber),
		zap.String("amount", input.Amount.String()),
		zap.String("status", string(booking.Payment.Status)),
	)
	return booking, nil
}

func (s *BookingService) UpdateStatus(ctx context.Context, labID, id string, status models.BookingStatus) (*models.PathologyBooking, error) {
	if !status.Valid() {
		return nil, apperrors.Validation("unknown status %q", status)
	}
	return s.mutate(ctx, labID, id, func(booking *models.PathologyBooking) (bool, error) {
		if err := booking.TransitionTo(status); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Summary quotes the booking under the configured net payable policy.
func (s *BookingService) Summary(ctx context.Context, labID, id string) (billing.Summary, error) {
	booking, err := s.Get(ctx, labID, id)
	if err != nil {
		return billing.Summary{}, err
	}
	return billing.Summarize(booking.Lines(), booking.Payment.PaidAmount, s.Policy)
}

// Receipt builds the printable view of a booking.
func (s *BookingService) Receipt(ctx context.Context, labID, id string) (receipt.View, error) {
	booking, err := s.Get(ctx, labID, id)
	if err != nil {
		return receipt.View{}, err
	}
	lab, err := s.Labs.GetByID(ctx, labID)
	if err != nil {
		return receipt.View{}, storeErr(err, "failed to get lab")
	}
	if lab == nil {
		lab = &models.Lab{ID: labID}
	}
	return receipt.Build(booking, lab), nil
}
