package services

import (
	"context"

	"PathLab/apperrors"
	"PathLab/models"
	"PathLab/repositories"

	"go.uber.org/zap"
)

// RegistrationService records sample registration for a receipt, which soft
// locks the booking until an admin allows edits.
type RegistrationService struct {
	registrations repositories.RegistrationRepository
	bookings      repositories.BookingRepository
	locker        Locker
	log           *zap.Logger
}

func NewRegistrationService(registrations repositories.RegistrationRepository, bookings repositories.BookingRepository, locker Locker, log *zap.Logger) *RegistrationService {
	return &RegistrationService{registrations: registrations, bookings: bookings, locker: locker, log: log}
}

// underBookingLock finds the booking behind a receipt and runs fn on a fresh
// read of it while holding the booking lock, so no edit or payment is in
// flight when the lock state changes.
func underBookingLock(ctx context.Context, locker Locker, bookings repositories.BookingRepository, labID string, receiptNumber int64, fn func(*models.PathologyBooking) error) error {
	booking, err := bookings.GetByReceipt(ctx, labID, receiptNumber)
	if err != nil {
		return storeErr(err, "failed to get booking")
	}
	if booking == nil {
		return apperrors.NotFound("receipt %d not found", receiptNumber)
	}
	return locker.WithLock(ctx, bookingLock(labID, booking.ID), func() error {
		current, err := bookings.GetByReceipt(ctx, labID, receiptNumber)
		if err != nil {
			return storeErr(err, "failed to get booking")
		}
		if current == nil {
			return apperrors.NotFound("receipt %d not found", receiptNumber)
		}
		return fn(current)
	})
}

func (s *RegistrationService) Create(ctx context.Context, labID string, receiptNumber int64, actor Actor) (*models.PathologyRegistration, error) {
	var registration *models.PathologyRegistration
	err := underBookingLock(ctx, s.locker, s.bookings, labID, receiptNumber, func(booking *models.PathologyBooking) error {
		if booking.Status == models.BookingCancelled {
			return apperrors.Conflict("booking is cancelled")
		}
		registration = &models.PathologyRegistration{
			LabID:         labID,
			ReceiptNumber: receiptNumber,
			BookingID:     booking.ID,
			CreatedBy:     actor.Name(),
		}
		return storeErr(s.registrations.Create(ctx, registration), "registration for receipt %d", receiptNumber)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("registration created", zap.String("lab_id", labID), zap.Int64("receipt", receiptNumber))
	return registration, nil
}

func (s *RegistrationService) Get(ctx context.Context, labID string, receiptNumber int64) (*models.PathologyRegistration, error) {
	registration, err := s.registrations.GetByReceipt(ctx, labID, receiptNumber)
	if err != nil {
		return nil, storeErr(err, "failed to get registration")
	}
	if registration == nil {
		return nil, apperrors.NotFound("no registration for receipt %d", receiptNumber)
	}
	return registration, nil
}

// SetEditAllowed lifts or restores the soft lock. Only lab administrators
// may do this; a generated report keeps the booking locked regardless.
func (s *RegistrationService) SetEditAllowed(ctx context.Context, labID string, receiptNumber int64, allowed bool, actor Actor) (*models.PathologyRegistration, error) {
	if !actor.HasSystemRole(models.RoleSuperAdmin, models.RoleLabAdmin, models.RoleAdmin) {
		return nil, apperrors.Forbidden("only lab administrators can change edit permission")
	}
	registration, err := s.Get(ctx, labID, receiptNumber)
	if err != nil {
		return nil, err
	}
	err = underBookingLock(ctx, s.locker, s.bookings, labID, receiptNumber, func(*models.PathologyBooking) error {
		return storeErr(s.registrations.SetEditAllowed(ctx, labID, receiptNumber, allowed), "failed to update registration")
	})
	if err != nil {
		return nil, err
	}
	registration.EditAllowed = allowed
	s.log.Info("edit permission changed",
		zap.String("lab_id", labID),
		zap.Int64("receipt", receiptNumber),
		zap.Bool("edit_allowed", allowed),
		zap.String("by", actor.Name()),
	)
	return registration, nil
}

// ReportService generates the pathology report for a receipt. The first
// generation wins; later attempts are conflicts.
type ReportService struct {
	reports  repositories.ReportRepository
	bookings repositories.BookingRepository
	locker   Locker
	log      *zap.Logger
}

func NewReportService(reports repositories.ReportRepository, bookings repositories.BookingRepository, locker Locker, log *zap.Logger) *ReportService {
	return &ReportService{reports: reports, bookings: bookings, locker: locker, log: log}
}

// Generate writes the report under the booking lock, so it never lands
// between an edit's lock check and its save.
func (s *ReportService) Generate(ctx context.Context, labID string, receiptNumber int64, findings string, actor Actor) (*models.PathologyReport, error) {
	var report *models.PathologyReport
	err := underBookingLock(ctx, s.locker, s.bookings, labID, receiptNumber, func(booking *models.PathologyBooking) error {
		exists, err := s.reports.Exists(ctx, labID, receiptNumber)
		if err != nil {
			return storeErr(err, "failed to check report")
		}
		if exists {
			return apperrors.Conflict("report for receipt %d already generated", receiptNumber)
		}
		if booking.Status == models.BookingCancelled {
			return apperrors.Conflict("booking is cancelled")
		}

		report = &models.PathologyReport{
			LabID:         labID,
			ReceiptNumber: receiptNumber,
			BookingID:     booking.ID,
			Findings:      findings,
			GeneratedBy:   actor.Name(),
		}
		return storeErr(s.reports.Create(ctx, report), "report for receipt %d", receiptNumber)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("report generated", zap.String("lab_id", labID), zap.Int64("receipt", receiptNumber))
	return report, nil
}

func (s *ReportService) Get(ctx context.Context, labID string, receiptNumber int64) (*models.PathologyReport, error) {
	report, err := s.reports.GetByReceipt(ctx, labID, receiptNumber)
	if err != nil {
		return nil, storeErr(err, "failed to get report")
	}
	if report == nil {
		return nil, apperrors.NotFound("no report for receipt %d", receiptNumber)
	}
	return report, nil
}
