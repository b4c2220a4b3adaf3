package repositories

import (
	"context"

	"PathLab/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Registration and report lookups are never cached: they decide the
// invoice lock state.

type RegistrationRepository interface {
	Create(ctx context.Context, registration *models.PathologyRegistration) error
	GetByReceipt(ctx context.Context, labID string, receiptNumber int64) (*models.PathologyRegistration, error)
	SetEditAllowed(ctx context.Context, labID string, receiptNumber int64, allowed bool) error
}

type registrationRepository struct {
	db *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

func (r *registrationRepository) Create(ctx context.Context, registration *models.PathologyRegistration) error {
	if err := r.db.WithContext(ctx).Create(registration).Error; err != nil {
		return errors.Wrap(createErr(err), "failed to create registration")
	}
	return nil
}

func (r *registrationRepository) GetByReceipt(ctx context.Context, labID string, receiptNumber int64) (*models.PathologyRegistration, error) {
	var registration models.PathologyRegistration
	err := r.db.WithContext(ctx).
		Where("lab_id = ? AND receipt_number = ?", labID, receiptNumber).
		First(&registration).Error
	if found, err := translate(err); !found {
		return nil, errors.Wrap(err, "failed to get registration")
	}
	return &registration, nil
}

func (r *registrationRepository) SetEditAllowed(ctx context.Context, labID string, receiptNumber int64, allowed bool) error {
	err := r.db.WithContext(ctx).Model(&models.PathologyRegistration{}).
		Where("lab_id = ? AND receipt_number = ?", labID, receiptNumber).
		Update("edit_allowed", allowed).Error
	return errors.Wrap(err, "failed to update registration")
}

type ReportRepository interface {
	Create(ctx context.Context, report *models.PathologyReport) error
	GetByReceipt(ctx context.Context, labID string, receiptNumber int64) (*models.PathologyReport, error)
	Exists(ctx context.Context, labID string, receiptNumber int64) (bool, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// Create returns ErrDuplicate when a report for the receipt already exists.
func (r *reportRepository) Create(ctx context.Context, report *models.PathologyReport) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return errors.Wrap(createErr(err), "failed to create report")
	}
	return nil
}

func (r *reportRepository) GetByReceipt(ctx context.Context, labID string, receiptNumber int64) (*models.PathologyReport, error) {
	var report models.PathologyReport
	err := r.db.WithContext(ctx).
		Where("lab_id = ? AND receipt_number = ?", labID, receiptNumber).
		First(&report).Error
	if found, err := translate(err); !found {
		return nil, errors.Wrap(err, "failed to get report")
	}
	return &report, nil
}

func (r *reportRepository) Exists(ctx context.Context, labID string, receiptNumber int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PathologyReport{}).
		Where("lab_id = ? AND receipt_number = ?", labID, receiptNumber).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check report existence")
	}
	return count > 0, nil
}
