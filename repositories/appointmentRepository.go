package repositories

import (
	"context"
	"time"

	"PathLab/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *models.Appointment) error
	GetByID(ctx context.Context, labID, id string) (*models.Appointment, error)
	ListByPatient(ctx context.Context, labID, patientID string) ([]models.Appointment, error)
	ListByDay(ctx context.Context, labID string, day time.Time) ([]models.Appointment, error)
	UpdateStatus(ctx context.Context, labID, id string, status models.AppointmentStatus) error
	MaxAppointmentID(ctx context.Context, labID, prefix string) (string, error)
}

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *models.Appointment) error {
	if err := r.db.WithContext(ctx).Create(appointment).Error; err != nil {
		return errors.Wrap(createErr(err), "failed to create appointment")
	}
	return nil
}

func (r *appointmentRepository) GetByID(ctx context.Context, labID, id string) (*models.Appointment, error) {
	var appointment models.Appointment
	err := r.db.WithContext(ctx).Where("lab_id = ? AND id = ?", labID, id).First(&appointment).Error
	if found, err := translate(err); !found {
		return nil, errors.Wrap(err, "failed to get appointment")
	}
	return &appointment, nil
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, labID, patientID string) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Where("lab_id = ? AND patient_id = ?", labID, patientID).
		Order("scheduled_at DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list appointments")
	}
	return appointments, nil
}

// ListByDay returns the appointments scheduled on day's calendar date in
// day's location.
func (r *appointmentRepository) ListByDay(ctx context.Context, labID string, day time.Time) ([]models.Appointment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Where("lab_id = ? AND scheduled_at >= ? AND scheduled_at < ?", labID, start, start.AddDate(0, 0, 1)).
		Order("scheduled_at").
		Find(&appointments).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list appointments")
	}
	return appointments, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, labID, id string, status models.AppointmentStatus) error {
	err := r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("lab_id = ? AND id = ?", labID, id).
		Update("status", status).Error
	return errors.Wrap(err, "failed to update appointment status")
}

func (r *appointmentRepository) MaxAppointmentID(ctx context.Context, labID, prefix string) (string, error) {
	var max *string
	err := r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("lab_id = ? AND appointment_id LIKE ?", labID, prefix+"%").
		Select("MAX(appointment_id)").
		Scan(&max).Error
	if err != nil {
		return "", errors.Wrap(err, "failed to read max appointment id")
	}
	if max == nil {
		return "", nil
	}
	return *max, nil
}
