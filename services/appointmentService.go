package services

import (
	"context"
	"time"

	"PathLab/apperrors"
	"PathLab/counter"
	"PathLab/models"
	"PathLab/repositories"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AppointmentService struct {
	repository repositories.AppointmentRepository
	patients   repositories.PatientRepository
	counters   *counter.Service
	log        *zap.Logger
	now        clock
}

func NewAppointmentService(repository repositories.AppointmentRepository, patients repositories.PatientRepository, counters *counter.Service, log *zap.Logger) *AppointmentService {
	return &AppointmentService{repository: repository, patients: patients, counters: counters, log: log, now: time.Now}
}

// Book schedules an appointment for an existing patient.
func (s *AppointmentService) Book(ctx context.Context, labID string, appointment *models.Appointment) error {
	if err := requireLab(labID); err != nil {
		return err
	}
	err := validation.ValidateStruct(appointment,
		validation.Field(&appointment.PatientID, validation.Required),
		validation.Field(&appointment.DoctorName, validation.Required, validation.Length(1, 100)),
		validation.Field(&appointment.ScheduledAt, validation.Required),
	)
	if err != nil {
		return apperrors.ValidationFrom(err)
	}

	patient, err := s.patients.GetByID(ctx, labID, appointment.PatientID)
	if err != nil {
		return storeErr(err, "failed to get patient")
	}
	if patient == nil {
		return apperrors.NotFound("patient not found")
	}

	code, err := s.counters.NextID(ctx, counter.AppointmentSequence(labID, s.now().Year()))
	if err != nil {
		return err
	}
	appointment.ID = uuid.New().String()
	appointment.LabID = labID
	appointment.AppointmentID = code
	appointment.Status = models.AppointmentScheduled
	if err := s.repository.Create(ctx, appointment); err != nil {
		return storeErr(err, "failed to create appointment")
	}
	s.log.Info("appointment booked", zap.String("lab_id", labID), zap.String("appointment_id", code))
	return nil
}

func (s *AppointmentService) Get(ctx context.Context, labID, id string) (*models.Appointment, error) {
	appointment, err := s.repository.GetByID(ctx, labID, id)
	if err != nil {
		return nil, storeErr(err, "failed to get appointment")
	}
	if appointment == nil {
		return nil, apperrors.NotFound("appointment not found")
	}
	return appointment, nil
}

func (s *AppointmentService) ListByPatient(ctx context.Context, labID, patientID string) ([]models.Appointment, error) {
	appointments, err := s.repository.ListByPatient(ctx, labID, patientID)
	return appointments, storeErr(err, "failed to list appointments")
}

func (s *AppointmentService) ListByDay(ctx context.Context, labID string, day time.Time) ([]models.Appointment, error) {
	appointments, err := s.repository.ListByDay(ctx, labID, day)
	return appointments, storeErr(err, "failed to list appointments")
}

func (s *AppointmentService) UpdateStatus(ctx context.Context, labID, id string, status models.AppointmentStatus) (*models.Appointment, error) {
	appointment, err := s.Get(ctx, labID, id)
	if err != nil {
		return nil, err
	}
	if err := appointment.TransitionTo(status); err != nil {
		return nil, err
	}
	if err := s.repository.UpdateStatus(ctx, labID, id, status); err != nil {
		return nil, storeErr(err, "failed to update appointment")
	}
	return appointment, nil
}
