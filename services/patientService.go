package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"PathLab/apperrors"
	"PathLab/counter"
	"PathLab/models"
	"PathLab/repositories"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

type PatientService struct {
	repository repositories.PatientRepository
	counters   *counter.Service
	locker     Locker
	log        *zap.Logger
	now        clock
}

func NewPatientService(repository repositories.PatientRepository, counters *counter.Service, locker Locker, log *zap.Logger) *PatientService {
	return &PatientService{repository: repository, counters: counters, locker: locker, log: log, now: time.Now}
}

func validatePatient(p *models.Patient) error {
	err := validation.ValidateStruct(p,
		validation.Field(&p.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.LastName, validation.Length(0, 100)),
		validation.Field(&p.Gender, validation.Required, validation.In("Male", "Female", "Other")),
		validation.Field(&p.Phone, validation.Required, validation.Match(phoneRegex).Error("must be 7 to 15 digits")),
		validation.Field(&p.Email, is.EmailFormat),
		validation.Field(&p.Age, validation.By(func(interface{}) error {
			if p.Age.Value < 0 || p.Age.Value > 150 {
				return validation.NewError("validation_age_range", "must be between 0 and 150")
			}
			if !p.Age.Unit.Valid() {
				return validation.NewError("validation_age_unit", "unit must be Years, Months or Days")
			}
			return nil
		})),
	)
	return apperrors.ValidationFrom(err)
}

func normalizePatient(p *models.Patient) {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Email = strings.TrimSpace(p.Email)
}

// Register creates a patient with a freshly allocated patient ID. The same
// name and phone registered twice in one lab is a conflict.
func (s *PatientService) Register(ctx context.Context, labID string, patient *models.Patient) error {
	if err := requireLab(labID); err != nil {
		return err
	}
	normalizePatient(patient)
	if err := validatePatient(patient); err != nil {
		return err
	}

	key := lockKey("patient", labID, strings.ToLower(patient.FirstName+patient.LastName), patient.Phone)
	return s.locker.WithLock(ctx, key, func() error {
		existing, err := s.repository.FindDuplicate(ctx, labID, patient.FirstName, patient.LastName, patient.Phone)
		if err != nil {
			return storeErr(err, "failed to check for existing patient")
		}
		if existing != nil {
			return apperrors.Conflict("patient already registered as %s", existing.PatientID)
		}

		patientID, err := s.counters.NextID(ctx, counter.PatientSequence(labID, s.now().Year()))
		if err != nil {
			return err
		}

		patient.ID = uuid.New().String()
		patient.LabID = labID
		patient.PatientID = patientID
		if err := s.repository.Create(ctx, patient); err != nil {
			return storeErr(err, "failed to create patient")
		}
		s.log.Info("patient registered", zap.String("lab_id", labID), zap.String("patient_id", patientID))
		return nil
	})
}

func (s *PatientService) GetByID(ctx context.Context, labID, id string) (*models.Patient, error) {
	patient, err := s.repository.GetByID(ctx, labID, id)
	if err != nil {
		return nil, storeErr(err, "failed to get patient")
	}
	if patient == nil {
		return nil, apperrors.NotFound("patient not found")
	}
	return patient, nil
}

func (s *PatientService) List(ctx context.Context, labID string, limit, offset int) ([]models.Patient, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	patients, err := s.repository.List(ctx, labID, limit, offset)
	return patients, storeErr(err, "failed to list patients")
}

func (s *PatientService) Search(ctx context.Context, labID, query string) ([]models.Patient, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, apperrors.Validation("search query must be at least 2 characters")
	}
	patients, err := s.repository.Search(ctx, labID, query)
	return patients, storeErr(err, "failed to search patients")
}

// Update changes demographics only. The patient ID stays as assigned.
func (s *PatientService) Update(ctx context.Context, labID, id string, changes *models.Patient) (*models.Patient, error) {
	patient, err := s.GetByID(ctx, labID, id)
	if err != nil {
		return nil, err
	}
	normalizePatient(changes)
	if err := validatePatient(changes); err != nil {
		return nil, err
	}

	patient.FirstName = changes.FirstName
	patient.LastName = changes.LastName
	patient.Age = changes.Age
	patient.Gender = changes.Gender
	patient.Phone = changes.Phone
	patient.Email = changes.Email
	patient.Address = changes.Address
	if err := s.repository.Update(ctx, patient); err != nil {
		return nil, storeErr(err, "failed to update patient")
	}
	return patient, nil
}
