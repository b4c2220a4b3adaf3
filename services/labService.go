package services

import (
	"context"
	"strings"

	"PathLab/apperrors"
	"PathLab/models"
	"PathLab/repositories"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type LabService struct {
	repository repositories.LabRepository
	log        *zap.Logger
}

func NewLabService(repository repositories.LabRepository, log *zap.Logger) *LabService {
	return &LabService{repository: repository, log: log}
}

func validateLab(lab *models.Lab) error {
	err := validation.ValidateStruct(lab,
		validation.Field(&lab.Name, validation.Required, validation.Length(2, 200)),
		validation.Field(&lab.Code, validation.Required, validation.Length(2, 20), is.Alphanumeric),
		validation.Field(&lab.Email, is.EmailFormat),
	)
	return apperrors.ValidationFrom(err)
}

func (s *LabService) Create(ctx context.Context, lab *models.Lab, actor Actor) error {
	if !actor.HasSystemRole(models.RoleSuperAdmin) {
		return apperrors.Forbidden("only super admins can create labs")
	}
	lab.Name = strings.TrimSpace(lab.Name)
	lab.Code = strings.ToUpper(strings.TrimSpace(lab.Code))
	if err := validateLab(lab); err != nil {
		return err
	}
	lab.ID = uuid.New().String()
	lab.IsActive = true
	if err := s.repository.Create(ctx, lab); err != nil {
		return storeErr(err, "lab %s", lab.Code)
	}
	s.log.Info("lab created", zap.String("lab_id", lab.ID), zap.String("code", lab.Code))
	return nil
}

func (s *LabService) Get(ctx context.Context, id string) (*models.Lab, error) {
	lab, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "failed to get lab")
	}
	if lab == nil {
		return nil, apperrors.NotFound("lab not found")
	}
	return lab, nil
}

func (s *LabService) List(ctx context.Context) ([]models.Lab, error) {
	labs, err := s.repository.List(ctx)
	return labs, storeErr(err, "failed to list labs")
}

// Update changes contact details. The code is fixed once created.
func (s *LabService) Update(ctx context.Context, id string, changes *models.Lab, actor Actor) (*models.Lab, error) {
	if !actor.HasSystemRole(models.RoleSuperAdmin) && !(actor.HasSystemRole(models.RoleLabAdmin) && actor.LabID == id) {
		return nil, apperrors.Forbidden("cannot update this lab")
	}
	lab, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	lab.Name = strings.TrimSpace(changes.Name)
	lab.Address = changes.Address
	lab.Phone = changes.Phone
	lab.Email = strings.TrimSpace(changes.Email)
	if err := validateLab(lab); err != nil {
		return nil, err
	}
	if err := s.repository.Update(ctx, lab); err != nil {
		return nil, storeErr(err, "failed to update lab")
	}
	return lab, nil
}

func (s *LabService) SetActive(ctx context.Context, id string, active bool, actor Actor) error {
	if !actor.HasSystemRole(models.RoleSuperAdmin) {
		return apperrors.Forbidden("only super admins can change lab status")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repository.SetActive(ctx, id, active); err != nil {
		return storeErr(err, "failed to update lab")
	}
	s.log.Info("lab status changed", zap.String("lab_id", id), zap.Bool("active", active))
	return nil
}
