package services

import (
	"context"
	"strings"

	"PathLab/apperrors"
	"PathLab/models"
	"PathLab/repositories"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// CatalogueService manages a lab's test definitions.
type CatalogueService struct {
	repository repositories.TestDefinitionRepository
}

func NewCatalogueService(repository repositories.TestDefinitionRepository) *CatalogueService {
	return &CatalogueService{repository: repository}
}

func validateTest(t *models.TestDefinition) error {
	err := validation.ValidateStruct(t,
		validation.Field(&t.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&t.Category, validation.Required, validation.Length(1, 100)),
		validation.Field(&t.Price, validation.By(func(interface{}) error {
			if t.Price.IsNegative() {
				return validation.NewError("validation_price", "cannot be negative")
			}
			return nil
		})),
	)
	return apperrors.ValidationFrom(err)
}

func (s *CatalogueService) Create(ctx context.Context, labID string, test *models.TestDefinition) error {
	if err := requireLab(labID); err != nil {
		return err
	}
	test.Name = strings.TrimSpace(test.Name)
	test.Category = strings.TrimSpace(test.Category)
	if err := validateTest(test); err != nil {
		return err
	}
	test.ID = uuid.New().String()
	test.LabID = labID
	test.IsActive = true
	return storeErr(s.repository.Create(ctx, test), "failed to create test %q", test.Name)
}

func (s *CatalogueService) Get(ctx context.Context, labID, id string) (*models.TestDefinition, error) {
	test, err := s.repository.GetByID(ctx, labID, id)
	if err != nil {
		return nil, storeErr(err, "failed to get test")
	}
	if test == nil {
		return nil, apperrors.NotFound("test %s not found", id)
	}
	return test, nil
}

func (s *CatalogueService) List(ctx context.Context, labID string, includeInactive bool) ([]models.TestDefinition, error) {
	tests, err := s.repository.List(ctx, labID, includeInactive)
	return tests, storeErr(err, "failed to list tests")
}

func (s *CatalogueService) Update(ctx context.Context, labID, id string, changes *models.TestDefinition) (*models.TestDefinition, error) {
	test, err := s.Get(ctx, labID, id)
	if err != nil {
		return nil, err
	}
	test.Name = strings.TrimSpace(changes.Name)
	test.Category = strings.TrimSpace(changes.Category)
	test.Price = changes.Price
	test.SampleType = changes.SampleType
	if err := validateTest(test); err != nil {
		return nil, err
	}
	if err := s.repository.Update(ctx, test); err != nil {
		return nil, storeErr(err, "failed to update test %q", test.Name)
	}
	return test, nil
}

// SetActive hides or restores a test. Existing bookings keep their copy.
func (s *CatalogueService) SetActive(ctx context.Context, labID, id string, active bool) error {
	if _, err := s.Get(ctx, labID, id); err != nil {
		return err
	}
	return storeErr(s.repository.SetActive(ctx, labID, id, active), "failed to update test")
}

// Resolve loads the active tests for ids in the order given. Any unknown or
// inactive ID is a not-found error.
func (s *CatalogueService) Resolve(ctx context.Context, labID string, ids []string) ([]models.TestDefinition, error) {
	if len(ids) == 0 {
		return nil, apperrors.Validation("at least one test is required")
	}
	found, err := s.repository.GetByIDs(ctx, labID, ids)
	if err != nil {
		return nil, storeErr(err, "failed to load tests")
	}
	byID := make(map[string]models.TestDefinition, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}
	out := make([]models.TestDefinition, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok || !t.IsActive {
			return nil, apperrors.NotFound("test %s not found", id)
		}
		out = append(out, t)
	}
	return out, nil
}
