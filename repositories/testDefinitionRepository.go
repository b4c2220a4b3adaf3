package repositories

import (
	"context"
	"fmt"

	"PathLab/cache"
	"PathLab/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type TestDefinitionRepository interface {
	Create(ctx context.Context, test *models.TestDefinition) error
	GetByID(ctx context.Context, labID, id string) (*models.TestDefinition, error)
	GetByIDs(ctx context.Context, labID string, ids []string) ([]models.TestDefinition, error)
	List(ctx context.Context, labID string, includeInactive bool) ([]models.TestDefinition, error)
	Update(ctx context.Context, test *models.TestDefinition) error
	SetActive(ctx context.Context, labID, id string, active bool) error
}

type testDefinitionRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewTestDefinitionRepository(db *gorm.DB, cache *cache.Cache) TestDefinitionRepository {
	return &testDefinitionRepository{db: db, cache: cache}
}

func (r *testDefinitionRepository) Create(ctx context.Context, test *models.TestDefinition) error {
	if err := r.db.WithContext(ctx).Create(test).Error; err != nil {
		return errors.Wrap(createErr(err), "failed to create test definition")
	}
	return r.invalidate(ctx, test.LabID)
}

func (r *testDefinitionRepository) GetByID(ctx context.Context, labID, id string) (*models.TestDefinition, error) {
	var test models.TestDefinition
	err := r.db.WithContext(ctx).Where("lab_id = ? AND id = ?", labID, id).First(&test).Error
	if found, err := translate(err); !found {
		return nil, errors.Wrap(err, "failed to get test definition")
	}
	return &test, nil
}

func (r *testDefinitionRepository) GetByIDs(ctx context.Context, labID string, ids []string) ([]models.TestDefinition, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tests []models.TestDefinition
	if err := r.db.WithContext(ctx).Where("lab_id = ? AND id IN ?", labID, ids).Find(&tests).Error; err != nil {
		return nil, errors.Wrap(err, "failed to get test definitions")
	}
	return tests, nil
}

func (r *testDefinitionRepository) List(ctx context.Context, labID string, includeInactive bool) ([]models.TestDefinition, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cacheKey := fmt.Sprintf("tests_cache:%s:%t", labID, includeInactive)
	var tests []models.TestDefinition
	if r.cache.GetJSON(ctx, cacheKey, &tests) {
		return tests, nil
	}

	q := r.db.WithContext(ctx).Where("lab_id = ?", labID)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("category, name").Find(&tests).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list test definitions")
	}

	r.cache.SetJSON(ctx, cacheKey, tests, defaultCacheExpiry)
	return tests, nil
}

func (r *testDefinitionRepository) Update(ctx context.Context, test *models.TestDefinition) error {
	err := r.db.WithContext(ctx).Model(&models.TestDefinition{}).
		Where("lab_id = ? AND id = ?", test.LabID, test.ID).
		Select("name", "category", "price", "sample_type").
		Updates(test).Error
	if err != nil {
		return errors.Wrap(createErr(err), "failed to update test definition")
	}
	return r.invalidate(ctx, test.LabID)
}

func (r *testDefinitionRepository) SetActive(ctx context.Context, labID, id string, active bool) error {
	err := r.db.WithContext(ctx).Model(&models.TestDefinition{}).
		Where("lab_id = ? AND id = ?", labID, id).
		Update("is_active", active).Error
	if err != nil {
		return errors.Wrap(err, "failed to update test definition")
	}
	return r.invalidate(ctx, labID)
}

func (r *testDefinitionRepository) invalidate(ctx context.Context, labID string) error {
	return r.cache.DeleteAll(ctx, fmt.Sprintf("tests_cache:%s:*", labID))
}
