package repositories

import (
	"context"
	"fmt"

	"PathLab/cache"
	"PathLab/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const labsCacheKey = "labs_cache"

type LabRepository interface {
	Create(ctx context.Context, lab *models.Lab) error
	GetByID(ctx context.Context, id string) (*models.Lab, error)
	List(ctx context.Context) ([]models.Lab, error)
	Update(ctx context.Context, lab *models.Lab) error
	SetActive(ctx context.Context, id string, active bool) error
}

type labRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewLabRepository(db *gorm.DB, cache *cache.Cache) LabRepository {
	return &labRepository{db: db, cache: cache}
}

func (r *labRepository) Create(ctx context.Context, lab *models.Lab) error {
	if err := r.db.WithContext(ctx).Create(lab).Error; err != nil {
		return errors.Wrap(createErr(err), "failed to create lab")
	}
	return r.cache.Delete(ctx, labsCacheKey)
}

func (r *labRepository) GetByID(ctx context.Context, id string) (*models.Lab, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var lab models.Lab
	cacheKey := r.getLabCacheKey(id)
	if r.cache.GetJSON(ctx, cacheKey, &lab) {
		return &lab, nil
	}

	err := r.db.WithContext(ctx).First(&lab, "id = ?", id).Error
	if found, err := translate(err); !found {
		return nil, errors.Wrap(err, "failed to get lab")
	}

	r.cache.SetJSON(ctx, cacheKey, lab, defaultCacheExpiry)
	return &lab, nil
}

func (r *labRepository) List(ctx context.Context) ([]models.Lab, error) {
	var labs []models.Lab
	if r.cache.GetJSON(ctx, labsCacheKey, &labs) {
		return labs, nil
	}
	if err := r.db.WithContext(ctx).Order("name").Find(&labs).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list labs")
	}
	r.cache.SetJSON(ctx, labsCacheKey, labs, defaultCacheExpiry)
	return labs, nil
}

func (r *labRepository) Update(ctx context.Context, lab *models.Lab) error {
	err := r.db.WithContext(ctx).Model(&models.Lab{}).
		Where("id = ?", lab.ID).
		Select("name", "address", "phone", "email").
		Updates(lab).Error
	if err != nil {
		return errors.Wrap(err, "failed to update lab")
	}
	return r.cache.DeleteBatch(ctx, labsCacheKey, r.getLabCacheKey(lab.ID))
}

func (r *labRepository) SetActive(ctx context.Context, id string, active bool) error {
	err := r.db.WithContext(ctx).Model(&models.Lab{}).Where("id = ?", id).Update("is_active", active).Error
	if err != nil {
		return errors.Wrap(err, "failed to update lab")
	}
	return r.cache.DeleteBatch(ctx, labsCacheKey, r.getLabCacheKey(id))
}

func (r *labRepository) getLabCacheKey(id string) string {
	return fmt.Sprintf("lab_cache:%s", id)
}
