package repositories

import (
	"context"

	"PathLab/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type CustomRoleRepository interface {
	Create(ctx context.Context, role *models.CustomRole) error
	GetByID(ctx context.Context, labID string, id int64) (*models.CustomRole, error)
	List(ctx context.Context, labID string, includeInactive bool) ([]models.CustomRole, error)
	Deactivate(ctx context.Context, labID string, id int64) error
}

type customRoleRepository struct {
	db *gorm.DB
}

func NewCustomRoleRepository(db *gorm.DB) CustomRoleRepository {
	return &customRoleRepository{db: db}
}

func (r *customRoleRepository) Create(ctx context.Context, role *models.CustomRole) error {
	if err := r.db.WithContext(ctx).Create(role).Error; err != nil {
		return errors.Wrap(createErr(err), "failed to create custom role")
	}
	return nil
}

func (r *customRoleRepository) GetByID(ctx context.Context, labID string, id int64) (*models.CustomRole, error) {
	var role models.CustomRole
	err := r.db.WithContext(ctx).Where("lab_id = ? AND id = ?", labID, id).First(&role).Error
	if found, err := translate(err); !found {
		return nil, errors.Wrap(err, "failed to get custom role")
	}
	return &role, nil
}

func (r *customRoleRepository) List(ctx context.Context, labID string, includeInactive bool) ([]models.CustomRole, error) {
	q := r.db.WithContext(ctx).Where("lab_id = ?", labID)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var roles []models.CustomRole
	if err := q.Order("name").Find(&roles).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list custom roles")
	}
	return roles, nil
}

// Deactivate soft-deletes the role; users keep their reference.
func (r *customRoleRepository) Deactivate(ctx context.Context, labID string, id int64) error {
	err := r.db.WithContext(ctx).Model(&models.CustomRole{}).
		Where("lab_id = ? AND id = ?", labID, id).
		Update("is_active", false).Error
	return errors.Wrap(err, "failed to deactivate custom role")
}
