package repositories

import (
	"context"
	"fmt"

	"PathLab/cache"
	"PathLab/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type UserRepository interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	GetUserForLogin(ctx context.Context, email string) (*models.User, error)
	GetRoleByName(ctx context.Context, name models.SystemRole) (*models.Role, error)
	UpdateUserEmail(ctx context.Context, userID int64, newEmail string) error
	UpdateUserPassword(ctx context.Context, userID int64, hashedPassword string) error
	GetAllUsers(ctx context.Context, labID string) ([]models.User, error)
	DeleteUserCache(ctx context.Context, identifiers ...string) error
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)
	UpdateUserProfile(ctx context.Context, userID int64, username, email string) error
	GetUserPermissions(ctx context.Context, user *models.User) ([]string, error)
	DeleteUser(ctx context.Context, userID int64) error
}

type userRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewUserRepository(db *gorm.DB, cache *cache.Cache) UserRepository {
	return &userRepository{db: db, cache: cache}
}

const userColumns = "id, lab_id, username, email, role_id, custom_role_id, created_at"

func (r *userRepository) withRoles(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Role", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, name, description")
		}).
		Preload("CustomRole")
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return count > 0, nil
}

func (r *userRepository) getCached(ctx context.Context, identifier string, query func(*gorm.DB) *gorm.DB) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var user models.User
	cacheKey := r.getUserCacheKey(identifier)
	if r.cache.GetJSON(ctx, cacheKey, &user) {
		return &user, nil
	}

	err := query(r.withRoles(r.db.WithContext(ctx).Select(userColumns))).First(&user).Error
	if found, err := translate(err); !found {
		return nil, errors.Wrap(err, "failed to get user")
	}

	r.cache.SetJSON(ctx, cacheKey, user, defaultCacheExpiry)
	return &user, nil
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getCached(ctx, username, func(db *gorm.DB) *gorm.DB {
		return db.Where("username = ?", username)
	})
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getCached(ctx, email, func(db *gorm.DB) *gorm.DB {
		return db.Where("email = ?", email)
	})
}

func (r *userRepository) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	return r.getCached(ctx, fmt.Sprintf("%d", userID), func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", userID)
	})
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return errors.Wrap(createErr(err), "failed to create user")
	}
	return nil
}

// GetUserForLogin loads the password hash; it bypasses the cache.
func (r *userRepository) GetUserForLogin(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.withRoles(r.db.WithContext(ctx).Select(userColumns+", password")).
		Where("email = ?", email).
		First(&user).Error
	if found, err := translate(err); !found {
		return nil, errors.Wrap(err, "failed to get user")
	}
	return &user, nil
}

func (r *userRepository) GetRoleByName(ctx context.Context, name models.SystemRole) (*models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if found, err := translate(err); !found {
		return nil, errors.Wrap(err, "failed to get role")
	}
	return &role, nil
}

func (r *userRepository) UpdateUserEmail(ctx context.Context, userID int64, newEmail string) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("email", newEmail).Error
	return errors.Wrap(createErr(err), "failed to update email")
}

func (r *userRepository) UpdateUserPassword(ctx context.Context, userID int64, hashedPassword string) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("password", hashedPassword).Error
	return errors.Wrap(err, "failed to update password")
}

// GetAllUsers lists the users of one lab, or every user when labID is "".
func (r *userRepository) GetAllUsers(ctx context.Context, labID string) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	q := r.withRoles(r.db.WithContext(ctx).Select(userColumns))
	if labID != "" {
		q = q.Where("lab_id = ?", labID)
	}
	var users []models.User
	if err := q.Order("username").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	return users, nil
}

func (r *userRepository) DeleteUserCache(ctx context.Context, identifiers ...string) error {
	keys := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		keys = append(keys, r.getUserCacheKey(id))
	}
	return r.cache.DeleteBatch(ctx, keys...)
}

func (r *userRepository) UpdateUserProfile(ctx context.Context, userID int64, username, email string) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"username": username,
		"email":    email,
	}).Error
	return errors.Wrap(createErr(err), "failed to update profile")
}

// GetUserPermissions resolves permissions from the system role or the
// custom role's list.
func (r *userRepository) GetUserPermissions(ctx context.Context, user *models.User) ([]string, error) {
	if user.CustomRole != nil {
		if !user.CustomRole.IsActive {
			return []string{}, nil
		}
		return append([]string{}, user.CustomRole.Permissions...), nil
	}
	if user.RoleID == nil {
		return []string{}, nil
	}
	var names []string
	err := r.db.WithContext(ctx).Model(&models.Permission{}).
		Joins("JOIN role_permissions rp ON permissions.id = rp.permission_id").
		Where("rp.role_id = ?", *user.RoleID).
		Order("permissions.name").
		Pluck("permissions.name", &names).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get permissions")
	}
	return names, nil
}

func (r *userRepository) DeleteUser(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).Delete(&models.User{}, userID).Error
	return errors.Wrap(err, "failed to delete user")
}

func (r *userRepository) getUserCacheKey(identifier string) string {
	return fmt.Sprintf("user_cache:%s", identifier)
}
