package services

import (
	"context"
	"strconv"
	"strings"

	"PathLab/apperrors"
	"PathLab/models"
	"PathLab/repositories"
	"PathLab/utils"

	"go.uber.org/zap"
)

// Notifier delivers account emails. *utils.Mailer satisfies it.
type Notifier interface {
	SendResetCode(email, code string) error
	SendInviteAsync(email, username, lab string)
}

// ResetCodeStore keeps pending password reset codes. *utils.ResetCodes
// satisfies it.
type ResetCodeStore interface {
	Set(ctx context.Context, email, code string) error
	Get(ctx context.Context, email string) (*string, error)
	Delete(ctx context.Context, email string) error
}

// NewUserInput describes an account to create. Exactly one of Role and
// CustomRoleID is set.
type NewUserInput struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Role         string `json:"role"`
	CustomRoleID *int64 `json:"custom_role_id"`
	LabID        string `json:"lab_id"`
}

type UserService interface {
	CreateUser(ctx context.Context, input NewUserInput, actor Actor) (*models.User, error)
	CreateSuperAdmin(ctx context.Context, username, email, password string) (*models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*models.User, error)
	UpdateUserEmail(ctx context.Context, userID int64, currentPassword, newEmail string) error
	SendResetCode(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	GetAllUsers(ctx context.Context, actor Actor) ([]models.User, error)
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)
	UpdateUserProfile(ctx context.Context, userID int64, username, email string) error
	GetUserPermissions(ctx context.Context, userID int64) ([]string, error)
	DeleteUser(ctx context.Context, userID int64, actor Actor) error
}

type userService struct {
	userRepo   repositories.UserRepository
	roleRepo   repositories.CustomRoleRepository
	labRepo    repositories.LabRepository
	locker     Locker
	notifier   Notifier
	resetCodes ResetCodeStore
	log        *zap.Logger
}

func NewUserService(userRepo repositories.UserRepository, roleRepo repositories.CustomRoleRepository, labRepo repositories.LabRepository,
	locker Locker, notifier Notifier, resetCodes ResetCodeStore, log *zap.Logger) UserService {
	return &userService{
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		labRepo:    labRepo,
		locker:     locker,
		notifier:   notifier,
		resetCodes: resetCodes,
		log:        log,
	}
}

func (s *userService) CreateUser(ctx context.Context, input NewUserInput, actor Actor) (*models.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := utils.ValidateUserData(input.Username, input.Email, input.Password); err != nil {
		return nil, apperrors.ValidationFrom(err)
	}
	if (input.Role == "") == (input.CustomRoleID == nil) {
		return nil, apperrors.Validation("exactly one of role and custom role is required")
	}

	switch {
	case actor.HasSystemRole(models.RoleSuperAdmin):
	case actor.HasSystemRole(models.RoleLabAdmin):
		if input.LabID == "" {
			input.LabID = actor.LabID
		}
		if input.LabID != actor.LabID {
			return nil, apperrors.Forbidden("cannot create users in another lab")
		}
		if input.Role == string(models.RoleSuperAdmin) || input.Role == string(models.RoleLabAdmin) {
			return nil, apperrors.Forbidden("cannot grant role %s", input.Role)
		}
	default:
		return nil, apperrors.Forbidden("not allowed to create users")
	}

	if input.Role == string(models.RoleSuperAdmin) {
		return s.create(ctx, input, nil)
	}
	if input.LabID == "" {
		return nil, apperrors.Validation("lab is required")
	}
	lab, err := s.labRepo.GetByID(ctx, input.LabID)
	if err != nil {
		return nil, storeErr(err, "failed to get lab")
	}
	if lab == nil || !lab.IsActive {
		return nil, apperrors.NotFound("lab not found")
	}
	return s.create(ctx, input, lab)
}

func (s *userService) CreateSuperAdmin(ctx context.Context, username, email, password string) (*models.User, error) {
	input := NewUserInput{
		Username: strings.TrimSpace(username),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
		Role:     string(models.RoleSuperAdmin),
	}
	if err := utils.ValidateUserData(input.Username, input.Email, input.Password); err != nil {
		return nil, apperrors.ValidationFrom(err)
	}
	return s.create(ctx, input, nil)
}

func (s *userService) create(ctx context.Context, input NewUserInput, lab *models.Lab) (*models.User, error) {
	user := &models.User{
		Username: input.Username,
		Email:    input.Email,
	}
	if lab != nil {
		user.LabID = &lab.ID
	}

	if input.Role != "" {
		role := models.SystemRole(input.Role)
		if !role.Valid() {
			return nil, apperrors.Validation("unknown role %q", input.Role)
		}
		r, err := s.userRepo.GetRoleByName(ctx, role)
		if err != nil {
			return nil, storeErr(err, "failed to get role")
		}
		if r == nil {
			return nil, apperrors.NotFound("role %s not found", input.Role)
		}
		user.RoleID = &r.ID
	} else {
		custom, err := s.roleRepo.GetByID(ctx, lab.ID, *input.CustomRoleID)
		if err != nil {
			return nil, storeErr(err, "failed to get custom role")
		}
		if custom == nil || !custom.IsActive {
			return nil, apperrors.NotFound("custom role not found")
		}
		user.CustomRoleID = &custom.ID
	}

	err := s.locker.WithLock(ctx, lockKey("user", user.Email), func() error {
		exists, err := s.userRepo.EmailExists(ctx, user.Email)
		if err != nil {
			return storeErr(err, "failed to check email")
		}
		if exists {
			return apperrors.Conflict("email already registered")
		}
		hashed, err := utils.HashPassword(input.Password)
		if err != nil {
			return apperrors.Infrastructure(err, "failed to hash password")
		}
		user.Password = hashed
		return storeErr(s.userRepo.CreateUser(ctx, user), "user %s", user.Username)
	})
	if err != nil {
		return nil, err
	}

	labName := ""
	if lab != nil {
		labName = lab.Name
	}
	s.notifier.SendInviteAsync(user.Email, user.Username, labName)
	s.log.Info("user created", zap.Int64("user_id", user.ID), zap.String("lab_id", user.Lab()))
	return user, nil
}

func (s *userService) AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetUserForLogin(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, storeErr(err, "authentication failed")
	}
	if user == nil || !utils.CheckPassword(user.Password, password) {
		return nil, apperrors.Unauthorized("invalid email or password")
	}
	if user.LabID != nil {
		lab, err := s.labRepo.GetByID(ctx, *user.LabID)
		if err != nil {
			return nil, storeErr(err, "failed to get lab")
		}
		if lab == nil || !lab.IsActive {
			return nil, apperrors.Forbidden("lab is deactivated")
		}
	}
	user.Password = ""
	return user, nil
}

func (s *userService) UpdateUserEmail(ctx context.Context, userID int64, currentPassword, newEmail string) error {
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if err := utils.ValidateEmail(newEmail); err != nil {
		return apperrors.ValidationFrom(err)
	}
	return s.locker.WithLock(ctx, lockKey("user", userID), func() error {
		user, err := s.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := s.AuthenticateUser(ctx, user.Email, currentPassword); err != nil {
			return err
		}
		exists, err := s.userRepo.EmailExists(ctx, newEmail)
		if err != nil {
			return storeErr(err, "failed to check email")
		}
		if exists {
			return apperrors.Conflict("email already registered")
		}
		if err := s.userRepo.UpdateUserEmail(ctx, userID, newEmail); err != nil {
			return storeErr(err, "failed to update email")
		}
		return s.invalidate(ctx, user, newEmail)
	})
}

// SendResetCode stores a fresh code and emails it.
func (s *userService) SendResetCode(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return storeErr(err, "failed to get user")
	}
	if user == nil {
		return apperrors.NotFound("user not found")
	}
	code, err := utils.GenerateResetCode()
	if err != nil {
		return apperrors.Infrastructure(err, "failed to generate reset code")
	}
	if err := s.resetCodes.Set(ctx, email, code); err != nil {
		return apperrors.Infrastructure(err, "failed to store reset code")
	}
	if err := s.notifier.SendResetCode(email, code); err != nil {
		return apperrors.Infrastructure(err, "failed to send reset code")
	}
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := utils.ValidatePasswordReset(code, newPassword); err != nil {
		return apperrors.ValidationFrom(err)
	}
	stored, err := s.resetCodes.Get(ctx, email)
	if err != nil {
		return apperrors.Infrastructure(err, "failed to read reset code")
	}
	if stored == nil || *stored != code {
		return apperrors.Unauthorized("invalid reset code")
	}
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return storeErr(err, "failed to get user")
	}
	if user == nil {
		return apperrors.NotFound("user not found")
	}
	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return apperrors.Infrastructure(err, "failed to hash password")
	}

	err = s.locker.WithLock(ctx, lockKey("user", user.ID), func() error {
		return storeErr(s.userRepo.UpdateUserPassword(ctx, user.ID, hashed), "failed to update password")
	})
	if err != nil {
		return err
	}
	if err := s.resetCodes.Delete(ctx, email); err != nil {
		s.log.Warn("failed to delete reset code", zap.String("email", email), zap.Error(err))
	}
	return s.invalidate(ctx, user)
}

func (s *userService) GetAllUsers(ctx context.Context, actor Actor) ([]models.User, error) {
	labID := actor.LabID
	if actor.HasSystemRole(models.RoleSuperAdmin) {
		labID = ""
	} else if labID == "" {
		return nil, apperrors.Forbidden("no lab assigned")
	}
	users, err := s.userRepo.GetAllUsers(ctx, labID)
	return users, storeErr(err, "failed to list users")
}

func (s *userService) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "failed to get user")
	}
	if user == nil {
		return nil, apperrors.NotFound("user not found")
	}
	return user, nil
}

func (s *userService) UpdateUserProfile(ctx context.Context, userID int64, username, email string) error {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := utils.ValidateProfile(username, email); err != nil {
		return apperrors.ValidationFrom(err)
	}
	return s.locker.WithLock(ctx, lockKey("user", userID), func() error {
		user, err := s.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.userRepo.UpdateUserProfile(ctx, userID, username, email); err != nil {
			return storeErr(err, "username or email")
		}
		return s.invalidate(ctx, user, username, email)
	})
}

func (s *userService) GetUserPermissions(ctx context.Context, userID int64) ([]string, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	perms, err := s.userRepo.GetUserPermissions(ctx, user)
	return perms, storeErr(err, "failed to get permissions")
}

func (s *userService) DeleteUser(ctx context.Context, userID int64, actor Actor) error {
	if actor.UserID == strconv.FormatInt(userID, 10) {
		return apperrors.Conflict("cannot delete your own account")
	}
	return s.locker.WithLock(ctx, lockKey("user", userID), func() error {
		user, err := s.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		switch {
		case actor.HasSystemRole(models.RoleSuperAdmin):
		case actor.HasSystemRole(models.RoleLabAdmin) && user.Lab() == actor.LabID && !user.HasSystemRole(models.RoleSuperAdmin, models.RoleLabAdmin):
		default:
			return apperrors.Forbidden("not allowed to delete this user")
		}
		if err := s.invalidate(ctx, user); err != nil {
			return err
		}
		return storeErr(s.userRepo.DeleteUser(ctx, userID), "failed to delete user")
	})
}

// invalidate drops every cache entry the user can be looked up by.
func (s *userService) invalidate(ctx context.Context, user *models.User, extra ...string) error {
	ids := append([]string{user.Username, user.Email, strconv.FormatInt(user.ID, 10)}, extra...)
	if err := s.userRepo.DeleteUserCache(ctx, ids...); err != nil {
		return apperrors.Infrastructure(err, "failed to delete user cache")
	}
	return nil
}
