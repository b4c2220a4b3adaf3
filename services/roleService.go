package services

import (
	"context"
	"sort"
	"strings"

	"PathLab/apperrors"
	"PathLab/models"
	"PathLab/repositories"

	"gorm.io/datatypes"
)

var knownPermissions = map[string]bool{
	models.PermManageUsers:     true,
	models.PermManageRoles:     true,
	models.PermManageCatalogue: true,
	models.PermManagePatients:  true,
	models.PermManageBookings:  true,
	models.PermRecordPayments:  true,
	models.PermGenerateReports: true,
	models.PermViewReports:     true,
}

// Lifting a registration's soft lock stays with the system admin roles, so
// custom roles cannot be granted it.
var systemOnlyPermissions = map[string]bool{
	models.PermAllowEdit: true,
}

// RoleService manages lab-defined roles.
type RoleService struct {
	repository repositories.CustomRoleRepository
}

func NewRoleService(repository repositories.CustomRoleRepository) *RoleService {
	return &RoleService{repository: repository}
}

func (s *RoleService) Create(ctx context.Context, labID string, name models.CustomRoleName, permissions []string) (*models.CustomRole, error) {
	if err := requireLab(labID); err != nil {
		return nil, err
	}
	if err := name.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(permissions))
	perms := make([]string, 0, len(permissions))
	for _, p := range permissions {
		p = strings.TrimSpace(p)
		if systemOnlyPermissions[p] {
			return nil, apperrors.Validation("permission %q is reserved for system roles", p)
		}
		if !knownPermissions[p] {
			return nil, apperrors.Validation("unknown permission %q", p)
		}
		if !seen[p] {
			seen[p] = true
			perms = append(perms, p)
		}
	}
	sort.Strings(perms)

	role := &models.CustomRole{
		LabID:       labID,
		Name:        models.CustomRoleName(strings.Join(strings.Fields(string(name)), " ")),
		Permissions: datatypes.JSONSlice[string](perms),
		IsActive:    true,
	}
	if err := s.repository.Create(ctx, role); err != nil {
		return nil, storeErr(err, "role %q", string(role.Name))
	}
	return role, nil
}

func (s *RoleService) Get(ctx context.Context, labID string, id int64) (*models.CustomRole, error) {
	role, err := s.repository.GetByID(ctx, labID, id)
	if err != nil {
		return nil, storeErr(err, "failed to get role")
	}
	if role == nil {
		return nil, apperrors.NotFound("role not found")
	}
	return role, nil
}

func (s *RoleService) List(ctx context.Context, labID string, includeInactive bool) ([]models.CustomRole, error) {
	roles, err := s.repository.List(ctx, labID, includeInactive)
	return roles, storeErr(err, "failed to list roles")
}

func (s *RoleService) Deactivate(ctx context.Context, labID string, id int64) error {
	if _, err := s.Get(ctx, labID, id); err != nil {
		return err
	}
	return storeErr(s.repository.Deactivate(ctx, labID, id), "failed to deactivate role")
}
