package models

import (
	"fmt"
	"strings"
	"time"

	"PathLab/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SystemRole is the closed set of built-in roles.
type SystemRole string

const (
	RoleSuperAdmin SystemRole = "SuperAdmin"
	RoleLabAdmin   SystemRole = "LabAdmin"
	RoleAdmin      SystemRole = "Admin"
)

var SystemRoles = []SystemRole{RoleSuperAdmin, RoleLabAdmin, RoleAdmin}

func (r SystemRole) Valid() bool {
	for _, s := range SystemRoles {
		if r == s {
			return true
		}
	}
	return false
}

// CustomRoleName is a lab-defined role name. It can never collide with a
// system role or a reserved word.
type CustomRoleName string

var reservedRoleNames = []string{"superadmin", "labadmin", "admin", "root", "system", "owner", "anonymous"}

func (n CustomRoleName) Normalized() string {
	return strings.ToLower(strings.Join(strings.Fields(string(n)), " "))
}

func (n CustomRoleName) Validate() error {
	norm := n.Normalized()
	if norm == "" {
		return apperrors.Validation("role name is required")
	}
	compact := strings.ReplaceAll(norm, " ", "")
	for _, reserved := range reservedRoleNames {
		if compact == reserved {
			return apperrors.Validation("role name %q is reserved", string(n))
		}
	}
	return nil
}

// Role represents a system role
type Role struct {
	ID          int64        `gorm:"primaryKey;column:id" json:"id"`
	Name        SystemRole   `gorm:"size:50;not null;unique;index;column:name" json:"name"`
	Description string       `gorm:"type:text;column:description" json:"description"`
	CreatedAt   time.Time    `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
}

func (Role) TableName() string {
	return "roles"
}

// SeedRoles inserts the system roles
func SeedRoles(db *gorm.DB) error {
	initialRoles := []Role{
		{Name: RoleSuperAdmin, Description: "Manages labs and every lab's users"},
		{Name: RoleLabAdmin, Description: "Full access within one lab"},
		{Name: RoleAdmin, Description: "Front desk administration within one lab"},
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, role := range initialRoles {
			if err := tx.FirstOrCreate(&role, Role{Name: role.Name}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CustomRole is a lab-scoped role with an explicit permission list.
type CustomRole struct {
	ID          int64                       `gorm:"primaryKey;column:id" json:"id"`
	LabID       string                      `gorm:"column:lab_id;size:64;not null;uniqueIndex:idx_custom_role_lab_name" json:"lab_id"`
	Name        CustomRoleName              `gorm:"column:name;size:50;not null;uniqueIndex:idx_custom_role_lab_name" json:"name"`
	Permissions datatypes.JSONSlice[string] `gorm:"column:permissions;type:jsonb" json:"permissions"`
	IsActive    bool                        `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt   time.Time                   `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (CustomRole) TableName() string {
	return "custom_roles"
}

// User represents a user in the system. Exactly one of RoleID and
// CustomRoleID is set.
type User struct {
	ID           int64       `gorm:"primaryKey;column:id" json:"id"`
	LabID        *string     `gorm:"size:64;index;column:lab_id" json:"lab_id,omitempty"`
	Username     string      `gorm:"size:100;not null;unique;index;column:username" json:"username"`
	Email        string      `gorm:"size:255;not null;unique;index;column:email" json:"email"`
	Password     string      `gorm:"size:255;not null;column:password" json:"-"`
	RoleID       *int64      `gorm:"index;column:role_id" json:"role_id,omitempty"`
	Role         *Role       `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"role,omitempty"`
	CustomRoleID *int64      `gorm:"index;column:custom_role_id" json:"custom_role_id,omitempty"`
	CustomRole   *CustomRole `gorm:"foreignKey:CustomRoleID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"custom_role,omitempty"`
	CreatedAt    time.Time   `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// RoleName is the system role name or the custom role name.
func (u *User) RoleName() string {
	if u.Role != nil {
		return string(u.Role.Name)
	}
	if u.CustomRole != nil {
		return string(u.CustomRole.Name)
	}
	return ""
}

func (u *User) HasSystemRole(roles ...SystemRole) bool {
	if u.Role == nil {
		return false
	}
	for _, r := range roles {
		if u.Role.Name == r {
			return true
		}
	}
	return false
}

func (u *User) Lab() string {
	if u.LabID == nil {
		return ""
	}
	return *u.LabID
}

// Permission represents a permission in the system
type Permission struct {
	ID          int64  `gorm:"primaryKey;column:id" json:"id"`
	Name        string `gorm:"size:100;not null;unique;index;column:name" json:"name"`
	Description string `gorm:"type:text;column:description" json:"description"`
}

func (Permission) TableName() string {
	return "permissions"
}

const (
	PermManageLabs      = "manage_labs"
	PermManageUsers     = "manage_users"
	PermManageRoles     = "manage_roles"
	PermManageCatalogue = "manage_catalogue"
	PermManagePatients  = "manage_patients"
	PermManageBookings  = "manage_bookings"
	PermRecordPayments  = "record_payments"
	PermAllowEdit       = "allow_invoice_edit"
	PermGenerateReports = "generate_reports"
	PermViewReports     = "view_reports"
)

// SeedPermissions inserts initial permissions into the database
func SeedPermissions(db *gorm.DB) error {
	initialPermissions := []Permission{
		{Name: PermManageLabs, Description: "Create, update, or deactivate labs"},
		{Name: PermManageUsers, Description: "Create, update, or delete users"},
		{Name: PermManageRoles, Description: "Create or deactivate custom roles"},
		{Name: PermManageCatalogue, Description: "Maintain the test catalogue"},
		{Name: PermManagePatients, Description: "Register and update patients"},
		{Name: PermManageBookings, Description: "Create and edit pathology bookings"},
		{Name: PermRecordPayments, Description: "Record payments against bookings"},
		{Name: PermAllowEdit, Description: "Allow edits on registered invoices"},
		{Name: PermGenerateReports, Description: "Generate pathology reports"},
		{Name: PermViewReports, Description: "View collection reports"},
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, permission := range initialPermissions {
			if err := tx.FirstOrCreate(&permission, Permission{Name: permission.Name}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// RolePermission represents the association between roles and permissions
type RolePermission struct {
	ID           int64 `gorm:"primaryKey;column:id" json:"id"`
	RoleID       int64 `gorm:"index;column:role_id" json:"role_id"`
	PermissionID int64 `gorm:"index;column:permission_id" json:"permission_id"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

var systemRolePermissions = map[SystemRole][]string{
	RoleSuperAdmin: {PermManageLabs, PermManageUsers, PermManageRoles, PermManageCatalogue, PermManagePatients,
		PermManageBookings, PermRecordPayments, PermAllowEdit, PermGenerateReports, PermViewReports},
	RoleLabAdmin: {PermManageUsers, PermManageRoles, PermManageCatalogue, PermManagePatients,
		PermManageBookings, PermRecordPayments, PermAllowEdit, PermGenerateReports, PermViewReports},
	RoleAdmin: {PermManagePatients, PermManageBookings, PermRecordPayments, PermAllowEdit, PermViewReports},
}

// SeedRolePermissions links the system roles to their permissions by name.
func SeedRolePermissions(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for roleName, permNames := range systemRolePermissions {
			var role Role
			if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
				return fmt.Errorf("role %s: %w", roleName, err)
			}
			for _, name := range permNames {
				var perm Permission
				if err := tx.Where("name = ?", name).First(&perm).Error; err != nil {
					return fmt.Errorf("permission %s: %w", name, err)
				}
				link := RolePermission{RoleID: role.ID, PermissionID: perm.ID}
				if err := tx.FirstOrCreate(&link, link).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
