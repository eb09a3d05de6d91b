package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is a named bundle of permissions. A nil TenantID marks a global role.
type Role struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      *uuid.UUID     `gorm:"type:uuid;index" json:"tenant_id,omitempty"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	Description   string         `gorm:"type:text" json:"description,omitempty"`
	Permissions   PermissionSet  `gorm:"type:jsonb;not null" json:"permissions"`
	IsSystemAdmin bool           `gorm:"default:false" json:"is_system_admin"`
	IsTenantAdmin bool           `gorm:"default:false" json:"is_tenant_admin"`
	CreatedBy     *uuid.UUID     `gorm:"type:uuid" json:"created_by,omitempty"`
	UpdatedBy     *uuid.UUID     `gorm:"type:uuid" json:"updated_by,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Role) TableName() string {
	return "roles"
}

// BeforeCreate hook
func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Permissions == nil {
		r.Permissions = PermissionSet{}
	}
	return nil
}

// VisibleTo reports whether the role can be used inside tenantID.
func (r *Role) VisibleTo(tenantID uuid.UUID) bool {
	return r.TenantID == nil || *r.TenantID == tenantID
}

// UserRole assigns a role to a user. Rows are created and deleted, never updated.
type UserRole struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_user_roles_user_role" json:"user_id"`
	RoleID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_user_roles_user_role;index" json:"role_id"`
	AssignedAt time.Time  `gorm:"autoCreateTime" json:"assigned_at"`
	AssignedBy *uuid.UUID `gorm:"type:uuid" json:"assigned_by,omitempty"`

	Role Role `gorm:"foreignKey:RoleID" json:"role"`
}

// TableName overrides the table name
func (UserRole) TableName() string {
	return "user_roles"
}

// BeforeCreate hook
func (ur *UserRole) BeforeCreate(tx *gorm.DB) error {
	if ur.ID == uuid.Nil {
		ur.ID = uuid.New()
	}
	return nil
}

// RoleRequest represents a request to create a role
type RoleRequest struct {
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Permissions   PermissionSet `json:"permissions"`
	IsTenantAdmin bool          `json:"is_tenant_admin"`
}

// RoleUpdateRequest represents a partial role update
type RoleUpdateRequest struct {
	Name          *string        `json:"name,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Permissions   *PermissionSet `json:"permissions,omitempty"`
	IsTenantAdmin *bool          `json:"is_tenant_admin,omitempty"`
}

// AssignRoleRequest represents a request to assign a role to a user
type AssignRoleRequest struct {
	UserID uuid.UUID `json:"user_id"`
	RoleID uuid.UUID `json:"role_id"`
}

// DefaultRole describes a role seeded for every new tenant.
type DefaultRole struct {
	Name          string
	Description   string
	Permissions   []Permission
	IsTenantAdmin bool
}

// DefaultRoles are created per tenant by the roles service and the admin CLI.
var DefaultRoles = []DefaultRole{
	{
		Name:        "Nutritionist",
		Description: "Clinical staff attending patients",
		Permissions: []Permission{
			PermPatientCreate, PermPatientRead, PermPatientUpdate,
			PermMedicalHistoryCreate, PermMedicalHistoryRead, PermMedicalHistoryUpdate,
			PermAppointmentCreate, PermAppointmentRead, PermAppointmentUpdate,
			PermQueueView, PermReportsView,
		},
	},
	{
		Name:        "Receptionist",
		Description: "Front desk scheduling",
		Permissions: []Permission{
			PermPatientCreate, PermPatientRead, PermPatientUpdate,
			PermAppointmentCreate, PermAppointmentRead, PermAppointmentUpdate, PermAppointmentDelete,
			PermQueueManage, PermQueueView,
		},
	},
	{
		Name:        "Clinic Admin",
		Description: "Full access inside the clinic",
		Permissions: []Permission{
			PermUserCreate, PermUserRead, PermUserUpdate, PermUserDelete,
			PermPatientCreate, PermPatientRead, PermPatientUpdate, PermPatientDelete,
			PermMedicalHistoryCreate, PermMedicalHistoryRead, PermMedicalHistoryUpdate,
			PermAppointmentCreate, PermAppointmentRead, PermAppointmentUpdate, PermAppointmentDelete,
			PermQueueManage, PermQueueView, PermReportsView, PermReportsExport,
			PermTenantSettings, PermTenantUsersManage,
		},
		IsTenantAdmin: true,
	},
}
