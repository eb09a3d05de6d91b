package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserKind classifies an identity for tenant scoping.
type UserKind string

const (
	UserKindSystemAdmin UserKind = "system_admin"
	UserKindTenantOwner UserKind = "tenant_owner"
	UserKindTenantUser  UserKind = "tenant_user"
)

// Valid reports whether k is a known kind.
func (k UserKind) Valid() bool {
	switch k {
	case UserKindSystemAdmin, UserKindTenantOwner, UserKindTenantUser:
		return true
	}
	return false
}

// Tenant represents a clinic
type Tenant struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Tenant) TableName() string {
	return "tenants"
}

// BeforeCreate hook
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// User is the read model used to keep role assignments inside a tenant.
// Account management lives in the identity service.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string         `gorm:"type:varchar(50);not null;uniqueIndex" json:"username"`
	TenantID  *uuid.UUID     `gorm:"type:uuid;index" json:"tenant_id,omitempty"`
	Kind      UserKind       `gorm:"column:user_type;type:varchar(20);not null;default:tenant_user" json:"user_type"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Identity is the caller resolved from a verified credential. It is never mutated after resolution.
type Identity struct {
	UserID   uuid.UUID
	Username string
	TenantID uuid.UUID // uuid.Nil when the identity is not bound to a tenant
	Kind     UserKind
}

// IsSystemAdmin reports whether the identity bypasses tenant scoping.
func (i Identity) IsSystemAdmin() bool {
	return i.Kind == UserKindSystemAdmin
}

// HasTenant reports whether the identity carries a tenant.
func (i Identity) HasTenant() bool {
	return i.TenantID != uuid.Nil
}

// JWTClaims represents custom JWT claims
type JWTClaims struct {
	Username string   `json:"username,omitempty"`
	TenantID string   `json:"tenantId,omitempty"`
	UserType UserKind `json:"userType"`
	jwt.RegisteredClaims
}
