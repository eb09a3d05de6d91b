package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/apperr"
	"github.com/otcheredev/clinic-core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleFilter narrows role listings
type RoleFilter struct {
	// TenantID limits results to roles of this tenant plus global roles. uuid.Nil lists every role.
	TenantID    uuid.UUID
	SystemAdmin *bool
	TenantAdmin *bool
}

// RoleRepository handles roles and user-role assignments
type RoleRepository struct {
	db *gorm.DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create inserts a role
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	if err := r.db.WithContext(ctx).Create(role).Error; err != nil {
		return fmt.Errorf("failed to create role: %w", mapConflict(err, "role name already exists"))
	}
	return nil
}

// GetByID retrieves a live role
func (r *RoleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&role).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("role %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

// FindByName looks up a live role by name within one tenant scope (nil = global).
// It returns nil, nil when no role matches.
func (r *RoleRepository) FindByName(ctx context.Context, tenantID *uuid.UUID, name string) (*models.Role, error) {
	q := r.db.WithContext(ctx).Where("name = ?", name)
	if tenantID == nil {
		q = q.Where("tenant_id IS NULL")
	} else {
		q = q.Where("tenant_id = ?", *tenantID)
	}

	var role models.Role
	if err := q.Take(&role).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find role: %w", err)
	}
	return &role, nil
}

// List returns live roles matching f, newest first
func (r *RoleRepository) List(ctx context.Context, f RoleFilter) ([]models.Role, error) {
	q := r.db.WithContext(ctx)
	if f.TenantID != uuid.Nil {
		q = q.Where("(tenant_id = ? OR tenant_id IS NULL)", f.TenantID)
	}
	if f.SystemAdmin != nil {
		q = q.Where("is_system_admin = ?", *f.SystemAdmin)
	}
	if f.TenantAdmin != nil {
		q = q.Where("is_tenant_admin = ?", *f.TenantAdmin)
	}

	roles := []models.Role{}
	if err := q.Order("created_at DESC").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

// Update writes fields (column name to value) on a live role
func (r *RoleRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Role{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update role: %w", mapConflict(res.Error, "role name already exists"))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("role %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// SoftDelete marks a role deleted. Its permissions stop counting immediately.
func (r *RoleRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Role{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("role %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// CountAssignments returns how many users hold roleID
func (r *RoleRepository) CountAssignments(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.UserRole{}).Where("role_id = ?", roleID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return n, nil
}

// Assign creates a user-role assignment
func (r *RoleRepository) Assign(ctx context.Context, ur *models.UserRole) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(ur).Error; err != nil {
		return fmt.Errorf("failed to assign role: %w", mapConflict(err, "user already has this role assigned"))
	}
	return nil
}

// Unassign removes a user-role assignment
func (r *RoleRepository) Unassign(ctx context.Context, userID, roleID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&models.UserRole{})
	if res.Error != nil {
		return fmt.Errorf("failed to unassign role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("role assignment: %w", apperr.ErrNotFound)
	}
	return nil
}

// UserRoles returns a user's assignments with their live roles, newest first.
// Assignments of soft-deleted roles are omitted.
func (r *RoleRepository) UserRoles(ctx context.Context, userID uuid.UUID) ([]models.UserRole, error) {
	var rows []models.UserRole
	if err := r.db.WithContext(ctx).
		Preload("Role").
		Where("user_id = ?", userID).
		Order("assigned_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	out := make([]models.UserRole, 0, len(rows))
	for _, ur := range rows {
		if ur.Role.ID != uuid.Nil {
			out = append(out, ur)
		}
	}
	return out, nil
}

// RolesForUser returns the live roles assigned to userID
func (r *RoleRepository) RolesForUser(ctx context.Context, userID uuid.UUID) ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to get roles for user: %w", err)
	}
	return roles, nil
}

func mapConflict(err error, msg string) error {
	if isDuplicateKey(err) {
		return errors.Join(fmt.Errorf("%w: %s", apperr.ErrConflict, msg), err)
	}
	return err
}
