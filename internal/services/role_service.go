package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/apperr"
	"github.com/otcheredev/clinic-core/internal/authz"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/internal/repository"
)

const (
	resourceRole     = "role"
	resourceUserRole = "user_role"
	maxRoleNameLen   = 255
)

// RoleService administers roles and assignments. A tenant sees its own roles plus
// global ones; only system admins touch global roles or grant system:admin.
// Every mutation invalidates cached permissions before returning.
type RoleService struct {
	roles    *repository.RoleRepository
	users    *repository.UserRepository
	resolver *authz.Resolver
	audit    auditor
}

// NewRoleService creates a new role service
func NewRoleService(
	roles *repository.RoleRepository,
	users *repository.UserRepository,
	resolver *authz.Resolver,
	auditRepo *repository.AuditRepository,
) *RoleService {
	return &RoleService{
		roles:    roles,
		users:    users,
		resolver: resolver,
		audit:    auditor{repo: auditRepo},
	}
}

// Create creates a role in the tenant, or a global role for a system admin without a tenant
func (s *RoleService) Create(ctx context.Context, tenantID uuid.UUID, actor models.Identity, req *models.RoleRequest) (role *models.Role, err error) {
	started := time.Now()
	name, err := roleName(req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.checkGrant(actor, req.Permissions); err != nil {
		return nil, err
	}

	scope, err := roleScope(tenantID, actor)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, scope, name); err != nil {
		return nil, err
	}

	role = &models.Role{
		TenantID:      scope,
		Name:          name,
		Description:   req.Description,
		Permissions:   req.Permissions,
		IsTenantAdmin: req.IsTenantAdmin,
		CreatedBy:     actorID(actor),
	}
	if role.Permissions == nil {
		role.Permissions = models.PermissionSet{}
	}

	entry := models.NewAuditLog(actor, tenantID, models.AuditRoleCreate, resourceRole, "")
	defer func() {
		if role != nil {
			entry.ResourceID = role.ID.String()
		}
		s.audit.record(ctx, entry, started, err)
	}()

	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// List returns the roles visible to the tenant, excluding system-admin roles
func (s *RoleService) List(ctx context.Context, tenantID uuid.UUID) ([]models.Role, error) {
	no := false
	return s.roles.List(ctx, repository.RoleFilter{TenantID: tenantID, SystemAdmin: &no})
}

// ListTenantAdminRoles returns the visible tenant-admin roles
func (s *RoleService) ListTenantAdminRoles(ctx context.Context, tenantID uuid.UUID) ([]models.Role, error) {
	yes := true
	return s.roles.List(ctx, repository.RoleFilter{TenantID: tenantID, TenantAdmin: &yes})
}

// ListSystemRoles returns every system-admin role
func (s *RoleService) ListSystemRoles(ctx context.Context) ([]models.Role, error) {
	yes := true
	return s.roles.List(ctx, repository.RoleFilter{SystemAdmin: &yes})
}

// ListByPermission returns visible roles granting perm, directly or as system admin
func (s *RoleService) ListByPermission(ctx context.Context, tenantID uuid.UUID, perm models.Permission) ([]models.Role, error) {
	roles, err := s.roles.List(ctx, repository.RoleFilter{TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	out := make([]models.Role, 0, len(roles))
	for _, r := range roles {
		if r.IsSystemAdmin || r.Permissions.Has(perm) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Get returns a role visible to the tenant
func (s *RoleService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenantID != uuid.Nil && !role.VisibleTo(tenantID) {
		return nil, fmt.Errorf("role %s: %w", id, apperr.ErrNotFound)
	}
	return role, nil
}

// Update changes a role the caller owns
func (s *RoleService) Update(ctx context.Context, tenantID uuid.UUID, actor models.Identity, id uuid.UUID, req *models.RoleUpdateRequest) (_ *models.Role, err error) {
	started := time.Now()
	role, err := s.owned(ctx, tenantID, actor, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		name, err := roleName(*req.Name)
		if err != nil {
			return nil, err
		}
		if name != role.Name {
			if err := s.ensureNameFree(ctx, role.TenantID, name); err != nil {
				return nil, err
			}
			fields["name"] = name
		}
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Permissions != nil {
		if err := s.checkGrant(actor, *req.Permissions); err != nil {
			return nil, err
		}
		fields["permissions"] = *req.Permissions
	}
	if req.IsTenantAdmin != nil {
		fields["is_tenant_admin"] = *req.IsTenantAdmin
	}
	if len(fields) == 0 {
		return role, nil
	}
	if uid := actorID(actor); uid != nil {
		fields["updated_by"] = *uid
	}

	entry := models.NewAuditLog(actor, tenantID, models.AuditRoleUpdate, resourceRole, id.String())
	defer func() { s.audit.record(ctx, entry, started, err) }()

	if err := s.roles.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	if err := s.resolver.InvalidateAll(ctx); err != nil {
		return nil, err
	}
	return s.roles.GetByID(ctx, id)
}

// Delete soft deletes a role the caller owns. Assigned roles cannot be deleted.
func (s *RoleService) Delete(ctx context.Context, tenantID uuid.UUID, actor models.Identity, id uuid.UUID) (err error) {
	started := time.Now()
	if _, err := s.owned(ctx, tenantID, actor, id); err != nil {
		return err
	}

	n, err := s.roles.CountAssignments(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: cannot delete role that is assigned to users", apperr.ErrConflict)
	}

	entry := models.NewAuditLog(actor, tenantID, models.AuditRoleDelete, resourceRole, id.String())
	defer func() { s.audit.record(ctx, entry, started, err) }()

	if err := s.roles.SoftDelete(ctx, id); err != nil {
		return err
	}
	return s.resolver.InvalidateAll(ctx)
}

// Assign gives a user a role. Both must be reachable from the tenant.
func (s *RoleService) Assign(ctx context.Context, tenantID uuid.UUID, actor models.Identity, req *models.AssignRoleRequest) (ur *models.UserRole, err error) {
	started := time.Now()
	role, err := s.Get(ctx, tenantID, req.RoleID)
	if err != nil {
		return nil, err
	}
	user, err := s.userInScope(ctx, tenantID, req.UserID)
	if err != nil {
		return nil, err
	}
	if role.TenantID != nil && (user.TenantID == nil || *user.TenantID != *role.TenantID) {
		return nil, fmt.Errorf("role %s: %w", role.ID, apperr.ErrNotFound)
	}
	if role.IsSystemAdmin && !actor.IsSystemAdmin() {
		return nil, fmt.Errorf("%w: only system admins can assign system roles", apperr.ErrInsufficientPermissions)
	}

	ur = &models.UserRole{UserID: user.ID, RoleID: role.ID, AssignedBy: actorID(actor)}

	entry := models.NewAuditLog(actor, tenantID, models.AuditRoleAssign, resourceUserRole, user.ID.String()+":"+role.ID.String())
	defer func() { s.audit.record(ctx, entry, started, err) }()

	if err := s.roles.Assign(ctx, ur); err != nil {
		return nil, err
	}
	if err := s.resolver.Invalidate(ctx, user.ID); err != nil {
		return nil, err
	}
	ur.Role = *role
	return ur, nil
}

// Unassign removes a role from a user in the tenant
func (s *RoleService) Unassign(ctx context.Context, tenantID uuid.UUID, actor models.Identity, userID, roleID uuid.UUID) (err error) {
	started := time.Now()
	if _, err := s.userInScope(ctx, tenantID, userID); err != nil {
		return err
	}
	if _, err := s.Get(ctx, tenantID, roleID); err != nil {
		return err
	}

	entry := models.NewAuditLog(actor, tenantID, models.AuditRoleUnassign, resourceUserRole, userID.String()+":"+roleID.String())
	defer func() { s.audit.record(ctx, entry, started, err) }()

	if err := s.roles.Unassign(ctx, userID, roleID); err != nil {
		return err
	}
	return s.resolver.Invalidate(ctx, userID)
}

// UserRoles lists a tenant user's assignments
func (s *RoleService) UserRoles(ctx context.Context, tenantID, userID uuid.UUID) ([]models.UserRole, error) {
	if _, err := s.userInScope(ctx, tenantID, userID); err != nil {
		return nil, err
	}
	rows, err := s.roles.UserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tenantID == uuid.Nil {
		return rows, nil
	}
	out := make([]models.UserRole, 0, len(rows))
	for _, ur := range rows {
		if ur.Role.VisibleTo(tenantID) {
			out = append(out, ur)
		}
	}
	return out, nil
}

// CreateDefaultRoles seeds the standard clinic roles for tenantID. Existing roles
// with the same names are kept as they are.
func (s *RoleService) CreateDefaultRoles(ctx context.Context, tenantID uuid.UUID, actor models.Identity) ([]models.Role, error) {
	if tenantID == uuid.Nil {
		return nil, apperr.ErrTenantRequired
	}
	scope := tenantID

	out := make([]models.Role, 0, len(models.DefaultRoles))
	for _, def := range models.DefaultRoles {
		existing, err := s.roles.FindByName(ctx, &scope, def.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			out = append(out, *existing)
			continue
		}

		role, err := s.Create(ctx, scope, actor, &models.RoleRequest{
			Name:          def.Name,
			Description:   def.Description,
			Permissions:   models.NewPermissionSet(def.Permissions...),
			IsTenantAdmin: def.IsTenantAdmin,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create default role %q: %w", def.Name, err)
		}
		out = append(out, *role)
	}
	return out, nil
}

// owned returns a role the actor may modify: system admins may modify any role,
// everyone else only roles of the active tenant.
func (s *RoleService) owned(ctx context.Context, tenantID uuid.UUID, actor models.Identity, id uuid.UUID) (*models.Role, error) {
	role, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if actor.IsSystemAdmin() {
		return role, nil
	}
	if role.TenantID == nil || role.IsSystemAdmin {
		return nil, fmt.Errorf("%w: global roles are managed by system admins", apperr.ErrInsufficientPermissions)
	}
	return role, nil
}

func (s *RoleService) userInScope(ctx context.Context, tenantID, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tenantID != uuid.Nil && (user.TenantID == nil || *user.TenantID != tenantID) {
		return nil, fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}
	return user, nil
}

func (s *RoleService) ensureNameFree(ctx context.Context, scope *uuid.UUID, name string) error {
	existing, err := s.roles.FindByName(ctx, scope, name)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: a role with this name already exists", apperr.ErrConflict)
	}
	return nil
}

func (s *RoleService) checkGrant(actor models.Identity, perms models.PermissionSet) error {
	if perms.Has(models.PermSystemAdmin) && !actor.IsSystemAdmin() {
		return fmt.Errorf("%w: only system admins can grant %s", apperr.ErrInsufficientPermissions, models.PermSystemAdmin)
	}
	return nil
}

func roleScope(tenantID uuid.UUID, actor models.Identity) (*uuid.UUID, error) {
	if tenantID != uuid.Nil {
		return &tenantID, nil
	}
	if actor.IsSystemAdmin() {
		return nil, nil
	}
	return nil, apperr.ErrTenantRequired
}

func roleName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", apperr.ErrInvalidInput)
	}
	if len(name) > maxRoleNameLen {
		return "", fmt.Errorf("%w: name must be at most %d characters", apperr.ErrInvalidInput, maxRoleNameLen)
	}
	return name, nil
}
