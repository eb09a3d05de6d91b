package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/otcheredev/clinic-core/internal/apperr"
)

// Permission is a capability token checked by set membership.
type Permission string

// PermissionCatalogVersion is bumped whenever the catalog below changes.
const PermissionCatalogVersion = 1

const (
	PermUserCreate Permission = "user:create"
	PermUserRead   Permission = "user:read"
	PermUserUpdate Permission = "user:update"
	PermUserDelete Permission = "user:delete"

	PermPatientCreate Permission = "patient:create"
	PermPatientRead   Permission = "patient:read"
	PermPatientUpdate Permission = "patient:update"
	PermPatientDelete Permission = "patient:delete"

	PermMedicalHistoryCreate Permission = "medical_history:create"
	PermMedicalHistoryRead   Permission = "medical_history:read"
	PermMedicalHistoryUpdate Permission = "medical_history:update"

	PermAppointmentCreate Permission = "appointment:create"
	PermAppointmentRead   Permission = "appointment:read"
	PermAppointmentUpdate Permission = "appointment:update"
	PermAppointmentDelete Permission = "appointment:delete"

	PermQueueManage Permission = "queue:manage"
	PermQueueView   Permission = "queue:view"

	PermReportsView   Permission = "reports:view"
	PermReportsExport Permission = "reports:export"

	PermTenantSettings    Permission = "tenant:settings"
	PermTenantUsersManage Permission = "tenant:users_manage"

	// PermSystemAdmin is the full-access sentinel: it satisfies every requirement.
	PermSystemAdmin Permission = "system:admin"
)

var catalog = map[Permission]struct{}{
	PermUserCreate: {}, PermUserRead: {}, PermUserUpdate: {}, PermUserDelete: {},
	PermPatientCreate: {}, PermPatientRead: {}, PermPatientUpdate: {}, PermPatientDelete: {},
	PermMedicalHistoryCreate: {}, PermMedicalHistoryRead: {}, PermMedicalHistoryUpdate: {},
	PermAppointmentCreate: {}, PermAppointmentRead: {}, PermAppointmentUpdate: {}, PermAppointmentDelete: {},
	PermQueueManage: {}, PermQueueView: {},
	PermReportsView: {}, PermReportsExport: {},
	PermTenantSettings: {}, PermTenantUsersManage: {},
	PermSystemAdmin: {},
}

// Valid reports whether p belongs to the catalog.
func (p Permission) Valid() bool {
	_, ok := catalog[p]
	return ok
}

// ParsePermission validates s against the catalog.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown permission %q", apperr.ErrInvalidInput, s)
	}
	return p, nil
}

// AllPermissions returns the catalog in sorted order.
func AllPermissions() []Permission {
	out := make([]Permission, 0, len(catalog))
	for p := range catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PermissionSet is the runtime form of a role's permissions. It is stored as a JSON array.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from perms, collapsing duplicates.
func NewPermissionSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has reports plain membership, without the sentinel rule.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Satisfies reports whether p is granted, treating the system admin sentinel as a wildcard.
func (s PermissionSet) Satisfies(p Permission) bool {
	return s.Has(PermSystemAdmin) || s.Has(p)
}

// Missing returns the requirements not satisfied by s, in input order.
func (s PermissionSet) Missing(required []Permission) []Permission {
	var out []Permission
	for _, p := range required {
		if !s.Satisfies(p) {
			out = append(out, p)
		}
	}
	return out
}

// Add inserts p.
func (s PermissionSet) Add(p Permission) {
	s[p] = struct{}{}
}

// Union adds every member of other to s.
func (s PermissionSet) Union(other PermissionSet) {
	for p := range other {
		s[p] = struct{}{}
	}
}

// Slice returns the members sorted.
func (s PermissionSet) Slice() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes an array and rejects tokens outside the catalog.
func (s *PermissionSet) UnmarshalJSON(b []byte) error {
	var raw []string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: permissions must be an array of strings", apperr.ErrInvalidInput)
	}
	set := make(PermissionSet, len(raw))
	for _, r := range raw {
		p, err := ParsePermission(r)
		if err != nil {
			return err
		}
		set[p] = struct{}{}
	}
	*s = set
	return nil
}

// Value implements driver.Valuer.
func (s PermissionSet) Value() (driver.Value, error) {
	b, err := json.Marshal(s.Slice())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. Tokens no longer in the catalog are dropped so a
// retired permission can never be granted by stale rows.
func (s *PermissionSet) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*s = PermissionSet{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported permissions column type %T", src)
	}

	var raw []string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("failed to decode permissions: %w", err)
	}
	set := make(PermissionSet, len(raw))
	for _, r := range raw {
		if p := Permission(r); p.Valid() {
			set[p] = struct{}{}
		}
	}
	*s = set
	return nil
}
