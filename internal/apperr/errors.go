package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthenticated is returned when an operation needs an identity and none was resolved.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrTenantRequired is returned for tenant-scoped operations without an active tenant.
	ErrTenantRequired = errors.New("tenant context is required for this operation")

	// ErrTenantMismatch is returned when the identity belongs to a different tenant than the request.
	ErrTenantMismatch = errors.New("user does not belong to this tenant")

	// ErrInsufficientPermissions is returned when the effective permission set lacks a requirement.
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	// ErrSlotConflict is returned when an appointment slot is already booked.
	ErrSlotConflict = errors.New("appointment slot is already booked for this nutritionist")

	// ErrNotFound covers absent rows and rows outside the caller's tenant.
	ErrNotFound = errors.New("not found")

	// ErrConflict covers uniqueness violations other than appointment slots.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput is returned for malformed or out-of-range input.
	ErrInvalidInput = errors.New("invalid input")
)

// IsAuthorization reports whether err belongs to the authorization class.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrTenantRequired) ||
		errors.Is(err, ErrTenantMismatch) ||
		errors.Is(err, ErrInsufficientPermissions)
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsSlotConflict reports whether err is ErrSlotConflict.
func IsSlotConflict(err error) bool {
	return errors.Is(err, ErrSlotConflict)
}

// Status maps an error to the HTTP status and machine code rendered at the boundary.
func Status(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, ErrTenantRequired):
		return http.StatusForbidden, "tenant_required"
	case errors.Is(err, ErrTenantMismatch):
		return http.StatusForbidden, "tenant_mismatch"
	case errors.Is(err, ErrInsufficientPermissions):
		return http.StatusForbidden, "insufficient_permissions"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrSlotConflict):
		return http.StatusConflict, "slot_conflict"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
