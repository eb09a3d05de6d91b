// Package scheduling guards the appointment slot key against double booking.
package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/apperr"
	"github.com/otcheredev/clinic-core/internal/models"
)

// SlotFinder looks up the live appointment holding a slot, skipping excludeID.
// It returns nil, nil when the slot is free.
type SlotFinder interface {
	FindBySlot(ctx context.Context, slot models.SlotKey, excludeID uuid.UUID) (*models.Appointment, error)
}

// Detector reports appointments that already hold a proposed slot.
//
// Two appointments conflict only when their slot keys are equal; overlapping
// durations with different start times are not detected.
type Detector struct {
	finder SlotFinder
}

// NewDetector creates a detector.
func NewDetector(finder SlotFinder) *Detector {
	return &Detector{finder: finder}
}

// FindConflict returns the live appointment occupying the slot, or nil.
// excludeID, when set, is never reported; updates pass their own id.
func (d *Detector) FindConflict(ctx context.Context, tenantID, nutritionistID uuid.UUID, date, time string, excludeID *uuid.UUID) (*models.Appointment, error) {
	exclude := uuid.Nil
	if excludeID != nil {
		exclude = *excludeID
	}

	slot := models.SlotKey{TenantID: tenantID, NutritionistID: nutritionistID, Date: date, Time: time}
	found, err := d.finder.FindBySlot(ctx, slot, exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to check slot %s: %w", slot, err)
	}
	return found, nil
}

// Ensure returns ErrSlotConflict when the slot is taken.
func (d *Detector) Ensure(ctx context.Context, slot models.SlotKey, excludeID *uuid.UUID) error {
	found, err := d.FindConflict(ctx, slot.TenantID, slot.NutritionistID, slot.Date, slot.Time, excludeID)
	if err != nil {
		return err
	}
	if found != nil {
		return fmt.Errorf("%w: held by appointment %s", apperr.ErrSlotConflict, found.ID)
	}
	return nil
}
