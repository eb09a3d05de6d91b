package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/apperr"
	"github.com/otcheredev/clinic-core/internal/models"
	"gorm.io/gorm"
)

// AppointmentRepository handles appointment database operations. Every query is
// scoped to a tenant.
type AppointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// FindBySlot returns the live appointment holding slot, ignoring excludeID.
func (r *AppointmentRepository) FindBySlot(ctx context.Context, slot models.SlotKey, excludeID uuid.UUID) (*models.Appointment, error) {
	q := r.db.WithContext(ctx).Where(
		"tenant_id = ? AND nutritionist_id = ? AND appointment_date = ? AND appointment_time = ?",
		slot.TenantID, slot.NutritionistID, slot.Date, slot.Time,
	)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}

	var appt models.Appointment
	if err := q.Take(&appt).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find appointment by slot: %w", err)
	}
	return &appt, nil
}

// Create inserts a new appointment
func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	if err := r.db.WithContext(ctx).Create(appt).Error; err != nil {
		return fmt.Errorf("failed to create appointment: %w", mapSlotError(err))
	}
	return nil
}

// GetByID retrieves a live appointment inside tenantID
func (r *AppointmentRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Appointment, error) {
	var appt models.Appointment
	if err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Take(&appt).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("appointment %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

// Update writes fields (column name to value) in a single statement
func (r *AppointmentRepository) Update(ctx context.Context, tenantID, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update appointment: %w", mapSlotError(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("appointment %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// SoftDelete marks an appointment deleted, freeing its slot
func (r *AppointmentRepository) SoftDelete(ctx context.Context, tenantID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&models.Appointment{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete appointment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("appointment %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// List returns one page of live appointments matching q. q must be normalized.
func (r *AppointmentRepository) List(ctx context.Context, tenantID uuid.UUID, q models.AppointmentQuery) (*models.AppointmentPage, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		db = db.Where("tenant_id = ?", tenantID)
		if q.AppointmentDate != "" {
			db = db.Where("appointment_date = ?", q.AppointmentDate)
		}
		if q.StartDate != "" {
			db = db.Where("appointment_date >= ?", q.StartDate)
		}
		if q.EndDate != "" {
			db = db.Where("appointment_date <= ?", q.EndDate)
		}
		if q.ConsultationType != "" {
			db = db.Where("consultation_type = ?", q.ConsultationType)
		}
		if q.Status != "" {
			db = db.Where("status = ?", q.Status)
		}
		if q.PatientID != uuid.Nil {
			db = db.Where("patient_id = ?", q.PatientID)
		}
		if q.NutritionistID != uuid.Nil {
			db = db.Where("nutritionist_id = ?", q.NutritionistID)
		}
		if q.Search != "" {
			db = db.Where("LOWER(notes) LIKE ?", "%"+strings.ToLower(q.Search)+"%")
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Appointment{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}

	data := []models.Appointment{}
	if err := r.db.WithContext(ctx).
		Scopes(filter).
		Order("appointment_date DESC").
		Order("appointment_time ASC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&data).Error; err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(q.Limit)))
	return &models.AppointmentPage{
		Data:       data,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: totalPages,
		HasNext:    q.Page < totalPages,
		HasPrev:    q.Page > 1,
	}, nil
}

// Calendar returns live appointments in chronological order
func (r *AppointmentRepository) Calendar(ctx context.Context, tenantID uuid.UUID, q models.CalendarQuery) ([]models.Appointment, error) {
	db := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if q.Start != "" {
		db = db.Where("appointment_date >= ?", q.Start)
	}
	if q.End != "" {
		db = db.Where("appointment_date <= ?", q.End)
	}
	if q.NutritionistID != uuid.Nil {
		db = db.Where("nutritionist_id = ?", q.NutritionistID)
	}
	if q.PatientID != uuid.Nil {
		db = db.Where("patient_id = ?", q.PatientID)
	}

	var appts []models.Appointment
	if err := db.Order("appointment_date ASC").Order("appointment_time ASC").Find(&appts).Error; err != nil {
		return nil, fmt.Errorf("failed to load calendar: %w", err)
	}
	return appts, nil
}

// mapSlotError turns a slot index violation into ErrSlotConflict
func mapSlotError(err error) error {
	if isDuplicateKey(err) {
		return errors.Join(apperr.ErrSlotConflict, err)
	}
	return err
}
