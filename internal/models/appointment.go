package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/apperr"
	"gorm.io/gorm"
)

// ConsultationType represents the kind of visit
type ConsultationType string

const (
	ConsultationInitial         ConsultationType = "initial"
	ConsultationFollowup        ConsultationType = "followup"
	ConsultationNutritionalPlan ConsultationType = "nutritional_plan"
	ConsultationMedicalCheckup  ConsultationType = "medical_checkup"
	ConsultationEmergency       ConsultationType = "emergency"
)

// Valid reports whether c is a known consultation type.
func (c ConsultationType) Valid() bool {
	switch c {
	case ConsultationInitial, ConsultationFollowup, ConsultationNutritionalPlan,
		ConsultationMedicalCheckup, ConsultationEmergency:
		return true
	}
	return false
}

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusInProgress  AppointmentStatus = "in_progress"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusNoShow      AppointmentStatus = "no_show"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted,
		StatusCancelled, StatusNoShow, StatusRescheduled:
		return true
	}
	return false
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	// DefaultDurationMinutes is reported by the calendar when no duration was stored.
	DefaultDurationMinutes = 60
	MinDurationMinutes     = 15
	MaxDurationMinutes     = 480
)

// Appointment is a booked consultation. Live rows are unique on
// (tenant_id, nutritionist_id, appointment_date, appointment_time); the index is created
// by the database package because it is partial on deleted_at.
type Appointment struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PatientID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	NutritionistID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"nutritionist_id"`
	AppointmentDate  string            `gorm:"type:varchar(10);not null;index" json:"appointment_date"`
	AppointmentTime  string            `gorm:"type:varchar(5);not null" json:"appointment_time"`
	ConsultationType ConsultationType  `gorm:"type:varchar(30);not null;default:initial" json:"consultation_type"`
	Status           AppointmentStatus `gorm:"type:varchar(20);not null;default:scheduled;index" json:"status"`
	Notes            string            `gorm:"type:text" json:"notes,omitempty"`
	DurationMinutes  *int              `json:"duration_minutes,omitempty"`
	CreatedBy        *uuid.UUID        `gorm:"type:uuid" json:"created_by,omitempty"`
	UpdatedBy        *uuid.UUID        `gorm:"type:uuid" json:"updated_by,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Appointment) TableName() string {
	return "appointments"
}

// BeforeCreate hook
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.ConsultationType == "" {
		a.ConsultationType = ConsultationInitial
	}
	return nil
}

// SlotKey identifies the booking a nutritionist can hold at one instant.
type SlotKey struct {
	TenantID       uuid.UUID
	NutritionistID uuid.UUID
	Date           string
	Time           string
}

// Slot returns the appointment's current slot key.
func (a *Appointment) Slot() SlotKey {
	return SlotKey{
		TenantID:       a.TenantID,
		NutritionistID: a.NutritionistID,
		Date:           a.AppointmentDate,
		Time:           a.AppointmentTime,
	}
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%s %s", k.TenantID, k.NutritionistID, k.Date, k.Time)
}

// NormalizeDate validates a YYYY-MM-DD date and returns its canonical form.
func NormalizeDate(s string) (string, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: date must be YYYY-MM-DD", apperr.ErrInvalidInput)
	}
	return d.Format(dateLayout), nil
}

// NormalizeTime validates a 24-hour H:MM or HH:MM time and returns it zero padded,
// so "9:00" and "09:00" occupy the same slot.
func NormalizeTime(s string) (string, error) {
	t, err := time.Parse(timeLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: time must be HH:MM (24-hour)", apperr.ErrInvalidInput)
	}
	return t.Format(timeLayout), nil
}

// CreateAppointmentRequest represents a request to book an appointment
type CreateAppointmentRequest struct {
	AppointmentDate  string            `json:"appointment_date"`
	AppointmentTime  string            `json:"appointment_time"`
	ConsultationType ConsultationType  `json:"consultation_type"`
	Status           AppointmentStatus `json:"status,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	DurationMinutes  *int              `json:"duration_minutes,omitempty"`
	PatientID        uuid.UUID         `json:"patient_id"`
	NutritionistID   uuid.UUID         `json:"nutritionist_id"`
}

// Normalize validates the request in place.
func (r *CreateAppointmentRequest) Normalize() error {
	var err error
	if r.AppointmentDate, err = NormalizeDate(r.AppointmentDate); err != nil {
		return err
	}
	if r.AppointmentTime, err = NormalizeTime(r.AppointmentTime); err != nil {
		return err
	}
	if r.ConsultationType == "" {
		r.ConsultationType = ConsultationInitial
	}
	if !r.ConsultationType.Valid() {
		return fmt.Errorf("%w: unknown consultation type %q", apperr.ErrInvalidInput, r.ConsultationType)
	}
	if r.Status != "" && !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidInput, r.Status)
	}
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", apperr.ErrInvalidInput)
	}
	if r.NutritionistID == uuid.Nil {
		return fmt.Errorf("%w: nutritionist_id is required", apperr.ErrInvalidInput)
	}
	return validateDuration(r.DurationMinutes)
}

// UpdateAppointmentRequest is a partial update; nil fields keep their stored value.
type UpdateAppointmentRequest struct {
	AppointmentDate  *string            `json:"appointment_date,omitempty"`
	AppointmentTime  *string            `json:"appointment_time,omitempty"`
	ConsultationType *ConsultationType  `json:"consultation_type,omitempty"`
	Status           *AppointmentStatus `json:"status,omitempty"`
	Notes            *string            `json:"notes,omitempty"`
	DurationMinutes  *int               `json:"duration_minutes,omitempty"`
	PatientID        *uuid.UUID         `json:"patient_id,omitempty"`
	NutritionistID   *uuid.UUID         `json:"nutritionist_id,omitempty"`
}

// Normalize validates the request in place.
func (r *UpdateAppointmentRequest) Normalize() error {
	if r.AppointmentDate != nil {
		d, err := NormalizeDate(*r.AppointmentDate)
		if err != nil {
			return err
		}
		r.AppointmentDate = &d
	}
	if r.AppointmentTime != nil {
		t, err := NormalizeTime(*r.AppointmentTime)
		if err != nil {
			return err
		}
		r.AppointmentTime = &t
	}
	if r.ConsultationType != nil && !r.ConsultationType.Valid() {
		return fmt.Errorf("%w: unknown consultation type %q", apperr.ErrInvalidInput, *r.ConsultationType)
	}
	if r.Status != nil && !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidInput, *r.Status)
	}
	if r.PatientID != nil && *r.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id cannot be empty", apperr.ErrInvalidInput)
	}
	if r.NutritionistID != nil && *r.NutritionistID == uuid.Nil {
		return fmt.Errorf("%w: nutritionist_id cannot be empty", apperr.ErrInvalidInput)
	}
	return validateDuration(r.DurationMinutes)
}

// RescheduleRequest moves an appointment to a new date and time.
type RescheduleRequest struct {
	NewAppointmentDate string `json:"new_appointment_date"`
	NewAppointmentTime string `json:"new_appointment_time"`
}

// Normalize validates the request in place.
func (r *RescheduleRequest) Normalize() error {
	var err error
	if r.NewAppointmentDate, err = NormalizeDate(r.NewAppointmentDate); err != nil {
		return err
	}
	r.NewAppointmentTime, err = NormalizeTime(r.NewAppointmentTime)
	return err
}

func validateDuration(d *int) error {
	if d == nil {
		return nil
	}
	if *d < MinDurationMinutes || *d > MaxDurationMinutes {
		return fmt.Errorf("%w: duration_minutes must be between %d and %d", apperr.ErrInvalidInput, MinDurationMinutes, MaxDurationMinutes)
	}
	return nil
}

// AppointmentQuery filters the appointment listing.
type AppointmentQuery struct {
	AppointmentDate  string
	StartDate        string
	EndDate          string
	ConsultationType ConsultationType
	Status           AppointmentStatus
	PatientID        uuid.UUID
	NutritionistID   uuid.UUID
	Search           string
	Page             int
	Limit            int
}

// Normalize applies paging defaults and validates filters.
func (q *AppointmentQuery) Normalize() error {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		return fmt.Errorf("%w: limit must be at most 100", apperr.ErrInvalidInput)
	}
	for _, d := range []*string{&q.AppointmentDate, &q.StartDate, &q.EndDate} {
		if *d == "" {
			continue
		}
		n, err := NormalizeDate(*d)
		if err != nil {
			return err
		}
		*d = n
	}
	if q.ConsultationType != "" && !q.ConsultationType.Valid() {
		return fmt.Errorf("%w: unknown consultation type %q", apperr.ErrInvalidInput, q.ConsultationType)
	}
	if q.Status != "" && !q.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidInput, q.Status)
	}
	return nil
}

// AppointmentPage is one page of a listing.
type AppointmentPage struct {
	Data       []Appointment `json:"data"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"total_pages"`
	HasNext    bool          `json:"has_next"`
	HasPrev    bool          `json:"has_prev"`
}

// CalendarQuery filters the calendar view.
type CalendarQuery struct {
	Start          string
	End            string
	NutritionistID uuid.UUID
	PatientID      uuid.UUID
}

// CalendarEntry is an appointment shaped for calendar display.
type CalendarEntry struct {
	ID               uuid.UUID         `json:"id"`
	AppointmentDate  string            `json:"appointment_date"`
	AppointmentTime  string            `json:"appointment_time"`
	DurationMinutes  int               `json:"duration_minutes"`
	ConsultationType ConsultationType  `json:"consultation_type"`
	Status           AppointmentStatus `json:"status"`
	Notes            *string           `json:"notes"`
	PatientID        uuid.UUID         `json:"patient_id"`
	NutritionistID   uuid.UUID         `json:"nutritionist_id"`
}
