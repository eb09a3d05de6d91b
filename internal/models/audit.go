package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit actions
const (
	AuditAppointmentCreate     = "appointment.create"
	AuditAppointmentUpdate     = "appointment.update"
	AuditAppointmentReschedule = "appointment.reschedule"
	AuditAppointmentDelete     = "appointment.delete"
	AuditRoleCreate            = "role.create"
	AuditRoleUpdate            = "role.update"
	AuditRoleDelete            = "role.delete"
	AuditRoleAssign            = "role.assign"
	AuditRoleUnassign          = "role.unassign"
	AuditAccessDenied          = "access.denied"
)

// Audit statuses
const (
	AuditSuccess = "success"
	AuditFailure = "failure"
)

// AuditLog records a mutation or a denied request
type AuditLog struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID     *uuid.UUID `gorm:"type:uuid;index" json:"tenant_id,omitempty"`
	UserID       *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action       string     `gorm:"type:varchar(100);not null;index" json:"action"`
	ResourceType string     `gorm:"type:varchar(50);index" json:"resource_type"`
	ResourceID   string     `gorm:"type:varchar(255);index" json:"resource_id"`
	IPAddress    string     `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent    string     `gorm:"type:text" json:"user_agent,omitempty"`
	Status       string     `gorm:"type:varchar(20);index" json:"status"` // success, failure
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	Duration     int64      `json:"duration_ms"` // milliseconds
	CreatedAt    time.Time  `gorm:"index" json:"timestamp"`
}

// TableName overrides the table name
func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeCreate hook
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// NewAuditLog builds an entry attributed to id. Nil ids are stored as NULL.
func NewAuditLog(id Identity, tenantID uuid.UUID, action, resourceType, resourceID string) *AuditLog {
	entry := &AuditLog{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       AuditSuccess,
	}
	if tenantID != uuid.Nil {
		t := tenantID
		entry.TenantID = &t
	}
	if id.UserID != uuid.Nil {
		u := id.UserID
		entry.UserID = &u
	}
	return entry
}
