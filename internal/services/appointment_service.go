package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/apperr"
	"github.com/otcheredev/clinic-core/internal/metrics"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/internal/repository"
	"github.com/otcheredev/clinic-core/internal/scheduling"
	"github.com/otcheredev/clinic-core/pkg/logger"
)

const resourceAppointment = "appointment"

// AppointmentService handles appointment business logic. Every write that moves
// an appointment into a slot checks the slot first; the storage index catches races.
type AppointmentService struct {
	repo     *repository.AppointmentRepository
	detector *scheduling.Detector
	audit    auditor
	metrics  *metrics.Metrics
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	repo *repository.AppointmentRepository,
	detector *scheduling.Detector,
	auditRepo *repository.AuditRepository,
	m *metrics.Metrics,
) *AppointmentService {
	return &AppointmentService{
		repo:     repo,
		detector: detector,
		audit:    auditor{repo: auditRepo},
		metrics:  m,
	}
}

// Create books a new appointment
func (s *AppointmentService) Create(ctx context.Context, tenantID uuid.UUID, actor models.Identity, req *models.CreateAppointmentRequest) (appt *models.Appointment, err error) {
	started := time.Now()
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	appt = &models.Appointment{
		TenantID:         tenantID,
		PatientID:        req.PatientID,
		NutritionistID:   req.NutritionistID,
		AppointmentDate:  req.AppointmentDate,
		AppointmentTime:  req.AppointmentTime,
		ConsultationType: req.ConsultationType,
		Status:           req.Status,
		Notes:            req.Notes,
		DurationMinutes:  req.DurationMinutes,
		CreatedBy:        actorID(actor),
	}

	if err := s.checkSlot(ctx, "create", appt.Slot(), nil); err != nil {
		return nil, err
	}

	entry := models.NewAuditLog(actor, tenantID, models.AuditAppointmentCreate, resourceAppointment, "")
	defer func() {
		if appt != nil {
			entry.ResourceID = appt.ID.String()
		}
		s.audit.record(ctx, entry, started, err)
	}()

	if err := s.repo.Create(ctx, appt); err != nil {
		s.observeConflict(ctx, "create", appt.Slot(), err)
		return nil, err
	}
	return appt, nil
}

// Get retrieves one appointment inside the tenant
func (s *AppointmentService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Appointment, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// List returns a filtered page of appointments
func (s *AppointmentService) List(ctx context.Context, tenantID uuid.UUID, q models.AppointmentQuery) (*models.AppointmentPage, error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, tenantID, q)
}

// Calendar returns appointments shaped for calendar display
func (s *AppointmentService) Calendar(ctx context.Context, tenantID uuid.UUID, q models.CalendarQuery) ([]models.CalendarEntry, error) {
	for _, d := range []*string{&q.Start, &q.End} {
		if *d == "" {
			continue
		}
		n, err := models.NormalizeDate(*d)
		if err != nil {
			return nil, err
		}
		*d = n
	}

	appts, err := s.repo.Calendar(ctx, tenantID, q)
	if err != nil {
		return nil, err
	}

	out := make([]models.CalendarEntry, 0, len(appts))
	for _, a := range appts {
		entry := models.CalendarEntry{
			ID:               a.ID,
			AppointmentDate:  a.AppointmentDate,
			AppointmentTime:  a.AppointmentTime,
			DurationMinutes:  models.DefaultDurationMinutes,
			ConsultationType: a.ConsultationType,
			Status:           a.Status,
			PatientID:        a.PatientID,
			NutritionistID:   a.NutritionistID,
		}
		if a.DurationMinutes != nil && *a.DurationMinutes > 0 {
			entry.DurationMinutes = *a.DurationMinutes
		}
		if a.Notes != "" {
			notes := a.Notes
			entry.Notes = &notes
		}
		out = append(out, entry)
	}
	return out, nil
}

// Update applies a partial update. The slot is re-checked only when date, time or
// nutritionist actually change.
func (s *AppointmentService) Update(ctx context.Context, tenantID uuid.UUID, actor models.Identity, id uuid.UUID, req *models.UpdateAppointmentRequest) (_ *models.Appointment, err error) {
	started := time.Now()
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	target := current.Slot()
	if req.AppointmentDate != nil {
		target.Date = *req.AppointmentDate
	}
	if req.AppointmentTime != nil {
		target.Time = *req.AppointmentTime
	}
	if req.NutritionistID != nil {
		target.NutritionistID = *req.NutritionistID
	}
	if target != current.Slot() {
		if err := s.checkSlot(ctx, "update", target, &id); err != nil {
			return nil, err
		}
	}

	fields := updateFields(req)
	if len(fields) == 0 {
		return current, nil
	}
	if uid := actorID(actor); uid != nil {
		fields["updated_by"] = *uid
	}

	entry := models.NewAuditLog(actor, tenantID, models.AuditAppointmentUpdate, resourceAppointment, id.String())
	defer func() { s.audit.record(ctx, entry, started, err) }()

	if err := s.repo.Update(ctx, tenantID, id, fields); err != nil {
		s.observeConflict(ctx, "update", target, err)
		return nil, err
	}
	return s.repo.GetByID(ctx, tenantID, id)
}

// Reschedule moves an appointment to a new date and time with its current
// nutritionist and marks it rescheduled. Date, time and status change in one
// statement, so a conflict leaves the appointment where it was.
func (s *AppointmentService) Reschedule(ctx context.Context, tenantID uuid.UUID, actor models.Identity, id uuid.UUID, req *models.RescheduleRequest) (_ *models.Appointment, err error) {
	started := time.Now()
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	target := current.Slot()
	target.Date = req.NewAppointmentDate
	target.Time = req.NewAppointmentTime
	if err := s.checkSlot(ctx, "reschedule", target, &id); err != nil {
		return nil, err
	}

	fields := map[string]any{
		"appointment_date": target.Date,
		"appointment_time": target.Time,
		"status":           models.StatusRescheduled,
	}
	if uid := actorID(actor); uid != nil {
		fields["updated_by"] = *uid
	}

	entry := models.NewAuditLog(actor, tenantID, models.AuditAppointmentReschedule, resourceAppointment, id.String())
	defer func() { s.audit.record(ctx, entry, started, err) }()

	if err := s.repo.Update(ctx, tenantID, id, fields); err != nil {
		s.observeConflict(ctx, "reschedule", target, err)
		return nil, err
	}
	return s.repo.GetByID(ctx, tenantID, id)
}

// Delete soft deletes an appointment, freeing its slot
func (s *AppointmentService) Delete(ctx context.Context, tenantID uuid.UUID, actor models.Identity, id uuid.UUID) (err error) {
	started := time.Now()
	if _, err := s.repo.GetByID(ctx, tenantID, id); err != nil {
		return err
	}

	entry := models.NewAuditLog(actor, tenantID, models.AuditAppointmentDelete, resourceAppointment, id.String())
	defer func() { s.audit.record(ctx, entry, started, err) }()

	return s.repo.SoftDelete(ctx, tenantID, id)
}

func (s *AppointmentService) checkSlot(ctx context.Context, op string, slot models.SlotKey, exclude *uuid.UUID) error {
	err := s.detector.Ensure(ctx, slot, exclude)
	s.observeConflict(ctx, op, slot, err)
	return err
}

func (s *AppointmentService) observeConflict(ctx context.Context, op string, slot models.SlotKey, err error) {
	if !errors.Is(err, apperr.ErrSlotConflict) {
		return
	}
	s.metrics.SlotConflict(op)
	logger.Ctx(ctx).Info().
		Str("operation", op).
		Str("slot", slot.String()).
		Msg("appointment slot conflict")
}

func updateFields(req *models.UpdateAppointmentRequest) map[string]any {
	fields := map[string]any{}
	if req.AppointmentDate != nil {
		fields["appointment_date"] = *req.AppointmentDate
	}
	if req.AppointmentTime != nil {
		fields["appointment_time"] = *req.AppointmentTime
	}
	if req.ConsultationType != nil {
		fields["consultation_type"] = *req.ConsultationType
	}
	if req.Status != nil {
		fields["status"] = *req.Status
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}
	if req.DurationMinutes != nil {
		fields["duration_minutes"] = *req.DurationMinutes
	}
	if req.PatientID != nil {
		fields["patient_id"] = *req.PatientID
	}
	if req.NutritionistID != nil {
		fields["nutritionist_id"] = *req.NutritionistID
	}
	return fields
}

func actorID(actor models.Identity) *uuid.UUID {
	if actor.UserID == uuid.Nil {
		return nil
	}
	id := actor.UserID
	return &id
}
