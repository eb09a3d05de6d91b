package handlers

import (
	"net/http"

	"github.com/otcheredev/clinic-core/internal/httpx"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/internal/services"
)

type AppointmentHandler struct {
	appointments *services.AppointmentService
}

func NewAppointmentHandler(appointments *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

// Create books an appointment
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, err := tenantScope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var req models.CreateAppointmentRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	appt, err := h.appointments.Create(r.Context(), tenantID, actor, &req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, appt)
}

// List returns a filtered page of appointments
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := tenantScope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	q, err := appointmentQuery(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	page, err := h.appointments.List(r.Context(), tenantID, q)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

// Calendar returns appointments in a date range shaped for calendar display
func (h *AppointmentHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := tenantScope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	values := r.URL.Query()
	q := models.CalendarQuery{Start: values.Get("start"), End: values.Get("end")}
	if q.NutritionistID, err = queryUUID(values, "nutritionistId"); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if q.PatientID, err = queryUUID(values, "patientId"); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	entries, err := h.appointments.Calendar(r.Context(), tenantID, q)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entries)
}

// Get returns one appointment
func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := tenantScope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	appt, err := h.appointments.Get(r.Context(), tenantID, id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

// Update applies a partial update
func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, err := tenantScope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var req models.UpdateAppointmentRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	appt, err := h.appointments.Update(r.Context(), tenantID, actor, id, &req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

// Reschedule moves an appointment to a new date and time
func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, err := tenantScope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var req models.RescheduleRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	appt, err := h.appointments.Reschedule(r.Context(), tenantID, actor, id, &req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

// Delete soft-deletes an appointment
func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, err := tenantScope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if err := h.appointments.Delete(r.Context(), tenantID, actor, id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func appointmentQuery(r *http.Request) (models.AppointmentQuery, error) {
	values := r.URL.Query()
	q := models.AppointmentQuery{
		AppointmentDate:  values.Get("date"),
		StartDate:        values.Get("startDate"),
		EndDate:          values.Get("endDate"),
		ConsultationType: models.ConsultationType(values.Get("consultationType")),
		Status:           models.AppointmentStatus(values.Get("status")),
		Search:           values.Get("search"),
	}

	var err error
	if q.PatientID, err = queryUUID(values, "patientId"); err != nil {
		return q, err
	}
	if q.NutritionistID, err = queryUUID(values, "nutritionistId"); err != nil {
		return q, err
	}
	if q.Page, err = queryInt(values, "page"); err != nil {
		return q, err
	}
	if q.Limit, err = queryInt(values, "limit"); err != nil {
		return q, err
	}
	return q, nil
}
