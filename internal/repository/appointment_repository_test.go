package repository_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/apperr"
	"github.com/otcheredev/clinic-core/internal/database/databasetest"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAppointment(t *testing.T, repo *repository.AppointmentRepository, tenant, nutritionist uuid.UUID, date, at string) *models.Appointment {
	t.Helper()
	appt := &models.Appointment{
		TenantID:        tenant,
		PatientID:       uuid.New(),
		NutritionistID:  nutritionist,
		AppointmentDate: date,
		AppointmentTime: at,
	}
	require.NoError(t, repo.Create(context.Background(), appt))
	return appt
}

func TestAppointmentFindBySlot(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewAppointmentRepository(databasetest.New(t))
	tenant, nutritionist := uuid.New(), uuid.New()
	appt := seedAppointment(t, repo, tenant, nutritionist, "2024-01-15", "09:00")

	slot := appt.Slot()
	found, err := repo.FindBySlot(ctx, slot, uuid.Nil)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, appt.ID, found.ID)

	found, err = repo.FindBySlot(ctx, slot, appt.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	other := slot
	other.Time = "09:30"
	found, err = repo.FindBySlot(ctx, other, uuid.Nil)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestAppointmentCreateDuplicateIsSlotConflict(t *testing.T) {
	repo := repository.NewAppointmentRepository(databasetest.New(t))
	tenant, nutritionist := uuid.New(), uuid.New()
	seedAppointment(t, repo, tenant, nutritionist, "2024-01-15", "09:00")

	err := repo.Create(context.Background(), &models.Appointment{
		TenantID: tenant, PatientID: uuid.New(), NutritionistID: nutritionist,
		AppointmentDate: "2024-01-15", AppointmentTime: "09:00",
	})
	assert.ErrorIs(t, err, apperr.ErrSlotConflict)
}

func TestAppointmentUpdateIntoTakenSlotLeavesRowUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewAppointmentRepository(databasetest.New(t))
	tenant, nutritionist := uuid.New(), uuid.New()
	a := seedAppointment(t, repo, tenant, nutritionist, "2024-01-15", "09:00")
	seedAppointment(t, repo, tenant, nutritionist, "2024-01-15", "10:00")

	err := repo.Update(ctx, tenant, a.ID, map[string]any{
		"appointment_time": "10:00",
		"status":           models.StatusRescheduled,
	})
	require.ErrorIs(t, err, apperr.ErrSlotConflict)

	got, err := repo.GetByID(ctx, tenant, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "09:00", got.AppointmentTime)
	assert.Equal(t, models.StatusScheduled, got.Status)
}

func TestAppointmentTenantScoping(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewAppointmentRepository(databasetest.New(t))
	tenant, other := uuid.New(), uuid.New()
	appt := seedAppointment(t, repo, tenant, uuid.New(), "2024-01-15", "09:00")

	_, err := repo.GetByID(ctx, other, appt.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = repo.Update(ctx, other, appt.ID, map[string]any{"notes": "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = repo.SoftDelete(ctx, other, appt.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	page, err := repo.List(ctx, other, models.AppointmentQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestAppointmentSoftDeleteFreesSlot(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewAppointmentRepository(databasetest.New(t))
	tenant, nutritionist := uuid.New(), uuid.New()
	appt := seedAppointment(t, repo, tenant, nutritionist, "2024-01-15", "09:00")

	require.NoError(t, repo.SoftDelete(ctx, tenant, appt.ID))

	_, err := repo.GetByID(ctx, tenant, appt.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	found, err := repo.FindBySlot(ctx, appt.Slot(), uuid.Nil)
	require.NoError(t, err)
	assert.Nil(t, found)

	seedAppointment(t, repo, tenant, nutritionist, "2024-01-15", "09:00")
	assert.ErrorIs(t, repo.SoftDelete(ctx, tenant, appt.ID), apperr.ErrNotFound)
}

func TestAppointmentListFiltersAndPaging(t *testing.T) {
	ctx := context.Background()
	db := databasetest.New(t)
	repo := repository.NewAppointmentRepository(db)
	tenant, n1, n2 := uuid.New(), uuid.New(), uuid.New()

	for i := 0; i < 5; i++ {
		seedAppointment(t, repo, tenant, n1, "2024-01-15", fmt.Sprintf("%02d:00", 8+i))
	}
	seedAppointment(t, repo, tenant, n2, "2024-01-16", "09:00")
	withNotes := seedAppointment(t, repo, tenant, n2, "2024-01-20", "09:00")
	require.NoError(t, repo.Update(ctx, tenant, withNotes.ID, map[string]any{"notes": "Follow-up on Diabetes plan"}))

	page, err := repo.List(ctx, tenant, models.AppointmentQuery{Page: 1, Limit: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 7, page.Total)
	assert.Len(t, page.Data, 3)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrev)
	assert.Equal(t, "2024-01-20", page.Data[0].AppointmentDate)

	page, err = repo.List(ctx, tenant, models.AppointmentQuery{Page: 3, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrev)

	page, err = repo.List(ctx, tenant, models.AppointmentQuery{Page: 1, Limit: 10, AppointmentDate: "2024-01-15"})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	assert.Equal(t, "08:00", page.Data[0].AppointmentTime)

	page, err = repo.List(ctx, tenant, models.AppointmentQuery{Page: 1, Limit: 10, NutritionistID: n2, StartDate: "2024-01-16", EndDate: "2024-01-19"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	page, err = repo.List(ctx, tenant, models.AppointmentQuery{Page: 1, Limit: 10, Search: "diabetes"})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, withNotes.ID, page.Data[0].ID)
}

func TestAppointmentCalendarOrder(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewAppointmentRepository(databasetest.New(t))
	tenant, n := uuid.New(), uuid.New()

	seedAppointment(t, repo, tenant, n, "2024-02-02", "08:00")
	seedAppointment(t, repo, tenant, n, "2024-02-01", "14:00")
	seedAppointment(t, repo, tenant, n, "2024-02-01", "09:00")
	seedAppointment(t, repo, tenant, uuid.New(), "2024-02-01", "09:00")

	appts, err := repo.Calendar(ctx, tenant, models.CalendarQuery{Start: "2024-02-01", End: "2024-02-28", NutritionistID: n})
	require.NoError(t, err)
	require.Len(t, appts, 3)
	assert.Equal(t, "2024-02-01 09:00", appts[0].AppointmentDate+" "+appts[0].AppointmentTime)
	assert.Equal(t, "2024-02-01 14:00", appts[1].AppointmentDate+" "+appts[1].AppointmentTime)
	assert.Equal(t, "2024-02-02 08:00", appts[2].AppointmentDate+" "+appts[2].AppointmentTime)
}
