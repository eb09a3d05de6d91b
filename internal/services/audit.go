package services

import (
	"context"
	"time"

	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/internal/repository"
	"github.com/otcheredev/clinic-core/pkg/logger"
)

// auditor writes audit entries. Failures are logged and never fail the operation
// that was audited.
type auditor struct {
	repo *repository.AuditRepository
}

func (a auditor) record(ctx context.Context, entry *models.AuditLog, started time.Time, opErr error) {
	if a.repo == nil {
		return
	}
	entry.Duration = time.Since(started).Milliseconds()
	if opErr != nil {
		entry.Status = models.AuditFailure
		entry.ErrorMessage = opErr.Error()
	}
	if err := a.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("action", entry.Action).Msg("failed to write audit log")
	}
}
