package businessflow

import (
	"context"

	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/repository"
	"github.com/clearlens/campaign-engine/utils"
)

// createAuditLog persists one audit entry. Failures are swallowed by
// callers; auditing never blocks the underlying operation.
func createAuditLog(ctx context.Context, auditRepo repository.AuditLogRepository, actor Actor, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var staffID *uint
	if actor.StaffID != 0 {
		staffID = utils.ToPtr(actor.StaffID)
	}

	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		StaffID:      staffID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	if metadata != nil && metadata.RequestID != "" {
		audit.RequestID = &metadata.RequestID
	}

	return auditRepo.Save(ctx, audit)
}
