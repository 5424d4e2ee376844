package businessflow

import (
	"context"
	"time"

	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/repository"
)

// hasConverted reports whether the recipient placed an order after
// enrolling and no later than the pass snapshot. Orders arriving while
// a pass is mid-flight are picked up by the next pass, so every
// recipient in one pass is judged against the same cutoff.
func hasConverted(ctx context.Context, orderRepo repository.OrderRepository, recipient *models.CampaignRecipient, snapshotAt time.Time) (bool, error) {
	return orderRepo.HasOrderInWindow(ctx, recipient.CustomerID, recipient.EnrolledAt, snapshotAt)
}
