package repository

import (
	"context"

	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/utils"
	"gorm.io/gorm"
)

// CampaignRecipientRepositoryImpl implements the CampaignRecipientRepository interface
type CampaignRecipientRepositoryImpl struct {
	*BaseRepository[models.CampaignRecipient, models.CampaignRecipientFilter]
}

// NewCampaignRecipientRepository creates a new campaign recipient repository
func NewCampaignRecipientRepository(db *gorm.DB) CampaignRecipientRepository {
	return &CampaignRecipientRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignRecipient, models.CampaignRecipientFilter](db),
	}
}

// ByCampaignAndCustomer retrieves the single enrollment row for a
// (campaign, customer) pair, nil when the customer was never enrolled.
func (r *CampaignRecipientRepositoryImpl) ByCampaignAndCustomer(ctx context.Context, campaignID, customerID uint) (*models.CampaignRecipient, error) {
	filter := models.CampaignRecipientFilter{
		CampaignID: &campaignID,
		CustomerID: &customerID,
	}
	recipients, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(recipients) == 0 {
		return nil, nil
	}

	return recipients[0], nil
}

// ListActiveByCampaign retrieves all active recipients of a campaign
// ordered by enrollment time.
func (r *CampaignRecipientRepositoryImpl) ListActiveByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignRecipient, error) {
	status := models.RecipientStatusActive
	filter := models.CampaignRecipientFilter{
		CampaignID: &campaignID,
		Status:     &status,
	}
	return r.ByFilter(ctx, filter, "enrolled_at ASC", 0, 0)
}

// Update updates a recipient row
func (r *CampaignRecipientRepositoryImpl) Update(ctx context.Context, recipient models.CampaignRecipient) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	now := utils.UTCNow()
	recipient.UpdatedAt = &now

	err = db.Save(&recipient).Error
	if err != nil {
		return err
	}

	return nil
}

// CountByStatus returns recipient counts per status for a campaign
func (r *CampaignRecipientRepositoryImpl) CountByStatus(ctx context.Context, campaignID uint) (map[models.RecipientStatus]int64, error) {
	db := r.getDB(ctx)

	type row struct {
		Status models.RecipientStatus
		Total  int64
	}
	var rows []row
	err := db.Model(&models.CampaignRecipient{}).
		Select("status, COUNT(*) AS total").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[models.RecipientStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}

// ByFilter retrieves recipients based on filter criteria
func (r *CampaignRecipientRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignRecipientFilter, orderBy string, limit, offset int) ([]*models.CampaignRecipient, error) {
	db := r.getDB(ctx)

	var recipients []*models.CampaignRecipient
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&recipients).Error
	if err != nil {
		return nil, err
	}

	return recipients, nil
}

// Count returns the number of recipients matching the filter
func (r *CampaignRecipientRepositoryImpl) Count(ctx context.Context, filter models.CampaignRecipientFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.CampaignRecipient{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any recipient matching the filter exists
func (r *CampaignRecipientRepositoryImpl) Exists(ctx context.Context, filter models.CampaignRecipientFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CampaignRecipientRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignRecipientFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.EnrolledAfter != nil {
		db = db.Where("enrolled_at >= ?", *filter.EnrolledAfter)
	}
	if filter.EnrolledBefore != nil {
		db = db.Where("enrolled_at < ?", *filter.EnrolledBefore)
	}

	return db
}
