package repository

import (
	"context"

	"github.com/clearlens/campaign-engine/models"
	"gorm.io/gorm"
)

// CampaignRunRepositoryImpl implements the CampaignRunRepository interface
type CampaignRunRepositoryImpl struct {
	*BaseRepository[models.CampaignRun, models.CampaignRunFilter]
}

// NewCampaignRunRepository creates a new campaign run repository
func NewCampaignRunRepository(db *gorm.DB) CampaignRunRepository {
	return &CampaignRunRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignRun, models.CampaignRunFilter](db),
	}
}

// Update updates a run row
func (r *CampaignRunRepositoryImpl) Update(ctx context.Context, run models.CampaignRun) error {
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

	err = db.Save(&run).Error
	if err != nil {
		return err
	}

	return nil
}

// ListByCampaign retrieves runs for a campaign, most recent first
func (r *CampaignRunRepositoryImpl) ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.CampaignRun, error) {
	filter := models.CampaignRunFilter{CampaignID: &campaignID}
	return r.ByFilter(ctx, filter, "started_at DESC", limit, offset)
}

// LatestByCampaign retrieves the most recent run for a campaign
func (r *CampaignRunRepositoryImpl) LatestByCampaign(ctx context.Context, campaignID uint) (*models.CampaignRun, error) {
	runs, err := r.ListByCampaign(ctx, campaignID, 1, 0)
	if err != nil {
		return nil, err
	}

	if len(runs) == 0 {
		return nil, nil
	}

	return runs[0], nil
}

// ByFilter retrieves runs based on filter criteria
func (r *CampaignRunRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignRunFilter, orderBy string, limit, offset int) ([]*models.CampaignRun, error) {
	db := r.getDB(ctx)

	var runs []*models.CampaignRun
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

	err := query.Find(&runs).Error
	if err != nil {
		return nil, err
	}

	return runs, nil
}

// Count returns the number of runs matching the filter
func (r *CampaignRunRepositoryImpl) Count(ctx context.Context, filter models.CampaignRunFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.CampaignRun{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any run matching the filter exists
func (r *CampaignRunRepositoryImpl) Exists(ctx context.Context, filter models.CampaignRunFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CampaignRunRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignRunFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Trigger != nil {
		db = db.Where("trigger = ?", *filter.Trigger)
	}
	if filter.StartedAfter != nil {
		db = db.Where("started_at >= ?", *filter.StartedAfter)
	}
	if filter.StartedBefore != nil {
		db = db.Where("started_at < ?", *filter.StartedBefore)
	}

	return db
}
