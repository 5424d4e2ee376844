package repository

import (
	"context"
	"time"

	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/utils"
	"gorm.io/gorm"
)

// MessageRepositoryImpl implements the MessageRepository interface
type MessageRepositoryImpl struct {
	*BaseRepository[models.Message, models.MessageFilter]
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &MessageRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Message, models.MessageFilter](db),
	}
}

// MarkSent transitions a pending message to sent
func (r *MessageRepositoryImpl) MarkSent(ctx context.Context, id uint, sentAt time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.Message{}).
		Where("id = ? AND status = ?", id, models.MessageStatusPending).
		Updates(map[string]any{
			"status":  models.MessageStatusSent,
			"sent_at": utils.TimeToUTC(sentAt),
		}).Error
}

// MarkFailed transitions a pending message to failed with a reason
func (r *MessageRepositoryImpl) MarkFailed(ctx context.Context, id uint, reason string) error {
	db := r.getDB(ctx)
	return db.Model(&models.Message{}).
		Where("id = ? AND status = ?", id, models.MessageStatusPending).
		Updates(map[string]any{
			"status":      models.MessageStatusFailed,
			"fail_reason": reason,
		}).Error
}

// ListByRecipient retrieves all messages sent to a recipient in send order
func (r *MessageRepositoryImpl) ListByRecipient(ctx context.Context, recipientID uint) ([]*models.Message, error) {
	filter := models.MessageFilter{RecipientID: &recipientID}
	return r.ByFilter(ctx, filter, "created_at ASC", 0, 0)
}

// CountByStatus returns message counts per status for a campaign
func (r *MessageRepositoryImpl) CountByStatus(ctx context.Context, campaignID uint) (map[models.MessageStatus]int64, error) {
	db := r.getDB(ctx)

	type row struct {
		Status models.MessageStatus
		Total  int64
	}
	var rows []row
	err := db.Model(&models.Message{}).
		Select("status, COUNT(*) AS total").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[models.MessageStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}

// ByFilter retrieves messages based on filter criteria
func (r *MessageRepositoryImpl) ByFilter(ctx context.Context, filter models.MessageFilter, orderBy string, limit, offset int) ([]*models.Message, error) {
	db := r.getDB(ctx)

	var messages []*models.Message
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

	err := query.Find(&messages).Error
	if err != nil {
		return nil, err
	}

	return messages, nil
}

// Count returns the number of messages matching the filter
func (r *MessageRepositoryImpl) Count(ctx context.Context, filter models.MessageFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Message{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any message matching the filter exists
func (r *MessageRepositoryImpl) Exists(ctx context.Context, filter models.MessageFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *MessageRepositoryImpl) applyFilter(db *gorm.DB, filter models.MessageFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.RecipientID != nil {
		db = db.Where("recipient_id = ?", *filter.RecipientID)
	}
	if filter.RunID != nil {
		db = db.Where("run_id = ?", *filter.RunID)
	}
	if filter.Channel != nil {
		db = db.Where("channel = ?", *filter.Channel)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
