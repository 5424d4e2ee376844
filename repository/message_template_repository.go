package repository

import (
	"context"
	"time"

	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageTemplateRepositoryImpl implements the MessageTemplateRepository interface
type MessageTemplateRepositoryImpl struct {
	*BaseRepository[models.MessageTemplate, models.MessageTemplateFilter]
}

// NewMessageTemplateRepository creates a new message template repository
func NewMessageTemplateRepository(db *gorm.DB) MessageTemplateRepository {
	return &MessageTemplateRepositoryImpl{
		BaseRepository: NewBaseRepository[models.MessageTemplate, models.MessageTemplateFilter](db),
	}
}

// ByUUID retrieves a non-deleted template by UUID
func (r *MessageTemplateRepositoryImpl) ByUUID(ctx context.Context, rawUUID string) (*models.MessageTemplate, error) {
	parsedUUID, err := uuid.Parse(rawUUID)
	if err != nil {
		return nil, err
	}

	filter := models.MessageTemplateFilter{UUID: &parsedUUID}
	templates, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(templates) == 0 {
		return nil, nil
	}

	return templates[0], nil
}

// ByName retrieves a non-deleted template by its unique name
func (r *MessageTemplateRepositoryImpl) ByName(ctx context.Context, name string) (*models.MessageTemplate, error) {
	filter := models.MessageTemplateFilter{Name: &name}
	templates, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(templates) == 0 {
		return nil, nil
	}

	return templates[0], nil
}

// Update updates a template row
func (r *MessageTemplateRepositoryImpl) Update(ctx context.Context, template models.MessageTemplate) error {
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
	template.UpdatedAt = &now

	err = db.Save(&template).Error
	if err != nil {
		return err
	}

	return nil
}

// SoftDelete stamps a template as deleted without removing the row
func (r *MessageTemplateRepositoryImpl) SoftDelete(ctx context.Context, id uint, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.MessageTemplate{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]any{
			"deleted_at": utils.TimeToUTC(at),
			"updated_at": utils.UTCNow(),
		}).Error
}

// ByFilter retrieves templates based on filter criteria
func (r *MessageTemplateRepositoryImpl) ByFilter(ctx context.Context, filter models.MessageTemplateFilter, orderBy string, limit, offset int) ([]*models.MessageTemplate, error) {
	db := r.getDB(ctx)

	var templates []*models.MessageTemplate
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

	err := query.Find(&templates).Error
	if err != nil {
		return nil, err
	}

	return templates, nil
}

// Count returns the number of templates matching the filter
func (r *MessageTemplateRepositoryImpl) Count(ctx context.Context, filter models.MessageTemplateFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.MessageTemplate{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any template matching the filter exists
func (r *MessageTemplateRepositoryImpl) Exists(ctx context.Context, filter models.MessageTemplateFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *MessageTemplateRepositoryImpl) applyFilter(db *gorm.DB, filter models.MessageTemplateFilter) *gorm.DB {
	if !filter.IncludeDeleted {
		db = db.Where("deleted_at IS NULL")
	}
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
	}
	if filter.Channel != nil {
		db = db.Where("channel = ?", *filter.Channel)
	}

	return db
}
