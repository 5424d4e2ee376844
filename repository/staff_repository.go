package repository

import (
	"context"
	"time"

	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/utils"
	"gorm.io/gorm"
)

// StaffRepositoryImpl implements the StaffRepository interface
type StaffRepositoryImpl struct {
	*BaseRepository[models.Staff, models.StaffFilter]
}

// NewStaffRepository creates a new staff repository
func NewStaffRepository(db *gorm.DB) StaffRepository {
	return &StaffRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Staff, models.StaffFilter](db),
	}
}

// ByEmail retrieves a staff account by email
func (r *StaffRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Staff, error) {
	filter := models.StaffFilter{Email: &email}
	accounts, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(accounts) == 0 {
		return nil, nil
	}

	return accounts[0], nil
}

// UpdateLastLogin stamps the staff account's last login time
func (r *StaffRepositoryImpl) UpdateLastLogin(ctx context.Context, staffID uint, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.Staff{}).
		Where("id = ?", staffID).
		Updates(map[string]any{
			"last_login_at": utils.TimeToUTC(at),
			"updated_at":    utils.UTCNow(),
		}).Error
}

// ByFilter retrieves staff accounts based on filter criteria
func (r *StaffRepositoryImpl) ByFilter(ctx context.Context, filter models.StaffFilter, orderBy string, limit, offset int) ([]*models.Staff, error) {
	db := r.getDB(ctx)

	var accounts []*models.Staff
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

	err := query.Find(&accounts).Error
	if err != nil {
		return nil, err
	}

	return accounts, nil
}

// Count returns the number of staff accounts matching the filter
func (r *StaffRepositoryImpl) Count(ctx context.Context, filter models.StaffFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Staff{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any staff account matching the filter exists
func (r *StaffRepositoryImpl) Exists(ctx context.Context, filter models.StaffFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *StaffRepositoryImpl) applyFilter(db *gorm.DB, filter models.StaffFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Email != nil {
		db = db.Where("email = ?", *filter.Email)
	}
	if filter.Role != nil {
		db = db.Where("role = ?", *filter.Role)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}

	return db
}
