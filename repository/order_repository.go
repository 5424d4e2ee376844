package repository

import (
	"context"
	"time"

	"github.com/clearlens/campaign-engine/models"
	"gorm.io/gorm"
)

// OrderRepositoryImpl implements the OrderRepository interface
type OrderRepositoryImpl struct {
	*BaseRepository[models.Order, models.OrderFilter]
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &OrderRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Order, models.OrderFilter](db),
	}
}

// HasOrderInWindow reports whether the customer placed a non-cancelled
// order strictly after the window start and no later than its end.
// Conversion detection uses the recipient's enrollment time as the start
// and the pass snapshot as the end.
func (r *OrderRepositoryImpl) HasOrderInWindow(ctx context.Context, customerID uint, after, until time.Time) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.Order{}).
		Where("customer_id = ?", customerID).
		Where("status <> ?", models.OrderStatusCancelled).
		Where("placed_at > ? AND placed_at <= ?", after, until).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// ListByCustomer retrieves a customer's orders, most recent first
func (r *OrderRepositoryImpl) ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.Order, error) {
	filter := models.OrderFilter{CustomerID: &customerID}
	return r.ByFilter(ctx, filter, "placed_at DESC", limit, offset)
}

// ByFilter retrieves orders based on filter criteria
func (r *OrderRepositoryImpl) ByFilter(ctx context.Context, filter models.OrderFilter, orderBy string, limit, offset int) ([]*models.Order, error) {
	db := r.getDB(ctx)

	var orders []*models.Order
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

	err := query.Find(&orders).Error
	if err != nil {
		return nil, err
	}

	return orders, nil
}

// Count returns the number of orders matching the filter
func (r *OrderRepositoryImpl) Count(ctx context.Context, filter models.OrderFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Order{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any order matching the filter exists
func (r *OrderRepositoryImpl) Exists(ctx context.Context, filter models.OrderFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *OrderRepositoryImpl) applyFilter(db *gorm.DB, filter models.OrderFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.PlacedAfter != nil {
		db = db.Where("placed_at > ?", *filter.PlacedAfter)
	}
	if filter.PlacedBefore != nil {
		db = db.Where("placed_at <= ?", *filter.PlacedBefore)
	}

	return db
}
