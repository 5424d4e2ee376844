// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerRepositoryImpl implements the CustomerRepository interface
type CustomerRepositoryImpl struct {
	*BaseRepository[models.Customer, models.CustomerFilter]
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &CustomerRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Customer, models.CustomerFilter](db),
	}
}

// ByUUID retrieves a customer by UUID
func (r *CustomerRepositoryImpl) ByUUID(ctx context.Context, rawUUID string) (*models.Customer, error) {
	parsedUUID, err := uuid.Parse(rawUUID)
	if err != nil {
		return nil, err
	}

	filter := models.CustomerFilter{UUID: &parsedUUID}
	customers, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(customers) == 0 {
		return nil, nil
	}

	return customers[0], nil
}

// ByEmail retrieves a customer by email
func (r *CustomerRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Customer, error) {
	filter := models.CustomerFilter{Email: &email}
	customers, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(customers) == 0 {
		return nil, nil
	}

	return customers[0], nil
}

// BySegment retrieves customers matching a segment definition
func (r *CustomerRepositoryImpl) BySegment(ctx context.Context, segment models.SegmentConfig, limit, offset int) ([]*models.Customer, error) {
	db := r.getDB(ctx)

	query, err := r.applySegment(db.Model(&models.Customer{}), segment)
	if err != nil {
		return nil, err
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var customers []*models.Customer
	if err := query.Order("id ASC").Find(&customers).Error; err != nil {
		return nil, err
	}

	return customers, nil
}

// CountBySegment counts customers matching a segment definition
func (r *CustomerRepositoryImpl) CountBySegment(ctx context.Context, segment models.SegmentConfig) (int64, error) {
	db := r.getDB(ctx)

	query, err := r.applySegment(db.Model(&models.Customer{}), segment)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

// applySegment composes segment conditions into parameterized WHERE
// clauses. The segment must already have passed SegmentConfig.Validate;
// column names come exclusively from the field allow list.
func (r *CustomerRepositoryImpl) applySegment(db *gorm.DB, segment models.SegmentConfig) (*gorm.DB, error) {
	if err := segment.Validate(); err != nil {
		return nil, err
	}

	if segment.ExcludeMarketingOptOut {
		db = db.Where("marketing_opt_out = FALSE")
	}

	if len(segment.Conditions) == 0 {
		return db, nil
	}

	clauses := make([]string, 0, len(segment.Conditions))
	args := make([]any, 0, len(segment.Conditions))
	now := utils.UTCNow()

	for _, cond := range segment.Conditions {
		clause, condArgs, err := segmentConditionSQL(cond, now)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
		args = append(args, condArgs...)
	}

	joiner := " AND "
	if segment.Logic == models.SegmentLogicOr {
		joiner = " OR "
	}

	combined := "(" + joinClauses(clauses, joiner) + ")"
	return db.Where(combined, args...), nil
}

func segmentConditionSQL(cond models.SegmentCondition, now time.Time) (string, []any, error) {
	field, ok := models.SegmentFields[cond.Field]
	if !ok {
		return "", nil, fmt.Errorf("unknown segment field: %s", cond.Field)
	}
	column := field.Column

	switch cond.Operator {
	case models.SegmentOpEq:
		return column + " = ?", []any{cond.Value}, nil
	case models.SegmentOpNeq:
		return column + " <> ?", []any{cond.Value}, nil
	case models.SegmentOpGt:
		return column + " > ?", []any{cond.Value}, nil
	case models.SegmentOpGte:
		return column + " >= ?", []any{cond.Value}, nil
	case models.SegmentOpLt:
		return column + " < ?", []any{cond.Value}, nil
	case models.SegmentOpLte:
		return column + " <= ?", []any{cond.Value}, nil
	case models.SegmentOpIn:
		return column + " IN ?", []any{cond.Value}, nil
	case models.SegmentOpNotIn:
		return column + " NOT IN ?", []any{cond.Value}, nil
	case models.SegmentOpIsNull:
		return column + " IS NULL", nil, nil
	case models.SegmentOpNotNull:
		return column + " IS NOT NULL", nil, nil
	case models.SegmentOpOlderThanDays:
		days, _ := cond.DaysValue()
		return column + " < ?", []any{now.Add(-time.Duration(days*24) * time.Hour)}, nil
	case models.SegmentOpWithinDays:
		days, _ := cond.DaysValue()
		return column + " >= ?", []any{now.Add(-time.Duration(days*24) * time.Hour)}, nil
	default:
		return "", nil, fmt.Errorf("unsupported segment operator: %s", cond.Operator)
	}
}

func joinClauses(clauses []string, joiner string) string {
	out := ""
	for i, clause := range clauses {
		if i > 0 {
			out += joiner
		}
		out += clause
	}
	return out
}

// ByFilter retrieves customers based on filter criteria
func (r *CustomerRepositoryImpl) ByFilter(ctx context.Context, filter models.CustomerFilter, orderBy string, limit, offset int) ([]*models.Customer, error) {
	db := r.getDB(ctx)

	var customers []*models.Customer
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

	err := query.Find(&customers).Error
	if err != nil {
		return nil, err
	}

	return customers, nil
}

// Count returns the number of customers matching the filter
func (r *CustomerRepositoryImpl) Count(ctx context.Context, filter models.CustomerFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Customer{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any customer matching the filter exists
func (r *CustomerRepositoryImpl) Exists(ctx context.Context, filter models.CustomerFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CustomerRepositoryImpl) applyFilter(db *gorm.DB, filter models.CustomerFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Email != nil {
		db = db.Where("email = ?", *filter.Email)
	}
	if filter.Phone != nil {
		db = db.Where("phone = ?", *filter.Phone)
	}
	if filter.City != nil {
		db = db.Where("city = ?", *filter.City)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.MarketingOptOut != nil {
		db = db.Where("marketing_opt_out = ?", *filter.MarketingOptOut)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
