package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/clearlens/campaign-engine/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus represents the fulfillment status of an order
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid checks if the status is valid
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusFulfilled, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for OrderStatus
func (s *OrderStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = OrderStatus(v)
	case []byte:
		*s = OrderStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into OrderStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for OrderStatus
func (s OrderStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid OrderStatus: %s", s)
	}
	return string(s), nil
}

// Order represents a purchase placed by a customer. Conversion detection
// compares PlacedAt against recipient enrollment windows.
type Order struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:uk_orders_uuid" json:"uuid"`
	CustomerID uint        `gorm:"not null;index:idx_orders_customer_id" json:"customer_id"`
	Status     OrderStatus `gorm:"type:order_status;not null;default:'placed'" json:"status"`
	TotalCents int64       `gorm:"not null" json:"total_cents"`
	PlacedAt   time.Time   `gorm:"not null;index:idx_orders_placed_at" json:"placed_at"`
	CreatedAt  time.Time   `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Customer *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// BeforeCreate is called before creating a new record
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.UUID == uuid.Nil {
		o.UUID = uuid.New()
	}
	if o.Status == "" {
		o.Status = OrderStatusPlaced
	}
	if o.PlacedAt.IsZero() {
		o.PlacedAt = utils.UTCNow()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = utils.UTCNow()
	}
	return nil
}

// OrderFilter represents filter criteria for orders
type OrderFilter struct {
	ID           *uint        `json:"id,omitempty"`
	CustomerID   *uint        `json:"customer_id,omitempty"`
	Status       *OrderStatus `json:"status,omitempty"`
	PlacedAfter  *time.Time   `json:"placed_after,omitempty"`
	PlacedBefore *time.Time   `json:"placed_before,omitempty"`
}
