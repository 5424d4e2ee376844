// Package models contains domain entities and business models for the campaign engine
package models

import (
	"strings"
	"time"

	"github.com/clearlens/campaign-engine/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer represents a practice customer reachable by campaigns
type Customer struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_customers_uuid" json:"uuid"`

	// Identity
	FirstName string  `gorm:"size:255;not null" json:"first_name"`
	LastName  string  `gorm:"size:255;not null" json:"last_name"`
	Email     *string `gorm:"size:255;uniqueIndex:uk_customers_email" json:"email,omitempty"`
	Phone     *string `gorm:"size:20;uniqueIndex:uk_customers_phone" json:"phone,omitempty"`
	City      *string `gorm:"size:100;index:idx_customers_city" json:"city,omitempty"`
	BirthYear *int    `json:"birth_year,omitempty"`

	// Consent and status
	MarketingOptOut bool `gorm:"not null;default:false;index:idx_customers_marketing_opt_out" json:"marketing_opt_out"`
	IsActive        bool `gorm:"not null;default:true;index:idx_customers_is_active" json:"is_active"`

	// Purchase and exam history rollups
	TotalOrders int        `gorm:"not null;default:0" json:"total_orders"`
	LastOrderAt *time.Time `gorm:"index:idx_customers_last_order_at" json:"last_order_at,omitempty"`
	LastExamAt  *time.Time `gorm:"index:idx_customers_last_exam_at" json:"last_exam_at,omitempty"`

	// Timestamps
	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_customers_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Orders     []Order             `gorm:"foreignKey:CustomerID" json:"-"`
	Recipients []CampaignRecipient `gorm:"foreignKey:CustomerID" json:"-"`
}

func (Customer) TableName() string {
	return "customers"
}

// BeforeCreate is called before creating a new record
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Customer) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// GetFullName returns the customer's display name
func (c *Customer) GetFullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// AddressFor returns the destination address for the given channel, or
// empty when the customer has none on file.
func (c *Customer) AddressFor(channel MessageChannel) string {
	switch channel {
	case MessageChannelSMS:
		if c.Phone != nil {
			return *c.Phone
		}
	case MessageChannelEmail:
		if c.Email != nil {
			return *c.Email
		}
	}
	return ""
}

// CustomerFilter represents filter criteria for customers
type CustomerFilter struct {
	ID              *uint      `json:"id,omitempty"`
	UUID            *uuid.UUID `json:"uuid,omitempty"`
	Email           *string    `json:"email,omitempty"`
	Phone           *string    `json:"phone,omitempty"`
	City            *string    `json:"city,omitempty"`
	IsActive        *bool      `json:"is_active,omitempty"`
	MarketingOptOut *bool      `json:"marketing_opt_out,omitempty"`
	CreatedAfter    *time.Time `json:"created_after,omitempty"`
	CreatedBefore   *time.Time `json:"created_before,omitempty"`
}
