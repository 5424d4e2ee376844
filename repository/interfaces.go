// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/clearlens/campaign-engine/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	Update(ctx context.Context, campaign models.Campaign) error
	UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error
	UpdateNextRunAt(ctx context.Context, id uint, nextRunAt *time.Time) error
	Delete(ctx context.Context, id uint) error
	ListDue(ctx context.Context, before time.Time) ([]*models.Campaign, error)
	CountReferencingTemplate(ctx context.Context, templateID uint) (int64, error)
}

// CustomerRepository defines operations for customers
type CustomerRepository interface {
	Repository[models.Customer, models.CustomerFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Customer, error)
	ByEmail(ctx context.Context, email string) (*models.Customer, error)
	BySegment(ctx context.Context, segment models.SegmentConfig, limit, offset int) ([]*models.Customer, error)
	CountBySegment(ctx context.Context, segment models.SegmentConfig) (int64, error)
}

// CampaignRecipientRepository defines operations for campaign recipients
type CampaignRecipientRepository interface {
	Repository[models.CampaignRecipient, models.CampaignRecipientFilter]
	ByCampaignAndCustomer(ctx context.Context, campaignID, customerID uint) (*models.CampaignRecipient, error)
	ListActiveByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignRecipient, error)
	Update(ctx context.Context, recipient models.CampaignRecipient) error
	CountByStatus(ctx context.Context, campaignID uint) (map[models.RecipientStatus]int64, error)
}

// CampaignRunRepository defines operations for campaign runs
type CampaignRunRepository interface {
	Repository[models.CampaignRun, models.CampaignRunFilter]
	Update(ctx context.Context, run models.CampaignRun) error
	ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.CampaignRun, error)
	LatestByCampaign(ctx context.Context, campaignID uint) (*models.CampaignRun, error)
}

// MessageRepository defines operations for messages
type MessageRepository interface {
	Repository[models.Message, models.MessageFilter]
	MarkSent(ctx context.Context, id uint, sentAt time.Time) error
	MarkFailed(ctx context.Context, id uint, reason string) error
	ListByRecipient(ctx context.Context, recipientID uint) ([]*models.Message, error)
	CountByStatus(ctx context.Context, campaignID uint) (map[models.MessageStatus]int64, error)
}

// MessageTemplateRepository defines operations for message templates
type MessageTemplateRepository interface {
	Repository[models.MessageTemplate, models.MessageTemplateFilter]
	ByUUID(ctx context.Context, uuid string) (*models.MessageTemplate, error)
	ByName(ctx context.Context, name string) (*models.MessageTemplate, error)
	Update(ctx context.Context, template models.MessageTemplate) error
	SoftDelete(ctx context.Context, id uint, at time.Time) error
}

// OrderRepository defines operations for orders
type OrderRepository interface {
	Repository[models.Order, models.OrderFilter]
	HasOrderInWindow(ctx context.Context, customerID uint, after, until time.Time) (bool, error)
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.Order, error)
}

// StaffRepository defines operations for staff accounts
type StaffRepository interface {
	Repository[models.Staff, models.StaffFilter]
	ByEmail(ctx context.Context, email string) (*models.Staff, error)
	UpdateLastLogin(ctx context.Context, staffID uint, at time.Time) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByStaff(ctx context.Context, staffID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
