package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/clearlens/campaign-engine/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StaffRole represents the authorization level of a staff account
type StaffRole string

const (
	StaffRoleAdmin StaffRole = "admin"
	StaffRoleStaff StaffRole = "staff"
)

// String returns the string representation of the role
func (r StaffRole) String() string {
	return string(r)
}

// Valid checks if the role is valid
func (r StaffRole) Valid() bool {
	return r == StaffRoleAdmin || r == StaffRoleStaff
}

// Scan implements the sql.Scanner interface for StaffRole
func (r *StaffRole) Scan(value any) error {
	if value == nil {
		*r = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*r = StaffRole(v)
	case []byte:
		*r = StaffRole(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StaffRole", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for StaffRole
func (r StaffRole) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid StaffRole: %s", r)
	}
	return string(r), nil
}

// Staff represents a practice employee who operates campaigns
type Staff struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_staff_uuid" json:"uuid"`
	FirstName    string     `gorm:"size:255;not null" json:"first_name"`
	LastName     string     `gorm:"size:255;not null" json:"last_name"`
	Email        string     `gorm:"size:255;not null;uniqueIndex:uk_staff_email" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"` // Never serialize password hash
	Role         StaffRole  `gorm:"type:staff_role;not null;default:'staff'" json:"role"`
	IsActive     bool       `gorm:"not null;default:true;index:idx_staff_is_active" json:"is_active"`
	CreatedAt    time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

func (Staff) TableName() string {
	return "staff"
}

// BeforeCreate is called before creating a new record
func (s *Staff) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	if s.Role == "" {
		s.Role = StaffRoleStaff
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (s *Staff) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	s.UpdatedAt = &now
	return nil
}

// IsAdmin reports whether the account holds the admin role
func (s *Staff) IsAdmin() bool {
	return s.Role == StaffRoleAdmin
}

// StaffFilter represents filter criteria for staff accounts
type StaffFilter struct {
	ID       *uint      `json:"id,omitempty"`
	UUID     *uuid.UUID `json:"uuid,omitempty"`
	Email    *string    `json:"email,omitempty"`
	Role     *StaffRole `json:"role,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
}
