// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Staff and authorization errors
	ErrStaffNotFound     = errors.New("staff account not found")
	ErrAccountInactive   = errors.New("account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrAdminOnly         = errors.New("Admin only")

	// Campaign lifecycle errors
	ErrCampaignNotFound         = errors.New("campaign not found")
	ErrCampaignNameRequired     = errors.New("campaign name is required")
	ErrCampaignNotEditable      = errors.New("campaign can only be edited in draft")
	ErrCampaignNotDeletable     = errors.New("campaign can only be deleted in draft")
	ErrCampaignNotActive        = errors.New("campaign is not active")
	ErrInvalidStatusTransition  = errors.New("invalid campaign status transition")
	ErrCampaignArchived         = errors.New("campaign is archived")
	ErrCampaignRunInProgress    = errors.New("a run is already in progress for this campaign")
	ErrCampaignUpdateRequired   = errors.New("at least one field must be provided for update")

	// Segment errors
	ErrInvalidSegment = errors.New("invalid segment definition")

	// Recipient errors
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrCustomerOptedOut    = errors.New("customer has opted out of marketing")
	ErrRecipientNotFound   = errors.New("recipient not found")
	ErrCooldownNotElapsed  = errors.New("re-enrollment cooldown has not elapsed")
	ErrRecipientTerminated = errors.New("recipient already terminated")

	// Template errors
	ErrTemplateNotFound       = errors.New("message template not found")
	ErrTemplateNameTaken      = errors.New("template name already in use")
	ErrTemplateInUse          = errors.New("template is referenced by campaigns")
	ErrTemplateBodyRequired   = errors.New("template body is required")
	ErrNoDestinationAddress   = errors.New("customer has no address for channel")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsStaffNotFound(err error) bool {
	return errors.Is(err, ErrStaffNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsAdminOnly(err error) bool {
	return errors.Is(err, ErrAdminOnly)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignNameRequired(err error) bool {
	return errors.Is(err, ErrCampaignNameRequired)
}

func IsCampaignNotEditable(err error) bool {
	return errors.Is(err, ErrCampaignNotEditable)
}

func IsCampaignNotDeletable(err error) bool {
	return errors.Is(err, ErrCampaignNotDeletable)
}

func IsCampaignNotActive(err error) bool {
	return errors.Is(err, ErrCampaignNotActive)
}

func IsInvalidStatusTransition(err error) bool {
	return errors.Is(err, ErrInvalidStatusTransition)
}

func IsCampaignArchived(err error) bool {
	return errors.Is(err, ErrCampaignArchived)
}

func IsCampaignRunInProgress(err error) bool {
	return errors.Is(err, ErrCampaignRunInProgress)
}

func IsCampaignUpdateRequired(err error) bool {
	return errors.Is(err, ErrCampaignUpdateRequired)
}

func IsInvalidSegment(err error) bool {
	return errors.Is(err, ErrInvalidSegment)
}

func IsCustomerNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}

func IsCustomerOptedOut(err error) bool {
	return errors.Is(err, ErrCustomerOptedOut)
}

func IsRecipientNotFound(err error) bool {
	return errors.Is(err, ErrRecipientNotFound)
}

func IsCooldownNotElapsed(err error) bool {
	return errors.Is(err, ErrCooldownNotElapsed)
}

func IsRecipientTerminated(err error) bool {
	return errors.Is(err, ErrRecipientTerminated)
}

func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

func IsTemplateNameTaken(err error) bool {
	return errors.Is(err, ErrTemplateNameTaken)
}

func IsTemplateInUse(err error) bool {
	return errors.Is(err, ErrTemplateInUse)
}

func IsTemplateBodyRequired(err error) bool {
	return errors.Is(err, ErrTemplateBodyRequired)
}

func IsNoDestinationAddress(err error) bool {
	return errors.Is(err, ErrNoDestinationAddress)
}
