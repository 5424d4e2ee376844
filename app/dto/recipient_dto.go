package dto

// EnrollCustomerRequest represents the request to enroll a customer in a campaign
type EnrollCustomerRequest struct {
	CampaignUUID string `json:"-"`
	CustomerID   uint   `json:"customer_id" validate:"required"`
}

// EnrollCustomerResponse represents the response to an enrollment request
type EnrollCustomerResponse struct {
	Message   string       `json:"message"`
	Recipient RecipientDTO `json:"recipient"`
}

// RemoveRecipientRequest represents the request to remove a recipient from a campaign
type RemoveRecipientRequest struct {
	CampaignUUID string `json:"-"`
	CustomerID   uint   `json:"customer_id" validate:"required"`
}

// RemoveRecipientResponse represents the response to a removal request
type RemoveRecipientResponse struct {
	Message string `json:"message"`
}

// RecipientDTO represents a campaign recipient in responses
type RecipientDTO struct {
	ID            uint   `json:"id"`
	CampaignID    uint   `json:"campaign_id"`
	CustomerID    uint   `json:"customer_id"`
	Status        string `json:"status"`
	EnrolledAt    string `json:"enrolled_at"`
	LastStepIndex int    `json:"last_step_index"`
	LastMessageAt string `json:"last_message_at,omitempty"`
	TerminatedAt  string `json:"terminated_at,omitempty"`
}

// ListRecipientsRequest represents the request to list a campaign's recipients
type ListRecipientsRequest struct {
	CampaignUUID string  `json:"-"`
	Status       *string `json:"status,omitempty" validate:"omitempty,oneof=active completed converted removed"`
	Page         int     `json:"page" validate:"omitempty,min=1"`
	Limit        int     `json:"limit" validate:"omitempty,min=1,max=100"`
}

// ListRecipientsResponse represents the response to list a campaign's recipients
type ListRecipientsResponse struct {
	Items []RecipientDTO `json:"items"`
	Total int64          `json:"total"`
}
