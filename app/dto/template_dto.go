package dto

// CreateTemplateRequest represents the request to create a message template
type CreateTemplateRequest struct {
	Name    string  `json:"name" validate:"required,min=1,max=255"`
	Channel string  `json:"channel" validate:"required,oneof=sms email"`
	Subject *string `json:"subject,omitempty" validate:"omitempty,max=255"`
	Body    string  `json:"body" validate:"required,min=1"`
}

// UpdateTemplateRequest represents the request to update a message template
type UpdateTemplateRequest struct {
	UUID    string  `json:"-"`
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Subject *string `json:"subject,omitempty" validate:"omitempty,max=255"`
	Body    *string `json:"body,omitempty" validate:"omitempty,min=1"`
}

// MessageTemplateDTO represents a message template in responses
type MessageTemplateDTO struct {
	ID        uint    `json:"id"`
	UUID      string  `json:"uuid"`
	Name      string  `json:"name"`
	Channel   string  `json:"channel"`
	Subject   *string `json:"subject,omitempty"`
	Body      string  `json:"body"`
	CreatedBy uint    `json:"created_by"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// ListTemplatesResponse represents the response to list templates
type ListTemplatesResponse struct {
	Items []MessageTemplateDTO `json:"items"`
}
