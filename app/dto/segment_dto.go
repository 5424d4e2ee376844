package dto

import (
	"github.com/clearlens/campaign-engine/models"
)

// PreviewSegmentRequest represents the request to preview a segment
type PreviewSegmentRequest struct {
	Segment models.SegmentConfig `json:"segment"`
	Limit   int                  `json:"limit" validate:"omitempty,min=1,max=100"`
}

// CustomerSummaryDTO is the abbreviated customer shape returned in
// segment previews.
type CustomerSummaryDTO struct {
	ID        uint   `json:"id"`
	UUID      string `json:"uuid"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	City      string `json:"city,omitempty"`
}

// PreviewSegmentResponse represents the response to a segment preview
type PreviewSegmentResponse struct {
	Total  int64                `json:"total"`
	Sample []CustomerSummaryDTO `json:"sample"`
	Cached bool                 `json:"cached"`
}
