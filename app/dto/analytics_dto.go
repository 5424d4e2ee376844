package dto

// CampaignAnalyticsResponse aggregates recipient, message, and run
// statistics for one campaign.
type CampaignAnalyticsResponse struct {
	Campaign CampaignDTO `json:"campaign"`

	// Recipient counts by status
	RecipientsTotal     int64 `json:"recipients_total"`
	RecipientsActive    int64 `json:"recipients_active"`
	RecipientsCompleted int64 `json:"recipients_completed"`
	RecipientsConverted int64 `json:"recipients_converted"`
	RecipientsRemoved   int64 `json:"recipients_removed"`

	// Message counts by status
	MessagesTotal   int64 `json:"messages_total"`
	MessagesPending int64 `json:"messages_pending"`
	MessagesSent    int64 `json:"messages_sent"`
	MessagesFailed  int64 `json:"messages_failed"`

	// ConversionRate is converted recipients over total enrolled,
	// zero when nobody has been enrolled.
	ConversionRate float64 `json:"conversion_rate"`

	RecentRuns []CampaignRunDTO `json:"recent_runs"`
}
