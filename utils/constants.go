package utils

import (
	"time"
)

// Token time constants
const (
	// AccessTokenTTL is the default time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the default time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Campaign processing constants
const (
	// RunCadence is the fixed interval between scheduled passes of an active campaign
	RunCadence = 24 * time.Hour

	// MaxDripSteps caps the number of steps a drip campaign may define
	MaxDripSteps = 50

	// DefaultSegmentPreviewLimit is the number of sample customers returned by a segment preview
	DefaultSegmentPreviewLimit = 25

	// MaxSegmentPreviewLimit bounds the sample size a caller may request
	MaxSegmentPreviewLimit = 100

	// SegmentPreviewCacheTTL is how long a segment preview count stays cached
	SegmentPreviewCacheTTL = 5 * time.Minute
)

// ContextKey is the type for request-scoped context values
type ContextKey string

// Request-scoped context keys set by the HTTP layer
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	CancelFuncKey ContextKey = "cancel_func"
)
