// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowPtr returns a pointer to the current time in UTC
func UTCNowPtr() *time.Time {
	now := UTCNow()
	return &now
}

// TimeToUTC converts a time to UTC if it's not already
func TimeToUTC(t time.Time) time.Time {
	return t.UTC()
}

// DaysBetween returns the number of whole 24-hour periods elapsed between
// from and until. Negative when until precedes from.
func DaysBetween(from, until time.Time) int {
	return int(until.Sub(from).Hours() / 24)
}

// AddDays returns t advanced by the given number of whole days.
func AddDays(t time.Time, days int) time.Time {
	return t.Add(time.Duration(days) * 24 * time.Hour)
}
