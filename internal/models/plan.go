package models

import "time"

// MaintenancePlan drives recurring interventions. Materializing a plan
// creates the next planned intervention and advances NextDue by the plan's
// frequency; there is no background scheduler.
type MaintenancePlan struct {
	ID        int64      `json:"id"`
	SiteID    int64      `json:"site_id"`
	AssetID   *int64     `json:"asset_id,omitempty"`
	Title     string     `json:"title"`
	Frequency string     `json:"frequency"`
	NextDue   *time.Time `json:"next_due,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Plan frequency values
const (
	FrequencyWeekly    = "weekly"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"
)

// ValidFrequencies lists the accepted plan frequencies
var ValidFrequencies = []string{
	FrequencyWeekly,
	FrequencyMonthly,
	FrequencyQuarterly,
	FrequencyYearly,
}

// IsValidFrequency checks if a frequency value is accepted
func IsValidFrequency(freq string) bool {
	for _, f := range ValidFrequencies {
		if f == freq {
			return true
		}
	}
	return false
}

// NextAfter returns the due date following "from" for the given frequency.
// Unknown frequencies fall back to monthly.
func NextAfter(frequency string, from time.Time) time.Time {
	switch frequency {
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyQuarterly:
		return from.AddDate(0, 3, 0)
	case FrequencyYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// CreatePlanRequest represents the request body for creating a plan
type CreatePlanRequest struct {
	SiteID    int64      `json:"site_id" validate:"required"`
	AssetID   *int64     `json:"asset_id,omitempty"`
	Title     string     `json:"title" validate:"required"`
	Frequency string     `json:"frequency" validate:"required"`
	NextDue   *time.Time `json:"next_due,omitempty"`
	Active    *bool      `json:"active,omitempty"`
}

// UpdatePlanRequest represents the request body for updating a plan
type UpdatePlanRequest struct {
	AssetID   *int64     `json:"asset_id,omitempty"`
	Title     *string    `json:"title,omitempty"`
	Frequency *string    `json:"frequency,omitempty"`
	NextDue   *time.Time `json:"next_due,omitempty"`
	Active    *bool      `json:"active,omitempty"`
}
