package models

import "time"

// Intervention is a scheduled maintenance action against one asset.
type Intervention struct {
	ID           int64      `json:"id"`
	AssetID      int64      `json:"asset_id"`
	Title        string     `json:"title"`
	ScheduledFor time.Time  `json:"scheduled_for"`
	Status       string     `json:"status"`
	Notes        *string    `json:"notes,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Intervention status values. An intervention leaves "planned" exactly once:
// to "completed" through checklist validation, or to "skipped" explicitly.
const (
	InterventionPlanned   = "planned"
	InterventionCompleted = "completed"
	InterventionSkipped   = "skipped"
)

// ValidInterventionStatuses lists the accepted intervention status values
var ValidInterventionStatuses = []string{
	InterventionPlanned,
	InterventionCompleted,
	InterventionSkipped,
}

// IsValidInterventionStatus checks if a status value is accepted
func IsValidInterventionStatus(status string) bool {
	for _, s := range ValidInterventionStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// CreateInterventionRequest represents the request body for creating an
// intervention. Items defines the checklist inline; TemplateID instead
// copies the items of an existing checklist template.
type CreateInterventionRequest struct {
	AssetID      int64                          `json:"asset_id" validate:"required"`
	Title        string                         `json:"title" validate:"required"`
	ScheduledFor *time.Time                     `json:"scheduled_for,omitempty"`
	Notes        *string                        `json:"notes,omitempty"`
	Items        []CreateChecklistItemRequest   `json:"items,omitempty"`
	TemplateID   *int64                         `json:"template_id,omitempty"`
}

// UpdateInterventionRequest represents the request body for updating a
// planned intervention
type UpdateInterventionRequest struct {
	Title        *string    `json:"title,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
}

// InterventionDetail is an intervention with its checklist definition and
// any recorded answers
type InterventionDetail struct {
	Intervention
	Items   []ChecklistItem   `json:"items"`
	Answers []ChecklistAnswer `json:"answers,omitempty"`
}
