package models

import (
	"encoding/json"
	"time"
)

// Checklist item answer types
const (
	ItemTypeBoolean = "boolean"
	ItemTypeNumber  = "number"
	ItemTypeText    = "text"
	ItemTypePhoto   = "photo"
)

// ValidItemTypes lists the accepted checklist item types
var ValidItemTypes = []string{
	ItemTypeBoolean,
	ItemTypeNumber,
	ItemTypeText,
	ItemTypePhoto,
}

// IsValidItemType checks if an item type is accepted
func IsValidItemType(itemType string) bool {
	for _, t := range ValidItemTypes {
		if t == itemType {
			return true
		}
	}
	return false
}

// ChecklistItem is a typed question on an intervention's checklist
type ChecklistItem struct {
	ID             int64   `json:"id"`
	InterventionID int64   `json:"intervention_id"`
	Position       int     `json:"position"`
	Label          string  `json:"label"`
	ItemType       string  `json:"item_type"`
	Required       bool    `json:"required"`
	Unit           *string `json:"unit,omitempty"`
}

// ChecklistAnswer is a recorded response to one checklist item. Exactly one
// value field is set, matching the item's declared type.
type ChecklistAnswer struct {
	ID             int64     `json:"id"`
	InterventionID int64     `json:"intervention_id"`
	ItemID         int64     `json:"item_id"`
	ValueBool      *bool     `json:"value_bool,omitempty"`
	ValueNumber    *float64  `json:"value_number,omitempty"`
	ValueText      *string   `json:"value_text,omitempty"`
	PhotoRef       *string   `json:"photo_ref,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// AnswerInput is one submitted (item, value) pair. The value is kept raw
// and decoded against the item's declared type by the checklist engine.
type AnswerInput struct {
	ItemID int64           `json:"item_id"`
	Value  json.RawMessage `json:"value"`
}

// CompleteInterventionRequest represents the request body for completing an
// intervention with its checklist answers
type CompleteInterventionRequest struct {
	Answers []AnswerInput `json:"answers"`
}

// CreateChecklistItemRequest represents the request body for adding a
// checklist item to a planned intervention
type CreateChecklistItemRequest struct {
	Label    string  `json:"label" validate:"required"`
	ItemType string  `json:"item_type" validate:"required"`
	Required bool    `json:"required"`
	Unit     *string `json:"unit,omitempty"`
	Position *int    `json:"position,omitempty"`
}
