package models

import "time"

// ChecklistTemplate is a reusable checklist definition. A template may be
// scoped to one site or shared across all sites (SiteID nil).
type ChecklistTemplate struct {
	ID        int64                   `json:"id"`
	SiteID    *int64                  `json:"site_id,omitempty"`
	Name      string                  `json:"name"`
	Items     []ChecklistTemplateItem `json:"items,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// ChecklistTemplateItem is one typed question on a template
type ChecklistTemplateItem struct {
	ID         int64   `json:"id"`
	TemplateID int64   `json:"template_id"`
	Position   int     `json:"position"`
	Label      string  `json:"label"`
	ItemType   string  `json:"item_type"`
	Required   bool    `json:"required"`
	Unit       *string `json:"unit,omitempty"`
}

// CreateTemplateRequest represents the request body for creating a template
type CreateTemplateRequest struct {
	SiteID *int64                       `json:"site_id,omitempty"`
	Name   string                       `json:"name" validate:"required"`
	Items  []CreateChecklistItemRequest `json:"items,omitempty"`
}

// UpdateTemplateRequest represents the request body for renaming or
// re-scoping a template
type UpdateTemplateRequest struct {
	SiteID *int64  `json:"site_id,omitempty"`
	Name   *string `json:"name,omitempty"`
}

// ApplyTemplateRequest selects the template to copy onto an intervention
type ApplyTemplateRequest struct {
	TemplateID int64 `json:"template_id" validate:"required"`
}
