package models

import "time"

type Site struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   *string   `json:"address,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SiteStats carries per-site counters for the dashboard and site detail views
type SiteStats struct {
	SiteID            int64 `json:"site_id"`
	AssetCount        int   `json:"asset_count"`
	OpenInterventions int   `json:"open_interventions"`
	DoneInterventions int   `json:"done_interventions"`
}
