package models

import "time"

// Asset represents a tracked physical item. Token is the opaque identifier
// embedded in the asset's QR payload; it is issued once at creation and is
// never mutated or reused, even after the asset is (soft-)deleted.
type Asset struct {
	ID           int64      `json:"id"`
	SiteID       int64      `json:"site_id"`
	Name         string     `json:"name"`
	AssetType    *string    `json:"asset_type,omitempty"`
	Serial       *string    `json:"serial,omitempty"`
	Vendor       *string    `json:"vendor,omitempty"`
	Status       string     `json:"status"`
	PurchaseDate *time.Time `json:"purchase_date,omitempty"`
	Token        string     `json:"token"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Asset status values
const (
	AssetStatusActive       = "active"
	AssetStatusOutOfService = "out_of_service"
	AssetStatusDisposed     = "disposed"
)

// ValidAssetStatuses lists the accepted asset status values
var ValidAssetStatuses = []string{
	AssetStatusActive,
	AssetStatusOutOfService,
	AssetStatusDisposed,
}

// IsValidAssetStatus checks if a status value is accepted
func IsValidAssetStatus(status string) bool {
	for _, s := range ValidAssetStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// CreateAssetRequest represents the request body for creating a new asset
type CreateAssetRequest struct {
	SiteID       int64      `json:"site_id" validate:"required"`
	Name         string     `json:"name" validate:"required"`
	AssetType    *string    `json:"asset_type,omitempty"`
	Serial       *string    `json:"serial,omitempty"`
	Vendor       *string    `json:"vendor,omitempty"`
	Status       *string    `json:"status,omitempty"`
	PurchaseDate *time.Time `json:"purchase_date,omitempty"`
}

// UpdateAssetRequest represents the request body for updating an asset.
// The token is deliberately absent: it is immutable once issued.
type UpdateAssetRequest struct {
	SiteID       *int64     `json:"site_id,omitempty"`
	Name         *string    `json:"name,omitempty"`
	AssetType    *string    `json:"asset_type,omitempty"`
	Serial       *string    `json:"serial,omitempty"`
	Vendor       *string    `json:"vendor,omitempty"`
	Status       *string    `json:"status,omitempty"`
	PurchaseDate *time.Time `json:"purchase_date,omitempty"`
}

// PublicAsset is the shape returned by the token resolver endpoint
type PublicAsset struct {
	Asset
	SiteName          string         `json:"site_name"`
	OpenInterventions []Intervention `json:"open_interventions"`
}
