package internal

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"sitekeeper-api/internal/models"
	"sitekeeper-api/internal/token"

	"github.com/go-chi/chi/v5"
)

// resolveAssetToken is the landing endpoint for scanned QR codes. It does an
// exact-match lookup only: malformed tokens are rejected before touching the
// database, and soft-deleted assets answer 404 just like unknown tokens so a
// caller cannot distinguish "never existed" from "retired".
func (s *Server) resolveAssetToken(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")
	if !token.Valid(tok) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var pa models.PublicAsset
	err := s.DB.QueryRowContext(r.Context(), `
		SELECT a.id, a.site_id, a.name, a.asset_type, a.serial, a.vendor,
		       a.status, a.purchase_date, a.token, a.created_at, a.updated_at,
		       s.name
		FROM assets a
		JOIN sites s ON s.id = a.site_id
		WHERE a.token = $1 AND a.deleted_at IS NULL`, tok).
		Scan(&pa.ID, &pa.SiteID, &pa.Name, &pa.AssetType, &pa.Serial, &pa.Vendor,
			&pa.Status, &pa.PurchaseDate, &pa.Token, &pa.CreatedAt, &pa.UpdatedAt,
			&pa.SiteName)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	rows, err := s.DB.QueryContext(r.Context(), `
		SELECT id, asset_id, title, scheduled_for, status, notes, completed_at, created_at, updated_at
		FROM interventions
		WHERE asset_id = $1 AND status = $2
		ORDER BY scheduled_for ASC`, pa.ID, models.InterventionPlanned)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	pa.OpenInterventions = []models.Intervention{}
	for rows.Next() {
		var iv models.Intervention
		if err := rows.Scan(&iv.ID, &iv.AssetID, &iv.Title, &iv.ScheduledFor, &iv.Status,
			&iv.Notes, &iv.CompletedAt, &iv.CreatedAt, &iv.UpdatedAt); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		pa.OpenInterventions = append(pa.OpenInterventions, iv)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pa)
}
