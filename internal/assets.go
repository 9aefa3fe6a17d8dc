package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"sitekeeper-api/internal/models"
	"sitekeeper-api/internal/token"

	"github.com/go-chi/chi/v5"
)

// tokenExists reports whether any asset row, live or soft-deleted, holds the
// candidate token. Retired tokens stay in the table so they can never be
// reissued.
func (s *Server) tokenExists(ctx context.Context, candidate string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM assets WHERE token = $1)`, candidate).Scan(&exists)
	return exists, err
}

func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	clauses := []string{"a.deleted_at IS NULL"}
	args := []interface{}{}
	arg := 1

	if siteID := strings.TrimSpace(r.URL.Query().Get("site_id")); siteID != "" {
		clauses = append(clauses, fmt.Sprintf("a.site_id = $%d", arg))
		args = append(args, siteID)
		arg++
	}
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		if !models.IsValidAssetStatus(status) {
			http.Error(w, "invalid status filter", 400)
			return
		}
		clauses = append(clauses, fmt.Sprintf("a.status = $%d", arg))
		args = append(args, status)
		arg++
	}
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(a.name ILIKE $%d OR a.serial ILIKE $%d OR a.vendor ILIKE $%d)", arg, arg, arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	sqlStr := `
		SELECT a.id, a.site_id, a.name, a.asset_type, a.serial, a.vendor,
		       a.status, a.purchase_date, a.token, a.created_at, a.updated_at,
		       COUNT(*) OVER() as total_count
		FROM assets a
		WHERE ` + strings.Join(clauses, " AND ")

	allowedSort := map[string]string{
		"id":         "a.id",
		"name":       "a.name",
		"status":     "a.status",
		"created_at": "a.created_at",
		"updated_at": "a.updated_at",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort)
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	assets := []interface{}{}
	var totalCount int
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.ID, &a.SiteID, &a.Name, &a.AssetType, &a.Serial, &a.Vendor,
			&a.Status, &a.PurchaseDate, &a.Token, &a.CreatedAt, &a.UpdatedAt, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		assets = append(assets, a)
	}

	sendListResponse(w, assets, totalCount, params)
}

func (s *Server) getAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := s.fetchAsset(r.Context(), id)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a)
}

func (s *Server) fetchAsset(ctx context.Context, id string) (*models.Asset, error) {
	var a models.Asset
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, site_id, name, asset_type, serial, vendor, status,
		       purchase_date, token, created_at, updated_at
		FROM assets WHERE id = $1 AND deleted_at IS NULL`, id).
		Scan(&a.ID, &a.SiteID, &a.Name, &a.AssetType, &a.Serial, &a.Vendor, &a.Status,
			&a.PurchaseDate, &a.Token, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Server) createAsset(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if req.SiteID == 0 {
		http.Error(w, "site_id is required", 400)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", 400)
		return
	}
	status := models.AssetStatusActive
	if req.Status != nil {
		if !models.IsValidAssetStatus(*req.Status) {
			http.Error(w, "invalid status", 400)
			return
		}
		status = *req.Status
	}

	// The token is issued server-side, exactly once. Collisions against any
	// past or present token force a regeneration.
	tok, err := token.Generate(r.Context(), s.tokenExists)
	if err != nil {
		http.Error(w, "could not issue token", 500)
		return
	}

	var a models.Asset
	err = s.DB.QueryRowContext(r.Context(), `
		INSERT INTO assets (site_id, name, asset_type, serial, vendor, status, purchase_date, token)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, site_id, name, asset_type, serial, vendor, status,
		          purchase_date, token, created_at, updated_at
	`, req.SiteID, req.Name, nullIfEmpty(req.AssetType), nullIfEmpty(req.Serial),
		nullIfEmpty(req.Vendor), status, req.PurchaseDate, tok).
		Scan(&a.ID, &a.SiteID, &a.Name, &a.AssetType, &a.Serial, &a.Vendor, &a.Status,
			&a.PurchaseDate, &a.Token, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			http.Error(w, "site does not exist", 400)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(a)
}

func (s *Server) updateAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.UpdateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if req.Status != nil && !models.IsValidAssetStatus(*req.Status) {
		http.Error(w, "invalid status", 400)
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		http.Error(w, "name cannot be empty", 400)
		return
	}

	type set struct {
		sql string
		val interface{}
	}
	sets := []set{}
	if req.SiteID != nil {
		sets = append(sets, set{"site_id = $%d", *req.SiteID})
	}
	if req.Name != nil {
		sets = append(sets, set{"name = $%d", *req.Name})
	}
	if req.AssetType != nil {
		sets = append(sets, set{"asset_type = $%d", nullIfEmpty(req.AssetType)})
	}
	if req.Serial != nil {
		sets = append(sets, set{"serial = $%d", nullIfEmpty(req.Serial)})
	}
	if req.Vendor != nil {
		sets = append(sets, set{"vendor = $%d", nullIfEmpty(req.Vendor)})
	}
	if req.Status != nil {
		sets = append(sets, set{"status = $%d", *req.Status})
	}
	if req.PurchaseDate != nil {
		sets = append(sets, set{"purchase_date = $%d", *req.PurchaseDate})
	}
	if len(sets) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	args := make([]interface{}, 0, len(sets)+1)
	sqlStr := "UPDATE assets SET "
	for i, sset := range sets {
		if i > 0 {
			sqlStr += ", "
		}
		sqlStr += fmt.Sprintf(sset.sql, i+1)
		args = append(args, sset.val)
	}
	sqlStr += fmt.Sprintf(`, updated_at = now()
		WHERE id = $%d AND deleted_at IS NULL
		RETURNING id, site_id, name, asset_type, serial, vendor, status,
		          purchase_date, token, created_at, updated_at`, len(args)+1)
	args = append(args, id)

	var a models.Asset
	err := s.DB.QueryRowContext(r.Context(), sqlStr, args...).
		Scan(&a.ID, &a.SiteID, &a.Name, &a.AssetType, &a.Serial, &a.Vendor, &a.Status,
			&a.PurchaseDate, &a.Token, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a)
}

// deleteAsset soft-deletes: the row and its token stay behind so that the
// printed QR code resolves to 404 forever instead of pointing at a future
// stranger's asset.
func (s *Server) deleteAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.DB.ExecContext(r.Context(), `
		UPDATE assets
		SET deleted_at = now(), status = $1, updated_at = now()
		WHERE id = $2 AND deleted_at IS NULL`, models.AssetStatusDisposed, id)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
