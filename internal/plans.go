package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sitekeeper-api/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	if siteID := strings.TrimSpace(r.URL.Query().Get("site_id")); siteID != "" {
		clauses = append(clauses, fmt.Sprintf("site_id = $%d", arg))
		args = append(args, siteID)
		arg++
	}
	if active := strings.TrimSpace(r.URL.Query().Get("active")); active != "" {
		clauses = append(clauses, fmt.Sprintf("active = $%d", arg))
		args = append(args, active == "true")
		arg++
	}
	if due := strings.TrimSpace(r.URL.Query().Get("due")); due == "true" {
		clauses = append(clauses, "next_due IS NOT NULL AND next_due <= now()")
	}
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("title ILIKE $%d", arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	sqlStr := `
		SELECT id, site_id, asset_id, title, frequency, next_due, active,
		       created_at, updated_at,
		       COUNT(*) OVER() as total_count
		FROM maintenance_plans`
	if len(clauses) > 0 {
		sqlStr += " WHERE " + strings.Join(clauses, " AND ")
	}

	allowedSort := map[string]string{
		"id":       "id",
		"title":    "title",
		"next_due": "next_due",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort)
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	plans := []interface{}{}
	var totalCount int
	for rows.Next() {
		var p models.MaintenancePlan
		if err := rows.Scan(&p.ID, &p.SiteID, &p.AssetID, &p.Title, &p.Frequency, &p.NextDue,
			&p.Active, &p.CreatedAt, &p.UpdatedAt, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		plans = append(plans, p)
	}

	sendListResponse(w, plans, totalCount, params)
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var p models.MaintenancePlan
	err := s.DB.QueryRowContext(r.Context(), `
		SELECT id, site_id, asset_id, title, frequency, next_due, active, created_at, updated_at
		FROM maintenance_plans WHERE id = $1`, id).
		Scan(&p.ID, &p.SiteID, &p.AssetID, &p.Title, &p.Frequency, &p.NextDue, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if req.SiteID == 0 {
		http.Error(w, "site_id is required", 400)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		http.Error(w, "title is required", 400)
		return
	}
	if !models.IsValidFrequency(req.Frequency) {
		http.Error(w, "invalid frequency", 400)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	nextDue := req.NextDue
	if nextDue == nil {
		// first occurrence one period from now
		d := models.NextAfter(req.Frequency, time.Now())
		nextDue = &d
	}

	var p models.MaintenancePlan
	err := s.DB.QueryRowContext(r.Context(), `
		INSERT INTO maintenance_plans (site_id, asset_id, title, frequency, next_due, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, site_id, asset_id, title, frequency, next_due, active, created_at, updated_at
	`, req.SiteID, req.AssetID, req.Title, req.Frequency, nextDue, active).
		Scan(&p.ID, &p.SiteID, &p.AssetID, &p.Title, &p.Frequency, &p.NextDue, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			http.Error(w, "site or asset does not exist", 400)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(p)
}

func (s *Server) updatePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.UpdatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if req.Frequency != nil && !models.IsValidFrequency(*req.Frequency) {
		http.Error(w, "invalid frequency", 400)
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		http.Error(w, "title cannot be empty", 400)
		return
	}

	type set struct {
		sql string
		val interface{}
	}
	sets := []set{}
	if req.AssetID != nil {
		sets = append(sets, set{"asset_id = $%d", *req.AssetID})
	}
	if req.Title != nil {
		sets = append(sets, set{"title = $%d", *req.Title})
	}
	if req.Frequency != nil {
		sets = append(sets, set{"frequency = $%d", *req.Frequency})
	}
	if req.NextDue != nil {
		sets = append(sets, set{"next_due = $%d", *req.NextDue})
	}
	if req.Active != nil {
		sets = append(sets, set{"active = $%d", *req.Active})
	}
	if len(sets) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	args := make([]interface{}, 0, len(sets)+1)
	sqlStr := "UPDATE maintenance_plans SET "
	for i, sset := range sets {
		if i > 0 {
			sqlStr += ", "
		}
		sqlStr += fmt.Sprintf(sset.sql, i+1)
		args = append(args, sset.val)
	}
	sqlStr += fmt.Sprintf(`, updated_at = now() WHERE id = $%d
		RETURNING id, site_id, asset_id, title, frequency, next_due, active, created_at, updated_at`, len(args)+1)
	args = append(args, id)

	var p models.MaintenancePlan
	err := s.DB.QueryRowContext(r.Context(), sqlStr, args...).
		Scan(&p.ID, &p.SiteID, &p.AssetID, &p.Title, &p.Frequency, &p.NextDue, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

func (s *Server) deletePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM maintenance_plans WHERE id = $1`, id)
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

// materializePlan creates the plan's next intervention and advances
// next_due by one period. Plans without an asset only advance the date;
// there is nothing to schedule against.
func (s *Server) materializePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tx, err := s.DB.BeginTx(r.Context(), nil)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer tx.Rollback()

	var p models.MaintenancePlan
	err = tx.QueryRowContext(r.Context(), `
		SELECT id, site_id, asset_id, title, frequency, next_due, active, created_at, updated_at
		FROM maintenance_plans WHERE id = $1
		FOR UPDATE`, id).
		Scan(&p.ID, &p.SiteID, &p.AssetID, &p.Title, &p.Frequency, &p.NextDue, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if !p.Active {
		http.Error(w, "plan is inactive", http.StatusConflict)
		return
	}

	due := time.Now()
	if p.NextDue != nil {
		due = *p.NextDue
	}

	var created *models.Intervention
	if p.AssetID != nil {
		var iv models.Intervention
		err = tx.QueryRowContext(r.Context(), `
			INSERT INTO interventions (asset_id, title, scheduled_for, status)
			VALUES ($1, $2, $3, $4)
			RETURNING id, asset_id, title, scheduled_for, status, notes, completed_at, created_at, updated_at
		`, *p.AssetID, p.Title, due, models.InterventionPlanned).
			Scan(&iv.ID, &iv.AssetID, &iv.Title, &iv.ScheduledFor, &iv.Status, &iv.Notes,
				&iv.CompletedAt, &iv.CreatedAt, &iv.UpdatedAt)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		created = &iv
	}

	next := models.NextAfter(p.Frequency, due)
	err = tx.QueryRowContext(r.Context(), `
		UPDATE maintenance_plans SET next_due = $2, updated_at = now()
		WHERE id = $1
		RETURNING next_due, updated_at`, p.ID, next).Scan(&p.NextDue, &p.UpdatedAt)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(struct {
		Plan         models.MaintenancePlan `json:"plan"`
		Intervention *models.Intervention   `json:"intervention,omitempty"`
	}{Plan: p, Intervention: created})
}
