package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"sitekeeper-api/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	if siteID := strings.TrimSpace(r.URL.Query().Get("site_id")); siteID != "" {
		// site-scoped plus shared templates
		clauses = append(clauses, fmt.Sprintf("(site_id = $%d OR site_id IS NULL)", arg))
		args = append(args, siteID)
		arg++
	}
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("name ILIKE $%d", arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	sqlStr := `
		SELECT id, site_id, name, created_at, updated_at,
		       COUNT(*) OVER() as total_count
		FROM checklist_templates`
	if len(clauses) > 0 {
		sqlStr += " WHERE " + strings.Join(clauses, " AND ")
	}

	allowedSort := map[string]string{
		"id":         "id",
		"name":       "name",
		"created_at": "created_at",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort)
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	templates := []interface{}{}
	var totalCount int
	for rows.Next() {
		var tpl models.ChecklistTemplate
		if err := rows.Scan(&tpl.ID, &tpl.SiteID, &tpl.Name, &tpl.CreatedAt, &tpl.UpdatedAt, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		templates = append(templates, tpl)
	}

	sendListResponse(w, templates, totalCount, params)
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var tpl models.ChecklistTemplate
	err := s.DB.QueryRowContext(r.Context(), `
		SELECT id, site_id, name, created_at, updated_at
		FROM checklist_templates WHERE id = $1`, id).
		Scan(&tpl.ID, &tpl.SiteID, &tpl.Name, &tpl.CreatedAt, &tpl.UpdatedAt)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	tpl.Items, err = s.loadTemplateItems(r.Context(), tpl.ID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tpl)
}

func (s *Server) loadTemplateItems(ctx context.Context, templateID int64) ([]models.ChecklistTemplateItem, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, template_id, position, label, item_type, required, unit
		FROM checklist_template_items
		WHERE template_id = $1
		ORDER BY position, id`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.ChecklistTemplateItem{}
	for rows.Next() {
		var item models.ChecklistTemplateItem
		if err := rows.Scan(&item.ID, &item.TemplateID, &item.Position, &item.Label,
			&item.ItemType, &item.Required, &item.Unit); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Server) createTemplate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", 400)
		return
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.Label) == "" {
			http.Error(w, "item label is required", 400)
			return
		}
		if !models.IsValidItemType(item.ItemType) {
			http.Error(w, fmt.Sprintf("invalid item_type %q", item.ItemType), 400)
			return
		}
	}

	tx, err := s.DB.BeginTx(r.Context(), nil)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer tx.Rollback()

	var tpl models.ChecklistTemplate
	err = tx.QueryRowContext(r.Context(), `
		INSERT INTO checklist_templates (site_id, name)
		VALUES ($1, $2)
		RETURNING id, site_id, name, created_at, updated_at
	`, req.SiteID, req.Name).
		Scan(&tpl.ID, &tpl.SiteID, &tpl.Name, &tpl.CreatedAt, &tpl.UpdatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			http.Error(w, "site does not exist", 400)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	tpl.Items = []models.ChecklistTemplateItem{}
	for idx, item := range req.Items {
		pos := idx + 1
		if item.Position != nil {
			pos = *item.Position
		}
		var out models.ChecklistTemplateItem
		err := tx.QueryRowContext(r.Context(), `
			INSERT INTO checklist_template_items (template_id, position, label, item_type, required, unit)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, template_id, position, label, item_type, required, unit
		`, tpl.ID, pos, item.Label, item.ItemType, item.Required, nullIfEmpty(item.Unit)).
			Scan(&out.ID, &out.TemplateID, &out.Position, &out.Label, &out.ItemType, &out.Required, &out.Unit)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		tpl.Items = append(tpl.Items, out)
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tpl)
}

func (s *Server) updateTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.UpdateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
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
	if req.Name != nil {
		sets = append(sets, set{"name = $%d", *req.Name})
	}
	if req.SiteID != nil {
		sets = append(sets, set{"site_id = $%d", *req.SiteID})
	}
	if len(sets) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	args := make([]interface{}, 0, len(sets)+1)
	sqlStr := "UPDATE checklist_templates SET "
	for i, sset := range sets {
		if i > 0 {
			sqlStr += ", "
		}
		sqlStr += fmt.Sprintf(sset.sql, i+1)
		args = append(args, sset.val)
	}
	sqlStr += fmt.Sprintf(", updated_at = now() WHERE id = $%d RETURNING id, site_id, name, created_at, updated_at", len(args)+1)
	args = append(args, id)

	var tpl models.ChecklistTemplate
	err := s.DB.QueryRowContext(r.Context(), sqlStr, args...).
		Scan(&tpl.ID, &tpl.SiteID, &tpl.Name, &tpl.CreatedAt, &tpl.UpdatedAt)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tpl)
}

// deleteTemplate removes a template and its items. Interventions that copied
// the template keep their own items; deletion never reaches them.
func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM checklist_templates WHERE id = $1`, id)
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
