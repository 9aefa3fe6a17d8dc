package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sitekeeper-api/internal/models"

	"github.com/go-chi/chi/v5"
)

// checklistError is the error envelope for completion failures. ItemID is
// set when a specific checklist item caused the rejection.
type checklistError struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	ItemID *int64 `json:"item_id,omitempty"`
}

func sendChecklistError(w http.ResponseWriter, status int, code, msg string, itemID *int64) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(checklistError{Error: msg, Code: code, ItemID: itemID})
}

func (s *Server) listInterventions(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	if assetID := strings.TrimSpace(r.URL.Query().Get("asset_id")); assetID != "" {
		clauses = append(clauses, fmt.Sprintf("i.asset_id = $%d", arg))
		args = append(args, assetID)
		arg++
	}
	if siteID := strings.TrimSpace(r.URL.Query().Get("site_id")); siteID != "" {
		clauses = append(clauses, fmt.Sprintf("a.site_id = $%d", arg))
		args = append(args, siteID)
		arg++
	}
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		if !models.IsValidInterventionStatus(status) {
			http.Error(w, "invalid status filter", 400)
			return
		}
		clauses = append(clauses, fmt.Sprintf("i.status = $%d", arg))
		args = append(args, status)
		arg++
	}
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("i.title ILIKE $%d", arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	sqlStr := `
		SELECT i.id, i.asset_id, i.title, i.scheduled_for, i.status, i.notes,
		       i.completed_at, i.created_at, i.updated_at,
		       COUNT(*) OVER() as total_count
		FROM interventions i
		JOIN assets a ON a.id = i.asset_id`
	if len(clauses) > 0 {
		sqlStr += " WHERE " + strings.Join(clauses, " AND ")
	}

	allowedSort := map[string]string{
		"id":            "i.id",
		"scheduled_for": "i.scheduled_for",
		"status":        "i.status",
		"created_at":    "i.created_at",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort)
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	interventions := []interface{}{}
	var totalCount int
	for rows.Next() {
		var iv models.Intervention
		if err := rows.Scan(&iv.ID, &iv.AssetID, &iv.Title, &iv.ScheduledFor, &iv.Status,
			&iv.Notes, &iv.CompletedAt, &iv.CreatedAt, &iv.UpdatedAt, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		interventions = append(interventions, iv)
	}

	sendListResponse(w, interventions, totalCount, params)
}

// fetchInterventionDetail loads an intervention with its checklist items and
// any recorded answers
func (s *Server) fetchInterventionDetail(ctx context.Context, id string) (*models.InterventionDetail, error) {
	var detail models.InterventionDetail
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, asset_id, title, scheduled_for, status, notes, completed_at, created_at, updated_at
		FROM interventions WHERE id = $1`, id).
		Scan(&detail.ID, &detail.AssetID, &detail.Title, &detail.ScheduledFor, &detail.Status,
			&detail.Notes, &detail.CompletedAt, &detail.CreatedAt, &detail.UpdatedAt)
	if err != nil {
		return nil, err
	}

	detail.Items, err = loadChecklistItems(ctx, s.DB, detail.ID)
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, intervention_id, item_id, value_bool, value_number, value_text, photo_ref, created_at
		FROM checklist_answers
		WHERE intervention_id = $1
		ORDER BY id`, detail.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	detail.Answers = []models.ChecklistAnswer{}
	for rows.Next() {
		var ans models.ChecklistAnswer
		if err := rows.Scan(&ans.ID, &ans.InterventionID, &ans.ItemID, &ans.ValueBool,
			&ans.ValueNumber, &ans.ValueText, &ans.PhotoRef, &ans.CreatedAt); err != nil {
			return nil, err
		}
		detail.Answers = append(detail.Answers, ans)
	}
	return &detail, rows.Err()
}

func (s *Server) getIntervention(w http.ResponseWriter, r *http.Request) {
	detail, err := s.fetchInterventionDetail(r.Context(), chi.URLParam(r, "id"))
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detail)
}

func (s *Server) createIntervention(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInterventionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if req.AssetID == 0 {
		http.Error(w, "asset_id is required", 400)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		http.Error(w, "title is required", 400)
		return
	}
	if len(req.Items) > 0 && req.TemplateID != nil {
		http.Error(w, "items and template_id are mutually exclusive", 400)
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

	scheduledFor := time.Now()
	if req.ScheduledFor != nil {
		scheduledFor = *req.ScheduledFor
	}

	tx, err := s.DB.BeginTx(r.Context(), nil)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer tx.Rollback()

	var iv models.Intervention
	err = tx.QueryRowContext(r.Context(), `
		INSERT INTO interventions (asset_id, title, scheduled_for, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, asset_id, title, scheduled_for, status, notes, completed_at, created_at, updated_at
	`, req.AssetID, req.Title, scheduledFor, models.InterventionPlanned, nullIfEmpty(req.Notes)).
		Scan(&iv.ID, &iv.AssetID, &iv.Title, &iv.ScheduledFor, &iv.Status, &iv.Notes,
			&iv.CompletedAt, &iv.CreatedAt, &iv.UpdatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			http.Error(w, "asset does not exist", 400)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	if req.TemplateID != nil {
		if err := copyTemplateItems(r.Context(), tx, *req.TemplateID, iv.ID); err != nil {
			if err == sql.ErrNoRows {
				http.Error(w, "template does not exist", 400)
				return
			}
			http.Error(w, err.Error(), 500)
			return
		}
	} else {
		for idx, item := range req.Items {
			pos := idx + 1
			if item.Position != nil {
				pos = *item.Position
			}
			_, err := tx.ExecContext(r.Context(), `
				INSERT INTO checklist_items (intervention_id, position, label, item_type, required, unit)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, iv.ID, pos, item.Label, item.ItemType, item.Required, nullIfEmpty(item.Unit))
			if err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
		}
	}

	items, err := loadChecklistItems(r.Context(), tx, iv.ID)
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
	json.NewEncoder(w).Encode(models.InterventionDetail{Intervention: iv, Items: items})
}

// copyTemplateItems copies a template's items onto an intervention
func copyTemplateItems(ctx context.Context, q querier, templateID, interventionID int64) error {
	var exists bool
	if err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM checklist_templates WHERE id = $1)`, templateID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return sql.ErrNoRows
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO checklist_items (intervention_id, position, label, item_type, required, unit)
		SELECT $2, position, label, item_type, required, unit
		FROM checklist_template_items
		WHERE template_id = $1
		ORDER BY position, id`, templateID, interventionID)
	return err
}

// updateIntervention edits title, schedule, or notes. Only planned
// interventions are editable; completed and skipped ones are frozen history.
func (s *Server) updateIntervention(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.UpdateInterventionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
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
	if req.Title != nil {
		sets = append(sets, set{"title = $%d", *req.Title})
	}
	if req.ScheduledFor != nil {
		sets = append(sets, set{"scheduled_for = $%d", *req.ScheduledFor})
	}
	if req.Notes != nil {
		sets = append(sets, set{"notes = $%d", nullIfEmpty(req.Notes)})
	}
	if len(sets) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	args := make([]interface{}, 0, len(sets)+2)
	sqlStr := "UPDATE interventions SET "
	for i, sset := range sets {
		if i > 0 {
			sqlStr += ", "
		}
		sqlStr += fmt.Sprintf(sset.sql, i+1)
		args = append(args, sset.val)
	}
	sqlStr += fmt.Sprintf(`, updated_at = now()
		WHERE id = $%d AND status = $%d
		RETURNING id, asset_id, title, scheduled_for, status, notes, completed_at, created_at, updated_at`,
		len(args)+1, len(args)+2)
	args = append(args, id, models.InterventionPlanned)

	var iv models.Intervention
	err := s.DB.QueryRowContext(r.Context(), sqlStr, args...).
		Scan(&iv.ID, &iv.AssetID, &iv.Title, &iv.ScheduledFor, &iv.Status, &iv.Notes,
			&iv.CompletedAt, &iv.CreatedAt, &iv.UpdatedAt)
	if err == sql.ErrNoRows {
		// either absent or no longer planned; distinguish for the caller
		var status string
		if e := s.DB.QueryRowContext(r.Context(),
			`SELECT status FROM interventions WHERE id = $1`, id).Scan(&status); e == nil {
			http.Error(w, "intervention is "+status, http.StatusConflict)
			return
		}
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(iv)
}

func (s *Server) deleteIntervention(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.DB.ExecContext(r.Context(),
		`DELETE FROM interventions WHERE id = $1 AND status = $2`, id, models.InterventionPlanned)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var status string
		if e := s.DB.QueryRowContext(r.Context(),
			`SELECT status FROM interventions WHERE id = $1`, id).Scan(&status); e == nil {
			http.Error(w, "intervention is "+status, http.StatusConflict)
			return
		}
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// addChecklistItem appends one item to a planned intervention's checklist
func (s *Server) addChecklistItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.CreateChecklistItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if strings.TrimSpace(req.Label) == "" {
		http.Error(w, "label is required", 400)
		return
	}
	if !models.IsValidItemType(req.ItemType) {
		http.Error(w, fmt.Sprintf("invalid item_type %q", req.ItemType), 400)
		return
	}

	var status string
	err := s.DB.QueryRowContext(r.Context(),
		`SELECT status FROM interventions WHERE id = $1`, id).Scan(&status)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if status != models.InterventionPlanned {
		http.Error(w, "intervention is "+status, http.StatusConflict)
		return
	}

	var item models.ChecklistItem
	if req.Position != nil {
		err = s.DB.QueryRowContext(r.Context(), `
			INSERT INTO checklist_items (intervention_id, position, label, item_type, required, unit)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, intervention_id, position, label, item_type, required, unit
		`, id, *req.Position, req.Label, req.ItemType, req.Required, nullIfEmpty(req.Unit)).
			Scan(&item.ID, &item.InterventionID, &item.Position, &item.Label, &item.ItemType, &item.Required, &item.Unit)
	} else {
		err = s.DB.QueryRowContext(r.Context(), `
			INSERT INTO checklist_items (intervention_id, position, label, item_type, required, unit)
			SELECT $1, COALESCE(MAX(position), 0) + 1, $2, $3, $4, $5
			FROM checklist_items WHERE intervention_id = $1
			RETURNING id, intervention_id, position, label, item_type, required, unit
		`, id, req.Label, req.ItemType, req.Required, nullIfEmpty(req.Unit)).
			Scan(&item.ID, &item.InterventionID, &item.Position, &item.Label, &item.ItemType, &item.Required, &item.Unit)
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(item)
}

// applyTemplate copies a template's items onto a planned intervention
func (s *Server) applyTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.ApplyTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if req.TemplateID == 0 {
		http.Error(w, "template_id is required", 400)
		return
	}

	interventionID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var status string
	err = s.DB.QueryRowContext(r.Context(),
		`SELECT status FROM interventions WHERE id = $1`, interventionID).Scan(&status)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if status != models.InterventionPlanned {
		http.Error(w, "intervention is "+status, http.StatusConflict)
		return
	}

	if err := copyTemplateItems(r.Context(), s.DB, req.TemplateID, interventionID); err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "template does not exist", 400)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	items, err := loadChecklistItems(r.Context(), s.DB, interventionID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// completeIntervention submits checklist answers and completes the
// intervention. All answers persist together or not at all.
func (s *Server) completeIntervention(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var req models.CompleteInterventionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	detail, err := completeChecklist(r.Context(), s.DB, id, req.Answers)
	if err != nil {
		writeCompletionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detail)
}

// skipInterventionHandler marks a planned intervention as skipped without
// any checklist answers
func (s *Server) skipInterventionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	iv, err := skipIntervention(r.Context(), s.DB, id)
	if err != nil {
		writeCompletionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(iv)
}

// writeCompletionError maps checklist engine errors to HTTP responses:
// 404 unknown intervention, 409 state conflicts, 422 checklist rejections.
func writeCompletionError(w http.ResponseWriter, err error) {
	var missing *MissingRequiredAnswerError
	var mismatch *TypeMismatchError
	var unknownItem *UnknownItemError
	var dup *DuplicateAnswerError
	var unknownPhoto *UnknownPhotoError

	switch {
	case err == sql.ErrNoRows:
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrAlreadyCompleted):
		sendChecklistError(w, http.StatusConflict, "already_completed", err.Error(), nil)
	case errors.Is(err, ErrAlreadySkipped):
		sendChecklistError(w, http.StatusConflict, "already_skipped", err.Error(), nil)
	case errors.As(err, &missing):
		sendChecklistError(w, http.StatusUnprocessableEntity, "missing_required_answer", err.Error(), &missing.ItemID)
	case errors.As(err, &mismatch):
		sendChecklistError(w, http.StatusUnprocessableEntity, "type_mismatch", err.Error(), &mismatch.ItemID)
	case errors.As(err, &unknownItem):
		sendChecklistError(w, http.StatusUnprocessableEntity, "unknown_item", err.Error(), &unknownItem.ItemID)
	case errors.As(err, &dup):
		sendChecklistError(w, http.StatusUnprocessableEntity, "duplicate_answer", err.Error(), &dup.ItemID)
	case errors.As(err, &unknownPhoto):
		sendChecklistError(w, http.StatusUnprocessableEntity, "unknown_photo", err.Error(), &unknownPhoto.ItemID)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
