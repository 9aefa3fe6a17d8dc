package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"sitekeeper-api/internal/models"

	"github.com/lib/pq"
)

// maxTextAnswerLen caps text answers; anything longer is rejected, never
// truncated.
const maxTextAnswerLen = 2000

// maxPhotoHandleLen matches the attachments.handle column width
const maxPhotoHandleLen = 128

// validateAnswers checks the submitted answers against the intervention's
// checklist definition and returns the rows to persist, ordered by item
// position. It is pure: no store access, no mutation of its arguments.
//
// A null (or omitted) value counts as no answer: allowed for optional
// items, reported as missing for required ones.
func validateAnswers(items []models.ChecklistItem, inputs []models.AnswerInput) ([]models.ChecklistAnswer, error) {
	byID := make(map[int64]models.ChecklistItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	answered := make(map[int64]models.ChecklistAnswer, len(inputs))
	seen := make(map[int64]bool, len(inputs))
	for _, in := range inputs {
		item, ok := byID[in.ItemID]
		if !ok {
			return nil, &UnknownItemError{ItemID: in.ItemID}
		}
		// null entries count as duplicates too, so they are tracked
		// separately from the recorded answers
		if seen[in.ItemID] {
			return nil, &DuplicateAnswerError{ItemID: in.ItemID}
		}
		seen[in.ItemID] = true
		if isJSONNull(in.Value) {
			continue // absent answer; required-ness is checked below
		}

		ans := models.ChecklistAnswer{InterventionID: item.InterventionID, ItemID: item.ID}
		switch item.ItemType {
		case models.ItemTypeBoolean:
			var v bool
			if err := json.Unmarshal(in.Value, &v); err != nil {
				return nil, &TypeMismatchError{ItemID: item.ID, Expected: item.ItemType}
			}
			ans.ValueBool = &v
		case models.ItemTypeNumber:
			var v float64
			if err := json.Unmarshal(in.Value, &v); err != nil {
				return nil, &TypeMismatchError{ItemID: item.ID, Expected: item.ItemType}
			}
			ans.ValueNumber = &v
		case models.ItemTypeText:
			var v string
			if err := json.Unmarshal(in.Value, &v); err != nil || len(v) > maxTextAnswerLen {
				return nil, &TypeMismatchError{ItemID: item.ID, Expected: item.ItemType}
			}
			ans.ValueText = &v
		case models.ItemTypePhoto:
			var v string
			if err := json.Unmarshal(in.Value, &v); err != nil || v == "" || len(v) > maxPhotoHandleLen {
				return nil, &TypeMismatchError{ItemID: item.ID, Expected: item.ItemType}
			}
			ans.PhotoRef = &v
		default:
			// item types are constrained by the schema; reaching this is a bug
			return nil, fmt.Errorf("checklist item %d has unsupported type %q", item.ID, item.ItemType)
		}
		answered[item.ID] = ans
	}

	for _, item := range items {
		if item.Required {
			if _, ok := answered[item.ID]; !ok {
				return nil, &MissingRequiredAnswerError{ItemID: item.ID}
			}
		}
	}

	position := make(map[int64]int, len(items))
	for idx, item := range items {
		position[item.ID] = idx
	}
	out := make([]models.ChecklistAnswer, 0, len(answered))
	for _, ans := range answered {
		out = append(out, ans)
	}
	sort.Slice(out, func(i, j int) bool { return position[out[i].ItemID] < position[out[j].ItemID] })
	return out, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// completeChecklist validates the submitted answers and completes the
// intervention in a single transaction. The FOR UPDATE lock serializes
// concurrent completion attempts: one wins, the rest observe the final
// status and fail with a conflict. On any error nothing is persisted and
// the intervention stays planned.
func completeChecklist(ctx context.Context, db *sql.DB, interventionID int64, inputs []models.AnswerInput) (*models.InterventionDetail, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var iv models.Intervention
	err = tx.QueryRowContext(ctx, `
		SELECT id, asset_id, title, scheduled_for, status, notes, completed_at, created_at, updated_at
		FROM interventions WHERE id = $1
		FOR UPDATE`, interventionID).
		Scan(&iv.ID, &iv.AssetID, &iv.Title, &iv.ScheduledFor, &iv.Status, &iv.Notes, &iv.CompletedAt, &iv.CreatedAt, &iv.UpdatedAt)
	if err != nil {
		return nil, err // sql.ErrNoRows maps to 404 at the handler
	}

	switch iv.Status {
	case models.InterventionCompleted:
		return nil, ErrAlreadyCompleted
	case models.InterventionSkipped:
		return nil, ErrAlreadySkipped
	}

	items, err := loadChecklistItems(ctx, tx, interventionID)
	if err != nil {
		return nil, err
	}

	answers, err := validateAnswers(items, inputs)
	if err != nil {
		return nil, err
	}

	if err := verifyPhotoHandles(ctx, tx, answers); err != nil {
		return nil, err
	}

	for i := range answers {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO checklist_answers (intervention_id, item_id, value_bool, value_number, value_text, photo_ref)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`, answers[i].InterventionID, answers[i].ItemID, answers[i].ValueBool, answers[i].ValueNumber, answers[i].ValueText, answers[i].PhotoRef).
			Scan(&answers[i].ID, &answers[i].CreatedAt)
		if err != nil {
			return nil, err
		}
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE interventions
		SET status = $2, completed_at = now(), updated_at = now()
		WHERE id = $1
		RETURNING status, completed_at, updated_at
	`, interventionID, models.InterventionCompleted).
		Scan(&iv.Status, &iv.CompletedAt, &iv.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.InterventionDetail{Intervention: iv, Items: items, Answers: answers}, nil
}

// skipIntervention explicitly transitions a planned intervention to
// skipped. Same locking discipline as completion.
func skipIntervention(ctx context.Context, db *sql.DB, interventionID int64) (*models.Intervention, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var iv models.Intervention
	err = tx.QueryRowContext(ctx, `
		SELECT id, asset_id, title, scheduled_for, status, notes, completed_at, created_at, updated_at
		FROM interventions WHERE id = $1
		FOR UPDATE`, interventionID).
		Scan(&iv.ID, &iv.AssetID, &iv.Title, &iv.ScheduledFor, &iv.Status, &iv.Notes, &iv.CompletedAt, &iv.CreatedAt, &iv.UpdatedAt)
	if err != nil {
		return nil, err
	}

	switch iv.Status {
	case models.InterventionCompleted:
		return nil, ErrAlreadyCompleted
	case models.InterventionSkipped:
		return nil, ErrAlreadySkipped
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE interventions SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING status, updated_at
	`, interventionID, models.InterventionSkipped).Scan(&iv.Status, &iv.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &iv, nil
}

func loadChecklistItems(ctx context.Context, q querier, interventionID int64) ([]models.ChecklistItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, intervention_id, position, label, item_type, required, unit
		FROM checklist_items
		WHERE intervention_id = $1
		ORDER BY position, id`, interventionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.ChecklistItem{}
	for rows.Next() {
		var item models.ChecklistItem
		if err := rows.Scan(&item.ID, &item.InterventionID, &item.Position, &item.Label, &item.ItemType, &item.Required, &item.Unit); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// verifyPhotoHandles checks that every photo answer references an existing
// upload. Runs inside the completion transaction so the handle cannot
// disappear between check and commit.
func verifyPhotoHandles(ctx context.Context, tx *sql.Tx, answers []models.ChecklistAnswer) error {
	handles := []string{}
	byHandle := map[string]int64{}
	for _, ans := range answers {
		if ans.PhotoRef != nil {
			handles = append(handles, *ans.PhotoRef)
			byHandle[*ans.PhotoRef] = ans.ItemID
		}
	}
	if len(handles) == 0 {
		return nil
	}

	rows, err := tx.QueryContext(ctx, `SELECT handle FROM attachments WHERE handle = ANY($1)`, pq.Array(handles))
	if err != nil {
		return err
	}
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return err
		}
		found[h] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, h := range handles {
		if !found[h] {
			return &UnknownPhotoError{ItemID: byHandle[h], Handle: h}
		}
	}
	return nil
}
