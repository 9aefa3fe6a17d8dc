//go:build integration

package tests

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"sitekeeper-api/internal/testutil"
)

// createInterventionWithChecklist sets up one planned intervention with a
// required boolean and an optional number item, returning the intervention
// and item IDs
func createInterventionWithChecklist(t *testing.T, assetID int64) (int64, int64, int64) {
	t.Helper()

	w := doJSON(t, "POST", "/interventions", adminToken(t), map[string]interface{}{
		"asset_id": assetID,
		"title":    "Quarterly inspection",
		"items": []map[string]interface{}{
			{"label": "Pressure OK", "item_type": "boolean", "required": true},
			{"label": "Pressure reading", "item_type": "number", "unit": "bar"},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create intervention: %d %s", w.Code, w.Body.String())
	}

	var detail struct {
		ID    int64 `json:"id"`
		Items []struct {
			ID int64 `json:"id"`
		} `json:"items"`
	}
	decodeBody(t, w, &detail)
	if len(detail.Items) != 2 {
		t.Fatalf("Expected 2 checklist items, got %d", len(detail.Items))
	}
	return detail.ID, detail.Items[0].ID, detail.Items[1].ID
}

func TestCompleteInterventionHappyPath(t *testing.T) {
	testutil.RequireIntegration(t)

	siteID := createTestSite(t, "Completion site")
	assetID, _ := createTestAsset(t, siteID, "Inspected pump")
	ivID, boolItem, numItem := createInterventionWithChecklist(t, assetID)

	w := doJSON(t, "POST", fmt.Sprintf("/interventions/%d/complete", ivID), caretakerToken(t), map[string]interface{}{
		"answers": []map[string]interface{}{
			{"item_id": boolItem, "value": true},
			{"item_id": numItem, "value": 2.4},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var detail struct {
		Status      string `json:"status"`
		CompletedAt string `json:"completed_at"`
		Answers     []struct {
			ItemID int64 `json:"item_id"`
		} `json:"answers"`
	}
	decodeBody(t, w, &detail)
	if detail.Status != "completed" {
		t.Errorf("Expected status completed, got %s", detail.Status)
	}
	if detail.CompletedAt == "" {
		t.Error("Expected completed_at to be set")
	}
	if len(detail.Answers) != 2 {
		t.Errorf("Expected 2 answers, got %d", len(detail.Answers))
	}

	// second attempt observes the final state
	w = doJSON(t, "POST", fmt.Sprintf("/interventions/%d/complete", ivID), caretakerToken(t), map[string]interface{}{
		"answers": []map[string]interface{}{
			{"item_id": boolItem, "value": true},
		},
	})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 on repeat completion, got %d", w.Code)
	}
}

func TestCompleteInterventionAllOrNothing(t *testing.T) {
	testutil.RequireIntegration(t)

	siteID := createTestSite(t, "Atomicity site")
	assetID, _ := createTestAsset(t, siteID, "Atomic pump")
	ivID, boolItem, numItem := createInterventionWithChecklist(t, assetID)

	// missing required boolean: rejected, nothing persists
	w := doJSON(t, "POST", fmt.Sprintf("/interventions/%d/complete", ivID), caretakerToken(t), map[string]interface{}{
		"answers": []map[string]interface{}{
			{"item_id": numItem, "value": 1.0},
		},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", w.Code, w.Body.String())
	}
	var errResp struct {
		Code   string `json:"code"`
		ItemID int64  `json:"item_id"`
	}
	decodeBody(t, w, &errResp)
	if errResp.Code != "missing_required_answer" {
		t.Errorf("Expected missing_required_answer, got %s", errResp.Code)
	}
	if errResp.ItemID != boolItem {
		t.Errorf("Expected item_id %d, got %d", boolItem, errResp.ItemID)
	}

	// type mismatch: also rejected
	w = doJSON(t, "POST", fmt.Sprintf("/interventions/%d/complete", ivID), caretakerToken(t), map[string]interface{}{
		"answers": []map[string]interface{}{
			{"item_id": boolItem, "value": "yes"},
		},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", w.Code, w.Body.String())
	}

	// no partial answers persisted, intervention still planned
	var answerCount int
	if err := testDB.QueryRow(
		`SELECT COUNT(*) FROM checklist_answers WHERE intervention_id = $1`, ivID).Scan(&answerCount); err != nil {
		t.Fatal(err)
	}
	if answerCount != 0 {
		t.Errorf("Expected 0 persisted answers after failed completion, got %d", answerCount)
	}

	var status string
	if err := testDB.QueryRow(
		`SELECT status FROM interventions WHERE id = $1`, ivID).Scan(&status); err != nil {
		t.Fatal(err)
	}
	if status != "planned" {
		t.Errorf("Expected intervention to stay planned, got %s", status)
	}
}

func TestConcurrentCompletionOneWinner(t *testing.T) {
	testutil.RequireIntegration(t)

	siteID := createTestSite(t, "Race site")
	assetID, _ := createTestAsset(t, siteID, "Contended pump")
	ivID, boolItem, _ := createInterventionWithChecklist(t, assetID)

	answers := map[string]interface{}{
		"answers": []map[string]interface{}{
			{"item_id": boolItem, "value": true},
		},
	}

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := doJSON(t, "POST", fmt.Sprintf("/interventions/%d/complete", ivID), caretakerToken(t), answers)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	ok, conflict := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		default:
			t.Errorf("Unexpected status %d", code)
		}
	}
	if ok != 1 || conflict != 1 {
		t.Errorf("Expected exactly one winner and one conflict, got %d ok / %d conflict", ok, conflict)
	}

	// exactly one set of answers persisted
	var answerCount int
	if err := testDB.QueryRow(
		`SELECT COUNT(*) FROM checklist_answers WHERE intervention_id = $1`, ivID).Scan(&answerCount); err != nil {
		t.Fatal(err)
	}
	if answerCount != 1 {
		t.Errorf("Expected 1 persisted answer, got %d", answerCount)
	}
}

func TestSkipIntervention(t *testing.T) {
	testutil.RequireIntegration(t)

	siteID := createTestSite(t, "Skip site")
	assetID, _ := createTestAsset(t, siteID, "Skipped pump")
	ivID, boolItem, _ := createInterventionWithChecklist(t, assetID)

	w := doJSON(t, "POST", fmt.Sprintf("/interventions/%d/skip", ivID), adminToken(t), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// completing a skipped intervention conflicts
	w = doJSON(t, "POST", fmt.Sprintf("/interventions/%d/complete", ivID), caretakerToken(t), map[string]interface{}{
		"answers": []map[string]interface{}{
			{"item_id": boolItem, "value": true},
		},
	})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", w.Code)
	}
	var errResp struct {
		Code string `json:"code"`
	}
	decodeBody(t, w, &errResp)
	if errResp.Code != "already_skipped" {
		t.Errorf("Expected already_skipped, got %s", errResp.Code)
	}
}

func TestPhotoAnswerRequiresUpload(t *testing.T) {
	testutil.RequireIntegration(t)

	siteID := createTestSite(t, "Photo site")
	assetID, _ := createTestAsset(t, siteID, "Photographed pump")

	w := doJSON(t, "POST", "/interventions", adminToken(t), map[string]interface{}{
		"asset_id": assetID,
		"title":    "Photo check",
		"items": []map[string]interface{}{
			{"label": "Photo of gauge", "item_type": "photo", "required": true},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create intervention: %d %s", w.Code, w.Body.String())
	}
	var detail struct {
		ID    int64 `json:"id"`
		Items []struct {
			ID int64 `json:"id"`
		} `json:"items"`
	}
	decodeBody(t, w, &detail)

	w = doJSON(t, "POST", fmt.Sprintf("/interventions/%d/complete", detail.ID), caretakerToken(t), map[string]interface{}{
		"answers": []map[string]interface{}{
			{"item_id": detail.Items[0].ID, "value": "ph_never_uploaded"},
		},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", w.Code, w.Body.String())
	}
	var errResp struct {
		Code string `json:"code"`
	}
	decodeBody(t, w, &errResp)
	if errResp.Code != "unknown_photo" {
		t.Errorf("Expected unknown_photo, got %s", errResp.Code)
	}
}

func TestTemplateToIntervention(t *testing.T) {
	testutil.RequireIntegration(t)

	siteID := createTestSite(t, "Template site")
	assetID, _ := createTestAsset(t, siteID, "Templated pump")

	w := doJSON(t, "POST", "/templates", adminToken(t), map[string]interface{}{
		"name": "Standard pump check",
		"items": []map[string]interface{}{
			{"label": "Runs quietly", "item_type": "boolean", "required": true},
			{"label": "Remarks", "item_type": "text"},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create template: %d %s", w.Code, w.Body.String())
	}
	var tpl struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, w, &tpl)

	w = doJSON(t, "POST", "/interventions", adminToken(t), map[string]interface{}{
		"asset_id":    assetID,
		"title":       "From template",
		"template_id": tpl.ID,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create intervention from template: %d %s", w.Code, w.Body.String())
	}
	var detail struct {
		Items []struct {
			Label string `json:"label"`
		} `json:"items"`
	}
	decodeBody(t, w, &detail)
	if len(detail.Items) != 2 {
		t.Errorf("Expected 2 copied items, got %d", len(detail.Items))
	}
}

func TestPlanMaterialize(t *testing.T) {
	testutil.RequireIntegration(t)

	siteID := createTestSite(t, "Plan site")
	assetID, _ := createTestAsset(t, siteID, "Planned pump")

	w := doJSON(t, "POST", "/plans", adminToken(t), map[string]interface{}{
		"site_id":   siteID,
		"asset_id":  assetID,
		"title":     "Monthly check",
		"frequency": "monthly",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create plan: %d %s", w.Code, w.Body.String())
	}
	var plan struct {
		ID      int64  `json:"id"`
		NextDue string `json:"next_due"`
	}
	decodeBody(t, w, &plan)

	w = doJSON(t, "POST", fmt.Sprintf("/plans/%d/materialize", plan.ID), adminToken(t), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to materialize plan: %d %s", w.Code, w.Body.String())
	}
	var result struct {
		Plan struct {
			NextDue string `json:"next_due"`
		} `json:"plan"`
		Intervention *struct {
			Status string `json:"status"`
		} `json:"intervention"`
	}
	decodeBody(t, w, &result)
	if result.Intervention == nil {
		t.Fatal("Expected a created intervention")
	}
	if result.Intervention.Status != "planned" {
		t.Errorf("Expected planned intervention, got %s", result.Intervention.Status)
	}
	if result.Plan.NextDue == plan.NextDue {
		t.Error("Expected next_due to advance")
	}
}
