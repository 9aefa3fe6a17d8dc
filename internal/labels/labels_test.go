package labels

import (
	"bytes"
	"testing"
	"time"

	"sitekeeper-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestQRPNG(t *testing.T) {
	png, err := QRPNG("http://localhost:8080/a/abcDEF123456abcDEF123456")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic), "expected PNG signature")
}

func testAsset() *models.Asset {
	serial := "SN-0042"
	return &models.Asset{
		ID:     1,
		SiteID: 1,
		Name:   "Heat pump, cellar",
		Serial: &serial,
		Status: models.AssetStatusActive,
		Token:  "abcDEF123456abcDEF123456",
	}
}

func TestAssetLabel(t *testing.T) {
	pdf, err := AssetLabel(testAsset(), "Main depot", "http://localhost:8080/a/abcDEF123456abcDEF123456")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")), "expected PDF header")
	assert.Greater(t, len(pdf), 1000)
}

func TestInterventionReport(t *testing.T) {
	unit := "bar"
	boolVal := true
	numVal := 2.5
	completed := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	notes := "Replaced the filter."

	detail := &models.InterventionDetail{
		Intervention: models.Intervention{
			ID:           10,
			AssetID:      1,
			Title:        "Quarterly inspection",
			ScheduledFor: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			Status:       models.InterventionCompleted,
			CompletedAt:  &completed,
			Notes:        &notes,
		},
		Items: []models.ChecklistItem{
			{ID: 1, Position: 1, Label: "Pressure OK", ItemType: models.ItemTypeBoolean, Required: true},
			{ID: 2, Position: 2, Label: "Pressure reading", ItemType: models.ItemTypeNumber, Unit: &unit},
		},
		Answers: []models.ChecklistAnswer{
			{ItemID: 1, ValueBool: &boolVal},
			{ItemID: 2, ValueNumber: &numVal},
		},
	}

	pdf, err := InterventionReport(detail, testAsset(), "Main depot")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestRenderAnswer(t *testing.T) {
	unit := "C"
	boolFalse := false
	text := "all good"
	photo := "ph_abc123"
	num := 21.5

	answers := map[int64]models.ChecklistAnswer{
		1: {ItemID: 1, ValueBool: &boolFalse},
		2: {ItemID: 2, ValueNumber: &num},
		3: {ItemID: 3, ValueText: &text},
		4: {ItemID: 4, PhotoRef: &photo},
	}

	tests := []struct {
		name string
		item models.ChecklistItem
		want string
	}{
		{"bool false", models.ChecklistItem{ID: 1, ItemType: models.ItemTypeBoolean}, "no"},
		{"number with unit", models.ChecklistItem{ID: 2, ItemType: models.ItemTypeNumber, Unit: &unit}, "21.5 C"},
		{"text", models.ChecklistItem{ID: 3, ItemType: models.ItemTypeText}, "all good"},
		{"photo", models.ChecklistItem{ID: 4, ItemType: models.ItemTypePhoto}, "photo: ph_abc123"},
		{"unanswered", models.ChecklistItem{ID: 99, ItemType: models.ItemTypeText}, "-"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, renderAnswer(tc.item, answers))
		})
	}
}
