package labels

import (
	"bytes"
	"fmt"
	"strconv"

	"sitekeeper-api/internal/models"

	"github.com/jung-kurt/gofpdf"
)

// InterventionReport renders a one-page A4 summary of an intervention: the
// asset header, status, and the checklist items with their recorded answers.
func InterventionReport(detail *models.InterventionDetail, asset *models.Asset, siteName string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Maintenance Report")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Asset: %s", asset.Name))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Site: %s", siteName))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Intervention: %s", detail.Title))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Scheduled: %s", detail.ScheduledFor.Format("2006-01-02")))
	pdf.Ln(6)

	statusLine := fmt.Sprintf("Status: %s", detail.Status)
	if detail.CompletedAt != nil {
		statusLine += fmt.Sprintf(" at %s", detail.CompletedAt.Format("2006-01-02 15:04"))
	}
	pdf.Cell(0, 6, statusLine)
	pdf.Ln(10)

	if len(detail.Items) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(0, 6, "No checklist recorded.")
	} else {
		answers := make(map[int64]models.ChecklistAnswer, len(detail.Answers))
		for _, a := range detail.Answers {
			answers[a.ItemID] = a
		}

		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(110, 7, "Item", "B", 0, "L", false, 0, "")
		pdf.CellFormat(70, 7, "Answer", "B", 1, "L", false, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, item := range detail.Items {
			label := item.Label
			if item.Required {
				label += " *"
			}
			pdf.CellFormat(110, 7, label, "", 0, "L", false, 0, "")
			pdf.CellFormat(70, 7, renderAnswer(item, answers), "", 1, "L", false, 0, "")
		}
	}

	if detail.Notes != nil && *detail.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Notes")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, *detail.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderAnswer(item models.ChecklistItem, answers map[int64]models.ChecklistAnswer) string {
	a, ok := answers[item.ID]
	if !ok {
		return "-"
	}
	switch item.ItemType {
	case models.ItemTypeBoolean:
		if a.ValueBool == nil {
			return "-"
		}
		if *a.ValueBool {
			return "yes"
		}
		return "no"
	case models.ItemTypeNumber:
		if a.ValueNumber == nil {
			return "-"
		}
		v := strconv.FormatFloat(*a.ValueNumber, 'f', -1, 64)
		if item.Unit != nil && *item.Unit != "" {
			v += " " + *item.Unit
		}
		return v
	case models.ItemTypeText:
		if a.ValueText == nil {
			return "-"
		}
		return *a.ValueText
	case models.ItemTypePhoto:
		if a.PhotoRef == nil {
			return "-"
		}
		return "photo: " + *a.PhotoRef
	}
	return "-"
}
