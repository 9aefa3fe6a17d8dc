package labels

import (
	"bytes"
	"fmt"

	"sitekeeper-api/internal/models"

	"github.com/jung-kurt/gofpdf"
)

// AssetLabel renders a single printable A6 label for one asset: QR code on
// top, asset name and site below, token in small print for manual entry.
func AssetLabel(asset *models.Asset, siteName, qrPayload string) ([]byte, error) {
	png, err := QRPNG(qrPayload)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A6", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	// gofpdf records registration failures internally; Output surfaces them
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	_ = pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))

	// A6 is 105x148mm. Center a 70mm QR in the top half.
	const qrMM = 70.0
	pdf.ImageOptions("qr", (105-qrMM)/2, 12, qrMM, qrMM, false, opts, 0, "")

	pdf.SetXY(10, 88)
	pdf.SetFont("Arial", "B", 14)
	pdf.MultiCell(85, 7, asset.Name, "", "C", false)

	pdf.SetFont("Arial", "", 10)
	pdf.SetX(10)
	pdf.MultiCell(85, 5, siteName, "", "C", false)

	if asset.Serial != nil && *asset.Serial != "" {
		pdf.SetX(10)
		pdf.MultiCell(85, 5, fmt.Sprintf("S/N %s", *asset.Serial), "", "C", false)
	}

	pdf.SetXY(10, 134)
	pdf.SetFont("Courier", "", 8)
	pdf.CellFormat(85, 4, asset.Token, "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
