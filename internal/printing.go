package internal

import (
	"database/sql"
	"fmt"
	"net/http"

	"sitekeeper-api/internal/labels"

	"github.com/go-chi/chi/v5"
)

// assetQRPNG serves the asset's QR code as a PNG. The payload is the full
// public resolver URL so any phone camera lands on /a/{token}.
func (s *Server) assetQRPNG(w http.ResponseWriter, r *http.Request) {
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

	png, err := labels.QRPNG(s.Config.QRPayload(a.Token))
	if err != nil {
		http.Error(w, "could not render QR code", 500)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// assetLabelPDF serves a printable label for the asset
func (s *Server) assetLabelPDF(w http.ResponseWriter, r *http.Request) {
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

	var siteName string
	if err := s.DB.QueryRowContext(r.Context(),
		`SELECT name FROM sites WHERE id = $1`, a.SiteID).Scan(&siteName); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	pdf, err := labels.AssetLabel(a, siteName, s.Config.QRPayload(a.Token))
	if err != nil {
		http.Error(w, "could not render label", 500)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=asset-%d-label.pdf", a.ID))
	w.Write(pdf)
}

// interventionReportPDF serves a rendered report of the intervention and its
// checklist. Reports are rendered on demand, never stored.
func (s *Server) interventionReportPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := s.fetchInterventionDetail(r.Context(), id)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	a, err := s.fetchAsset(r.Context(), fmt.Sprint(detail.AssetID))
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	var siteName string
	if err := s.DB.QueryRowContext(r.Context(),
		`SELECT name FROM sites WHERE id = $1`, a.SiteID).Scan(&siteName); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	pdf, err := labels.InterventionReport(detail, a, siteName)
	if err != nil {
		http.Error(w, "could not render report", 500)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=intervention-%d-report.pdf", detail.ID))
	w.Write(pdf)
}
