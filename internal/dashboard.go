package internal

import (
	"encoding/json"
	"net/http"
)

// dashboardResponse carries the landing-page counters
type dashboardResponse struct {
	Sites                 int `json:"sites"`
	Assets                int `json:"assets"`
	AssetsOutOfService    int `json:"assets_out_of_service"`
	PlannedInterventions  int `json:"planned_interventions"`
	OverdueInterventions  int `json:"overdue_interventions"`
	CompletedLast30Days   int `json:"completed_last_30_days"`
	PlansDue              int `json:"plans_due"`
}

// getDashboard aggregates the counters in one round trip
func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	var d dashboardResponse
	err := s.DB.QueryRowContext(r.Context(), `
		SELECT
			(SELECT COUNT(*) FROM sites),
			(SELECT COUNT(*) FROM assets WHERE deleted_at IS NULL),
			(SELECT COUNT(*) FROM assets WHERE deleted_at IS NULL AND status = 'out_of_service'),
			(SELECT COUNT(*) FROM interventions WHERE status = 'planned'),
			(SELECT COUNT(*) FROM interventions WHERE status = 'planned' AND scheduled_for < now()),
			(SELECT COUNT(*) FROM interventions WHERE status = 'completed' AND completed_at >= now() - interval '30 days'),
			(SELECT COUNT(*) FROM maintenance_plans WHERE active AND next_due IS NOT NULL AND next_due <= now())
	`).Scan(&d.Sites, &d.Assets, &d.AssetsOutOfService, &d.PlannedInterventions,
		&d.OverdueInterventions, &d.CompletedLast30Days, &d.PlansDue)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(d)
}
