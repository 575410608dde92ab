package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Analytics.DashboardSummary()
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "summary", summary)
}

func (s *Server) handleAnalyticsBanner(w http.ResponseWriter, r *http.Request) {
	start, end := reportRange(r)
	report, err := s.svc.Analytics.BannerReport(chi.URLParam(r, "id"), start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "report", report)
}

func (s *Server) handleAnalyticsPlacement(w http.ResponseWriter, r *http.Request) {
	start, end := reportRange(r)
	report, err := s.svc.Analytics.PlacementReport(chi.URLParam(r, "id"), start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "report", report)
}

func (s *Server) handleAnalyticsClient(w http.ResponseWriter, r *http.Request) {
	start, end := reportRange(r)
	report, err := s.svc.Analytics.ClientReport(chi.URLParam(r, "id"), start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok(w, "report", report)
}

func (s *Server) handleAnalyticsExport(w http.ResponseWriter, r *http.Request) {
	start, end := reportRange(r)
	reportType := chi.URLParam(r, "type")
	entityID := chi.URLParam(r, "id")

	csv, err := s.svc.Analytics.ExportCSV(reportType, entityID, start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		`attachment; filename="`+reportType+`-`+entityID+`-`+start+`-`+end+`.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(csv))
}

// reportRange reads start/end query params, defaulting to the trailing
// 30 days ending today.
func reportRange(r *http.Request) (start, end string) {
	const layout = "2006-01-02"
	q := r.URL.Query()
	start = q.Get("start")
	end = q.Get("end")
	now := time.Now().UTC()
	if end == "" {
		end = now.Format(layout)
	}
	if start == "" {
		start = now.AddDate(0, 0, -30).Format(layout)
	}
	return start, end
}
