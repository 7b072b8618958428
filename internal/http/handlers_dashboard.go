package http

import (
	"net/http"

	"dotproduct/internal/activity"
	"dotproduct/internal/log"
)

const recentActivityLimit = 10

type dashboardPage struct {
	page
	Welcome     string
	HasActivity bool
}

type activityFeed struct {
	Entries []activity.Entry
	Error   string
}

// handleDashboard renders the shell; each chart loads as its own partial.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r)
	s.render(w, r, http.StatusOK, "dashboard.html", dashboardPage{
		page:        s.page(r, "DotProduct Dashboard", "dashboard"),
		Welcome:     "Welcome, " + c.user.DisplayName() + "!",
		HasActivity: s.activity.Reader != nil,
	})
}

func (s *Server) handleSummaryChart(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r)
	view, err := s.charts.Summary(r.Context(), c.tokens)
	if s.unauthorized(w, r, c, err) {
		return
	}
	s.render(w, r, http.StatusOK, "summary_chart", view)
}

func (s *Server) handleBudgetChart(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r)
	view, err := s.charts.Budget(r.Context(), c.tokens)
	if s.unauthorized(w, r, c, err) {
		return
	}
	s.render(w, r, http.StatusOK, "budget_chart", view)
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r)
	view, err := s.charts.Categories(r.Context(), c.tokens)
	if s.unauthorized(w, r, c, err) {
		return
	}
	s.render(w, r, http.StatusOK, "category_summary", view)
}

func (s *Server) handleActivityFeed(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r)
	var feed activityFeed
	if s.activity.Reader != nil {
		events, err := s.activity.Reader.Recent(r.Context(), c.user.ID, recentActivityLimit)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Recent activity failed",
				log.FieldUserID, c.user.ID,
				log.FieldOperation, log.OpList,
				log.FieldError, err)
			feed.Error = "Failed to load recent activity"
		}
		feed.Entries = activity.Entries(events)
	}
	s.render(w, r, http.StatusOK, "activity_feed", feed)
}
