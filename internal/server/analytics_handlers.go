package server

import (
	"net/http"
	"time"

	"github.com/vanshika/chatterledger/backend/internal/service"
)

// analyticsQuery parses the shared query parameters of GET analytics endpoints.
func (h *APIHandlers) analyticsQuery(w http.ResponseWriter, r *http.Request) (service.Query, bool) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return service.Query{}, false
	}
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return service.Query{}, false
	}
	return q, true
}

func (h *APIHandlers) handleTeamTotals(w http.ResponseWriter, r *http.Request) {
	q, ok := h.analyticsQuery(w, r)
	if !ok {
		return
	}
	totals, err := h.analytics.TeamTotals(r.Context(), q.TeamID)
	if err != nil {
		h.writeServiceError(w, err, "failed to compute team totals", "teamId", q.TeamID)
		return
	}
	respondJSON(w, http.StatusOK, toTeamTotalsResponse(totals))
}

func (h *APIHandlers) handleWindowTotals(w http.ResponseWriter, r *http.Request) {
	q, ok := h.analyticsQuery(w, r)
	if !ok {
		return
	}
	totals, err := h.analytics.WindowTotals(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, err, "failed to compute window totals", "teamId", q.TeamID)
		return
	}
	respondJSON(w, http.StatusOK, toWindowTotalsResponse(totals))
}

func (h *APIHandlers) handleRangeTotal(w http.ResponseWriter, r *http.Request) {
	q, ok := h.analyticsQuery(w, r)
	if !ok {
		return
	}
	total, err := h.analytics.RangeTotal(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, err, "failed to compute range total", "teamId", q.TeamID)
		return
	}
	respondJSON(w, http.StatusOK, valueResponse{Value: total})
}

func (h *APIHandlers) handleSequenceRetention(w http.ResponseWriter, r *http.Request) {
	q, ok := h.analyticsQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.analytics.PaymentSequenceRetention(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, err, "failed to compute sequence retention", "teamId", q.TeamID)
		return
	}
	respondJSON(w, http.StatusOK, toSequenceRetentionResponse(rows))
}

func (h *APIHandlers) handleDayRetention(w http.ResponseWriter, r *http.Request) {
	q, ok := h.analyticsQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.analytics.DayRetention(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, err, "failed to compute day retention", "teamId", q.TeamID)
		return
	}
	respondJSON(w, http.StatusOK, toDayRetentionResponse(rows))
}

func (h *APIHandlers) handleSequentialAverages(w http.ResponseWriter, r *http.Request) {
	q, ok := h.analyticsQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.analytics.SequentialAverages(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, err, "failed to compute sequential averages", "teamId", q.TeamID)
		return
	}
	respondJSON(w, http.StatusOK, toSequenceAverageResponse(rows))
}

func (h *APIHandlers) handleLifespan(w http.ResponseWriter, r *http.Request) {
	q, ok := h.analyticsQuery(w, r)
	if !ok {
		return
	}
	days, err := h.analytics.AvgLifespanDays(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, err, "failed to compute lifespan", "teamId", q.TeamID)
		return
	}
	respondJSON(w, http.StatusOK, valueResponse{Value: days})
}

func (h *APIHandlers) handleLeague(w http.ResponseWriter, r *http.Request) {
	q, ok := h.analyticsQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.analytics.League(r.Context(), service.LeagueQuery{Query: q, View: r.URL.Query().Get("view")})
	if err != nil {
		h.writeServiceError(w, err, "failed to compute league", "teamId", q.TeamID)
		return
	}
	respondJSON(w, http.StatusOK, toLeagueResponse(rows))
}

func (h *APIHandlers) handleTopPerformers(w http.ResponseWriter, r *http.Request) {
	q, ok := h.analyticsQuery(w, r)
	if !ok {
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), service.DefaultTopLimit)
	rows, err := h.analytics.TopPerformers(r.Context(), service.TopQuery{Query: q, Limit: limit})
	if err != nil {
		h.writeServiceError(w, err, "failed to compute top performers", "teamId", q.TeamID)
		return
	}
	respondJSON(w, http.StatusOK, toPerformerResponse(rows))
}

func (h *APIHandlers) handleClientHeatmap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	values := r.URL.Query()
	hq := service.HeatmapQuery{
		TeamID: values.Get("teamId"),
		Days:   parseInt(values.Get("days"), 0),
	}
	if raw := values.Get("anchor"); raw != "" {
		anchor, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid anchor: expected YYYY-MM-DD")
			return
		}
		hq.Anchor = &anchor
	}

	rows, err := h.analytics.ClientHeatmap(r.Context(), hq)
	if err != nil {
		h.writeServiceError(w, err, "failed to compute client heatmap", "teamId", hq.TeamID)
		return
	}
	respondJSON(w, http.StatusOK, toClientHeatmapResponse(rows))
}

func (h *APIHandlers) handleWeekdayHeatmap(w http.ResponseWriter, r *http.Request) {
	q, ok := h.analyticsQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.analytics.DayOfWeekHeatmap(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, err, "failed to compute weekday heatmap", "teamId", q.TeamID)
		return
	}
	respondJSON(w, http.StatusOK, toWeekdayResponse(rows))
}

func (h *APIHandlers) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q, ok := h.analyticsQuery(w, r)
	if !ok {
		return
	}
	dashboard, err := h.analytics.Dashboard(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, err, "failed to build dashboard", "teamId", q.TeamID)
		return
	}
	respondJSON(w, http.StatusOK, toDashboardResponse(dashboard))
}
