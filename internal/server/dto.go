package server

import (
	"math"
	"sort"
	"strconv"

	"github.com/vanshika/chatterledger/backend/internal/domain"
	"github.com/vanshika/chatterledger/backend/internal/service"
	"github.com/vanshika/chatterledger/backend/internal/timebucket"
)

type clientRefRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	PayoutDay    int    `json:"payoutDay"`
	Notes        string `json:"notes"`
	FirstPayment bool   `json:"firstPayment"`
}

type paymentRequest struct {
	PaymentID       string           `json:"paymentId"`
	TeamID          string           `json:"teamId"`
	ChatterID       string           `json:"chatterId"`
	ChatterUsername string           `json:"chatterUsername"`
	Client          clientRefRequest `json:"client"`
	PaidAt          string           `json:"paidAt"`
	Amount          *float64         `json:"amount"`
	FeeAmount       float64          `json:"feeAmount"`
	Currency        string           `json:"currency"`
	Status          string           `json:"status"`
	Platform        string           `json:"platform"`
	SoldItem        string           `json:"soldItem"`
	Model           string           `json:"model"`
	Bank            string           `json:"bank"`
	Message         string           `json:"message"`
}

type importRequest struct {
	TeamID string           `json:"teamId"`
	Rows   []paymentRequest `json:"rows"`
}

type importResponse struct {
	Total      int      `json:"total"`
	Imported   int      `json:"imported"`
	Failed     int      `json:"failed"`
	DurationMs int64    `json:"durationMs"`
	Errors     []string `json:"errors"`
}

type chatterRequest struct {
	ChatterID   string `json:"chatterId"`
	TeamID      string `json:"teamId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

type chatterResponse struct {
	ChatterID   string `json:"chatterId"`
	TeamID      string `json:"teamId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

type paymentResponse struct {
	PaymentID string  `json:"paymentId"`
	TeamID    string  `json:"teamId"`
	ClientID  string  `json:"clientId,omitempty"`
	ChatterID string  `json:"chatterId,omitempty"`
	Amount    float64 `json:"amount"`
	FeeAmount float64 `json:"feeAmount"`
	NetAmount float64 `json:"netAmount"`
	Currency  string  `json:"currency"`
	PaidAt    string  `json:"paidAt"`
	Status    string  `json:"status"`
	Platform  string  `json:"platform,omitempty"`
	SoldItem  string  `json:"soldItem,omitempty"`
	Model     string  `json:"model,omitempty"`
	Bank      string  `json:"bank,omitempty"`
	Message   string  `json:"message,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

type paginationResponse struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

type paymentsListResponse struct {
	Items      []paymentResponse  `json:"items"`
	Pagination paginationResponse `json:"pagination"`
}

type statusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

type teamTotalsResponse struct {
	Daily   float64 `json:"daily"`
	Weekly  float64 `json:"weekly"`
	Monthly float64 `json:"monthly"`
}

type windowTotalsResponse struct {
	Total      float64 `json:"total"`
	Today      float64 `json:"today"`
	LastWindow float64 `json:"lastWindow"`
}

type valueResponse struct {
	Value float64 `json:"value"`
}

type sequenceRetentionResponse struct {
	Sequence       int     `json:"sequence"`
	ClientsReached int     `json:"clientsReached"`
	TotalClients   int     `json:"totalClients"`
	Percentage     float64 `json:"percentage"`
}

type dayRetentionResponse struct {
	DaysActive  int     `json:"daysActive"`
	ClientCount int     `json:"clientCount"`
	Percentage  float64 `json:"percentage"`
}

type sequenceAverageResponse struct {
	Sequence     int     `json:"sequence"`
	AvgNetAmount float64 `json:"avgNetAmount"`
	Count        int     `json:"count"`
}

type leagueRowResponse struct {
	Rank              int     `json:"rank"`
	ChatterID         string  `json:"chatterId"`
	ChatterName       string  `json:"chatterName"`
	MonthlyPoints     float64 `json:"monthlyPoints"`
	DailyRevenue      float64 `json:"dailyRevenue"`
	LastWindowRevenue float64 `json:"lastWindowRevenue"`
}

type performerResponse struct {
	Rank        int     `json:"rank"`
	ChatterID   string  `json:"chatterId"`
	ChatterName string  `json:"chatterName"`
	Revenue     float64 `json:"revenue"`
}

type heatmapCell struct {
	Offset int     `json:"offset"`
	Amount float64 `json:"amount"`
}

type clientHeatmapResponse struct {
	ClientID    string        `json:"clientId"`
	ClientName  string        `json:"clientName"`
	FirstDay    string        `json:"firstDay"`
	Days        []heatmapCell `json:"days"`
	TotalAmount float64       `json:"totalAmount"`
	ActiveDays  int           `json:"activeDays"`
}

type weekdayResponse struct {
	Weekday int     `json:"weekday"`
	Amount  float64 `json:"amount"`
	Count   int     `json:"count"`
}

type dashboardResponse struct {
	Totals    teamTotalsResponse          `json:"totals"`
	Window    windowTotalsResponse        `json:"window"`
	League    []leagueRowResponse         `json:"league"`
	Top       []performerResponse         `json:"top"`
	Weekdays  []weekdayResponse           `json:"weekdays"`
	Retention []sequenceRetentionResponse `json:"retention"`
}

func (req paymentRequest) toServiceInput(teamID string) (service.PaymentInput, error) {
	if req.Amount == nil {
		return service.PaymentInput{}, fmtError("amount is required")
	}
	paidAt, err := parseTimestamp(req.PaidAt, "paidAt")
	if err != nil {
		return service.PaymentInput{}, err
	}
	if teamID == "" {
		teamID = req.TeamID
	}
	return service.PaymentInput{
		ID:        req.PaymentID,
		TeamID:    teamID,
		ChatterID: req.ChatterID,
		Client: service.ClientRef{
			ID:           req.Client.ID,
			Name:         req.Client.Name,
			Email:        req.Client.Email,
			Phone:        req.Client.Phone,
			PayoutDay:    req.Client.PayoutDay,
			Notes:        req.Client.Notes,
			FirstPayment: req.Client.FirstPayment,
		},
		PaidAt:    paidAt,
		Amount:    *req.Amount,
		FeeAmount: req.FeeAmount,
		Currency:  req.Currency,
		Status:    req.Status,
		Platform:  req.Platform,
		SoldItem:  req.SoldItem,
		Model:     req.Model,
		Bank:      req.Bank,
		Message:   req.Message,
	}, nil
}

func toPaymentResponse(p domain.Payment) paymentResponse {
	return paymentResponse{
		PaymentID: p.ID,
		TeamID:    p.TeamID,
		ClientID:  p.ClientID,
		ChatterID: p.ChatterID,
		Amount:    p.Amount,
		FeeAmount: p.FeeAmount,
		NetAmount: p.NetAmount().InexactFloat64(),
		Currency:  p.Currency,
		PaidAt:    formatTime(p.PaidAt),
		Status:    p.Status,
		Platform:  p.Platform,
		SoldItem:  p.SoldItem,
		Model:     p.Model,
		Bank:      p.Bank,
		Message:   p.Message,
		CreatedAt: formatTime(p.CreatedAt),
	}
}

func toChatterResponse(c domain.Chatter) chatterResponse {
	return chatterResponse{
		ChatterID:   c.ID,
		TeamID:      c.TeamID,
		Username:    c.Username,
		DisplayName: c.DisplayName,
		Role:        c.Role,
	}
}

func toTeamTotalsResponse(t domain.TeamTotals) teamTotalsResponse {
	return teamTotalsResponse{Daily: t.Daily, Weekly: t.Weekly, Monthly: t.Monthly}
}

func toWindowTotalsResponse(t domain.WindowTotals) windowTotalsResponse {
	return windowTotalsResponse{Total: t.Total, Today: t.Today, LastWindow: t.LastWindow}
}

func toSequenceRetentionResponse(rows []domain.SequenceRetention) []sequenceRetentionResponse {
	out := make([]sequenceRetentionResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, sequenceRetentionResponse{
			Sequence:       r.Sequence,
			ClientsReached: r.ClientsReached,
			TotalClients:   r.TotalClients,
			Percentage:     r.Percentage,
		})
	}
	return out
}

func toDayRetentionResponse(rows []domain.DayRetention) []dayRetentionResponse {
	out := make([]dayRetentionResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dayRetentionResponse{DaysActive: r.DaysActive, ClientCount: r.ClientCount, Percentage: r.Percentage})
	}
	return out
}

func toSequenceAverageResponse(rows []domain.SequenceAverage) []sequenceAverageResponse {
	out := make([]sequenceAverageResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, sequenceAverageResponse{Sequence: r.Sequence, AvgNetAmount: r.AvgNetAmount, Count: r.Count})
	}
	return out
}

func toLeagueResponse(rows []domain.LeagueRow) []leagueRowResponse {
	out := make([]leagueRowResponse, 0, len(rows))
	for i, r := range rows {
		out = append(out, leagueRowResponse{
			Rank:              i + 1,
			ChatterID:         r.ChatterID,
			ChatterName:       r.ChatterName,
			MonthlyPoints:     r.MonthlyPoints,
			DailyRevenue:      r.DailyRevenue,
			LastWindowRevenue: r.LastWindowRevenue,
		})
	}
	return out
}

func toPerformerResponse(rows []domain.Performer) []performerResponse {
	out := make([]performerResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, performerResponse{Rank: r.Rank, ChatterID: r.ChatterID, ChatterName: r.ChatterName, Revenue: r.Revenue})
	}
	return out
}

func toClientHeatmapResponse(rows []domain.ClientHeatmapRow) []clientHeatmapResponse {
	out := make([]clientHeatmapResponse, 0, len(rows))
	for _, r := range rows {
		cells := make([]heatmapCell, 0, len(r.Days))
		for offset, amount := range r.Days {
			cells = append(cells, heatmapCell{Offset: offset, Amount: amount})
		}
		sort.Slice(cells, func(i, j int) bool { return cells[i].Offset < cells[j].Offset })
		out = append(out, clientHeatmapResponse{
			ClientID:    r.ClientID,
			ClientName:  r.ClientName,
			FirstDay:    timebucket.Format(r.FirstDay),
			Days:        cells,
			TotalAmount: r.TotalAmount,
			ActiveDays:  r.ActiveDays,
		})
	}
	return out
}

func toWeekdayResponse(rows []domain.WeekdayBucket) []weekdayResponse {
	out := make([]weekdayResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, weekdayResponse{Weekday: r.Weekday, Amount: r.Amount, Count: r.Count})
	}
	return out
}

func toDashboardResponse(d service.Dashboard) dashboardResponse {
	return dashboardResponse{
		Totals:    toTeamTotalsResponse(d.Totals),
		Window:    toWindowTotalsResponse(d.Window),
		League:    toLeagueResponse(d.League),
		Top:       toPerformerResponse(d.Top),
		Weekdays:  toWeekdayResponse(d.Weekdays),
		Retention: toSequenceRetentionResponse(d.Retention),
	}
}

// paymentCSVHeader is the column order of the CSV export.
var paymentCSVHeader = []string{
	"paymentId", "paidAt", "clientId", "chatterId", "amount", "feeAmount", "netAmount",
	"currency", "status", "platform", "soldItem", "model", "bank", "message", "createdAt",
}

func paymentCSVRecord(p domain.Payment) []string {
	return []string{
		p.ID,
		formatTime(p.PaidAt),
		p.ClientID,
		p.ChatterID,
		formatAmount(p.Amount),
		formatAmount(p.FeeAmount),
		p.NetAmount().StringFixed(2),
		p.Currency,
		p.Status,
		p.Platform,
		p.SoldItem,
		p.Model,
		p.Bank,
		p.Message,
		formatTime(p.CreatedAt),
	}
}

func formatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
