package domain

import "time"

// TeamTotals is net revenue for the current business day, week and month.
type TeamTotals struct {
	Daily   float64
	Weekly  float64
	Monthly float64
}

// WindowTotals is net revenue over a filtered range plus the now-relative figures.
type WindowTotals struct {
	Total      float64
	Today      float64
	LastWindow float64
}

// SequenceRetention is one step of the payment-sequence funnel.
type SequenceRetention struct {
	Sequence       int
	ClientsReached int
	TotalClients   int
	Percentage     float64
}

// DayRetention groups clients by the number of business days they paid on.
type DayRetention struct {
	DaysActive  int
	ClientCount int
	Percentage  float64
}

// SequenceAverage is the mean net amount of the n-th payment across clients.
type SequenceAverage struct {
	Sequence     int
	AvgNetAmount float64
	Count        int
}

// LeagueRow is a chatter's standing on the league table.
type LeagueRow struct {
	ChatterID         string
	ChatterName       string
	MonthlyPoints     float64
	DailyRevenue      float64
	LastWindowRevenue float64
}

// Performer is a ranked chatter in a best-performer or challenge view.
type Performer struct {
	Rank        int
	ChatterID   string
	ChatterName string
	Revenue     float64
}

// ClientHeatmapRow maps day offsets since the client's first business day to net amounts.
type ClientHeatmapRow struct {
	ClientID    string
	ClientName  string
	FirstDay    time.Time
	Days        map[int]float64
	TotalAmount float64
	ActiveDays  int
}

// WeekdayBucket is the net amount and payment count for one weekday (0=Sunday).
type WeekdayBucket struct {
	Weekday int
	Amount  float64
	Count   int
}
