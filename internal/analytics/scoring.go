package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/chatterledger/backend/internal/domain"
	"github.com/vanshika/chatterledger/backend/internal/timebucket"
)

// Leaderboard views accepted by RankLeague.
const (
	ViewDaily  = "daily"
	ViewPoints = "points"
)

// DefaultNewClientMultiplier is applied to payments on a client's first business day.
const DefaultNewClientMultiplier = 2

// LeagueOptions tunes the league computation.
type LeagueOptions struct {
	Multiplier float64
	HotWindow  time.Duration
	ChatterID  string
}

type leagueAccumulator struct {
	points, daily, hot decimal.Decimal
}

// FirstPaymentDays maps each client to the business day of its earliest payment.
// earliest comes from the store and covers the whole team history; payments is
// folded in so a client missing from earliest still gets a first day.
func FirstPaymentDays(earliest map[string]time.Time, payments []domain.Payment, b timebucket.Bucketer) map[string]time.Time {
	first := make(map[string]time.Time, len(earliest))
	for clientID, ts := range earliest {
		first[clientID] = ts
	}
	for _, p := range payments {
		if !p.HasClient() {
			continue
		}
		if ts, ok := first[p.ClientID]; !ok || p.PaidAt.Before(ts) {
			first[p.ClientID] = p.PaidAt
		}
	}

	days := make(map[string]time.Time, len(first))
	for clientID, ts := range first {
		days[clientID] = b.Day(ts)
	}
	return days
}

// Points returns the league points a payment is worth.
func Points(p domain.Payment, firstDays map[string]time.Time, b timebucket.Bucketer, multiplier float64) decimal.Decimal {
	net := p.NetAmount()
	if !p.HasClient() {
		return net
	}
	first, ok := firstDays[p.ClientID]
	if ok && b.Day(p.PaidAt).Equal(first) {
		return net.Mul(decimal.NewFromFloat(multiplier))
	}
	return net
}

// LeaguePoints scores window payments per chatter and adds the current business
// day's revenue and the trailing hot-window revenue taken from recent.
func LeaguePoints(window, recent []domain.Payment, firstDays map[string]time.Time, b timebucket.Bucketer, now time.Time, opts LeagueOptions) []domain.LeagueRow {
	multiplier := opts.Multiplier
	if multiplier <= 0 {
		multiplier = DefaultNewClientMultiplier
	}

	acc := make(map[string]*leagueAccumulator)
	get := func(chatterID string) *leagueAccumulator {
		a, ok := acc[chatterID]
		if !ok {
			a = &leagueAccumulator{}
			acc[chatterID] = a
		}
		return a
	}
	include := func(p domain.Payment) bool {
		if !p.HasChatter() {
			return false
		}
		return opts.ChatterID == "" || p.ChatterID == opts.ChatterID
	}

	for _, p := range window {
		if !include(p) {
			continue
		}
		a := get(p.ChatterID)
		a.points = a.points.Add(Points(p, firstDays, b, multiplier))
	}

	today := b.Day(now)
	since := now.Add(-opts.HotWindow)
	for _, p := range recent {
		if !include(p) {
			continue
		}
		a := get(p.ChatterID)
		if b.Day(p.PaidAt).Equal(today) {
			a.daily = a.daily.Add(p.NetAmount())
		}
		if opts.HotWindow > 0 && !p.PaidAt.Before(since) && !p.PaidAt.After(now) {
			a.hot = a.hot.Add(p.NetAmount())
		}
	}

	rows := make([]domain.LeagueRow, 0, len(acc))
	for chatterID, a := range acc {
		rows = append(rows, domain.LeagueRow{
			ChatterID:         chatterID,
			MonthlyPoints:     toFloat(a.points),
			DailyRevenue:      toFloat(a.daily),
			LastWindowRevenue: toFloat(a.hot),
		})
	}
	return RankLeague(rows, ViewPoints)
}

// RankLeague sorts rows for the requested view, descending. Equal values are
// ordered by chatter ID.
func RankLeague(rows []domain.LeagueRow, view string) []domain.LeagueRow {
	metric := func(r domain.LeagueRow) float64 { return r.MonthlyPoints }
	if view == ViewDaily {
		metric = func(r domain.LeagueRow) float64 { return r.DailyRevenue }
	}
	sort.SliceStable(rows, func(i, j int) bool {
		mi, mj := metric(rows[i]), metric(rows[j])
		if mi != mj {
			return mi > mj
		}
		return rows[i].ChatterID < rows[j].ChatterID
	})
	return rows
}

// TopPerformers ranks chatters by net revenue. Chatters in excluded are skipped.
// A non-positive limit returns every chatter.
func TopPerformers(payments []domain.Payment, limit int, excluded map[string]struct{}) []domain.Performer {
	sums := make(map[string]decimal.Decimal)
	for _, p := range payments {
		if !p.HasChatter() {
			continue
		}
		if _, skip := excluded[p.ChatterID]; skip {
			continue
		}
		sums[p.ChatterID] = sums[p.ChatterID].Add(p.NetAmount())
	}

	performers := make([]domain.Performer, 0, len(sums))
	for chatterID, sum := range sums {
		performers = append(performers, domain.Performer{
			ChatterID: chatterID,
			Revenue:   toFloat(sum),
		})
	}
	sort.Slice(performers, func(i, j int) bool {
		if performers[i].Revenue != performers[j].Revenue {
			return performers[i].Revenue > performers[j].Revenue
		}
		return performers[i].ChatterID < performers[j].ChatterID
	})

	if limit > 0 && len(performers) > limit {
		performers = performers[:limit]
	}
	for i := range performers {
		performers[i].Rank = i + 1
	}
	return performers
}
