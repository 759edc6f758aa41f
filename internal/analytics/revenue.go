package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/chatterledger/backend/internal/domain"
	"github.com/vanshika/chatterledger/backend/internal/timebucket"
)

// TeamTotals sums net revenue for the business day, week and month containing now.
func TeamTotals(payments []domain.Payment, b timebucket.Bucketer, now time.Time) domain.TeamTotals {
	today := b.Day(now)
	week := timebucket.WeekStart(today)
	month := timebucket.MonthStart(today)

	daily, weekly, monthly := decimal.Zero, decimal.Zero, decimal.Zero
	for _, p := range payments {
		day := b.Day(p.PaidAt)
		net := p.NetAmount()
		if day.Equal(today) {
			daily = daily.Add(net)
		}
		if timebucket.WeekStart(day).Equal(week) {
			weekly = weekly.Add(net)
		}
		if timebucket.MonthStart(day).Equal(month) {
			monthly = monthly.Add(net)
		}
	}

	return domain.TeamTotals{
		Daily:   toFloat(daily),
		Weekly:  toFloat(weekly),
		Monthly: toFloat(monthly),
	}
}

// WindowTotals sums the filtered slice and derives the now-relative figures
// from recent, which must not be narrowed by the caller's date range.
func WindowTotals(filtered, recent []domain.Payment, b timebucket.Bucketer, now time.Time, window time.Duration) domain.WindowTotals {
	today := b.Day(now)
	since := now.Add(-window)

	todaySum, windowSum := decimal.Zero, decimal.Zero
	for _, p := range recent {
		net := p.NetAmount()
		if b.Day(p.PaidAt).Equal(today) {
			todaySum = todaySum.Add(net)
		}
		if !p.PaidAt.Before(since) && !p.PaidAt.After(now) {
			windowSum = windowSum.Add(net)
		}
	}

	return domain.WindowTotals{
		Total:      toFloat(sumNet(filtered)),
		Today:      toFloat(todaySum),
		LastWindow: toFloat(windowSum),
	}
}

// RangeTotal sums net revenue of an already filtered slice.
func RangeTotal(payments []domain.Payment) float64 {
	return toFloat(sumNet(payments))
}
