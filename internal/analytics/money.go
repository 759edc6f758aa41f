// Package analytics turns slices of ledger payments into the revenue,
// retention, scoring and heatmap views shown on the dashboards.
//
// Every function here is pure: callers fetch the team-scoped payments from the
// store and pass them in together with the team's Bucketer.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vanshika/chatterledger/backend/internal/domain"
)

// sumNet adds up the net amount of every payment.
func sumNet(payments []domain.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.NetAmount())
	}
	return total
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// average divides sum by count, returning zero for an empty group.
func average(sum decimal.Decimal, count int) float64 {
	if count == 0 {
		return 0
	}
	return toFloat(sum.Div(decimal.NewFromInt(int64(count))))
}

// percentage returns part/total*100, or zero when total is zero.
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// sortChronological orders payments by PaidAt, then CreatedAt, then ID.
func sortChronological(payments []domain.Payment) {
	sort.SliceStable(payments, func(i, j int) bool {
		a, b := payments[i], payments[j]
		if !a.PaidAt.Equal(b.PaidAt) {
			return a.PaidAt.Before(b.PaidAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// byClient groups client-attributed payments, each group in chronological order.
func byClient(payments []domain.Payment) map[string][]domain.Payment {
	groups := make(map[string][]domain.Payment)
	for _, p := range payments {
		if !p.HasClient() {
			continue
		}
		groups[p.ClientID] = append(groups[p.ClientID], p)
	}
	for id := range groups {
		sortChronological(groups[id])
	}
	return groups
}
