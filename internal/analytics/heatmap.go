package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/chatterledger/backend/internal/domain"
	"github.com/vanshika/chatterledger/backend/internal/timebucket"
)

// DefaultHeatmapDays is used when the caller does not ask for a width.
const DefaultHeatmapDays = 30

// ClientHeatmap lays each client's payments out by day offset from the
// client's first business day. With anchor set, only clients whose first
// business day equals anchor are returned.
func ClientHeatmap(payments []domain.Payment, firstDays map[string]time.Time, b timebucket.Bucketer, anchor *time.Time, daysToShow int) []domain.ClientHeatmapRow {
	if daysToShow <= 0 {
		daysToShow = DefaultHeatmapDays
	}

	var rows []domain.ClientHeatmapRow
	for clientID, series := range byClient(payments) {
		first, ok := firstDays[clientID]
		if !ok {
			first = b.Day(series[0].PaidAt)
		}
		if anchor != nil && !first.Equal(*anchor) {
			continue
		}

		cells := make(map[int]decimal.Decimal)
		for _, p := range series {
			offset := timebucket.DaysBetween(first, b.Day(p.PaidAt))
			if offset < 0 || offset >= daysToShow {
				continue
			}
			cells[offset] = cells[offset].Add(p.NetAmount())
		}

		row := domain.ClientHeatmapRow{
			ClientID: clientID,
			FirstDay: first,
			Days:     make(map[int]float64, len(cells)),
		}
		total := decimal.Zero
		for offset, amount := range cells {
			if amount.IsZero() {
				continue
			}
			row.Days[offset] = toFloat(amount)
			total = total.Add(amount)
			if amount.IsPositive() {
				row.ActiveDays++
			}
		}
		row.TotalAmount = toFloat(total)
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalAmount != rows[j].TotalAmount {
			return rows[i].TotalAmount > rows[j].TotalAmount
		}
		return rows[i].ClientID < rows[j].ClientID
	})
	return rows
}

// DayOfWeekHeatmap sums net amount and payment count per business weekday.
// The result always has seven entries, Sunday first.
func DayOfWeekHeatmap(payments []domain.Payment, b timebucket.Bucketer) []domain.WeekdayBucket {
	var sums [7]decimal.Decimal
	var counts [7]int
	for _, p := range payments {
		wd := int(b.Weekday(p.PaidAt))
		sums[wd] = sums[wd].Add(p.NetAmount())
		counts[wd]++
	}

	buckets := make([]domain.WeekdayBucket, 7)
	for wd := 0; wd < 7; wd++ {
		buckets[wd] = domain.WeekdayBucket{
			Weekday: wd,
			Amount:  toFloat(sums[wd]),
			Count:   counts[wd],
		}
	}
	return buckets
}
