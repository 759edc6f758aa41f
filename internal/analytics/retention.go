package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vanshika/chatterledger/backend/internal/domain"
	"github.com/vanshika/chatterledger/backend/internal/timebucket"
)

const (
	// MaxRetentionSequence caps the payment-sequence funnel.
	MaxRetentionSequence = 20
	// MaxAverageSequence caps the per-sequence averages.
	MaxAverageSequence = 10

	secondsPerDay = 86400
)

// PaymentSequenceRetention builds the funnel of clients reaching their k-th payment.
func PaymentSequenceRetention(payments []domain.Payment) []domain.SequenceRetention {
	groups := byClient(payments)
	totalClients := len(groups)

	maxCount := 0
	for _, series := range groups {
		if len(series) > maxCount {
			maxCount = len(series)
		}
	}
	maxSeq := maxCount
	if maxSeq > MaxRetentionSequence {
		maxSeq = MaxRetentionSequence
	}

	result := make([]domain.SequenceRetention, 0, maxSeq)
	for k := 1; k <= maxSeq; k++ {
		reached := 0
		for _, series := range groups {
			if len(series) >= k {
				reached++
			}
		}
		result = append(result, domain.SequenceRetention{
			Sequence:       k,
			ClientsReached: reached,
			TotalClients:   totalClients,
			Percentage:     percentage(reached, totalClients),
		})
	}
	return result
}

// DayRetention groups clients by how many distinct business days they paid on.
func DayRetention(payments []domain.Payment, b timebucket.Bucketer) []domain.DayRetention {
	days := make(map[string]map[int64]struct{})
	for _, p := range payments {
		if !p.HasClient() {
			continue
		}
		set, ok := days[p.ClientID]
		if !ok {
			set = make(map[int64]struct{})
			days[p.ClientID] = set
		}
		set[b.Day(p.PaidAt).Unix()] = struct{}{}
	}

	totalClients := len(days)
	counts := make(map[int]int)
	for _, set := range days {
		counts[len(set)]++
	}

	result := make([]domain.DayRetention, 0, len(counts))
	for active, n := range counts {
		result = append(result, domain.DayRetention{
			DaysActive:  active,
			ClientCount: n,
			Percentage:  percentage(n, totalClients),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DaysActive < result[j].DaysActive
	})
	return result
}

// SequentialAverages averages the net amount of each client's n-th payment.
func SequentialAverages(payments []domain.Payment) []domain.SequenceAverage {
	sums := make([]decimal.Decimal, MaxAverageSequence+1)
	counts := make([]int, MaxAverageSequence+1)
	for _, series := range byClient(payments) {
		for i, p := range series {
			seq := i + 1
			if seq > MaxAverageSequence {
				break
			}
			sums[seq] = sums[seq].Add(p.NetAmount())
			counts[seq]++
		}
	}

	var result []domain.SequenceAverage
	for seq := 1; seq <= MaxAverageSequence; seq++ {
		if counts[seq] == 0 {
			continue
		}
		result = append(result, domain.SequenceAverage{
			Sequence:     seq,
			AvgNetAmount: average(sums[seq], counts[seq]),
			Count:        counts[seq],
		})
	}
	return result
}

// AvgLifespanDays is the mean first-to-last payment span, in fractional days,
// over (client, model) pairs with more than one payment.
func AvgLifespanDays(payments []domain.Payment) float64 {
	type key struct{ client, model string }
	type span struct {
		count       int
		first, last int64
	}
	spans := make(map[key]*span)
	for _, p := range payments {
		if !p.HasClient() {
			continue
		}
		k := key{client: p.ClientID, model: p.Model}
		ts := p.PaidAt.Unix()
		s, ok := spans[k]
		if !ok {
			spans[k] = &span{count: 1, first: ts, last: ts}
			continue
		}
		s.count++
		if ts < s.first {
			s.first = ts
		}
		if ts > s.last {
			s.last = ts
		}
	}

	var total float64
	qualifying := 0
	for _, s := range spans {
		if s.count < 2 {
			continue
		}
		total += float64(s.last-s.first) / secondsPerDay
		qualifying++
	}
	if qualifying == 0 {
		return 0
	}
	return total / float64(qualifying)
}
