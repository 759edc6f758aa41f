package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/vanshika/chatterledger/backend/internal/domain"
	"github.com/vanshika/chatterledger/backend/internal/repository"
	"github.com/vanshika/chatterledger/backend/internal/timebucket"
)

// Bound is one end of a requested time range. A date-only bound names a
// business day rather than an instant.
type Bound struct {
	At       time.Time
	DateOnly bool
}

// ParseBound accepts RFC3339 timestamps or YYYY-MM-DD business dates. An empty
// string yields a nil bound.
func ParseBound(raw string) (*Bound, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if day, err := time.Parse(time.DateOnly, raw); err == nil {
		return &Bound{At: day, DateOnly: true}, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", raw, ErrInvalidRange)
	}
	return &Bound{At: ts.UTC()}, nil
}

// Query is the common scope of analytics and listing calls.
type Query struct {
	TeamID    string
	From      *Bound
	To        *Bound
	ChatterID string
	Platform  string
}

// resolve turns the bounds into instants. A date-only from starts at the
// beginning of that business day; a date-only to runs through its end.
func (q Query) resolve(b timebucket.Bucketer) (from, to *time.Time, err error) {
	if q.From != nil {
		t := q.From.At
		if q.From.DateOnly {
			t = b.DayStart(q.From.At)
		}
		from = &t
	}
	if q.To != nil {
		t := q.To.At
		if q.To.DateOnly {
			t = b.DayStart(q.To.At.AddDate(0, 0, 1)).Add(-time.Nanosecond)
		}
		to = &t
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, fmt.Errorf("from %s is after to %s: %w", from.Format(time.RFC3339), to.Format(time.RFC3339), ErrInvalidRange)
	}
	return from, to, nil
}

func (q Query) filter(b timebucket.Bucketer) (repository.PaymentFilter, error) {
	from, to, err := q.resolve(b)
	if err != nil {
		return repository.PaymentFilter{}, err
	}
	return repository.PaymentFilter{
		TeamID:    sanitizeString(q.TeamID),
		From:      from,
		To:        to,
		ChatterID: sanitizeString(q.ChatterID),
		Platform:  sanitizeString(q.Platform),
	}, nil
}

// bucketerFor builds the team's bucketer. Settings are validated when loaded,
// so an unknown zone falls back to the default rule.
func bucketerFor(settings domain.TeamSettings) timebucket.Bucketer {
	b, err := timebucket.New(settings.Timezone, settings.DayOffset)
	if err != nil {
		return timebucket.Default()
	}
	return b
}
