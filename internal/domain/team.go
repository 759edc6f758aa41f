package domain

import "time"

// TeamSettings holds the per-team knobs every aggregation is evaluated with.
type TeamSettings struct {
	TeamID              string
	Timezone            string
	DayOffset           time.Duration
	Currency            string
	NewClientMultiplier float64
	HotWindow           time.Duration
}
