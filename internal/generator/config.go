package generator

import "time"

// Config drives the synthetic ledger generator.
type Config struct {
	TeamID      string
	NumChatters int
	NumPayments int
	// RepeatClientChance is the probability that a payment comes from a
	// client who already paid.
	RepeatClientChance float64
	// PhoneOnlyChance and NameOnlyChance shape how new clients identify themselves.
	PhoneOnlyChance float64
	NameOnlyChance  float64
	FeeChance       float64
	Span            time.Duration
	Seed            int64
}

// DefaultConfig returns baseline settings for a demo team.
func DefaultConfig() Config {
	return Config{
		TeamID:             "team-demo",
		NumChatters:        8,
		NumPayments:        5000,
		RepeatClientChance: 0.6,
		PhoneOnlyChance:    0.2,
		NameOnlyChance:     0.1,
		FeeChance:          0.3,
		Span:               60 * 24 * time.Hour,
		Seed:               42,
	}
}
