package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatusCompleted is the status assigned to payments logged without one.
const PaymentStatusCompleted = "completed"

// Payment is a single completed payment fact in the team ledger.
type Payment struct {
	ID        string
	TeamID    string
	ClientID  string
	ChatterID string
	Amount    float64
	FeeAmount float64
	Currency  string
	PaidAt    time.Time
	Status    string
	Platform  string
	SoldItem  string
	Model     string
	Bank      string
	Message   string
	CreatedAt time.Time
}

// NetAmount returns Amount minus FeeAmount. A missing fee is stored as zero.
func (p Payment) NetAmount() decimal.Decimal {
	return decimal.NewFromFloat(p.Amount).Sub(decimal.NewFromFloat(p.FeeAmount))
}

// HasClient reports whether the payment is attributed to a client.
func (p Payment) HasClient() bool {
	return p.ClientID != ""
}

// HasChatter reports whether the payment is attributed to a chatter.
func (p Payment) HasChatter() bool {
	return p.ChatterID != ""
}

// PaymentListResult captures paginated payment list results.
type PaymentListResult struct {
	Items []Payment
	Total int64
}
