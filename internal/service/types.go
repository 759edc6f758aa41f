package service

import (
	"time"

	"github.com/vanshika/chatterledger/backend/internal/domain"
)

// ClientRef identifies the paying client. ID wins; otherwise email then phone
// are used to find an existing client before a new one is created.
type ClientRef struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	PayoutDay int
	Notes     string
	// FirstPayment asserts this is the client's first-ever interaction, so a
	// newly created client is dated at the payment rather than at ingestion.
	FirstPayment bool
}

func (c ClientRef) empty() bool {
	return c.ID == "" && c.Name == "" && c.Email == "" && c.Phone == ""
}

// PaymentInput is the inbound payload accepted by AppendPayment.
type PaymentInput struct {
	ID        string
	TeamID    string
	ChatterID string
	Client    ClientRef
	PaidAt    *time.Time
	Amount    float64
	FeeAmount float64
	Currency  string
	Status    string
	Platform  string
	SoldItem  string
	Model     string
	Bank      string
	Message   string
}

// ChatterInput registers or refreshes a chatter.
type ChatterInput struct {
	ID          string
	TeamID      string
	Username    string
	DisplayName string
	Role        string
}

// PaginationMeta captures pagination metadata returned to API clients.
type PaginationMeta struct {
	Page       int
	PageSize   int
	TotalItems int64
	TotalPages int
}

// PaymentsPage represents paginated payments with metadata.
type PaymentsPage struct {
	Items      []domain.Payment
	Pagination PaginationMeta
}

// ListPaymentsParams defines filters for listing payments.
type ListPaymentsParams struct {
	Query
	Page      int
	PageSize  int
	ClientID  string
	SortField string
	SortOrder string
}
