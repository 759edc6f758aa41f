package service

import (
	"context"
	"errors"
	"time"

	"github.com/vanshika/chatterledger/backend/internal/domain"
	"github.com/vanshika/chatterledger/backend/internal/repository"
)

var (
	// ErrInvalidAmount rejects non-finite or negative money values.
	ErrInvalidAmount = errors.New("amount must be a finite, non-negative number")
	// ErrTeamRequired is returned for calls without a team scope.
	ErrTeamRequired = repository.ErrTeamRequired
	// ErrInvalidRange is returned when from is after to or a bound cannot be parsed.
	ErrInvalidRange = errors.New("invalid time range")
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidView is returned for an unsupported league view.
	ErrInvalidView = errors.New("invalid view")
	// ErrUnknownChatter is returned by bulk import for usernames not in the team.
	ErrUnknownChatter = errors.New("unknown chatter")
	// ErrMissingField is returned when a required identifier is empty.
	ErrMissingField = errors.New("missing required field")
)

// LedgerStore is the storage contract shared by ingestion and analytics.
type LedgerStore interface {
	QueryPayments(ctx context.Context, filter repository.PaymentFilter) ([]domain.Payment, error)
	ListPayments(ctx context.Context, opts repository.ListPaymentsOptions) (domain.PaymentListResult, error)
	FirstPaymentTimes(ctx context.Context, teamID string) (map[string]time.Time, error)
	QueryClients(ctx context.Context, filter repository.ClientFilter) ([]domain.Client, error)
	QueryChatters(ctx context.Context, filter repository.ChatterFilter) ([]domain.Chatter, error)
	FindClientByIdentity(ctx context.Context, teamID, email, phone string) (domain.Client, bool, error)
	UpsertClient(ctx context.Context, client domain.Client) (domain.Client, error)
	UpsertChatter(ctx context.Context, chatter domain.Chatter) error
	InsertPayment(ctx context.Context, payment domain.Payment) error
	DeletePayment(ctx context.Context, teamID, paymentID string) (bool, error)
}

// TeamSettingsProvider resolves the settings a team is evaluated with.
type TeamSettingsProvider interface {
	Settings(teamID string) domain.TeamSettings
}

// StaticTeams applies the same settings to every team.
type StaticTeams domain.TeamSettings

func (s StaticTeams) Settings(teamID string) domain.TeamSettings {
	out := domain.TeamSettings(s)
	out.TeamID = teamID
	return out
}
