package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/vanshika/chatterledger/backend/internal/domain"
	"github.com/vanshika/chatterledger/backend/internal/lock"
	"github.com/vanshika/chatterledger/backend/internal/logging"
	"github.com/vanshika/chatterledger/backend/internal/metrics"
	"github.com/vanshika/chatterledger/backend/internal/repository"
)

const defaultLockTimeout = 5 * time.Second

// LedgerService appends payment facts and keeps one client row per real person.
type LedgerService struct {
	store       LedgerStore
	teams       TeamSettingsProvider
	locker      lock.Locker
	logger      *slog.Logger
	nowFn       func() time.Time
	newID       func() string
	lockTimeout time.Duration
}

// NewLedgerService constructs a LedgerService. A nil locker falls back to an
// in-process lock.
func NewLedgerService(store LedgerStore, teams TeamSettingsProvider, locker lock.Locker, logger *slog.Logger) *LedgerService {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{
		store:       store,
		teams:       teams,
		locker:      locker,
		logger:      logger.With("component", "ledger"),
		nowFn:       time.Now,
		newID:       uuid.NewString,
		lockTimeout: defaultLockTimeout,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *LedgerService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// AppendPayment validates the input, resolves or creates the paying client
// and appends the payment.
func (s *LedgerService) AppendPayment(ctx context.Context, input PaymentInput) (domain.Payment, error) {
	return s.appendPayment(ctx, input, nil, "api")
}

func (s *LedgerService) appendPayment(ctx context.Context, input PaymentInput, cache *ImportCache, source string) (domain.Payment, error) {
	teamID := sanitizeString(input.TeamID)
	if teamID == "" {
		return domain.Payment{}, ErrTeamRequired
	}
	if err := validateAmount("amount", input.Amount); err != nil {
		metrics.PaymentsRejected.WithLabelValues("invalid_amount").Inc()
		return domain.Payment{}, err
	}
	if err := validateAmount("feeAmount", input.FeeAmount); err != nil {
		metrics.PaymentsRejected.WithLabelValues("invalid_amount").Inc()
		return domain.Payment{}, err
	}

	settings := s.teams.Settings(teamID)
	now := s.nowFn().UTC()
	paidAt := now
	if input.PaidAt != nil && !input.PaidAt.IsZero() {
		paidAt = input.PaidAt.UTC()
	}

	clientID, err := s.resolveClient(ctx, teamID, input.Client, paidAt, now, cache)
	if err != nil {
		return domain.Payment{}, err
	}

	payment := domain.Payment{
		ID:        sanitizeString(input.ID),
		TeamID:    teamID,
		ClientID:  clientID,
		ChatterID: sanitizeString(input.ChatterID),
		Amount:    input.Amount,
		FeeAmount: input.FeeAmount,
		Currency:  sanitizeString(input.Currency),
		PaidAt:    paidAt,
		Status:    sanitizeString(input.Status),
		Platform:  sanitizeString(input.Platform),
		SoldItem:  sanitizeString(input.SoldItem),
		Model:     sanitizeString(input.Model),
		Bank:      sanitizeString(input.Bank),
		Message:   input.Message,
		CreatedAt: now,
	}
	if payment.ID == "" {
		payment.ID = s.newID()
	}
	if payment.Currency == "" {
		payment.Currency = settings.Currency
	}
	if payment.Status == "" {
		payment.Status = domain.PaymentStatusCompleted
	}

	if err := s.store.InsertPayment(ctx, payment); err != nil {
		return domain.Payment{}, err
	}
	metrics.PaymentsIngested.WithLabelValues(source).Inc()
	return payment, nil
}

// resolveClient returns the client ID a payment is attributed to, or "" when
// the reference is empty.
func (s *LedgerService) resolveClient(ctx context.Context, teamID string, ref ClientRef, paidAt, now time.Time, cache *ImportCache) (string, error) {
	if ref.empty() {
		return "", nil
	}
	if id := sanitizeString(ref.ID); id != "" {
		metrics.ClientResolutions.WithLabelValues("explicit").Inc()
		return id, nil
	}

	email := normalizeEmail(ref.Email)
	phone := normalizePhone(ref.Phone)
	name := sanitizeString(ref.Name)
	nameKey := ""
	if email == "" && phone == "" && cache != nil {
		// Without an identity only the import run can recognise a repeat name.
		nameKey = normalizeName(name)
	}

	if id, ok := cache.lookupClient(email, phone, nameKey); ok {
		metrics.ClientResolutions.WithLabelValues("cache").Inc()
		return id, nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	unlock, err := lock.LockAll(lockCtx, s.locker,
		identityLockKey(teamID, identityEmail, email),
		identityLockKey(teamID, identityPhone, phone),
		identityLockKey(teamID, identityName, nameKey),
	)
	if err != nil {
		return "", fmt.Errorf("lock client identity: %w", err)
	}
	defer unlock()

	if id, ok := cache.lookupClient(email, phone, nameKey); ok {
		metrics.ClientResolutions.WithLabelValues("cache").Inc()
		return id, nil
	}

	if email != "" || phone != "" {
		existing, found, err := s.store.FindClientByIdentity(ctx, teamID, email, phone)
		if err != nil {
			return "", err
		}
		if found {
			outcome := identityPhone
			if email != "" && existing.Email == email {
				outcome = identityEmail
			}
			metrics.ClientResolutions.WithLabelValues(outcome).Inc()
			cache.rememberClient(existing.ID, email, phone, nameKey)
			return existing.ID, nil
		}
	}

	createdAt := now
	if ref.FirstPayment {
		createdAt = paidAt
	}
	candidate := domain.Client{
		ID:        s.newID(),
		TeamID:    teamID,
		Name:      name,
		Email:     email,
		Phone:     phone,
		PayoutDay: clampPayoutDay(ref.PayoutDay),
		Notes:     ref.Notes,
		CreatedAt: createdAt,
	}
	stored, err := s.store.UpsertClient(ctx, candidate)
	if err != nil {
		return "", err
	}
	if stored.ID == "" {
		stored.ID = candidate.ID
	}

	outcome := "created"
	if stored.ID != candidate.ID {
		outcome = "merged"
		logging.ForTeam(s.logger, teamID).Warn("client merged into existing row", "client_id", stored.ID)
	}
	metrics.ClientResolutions.WithLabelValues(outcome).Inc()
	cache.rememberClient(stored.ID, email, phone, nameKey)
	return stored.ID, nil
}

// RegisterChatter creates or refreshes a chatter.
func (s *LedgerService) RegisterChatter(ctx context.Context, input ChatterInput) (domain.Chatter, error) {
	teamID := sanitizeString(input.TeamID)
	if teamID == "" {
		return domain.Chatter{}, ErrTeamRequired
	}
	username := sanitizeString(input.Username)
	if username == "" {
		return domain.Chatter{}, fmt.Errorf("username: %w", ErrMissingField)
	}
	chatter := domain.Chatter{
		ID:          sanitizeString(input.ID),
		TeamID:      teamID,
		Username:    username,
		DisplayName: sanitizeString(input.DisplayName),
		Role:        sanitizeString(input.Role),
	}
	if chatter.ID == "" {
		chatter.ID = s.newID()
	}
	if err := s.store.UpsertChatter(ctx, chatter); err != nil {
		return domain.Chatter{}, err
	}
	return chatter, nil
}

// DeletePayment removes a payment as an admin correction.
func (s *LedgerService) DeletePayment(ctx context.Context, teamID, paymentID string) error {
	teamID = sanitizeString(teamID)
	if teamID == "" {
		return ErrTeamRequired
	}
	paymentID = sanitizeString(paymentID)
	if paymentID == "" {
		return fmt.Errorf("payment id: %w", ErrMissingField)
	}
	found, err := s.store.DeletePayment(ctx, teamID, paymentID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("payment %s: %w", paymentID, ErrNotFound)
	}
	metrics.PaymentsDeleted.Inc()
	logging.ForTeam(s.logger, teamID).Info("payment deleted", "payment_id", paymentID)
	return nil
}

// ListPayments retrieves paginated payments matching provided filters.
func (s *LedgerService) ListPayments(ctx context.Context, params ListPaymentsParams) (PaymentsPage, error) {
	teamID := sanitizeString(params.TeamID)
	if teamID == "" {
		return PaymentsPage{}, ErrTeamRequired
	}
	filter, err := params.Query.filter(bucketerFor(s.teams.Settings(teamID)))
	if err != nil {
		return PaymentsPage{}, err
	}
	filter.ClientID = sanitizeString(params.ClientID)

	page, pageSize := normalizePagination(params.Page, params.PageSize)
	result, err := s.store.ListPayments(ctx, repository.ListPaymentsOptions{
		PaymentFilter: filter,
		Offset:        (page - 1) * pageSize,
		Limit:         pageSize,
		SortField:     params.SortField,
		SortOrder:     params.SortOrder,
	})
	if err != nil {
		return PaymentsPage{}, err
	}
	return PaymentsPage{
		Items:      result.Items,
		Pagination: buildPaginationMeta(page, pageSize, result.Total),
	}, nil
}

// ExportPayments returns every payment in scope, oldest first.
func (s *LedgerService) ExportPayments(ctx context.Context, q Query) ([]domain.Payment, error) {
	teamID := sanitizeString(q.TeamID)
	if teamID == "" {
		return nil, ErrTeamRequired
	}
	filter, err := q.filter(bucketerFor(s.teams.Settings(teamID)))
	if err != nil {
		return nil, err
	}
	return s.store.QueryPayments(ctx, filter)
}

func validateAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%s %v: %w", field, v, ErrInvalidAmount)
	}
	return nil
}

func clampPayoutDay(day int) int {
	if day < 1 || day > 31 {
		return 0
	}
	return day
}

func normalizePagination(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}

func buildPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
		if total > 0 && totalPages == 0 {
			totalPages = 1
		}
	}
	return PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
