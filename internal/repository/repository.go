package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vanshika/chatterledger/backend/internal/domain"
	"github.com/vanshika/chatterledger/backend/internal/graph"
)

// ErrTeamRequired is returned when a query is issued without a team scope.
var ErrTeamRequired = errors.New("team id is required")

// PaymentFilter scopes a payment read. Zero values mean "no filter".
type PaymentFilter struct {
	TeamID    string
	From      *time.Time
	To        *time.Time
	ChatterID string
	ClientID  string
	Platform  string
}

// ListPaymentsOptions defines filters and pagination for payment listing.
type ListPaymentsOptions struct {
	PaymentFilter
	Offset    int
	Limit     int
	SortField string
	SortOrder string
}

// ClientFilter scopes a client read.
type ClientFilter struct {
	TeamID         string
	IDs            []string
	IncludeDeleted bool
}

// ChatterFilter scopes a chatter read.
type ChatterFilter struct {
	TeamID         string
	Username       string
	IncludeDeleted bool
}

// Repository encapsulates ledger persistence on the graph store.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// EnsureSchema creates the uniqueness constraints client dedup relies on.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.client.ExecuteWrite(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// QueryPayments returns every payment in scope, oldest first.
func (r *Repository) QueryPayments(ctx context.Context, filter PaymentFilter) ([]domain.Payment, error) {
	if filter.TeamID == "" {
		return nil, ErrTeamRequired
	}

	query := fmt.Sprintf(queryPaymentsCypherTemplate, paymentFilterClause)
	res, err := r.client.ExecuteRead(ctx, query, paymentFilterParams(filter))
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}

	payments := make([]domain.Payment, 0, len(res.Records))
	for _, record := range res.Records {
		payments = append(payments, paymentFromRecord(record))
	}
	return payments, nil
}

// ListPayments returns a page of payments matching the filter.
func (r *Repository) ListPayments(ctx context.Context, opts ListPaymentsOptions) (domain.PaymentListResult, error) {
	if opts.TeamID == "" {
		return domain.PaymentListResult{}, ErrTeamRequired
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	params := paymentFilterParams(opts.PaymentFilter)
	params["skip"] = offset
	params["limit"] = limit

	query := fmt.Sprintf(listPaymentsCypherTemplate, paymentFilterClause, paymentOrderClause(opts.SortField, opts.SortOrder))
	res, err := r.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return domain.PaymentListResult{}, fmt.Errorf("list payments query: %w", err)
	}

	var items []domain.Payment
	for _, record := range res.Records {
		items = append(items, paymentFromRecord(record))
	}

	countQuery := fmt.Sprintf(countPaymentsCypherTemplate, paymentFilterClause)
	countRes, err := r.client.ExecuteRead(ctx, countQuery, params)
	if err != nil {
		return domain.PaymentListResult{}, fmt.Errorf("count payments query: %w", err)
	}

	var total int64
	if record, ok := countRes.First(); ok {
		total = toInt64(record["total"])
	}

	return domain.PaymentListResult{Items: items, Total: total}, nil
}

// FirstPaymentTimes returns the earliest PaidAt of every client in the team,
// over the whole ledger history.
func (r *Repository) FirstPaymentTimes(ctx context.Context, teamID string) (map[string]time.Time, error) {
	if teamID == "" {
		return nil, ErrTeamRequired
	}
	res, err := r.client.ExecuteRead(ctx, firstPaymentTimesCypher, map[string]any{"teamId": teamID})
	if err != nil {
		return nil, fmt.Errorf("first payment times: %w", err)
	}

	first := make(map[string]time.Time, len(res.Records))
	for _, record := range res.Records {
		clientID := toString(record["clientId"])
		ts := toTimePtr(record["firstPaidAt"])
		if clientID == "" || ts == nil {
			continue
		}
		first[clientID] = *ts
	}
	return first, nil
}

// InsertPayment appends a payment fact and links it to its client and chatter.
func (r *Repository) InsertPayment(ctx context.Context, p domain.Payment) error {
	if p.ID == "" {
		return errors.New("payment id is required")
	}
	if p.TeamID == "" {
		return ErrTeamRequired
	}

	params := map[string]any{
		"paymentId": p.ID,
		"teamId":    p.TeamID,
		"clientId":  p.ClientID,
		"chatterId": p.ChatterID,
		"paidAt":    formatTime(p.PaidAt),
		"createdAt": formatTime(p.CreatedAt),
		"props":     paymentProperties(p),
	}
	if _, err := r.client.ExecuteWrite(ctx, insertPaymentCypher, params); err != nil {
		return fmt.Errorf("insert payment %s: %w", p.ID, err)
	}
	return nil
}

// DeletePayment removes a payment as an admin correction. It reports whether
// a payment was found.
func (r *Repository) DeletePayment(ctx context.Context, teamID, paymentID string) (bool, error) {
	if teamID == "" {
		return false, ErrTeamRequired
	}
	res, err := r.client.ExecuteWrite(ctx, deletePaymentCypher, map[string]any{
		"teamId":    teamID,
		"paymentId": paymentID,
	})
	if err != nil {
		return false, fmt.Errorf("delete payment %s: %w", paymentID, err)
	}
	record, ok := res.First()
	return ok && toInt64(record["deleted"]) > 0, nil
}

// FindClientByIdentity looks up a live client by normalized email, then phone.
func (r *Repository) FindClientByIdentity(ctx context.Context, teamID, email, phone string) (domain.Client, bool, error) {
	if teamID == "" {
		return domain.Client{}, false, ErrTeamRequired
	}
	lookups := []struct {
		query string
		value string
	}{
		{findClientByEmailCypher, email},
		{findClientByPhoneCypher, phone},
	}
	for _, lookup := range lookups {
		if lookup.value == "" {
			continue
		}
		res, err := r.client.ExecuteRead(ctx, lookup.query, map[string]any{
			"teamId": teamID,
			"value":  lookup.value,
		})
		if err != nil {
			return domain.Client{}, false, fmt.Errorf("find client: %w", err)
		}
		if record, ok := res.First(); ok {
			return clientFromRecord(record), true, nil
		}
	}
	return domain.Client{}, false, nil
}

// UpsertClient inserts the client unless one with the same team-scoped email
// (or, without an email, phone) already exists, in which case the stored row is
// returned unchanged. The MERGE is backed by uniqueness constraints, so
// concurrent callers converge on a single row.
func (r *Repository) UpsertClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	if c.TeamID == "" {
		return domain.Client{}, ErrTeamRequired
	}
	if c.ID == "" {
		return domain.Client{}, errors.New("client id is required")
	}

	query := createClientCypher
	params := map[string]any{
		"teamId":    c.TeamID,
		"clientId":  c.ID,
		"createdAt": formatTime(c.CreatedAt),
		"props":     clientProperties(c),
	}
	switch {
	case c.Email != "":
		query = mergeClientByEmailCypher
		params["value"] = c.Email
	case c.Phone != "":
		query = mergeClientByPhoneCypher
		params["value"] = c.Phone
	}

	res, err := r.client.ExecuteWrite(ctx, query, params)
	if err != nil {
		return domain.Client{}, fmt.Errorf("upsert client %s: %w", c.ID, err)
	}
	record, ok := res.First()
	if !ok {
		return c, nil
	}
	return clientFromRecord(record), nil
}

// QueryClients returns clients of a team, optionally restricted to IDs.
func (r *Repository) QueryClients(ctx context.Context, filter ClientFilter) ([]domain.Client, error) {
	if filter.TeamID == "" {
		return nil, ErrTeamRequired
	}
	ids := filter.IDs
	if ids == nil {
		ids = []string{}
	}
	res, err := r.client.ExecuteRead(ctx, queryClientsCypher, map[string]any{
		"teamId":         filter.TeamID,
		"ids":            ids,
		"includeDeleted": filter.IncludeDeleted,
	})
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	clients := make([]domain.Client, 0, len(res.Records))
	for _, record := range res.Records {
		clients = append(clients, clientFromRecord(record))
	}
	return clients, nil
}

// QueryChatters returns chatters of a team.
func (r *Repository) QueryChatters(ctx context.Context, filter ChatterFilter) ([]domain.Chatter, error) {
	if filter.TeamID == "" {
		return nil, ErrTeamRequired
	}
	res, err := r.client.ExecuteRead(ctx, queryChattersCypher, map[string]any{
		"teamId":         filter.TeamID,
		"username":       strings.ToLower(strings.TrimSpace(filter.Username)),
		"includeDeleted": filter.IncludeDeleted,
	})
	if err != nil {
		return nil, fmt.Errorf("query chatters: %w", err)
	}
	chatters := make([]domain.Chatter, 0, len(res.Records))
	for _, record := range res.Records {
		chatters = append(chatters, chatterFromRecord(record))
	}
	return chatters, nil
}

// UpsertChatter creates or refreshes a chatter record.
func (r *Repository) UpsertChatter(ctx context.Context, c domain.Chatter) error {
	if c.TeamID == "" {
		return ErrTeamRequired
	}
	if c.ID == "" {
		return errors.New("chatter id is required")
	}
	_, err := r.client.ExecuteWrite(ctx, upsertChatterCypher, map[string]any{
		"teamId":    c.TeamID,
		"chatterId": c.ID,
		"props":     chatterProperties(c),
	})
	if err != nil {
		return fmt.Errorf("upsert chatter %s: %w", c.ID, err)
	}
	return nil
}

func paymentFilterParams(f PaymentFilter) map[string]any {
	return map[string]any{
		"teamId":    f.TeamID,
		"from":      formatTimePtr(f.From),
		"to":        formatTimePtr(f.To),
		"chatterId": strings.TrimSpace(f.ChatterID),
		"clientId":  strings.TrimSpace(f.ClientID),
		"platform":  strings.ToLower(strings.TrimSpace(f.Platform)),
	}
}

func paymentOrderClause(field, order string) string {
	dir := "DESC"
	if strings.EqualFold(order, "ASC") {
		dir = "ASC"
	}
	switch strings.ToLower(field) {
	case "amount":
		return fmt.Sprintf("coalesce(p.amount, 0.0) %s", dir)
	case "platform":
		return fmt.Sprintf("toLower(coalesce(p.platform, \"\")) %s", dir)
	case "createdat":
		return fmt.Sprintf("p.createdAt %s", dir)
	default:
		return fmt.Sprintf("p.paidAt %s", dir)
	}
}
