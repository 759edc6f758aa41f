package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vanshika/chatterledger/backend/internal/domain"
	"github.com/vanshika/chatterledger/backend/internal/repository"
)

// stubStore is an in-memory LedgerStore with the store's filtering and
// MERGE semantics.
type stubStore struct {
	mu        sync.Mutex
	payments  []domain.Payment
	clients   []domain.Client
	chatters  []domain.Chatter
	findCalls int
	queryErr  error
	insertErr error
	filters   []repository.PaymentFilter
	// findDelay widens the resolve-then-create window for race tests.
	findDelay time.Duration
}

func (s *stubStore) QueryPayments(_ context.Context, f repository.PaymentFilter) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, f)
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var out []domain.Payment
	for _, p := range s.payments {
		if p.TeamID != f.TeamID {
			continue
		}
		if f.From != nil && p.PaidAt.Before(*f.From) {
			continue
		}
		if f.To != nil && p.PaidAt.After(*f.To) {
			continue
		}
		if f.ChatterID != "" && p.ChatterID != f.ChatterID {
			continue
		}
		if f.ClientID != "" && p.ClientID != f.ClientID {
			continue
		}
		if f.Platform != "" && !strings.EqualFold(p.Platform, f.Platform) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaidAt.Before(out[j].PaidAt) })
	return out, nil
}

func (s *stubStore) ListPayments(ctx context.Context, opts repository.ListPaymentsOptions) (domain.PaymentListResult, error) {
	all, err := s.QueryPayments(ctx, opts.PaymentFilter)
	if err != nil {
		return domain.PaymentListResult{}, err
	}
	end := opts.Offset + opts.Limit
	if end > len(all) {
		end = len(all)
	}
	var items []domain.Payment
	if opts.Offset < len(all) {
		items = all[opts.Offset:end]
	}
	return domain.PaymentListResult{Items: items, Total: int64(len(all))}, nil
}

func (s *stubStore) FirstPaymentTimes(_ context.Context, teamID string) (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]time.Time{}
	for _, p := range s.payments {
		if p.TeamID != teamID || p.ClientID == "" {
			continue
		}
		if ts, ok := out[p.ClientID]; !ok || p.PaidAt.Before(ts) {
			out[p.ClientID] = p.PaidAt
		}
	}
	return out, nil
}

func (s *stubStore) QueryClients(_ context.Context, f repository.ClientFilter) ([]domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := map[string]bool{}
	for _, id := range f.IDs {
		ids[id] = true
	}
	var out []domain.Client
	for _, c := range s.clients {
		if c.TeamID != f.TeamID || (len(ids) > 0 && !ids[c.ID]) {
			continue
		}
		if c.DeletedAt != nil && !f.IncludeDeleted {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *stubStore) QueryChatters(_ context.Context, f repository.ChatterFilter) ([]domain.Chatter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Chatter
	for _, c := range s.chatters {
		if c.TeamID != f.TeamID {
			continue
		}
		if f.Username != "" && !strings.EqualFold(c.Username, f.Username) {
			continue
		}
		if c.DeletedAt != nil && !f.IncludeDeleted {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *stubStore) FindClientByIdentity(_ context.Context, teamID, email, phone string) (domain.Client, bool, error) {
	s.mu.Lock()
	s.findCalls++
	delay := s.findDelay
	s.mu.Unlock()
	time.Sleep(delay)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range []struct{ email, phone string }{{email, ""}, {"", phone}} {
		for _, c := range s.clients {
			if c.TeamID != teamID || c.DeletedAt != nil {
				continue
			}
			if (key.email != "" && c.Email == key.email) || (key.phone != "" && c.Phone == key.phone) {
				return c, true, nil
			}
		}
	}
	return domain.Client{}, false, nil
}

// UpsertClient deliberately does not merge, so duplicates surface if the
// service-side lock is bypassed.
func (s *stubStore) UpsertClient(_ context.Context, c domain.Client) (domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = append(s.clients, c)
	return c, nil
}

func (s *stubStore) UpsertChatter(_ context.Context, c domain.Chatter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.chatters {
		if s.chatters[i].ID == c.ID {
			s.chatters[i] = c
			return nil
		}
	}
	s.chatters = append(s.chatters, c)
	return nil
}

func (s *stubStore) InsertPayment(_ context.Context, p domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.payments = append(s.payments, p)
	return nil
}

func (s *stubStore) DeletePayment(_ context.Context, teamID, paymentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.payments {
		if p.TeamID == teamID && p.ID == paymentID {
			s.payments = append(s.payments[:i], s.payments[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStore) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
