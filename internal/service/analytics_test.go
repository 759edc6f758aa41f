package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vanshika/chatterledger/backend/internal/analytics"
	"github.com/vanshika/chatterledger/backend/internal/domain"
)

func leagueStore() *stubStore {
	deleted := fixedNow.Add(-48 * time.Hour)
	return &stubStore{
		chatters: []domain.Chatter{
			{ID: "CHT-A", TeamID: "team-1", Username: "eva", DisplayName: "Eva"},
			{ID: "CHT-B", TeamID: "team-1", Username: "idle"},
			{ID: "CHT-ADMIN", TeamID: "team-1", Username: "boss", Role: domain.RoleAdmin},
			{ID: "CHT-DEL", TeamID: "team-1", Username: "gone", DeletedAt: &deleted},
		},
		clients: []domain.Client{
			{ID: "C1", TeamID: "team-1", Name: "Client One"},
			{ID: "C2", TeamID: "team-1", Name: "Client Two"},
			{ID: "C3", TeamID: "team-1", Name: "Client Three"},
		},
		payments: []domain.Payment{
			{ID: "P1", TeamID: "team-1", ClientID: "C1", ChatterID: "CHT-A", Amount: 100, PaidAt: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)},
			{ID: "P2", TeamID: "team-1", ClientID: "C2", ChatterID: "CHT-A", Amount: 50, PaidAt: time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)},
			{ID: "P3", TeamID: "team-1", ClientID: "C2", ChatterID: "CHT-A", Amount: 40, FeeAmount: 10, PaidAt: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)},
			{ID: "P4", TeamID: "team-1", ClientID: "C3", ChatterID: "CHT-ADMIN", Amount: 1000, PaidAt: time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)},
			{ID: "P5", TeamID: "team-1", ClientID: "C1", ChatterID: "CHT-A", Amount: 20, PaidAt: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
			{ID: "P6", TeamID: "team-2", ClientID: "X", ChatterID: "CHT-A", Amount: 9999, PaidAt: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)},
		},
	}
}

func newTestAnalytics(store *stubStore) *AnalyticsService {
	svc := NewAnalyticsService(store, testSettings, nil)
	svc.WithClock(func() time.Time { return fixedNow })
	return svc
}

func date(t *testing.T, raw string) *Bound {
	t.Helper()
	b, err := ParseBound(raw)
	if err != nil {
		t.Fatalf("parse bound %q: %v", raw, err)
	}
	return b
}

func TestAnalyticsService_League(t *testing.T) {
	svc := newTestAnalytics(leagueStore())

	rows, err := svc.League(context.Background(), LeagueQuery{Query: Query{TeamID: "team-1"}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected eva and idle only, got %+v", rows)
	}

	eva := rows[0]
	if eva.ChatterID != "CHT-A" || eva.ChatterName != "Eva" {
		t.Fatalf("expected eva first, got %+v", eva)
	}
	// P1 and P5 land on C1's first business day (x2), P3 does not.
	if eva.MonthlyPoints != 270 {
		t.Errorf("expected 270 points, got %v", eva.MonthlyPoints)
	}
	if eva.DailyRevenue != 120 {
		t.Errorf("expected daily revenue 120, got %v", eva.DailyRevenue)
	}
	if eva.LastWindowRevenue != 20 {
		t.Errorf("expected hot window revenue 20, got %v", eva.LastWindowRevenue)
	}

	idle := rows[1]
	if idle.ChatterID != "CHT-B" || idle.ChatterName != "idle" || idle.MonthlyPoints != 0 {
		t.Errorf("expected zero row for idle chatter, got %+v", idle)
	}
}

func TestAnalyticsService_LeagueFirstEverPaymentBonus(t *testing.T) {
	store := &stubStore{payments: []domain.Payment{
		{ID: "P1", TeamID: "team-1", ClientID: "NEW", ChatterID: "CHT-A", Amount: 200, PaidAt: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
	}}
	svc := newTestAnalytics(store)

	rows, err := svc.League(context.Background(), LeagueQuery{Query: Query{TeamID: "team-1"}, View: analytics.ViewPoints})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rows) != 1 || rows[0].MonthlyPoints != 400 {
		t.Fatalf("expected 400 points, got %+v", rows)
	}
}

func TestAnalyticsService_LeagueRejectsUnknownView(t *testing.T) {
	svc := newTestAnalytics(leagueStore())
	_, err := svc.League(context.Background(), LeagueQuery{Query: Query{TeamID: "team-1"}, View: "weekly"})
	if !errors.Is(err, ErrInvalidView) {
		t.Fatalf("expected ErrInvalidView, got %v", err)
	}
}

func TestAnalyticsService_TeamTotals(t *testing.T) {
	store := leagueStore()
	svc := newTestAnalytics(store)

	totals, err := svc.TeamTotals(context.Background(), "team-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := domain.TeamTotals{Daily: 120, Weekly: 1120, Monthly: 1150}
	if totals != want {
		t.Fatalf("expected %+v, got %+v", want, totals)
	}

	// March 1st 02:00 in Prague.
	wantFrom := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
	if f := store.filters[0]; f.From == nil || !f.From.Equal(wantFrom) {
		t.Fatalf("expected read from %s, got %+v", wantFrom, f.From)
	}
}

func TestAnalyticsService_WindowTotals(t *testing.T) {
	store := leagueStore()
	svc := newTestAnalytics(store)

	got, err := svc.WindowTotals(context.Background(), Query{
		TeamID: "team-1",
		From:   date(t, "2024-03-05"),
		To:     date(t, "2024-03-05"),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := domain.WindowTotals{Total: 30, Today: 120, LastWindow: 20}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if len(store.filters) != 2 || store.filters[1].To != nil {
		t.Fatalf("expected an unbounded second read for now-relative figures")
	}
}

func TestAnalyticsService_RangeTotalDateOnlyBounds(t *testing.T) {
	store := &stubStore{payments: []domain.Payment{
		// 01:30 Prague on the 11th still belongs to business day 10th.
		{ID: "late", TeamID: "team-1", Amount: 70, PaidAt: time.Date(2024, 3, 11, 0, 30, 0, 0, time.UTC)},
		// 01:30 Prague on the 10th belongs to the 9th.
		{ID: "early", TeamID: "team-1", Amount: 5, PaidAt: time.Date(2024, 3, 10, 0, 30, 0, 0, time.UTC)},
		{ID: "in", TeamID: "team-1", Amount: 30, FeeAmount: 5, PaidAt: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
	}}
	svc := newTestAnalytics(store)

	total, err := svc.RangeTotal(context.Background(), Query{
		TeamID: "team-1",
		From:   date(t, "2024-03-10"),
		To:     date(t, "2024-03-10"),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if total != 95 {
		t.Fatalf("expected 95, got %v", total)
	}
}

func TestAnalyticsService_FallBackDayBoundary(t *testing.T) {
	// 00:30 UTC on 25 October 2026 is 02:30 CEST, before clocks fall back,
	// and already belongs to business day 25th.
	store := &stubStore{payments: []domain.Payment{
		{ID: "P1", TeamID: "team-1", Amount: 100, PaidAt: time.Date(2026, 10, 25, 0, 30, 0, 0, time.UTC)},
	}}
	svc := NewAnalyticsService(store, testSettings, nil)
	svc.WithClock(func() time.Time { return time.Date(2026, 10, 25, 12, 0, 0, 0, time.UTC) })
	ctx := context.Background()

	window, err := svc.WindowTotals(ctx, Query{TeamID: "team-1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if window.Today != 100 {
		t.Fatalf("expected today 100, got %+v", window)
	}

	total, err := svc.RangeTotal(ctx, Query{TeamID: "team-1", From: date(t, "2026-10-25"), To: date(t, "2026-10-25")})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if total != 100 {
		t.Fatalf("expected 100 on the 25th, got %v", total)
	}

	total, err = svc.RangeTotal(ctx, Query{TeamID: "team-1", To: date(t, "2026-10-24")})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if total != 0 {
		t.Fatalf("expected nothing up to the 24th, got %v", total)
	}
}

func TestAnalyticsService_InvalidRange(t *testing.T) {
	svc := newTestAnalytics(leagueStore())
	_, err := svc.RangeTotal(context.Background(), Query{
		TeamID: "team-1",
		From:   date(t, "2024-03-10"),
		To:     date(t, "2024-03-01"),
	})
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := ParseBound("yesterday"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for unparsable bound, got %v", err)
	}
}

func TestAnalyticsService_Retention(t *testing.T) {
	store := leagueStore()
	svc := newTestAnalytics(store)
	ctx := context.Background()
	q := Query{TeamID: "team-1"}

	seq, err := svc.PaymentSequenceRetention(ctx, q)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(seq) < 2 || seq[0].ClientsReached != 3 || seq[1].ClientsReached != 2 {
		t.Fatalf("unexpected funnel %+v", seq)
	}

	days, err := svc.DayRetention(ctx, q)
	if err != nil || len(days) == 0 {
		t.Fatalf("expected day retention rows, got %+v err=%v", days, err)
	}

	avgs, err := svc.SequentialAverages(ctx, q)
	if err != nil || len(avgs) == 0 {
		t.Fatalf("expected averages, got %+v err=%v", avgs, err)
	}

	if _, err := svc.AvgLifespanDays(ctx, Query{}); !errors.Is(err, ErrTeamRequired) {
		t.Fatalf("expected ErrTeamRequired, got %v", err)
	}
}

func TestAnalyticsService_TopPerformersExcludesAdmins(t *testing.T) {
	svc := newTestAnalytics(leagueStore())

	top, err := svc.TopPerformers(context.Background(), TopQuery{Query: Query{TeamID: "team-1"}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(top) != 1 || top[0].ChatterID != "CHT-A" || top[0].Revenue != 150 || top[0].Rank != 1 {
		t.Fatalf("unexpected performers %+v", top)
	}
	if top[0].ChatterName != "Eva" {
		t.Errorf("expected display name join, got %q", top[0].ChatterName)
	}
}

func TestAnalyticsService_ClientHeatmap(t *testing.T) {
	svc := newTestAnalytics(leagueStore())

	rows, err := svc.ClientHeatmap(context.Background(), HeatmapQuery{TeamID: "team-1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 clients, got %d", len(rows))
	}
	if rows[0].ClientID != "C3" || rows[0].ClientName != "Client Three" {
		t.Fatalf("expected biggest client first, got %+v", rows[0])
	}
	c2 := rows[2]
	if c2.ClientID != "C2" || c2.Days[0] != 50 || c2.Days[24] != 30 || c2.ActiveDays != 2 {
		t.Fatalf("unexpected C2 row %+v", c2)
	}

	anchor := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	rows, err = svc.ClientHeatmap(context.Background(), HeatmapQuery{TeamID: "team-1", Anchor: &anchor, Days: 7})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rows) != 1 || rows[0].ClientID != "C1" || rows[0].TotalAmount != 120 {
		t.Fatalf("expected only C1 for anchor, got %+v", rows)
	}
}

func TestAnalyticsService_DayOfWeekHeatmap(t *testing.T) {
	svc := newTestAnalytics(leagueStore())

	buckets, err := svc.DayOfWeekHeatmap(context.Background(), Query{TeamID: "team-1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(buckets) != 7 {
		t.Fatalf("expected 7 weekdays, got %d", len(buckets))
	}
	if buckets[time.Friday].Amount != 120 || buckets[time.Friday].Count != 2 {
		t.Errorf("unexpected Friday bucket %+v", buckets[time.Friday])
	}
}

func TestAnalyticsService_Dashboard(t *testing.T) {
	svc := newTestAnalytics(leagueStore())

	d, err := svc.Dashboard(context.Background(), Query{TeamID: "team-1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d.Totals.Daily != 120 || len(d.Weekdays) != 7 || len(d.League) != 2 || len(d.Top) != 1 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
	if d.League[0].ChatterID != "CHT-A" {
		t.Errorf("expected daily view ranking, got %+v", d.League)
	}
}

func TestAnalyticsService_DashboardPropagatesStoreErrors(t *testing.T) {
	store := leagueStore()
	store.queryErr = errors.New("store down")
	svc := newTestAnalytics(store)

	if _, err := svc.Dashboard(context.Background(), Query{TeamID: "team-1"}); err == nil {
		t.Fatalf("expected dashboard error")
	}
}
