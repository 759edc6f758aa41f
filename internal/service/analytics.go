package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/chatterledger/backend/internal/analytics"
	"github.com/vanshika/chatterledger/backend/internal/domain"
	"github.com/vanshika/chatterledger/backend/internal/metrics"
	"github.com/vanshika/chatterledger/backend/internal/repository"
	"github.com/vanshika/chatterledger/backend/internal/timebucket"
)

// DefaultTopLimit is the number of performers returned when none is requested.
const DefaultTopLimit = 3

// LeagueQuery scopes the league table. Without bounds the window is the
// current business month.
type LeagueQuery struct {
	Query
	View string
}

// TopQuery scopes the best-performer ranking. Without bounds the window is
// the current business month up to now.
type TopQuery struct {
	Query
	Limit int
}

// HeatmapQuery scopes the client activity heatmap. Anchor is a business date.
type HeatmapQuery struct {
	TeamID string
	Anchor *time.Time
	Days   int
}

// Dashboard bundles the widgets a team dashboard polls for.
type Dashboard struct {
	Totals    domain.TeamTotals
	Window    domain.WindowTotals
	League    []domain.LeagueRow
	Top       []domain.Performer
	Weekdays  []domain.WeekdayBucket
	Retention []domain.SequenceRetention
}

// AnalyticsService evaluates ledger analytics on demand. It holds no state
// beyond its dependencies, so calls may run in parallel.
type AnalyticsService struct {
	store  LedgerStore
	teams  TeamSettingsProvider
	logger *slog.Logger
	nowFn  func() time.Time
}

// NewAnalyticsService constructs an AnalyticsService.
func NewAnalyticsService(store LedgerStore, teams TeamSettingsProvider, logger *slog.Logger) *AnalyticsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsService{
		store:  store,
		teams:  teams,
		logger: logger.With("component", "analytics"),
		nowFn:  time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *AnalyticsService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

type scope struct {
	teamID   string
	settings domain.TeamSettings
	b        timebucket.Bucketer
	now      time.Time
}

func (s *AnalyticsService) scope(teamID string) (scope, error) {
	teamID = sanitizeString(teamID)
	if teamID == "" {
		return scope{}, ErrTeamRequired
	}
	settings := s.teams.Settings(teamID)
	return scope{
		teamID:   teamID,
		settings: settings,
		b:        bucketerFor(settings),
		now:      s.nowFn().UTC(),
	}, nil
}

func observe(op string, start time.Time, scanned int) {
	metrics.AnalyticsDuration.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000)
	metrics.PaymentsScanned.WithLabelValues(op).Observe(float64(scanned))
}

// query runs a filtered payment read for q within sc.
func (s *AnalyticsService) query(ctx context.Context, sc scope, q Query) ([]domain.Payment, error) {
	q.TeamID = sc.teamID
	filter, err := q.filter(sc.b)
	if err != nil {
		return nil, err
	}
	return s.store.QueryPayments(ctx, filter)
}

// recent reads payments needed for the now-relative figures: the current
// business day and the trailing hot window, whichever starts earlier.
func (s *AnalyticsService) recent(ctx context.Context, sc scope, chatterID string) ([]domain.Payment, error) {
	from := sc.b.DayStart(sc.b.Day(sc.now))
	if hot := sc.now.Add(-sc.settings.HotWindow); hot.Before(from) {
		from = hot
	}
	return s.store.QueryPayments(ctx, repository.PaymentFilter{
		TeamID:    sc.teamID,
		From:      &from,
		ChatterID: sanitizeString(chatterID),
	})
}

// TeamTotals returns net revenue for the current business day, week and month.
func (s *AnalyticsService) TeamTotals(ctx context.Context, teamID string) (domain.TeamTotals, error) {
	start := time.Now()
	sc, err := s.scope(teamID)
	if err != nil {
		return domain.TeamTotals{}, err
	}

	today := sc.b.Day(sc.now)
	earliest := timebucket.MonthStart(today)
	if week := timebucket.WeekStart(today); week.Before(earliest) {
		earliest = week
	}
	from := sc.b.DayStart(earliest)
	payments, err := s.store.QueryPayments(ctx, repository.PaymentFilter{TeamID: sc.teamID, From: &from})
	if err != nil {
		return domain.TeamTotals{}, fmt.Errorf("team totals: %w", err)
	}
	defer observe("team_totals", start, len(payments))
	return analytics.TeamTotals(payments, sc.b, sc.now), nil
}

// WindowTotals returns the filtered total plus today and hot-window revenue.
func (s *AnalyticsService) WindowTotals(ctx context.Context, q Query) (domain.WindowTotals, error) {
	start := time.Now()
	sc, err := s.scope(q.TeamID)
	if err != nil {
		return domain.WindowTotals{}, err
	}
	filtered, err := s.query(ctx, sc, q)
	if err != nil {
		return domain.WindowTotals{}, fmt.Errorf("window totals: %w", err)
	}
	recent, err := s.recent(ctx, sc, q.ChatterID)
	if err != nil {
		return domain.WindowTotals{}, fmt.Errorf("window totals recent: %w", err)
	}
	defer observe("window_totals", start, len(filtered)+len(recent))
	return analytics.WindowTotals(filtered, recent, sc.b, sc.now, sc.settings.HotWindow), nil
}

// RangeTotal returns net revenue over the filtered scope.
func (s *AnalyticsService) RangeTotal(ctx context.Context, q Query) (float64, error) {
	start := time.Now()
	sc, err := s.scope(q.TeamID)
	if err != nil {
		return 0, err
	}
	payments, err := s.query(ctx, sc, q)
	if err != nil {
		return 0, fmt.Errorf("range total: %w", err)
	}
	defer observe("range_total", start, len(payments))
	return analytics.RangeTotal(payments), nil
}

// PaymentSequenceRetention returns the n-th payment funnel for clients in scope.
func (s *AnalyticsService) PaymentSequenceRetention(ctx context.Context, q Query) ([]domain.SequenceRetention, error) {
	start := time.Now()
	sc, err := s.scope(q.TeamID)
	if err != nil {
		return nil, err
	}
	payments, err := s.query(ctx, sc, q)
	if err != nil {
		return nil, fmt.Errorf("sequence retention: %w", err)
	}
	defer observe("sequence_retention", start, len(payments))
	return analytics.PaymentSequenceRetention(payments), nil
}

// DayRetention groups clients in scope by distinct business days paid on.
func (s *AnalyticsService) DayRetention(ctx context.Context, q Query) ([]domain.DayRetention, error) {
	start := time.Now()
	sc, err := s.scope(q.TeamID)
	if err != nil {
		return nil, err
	}
	payments, err := s.query(ctx, sc, q)
	if err != nil {
		return nil, fmt.Errorf("day retention: %w", err)
	}
	defer observe("day_retention", start, len(payments))
	return analytics.DayRetention(payments, sc.b), nil
}

// SequentialAverages returns the mean net amount of the n-th payment.
func (s *AnalyticsService) SequentialAverages(ctx context.Context, q Query) ([]domain.SequenceAverage, error) {
	start := time.Now()
	sc, err := s.scope(q.TeamID)
	if err != nil {
		return nil, err
	}
	payments, err := s.query(ctx, sc, q)
	if err != nil {
		return nil, fmt.Errorf("sequential averages: %w", err)
	}
	defer observe("sequential_averages", start, len(payments))
	return analytics.SequentialAverages(payments), nil
}

// AvgLifespanDays returns the mean first-to-last payment span per client and model.
func (s *AnalyticsService) AvgLifespanDays(ctx context.Context, q Query) (float64, error) {
	start := time.Now()
	sc, err := s.scope(q.TeamID)
	if err != nil {
		return 0, err
	}
	payments, err := s.query(ctx, sc, q)
	if err != nil {
		return 0, fmt.Errorf("lifespan: %w", err)
	}
	defer observe("lifespan", start, len(payments))
	return analytics.AvgLifespanDays(payments), nil
}

// monthToDate defaults missing bounds to the current business month up to now.
func monthToDate(sc scope, q Query) Query {
	if q.From == nil {
		q.From = &Bound{At: timebucket.MonthStart(sc.b.Day(sc.now)), DateOnly: true}
	}
	if q.To == nil {
		q.To = &Bound{At: sc.now}
	}
	return q
}

// League returns the league table: points over the window, today's revenue
// and hot-window revenue per chatter. Admin and deleted chatters are left out;
// active chatters without payments appear with zeros.
func (s *AnalyticsService) League(ctx context.Context, lq LeagueQuery) ([]domain.LeagueRow, error) {
	start := time.Now()
	view := lq.View
	if view == "" {
		view = analytics.ViewPoints
	}
	if view != analytics.ViewPoints && view != analytics.ViewDaily {
		return nil, fmt.Errorf("view %q: %w", lq.View, ErrInvalidView)
	}
	sc, err := s.scope(lq.TeamID)
	if err != nil {
		return nil, err
	}

	window, err := s.query(ctx, sc, monthToDate(sc, lq.Query))
	if err != nil {
		return nil, fmt.Errorf("league window: %w", err)
	}
	recent, err := s.recent(ctx, sc, lq.ChatterID)
	if err != nil {
		return nil, fmt.Errorf("league recent: %w", err)
	}
	earliest, err := s.store.FirstPaymentTimes(ctx, sc.teamID)
	if err != nil {
		return nil, fmt.Errorf("league first payments: %w", err)
	}
	chatters, err := s.chatters(ctx, sc.teamID)
	if err != nil {
		return nil, err
	}
	defer observe("league", start, len(window)+len(recent))

	firstDays := analytics.FirstPaymentDays(earliest, window, sc.b)
	rows := analytics.LeaguePoints(window, recent, firstDays, sc.b, sc.now, analytics.LeagueOptions{
		Multiplier: sc.settings.NewClientMultiplier,
		HotWindow:  sc.settings.HotWindow,
		ChatterID:  sanitizeString(lq.ChatterID),
	})

	out := make([]domain.LeagueRow, 0, len(rows)+len(chatters))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		seen[row.ChatterID] = struct{}{}
		if c, ok := chatters[row.ChatterID]; ok {
			if !c.eligible() {
				continue
			}
			row.ChatterName = c.Name()
		} else {
			row.ChatterName = row.ChatterID
		}
		out = append(out, row)
	}
	for id, c := range chatters {
		if _, ok := seen[id]; ok || !c.eligible() {
			continue
		}
		if lq.ChatterID != "" && id != sanitizeString(lq.ChatterID) {
			continue
		}
		out = append(out, domain.LeagueRow{ChatterID: id, ChatterName: c.Name()})
	}
	return analytics.RankLeague(out, view), nil
}

// TopPerformers ranks non-admin chatters by net revenue in the window.
func (s *AnalyticsService) TopPerformers(ctx context.Context, tq TopQuery) ([]domain.Performer, error) {
	start := time.Now()
	sc, err := s.scope(tq.TeamID)
	if err != nil {
		return nil, err
	}
	limit := tq.Limit
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	payments, err := s.query(ctx, sc, monthToDate(sc, tq.Query))
	if err != nil {
		return nil, fmt.Errorf("top performers: %w", err)
	}
	chatters, err := s.chatters(ctx, sc.teamID)
	if err != nil {
		return nil, err
	}
	defer observe("top_performers", start, len(payments))

	excluded := make(map[string]struct{})
	for id, c := range chatters {
		if c.IsAdmin() {
			excluded[id] = struct{}{}
		}
	}
	performers := analytics.TopPerformers(payments, limit, excluded)
	for i := range performers {
		performers[i].ChatterName = performers[i].ChatterID
		if c, ok := chatters[performers[i].ChatterID]; ok {
			performers[i].ChatterName = c.Name()
		}
	}
	return performers, nil
}

// ClientHeatmap lays client payments out by day offset since their first
// business day, joined with client names.
func (s *AnalyticsService) ClientHeatmap(ctx context.Context, hq HeatmapQuery) ([]domain.ClientHeatmapRow, error) {
	start := time.Now()
	sc, err := s.scope(hq.TeamID)
	if err != nil {
		return nil, err
	}
	days := hq.Days
	if days <= 0 {
		days = analytics.DefaultHeatmapDays
	}

	filter := repository.PaymentFilter{TeamID: sc.teamID}
	var anchor *time.Time
	if hq.Anchor != nil {
		day := time.Date(hq.Anchor.Year(), hq.Anchor.Month(), hq.Anchor.Day(), 0, 0, 0, 0, time.UTC)
		anchor = &day
		from := sc.b.DayStart(day)
		to := sc.b.DayStart(day.AddDate(0, 0, days)).Add(-time.Nanosecond)
		filter.From, filter.To = &from, &to
	}

	payments, err := s.store.QueryPayments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("client heatmap: %w", err)
	}
	earliest, err := s.store.FirstPaymentTimes(ctx, sc.teamID)
	if err != nil {
		return nil, fmt.Errorf("client heatmap first payments: %w", err)
	}
	defer observe("client_heatmap", start, len(payments))

	rows := analytics.ClientHeatmap(payments, analytics.FirstPaymentDays(earliest, payments, sc.b), sc.b, anchor, days)
	if len(rows) == 0 {
		return rows, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ClientID)
	}
	clients, err := s.store.QueryClients(ctx, repository.ClientFilter{TeamID: sc.teamID, IDs: ids, IncludeDeleted: true})
	if err != nil {
		return nil, fmt.Errorf("client heatmap names: %w", err)
	}
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	for i := range rows {
		rows[i].ClientName = names[rows[i].ClientID]
	}
	return rows, nil
}

// DayOfWeekHeatmap sums net revenue per business weekday in scope.
func (s *AnalyticsService) DayOfWeekHeatmap(ctx context.Context, q Query) ([]domain.WeekdayBucket, error) {
	start := time.Now()
	sc, err := s.scope(q.TeamID)
	if err != nil {
		return nil, err
	}
	payments, err := s.query(ctx, sc, q)
	if err != nil {
		return nil, fmt.Errorf("weekday heatmap: %w", err)
	}
	defer observe("weekday_heatmap", start, len(payments))
	return analytics.DayOfWeekHeatmap(payments, sc.b), nil
}

// Dashboard evaluates the dashboard widgets concurrently. The first failing
// widget cancels the rest.
func (s *AnalyticsService) Dashboard(ctx context.Context, q Query) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		d.Totals, err = s.TeamTotals(gctx, q.TeamID)
		return err
	})
	g.Go(func() (err error) {
		d.Window, err = s.WindowTotals(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		d.League, err = s.League(gctx, LeagueQuery{Query: Query{TeamID: q.TeamID, ChatterID: q.ChatterID}, View: analytics.ViewDaily})
		return err
	})
	g.Go(func() (err error) {
		d.Top, err = s.TopPerformers(gctx, TopQuery{Query: Query{TeamID: q.TeamID}})
		return err
	})
	g.Go(func() (err error) {
		d.Weekdays, err = s.DayOfWeekHeatmap(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		d.Retention, err = s.PaymentSequenceRetention(gctx, q)
		return err
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

type chatterInfo struct {
	domain.Chatter
}

func (c chatterInfo) eligible() bool {
	return !c.IsAdmin() && c.DeletedAt == nil
}

func (s *AnalyticsService) chatters(ctx context.Context, teamID string) (map[string]chatterInfo, error) {
	list, err := s.store.QueryChatters(ctx, repository.ChatterFilter{TeamID: teamID, IncludeDeleted: true})
	if err != nil {
		return nil, fmt.Errorf("query chatters: %w", err)
	}
	out := make(map[string]chatterInfo, len(list))
	for _, c := range list {
		out[c.ID] = chatterInfo{c}
	}
	return out, nil
}
