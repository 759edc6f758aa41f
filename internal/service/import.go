package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/vanshika/chatterledger/backend/internal/logging"
	"github.com/vanshika/chatterledger/backend/internal/repository"
)

// ImportCache holds the client and chatter lookups of a single import run.
// It is created per run and never shared between runs.
type ImportCache struct {
	teamID string

	mu       sync.RWMutex
	clients  map[string]string
	chatters map[string]string
}

// NewImportCache returns an empty cache scoped to one team.
func NewImportCache(teamID string) *ImportCache {
	return &ImportCache{
		teamID:   teamID,
		clients:  make(map[string]string),
		chatters: make(map[string]string),
	}
}

func cacheKey(kind, value string) string {
	return kind + ":" + value
}

// lookupClient checks email, then phone, then name. A nil cache never hits.
func (c *ImportCache) lookupClient(email, phone, name string) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, key := range []string{
		cacheKey(identityEmail, email),
		cacheKey(identityPhone, phone),
		cacheKey(identityName, name),
	} {
		if strings.HasSuffix(key, ":") {
			continue
		}
		if id, ok := c.clients[key]; ok {
			return id, true
		}
	}
	return "", false
}

func (c *ImportCache) rememberClient(id, email, phone, name string) {
	if c == nil || id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if email != "" {
		c.clients[cacheKey(identityEmail, email)] = id
	}
	if phone != "" {
		c.clients[cacheKey(identityPhone, phone)] = id
	}
	if name != "" {
		c.clients[cacheKey(identityName, name)] = id
	}
}

func (c *ImportCache) lookupChatter(username string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.chatters[username]
	return id, ok
}

func (c *ImportCache) rememberChatter(username, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatters[username] = id
}

// ImportRow is one payment of a bulk import. ChatterUsername is resolved
// against the team when ChatterID is empty.
type ImportRow struct {
	PaymentInput
	ChatterUsername string
}

// ImportReport summarises a bulk import run.
type ImportReport struct {
	Total    int
	Imported int
	Failed   int
	Duration time.Duration
}

// ImporterOptions tunes bulk import concurrency.
type ImporterOptions struct {
	Workers int
	// RatePerSecond throttles store writes; zero disables throttling.
	RatePerSecond float64
	Burst         int
}

// Importer appends many payments concurrently through the ledger service.
type Importer struct {
	ledger *LedgerService
	pool   workerPool
	logger *slog.Logger
}

// NewImporter constructs an Importer on top of the ledger service.
func NewImporter(ledger *LedgerService, opts ImporterOptions) *Importer {
	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return &Importer{
		ledger: ledger,
		pool:   newWorkerPool(opts.Workers, limiter),
		logger: ledger.logger.With("component", "importer"),
	}
}

// Import appends rows for one team. Row failures are collected in a
// *TaskError while the remaining rows are still imported.
func (im *Importer) Import(ctx context.Context, teamID string, rows []ImportRow) (ImportReport, error) {
	teamID = sanitizeString(teamID)
	if teamID == "" {
		return ImportReport{}, ErrTeamRequired
	}

	start := time.Now()
	cache := NewImportCache(teamID)
	var imported int64

	err := im.pool.run(ctx, len(rows), func(idx int) error {
		row := rows[idx]
		input := row.PaymentInput
		input.TeamID = teamID

		if input.ChatterID == "" && row.ChatterUsername != "" {
			chatterID, err := im.resolveChatter(ctx, cache, row.ChatterUsername)
			if err != nil {
				return err
			}
			input.ChatterID = chatterID
		}

		if _, err := im.ledger.appendPayment(ctx, input, cache, "import"); err != nil {
			return err
		}
		atomic.AddInt64(&imported, 1)
		return nil
	})

	report := ImportReport{
		Total:    len(rows),
		Imported: int(imported),
		Duration: time.Since(start),
	}
	report.Failed = report.Total - report.Imported

	logging.ForTeam(im.logger, teamID).Info("import finished",
		"total", report.Total,
		"imported", report.Imported,
		"failed", report.Failed,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, err
}

func (im *Importer) resolveChatter(ctx context.Context, cache *ImportCache, username string) (string, error) {
	key := strings.ToLower(sanitizeString(username))
	if id, ok := cache.lookupChatter(key); ok {
		return id, nil
	}
	chatters, err := im.ledger.store.QueryChatters(ctx, repository.ChatterFilter{
		TeamID:   cache.teamID,
		Username: key,
	})
	if err != nil {
		return "", err
	}
	if len(chatters) == 0 {
		return "", fmt.Errorf("%q: %w", username, ErrUnknownChatter)
	}
	cache.rememberChatter(key, chatters[0].ID)
	return chatters[0].ID, nil
}
