package graph

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vanshika/chatterledger/backend/internal/metrics"
)

// ErrUnavailable is returned while the circuit is open.
var ErrUnavailable = errors.New("graph store unavailable")

// BreakerOptions tunes the circuit breaker around a Client.
type BreakerOptions struct {
	Failures int
	Timeout  time.Duration
}

// BreakerClient fails fast once the store has failed repeatedly, instead of
// letting every request wait on a dead Bolt connection.
type BreakerClient struct {
	inner Client
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps inner with a circuit breaker.
func NewBreakerClient(inner Client, opts BreakerOptions, logger *slog.Logger) *BreakerClient {
	if opts.Failures <= 0 {
		opts.Failures = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	threshold := uint32(opts.Failures)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "graph-store",
		MaxRequests: 1,
		Timeout:     opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.StoreCircuitState.Set(float64(to))
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerClient{inner: inner, cb: cb}
}

// State reports the current breaker state.
func (c *BreakerClient) State() gobreaker.State {
	return c.cb.State()
}

func (c *BreakerClient) ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return c.run(ctx, func() (Result, error) { return c.inner.ExecuteWrite(ctx, cypher, params) })
}

func (c *BreakerClient) ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return c.run(ctx, func() (Result, error) { return c.inner.ExecuteRead(ctx, cypher, params) })
}

// VerifyConnectivity bypasses the breaker so health checks see the real state.
func (c *BreakerClient) VerifyConnectivity(ctx context.Context) error {
	return c.inner.VerifyConnectivity(ctx)
}

func (c *BreakerClient) Close(ctx context.Context) error {
	return c.inner.Close(ctx)
}

func (c *BreakerClient) run(ctx context.Context, fn func() (Result, error)) (Result, error) {
	var (
		res       Result
		callerErr error
	)
	_, err := c.cb.Execute(func() (interface{}, error) {
		var err error
		res, err = fn()
		// Cancellations by the caller say nothing about store health.
		if err != nil && ctx.Err() != nil {
			callerErr = err
			return nil, nil
		}
		return nil, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Result{}, errors.Join(ErrUnavailable, err)
	}
	if err != nil {
		return Result{}, err
	}
	if callerErr != nil {
		return Result{}, callerErr
	}
	return res, nil
}
