package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vanshika/chatterledger/backend/internal/graph"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// GraphHealthService verifies ledger store connectivity.
type GraphHealthService struct {
	Client graph.Client
}

// Probe implements the HealthService interface.
func (s GraphHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.VerifyConnectivity(ctx)
}

// CompositeHealth probes every named dependency concurrently. The ledger store
// and the distributed lock are registered by the server binary.
type CompositeHealth map[string]HealthService

// Probe reports every failing dependency, sorted by name.
func (c CompositeHealth) Probe(ctx context.Context) error {
	var wg sync.WaitGroup
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := make([]error, len(names))
	for i, name := range names {
		if c[name] == nil {
			continue
		}
		wg.Add(1)
		go func(i int, name string, svc HealthService) {
			defer wg.Done()
			if err := svc.Probe(ctx); err != nil {
				failed[i] = fmt.Errorf("%s: %w", name, err)
			}
		}(i, name, c[name])
	}
	wg.Wait()
	return errors.Join(failed...)
}
