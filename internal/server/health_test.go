package server

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCompositeHealth(t *testing.T) {
	ok := probeFunc(func(context.Context) error { return nil })
	down := probeFunc(func(context.Context) error { return errors.New("connection refused") })

	if err := (CompositeHealth{"graph": ok, "redis": ok, "skipped": nil}).Probe(context.Background()); err != nil {
		t.Fatalf("expected healthy, got %v", err)
	}

	err := CompositeHealth{"graph": ok, "redis": down}.Probe(context.Background())
	if err == nil {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(err.Error(), "redis: connection refused") {
		t.Fatalf("expected failing dependency to be named, got %v", err)
	}
	if strings.Contains(err.Error(), "graph") {
		t.Fatalf("expected healthy dependency to be omitted, got %v", err)
	}
}

func TestGraphHealthServiceWithoutClient(t *testing.T) {
	if err := (GraphHealthService{}).Probe(context.Background()); err != nil {
		t.Fatalf("expected nil client to be healthy, got %v", err)
	}
}
