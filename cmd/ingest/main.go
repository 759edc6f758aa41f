package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/vanshika/chatterledger/backend/internal/config"
	"github.com/vanshika/chatterledger/backend/internal/generator"
	"github.com/vanshika/chatterledger/backend/internal/graph"
	"github.com/vanshika/chatterledger/backend/internal/lock"
	"github.com/vanshika/chatterledger/backend/internal/logging"
	"github.com/vanshika/chatterledger/backend/internal/repository"
	"github.com/vanshika/chatterledger/backend/internal/service"
)

func main() {
	var (
		datasetPath = flag.String("dataset", "./data", "ledger.json or the directory containing it")
		teamID      = flag.String("team", "", "override the dataset's team ID")
		workers     = flag.Int("workers", 4, "number of concurrent import workers")
		rps         = flag.Float64("rate", 0, "maximum payments written per second (0 disables throttling)")
		burst       = flag.Int("burst", 10, "burst size when -rate is set")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "ingest")

	dataset, err := generator.ReadDataset(*datasetPath)
	if err != nil {
		logger.Error("failed to load dataset", "error", err, "path", *datasetPath)
		os.Exit(1)
	}
	if *teamID != "" {
		dataset.TeamID = *teamID
	}
	if len(dataset.Payments) == 0 {
		logger.Error("dataset has no payments", "path", *datasetPath)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	graphClient, err := buildGraphClient(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	repo := repository.New(graphClient)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure ledger schema", "error", err)
		os.Exit(1)
	}

	teams, err := config.NewTeams(cfg.Ledger, logger)
	if err != nil {
		logger.Error("failed to load team settings", "error", err)
		os.Exit(1)
	}

	var locker lock.Locker
	if cfg.Redis.Addr != "" {
		rl, err := lock.NewRedisLocker(ctx, lock.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.LockTTL,
		}, logger)
		if err != nil {
			logger.Error("failed to connect redis lock", "error", err)
			os.Exit(1)
		}
		defer rl.Close()
		locker = rl
	}

	ledger := service.NewLedgerService(repo, teams, locker, logger)
	for _, chatter := range dataset.ChatterInputs() {
		if _, err := ledger.RegisterChatter(ctx, chatter); err != nil {
			logger.Error("failed to register chatter", "error", err, "username", chatter.Username)
			os.Exit(1)
		}
	}
	logger.Info("chatters registered", "team_id", dataset.TeamID, "count", len(dataset.Chatters))

	importer := service.NewImporter(ledger, service.ImporterOptions{
		Workers:       *workers,
		RatePerSecond: *rps,
		Burst:         *burst,
	})
	report, err := importer.Import(ctx, dataset.TeamID, dataset.ImportRows())

	var taskErr *service.TaskError
	switch {
	case err == nil:
	case errors.As(err, &taskErr):
		for i, rowErr := range taskErr.Errors {
			if i == 20 {
				logger.Warn("further row errors suppressed", "remaining", len(taskErr.Errors)-i)
				break
			}
			logger.Warn("row rejected", "error", rowErr)
		}
	default:
		logger.Error("import aborted", "error", err, "imported", report.Imported)
		os.Exit(1)
	}

	logger.Info("ingestion complete",
		"team_id", dataset.TeamID,
		"duration", report.Duration.String(),
		"imported", report.Imported,
		"failed", report.Failed,
	)
	if report.Failed > 0 {
		os.Exit(2)
	}
}

func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, fmt.Errorf("GRAPH_URI is required for ingestion")
	}
	opts := graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}
	client, err := graph.NewNeo4jClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
	return client, nil
}
