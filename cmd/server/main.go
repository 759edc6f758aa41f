package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vanshika/chatterledger/backend/internal/config"
	"github.com/vanshika/chatterledger/backend/internal/graph"
	"github.com/vanshika/chatterledger/backend/internal/lock"
	"github.com/vanshika/chatterledger/backend/internal/logging"
	"github.com/vanshika/chatterledger/backend/internal/metrics"
	"github.com/vanshika/chatterledger/backend/internal/repository"
	"github.com/vanshika/chatterledger/backend/internal/server"
	"github.com/vanshika/chatterledger/backend/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	graphClient, err := buildGraphClient(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if graphClient != nil {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
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
	teams.OnChange(metrics.TeamSettingsReloads.Inc)
	stopWatch, err := teams.Watch()
	if err != nil {
		logger.Warn("team settings hot reload disabled", "error", err)
	} else {
		defer stopWatch()
	}

	health := server.CompositeHealth{"graph": server.GraphHealthService{Client: graphClient}}

	var locker lock.Locker
	if cfg.Redis.Addr != "" {
		redisLocker, err := lock.NewRedisLocker(ctx, lock.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.LockTTL,
		}, logger)
		if err != nil {
			logger.Error("failed to create redis client lock", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisLocker.Close(); err != nil {
				logger.Warn("closing redis lock failed", "error", err)
			}
		}()
		locker = redisLocker
		health["redis"] = redisLocker
		logger.Info("using redis client lock", "addr", cfg.Redis.Addr)
	} else {
		logger.Info("using in-process client lock")
	}

	ledger := service.NewLedgerService(repo, teams, locker, logger)
	analytics := service.NewAnalyticsService(repo, teams, logger)
	importer := service.NewImporter(ledger, service.ImporterOptions{Workers: 4})
	apiHandlers := server.NewAPIHandlers(logger, ledger, analytics, importer)

	var metricsHandler http.Handler
	if cfg.HTTP.MetricsEnabled {
		metricsHandler = promhttp.Handler()
	}

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           health,
		API:              apiHandlers,
		Metrics:          metricsHandler,
		AllowedOrigins:   splitCSV(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
		RateLimitRPS:     cfg.HTTP.RateLimitRPS,
		RateLimitBurst:   cfg.HTTP.RateLimitBurst,
		TrustedProxies:   splitCSV(cfg.HTTP.TrustedProxiesCSV),
	})

	srv := server.New(logger, cfg.HTTP, router)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(runCtx); err != nil {
		logger.Error("server stopped unexpectedly", "error", err)
	}
	logger.Info("server stopped")
}

func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, graph.ErrMissingURI
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
	return graph.NewBreakerClient(client, graph.BreakerOptions{
		Failures: cfg.Graph.BreakerFailures,
		Timeout:  cfg.Graph.BreakerTimeout,
	}, logger), nil
}

func splitCSV(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var values []string
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	return values
}
