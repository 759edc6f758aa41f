package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// RouterDependencies collects handler dependencies. TrustedProxies lists the
// addresses or CIDR ranges whose X-Forwarded-For header keys the rate limiter.
type RouterDependencies struct {
	Health           HealthService
	API              *APIHandlers
	Metrics          http.Handler
	AllowedOrigins   []string
	AllowCredentials bool
	RateLimitRPS     float64
	RateLimitBurst   int
	TrustedProxies   []string
}

// NewRouter wires the HTTP routes exposed by the backend API.
func NewRouter(logger *slog.Logger, deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		payload := map[string]any{
			"status": "ok",
		}

		if deps.Health != nil {
			if err := deps.Health.Probe(ctx); err != nil {
				logger.Error("health probe failed", "error", err)
				status = http.StatusServiceUnavailable
				payload["status"] = "degraded"
				payload["error"] = err.Error()
			}
		}

		respondJSON(w, status, payload)
	})

	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}

	if deps.API != nil {
		mux.HandleFunc("/payments", deps.API.handlePayments)
		mux.HandleFunc("/payments/import", deps.API.handleImport)
		mux.HandleFunc("/payments/", deps.API.handlePayment)
		mux.HandleFunc("/chatters", deps.API.handleChatters)
		mux.HandleFunc("/export/payments", deps.API.handleExportPayments)

		mux.HandleFunc("/analytics/totals", deps.API.handleTeamTotals)
		mux.HandleFunc("/analytics/window", deps.API.handleWindowTotals)
		mux.HandleFunc("/analytics/range", deps.API.handleRangeTotal)
		mux.HandleFunc("/analytics/retention/sequence", deps.API.handleSequenceRetention)
		mux.HandleFunc("/analytics/retention/days", deps.API.handleDayRetention)
		mux.HandleFunc("/analytics/retention/averages", deps.API.handleSequentialAverages)
		mux.HandleFunc("/analytics/retention/lifespan", deps.API.handleLifespan)
		mux.HandleFunc("/analytics/league", deps.API.handleLeague)
		mux.HandleFunc("/analytics/top", deps.API.handleTopPerformers)
		mux.HandleFunc("/analytics/heatmap/clients", deps.API.handleClientHeatmap)
		mux.HandleFunc("/analytics/heatmap/weekdays", deps.API.handleWeekdayHeatmap)
		mux.HandleFunc("/analytics/dashboard", deps.API.handleDashboard)
	}

	handler := http.Handler(mux)
	if deps.RateLimitRPS > 0 {
		limiter := newRateLimiter(deps.RateLimitRPS, deps.RateLimitBurst)
		trusted, err := parseTrustedProxies(deps.TrustedProxies)
		if err != nil {
			logger.Warn("ignoring trusted proxies, rate limiting by peer address", "error", err)
		} else {
			limiter.trusted = trusted
		}
		handler = rateLimitMiddleware(limiter)(handler)
	}
	handler = loggingMiddleware(logger, handler)
	if len(deps.AllowedOrigins) > 0 {
		handler = corsMiddleware(deps.AllowedOrigins, deps.AllowCredentials)(handler)
	}
	return handler
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"team_id", r.URL.Query().Get("teamId"),
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func corsMiddleware(allowedOrigins []string, allowCredentials bool) func(http.Handler) http.Handler {
	normalized := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		normalized[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || (!containsOrigin(normalized, origin) && !containsOrigin(normalized, "*")) {
				if r.Method == http.MethodOptions {
					// Reject bare pre-flight if origin is not whitelisted.
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			if allowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func containsOrigin(set map[string]struct{}, origin string) bool {
	_, ok := set[origin]
	return ok
}
