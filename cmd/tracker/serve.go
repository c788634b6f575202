package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/yourorg/bridge-fee-tracker/internal/config"
	"github.com/yourorg/bridge-fee-tracker/internal/export"
	"github.com/yourorg/bridge-fee-tracker/internal/fetch"
	"github.com/yourorg/bridge-fee-tracker/internal/metrics"
	"github.com/yourorg/bridge-fee-tracker/internal/model"
	"github.com/yourorg/bridge-fee-tracker/internal/otel"
	"github.com/yourorg/bridge-fee-tracker/internal/tracker"
)

func serveAction(c *cli.Context) error {
	if c.IsSet("port") {
		cfg.Port = c.String("port")
	}

	shutdownTracing, err := otel.InitTracer(c.Context, cfg)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	tr := tracker.New(cfg, fetch.NewSources(cfg)...).WithMetrics(m)
	exporter := newExporter(cfg)

	logrus.WithFields(logrus.Fields{
		"version":   version,
		"port":      cfg.Port,
		"protocols": tr.Protocols(),
		"cache_ttl": cfg.CacheTTL,
		"metrics":   cfg.MetricsEnabled,
		"tracing":   cfg.OTelEnabled,
	}).Info("Bridge fee tracker initialized")

	return newServer(cfg, tr, exporter).start()
}

// server hosts the HTTP surface of the tracker: quote comparisons, health,
// status and Prometheus metrics.
type server struct {
	cfg      *config.Config
	tracker  *tracker.Tracker
	exporter *export.Exporter
	limiter  *rate.Limiter
	started  time.Time
}

func newServer(cfg *config.Config, tr *tracker.Tracker, exporter *export.Exporter) *server {
	return &server{
		cfg:      cfg,
		tracker:  tr,
		exporter: exporter,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		started:  time.Now(),
	}
}

// start runs the HTTP server until SIGINT or SIGTERM, then shuts down
// gracefully and flushes the exporter.
func (s *server) start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/quotes", s.handleQuotes)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/metrics", s.handleMetrics)

	srv := &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.logRequests(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Server starting on port %s", s.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logrus.Infof("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.exporter.Stop()
	logrus.Info("Server stopped")
	return nil
}

// logRequests wraps the mux with per-request logging.
func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
			"remote":   r.RemoteAddr,
		}).Debug("Request handled")
	})
}

// handleQuotes serves GET /quotes?token=&from=&to=&amount= as a JSON fee
// comparison. Missing parameters fall back to the default route.
func (s *server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow() {
		s.errorResponse(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	req, err := requestFromQuery(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HTTPTimeout)
	defer cancel()

	comparison, err := s.tracker.Compare(ctx, req)
	switch {
	case err == nil:
		s.exporter.Add(comparison)
		s.writeJSON(w, http.StatusOK, comparison)
	case errors.Is(err, tracker.ErrAllSourcesFailed):
		// The rows carry the per-protocol errors, so return them with the
		// gateway status instead of a bare error message.
		s.writeJSON(w, http.StatusBadGateway, comparison)
	default:
		s.errorResponse(w, http.StatusBadRequest, err.Error())
	}
}

// requestFromQuery builds a quote request from URL query parameters, using
// the same defaults as the CLI flags.
func requestFromQuery(r *http.Request) (model.QuoteRequest, error) {
	q := r.URL.Query()

	token := q.Get("token")
	if token == "" {
		token = "USDC"
	}
	from := q.Get("from")
	if from == "" {
		from = "ethereum"
	}
	to := q.Get("to")
	if to == "" {
		to = "optimism"
	}
	rawAmount := q.Get("amount")
	if rawAmount == "" {
		rawAmount = "1000"
	}

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return model.QuoteRequest{}, fmt.Errorf("amount %q is not numeric", rawAmount)
	}
	return model.QuoteRequest{
		Token:       strings.ToUpper(token),
		SourceChain: strings.ToLower(from),
		DestChain:   strings.ToLower(to),
		Amount:      amount,
	}, nil
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"version":   version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.MetricsEnabled {
		http.Error(w, "Metrics disabled", http.StatusServiceUnavailable)
		return
	}
	metrics.Handler().ServeHTTP(w, r)
}

// handleStatus reports uptime, configured protocols, circuit breaker states
// and the exporter state.
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "operational",
		"version":   version,
		"uptime":    time.Since(s.started).String(),
		"protocols": s.tracker.Protocols(),
		"breakers":  s.tracker.BreakerStates(),
		"exporter":  s.exporter.Status(),
	})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}

func (s *server) errorResponse(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
