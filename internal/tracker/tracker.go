// Package tracker orchestrates fee comparisons: it fans quote requests out to
// every configured bridge protocol, guards each upstream with a circuit
// breaker, caches results and assembles the final comparison.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/yourorg/bridge-fee-tracker/internal/cache"
	"github.com/yourorg/bridge-fee-tracker/internal/circuitbreaker"
	"github.com/yourorg/bridge-fee-tracker/internal/compare"
	"github.com/yourorg/bridge-fee-tracker/internal/config"
	"github.com/yourorg/bridge-fee-tracker/internal/fetch"
	"github.com/yourorg/bridge-fee-tracker/internal/metrics"
	"github.com/yourorg/bridge-fee-tracker/internal/model"
	"github.com/yourorg/bridge-fee-tracker/internal/normalize"
	"github.com/yourorg/bridge-fee-tracker/internal/otel"
	"github.com/yourorg/bridge-fee-tracker/internal/types"
	"github.com/yourorg/bridge-fee-tracker/internal/validation"
)

// ErrAllSourcesFailed is returned by Compare when no protocol produced a
// usable quote. The comparison still carries one failed row per protocol.
var ErrAllSourcesFailed = errors.New("all protocols failed to quote")

// Tracker compares bridge fees across protocols. Construct it with New and
// the builder methods; the zero value is not usable.
type Tracker struct {
	sources  []fetch.Source
	cache    *cache.QuoteCache
	breakers map[string]*circuitbreaker.CircuitBreaker
	// limiter paces upstream calls across all sources so a comparison does
	// not burst the public APIs.
	limiter *rate.Limiter
	opts    validation.Options
	metrics *metrics.Metrics
	log     *logrus.Entry
}

// New creates a tracker for the given quote sources. Cache TTL, pacing,
// plausibility limits and breaker thresholds come from the configuration.
func New(cfg *config.Config, sources ...fetch.Source) *Tracker {
	breakers := make(map[string]*circuitbreaker.CircuitBreaker, len(sources))
	for _, src := range sources {
		breakers[src.Protocol()] = circuitbreaker.New(src.Protocol(), circuitbreaker.Thresholds{
			MaxConsecutiveFailures: cfg.BreakerMaxFailures,
			SuspiciousTrips:        true,
		}).
			WithResetDelay(cfg.BreakerResetDelay).
			WithSuccessThreshold(cfg.BreakerSuccessThreshold)
	}

	opts := validation.DefaultOptions()
	opts.MaxFeeRatio = decimal.NewFromFloat(cfg.MaxFeeRatio)

	return &Tracker{
		sources:  sources,
		cache:    cache.New(cfg.CacheTTL),
		breakers: breakers,
		limiter:  rate.NewLimiter(rate.Every(cfg.PacingInterval), 1),
		opts:     opts,
		log:      logrus.WithField("component", "tracker"),
	}
}

// WithMetrics attaches Prometheus collectors and returns the tracker. A nil
// value disables instrumentation.
func (t *Tracker) WithMetrics(m *metrics.Metrics) *Tracker {
	t.metrics = m
	return t
}

// WithCache replaces the quote cache and returns the tracker.
func (t *Tracker) WithCache(c *cache.QuoteCache) *Tracker {
	t.cache = c
	return t
}

// WithLimiter replaces the upstream pacing limiter and returns the tracker.
func (t *Tracker) WithLimiter(l *rate.Limiter) *Tracker {
	t.limiter = l
	return t
}

// WithValidationOptions replaces the plausibility rules and returns the tracker.
func (t *Tracker) WithValidationOptions(opts validation.Options) *Tracker {
	t.opts = opts
	return t
}

// Protocols returns the protocol tags of the configured sources.
func (t *Tracker) Protocols() []string {
	tags := make([]string, 0, len(t.sources))
	for _, src := range t.sources {
		tags = append(tags, src.Protocol())
	}
	return tags
}

// BreakerStates returns a snapshot of each protocol's circuit state.
func (t *Tracker) BreakerStates() map[string]string {
	states := make(map[string]string, len(t.breakers))
	for protocol, breaker := range t.breakers {
		states[protocol] = breaker.GetState().String()
	}
	return states
}

// Compare fetches a fee quote from every source concurrently and builds the
// comparison. Failed protocols stay in the result as rows carrying their
// error; ErrAllSourcesFailed is returned only when no protocol delivered.
func (t *Tracker) Compare(ctx context.Context, req model.QuoteRequest) (compare.Comparison, error) {
	if err := types.ValidateRoute(req.Token, req.SourceChain, req.DestChain); err != nil {
		return compare.Comparison{}, err
	}
	if !req.Amount.IsPositive() {
		return compare.Comparison{}, fmt.Errorf("transfer amount must be positive, got %s", req.Amount)
	}

	ctx, span := otel.Tracer().Start(ctx, "tracker.Compare", trace.WithAttributes(
		attribute.String("token", req.Token),
		attribute.String("source_chain", req.SourceChain),
		attribute.String("dest_chain", req.DestChain),
		attribute.String("amount", req.Amount.String()),
	))
	defer span.End()

	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := make([]compare.Outcome, 0, len(t.sources))

	for _, src := range t.sources {
		wg.Add(1)
		go func(src fetch.Source) {
			defer wg.Done()

			o := t.quoteOne(ctx, src, req)
			mu.Lock()
			outcomes = append(outcomes, o)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	c := compare.Build(req, outcomes)
	t.metrics.CountComparison()

	t.log.WithFields(logrus.Fields{
		"token": req.Token,
		"route": req.SourceChain + " -> " + req.DestChain,
	}).Infof("Fetched %d/%d protocol fees", c.SuccessCount(), len(c.Rows))

	if len(c.Rows) > 0 && c.SuccessCount() == 0 {
		otel.RecordError(ctx, ErrAllSourcesFailed)
		return c, ErrAllSourcesFailed
	}
	return c, nil
}

// quoteOne runs the full pipeline for a single protocol: cache lookup,
// breaker gate, paced fetch, normalization and plausibility check.
func (t *Tracker) quoteOne(ctx context.Context, src fetch.Source, req model.QuoteRequest) compare.Outcome {
	protocol := src.Protocol()
	log := t.log.WithField("protocol", protocol)

	if q, ok := t.cache.Get(protocol, req); ok {
		t.metrics.CountCacheHit()
		t.metrics.CountQuote(protocol, metrics.StatusCached)
		log.Debug("Using cached quote")
		return compare.Outcome{Protocol: protocol, Quote: &q, FromCache: true}
	}
	t.metrics.CountCacheMiss()

	breaker := t.breakers[protocol]
	if breaker != nil {
		if err := breaker.Allow(); err != nil {
			t.metrics.CountQuote(protocol, metrics.StatusSkipped)
			log.WithError(err).Warn("Skipping protocol fetch")
			return compare.Outcome{Protocol: protocol, Err: err}
		}
	}

	if err := t.limiter.Wait(ctx); err != nil {
		t.metrics.CountQuote(protocol, metrics.StatusError)
		return compare.Outcome{Protocol: protocol, Err: fmt.Errorf("pacing wait aborted: %w", err)}
	}

	ctx, span := otel.Tracer().Start(ctx, "tracker.fetch."+protocol)
	defer span.End()

	start := time.Now()
	payload, err := src.Quote(ctx, req)
	t.metrics.ObserveFetch(protocol, time.Since(start))
	if err != nil {
		return t.failed(ctx, breaker, protocol, err, log)
	}

	quote, err := normalize.Quote(protocol, req, payload)
	if err != nil {
		return t.failed(ctx, breaker, protocol, err, log)
	}

	if err := validation.Check(quote, t.opts); err != nil {
		if breaker != nil {
			breaker.RecordSuspicious(err.Error())
			t.metrics.SetBreakerState(protocol, int(breaker.GetState()))
		}
		t.metrics.CountQuote(protocol, metrics.StatusError)
		otel.RecordError(ctx, err)
		return compare.Outcome{Protocol: protocol, Err: fmt.Errorf("suspicious quote: %w", err)}
	}

	if breaker != nil {
		breaker.RecordSuccess(quote)
		t.metrics.SetBreakerState(protocol, int(breaker.GetState()))
	}
	t.cache.Set(protocol, req, quote)
	t.metrics.CountQuote(protocol, metrics.StatusSuccess)
	fee, _ := quote.TotalFee.Float64()
	t.metrics.SetLastTotalFee(protocol, req.Token, fee)

	log.WithField("total_fee", quote.TotalFee.String()).Debug("Quote fetched")
	return compare.Outcome{Protocol: protocol, Quote: &quote}
}

// failed records a fetch or normalization error. A RouteError is a per-route
// condition and must not trip the breaker.
func (t *Tracker) failed(ctx context.Context, breaker *circuitbreaker.CircuitBreaker, protocol string, err error, log *logrus.Entry) compare.Outcome {
	var routeErr *fetch.RouteError
	if errors.As(err, &routeErr) {
		t.metrics.CountQuote(protocol, metrics.StatusSkipped)
		log.WithError(err).Info("Protocol cannot serve this route")
		return compare.Outcome{Protocol: protocol, Err: err}
	}

	if breaker != nil {
		breaker.RecordFailure(err)
		t.metrics.SetBreakerState(protocol, int(breaker.GetState()))
	}
	t.metrics.CountQuote(protocol, metrics.StatusError)
	otel.RecordError(ctx, err)
	log.WithError(err).Warn("Failed to fetch quote")
	return compare.Outcome{Protocol: protocol, Err: err}
}

// RunScenarios executes the scenario list sequentially with a pause between
// runs and hands each finished comparison to emit. Individual failures are
// logged and skipped; the returned error is non-nil only when every scenario
// failed or the context ended the run.
func (t *Tracker) RunScenarios(ctx context.Context, scenarios []config.Scenario, delay time.Duration, emit func(compare.Comparison)) error {
	succeeded := 0
	for i, sc := range scenarios {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		log := t.log.WithFields(logrus.Fields{
			"scenario": i + 1,
			"token":    sc.Token,
			"route":    sc.FromChain + " -> " + sc.ToChain,
		})

		req, err := sc.Request()
		if err != nil {
			log.WithError(err).Error("Skipping invalid scenario")
			continue
		}

		c, err := t.Compare(ctx, req)
		if err != nil {
			log.WithError(err).Warn("Scenario produced no usable quotes")
			if emit != nil && len(c.Rows) > 0 {
				emit(c)
			}
			continue
		}

		succeeded++
		if emit != nil {
			emit(c)
		}
	}

	if len(scenarios) > 0 && succeeded == 0 {
		return fmt.Errorf("all %d scenarios failed", len(scenarios))
	}
	return nil
}
