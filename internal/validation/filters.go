// Package validation provides plausibility filtering for normalized fee quotes.
package validation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourorg/bridge-fee-tracker/internal/model"
)

// Options holds configuration for the validation process
type Options struct {
	// MaxFeeRatio is the highest acceptable fee as a fraction of the transfer
	// amount. 1.0 rejects any quote whose fee exceeds the amount itself.
	MaxFeeRatio decimal.Decimal

	// MaxQuoteAge defines how recent a quote must be to be considered valid
	MaxQuoteAge time.Duration

	// RequireBreakdown rejects quotes without a per-component fee breakdown
	RequireBreakdown bool
}

// DefaultOptions returns sensible defaults for validation
func DefaultOptions() Options {
	return Options{
		MaxFeeRatio:      decimal.NewFromInt(1),
		MaxQuoteAge:      10 * time.Minute,
		RequireBreakdown: true,
	}
}

// FilterSuspicious removes quotes that fail basic plausibility criteria.
// This is the main entrypoint for the validation package.
func FilterSuspicious(quotes []model.FeeQuote) []model.FeeQuote {
	return FilterWithOptions(quotes, DefaultOptions())
}

// FilterWithOptions removes implausible quotes with custom validation options.
func FilterWithOptions(quotes []model.FeeQuote, opts Options) []model.FeeQuote {
	valid := make([]model.FeeQuote, 0, len(quotes))
	for _, q := range quotes {
		if err := Check(q, opts); err != nil {
			logrus.WithFields(logrus.Fields{
				"protocol": q.Protocol,
				"total":    q.TotalFee.String(),
				"amount":   q.Amount.String(),
				"reason":   err.Error(),
			}).Warn("Filtered suspicious quote")
			continue
		}
		valid = append(valid, q)
	}
	return valid
}

// Check verifies a single quote against every plausibility rule and returns
// the first violation, or nil for a valid quote.
func Check(q model.FeeQuote, opts Options) error {
	if q.Protocol == "" {
		return fmt.Errorf("quote has no protocol")
	}

	// A bridge never pays the sender to move funds
	if q.TotalFee.IsNegative() {
		return fmt.Errorf("total fee %s is negative", q.TotalFee)
	}
	for component, fee := range q.Breakdown {
		if fee.IsNegative() {
			return fmt.Errorf("fee component %s is negative: %s", component, fee)
		}
	}

	if !q.IsValid() {
		return fmt.Errorf("fee breakdown sums to %s, not the reported total %s", q.ComponentSum(), q.TotalFee)
	}

	if opts.RequireBreakdown && len(q.Breakdown) == 0 {
		return fmt.Errorf("quote has no fee breakdown")
	}

	if ratio := q.FeeRatio(); ratio.GreaterThan(opts.MaxFeeRatio) {
		return fmt.Errorf("fee is %s of the transfer amount, above the %s limit", ratio, opts.MaxFeeRatio)
	}

	if opts.MaxQuoteAge > 0 && IsStale(q, opts.MaxQuoteAge, time.Now()) {
		return fmt.Errorf("quote is older than %s", opts.MaxQuoteAge)
	}

	return nil
}

// IsStale reports whether the quote was fetched longer than maxAge before now.
func IsStale(q model.FeeQuote, maxAge time.Duration, now time.Time) bool {
	if q.FetchedAt.IsZero() {
		return true
	}
	return now.Sub(q.FetchedAt) > maxAge
}

// FilterStale removes quotes older than maxAge. Cached quotes pass through
// here before being reused for a comparison.
func FilterStale(quotes []model.FeeQuote, maxAge time.Duration) []model.FeeQuote {
	now := time.Now()
	fresh := make([]model.FeeQuote, 0, len(quotes))
	for _, q := range quotes {
		if IsStale(q, maxAge, now) {
			logrus.WithFields(logrus.Fields{
				"protocol":   q.Protocol,
				"fetched_at": q.FetchedAt,
			}).Debug("Filtered stale quote")
			continue
		}
		fresh = append(fresh, q)
	}
	return fresh
}
