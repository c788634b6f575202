// Package model defines the core data structures for the bridge-fee-tracker.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrFeeMismatch is returned when a quote's total fee does not equal the
// exact sum of its breakdown components.
var ErrFeeMismatch = errors.New("total fee does not match breakdown sum")

// ErrNegativeFee is returned when a quote carries a negative total or a
// negative breakdown component.
var ErrNegativeFee = errors.New("fee amount is negative")

// QuoteRequest identifies a single bridge transfer to be quoted.
type QuoteRequest struct {
	// Token is the symbol of the asset being bridged, e.g. "USDC"
	Token string `json:"token"`

	// SourceChain is the lowercase name of the origin chain
	SourceChain string `json:"source_chain"`

	// DestChain is the lowercase name of the destination chain
	DestChain string `json:"dest_chain"`

	// Amount is the transfer size in display units (not smallest units)
	Amount decimal.Decimal `json:"amount"`
}

// Key returns the canonical cache key for this request.
func (r QuoteRequest) Key() string {
	return fmt.Sprintf("%s:%s:%s:%s", r.Token, r.SourceChain, r.DestChain, r.Amount.String())
}

// FeeQuote is a protocol fee estimate in canonical form. All monetary values
// share the display unit of the requested token.
type FeeQuote struct {
	// Protocol is the lowercase tag of the quoting protocol, e.g. "across"
	Protocol string `json:"protocol"`

	// Token is the symbol of the asset being bridged
	Token string `json:"token"`

	// SourceChain and DestChain are the lowercase chain names of the route
	SourceChain string `json:"source_chain"`
	DestChain   string `json:"dest_chain"`

	// Amount is the transfer size the quote applies to
	Amount decimal.Decimal `json:"amount"`

	// TotalFee is the full cost of the transfer. It always equals the sum
	// of the Breakdown values.
	TotalFee decimal.Decimal `json:"total_fee"`

	// Breakdown maps fee-component labels to amounts. Keys are
	// protocol-specific, e.g. relay_fee, lp_fee, bonder_fee, amm_fee.
	Breakdown map[string]decimal.Decimal `json:"fee_breakdown"`

	// FetchedAt is when the underlying upstream response was obtained
	FetchedAt time.Time `json:"fetched_at"`
}

// NewFeeQuote builds a FeeQuote and enforces its invariants: the total and
// every component must be non-negative, and the total must equal the exact
// sum of the components.
func NewFeeQuote(protocol string, req QuoteRequest, totalFee decimal.Decimal, breakdown map[string]decimal.Decimal) (FeeQuote, error) {
	if protocol == "" {
		return FeeQuote{}, errors.New("protocol tag is empty")
	}
	if totalFee.IsNegative() {
		return FeeQuote{}, fmt.Errorf("%w: total %s", ErrNegativeFee, totalFee)
	}
	sum := decimal.Zero
	for label, v := range breakdown {
		if v.IsNegative() {
			return FeeQuote{}, fmt.Errorf("%w: %s is %s", ErrNegativeFee, label, v)
		}
		sum = sum.Add(v)
	}
	if !totalFee.Equal(sum) {
		return FeeQuote{}, fmt.Errorf("%w: total %s, components sum to %s", ErrFeeMismatch, totalFee, sum)
	}
	return FeeQuote{
		Protocol:    protocol,
		Token:       req.Token,
		SourceChain: req.SourceChain,
		DestChain:   req.DestChain,
		Amount:      req.Amount,
		TotalFee:    totalFee,
		Breakdown:   breakdown,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// ComponentSum returns the exact sum of all breakdown values.
func (q FeeQuote) ComponentSum() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range q.Breakdown {
		sum = sum.Add(v)
	}
	return sum
}

// FeeRatio returns TotalFee divided by Amount, or zero when the amount is
// zero. A ratio above 1 means the fee exceeds the transfer itself.
func (q FeeQuote) FeeRatio() decimal.Decimal {
	if q.Amount.IsZero() {
		return decimal.Zero
	}
	return q.TotalFee.Div(q.Amount)
}

// IsValid re-checks the construction invariants. Useful for quotes that
// crossed a serialization boundary (cache, webhook payloads).
func (q FeeQuote) IsValid() bool {
	if q.Protocol == "" || q.TotalFee.IsNegative() {
		return false
	}
	for _, v := range q.Breakdown {
		if v.IsNegative() {
			return false
		}
	}
	return q.TotalFee.Equal(q.ComponentSum())
}

// WithFetchedAt returns a copy of the quote stamped with the given time.
func (q FeeQuote) WithFetchedAt(t time.Time) FeeQuote {
	q.FetchedAt = t
	return q
}
