// Package normalize converts protocol-native fee responses into canonical
// FeeQuote records. It is pure: no I/O, no state beyond the schema registry.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yourorg/bridge-fee-tracker/internal/model"
)

// Protocol tags of the built-in schemas.
const (
	ProtocolAcross = "across"
	ProtocolHop    = "hop"
)

// ErrUnsupportedProtocol is returned when normalization is requested for a
// protocol tag with no registered schema. This is a configuration error,
// never retried.
var ErrUnsupportedProtocol = errors.New("unsupported protocol")

// MalformedQuoteError describes an upstream response the schema could not
// turn into a valid quote: a required fee field is missing or non-numeric,
// the payload is not a JSON object, or the derived values violate a quote
// invariant.
type MalformedQuoteError struct {
	Protocol string
	Field    string
	Reason   string
}

func (e *MalformedQuoteError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed %s quote: %s", e.Protocol, e.Reason)
	}
	return fmt.Sprintf("malformed %s quote: field %q %s", e.Protocol, e.Field, e.Reason)
}

// Func is a protocol schema: it parses a native JSON payload for the given
// request and produces the canonical quote.
type Func func(req model.QuoteRequest, payload []byte) (model.FeeQuote, error)

var registry = map[string]Func{
	ProtocolAcross: Across,
	ProtocolHop:    Hop,
}

// Register adds a schema for a protocol tag, replacing any existing one.
// Not safe for concurrent use; call during program initialization.
func Register(protocol string, fn Func) {
	registry[protocol] = fn
}

// Protocols returns the registered protocol tags in sorted order.
func Protocols() []string {
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Quote normalizes a protocol-native payload by dispatching to the schema
// registered for the tag.
func Quote(protocol string, req model.QuoteRequest, payload []byte) (model.FeeQuote, error) {
	fn, ok := registry[protocol]
	if !ok {
		return model.FeeQuote{}, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, protocol)
	}
	return fn(req, payload)
}

// decodeObject parses the payload as a JSON object with raw field values so
// that numeric fields keep full precision regardless of how the API encodes
// them.
func decodeObject(protocol string, payload []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, &MalformedQuoteError{Protocol: protocol, Reason: fmt.Sprintf("not a JSON object: %v", err)}
	}
	return fields, nil
}

// numberField extracts a required numeric field. The upstream APIs encode
// big integers both as JSON strings and as bare numbers, so both forms are
// accepted.
func numberField(protocol string, fields map[string]json.RawMessage, name string) (decimal.Decimal, error) {
	raw, ok := fields[name]
	if !ok {
		return decimal.Zero, &MalformedQuoteError{Protocol: protocol, Field: name, Reason: "is missing"}
	}
	text := string(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		text = s
	}
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Zero, &MalformedQuoteError{Protocol: protocol, Field: name, Reason: fmt.Sprintf("is not numeric (%s)", raw)}
	}
	return d, nil
}

// asQuote funnels derived totals and components through the FeeQuote
// constructor so invariant violations surface as malformed quotes.
func asQuote(protocol string, req model.QuoteRequest, total decimal.Decimal, breakdown map[string]decimal.Decimal) (model.FeeQuote, error) {
	q, err := model.NewFeeQuote(protocol, req, total, breakdown)
	if err != nil {
		return model.FeeQuote{}, &MalformedQuoteError{Protocol: protocol, Reason: err.Error()}
	}
	return q, nil
}
