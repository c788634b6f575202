package normalize

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yourorg/bridge-fee-tracker/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func usdcRequest(amount string) model.QuoteRequest {
	return model.QuoteRequest{
		Token:       "USDC",
		SourceChain: "ethereum",
		DestChain:   "optimism",
		Amount:      dec(amount),
	}
}

func ethRequest(amount string) model.QuoteRequest {
	return model.QuoteRequest{
		Token:       "ETH",
		SourceChain: "ethereum",
		DestChain:   "arbitrum",
		Amount:      dec(amount),
	}
}

func TestAcross(t *testing.T) {
	tests := []struct {
		name          string
		req           model.QuoteRequest
		payload       string
		wantTotal     string
		wantBreakdown map[string]string
		wantField     string // non-empty means a MalformedQuoteError on this field
		wantErr       bool
	}{
		{
			name: "string encoded percentages",
			req:  usdcRequest("1000"),
			// 0.0005 relay and 0.002 lp as 1e18-scaled fractions
			payload:   `{"relayFeePct":"500000000000000","lpFeePct":"2000000000000000"}`,
			wantTotal: "2.5",
			wantBreakdown: map[string]string{
				"relay_fee": "0.5",
				"lp_fee":    "2",
			},
		},
		{
			name:      "number encoded percentages",
			req:       usdcRequest("1000"),
			payload:   `{"relayFeePct":500000000000000,"lpFeePct":2000000000000000}`,
			wantTotal: "2.5",
			wantBreakdown: map[string]string{
				"relay_fee": "0.5",
				"lp_fee":    "2",
			},
		},
		{
			name:      "zero fees",
			req:       usdcRequest("1000"),
			payload:   `{"relayFeePct":"0","lpFeePct":"0"}`,
			wantTotal: "0",
			wantBreakdown: map[string]string{
				"relay_fee": "0",
				"lp_fee":    "0",
			},
		},
		{
			name:      "extra fields are ignored",
			req:       ethRequest("1"),
			payload:   `{"relayFeePct":"2000000000000000","lpFeePct":"1000000000000000","timestamp":"1700000000","spokePoolAddress":"0xabc"}`,
			wantTotal: "0.003",
			wantBreakdown: map[string]string{
				"relay_fee": "0.002",
				"lp_fee":    "0.001",
			},
		},
		{
			name:      "missing relay fee",
			req:       usdcRequest("1000"),
			payload:   `{"lpFeePct":"2000000000000000"}`,
			wantErr:   true,
			wantField: "relayFeePct",
		},
		{
			name:      "missing lp fee",
			req:       usdcRequest("1000"),
			payload:   `{"relayFeePct":"500000000000000"}`,
			wantErr:   true,
			wantField: "lpFeePct",
		},
		{
			name:      "non numeric lp fee",
			req:       usdcRequest("1000"),
			payload:   `{"relayFeePct":"500000000000000","lpFeePct":"not-a-number"}`,
			wantErr:   true,
			wantField: "lpFeePct",
		},
		{
			name:      "null fee field",
			req:       usdcRequest("1000"),
			payload:   `{"relayFeePct":null,"lpFeePct":"0"}`,
			wantErr:   true,
			wantField: "relayFeePct",
		},
		{
			name:    "payload is not an object",
			req:     usdcRequest("1000"),
			payload: `["not","an","object"]`,
			wantErr: true,
		},
		{
			name:    "negative percentage fails construction",
			req:     usdcRequest("1000"),
			payload: `{"relayFeePct":"-500000000000000","lpFeePct":"0"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Across(tt.req, []byte(tt.payload))
			if tt.wantErr {
				var malformed *MalformedQuoteError
				if !errors.As(err, &malformed) {
					t.Fatalf("Across() error = %v, want MalformedQuoteError", err)
				}
				if tt.wantField != "" && malformed.Field != tt.wantField {
					t.Errorf("error field = %q, want %q", malformed.Field, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("Across() unexpected error: %v", err)
			}
			assertQuote(t, got, ProtocolAcross, tt.wantTotal, tt.wantBreakdown)
		})
	}
}

func TestHop(t *testing.T) {
	tests := []struct {
		name          string
		req           model.QuoteRequest
		payload       string
		wantTotal     string
		wantBreakdown map[string]string
		wantField     string
		wantErr       bool
	}{
		{
			name: "usdc quote",
			req:  usdcRequest("1000"),
			// 1000 in, 997 out, bonder takes 2.5, the AMM the rest
			payload:   `{"bonderFee":"2500000","amountIn":"1000000000","estimatedRecieved":"997000000"}`,
			wantTotal: "3",
			wantBreakdown: map[string]string{
				"bonder_fee": "2.5",
				"amm_fee":    "0.5",
			},
		},
		{
			name:      "eth quote with 18 decimals",
			req:       ethRequest("1"),
			payload:   `{"bonderFee":"1200000000000000","amountIn":"1000000000000000000","estimatedRecieved":"997000000000000000"}`,
			wantTotal: "0.003",
			wantBreakdown: map[string]string{
				"bonder_fee": "0.0012",
				"amm_fee":    "0.0018",
			},
		},
		{
			name:      "number encoded fields",
			req:       usdcRequest("1000"),
			payload:   `{"bonderFee":2500000,"amountIn":1000000000,"estimatedRecieved":997000000}`,
			wantTotal: "3",
			wantBreakdown: map[string]string{
				"bonder_fee": "2.5",
				"amm_fee":    "0.5",
			},
		},
		{
			name:      "upstream error payload",
			req:       usdcRequest("1000"),
			payload:   `{"error":"bonder not available for route"}`,
			wantErr:   true,
			wantField: "error",
		},
		{
			name:      "missing estimated received",
			req:       usdcRequest("1000"),
			payload:   `{"bonderFee":"2500000","amountIn":"1000000000"}`,
			wantErr:   true,
			wantField: "estimatedRecieved",
		},
		{
			name:      "non numeric bonder fee",
			req:       usdcRequest("1000"),
			payload:   `{"bonderFee":{},"amountIn":"1000000000","estimatedRecieved":"997000000"}`,
			wantErr:   true,
			wantField: "bonderFee",
		},
		{
			name:    "received exceeds amount in",
			req:     usdcRequest("1000"),
			payload: `{"bonderFee":"0","amountIn":"997000000","estimatedRecieved":"1000000000"}`,
			wantErr: true,
		},
		{
			name:    "bonder fee exceeds total",
			req:     usdcRequest("1000"),
			payload: `{"bonderFee":"5000000","amountIn":"1000000000","estimatedRecieved":"997000000"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Hop(tt.req, []byte(tt.payload))
			if tt.wantErr {
				var malformed *MalformedQuoteError
				if !errors.As(err, &malformed) {
					t.Fatalf("Hop() error = %v, want MalformedQuoteError", err)
				}
				if tt.wantField != "" && malformed.Field != tt.wantField {
					t.Errorf("error field = %q, want %q", malformed.Field, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("Hop() unexpected error: %v", err)
			}
			assertQuote(t, got, ProtocolHop, tt.wantTotal, tt.wantBreakdown)
		})
	}
}

func assertQuote(t *testing.T, got model.FeeQuote, protocol, wantTotal string, wantBreakdown map[string]string) {
	t.Helper()
	if got.Protocol != protocol {
		t.Errorf("Protocol = %q, want %q", got.Protocol, protocol)
	}
	if !got.TotalFee.Equal(dec(wantTotal)) {
		t.Errorf("TotalFee = %s, want %s", got.TotalFee, wantTotal)
	}
	if !got.TotalFee.Equal(got.ComponentSum()) {
		t.Errorf("TotalFee %s does not equal component sum %s", got.TotalFee, got.ComponentSum())
	}
	if len(got.Breakdown) != len(wantBreakdown) {
		t.Errorf("breakdown has %d components, want %d", len(got.Breakdown), len(wantBreakdown))
	}
	for label, want := range wantBreakdown {
		v, ok := got.Breakdown[label]
		if !ok {
			t.Errorf("breakdown missing %q", label)
			continue
		}
		if !v.Equal(dec(want)) {
			t.Errorf("breakdown[%q] = %s, want %s", label, v, want)
		}
	}
	if got.FetchedAt.IsZero() {
		t.Error("FetchedAt not stamped")
	}
}

func TestQuoteDispatch(t *testing.T) {
	req := usdcRequest("1000")
	payload := []byte(`{"relayFeePct":"500000000000000","lpFeePct":"2000000000000000"}`)

	got, err := Quote(ProtocolAcross, req, payload)
	if err != nil {
		t.Fatalf("Quote(across) error: %v", err)
	}
	if !got.TotalFee.Equal(dec("2.5")) {
		t.Errorf("TotalFee = %s, want 2.5", got.TotalFee)
	}

	_, err = Quote("wormhole", req, payload)
	if !errors.Is(err, ErrUnsupportedProtocol) {
		t.Fatalf("Quote(wormhole) error = %v, want ErrUnsupportedProtocol", err)
	}
}

func TestRegister(t *testing.T) {
	req := usdcRequest("10")
	Register("flatfee", func(r model.QuoteRequest, _ []byte) (model.FeeQuote, error) {
		return model.NewFeeQuote("flatfee", r, dec("1"), map[string]decimal.Decimal{"flat": dec("1")})
	})

	got, err := Quote("flatfee", req, []byte(`{}`))
	if err != nil {
		t.Fatalf("Quote(flatfee) error: %v", err)
	}
	if !got.TotalFee.Equal(dec("1")) {
		t.Errorf("TotalFee = %s, want 1", got.TotalFee)
	}

	found := false
	for _, tag := range Protocols() {
		if tag == "flatfee" {
			found = true
		}
	}
	if !found {
		t.Error("Protocols() does not list the registered schema")
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	req := usdcRequest("1000")
	payload := []byte(`{"bonderFee":"2500000","amountIn":"1000000000","estimatedRecieved":"997000000"}`)

	first, err := Hop(req, payload)
	if err != nil {
		t.Fatalf("Hop() error: %v", err)
	}
	second, err := Hop(req, payload)
	if err != nil {
		t.Fatalf("Hop() error on second run: %v", err)
	}

	if !first.TotalFee.Equal(second.TotalFee) {
		t.Errorf("totals differ across runs: %s vs %s", first.TotalFee, second.TotalFee)
	}
	for label, v := range first.Breakdown {
		if !second.Breakdown[label].Equal(v) {
			t.Errorf("breakdown[%q] differs across runs: %s vs %s", label, v, second.Breakdown[label])
		}
	}
}

func BenchmarkAcross(b *testing.B) {
	req := usdcRequest("1000")
	payload := []byte(`{"relayFeePct":"500000000000000","lpFeePct":"2000000000000000"}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Across(req, payload); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHop(b *testing.B) {
	req := usdcRequest("1000")
	payload := []byte(`{"bonderFee":"2500000","amountIn":"1000000000","estimatedRecieved":"997000000"}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Hop(req, payload); err != nil {
			b.Fatal(err)
		}
	}
}
