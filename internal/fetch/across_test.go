package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/yourorg/bridge-fee-tracker/internal/model"
)

func usdcRoute(amount string) model.QuoteRequest {
	return model.QuoteRequest{
		Token:       "USDC",
		SourceChain: "ethereum",
		DestChain:   "optimism",
		Amount:      decimal.RequireFromString(amount),
	}
}

func TestAcrossQuote(t *testing.T) {
	feesBody := `{"relayFeePct":"500000000000000","lpFeePct":"2000000000000000","timestamp":"1700000000"}`

	var limitsCalls, feesCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/limits":
			limitsCalls++
			if got := r.URL.Query().Get("token"); !strings.EqualFold(got, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48") {
				t.Errorf("limits token param = %q, want the USDC address", got)
			}
			fmt.Fprint(w, `{"minDeposit":"1000000","maxDeposit":"5000000000000"}`)
		case "/api/suggested-fees":
			feesCalls++
			q := r.URL.Query()
			if got := q.Get("amount"); got != "1000000000" {
				t.Errorf("amount param = %q, want 1000000000", got)
			}
			if got := q.Get("originChainId"); got != "1" {
				t.Errorf("originChainId param = %q, want 1", got)
			}
			if got := q.Get("destinationChainId"); got != "10" {
				t.Errorf("destinationChainId param = %q, want 10", got)
			}
			fmt.Fprint(w, feesBody)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := &AcrossClient{baseURL: srv.URL, httpClient: srv.Client()}
	body, err := c.Quote(context.Background(), usdcRoute("1000"))
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	if string(body) != feesBody {
		t.Errorf("body = %s, want %s", body, feesBody)
	}
	if limitsCalls != 1 || feesCalls != 1 {
		t.Errorf("limits called %d times and fees %d times, want 1 and 1", limitsCalls, feesCalls)
	}
}

func TestAcrossQuoteOutsideLimits(t *testing.T) {
	tests := []struct {
		name       string
		limitsBody string
		wantReason string
	}{
		{
			name:       "below minimum",
			limitsBody: `{"minDeposit":"2000000000","maxDeposit":"5000000000000"}`,
			wantReason: "below the route minimum of 2000 USDC",
		},
		{
			name:       "above maximum",
			limitsBody: `{"minDeposit":"1000000","maxDeposit":"500000000"}`,
			wantReason: "above the route maximum of 500 USDC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var feesCalls int
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/api/suggested-fees" {
					feesCalls++
				}
				fmt.Fprint(w, tt.limitsBody)
			}))
			defer srv.Close()

			c := &AcrossClient{baseURL: srv.URL, httpClient: srv.Client()}
			_, err := c.Quote(context.Background(), usdcRoute("1000"))

			var routeErr *RouteError
			if !errors.As(err, &routeErr) {
				t.Fatalf("error = %v, want a RouteError", err)
			}
			if routeErr.Protocol != "across" {
				t.Errorf("RouteError.Protocol = %q, want across", routeErr.Protocol)
			}
			if !strings.Contains(routeErr.Reason, tt.wantReason) {
				t.Errorf("RouteError.Reason = %q, want it to contain %q", routeErr.Reason, tt.wantReason)
			}
			if feesCalls != 0 {
				t.Errorf("suggested-fees was called %d times despite the limit check", feesCalls)
			}
		})
	}
}

func TestAcrossQuoteRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := &AcrossClient{baseURL: srv.URL, httpClient: srv.Client()}
	_, err := c.Quote(context.Background(), usdcRoute("1000"))
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}
}

func TestAcrossQuoteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "route not enabled", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := &AcrossClient{baseURL: srv.URL, httpClient: srv.Client()}
	_, err := c.Quote(context.Background(), usdcRoute("1000"))
	if err == nil {
		t.Fatal("expected an error for a 400 response")
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Errorf("error = %v, want it to mention status 400", err)
	}
}

func TestAcrossQuoteMalformedLimits(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"non numeric minimum", `{"minDeposit":"abc","maxDeposit":"1"}`, "not numeric"},
		{"missing maximum", `{"minDeposit":"1000000"}`, "missing maxDeposit"},
		{"not an object", `[]`, "failed to decode limits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := &AcrossClient{baseURL: srv.URL, httpClient: srv.Client()}
			_, err := c.Quote(context.Background(), usdcRoute("1000"))
			if err == nil {
				t.Fatal("expected an error for a malformed limits response")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestAcrossQuoteUnknownToken(t *testing.T) {
	c := &AcrossClient{baseURL: "http://127.0.0.1:1", httpClient: http.DefaultClient}
	req := usdcRoute("1000")
	req.Token = "DOGE"

	_, err := c.Quote(context.Background(), req)
	var routeErr *RouteError
	if !errors.As(err, &routeErr) {
		t.Fatalf("error = %v, want a RouteError", err)
	}
}
