package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourorg/bridge-fee-tracker/internal/config"
	"github.com/yourorg/bridge-fee-tracker/internal/model"
	"github.com/yourorg/bridge-fee-tracker/internal/normalize"
	"github.com/yourorg/bridge-fee-tracker/internal/types"
)

// AcrossClient implements a client for the Across bridge fee API
type AcrossClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAcrossClient creates a new Across API client
func NewAcrossClient(cfg *config.Config) *AcrossClient {
	return &AcrossClient{
		baseURL:    cfg.AcrossBaseURL,
		httpClient: newRetryClient(cfg.HTTPTimeout),
	}
}

// Protocol returns the registry tag for Across.
func (c *AcrossClient) Protocol() string { return normalize.ProtocolAcross }

// Quote retrieves suggested fees for the route. Across enforces per-route
// deposit limits, so the limits endpoint is checked first and amounts outside
// the allowed range fail fast without burning a quote call.
func (c *AcrossClient) Quote(ctx context.Context, req model.QuoteRequest) ([]byte, error) {
	tokenCfg, err := types.GetTokenConfig(req.Token)
	if err != nil {
		return nil, &RouteError{Protocol: c.Protocol(), Reason: err.Error()}
	}
	fromCfg, err := types.GetChainConfig(req.SourceChain)
	if err != nil {
		return nil, &RouteError{Protocol: c.Protocol(), Reason: err.Error()}
	}
	toCfg, err := types.GetChainConfig(req.DestChain)
	if err != nil {
		return nil, &RouteError{Protocol: c.Protocol(), Reason: err.Error()}
	}

	amount := tokenCfg.ToSmallestUnit(req.Amount)

	if err := c.checkLimits(ctx, tokenCfg, fromCfg, toCfg, amount); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("token", tokenCfg.Address.Hex())
	params.Set("originChainId", strconv.FormatUint(fromCfg.ID, 10))
	params.Set("destinationChainId", strconv.FormatUint(toCfg.ID, 10))
	params.Set("amount", amount.String())

	logrus.Debugf("Fetching suggested fees from Across: %s -> %s", fromCfg.Name, toCfg.Name)
	return get(ctx, c.httpClient, c.baseURL+"/api/suggested-fees?"+params.Encode(), "across")
}

// checkLimits verifies the amount sits inside the route's deposit bounds.
func (c *AcrossClient) checkLimits(ctx context.Context, token types.TokenConfig, from, to types.ChainConfig, amount *big.Int) error {
	params := url.Values{}
	params.Set("token", token.Address.Hex())
	params.Set("originChainId", strconv.FormatUint(from.ID, 10))
	params.Set("destinationChainId", strconv.FormatUint(to.ID, 10))

	body, err := get(ctx, c.httpClient, c.baseURL+"/api/limits?"+params.Encode(), "across")
	if err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("failed to decode limits response: %w", err)
	}

	minDeposit, err := limitField(raw, "minDeposit")
	if err != nil {
		return err
	}
	maxDeposit, err := limitField(raw, "maxDeposit")
	if err != nil {
		return err
	}

	amt := decimal.NewFromBigInt(amount, 0)
	if amt.LessThan(minDeposit) {
		human := token.FromSmallestUnit(minDeposit)
		return &RouteError{Protocol: c.Protocol(), Reason: fmt.Sprintf("amount below the route minimum of %s %s", human, token.Symbol)}
	}
	if amt.GreaterThan(maxDeposit) {
		human := token.FromSmallestUnit(maxDeposit)
		return &RouteError{Protocol: c.Protocol(), Reason: fmt.Sprintf("amount above the route maximum of %s %s", human, token.Symbol)}
	}
	return nil
}

// limitField parses a deposit bound that the API may encode as a JSON string
// or a bare number.
func limitField(raw map[string]json.RawMessage, field string) (decimal.Decimal, error) {
	v, ok := raw[field]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("limits response is missing %s", field)
	}
	text := string(v)
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		text = s
	}
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("limits field %s is not numeric: %s", field, string(v))
	}
	return d, nil
}
