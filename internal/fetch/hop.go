package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/bridge-fee-tracker/internal/config"
	"github.com/yourorg/bridge-fee-tracker/internal/model"
	"github.com/yourorg/bridge-fee-tracker/internal/normalize"
	"github.com/yourorg/bridge-fee-tracker/internal/types"
)

// HopClient implements a client for the Hop Exchange quote API
type HopClient struct {
	baseURL    string
	httpClient *http.Client
	network    string
	slippage   string
}

// NewHopClient creates a new Hop API client
func NewHopClient(cfg *config.Config) *HopClient {
	return &HopClient{
		baseURL:    cfg.HopBaseURL,
		httpClient: newRetryClient(cfg.HTTPTimeout),
		network:    cfg.HopNetwork,
		slippage:   cfg.HopSlippage,
	}
}

// Protocol returns the registry tag for Hop.
func (c *HopClient) Protocol() string { return normalize.ProtocolHop }

// Quote retrieves a transfer quote for the route. Hop identifies chains by
// slug and is not deployed on every chain the tracker knows, so the route is
// checked before calling out.
func (c *HopClient) Quote(ctx context.Context, req model.QuoteRequest) ([]byte, error) {
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

	if !fromCfg.SupportsHop() {
		return nil, &RouteError{Protocol: c.Protocol(), Reason: fmt.Sprintf("hop is not deployed on %s", fromCfg.Name)}
	}
	if !toCfg.SupportsHop() {
		return nil, &RouteError{Protocol: c.Protocol(), Reason: fmt.Sprintf("hop is not deployed on %s", toCfg.Name)}
	}

	params := url.Values{}
	params.Set("amount", tokenCfg.ToSmallestUnit(req.Amount).String())
	params.Set("token", tokenCfg.HopSymbol)
	params.Set("fromChain", fromCfg.HopSlug)
	params.Set("toChain", toCfg.HopSlug)
	params.Set("slippage", c.slippage)
	params.Set("network", c.network)

	logrus.Debugf("Fetching quote from Hop: %s -> %s", fromCfg.HopSlug, toCfg.HopSlug)
	return get(ctx, c.httpClient, c.baseURL+"/v1/quote?"+params.Encode(), "hop")
}
