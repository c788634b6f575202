// Package types contains shared token and chain definitions used across multiple packages
package types

import (
	"fmt"
)

// SupportedChain represents a blockchain network supported by the tracker
type SupportedChain string

// Supported blockchain networks
const (
	ChainEthereum SupportedChain = "ethereum"
	ChainOptimism SupportedChain = "optimism"
	ChainArbitrum SupportedChain = "arbitrum"
	ChainPolygon  SupportedChain = "polygon"
	ChainBase     SupportedChain = "base"
	ChainZkSync   SupportedChain = "zksync"
)

// ChainConfig holds configuration for a specific blockchain network
type ChainConfig struct {
	Name        SupportedChain `json:"name"`
	ID          uint64         `json:"id"`           // EVM chain ID
	DisplayName string         `json:"display_name"` // Capitalized name for report headers
	HopSlug     string         `json:"hop_slug,omitempty"`
}

// SupportsHop reports whether Hop serves this chain.
func (c ChainConfig) SupportsHop() bool {
	return c.HopSlug != ""
}

var chainConfigs = map[SupportedChain]ChainConfig{
	ChainEthereum: {Name: ChainEthereum, ID: 1, DisplayName: "Ethereum", HopSlug: "ethereum"},
	ChainOptimism: {Name: ChainOptimism, ID: 10, DisplayName: "Optimism", HopSlug: "optimism"},
	ChainArbitrum: {Name: ChainArbitrum, ID: 42161, DisplayName: "Arbitrum", HopSlug: "arbitrum"},
	ChainPolygon:  {Name: ChainPolygon, ID: 137, DisplayName: "Polygon", HopSlug: "polygon"},
	ChainBase:     {Name: ChainBase, ID: 8453, DisplayName: "Base", HopSlug: "base"},
	// Hop has no zkSync deployment, so no slug here.
	ChainZkSync: {Name: ChainZkSync, ID: 324, DisplayName: "zkSync"},
}

// GetChainConfig returns the configuration for a chain by its lowercase name.
func GetChainConfig(chain string) (ChainConfig, error) {
	cfg, ok := chainConfigs[SupportedChain(chain)]
	if !ok {
		return ChainConfig{}, fmt.Errorf("unsupported chain: %s", chain)
	}
	return cfg, nil
}

// AllChains returns the supported chain names in a stable order.
func AllChains() []SupportedChain {
	return []SupportedChain{
		ChainEthereum,
		ChainOptimism,
		ChainArbitrum,
		ChainPolygon,
		ChainBase,
		ChainZkSync,
	}
}

// ValidateRoute checks that a transfer request names a known token and two
// distinct known chains. It returns a descriptive error for CLI and HTTP
// surfaces to pass through verbatim.
func ValidateRoute(token, fromChain, toChain string) error {
	if _, ok := tokenConfigs[SupportedToken(token)]; !ok {
		return fmt.Errorf("unsupported token: %s", token)
	}
	if _, ok := chainConfigs[SupportedChain(fromChain)]; !ok {
		return fmt.Errorf("unsupported source chain: %s", fromChain)
	}
	if _, ok := chainConfigs[SupportedChain(toChain)]; !ok {
		return fmt.Errorf("unsupported destination chain: %s", toChain)
	}
	if fromChain == toChain {
		return fmt.Errorf("source and destination chain are both %s", fromChain)
	}
	return nil
}
