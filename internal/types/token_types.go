package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// SupportedToken represents a bridgeable asset supported by the tracker
type SupportedToken string

// Supported tokens
const (
	TokenUSDC SupportedToken = "USDC"
	TokenETH  SupportedToken = "ETH"
	TokenUSDT SupportedToken = "USDT"
)

// TokenConfig holds per-token metadata needed to build upstream requests
// and to convert between smallest units and display units.
type TokenConfig struct {
	Symbol   SupportedToken `json:"symbol"`
	Decimals int32          `json:"decimals"`
	// Address is the token's Ethereum mainnet contract address. ETH uses
	// the WETH address since the fee APIs quote against the ERC-20.
	Address   common.Address `json:"address"`
	HopSymbol string         `json:"hop_symbol"`
}

var tokenConfigs = map[SupportedToken]TokenConfig{
	TokenUSDC: {
		Symbol:    TokenUSDC,
		Decimals:  6,
		Address:   common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"),
		HopSymbol: "USDC",
	},
	TokenUSDT: {
		Symbol:    TokenUSDT,
		Decimals:  6,
		Address:   common.HexToAddress("0xdac17f958d2ee523a2206206994597c13d831ec7"),
		HopSymbol: "USDT",
	},
	TokenETH: {
		Symbol:    TokenETH,
		Decimals:  18,
		Address:   common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		HopSymbol: "ETH",
	},
}

// GetTokenConfig returns the configuration for a token symbol.
func GetTokenConfig(token string) (TokenConfig, error) {
	cfg, ok := tokenConfigs[SupportedToken(token)]
	if !ok {
		return TokenConfig{}, fmt.Errorf("unsupported token: %s", token)
	}
	return cfg, nil
}

// AllTokens returns the supported token symbols in a stable order.
func AllTokens() []SupportedToken {
	return []SupportedToken{TokenUSDC, TokenETH, TokenUSDT}
}

// ToSmallestUnit converts a display-unit amount to the token's smallest-unit
// integer representation (e.g. 1000 USDC -> 1000000000). Fractions below one
// smallest unit are truncated.
func (t TokenConfig) ToSmallestUnit(amount decimal.Decimal) *big.Int {
	return amount.Shift(t.Decimals).BigInt()
}

// FromSmallestUnit converts a smallest-unit value back to display units.
func (t TokenConfig) FromSmallestUnit(v decimal.Decimal) decimal.Decimal {
	return v.Shift(-t.Decimals)
}
