package normalize

import (
	"github.com/shopspring/decimal"

	"github.com/yourorg/bridge-fee-tracker/internal/model"
)

// feeComponentScale rounds fee components to the six decimal places the
// reports print.
const feeComponentScale = 6

// Across normalizes a response from the Across suggested-fees endpoint.
// The API reports relayFeePct and lpFeePct as 1e18-scaled fractions of the
// transfer amount (the on-chain fixed-point convention), so each component
// is amount * pct / 1e18.
func Across(req model.QuoteRequest, payload []byte) (model.FeeQuote, error) {
	fields, err := decodeObject(ProtocolAcross, payload)
	if err != nil {
		return model.FeeQuote{}, err
	}

	relayPct, err := numberField(ProtocolAcross, fields, "relayFeePct")
	if err != nil {
		return model.FeeQuote{}, err
	}
	lpPct, err := numberField(ProtocolAcross, fields, "lpFeePct")
	if err != nil {
		return model.FeeQuote{}, err
	}

	relayFee := req.Amount.Mul(relayPct.Shift(-18)).Round(feeComponentScale)
	lpFee := req.Amount.Mul(lpPct.Shift(-18)).Round(feeComponentScale)

	breakdown := map[string]decimal.Decimal{
		"relay_fee": relayFee,
		"lp_fee":    lpFee,
	}
	return asQuote(ProtocolAcross, req, relayFee.Add(lpFee), breakdown)
}
