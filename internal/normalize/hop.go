package normalize

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/yourorg/bridge-fee-tracker/internal/model"
	"github.com/yourorg/bridge-fee-tracker/internal/types"
)

// Hop normalizes a response from the Hop v1 quote endpoint. All amounts
// arrive as smallest-unit integers. The total fee is what the route consumes
// end to end (amountIn minus estimatedRecieved, the API's spelling); the AMM
// share is whatever remains after the bonder fee.
func Hop(req model.QuoteRequest, payload []byte) (model.FeeQuote, error) {
	fields, err := decodeObject(ProtocolHop, payload)
	if err != nil {
		return model.FeeQuote{}, err
	}

	if raw, ok := fields["error"]; ok {
		var msg string
		if json.Unmarshal(raw, &msg) != nil {
			msg = string(raw)
		}
		return model.FeeQuote{}, &MalformedQuoteError{Protocol: ProtocolHop, Field: "error", Reason: msg}
	}

	bonderRaw, err := numberField(ProtocolHop, fields, "bonderFee")
	if err != nil {
		return model.FeeQuote{}, err
	}
	amountIn, err := numberField(ProtocolHop, fields, "amountIn")
	if err != nil {
		return model.FeeQuote{}, err
	}
	received, err := numberField(ProtocolHop, fields, "estimatedRecieved")
	if err != nil {
		return model.FeeQuote{}, err
	}

	tokenCfg, err := types.GetTokenConfig(req.Token)
	if err != nil {
		return model.FeeQuote{}, &MalformedQuoteError{Protocol: ProtocolHop, Reason: "no decimals known for token " + req.Token}
	}

	totalFee := tokenCfg.FromSmallestUnit(amountIn.Sub(received)).Round(feeComponentScale)
	bonderFee := tokenCfg.FromSmallestUnit(bonderRaw).Round(feeComponentScale)
	// ammFee closes the breakdown exactly; a bonder fee above the total
	// would make it negative and fail quote construction.
	ammFee := totalFee.Sub(bonderFee)

	breakdown := map[string]decimal.Decimal{
		"bonder_fee": bonderFee,
		"amm_fee":    ammFee,
	}
	return asQuote(ProtocolHop, req, totalFee, breakdown)
}
