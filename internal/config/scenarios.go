package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/yourorg/bridge-fee-tracker/internal/model"
)

// Scenario is one comparison run: a token, a route and an amount. Amounts
// are strings so YAML never rounds them through a float.
type Scenario struct {
	Token     string `yaml:"token"`
	FromChain string `yaml:"from_chain"`
	ToChain   string `yaml:"to_chain"`
	Amount    string `yaml:"amount"`
}

// Request converts the scenario into a quote request.
func (s Scenario) Request() (model.QuoteRequest, error) {
	amount, err := decimal.NewFromString(s.Amount)
	if err != nil {
		return model.QuoteRequest{}, fmt.Errorf("scenario amount %q is not numeric: %w", s.Amount, err)
	}
	if !amount.IsPositive() {
		return model.QuoteRequest{}, fmt.Errorf("scenario amount must be positive, got %s", amount)
	}
	return model.QuoteRequest{
		Token:       strings.ToUpper(s.Token),
		SourceChain: strings.ToLower(s.FromChain),
		DestChain:   strings.ToLower(s.ToChain),
		Amount:      amount,
	}, nil
}

// DefaultScenarios returns the built-in comparison runs.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Token: "USDC", FromChain: "ethereum", ToChain: "optimism", Amount: "1000"},
		{Token: "ETH", FromChain: "ethereum", ToChain: "arbitrum", Amount: "1"},
	}
}

// LoadScenarios reads a scenario list from a YAML file, or returns the
// built-in list when path is empty.
func LoadScenarios(path string) ([]Scenario, error) {
	if path == "" {
		return DefaultScenarios(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios file: %w", err)
	}

	var file struct {
		Scenarios []Scenario `yaml:"scenarios"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios file: %w", err)
	}
	if len(file.Scenarios) == 0 {
		return nil, fmt.Errorf("scenarios file %s lists no scenarios", path)
	}

	for i, sc := range file.Scenarios {
		if _, err := sc.Request(); err != nil {
			return nil, fmt.Errorf("scenario %d: %w", i+1, err)
		}
	}
	return file.Scenarios, nil
}
