package domain

import "github.com/shopspring/decimal"

// TradeSignal is a trading intent emitted by an engine. It is not an
// executed trade; whatever sink is registered decides what to do with it.
// Immutable once emitted.
type TradeSignal struct {
	Market  string `json:"market"`
	AssetID string `json:"asset_id"`
	Action  string `json:"action"` // "BUY", "SELL"
	Side    string `json:"side"`   // "YES", "NO"
	Price   string `json:"price"`
	Size    string `json:"size"`
	Reason  string `json:"reason"`
}

// ArbitrageOpportunity describes a complementary-outcome mispricing and the
// leg signals that would capture it.
type ArbitrageOpportunity struct {
	Markets        []string        `json:"markets"`
	Spread         decimal.Decimal `json:"spread"`
	ExpectedProfit decimal.Decimal `json:"expected_profit"`
	Signals        []TradeSignal   `json:"signals"`
}
