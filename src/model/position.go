package model

import "math"

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Position is a snapshot of the exchange position for one symbol. It is
// never cached; callers re-read it whenever they need the current state.
type Position struct {
	Symbol           string    `json:"symbol"`
	Direction        Direction `json:"direction"`
	Amount           float64   `json:"amount"` // signed, negative for short
	EntryPrice       float64   `json:"entry_price"`
	BreakEvenPrice   float64   `json:"break_even_price"`
	MarkPrice        float64   `json:"mark_price"`
	UnrealizedProfit float64   `json:"unrealized_profit"`
	LiquidationPrice float64   `json:"liquidation_price"`
	Leverage         int       `json:"leverage"`
	MarginType       string    `json:"margin_type"`
	IsolatedWallet   float64   `json:"isolated_wallet"`

	// nil when the reference is not positive
	ROIByMargin   *float64 `json:"roi_by_margin,omitempty"`
	ROIByNotional *float64 `json:"roi_by_notional,omitempty"`
}

// NewPosition derives direction and the ROI ratios from the raw snapshot
// fields. A zero amount returns nil.
func NewPosition(symbol string, amount, entry, uPnL, isolatedWallet float64) *Position {
	if amount == 0 {
		return nil
	}
	p := &Position{
		Symbol:           symbol,
		Amount:           amount,
		EntryPrice:       entry,
		UnrealizedProfit: uPnL,
		IsolatedWallet:   isolatedWallet,
		Direction:        DirectionLong,
	}
	if amount < 0 {
		p.Direction = DirectionShort
	}
	if isolatedWallet > 0 {
		roi := uPnL / isolatedWallet
		p.ROIByMargin = &roi
	}
	if notional := math.Abs(amount) * entry; entry > 0 && notional > 0 {
		roi := uPnL / notional
		p.ROIByNotional = &roi
	}
	return p
}

func (p Position) AbsAmount() float64 {
	return math.Abs(p.Amount)
}

// CloseSide is the order side that reduces this position.
func (p Position) CloseSide() Side {
	if p.Direction == DirectionLong {
		return SideSell
	}
	return SideBuy
}
