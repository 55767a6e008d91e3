package model

import "time"

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Decision is the answer of a decision source for one cycle.
type Decision struct {
	Time       time.Time
	ClosePrice float64
	Action     Action
	Confidence float64
	// Probabilities ordered SELL, HOLD, BUY. May be nil.
	Probabilities []float64
	WindowUsed    int
}

// Side returns the opening side for BUY or SELL decisions.
func (d Decision) Side() (Side, bool) {
	switch d.Action {
	case ActionBuy:
		return SideBuy, true
	case ActionSell:
		return SideSell, true
	}
	return "", false
}
