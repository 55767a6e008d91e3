package externalmodel

import "time"

// TradingSignal is a direction decision written by the external model
// pipeline. The table is owned by that pipeline and is only read here.
type TradingSignal struct {
	ID         uint       `gorm:"primaryKey;column:id" json:"id"`
	Symbol     string     `gorm:"column:symbol" json:"symbol"`
	Action     string     `gorm:"column:action" json:"action"`
	Confidence float64    `gorm:"column:confidence" json:"confidence"`
	ProbaSell  *float64   `gorm:"column:proba_sell" json:"proba_sell,omitempty"`
	ProbaHold  *float64   `gorm:"column:proba_hold" json:"proba_hold,omitempty"`
	ProbaBuy   *float64   `gorm:"column:proba_buy" json:"proba_buy,omitempty"`
	ClosePrice *float64   `gorm:"column:close_price" json:"close_price,omitempty"`
	WindowUsed int        `gorm:"column:window_used" json:"window_used"`
	BarTime    *time.Time `gorm:"column:bar_time" json:"bar_time,omitempty"`
	Comment    string     `gorm:"column:comment" json:"comment"`
	ReceivedAt *time.Time `gorm:"column:received_at" json:"received_at,omitempty"`
}

// TableName Ensures that GORM uses the exact table name from the database.
func (TradingSignal) TableName() string {
	return "trade_tradingsignal"
}

// Probabilities returns SELL, HOLD, BUY probabilities, or nil when any is missing.
func (s TradingSignal) Probabilities() []float64 {
	if s.ProbaSell == nil || s.ProbaHold == nil || s.ProbaBuy == nil {
		return nil
	}
	return []float64{*s.ProbaSell, *s.ProbaHold, *s.ProbaBuy}
}
