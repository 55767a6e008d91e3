package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CloseReason tells how a cycle ended.
type CloseReason string

const (
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonStopLoss   CloseReason = "SL"
	CloseReasonIdle       CloseReason = "IDLE"
)

// CycleStatistics are the running counters of one driver process.
type CycleStatistics struct {
	Transactions int             `json:"transactions"`
	TakeProfits  int             `json:"take_profits"`
	StopLosses   int             `json:"stop_losses"`
	Idle         int             `json:"idle"`
	LastProfit   decimal.Decimal `json:"last_profit"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
}

// Record returns the statistics after one more completed cycle.
func (s CycleStatistics) Record(reason CloseReason, net decimal.Decimal) CycleStatistics {
	s.Transactions++
	switch reason {
	case CloseReasonTakeProfit:
		s.TakeProfits++
	case CloseReasonStopLoss:
		s.StopLosses++
	case CloseReasonIdle:
		s.Idle++
	}
	s.LastProfit = net
	s.TotalProfit = s.TotalProfit.Add(net)
	return s
}

// AddRealized folds PnL realized outside a counted cycle, such as a
// take-profit rollback close, into the total.
func (s CycleStatistics) AddRealized(net decimal.Decimal) CycleStatistics {
	s.TotalProfit = s.TotalProfit.Add(net)
	return s
}

// CycleRecord is the persisted journal row of a completed cycle.
type CycleRecord struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	Symbol         string           `gorm:"size:50;index" json:"symbol"`
	Transaction    int              `gorm:"not null" json:"transaction"`
	Side           string           `gorm:"size:10" json:"side"`
	Reason         string           `gorm:"size:10;index" json:"reason"`
	Balance        decimal.Decimal  `gorm:"type:numeric" json:"balance"`
	Margin         decimal.Decimal  `gorm:"type:numeric" json:"margin"`
	Leverage       int              `json:"leverage"`
	Quantity       decimal.Decimal  `gorm:"type:numeric" json:"quantity"`
	EntryPrice     decimal.Decimal  `gorm:"type:numeric" json:"entry_price"`
	IsolatedWallet decimal.Decimal  `gorm:"type:numeric" json:"isolated_wallet"`
	CloseOrderID   *int64           `json:"close_order_id,omitempty"`
	AvgPrice       *decimal.Decimal `gorm:"type:numeric" json:"avg_price,omitempty"`
	Fee            decimal.Decimal  `gorm:"type:numeric" json:"fee"`
	FeeAsset       string           `gorm:"size:20" json:"fee_asset"`
	Realized       decimal.Decimal  `gorm:"type:numeric" json:"realized"`
	Net            decimal.Decimal  `gorm:"type:numeric" json:"net"`
	ROI            *decimal.Decimal `gorm:"type:numeric" json:"roi,omitempty"`
	OpenedAt       time.Time        `json:"opened_at"`
	ClosedAt       time.Time        `json:"closed_at"`
	CreatedAt      time.Time        `json:"created_at"`
}

func (CycleRecord) TableName() string {
	return "cycle_records"
}
