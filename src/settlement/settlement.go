package settlement

import (
	"context"
	"fmt"

	"futuresexecutor/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// TradeSource lists the executions of one order.
type TradeSource interface {
	GetTrades(ctx context.Context, symbol string, orderID int64) ([]model.TradeExecution, error)
}

// Summary aggregates the fills of one order. AvgPrice is nil when the order
// has no fills.
type Summary struct {
	OrderID     int64
	Fills       int
	Quantity    decimal.Decimal
	AvgPrice    *decimal.Decimal
	TotalFee    decimal.Decimal
	FeeAsset    string
	RealizedPnL decimal.Decimal
}

// Result is the settled outcome of a closing order. ROI is nil when there is
// no positive margin reference.
type Result struct {
	Summary
	EntryPrice     decimal.Decimal
	IsolatedWallet decimal.Decimal
	Net            decimal.Decimal
	ROI            *decimal.Decimal
}

// Summarize aggregates trades. The result does not depend on their order.
func Summarize(orderID int64, trades []model.TradeExecution) Summary {
	s := Summary{OrderID: orderID}
	if len(trades) == 0 {
		return s
	}

	weighted := decimal.Zero
	for _, t := range trades {
		s.Fills++
		s.Quantity = s.Quantity.Add(t.Quantity)
		weighted = weighted.Add(t.Price.Mul(t.Quantity))
		s.TotalFee = s.TotalFee.Add(t.Commission)
		s.RealizedPnL = s.RealizedPnL.Add(t.RealizedPnL)
		if s.FeeAsset == "" && t.CommissionAsset != "" {
			s.FeeAsset = t.CommissionAsset
		}
	}
	if s.Quantity.IsPositive() {
		avg := weighted.Div(s.Quantity)
		s.AvgPrice = &avg
	}
	return s
}

// Compute derives net PnL and return on margin from a summary.
func Compute(s Summary, entryPrice, isolatedWallet decimal.Decimal) Result {
	r := Result{
		Summary:        s,
		EntryPrice:     entryPrice,
		IsolatedWallet: isolatedWallet,
		Net:            s.RealizedPnL.Sub(s.TotalFee),
	}
	if isolatedWallet.IsPositive() {
		roi := r.Net.Div(isolatedWallet)
		r.ROI = &roi
	}
	return r
}

type Calculator struct {
	trades TradeSource
}

func NewCalculator(trades TradeSource) *Calculator {
	return &Calculator{trades: trades}
}

// TradeSummary fetches and aggregates the executions of orderID.
func (c *Calculator) TradeSummary(ctx context.Context, symbol string, orderID int64) (Summary, error) {
	trades, err := c.trades.GetTrades(ctx, symbol, orderID)
	if err != nil {
		return Summary{OrderID: orderID}, fmt.Errorf("trades of order %d: %w", orderID, err)
	}
	return Summarize(orderID, trades), nil
}

// Settle summarizes a terminal order and computes its net result. It must be
// called once the order is FILLED; partial fills give an incomplete result.
func (c *Calculator) Settle(ctx context.Context, symbol string, orderID int64, entryPrice, isolatedWallet decimal.Decimal) (Result, error) {
	s, err := c.TradeSummary(ctx, symbol, orderID)
	if err != nil {
		return Result{}, err
	}
	r := Compute(s, entryPrice, isolatedWallet)

	fields := map[string]interface{}{
		"symbol":   symbol,
		"orderId":  orderID,
		"fills":    s.Fills,
		"fee":      s.TotalFee.String(),
		"feeAsset": s.FeeAsset,
		"realized": s.RealizedPnL.String(),
		"net":      r.Net.String(),
	}
	if s.AvgPrice != nil {
		fields["avgPrice"] = s.AvgPrice.String()
	}
	if r.ROI != nil {
		fields["roi"] = r.ROI.StringFixed(4)
	}
	logger.WithFields(fields).Info("order settled")
	return r, nil
}
