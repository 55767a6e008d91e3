package orders

import (
	"context"
	"fmt"

	"futuresexecutor/src/model"
	"futuresexecutor/src/utils"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

type OpenRequest struct {
	Symbol      string
	Side        model.Side
	Margin      decimal.Decimal
	Leverage    int
	Price       decimal.Decimal // zero uses the current ticker price
	LossPct     float64
	GainPct     float64
	TimeInForce model.TimeInForce
}

type OpenResult struct {
	Quantity   decimal.Decimal
	Entry      *model.Order
	EntryPrice decimal.Decimal
	StopLoss   *model.Order
	TakeProfit *model.Order
	// RolledBack is set when the take-profit failed and the position was
	// flattened again. RollbackClose is the market close it submitted, nil
	// when that close failed or the position was already flat.
	RolledBack    bool
	RollbackClose *model.Order
}

// OpenPosition sizes and submits the entry LIMIT order, waits for the
// position to appear and attaches the stop-loss and take-profit.
//
// A failed stop-loss is logged and the position stays open. A failed
// take-profit closes the position at market and cancels every leftover order.
// When the entry does not fill in time ErrEntryTimeout is returned together
// with the entry acknowledgment; the order may still rest on the book.
func (p *Placer) OpenPosition(ctx context.Context, req OpenRequest) (*OpenResult, error) {
	price, qty, err := p.PrepareFromMargin(ctx, req.Symbol, req.Margin, req.Leverage, req.Price)
	if err != nil {
		return nil, err
	}

	tif := req.TimeInForce
	if tif == "" {
		tif = model.TimeInForceGTC
	}
	entry, err := p.Submit(ctx, req.Symbol, req.Side, model.OrderTypeLimit, price, qty, tif)
	if err != nil {
		return nil, err
	}
	result := &OpenResult{Quantity: qty, Entry: entry}

	pos, err := p.waitForEntry(ctx, req.Symbol)
	if err != nil {
		return result, err
	}
	result.EntryPrice = decimal.NewFromFloat(pos.EntryPrice)

	fields := map[string]interface{}{
		"symbol":     req.Symbol,
		"side":       req.Side,
		"qty":        qty.String(),
		"entryPrice": result.EntryPrice.String(),
	}

	sl, err := p.PlaceStopLoss(ctx, req.Symbol, req.Side, result.EntryPrice, req.Leverage, req.LossPct)
	if err != nil {
		logger.WithFields(fields).WithError(err).Error("stop-loss not placed, position stays open")
	}
	result.StopLoss = sl

	tp, err := p.PlaceTakeProfit(ctx, req.Symbol, req.Side, result.EntryPrice, req.Leverage, req.GainPct)
	if err != nil {
		logger.WithFields(fields).WithError(err).Error("take-profit not placed, rolling back position")
		result.RollbackClose = p.rollback(ctx, req.Symbol)
		result.RolledBack = true
		result.StopLoss = nil
		return result, nil
	}
	result.TakeProfit = tp

	logger.WithFields(fields).Info("position opened")
	return result, nil
}

func (p *Placer) waitForEntry(ctx context.Context, symbol string) (*model.Position, error) {
	var pos *model.Position
	ok, err := utils.PollUntil(ctx, p.entryWait, func(ctx context.Context, attempt int) bool {
		current, err := p.exchange.GetPosition(ctx, symbol)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"symbol":  symbol,
				"attempt": attempt,
			}).WithError(err).Warn("position read failed while waiting for entry")
			return false
		}
		if current != nil && current.EntryPrice > 0 {
			pos = current
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no position on %s after %d attempts", ErrEntryTimeout, symbol, p.entryWait.MaxAttempts)
	}
	return pos, nil
}

func (p *Placer) rollback(ctx context.Context, symbol string) *model.Order {
	closed, err := p.ClosePositionMarket(ctx, symbol)
	if err != nil {
		logger.WithField("symbol", symbol).WithError(err).Error("rollback close failed")
	}
	if _, err := p.CancelRestingLimitOrders(ctx, symbol, true); err != nil {
		logger.WithField("symbol", symbol).WithError(err).Error("rollback limit cancel failed")
	}
	if _, err := p.CancelProtectiveOrders(ctx, symbol); err != nil {
		logger.WithField("symbol", symbol).WithError(err).Error("rollback protective cancel failed")
	}
	return closed.Response
}

type CancelError struct {
	OrderID int64
	Err     error
}

type CancelReport struct {
	Canceled []int64
	Skipped  []int64
	Errors   []CancelError
}

// CancelRestingLimitOrders cancels plain opening LIMIT orders on symbol.
// Protective orders are never touched. NEW and PENDING_NEW orders are always
// cancelled, partially filled ones only when includePartial is set.
// Individual failures are collected in the report; the error is set only when
// open orders cannot be listed.
func (p *Placer) CancelRestingLimitOrders(ctx context.Context, symbol string, includePartial bool) (CancelReport, error) {
	var report CancelReport

	open, err := p.exchange.GetOpenOrders(ctx, symbol)
	if err != nil {
		return report, fmt.Errorf("open orders for %s: %w", symbol, err)
	}

	for _, o := range open {
		if o.IsProtective() || !o.IsRestingLimit() || !cancelable(o.Status, includePartial) {
			report.Skipped = append(report.Skipped, o.OrderID)
			continue
		}
		if _, err := p.exchange.CancelOrder(ctx, symbol, o.OrderID); err != nil {
			logger.WithFields(map[string]interface{}{
				"symbol":  symbol,
				"orderId": o.OrderID,
			}).WithError(err).Warn("limit order cancel failed")
			report.Errors = append(report.Errors, CancelError{OrderID: o.OrderID, Err: err})
			continue
		}
		report.Canceled = append(report.Canceled, o.OrderID)
	}

	if len(report.Canceled) > 0 || len(report.Errors) > 0 {
		logger.WithFields(map[string]interface{}{
			"symbol":   symbol,
			"canceled": report.Canceled,
			"skipped":  len(report.Skipped),
			"errors":   len(report.Errors),
		}).Info("resting limit orders cancelled")
	}
	return report, nil
}

func cancelable(s model.OrderStatus, includePartial bool) bool {
	switch s {
	case model.OrderStatusNew, model.OrderStatusPendingNew:
		return true
	case model.OrderStatusPartiallyFilled:
		return includePartial
	}
	return false
}

// CancelProtectiveOrders cancels every open trigger order on symbol along with
// any order flagged reduce-only or close-position. Individual failures are
// logged and skipped.
func (p *Placer) CancelProtectiveOrders(ctx context.Context, symbol string) ([]int64, error) {
	open, err := p.exchange.GetOpenOrders(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("open orders for %s: %w", symbol, err)
	}

	var canceled []int64
	for _, o := range open {
		if !o.IsProtective() {
			continue
		}
		if _, err := p.exchange.CancelOrder(ctx, symbol, o.OrderID); err != nil {
			logger.WithFields(map[string]interface{}{
				"symbol":  symbol,
				"orderId": o.OrderID,
				"type":    o.Type,
			}).WithError(err).Warn("protective order cancel failed")
			continue
		}
		canceled = append(canceled, o.OrderID)
	}
	return canceled, nil
}

type CloseResult struct {
	Response  *model.Order
	ClosedQty decimal.Decimal
}

// ClosePositionMarket flattens the open position with a reduce-only MARKET
// order. No position, or one that rounds to zero, returns an empty result.
// When the submission fails ClosedQty still reports the attempted quantity.
func (p *Placer) ClosePositionMarket(ctx context.Context, symbol string) (CloseResult, error) {
	pos, err := p.exchange.GetPosition(ctx, symbol)
	if err != nil {
		return CloseResult{}, fmt.Errorf("position for %s: %w", symbol, err)
	}
	if pos == nil || pos.Amount == 0 {
		return CloseResult{}, nil
	}

	rounders, err := p.precision.Rounders(ctx, symbol)
	if err != nil {
		return CloseResult{}, err
	}
	qty := rounders.RoundQty(decimal.NewFromFloat(pos.AbsAmount()))
	if !qty.IsPositive() {
		logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"amount": pos.Amount,
		}).Warn("position rounds to zero quantity, nothing to close")
		return CloseResult{}, nil
	}

	req := model.OrderRequest{
		Symbol:        symbol,
		Side:          pos.CloseSide(),
		Type:          model.OrderTypeMarket,
		Quantity:      rounders.FormatQty(qty),
		ReduceOnly:    true,
		ClientOrderID: p.newID("close"),
	}
	ack, err := p.exchange.PlaceOrder(ctx, req)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"side":   req.Side,
			"qty":    req.Quantity,
		}).WithError(err).Error("market close failed")
		return CloseResult{ClosedQty: qty}, fmt.Errorf("%w: %w", ErrOrderRejected, err)
	}

	logger.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"side":    req.Side,
		"qty":     req.Quantity,
		"orderId": ack.OrderID,
	}).Info("position closed at market")
	return CloseResult{Response: ack, ClosedQty: qty}, nil
}
