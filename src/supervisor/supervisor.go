package supervisor

import (
	"context"
	"fmt"
	"time"

	"futuresexecutor/src/model"
	"futuresexecutor/src/orders"
	"futuresexecutor/src/utils"

	logger "github.com/sirupsen/logrus"
)

// OrderReader queries a single order status.
type OrderReader interface {
	GetOrder(ctx context.Context, symbol string, orderID int64) (*model.Order, error)
}

// Closer flattens a symbol once the resolution window is over.
type Closer interface {
	CancelProtectiveOrders(ctx context.Context, symbol string) ([]int64, error)
	ClosePositionMarket(ctx context.Context, symbol string) (orders.CloseResult, error)
}

// Outcome is the terminal state of a supervised position.
type Outcome struct {
	Reason        model.CloseReason
	FilledOrderID *int64
	FilledOrder   *model.Order
	Timeout       bool
}

type Supervisor struct {
	orders       OrderReader
	closer       Closer
	pollInterval time.Duration
}

func New(reader OrderReader, closer Closer, pollInterval time.Duration) *Supervisor {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Supervisor{orders: reader, closer: closer, pollInterval: pollInterval}
}

type watched struct {
	reason model.CloseReason
	id     *int64
}

// WaitForResolution polls the protective orders until one is FILLED or
// timeout elapses. The take-profit is checked before the stop-loss on every
// tick, so a tick where both report FILLED resolves as TP. Query errors are
// logged and retried on the next tick.
func (s *Supervisor) WaitForResolution(ctx context.Context, symbol string, tpOrderID, slOrderID *int64, timeout time.Duration) (Outcome, error) {
	watch := []watched{
		{reason: model.CloseReasonTakeProfit, id: tpOrderID},
		{reason: model.CloseReasonStopLoss, id: slOrderID},
	}

	log := logger.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"tp":      idField(tpOrderID),
		"sl":      idField(slOrderID),
		"timeout": timeout.String(),
	})
	log.Info("waiting for position resolution")

	var outcome Outcome
	cfg := utils.PollConfig{Interval: s.pollInterval, Timeout: timeout}
	resolved, err := utils.PollUntil(ctx, cfg, func(ctx context.Context, attempt int) bool {
		for _, w := range watch {
			if w.id == nil {
				continue
			}
			o, err := s.orders.GetOrder(ctx, symbol, *w.id)
			if err != nil {
				log.WithFields(map[string]interface{}{
					"orderId": *w.id,
					"attempt": attempt,
				}).WithError(err).Debug("order status query failed")
				continue
			}
			if o != nil && o.Filled() {
				id := *w.id
				outcome = Outcome{Reason: w.reason, FilledOrderID: &id, FilledOrder: o}
				return true
			}
		}
		return false
	})
	if err != nil {
		return Outcome{}, err
	}
	if !resolved {
		log.Info("resolution window elapsed")
		return Outcome{Reason: model.CloseReasonIdle, Timeout: true}, nil
	}

	log.WithFields(map[string]interface{}{
		"reason":  outcome.Reason,
		"orderId": *outcome.FilledOrderID,
	}).Info("position resolved")
	return outcome, nil
}

// ForceCloseOnTimeout cancels every protective order and closes the position
// at market. It returns the close order id, or nil when already flat.
func (s *Supervisor) ForceCloseOnTimeout(ctx context.Context, symbol string) (*int64, error) {
	if _, err := s.closer.CancelProtectiveOrders(ctx, symbol); err != nil {
		logger.WithField("symbol", symbol).WithError(err).Warn("protective cancel before force close failed")
	}

	res, err := s.closer.ClosePositionMarket(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("force close %s: %w", symbol, err)
	}
	if res.Response == nil {
		logger.WithField("symbol", symbol).Info("nothing to force close, position already flat")
		return nil, nil
	}
	id := res.Response.OrderID
	logger.WithFields(map[string]interface{}{
		"symbol":    symbol,
		"orderId":   id,
		"closedQty": res.ClosedQty.String(),
	}).Info("position force closed")
	return &id, nil
}

func idField(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
