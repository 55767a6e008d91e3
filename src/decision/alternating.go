package decision

import (
	"context"
	"sync"
	"time"

	"futuresexecutor/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// PriceSource reports the last traded price of a symbol.
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// AlternatingSource flips between SELL and BUY on every call, starting with
// SELL, always at full confidence.
type AlternatingSource struct {
	symbol string
	prices PriceSource
	now    func() time.Time

	mu   sync.Mutex
	next model.Side
}

// NewAlternatingSource returns a source starting with SELL. prices may be nil,
// in which case decisions carry no close price.
func NewAlternatingSource(symbol string, prices PriceSource) *AlternatingSource {
	return &AlternatingSource{
		symbol: symbol,
		prices: prices,
		now:    time.Now,
		next:   model.SideSell,
	}
}

func (a *AlternatingSource) Decide(ctx context.Context, _ float64, window int) (model.Decision, error) {
	a.mu.Lock()
	side := a.next
	a.next = side.Opposite()
	a.mu.Unlock()

	d := model.Decision{
		Time:       a.now().UTC(),
		Action:     model.ActionSell,
		Confidence: 1,
		// SELL, HOLD, BUY
		Probabilities: []float64{1, 0, 0},
		WindowUsed:    window,
	}
	if side == model.SideBuy {
		d.Action = model.ActionBuy
		d.Probabilities = []float64{0, 0, 1}
	}

	if a.prices != nil {
		price, err := a.prices.GetPrice(ctx, a.symbol)
		if err != nil {
			logger.WithField("symbol", a.symbol).WithError(err).Warn("close price unavailable for decision")
		} else {
			d.ClosePrice = price.InexactFloat64()
		}
	}
	return d, nil
}
