package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"futuresexecutor/src/connectors"
	"futuresexecutor/src/model"
	"futuresexecutor/src/precision"
	"futuresexecutor/src/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

var (
	ErrSizingFailure = errors.New("sizing failure")
	ErrOrderRejected = errors.New("order rejected")
	ErrEntryTimeout  = errors.New("entry timeout")
	ErrInvalidSide   = errors.New("open side must be BUY or SELL")
)

// Exchange is the part of the exchange client order placement relies on.
type Exchange interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetOrderBook(ctx context.Context, symbol string, limit int) (*model.OrderBook, error)
	PlaceOrder(ctx context.Context, o model.OrderRequest) (*model.Order, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) (*model.Order, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]model.Order, error)
	GetPosition(ctx context.Context, symbol string) (*model.Position, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	SetMarginType(ctx context.Context, symbol, marginType string) error
}

// RoundersProvider resolves precision rules for a symbol. Invalidate drops
// cached rules after the exchange rejects an order for its filters.
type RoundersProvider interface {
	Rounders(ctx context.Context, symbol string) (*precision.Rounders, error)
	Invalidate(symbol string)
}

// Placer submits entry, protective and closing orders with exchange
// compliant precision.
type Placer struct {
	exchange  Exchange
	precision RoundersProvider
	entryWait utils.PollConfig
	newID     func(prefix string) string
}

func NewPlacer(exchange Exchange, rounders RoundersProvider) *Placer {
	return &Placer{
		exchange:  exchange,
		precision: rounders,
		entryWait: utils.PollConfig{Interval: time.Second, MaxAttempts: 20},
		newID:     newClientOrderID,
	}
}

// WithEntryWait overrides how long OpenPosition waits for the entry fill.
func (p *Placer) WithEntryWait(cfg utils.PollConfig) *Placer {
	p.entryWait = cfg
	return p
}

// newClientOrderID fits the 36 character limit of the venue.
func newClientOrderID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("fx-%s-%s", prefix, id[:24])
}

// PrepareFromMargin sizes an order from margin and leverage. A zero price
// fetches the current ticker price.
func (p *Placer) PrepareFromMargin(ctx context.Context, symbol string, margin decimal.Decimal, leverage int, price decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if !margin.IsPositive() || leverage <= 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: margin %s leverage %d", ErrSizingFailure, margin.String(), leverage)
	}

	if !price.IsPositive() {
		current, err := p.exchange.GetPrice(ctx, symbol)
		if err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("current price for %s: %w", symbol, err)
		}
		price = current
	}

	rounders, err := p.precision.Rounders(ctx, symbol)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	notional := margin.Mul(decimal.NewFromInt(int64(leverage)))
	rawQty := notional.Div(price)

	rp, rq, err := rounders.CheckMinimums(price, rawQty)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"symbol":   symbol,
			"margin":   margin.String(),
			"leverage": leverage,
			"price":    price.String(),
			"rawQty":   rawQty.String(),
		}).WithError(err).Warn("order cannot be sized")
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %w", ErrSizingFailure, err)
	}
	return rp, rq, nil
}

// Submit rounds and formats price and quantity and sends a LIMIT or MARKET
// order. MARKET orders carry no price.
func (p *Placer) Submit(ctx context.Context, symbol string, side model.Side, orderType model.OrderType, price, qty decimal.Decimal, tif model.TimeInForce) (*model.Order, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}
	rounders, err := p.precision.Rounders(ctx, symbol)
	if err != nil {
		return nil, err
	}

	rq := rounders.RoundQty(qty)
	if !rq.IsPositive() {
		return nil, fmt.Errorf("%w: quantity %s rounds to zero", ErrSizingFailure, qty.String())
	}

	req := model.OrderRequest{
		Symbol:        symbol,
		Side:          side,
		Type:          orderType,
		Quantity:      rounders.FormatQty(rq),
		TimeInForce:   tif,
		ClientOrderID: p.newID(strings.ToLower(string(orderType))),
	}
	if orderType != model.OrderTypeMarket {
		req.Price = rounders.FormatPrice(rounders.RoundPrice(price))
	}

	ack, err := p.exchange.PlaceOrder(ctx, req)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"side":   side,
			"type":   orderType,
			"price":  req.Price,
			"qty":    req.Quantity,
		}).WithError(err).Error("order submission failed")
		p.invalidateOnFilterRejection(symbol, err)
		return nil, fmt.Errorf("%w: %w", ErrOrderRejected, err)
	}

	logger.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"side":    side,
		"type":    orderType,
		"price":   req.Price,
		"qty":     req.Quantity,
		"orderId": ack.OrderID,
	}).Info("order submitted")
	return ack, nil
}

// TriggerPrice returns entry * (1 + roiPct/leverage) when up, otherwise
// entry * (1 - roiPct/leverage). The result is not rounded.
func TriggerPrice(entry, roiPct decimal.Decimal, leverage int, up bool) decimal.Decimal {
	move := roiPct.Div(decimal.NewFromInt(int64(leverage)))
	if up {
		return entry.Mul(decimal.NewFromInt(1).Add(move))
	}
	return entry.Mul(decimal.NewFromInt(1).Sub(move))
}

// PlaceTakeProfit attaches a close-position TAKE_PROFIT_MARKET order at the
// price where the position reaches +roiGainPct return on margin.
func (p *Placer) PlaceTakeProfit(ctx context.Context, symbol string, openSide model.Side, entry decimal.Decimal, leverage int, roiGainPct float64) (*model.Order, error) {
	// a long takes profit above entry, a short below
	return p.placeProtective(ctx, symbol, openSide, entry, leverage, roiGainPct, model.OrderTypeTakeProfitMarket, openSide == model.SideBuy)
}

// PlaceStopLoss attaches a close-position STOP_MARKET order at the price
// where the position reaches -roiLossPct return on margin.
func (p *Placer) PlaceStopLoss(ctx context.Context, symbol string, openSide model.Side, entry decimal.Decimal, leverage int, roiLossPct float64) (*model.Order, error) {
	return p.placeProtective(ctx, symbol, openSide, entry, leverage, roiLossPct, model.OrderTypeStopMarket, openSide == model.SideSell)
}

func (p *Placer) placeProtective(ctx context.Context, symbol string, openSide model.Side, entry decimal.Decimal, leverage int, roiPct float64, orderType model.OrderType, up bool) (*model.Order, error) {
	if !openSide.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSide, openSide)
	}
	if leverage <= 0 {
		return nil, fmt.Errorf("leverage must be positive, got %d", leverage)
	}

	rounders, err := p.precision.Rounders(ctx, symbol)
	if err != nil {
		return nil, err
	}

	trigger := rounders.RoundPrice(TriggerPrice(entry, decimal.NewFromFloat(roiPct), leverage, up))
	req := model.OrderRequest{
		Symbol:        symbol,
		Side:          openSide.Opposite(),
		Type:          orderType,
		StopPrice:     rounders.FormatPrice(trigger),
		ClosePosition: true,
		WorkingType:   model.WorkingTypeMarkPrice,
		ClientOrderID: p.newID(protectiveTag(orderType)),
	}

	fields := map[string]interface{}{
		"symbol":    symbol,
		"type":      orderType,
		"closeSide": req.Side,
		"entry":     entry.String(),
		"trigger":   req.StopPrice,
		"roiPct":    roiPct,
		"leverage":  leverage,
	}

	ack, err := p.exchange.PlaceOrder(ctx, req)
	if err != nil {
		logger.WithFields(fields).WithError(err).Error("protective order rejected")
		p.invalidateOnFilterRejection(symbol, err)
		return nil, fmt.Errorf("%w: %w", ErrOrderRejected, err)
	}
	fields["orderId"] = ack.OrderID
	logger.WithFields(fields).Info("protective order placed")
	return ack, nil
}

func (p *Placer) invalidateOnFilterRejection(symbol string, err error) {
	if connectors.IsFilterRejection(err) {
		logger.WithField("symbol", symbol).Info("filter rejection, dropping cached symbol metadata")
		p.precision.Invalidate(symbol)
	}
}

func protectiveTag(t model.OrderType) string {
	if model.ClassifyKind(t) == model.OrderKindTakeProfit {
		return "tp"
	}
	return "sl"
}

// EnsureLeverage sets the margin type and leverage for symbol. A margin type
// that is already in effect is not an error.
func (p *Placer) EnsureLeverage(ctx context.Context, symbol string, leverage int, marginType string) error {
	if marginType != "" {
		if err := p.exchange.SetMarginType(ctx, symbol, marginType); err != nil {
			if !connectors.IsMarginTypeUnchanged(err) {
				logger.WithFields(map[string]interface{}{
					"symbol":     symbol,
					"marginType": marginType,
				}).WithError(err).Warn("margin type change failed, keeping current mode")
			}
		}
	}
	if err := p.exchange.SetLeverage(ctx, symbol, leverage); err != nil {
		return fmt.Errorf("set leverage %dx on %s: %w", leverage, symbol, err)
	}
	logger.WithFields(map[string]interface{}{
		"symbol":     symbol,
		"leverage":   leverage,
		"marginType": marginType,
	}).Info("leverage configured")
	return nil
}

// LimitPriceFromOrderBook picks a limit price from the top of the book.
// Taker mode crosses the spread (BUY at best ask, SELL at best bid). Maker
// mode rests offsetTicks away from the touch on the own side. The result is
// at least one tick and floored to the tick size.
func (p *Placer) LimitPriceFromOrderBook(ctx context.Context, symbol string, side model.Side, depth int, makerMode bool, offsetTicks int) (decimal.Decimal, error) {
	if !side.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}

	book, err := p.exchange.GetOrderBook(ctx, symbol, depth)
	if err != nil {
		return decimal.Zero, fmt.Errorf("order book for %s: %w", symbol, err)
	}
	rounders, err := p.precision.Rounders(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	tick := rounders.Metadata().TickSize
	offset := tick.Mul(decimal.NewFromInt(int64(offsetTicks)))

	var raw decimal.Decimal
	switch {
	case side == model.SideBuy && makerMode:
		if len(book.Bids) == 0 {
			return decimal.Zero, fmt.Errorf("order book bids empty for %s", symbol)
		}
		raw = book.Bids[0].Price.Sub(offset)
	case side == model.SideBuy:
		if len(book.Asks) == 0 {
			return decimal.Zero, fmt.Errorf("order book asks empty for %s", symbol)
		}
		raw = book.Asks[0].Price
	case makerMode:
		if len(book.Asks) == 0 {
			return decimal.Zero, fmt.Errorf("order book asks empty for %s", symbol)
		}
		raw = book.Asks[0].Price.Add(offset)
	default:
		if len(book.Bids) == 0 {
			return decimal.Zero, fmt.Errorf("order book bids empty for %s", symbol)
		}
		raw = book.Bids[0].Price
	}

	if raw.LessThan(tick) {
		raw = tick
	}
	return rounders.RoundPrice(raw), nil
}
