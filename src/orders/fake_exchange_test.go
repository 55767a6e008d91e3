package orders

import (
	"context"
	"errors"
	"sync"

	"futuresexecutor/src/model"
	"futuresexecutor/src/precision"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type staticMeta struct {
	meta model.SymbolMetadata
}

func (s staticMeta) GetSymbolMetadata(_ context.Context, _ string) (*model.SymbolMetadata, error) {
	m := s.meta
	return &m, nil
}

func btcMeta() model.SymbolMetadata {
	return model.SymbolMetadata{
		Symbol:      "BTCUSDT",
		TickSize:    d("0.10"),
		StepSize:    d("0.001"),
		MinQty:      d("0.001"),
		MinNotional: d("100"),
	}
}

// fakeExchange keeps a tiny in-memory book of orders and one position.
type fakeExchange struct {
	mu sync.Mutex

	price        decimal.Decimal
	book         *model.OrderBook
	position     *model.Position
	fillOnLimit  *model.Position // becomes the position once a LIMIT is placed
	limitStatus  model.OrderStatus
	positionErrs int

	placed      []model.OrderRequest
	placeErr    map[model.OrderType]error
	open        []model.Order
	canceled    []int64
	cancelErr   map[int64]error
	nextID      int64
	leverage    int
	leverageErr error
	marginType  string
	marginErr   error
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		price:       d("50000"),
		limitStatus: model.OrderStatusNew,
		placeErr:    map[model.OrderType]error{},
		cancelErr:   map[int64]error{},
		nextID:      100,
	}
}

func (f *fakeExchange) GetPrice(_ context.Context, _ string) (decimal.Decimal, error) {
	return f.price, nil
}

func (f *fakeExchange) GetOrderBook(_ context.Context, _ string, _ int) (*model.OrderBook, error) {
	if f.book == nil {
		return nil, errors.New("no book")
	}
	return f.book, nil
}

func (f *fakeExchange) PlaceOrder(_ context.Context, o model.OrderRequest) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.placeErr[o.Type]; err != nil {
		return nil, err
	}
	f.placed = append(f.placed, o)
	f.nextID++
	ack := model.Order{
		OrderID:       f.nextID,
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          o.Side,
		Type:          o.Type,
		Status:        model.OrderStatusNew,
		ReduceOnly:    o.ReduceOnly,
		ClosePosition: o.ClosePosition,
		WorkingType:   o.WorkingType,
	}

	switch {
	case o.Type == model.OrderTypeLimit:
		ack.Status = f.limitStatus
		if f.limitStatus.IsOpen() {
			f.open = append(f.open, ack)
		}
		if f.fillOnLimit != nil {
			f.position = f.fillOnLimit
		}
	case o.Type == model.OrderTypeMarket && o.ReduceOnly:
		ack.Status = model.OrderStatusFilled
		f.position = nil
	default:
		f.open = append(f.open, ack)
	}
	return &ack, nil
}

func (f *fakeExchange) CancelOrder(_ context.Context, _ string, orderID int64) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.cancelErr[orderID]; err != nil {
		return nil, err
	}
	for i, o := range f.open {
		if o.OrderID == orderID {
			f.open = append(f.open[:i], f.open[i+1:]...)
			o.Status = model.OrderStatusCanceled
			f.canceled = append(f.canceled, orderID)
			return &o, nil
		}
	}
	return nil, errors.New("unknown order")
}

func (f *fakeExchange) GetOpenOrders(_ context.Context, _ string) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Order, len(f.open))
	copy(out, f.open)
	return out, nil
}

func (f *fakeExchange) GetPosition(_ context.Context, _ string) (*model.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.positionErrs > 0 {
		f.positionErrs--
		return nil, errors.New("positionRisk unavailable")
	}
	return f.position, nil
}

func (f *fakeExchange) SetLeverage(_ context.Context, _ string, leverage int) error {
	if f.leverageErr != nil {
		return f.leverageErr
	}
	f.leverage = leverage
	return nil
}

func (f *fakeExchange) SetMarginType(_ context.Context, _ string, marginType string) error {
	if f.marginErr != nil {
		return f.marginErr
	}
	f.marginType = marginType
	return nil
}

func (f *fakeExchange) placedOfType(t model.OrderType) []model.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.OrderRequest
	for _, o := range f.placed {
		if o.Type == t {
			out = append(out, o)
		}
	}
	return out
}

func newTestPlacer(ex *fakeExchange) *Placer {
	p := NewPlacer(ex, precision.NewEngine(staticMeta{meta: btcMeta()}, 0))
	p.newID = func(prefix string) string { return "fx-" + prefix }
	return p
}
