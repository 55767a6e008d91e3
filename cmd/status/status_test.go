package status

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"futuresexecutor/src/model"
	"futuresexecutor/src/settlement"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExchange struct {
	position *model.Position
	orders   []model.Order
	err      error
}

func (f fakeExchange) GetPosition(_ context.Context, _ string) (*model.Position, error) {
	return f.position, f.err
}

func (f fakeExchange) GetOpenOrders(_ context.Context, _ string) ([]model.Order, error) {
	return f.orders, nil
}

type fakeTrades struct{ summary settlement.Summary }

func (f fakeTrades) TradeSummary(_ context.Context, _ string, orderID int64) (settlement.Summary, error) {
	s := f.summary
	s.OrderID = orderID
	return s, nil
}

type fakeCloser struct {
	id  *int64
	err error
}

func (f fakeCloser) ForceCloseOnTimeout(_ context.Context, _ string) (*int64, error) {
	return f.id, f.err
}

func TestReportFlat(t *testing.T) {
	var out bytes.Buffer
	s := &Status{Out: &out, Exchange: fakeExchange{}}

	require.NoError(t, s.Report(context.Background(), "BTCUSDT", 0))
	assert.Equal(t, "Symbol: BTCUSDT\nPosition: flat\nOpen orders: 0\n", out.String())
}

func TestReportPositionOrdersAndSummary(t *testing.T) {
	pos := model.NewPosition("BTCUSDT", -0.05, 50000, -1.25, 31.25)
	pos.Leverage = 50
	pos.MarginType = "ISOLATED"
	avg := decimal.RequireFromString("50060")

	var out bytes.Buffer
	s := &Status{
		Out: &out,
		Exchange: fakeExchange{position: pos, orders: []model.Order{
			{OrderID: 7, Type: model.OrderTypeTakeProfitMarket, Side: model.SideBuy, StopPrice: 49920, Status: model.OrderStatusNew, ClosePosition: true},
			{OrderID: 8, Type: model.OrderTypeLimit, Side: model.SideSell, Price: 50100, OrigQty: 0.01, Status: model.OrderStatusNew},
		}},
		Trades: fakeTrades{summary: settlement.Summary{
			Fills:       2,
			Quantity:    decimal.RequireFromString("0.05"),
			AvgPrice:    &avg,
			TotalFee:    decimal.RequireFromString("1.25"),
			FeeAsset:    "USDT",
			RealizedPnL: decimal.RequireFromString("3.2"),
		}},
	}

	require.NoError(t, s.Report(context.Background(), "BTCUSDT", 42))
	text := out.String()

	assert.Contains(t, text, "Position: SHORT 0.05 @ 50000")
	assert.Contains(t, text, "lev=50x, isolated")
	assert.Contains(t, text, "ROI(margin)=-4.00%")
	assert.Contains(t, text, "ROI(notional)=-0.05%")
	assert.Contains(t, text, "Open orders: 2")

	lines := strings.Split(text, "\n")
	var tpRow string
	for _, l := range lines {
		if strings.HasPrefix(l, "7 ") {
			tpRow = l
		}
	}
	require.NotEmpty(t, tpRow)
	assert.Contains(t, tpRow, "take_profit")
	assert.Contains(t, tpRow, "closePosition")
	assert.Contains(t, text, "Order 42: fills=2 qty=0.05 avg=50060 fee=1.25 USDT realized=3.2")
}

func TestReportError(t *testing.T) {
	s := &Status{Out: &bytes.Buffer{}, Exchange: fakeExchange{err: errors.New("positionRisk down")}}
	assert.Error(t, s.Report(context.Background(), "BTCUSDT", 0))
}

func TestFlatten(t *testing.T) {
	id := int64(99)
	var out bytes.Buffer

	require.NoError(t, Flatten(context.Background(), &out, fakeCloser{id: &id}, "BTCUSDT"))
	assert.Equal(t, "BTCUSDT: closed with order 99\n", out.String())

	out.Reset()
	require.NoError(t, Flatten(context.Background(), &out, fakeCloser{}, "BTCUSDT"))
	assert.Equal(t, "BTCUSDT: already flat\n", out.String())

	assert.Error(t, Flatten(context.Background(), &out, fakeCloser{err: errors.New("boom")}, "BTCUSDT"))
}
