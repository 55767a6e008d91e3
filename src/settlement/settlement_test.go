package settlement

import (
	"context"
	"errors"
	"testing"

	"futuresexecutor/src/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func twoFills() []model.TradeExecution {
	return []model.TradeExecution{
		{TradeID: 1, OrderID: 9, Price: d("50000"), Quantity: d("0.02"), Commission: d("0.5"), CommissionAsset: "USDT", RealizedPnL: d("0")},
		{TradeID: 2, OrderID: 9, Price: d("50100"), Quantity: d("0.03"), Commission: d("0.75"), CommissionAsset: "USDT", RealizedPnL: d("3.2")},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(9, twoFills())

	assert.Equal(t, 2, s.Fills)
	assert.Equal(t, "0.05", s.Quantity.String())
	require.NotNil(t, s.AvgPrice)
	assert.Equal(t, "50060", s.AvgPrice.String())
	assert.Equal(t, "1.25", s.TotalFee.String())
	assert.Equal(t, "USDT", s.FeeAsset)
	assert.Equal(t, "3.2", s.RealizedPnL.String())
}

func TestSummarizeOrderIndependent(t *testing.T) {
	fills := append(twoFills(), model.TradeExecution{
		TradeID: 3, OrderID: 9, Price: d("49990.5"), Quantity: d("0.011"), Commission: d("0.21"), RealizedPnL: d("-0.4"),
	})
	reversed := []model.TradeExecution{fills[2], fills[1], fills[0]}

	a := Summarize(9, fills)
	b := Summarize(9, reversed)
	assert.True(t, a.AvgPrice.Equal(*b.AvgPrice))
	assert.True(t, a.TotalFee.Equal(b.TotalFee))
	assert.True(t, a.RealizedPnL.Equal(b.RealizedPnL))
	assert.True(t, a.Quantity.Equal(b.Quantity))
}

func TestSummarizeFeeAssetFirstObserved(t *testing.T) {
	s := Summarize(1, []model.TradeExecution{
		{Price: d("1"), Quantity: d("1"), Commission: d("0.1")},
		{Price: d("1"), Quantity: d("1"), Commission: d("0.1"), CommissionAsset: "BNB"},
		{Price: d("1"), Quantity: d("1"), Commission: d("0.1"), CommissionAsset: "USDT"},
	})
	assert.Equal(t, "BNB", s.FeeAsset)
}

func TestSummarizeNoFills(t *testing.T) {
	s := Summarize(5, nil)
	assert.Equal(t, int64(5), s.OrderID)
	assert.Nil(t, s.AvgPrice)
	assert.True(t, s.TotalFee.IsZero())
	assert.True(t, s.RealizedPnL.IsZero())
}

func TestCompute(t *testing.T) {
	s := Summarize(9, twoFills())

	r := Compute(s, d("50000"), d("31.25"))
	assert.Equal(t, "1.95", r.Net.String())
	require.NotNil(t, r.ROI)
	assert.Equal(t, "0.0624", r.ROI.String())
	assert.True(t, r.Net.Equal(s.RealizedPnL.Sub(s.TotalFee)))

	for _, wallet := range []string{"0", "-3"} {
		r = Compute(s, d("50000"), d(wallet))
		assert.Nil(t, r.ROI, wallet)
		assert.Equal(t, "1.95", r.Net.String())
	}
}

type fakeTrades struct {
	trades []model.TradeExecution
	err    error
}

func (f fakeTrades) GetTrades(_ context.Context, _ string, _ int64) ([]model.TradeExecution, error) {
	return f.trades, f.err
}

func TestCalculatorSettle(t *testing.T) {
	c := NewCalculator(fakeTrades{trades: twoFills()})

	r, err := c.Settle(context.Background(), "BTCUSDT", 9, d("50000"), d("31.25"))
	require.NoError(t, err)
	assert.Equal(t, "50060", r.AvgPrice.String())
	assert.Equal(t, "1.95", r.Net.String())

	c = NewCalculator(fakeTrades{err: errors.New("userTrades down")})
	_, err = c.Settle(context.Background(), "BTCUSDT", 9, d("50000"), d("31.25"))
	assert.Error(t, err)

	c = NewCalculator(fakeTrades{})
	s, err := c.TradeSummary(context.Background(), "BTCUSDT", 9)
	require.NoError(t, err)
	assert.Nil(t, s.AvgPrice)
}
