package repository

import (
	"context"
	"testing"
	"time"

	"futuresexecutor/src/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleRepositoryCreateAndTotals(t *testing.T) {
	ctx := context.Background()
	repo := NewCycleRepository().WithDB(newTestDB(t))

	closed := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	records := []model.CycleRecord{
		{Symbol: "BTCUSDT", Transaction: 1, Side: "SELL", Reason: "TP", Net: decimal.RequireFromString("1.5"), ClosedAt: closed},
		{Symbol: "BTCUSDT", Transaction: 2, Side: "BUY", Reason: "SL", Net: decimal.RequireFromString("-4.25"), ClosedAt: closed.Add(time.Hour)},
		{Symbol: "BTCUSDT", Transaction: 3, Side: "SELL", Reason: "IDLE", Net: decimal.RequireFromString("0.5"), ClosedAt: closed.Add(2 * time.Hour)},
		{Symbol: "ETHUSDT", Transaction: 1, Side: "BUY", Reason: "TP", Net: decimal.RequireFromString("9")},
	}
	for i := range records {
		require.NoError(t, repo.Create(ctx, &records[i]))
		assert.NotZero(t, records[i].ID)
	}

	recent, err := repo.FindRecent(ctx, "BTCUSDT", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 3, recent[0].Transaction)
	assert.Equal(t, 2, recent[1].Transaction)

	stats, err := repo.Totals(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Transactions)
	assert.Equal(t, 1, stats.TakeProfits)
	assert.Equal(t, 1, stats.StopLosses)
	assert.Equal(t, 1, stats.Idle)
	assert.True(t, stats.TotalProfit.Equal(decimal.RequireFromString("-2.25")), stats.TotalProfit.String())
	assert.True(t, stats.LastProfit.Equal(decimal.RequireFromString("0.5")))
}
