package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"futuresexecutor/src/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(symbol string, openTime time.Time, closePrice string) model.KlineBase {
	c := decimal.RequireFromString(closePrice)
	return model.KlineBase{
		Symbol:   symbol,
		OpenTime: openTime,
		Open:     c,
		High:     c,
		Low:      c,
		Close:    c,
		Volume:   decimal.NewFromInt(10),
	}
}

func TestKlineRepositoryUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	repo := NewKlineRepository().WithDB(newTestDB(t))

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	n, err := repo.Upsert(ctx, Interval1m, []model.KlineBase{
		bar("BTC_USDT", t0, "64000"),
		bar("BTC_USDT", t0.Add(time.Minute), "64010"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// same open time gets its values replaced, seconds are truncated
	_, err = repo.Upsert(ctx, Interval1m, []model.KlineBase{
		bar("BTC_USDT", t0.Add(time.Minute+20*time.Second), "64020.5"),
		bar("BTC_USDT", t0.Add(2*time.Minute), "64030"),
	})
	require.NoError(t, err)

	rows, err := repo.Recent(ctx, "BTC_USDT", t0.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].OpenTime.Equal(t0))
	assert.Equal(t, "64020.5", rows[1].Close.String())
	assert.Equal(t, "64030", rows[2].Close.String())

	n, err = repo.Upsert(ctx, Interval1m, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestKlineRepositoryInvalidInterval(t *testing.T) {
	repo := NewKlineRepository().WithDB(newTestDB(t))

	_, err := repo.Upsert(context.Background(), "5m", []model.KlineBase{bar("BTC_USDT", time.Now(), "1")})
	assert.ErrorIs(t, err, ErrInvalidInterval)
	_, err = repo.LatestOpenTime(context.Background(), "1d", "BTC_USDT")
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestKlineRepositoryLatestOpenTime(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewKlineRepository().WithDB(db)

	latest := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT MAX(open_time) FROM "klines_1h" WHERE symbol = $1`)).
		WithArgs("BTC_USDT").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(latest))

	got, err := repo.LatestOpenTime(context.Background(), Interval1h, "BTC_USDT")
	require.NoError(t, err)
	assert.True(t, got.Equal(latest))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT MAX(open_time) FROM "klines_1h"`)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	got, err = repo.LatestOpenTime(context.Background(), Interval1h, "ETH_USDT")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	require.NoError(t, mock.ExpectationsWereMet())
}
