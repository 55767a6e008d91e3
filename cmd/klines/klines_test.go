package klines

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"futuresexecutor/src/model"
	"futuresexecutor/src/repository"
	"futuresexecutor/src/utils"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	latest    time.Time
	latestErr error
	interval  string
	bars      []model.KlineBase
	upsertErr error
}

func (f *fakeStore) Upsert(_ context.Context, interval string, bars []model.KlineBase) (int, error) {
	f.interval = interval
	f.bars = append(f.bars, bars...)
	return len(bars), f.upsertErr
}

func (f *fakeStore) LatestOpenTime(_ context.Context, _, _ string) (time.Time, error) {
	return f.latest, f.latestErr
}

func setupMockBinanceServer(t *testing.T) *httptest.Server {
	t.Helper()
	handler := http.NewServeMux()
	handler.HandleFunc("/api/v3/klines", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`[
			[1499040000000, "0.01634790", "0.80000000", "0.01575800", "0.01577100", "148976.11427815", 1499644799999, "2434.19055334", 308, "1756.87402397", "28.46694368", "17928899.62484339"]
		]`))
		if err != nil {
			return
		}
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func newTestBackfill(t *testing.T, store Store, cfg *Config) *Backfill {
	server := setupMockBinanceServer(t)
	return &Backfill{
		Log:    logrus.NewEntry(logrus.New()),
		Store:  store,
		Config: cfg,
		exchange: binance.NewWithConfig(&goex.APIConfig{
			HttpClient: http.DefaultClient,
			Endpoint:   server.URL,
		}),
	}
}

func TestFetchSeries(t *testing.T) {
	b := newTestBackfill(t, &fakeStore{}, &Config{
		Base:     "BTC",
		Quote:    "USDT",
		StartDt:  time.Now().Add(-24 * time.Hour),
		EndDt:    time.Now(),
		Interval: repository.Interval1h,
		Limit:    500,
	})

	series, err := b.fetchSeries()
	require.NoError(t, err)
	require.Len(t, series, 1, "Should fetch exactly one kline")
	require.InDelta(t, 0.01634790, series[0].Open, 0, "Open price should match")
}

func TestStartStoresBarsUnderExchangeSymbol(t *testing.T) {
	store := &fakeStore{}
	b := newTestBackfill(t, store, &Config{
		Base:     "BTC",
		Quote:    "USDT",
		StartDt:  time.Now().Add(-time.Hour),
		EndDt:    time.Now(),
		Interval: repository.Interval1m,
		Limit:    10,
	})

	require.NoError(t, b.Start(context.Background()))
	require.Equal(t, repository.Interval1m, store.interval)
	require.Len(t, store.bars, 1)
	require.Equal(t, "BTCUSDT", store.bars[0].Symbol)
	require.Equal(t, "0.0163479", store.bars[0].Open.String())
	require.Equal(t, "0.8", store.bars[0].High.String())
}

func TestStartUpsertError(t *testing.T) {
	store := &fakeStore{upsertErr: errors.New("db down")}
	b := newTestBackfill(t, store, &Config{Base: "BTC", Quote: "USDT", Interval: repository.Interval1h, Limit: 10})

	require.Error(t, b.Start(context.Background()))
}

func TestDetermineStartPoint(t *testing.T) {
	latest := utils.ResetTime(time.Now().Add(-time.Hour), "minute").UTC()
	store := &fakeStore{latest: latest}
	cfg := &Config{
		Base:     "BTC",
		Quote:    "USDT",
		Interval: repository.Interval1h,
		StartDt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	b := &Backfill{Log: logrus.NewEntry(logrus.New()), Store: store, Config: cfg}

	require.NoError(t, b.determineStartPoint(context.Background()))
	require.Equal(t, latest.Add(-time.Hour), cfg.StartDt)
	require.WithinDuration(t, time.Now(), cfg.EndDt, time.Minute)
}

func TestDetermineStartPointEmptyStore(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := &Config{Base: "BTC", Quote: "USDT", Interval: repository.Interval1m, StartDt: start}
	b := &Backfill{Log: logrus.NewEntry(logrus.New()), Store: &fakeStore{}, Config: cfg}

	require.NoError(t, b.determineStartPoint(context.Background()))
	require.Equal(t, start, cfg.StartDt)

	b.Store = &fakeStore{latestErr: errors.New("db down")}
	require.Error(t, b.determineStartPoint(context.Background()))
}

func TestIntervalParsing(t *testing.T) {
	tests := []struct {
		interval string
		step     time.Duration
		period   goex.KlinePeriod
		wantErr  bool
	}{
		{repository.Interval1m, time.Minute, goex.KLINE_PERIOD_1MIN, false},
		{repository.Interval1h, time.Hour, goex.KLINE_PERIOD_1H, false},
		{"5m", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.interval, func(t *testing.T) {
			b := &Backfill{Config: &Config{Interval: tt.interval}}

			step, err := b.step()
			period, perr := b.period()
			if tt.wantErr {
				require.ErrorIs(t, err, repository.ErrInvalidInterval)
				require.ErrorIs(t, perr, repository.ErrInvalidInterval)
				require.Error(t, b.Start(context.Background()))
				return
			}
			require.NoError(t, err)
			require.NoError(t, perr)
			require.Equal(t, tt.step, step)
			require.Equal(t, tt.period, period)
		})
	}
}
