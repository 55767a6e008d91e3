package klines

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"futuresexecutor/src/model"
	"futuresexecutor/src/repository"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// Store persists bars per interval.
type Store interface {
	Upsert(ctx context.Context, interval string, bars []model.KlineBase) (int, error)
	LatestOpenTime(ctx context.Context, interval, symbol string) (time.Time, error)
}

// Backfill copies Binance klines into the klines_1m / klines_1h tables.
type Backfill struct {
	Log      *logger.Entry
	Store    Store
	Config   *Config
	exchange goex.API
}

func (b *Backfill) Start(ctx context.Context) error {
	if b.Config == nil {
		b.Config = GetConfig()
	}
	if b.Log == nil {
		b.Log = logger.WithField("cmd", "klines")
	}
	if _, err := b.period(); err != nil {
		return err
	}
	if b.exchange == nil {
		b.exchange = b.newBinanceInstance()
	}

	if b.Config.AutoMode {
		if err := b.determineStartPoint(ctx); err != nil {
			return err
		}
	}

	n, err := b.fetchAndSave(ctx)
	if err != nil {
		return err
	}
	b.Log.WithFields(logger.Fields{
		"symbol":   b.Config.Symbol(),
		"interval": b.Config.Interval,
		"bars":     n,
	}).Info("klines backfill done")
	return nil
}

func (b *Backfill) newBinanceInstance() *binance.Binance {
	endpoint := b.Config.Endpoint
	if endpoint == "" {
		endpoint = binance.GLOBAL_API_BASE_URL
	}
	return binance.NewWithConfig(&goex.APIConfig{
		HttpClient: &http.Client{Timeout: 30 * time.Second},
		Endpoint:   endpoint,
	})
}

func (b *Backfill) fetchAndSave(ctx context.Context) (int, error) {
	series, err := b.fetchSeries()
	if err != nil {
		return 0, err
	}

	bars := make([]model.KlineBase, 0, len(series))
	for _, k := range series {
		bars = append(bars, model.KlineBase{
			OpenTime: time.Unix(k.Timestamp, 0).UTC(),
			Open:     decimal.NewFromFloat(k.Open),
			High:     decimal.NewFromFloat(k.High),
			Low:      decimal.NewFromFloat(k.Low),
			Close:    decimal.NewFromFloat(k.Close),
			Volume:   decimal.NewFromFloat(k.Vol),
			Symbol:   b.Config.Symbol(),
		})
	}

	n, err := b.Store.Upsert(ctx, b.Config.Interval, bars)
	if err != nil {
		b.Log.WithError(err).Error("fetchAndSave, Upsert")
		return 0, err
	}
	return n, nil
}

// determineStartPoint resumes from the newest stored bar. That bar is fetched
// again since it may have been stored before it closed.
func (b *Backfill) determineStartPoint(ctx context.Context) error {
	step, err := b.step()
	if err != nil {
		return err
	}
	b.Config.EndDt = time.Now().UTC()

	latest, err := b.Store.LatestOpenTime(ctx, b.Config.Interval, b.Config.Symbol())
	if err != nil {
		b.Log.WithError(err).Error("Failed to query latest open time")
		return err
	}
	if latest.IsZero() {
		b.Log.
			WithField("StartDt", b.Config.StartDt.String()).
			WithField("EndDt", b.Config.EndDt.String()).
			Warn("no stored klines, starting from the configured start date")
		return nil
	}

	b.Config.StartDt = latest.Add(-step)
	b.Log.
		WithField("StartDt", b.Config.StartDt.String()).
		WithField("EndDt", b.Config.EndDt.String()).
		Info("determineStartPoint resuming after stored klines")
	return nil
}

func (b *Backfill) fetchSeries() ([]goex.Kline, error) {
	period, err := b.period()
	if err != nil {
		return nil, err
	}
	pair := goex.NewCurrencyPair(goex.Currency{Symbol: b.Config.Base}, goex.Currency{Symbol: b.Config.Quote})

	const millis = 1000
	klines, err := b.exchange.GetKlineRecords(
		pair,
		period,
		b.Config.Limit,
		goex.OptionalParameter{}.
			Optional("startTime", b.Config.StartDt.Unix()*millis).
			Optional("endTime", b.Config.EndDt.Unix()*millis),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch klines %s %s: %w", pair, b.Config.Interval, err)
	}
	return klines, nil
}

func (b *Backfill) step() (time.Duration, error) {
	switch b.Config.Interval {
	case repository.Interval1m:
		return time.Minute, nil
	case repository.Interval1h:
		return time.Hour, nil
	}
	return 0, fmt.Errorf("%w: %q", repository.ErrInvalidInterval, b.Config.Interval)
}

func (b *Backfill) period() (goex.KlinePeriod, error) {
	switch b.Config.Interval {
	case repository.Interval1m:
		return goex.KLINE_PERIOD_1MIN, nil
	case repository.Interval1h:
		return goex.KLINE_PERIOD_1H, nil
	}
	return 0, fmt.Errorf("%w: %q", repository.ErrInvalidInterval, b.Config.Interval)
}
