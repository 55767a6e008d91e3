package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"futuresexecutor/src/database"
	"futuresexecutor/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidInterval = errors.New("invalid interval. allowed: 1m,1h")

const (
	Interval1m = "1m"
	Interval1h = "1h"
)

// KlineRepository stores the market bars backfilled from the exchange.
type KlineRepository struct {
	db *gorm.DB
}

func NewKlineRepository() *KlineRepository {
	return &KlineRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *KlineRepository) WithDB(db *gorm.DB) *KlineRepository {
	return &KlineRepository{db: db}
}

func modelFor(interval string) (interface{}, error) {
	switch interval {
	case Interval1m:
		return &model.Kline1m{}, nil
	case Interval1h:
		return &model.Kline1h{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
}

// Upsert writes bars for interval; a bar already stored for the same symbol
// and open time gets its values replaced.
func (r *KlineRepository) Upsert(ctx context.Context, interval string, bars []model.KlineBase) (int, error) {
	if _, err := modelFor(interval); err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}

	var rows interface{}
	switch interval {
	case Interval1m:
		out := make([]*model.Kline1m, 0, len(bars))
		for i := range bars {
			out = append(out, bars[i].ToKline1m())
		}
		rows = out
	default:
		out := make([]*model.Kline1h, 0, len(bars))
		for i := range bars {
			out = append(out, bars[i].ToKline1h())
		}
		rows = out
	}

	// composite unique index (symbol, open_time)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "open_time"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).Create(rows).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "KlineRepository",
			"op":       "Upsert",
			"interval": interval,
			"rows":     len(bars),
		}).WithError(err).Error("Failed to upsert klines")
		return 0, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "KlineRepository",
		"op":       "Upsert",
		"interval": interval,
		"symbol":   bars[0].Symbol,
		"rows":     len(bars),
	}).Info("Klines inserted or updated")
	return len(bars), nil
}

// LatestOpenTime returns the newest stored open time for symbol, or the zero
// time when nothing is stored yet.
func (r *KlineRepository) LatestOpenTime(ctx context.Context, interval, symbol string) (time.Time, error) {
	m, err := modelFor(interval)
	if err != nil {
		return time.Time{}, err
	}

	var latest sql.NullTime
	err = r.db.WithContext(ctx).
		Model(m).
		Select("MAX(open_time)").
		Where("symbol = ?", symbol).
		Scan(&latest).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "KlineRepository",
			"op":       "LatestOpenTime",
			"interval": interval,
			"symbol":   symbol,
		}).WithError(err).Error("Failed to query latest open time")
		return time.Time{}, err
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return latest.Time.UTC(), nil
}

// Recent returns the last limit 1m bars up to and including to, oldest first.
func (r *KlineRepository) Recent(ctx context.Context, symbol string, to time.Time, limit int) ([]model.Kline1m, error) {
	if limit <= 0 {
		limit = 200
	}

	var rows []model.Kline1m
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND open_time <= ?", symbol, to).
		Order("open_time DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// reverse to ascending chronological order
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
