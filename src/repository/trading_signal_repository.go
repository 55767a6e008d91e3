package repository

import (
	"context"
	"errors"

	"futuresexecutor/src/database"
	"futuresexecutor/src/externalmodel"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TradingSignalRepository reads the direction signals that the external
// model pipeline writes to the read-only database.
type TradingSignalRepository struct {
	db *gorm.DB
}

// NewTradingSignalRepository uses the ReadOnlyDB connection.
func NewTradingSignalRepository() *TradingSignalRepository {
	logger.WithField("component", "TradingSignalRepository").
		Debug("Creating new TradingSignalRepository with ReadOnlyDB")

	return &TradingSignalRepository{
		db: database.ReadOnlyDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *TradingSignalRepository) WithDB(db *gorm.DB) *TradingSignalRepository {
	return &TradingSignalRepository{db: db}
}

// FindLatestBySymbol returns the newest signal for symbol.
// Returns (nil, nil) if there is none.
func (r *TradingSignalRepository) FindLatestBySymbol(
	ctx context.Context,
	symbol string,
) (*externalmodel.TradingSignal, error) {

	fields := map[string]interface{}{
		"repo":   "TradingSignalRepository",
		"op":     "FindLatestBySymbol",
		"symbol": symbol,
	}

	var signal externalmodel.TradingSignal
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("id DESC").
		First(&signal).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(fields).Debug("No trading signal for symbol")
			return nil, nil
		}
		logger.WithFields(fields).WithError(err).Error("Failed to fetch latest trading signal")
		return nil, err
	}

	fields["id"] = signal.ID
	fields["action"] = signal.Action
	logger.WithFields(fields).Debug("Latest trading signal fetched")
	return &signal, nil
}

// FindBySymbol fetches the latest trading signals for a given symbol,
// ordered from newest to oldest.
func (r *TradingSignalRepository) FindBySymbol(
	ctx context.Context,
	symbol string,
	limit int,
) ([]externalmodel.TradingSignal, error) {

	if limit <= 0 {
		limit = 50
	}

	var signals []externalmodel.TradingSignal
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("id DESC").
		Limit(limit).
		Find(&signals).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "TradingSignalRepository",
			"op":     "FindBySymbol",
			"symbol": symbol,
			"limit":  limit,
		}).WithError(err).Error("Failed to fetch trading signals by symbol")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "TradingSignalRepository",
		"op":          "FindBySymbol",
		"symbol":      symbol,
		"limit":       limit,
		"rows_return": len(signals),
	}).Debug("Trading signals by symbol fetched")

	return signals, nil
}
