package repository

import (
	"context"

	"futuresexecutor/src/database"
	"futuresexecutor/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CycleRepository journals completed trade cycles.
type CycleRepository struct {
	db *gorm.DB
}

func NewCycleRepository() *CycleRepository {
	return &CycleRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *CycleRepository) WithDB(db *gorm.DB) *CycleRepository {
	return &CycleRepository{db: db}
}

func (r *CycleRepository) Create(ctx context.Context, rec *model.CycleRecord) error {
	err := r.db.WithContext(ctx).Create(rec).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "CycleRepository",
			"op":          "Create",
			"symbol":      rec.Symbol,
			"transaction": rec.Transaction,
		}).WithError(err).Error("Failed to persist cycle record")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "CycleRepository",
		"op":          "Create",
		"id":          rec.ID,
		"symbol":      rec.Symbol,
		"transaction": rec.Transaction,
		"reason":      rec.Reason,
	}).Debug("Cycle record persisted")
	return nil
}

// FindRecent returns the newest cycles for symbol, newest first.
func (r *CycleRepository) FindRecent(ctx context.Context, symbol string, limit int) ([]model.CycleRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []model.CycleRecord
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "CycleRepository",
			"op":     "FindRecent",
			"symbol": symbol,
			"limit":  limit,
		}).WithError(err).Error("Failed to fetch recent cycles")
		return nil, err
	}
	return rows, nil
}

// Totals folds every journaled cycle of symbol into statistics, so the
// counters survive a restart.
func (r *CycleRepository) Totals(ctx context.Context, symbol string) (model.CycleStatistics, error) {
	var rows []model.CycleRecord
	err := r.db.WithContext(ctx).
		Select("id", "reason", "net").
		Where("symbol = ?", symbol).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "CycleRepository",
			"op":     "Totals",
			"symbol": symbol,
		}).WithError(err).Error("Failed to aggregate cycles")
		return model.CycleStatistics{}, err
	}

	stats := model.CycleStatistics{LastProfit: decimal.Zero, TotalProfit: decimal.Zero}
	for _, row := range rows {
		stats = stats.Record(model.CloseReason(row.Reason), row.Net)
	}
	return stats, nil
}
