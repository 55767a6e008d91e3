package repository

import (
	"context"

	"futuresexecutor/src/database"
	"futuresexecutor/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ExceptionRepository handles persistence of driver failures.
type ExceptionRepository struct {
	db *gorm.DB
}

// NewExceptionRepository creates a new repository instance on the MainDB.
func NewExceptionRepository() *ExceptionRepository {
	return &ExceptionRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *ExceptionRepository) WithDB(db *gorm.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

// Create persists a new exception in the database.
func (r *ExceptionRepository) Create(
	ctx context.Context,
	exc *model.Exception,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":        "ExceptionRepository",
		"op":          "Create",
		"module":      exc.Module,
		"method":      exc.Method,
		"symbol":      exc.Symbol,
		"transaction": exc.Transaction,
		"level":       exc.Level,
	}).Debug("Persisting driver exception")

	return r.db.WithContext(ctx).Create(exc).Error
}

// FindRecent returns the newest exceptions for symbol, newest first.
func (r *ExceptionRepository) FindRecent(
	ctx context.Context,
	symbol string,
	limit int,
) ([]model.Exception, error) {

	if limit <= 0 {
		limit = 20
	}

	var rows []model.Exception
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "ExceptionRepository",
			"op":     "FindRecent",
			"symbol": symbol,
		}).WithError(err).Error("Failed to fetch recent exceptions")
		return nil, err
	}
	return rows, nil
}
