package database

import (
	"fmt"

	"futuresexecutor/src/externalmodel"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ReadOnlyDB is the connection used to poll external trading signals.
// The database user for this connection should have SELECT-only permissions.
var ReadOnlyDB *gorm.DB

// InitReadOnlyDB opens ReadOnlyDB and checks that the signal table is
// reachable. It never migrates.
func InitReadOnlyDB() error {
	config := GetConfig()
	db, err := gorm.Open(postgres.Open(config.DatabaseURLReadOnly),
		&gorm.Config{
			PrepareStmt:    true,
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to connect to ReadOnlyDB: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from ReadOnlyDB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping ReadOnlyDB: %w", err)
	}

	var count int64
	if err := db.Model(&externalmodel.TradingSignal{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to access trade_tradingsignal: %w", err)
	}
	logrus.WithField("count", count).Info("[ReadOnlyDB] trade_tradingsignal reachable")

	ReadOnlyDB = db
	return nil
}
