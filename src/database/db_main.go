package database

import (
	"fmt"
	"time"

	"futuresexecutor/src/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MainDB is the read/write connection holding the cycle journal, the
// exception log and the backfilled klines.
var MainDB *gorm.DB

// InitMainDB opens MainDB and migrates its schema. Call it once at startup.
func InitMainDB() error {
	config := GetConfig()
	db, err := gorm.Open(postgres.Open(config.DatabaseURLMain),
		&gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to connect to MainDB: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from MainDB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	if err := Migrate(db); err != nil {
		return err
	}

	// Assign to the global variable only after a successful migration.
	MainDB = db
	logrus.Info("[database] MainDB connection established and migrated")
	return nil
}

// Migrate runs AutoMigrate for every model of the write-side schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.CycleRecord{},
		&model.Exception{},
		&model.Kline1m{},
		&model.Kline1h{},
	); err != nil {
		return fmt.Errorf("failed to run migrations on MainDB: %w", err)
	}
	return nil
}
