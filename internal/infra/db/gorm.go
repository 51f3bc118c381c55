package db

import (
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/config"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{}
	if !cfg.IsDev() {
		gcfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), gcfg)
	if err != nil {
		return nil, err
	}

	//コネクションプールはプロセス全体で共有
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	return db, nil
}

// Migrate はテーブルを作成・更新する。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Product{},
		&model.StockCounter{},
		&model.LedgerEntry{},
		&model.Sale{},
		&model.SaleItem{},
		&model.AuditLog{},
	)
}
