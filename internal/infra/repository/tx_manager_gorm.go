package repository

import (
	"context"
	"fmt"
	"time"

	repo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	products  repo.ProductRepository
	counters  repo.StockCounterRepository
	ledger    repo.LedgerRepository
	sales     repo.SaleRepository
	auditLogs repo.AuditLogRepository
}

func (r *txReposGorm) Products() repo.ProductRepository      { return r.products }
func (r *txReposGorm) Counters() repo.StockCounterRepository { return r.counters }
func (r *txReposGorm) Ledger() repo.LedgerRepository         { return r.ledger }
func (r *txReposGorm) Sales() repo.SaleRepository            { return r.sales }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository    { return r.auditLogs }

// dbに束ねたRepository一式。Tx外では参照用に使う
func NewTxRepos(db *gorm.DB) repo.TxRepos {
	return &txReposGorm{
		products:  NewProductGormRepository(db),
		counters:  NewStockCounterGormRepository(db),
		ledger:    NewLedgerGormRepository(db),
		sales:     NewSaleGormRepository(db),
		auditLogs: NewAuditLogGormRepository(db),
	}
}

type TxManagerGorm struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// lockTimeoutは行ロック待ちの上限（0なら無制限）
func NewTxManagerGorm(db *gorm.DB, lockTimeout time.Duration) *TxManagerGorm {
	return &TxManagerGorm{db: db, lockTimeout: lockTimeout}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//SET LOCALはこのTxの間だけ有効
		if tm.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", tm.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}

		//repoはtxを持ったDBで作り直す
		return fn(NewTxRepos(tx))
	})
	//commit失敗もここで分類する
	return translateError(err)
}
