package repository

import (
	"context"
	"time"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
	repo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/repository"

	"gorm.io/gorm"
)

type LedgerGormRepository struct {
	db *gorm.DB
}

func NewLedgerGormRepository(db *gorm.DB) *LedgerGormRepository {
	return &LedgerGormRepository{db: db}
}

// 台帳へ1件追記
func (r *LedgerGormRepository) Append(ctx context.Context, e model.LedgerEntry) (model.LedgerEntry, error) {
	if err := r.db.WithContext(ctx).Create(&e).Error; err != nil {
		return model.LedgerEntry{}, translateError(err)
	}
	return e, nil
}

func (r *LedgerGormRepository) History(ctx context.Context, shopID int64, productID int64, page int, pageSize int) ([]model.LedgerEntry, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Where("shop_id = ? AND product_id = ?", shopID, productID)

	if err := base.Count(&total).Error; err != nil {
		return []model.LedgerEntry{}, 0, translateError(err)
	}

	var items []model.LedgerEntry
	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Where("shop_id = ? AND product_id = ?", shopID, productID).
		Order("created_at desc").
		Order("id desc").
		Limit(pageSize).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.LedgerEntry{}, 0, translateError(err)
	}
	return items, total, nil
}

func (r *LedgerGormRepository) Aggregate(ctx context.Context, q repo.LedgerAggregateQuery) (repo.LedgerAggregate, error) {
	tx := r.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Where("shop_id = ? AND product_id = ?", q.ShopID, q.ProductID)

	if q.Kind != nil {
		tx = tx.Where("movement_kind = ?", *q.Kind)
	}
	if q.From != nil {
		tx = tx.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		tx = tx.Where("created_at < ?", *q.To)
	}

	var out repo.LedgerAggregate
	err := tx.Select("COUNT(*) AS count, COALESCE(SUM(quantity), 0) AS quantity_sum").
		Scan(&out).Error
	if err != nil {
		return repo.LedgerAggregate{}, translateError(err)
	}
	return out, nil
}

// 販売の台帳行を、返金されていない販売とその明細に結合して日別に集計する。
// 台帳のquantityは出庫なので負。符号を反転して数量にする。
const dailySalesSQL = `
SELECT to_char(le.created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
       COALESCE(SUM(-le.quantity), 0) AS quantity,
       COALESCE(SUM(-le.quantity * si.unit_price), 0) AS revenue
FROM ledger_entries le
JOIN sales s ON s.id = le.reference_id AND s.shop_id = le.shop_id
JOIN sale_items si ON si.sale_id = s.id AND si.product_id = le.product_id
WHERE le.shop_id = ?
  AND le.product_id = ?
  AND le.movement_kind = ?
  AND le.reference_type = ?
  AND s.status <> ?
  AND le.created_at >= ?
  AND le.created_at < ?
GROUP BY day
ORDER BY day ASC`

func (r *LedgerGormRepository) DailySales(ctx context.Context, shopID int64, productID int64, from time.Time, to time.Time) ([]repo.DailySales, error) {
	var rows []repo.DailySales
	err := r.db.WithContext(ctx).
		Raw(dailySalesSQL,
			shopID,
			productID,
			model.MovementSale,
			model.ReferenceSale,
			model.SaleStatusRefunded,
			from,
			to,
		).
		Scan(&rows).Error
	if err != nil {
		return []repo.DailySales{}, translateError(err)
	}
	return rows, nil
}
