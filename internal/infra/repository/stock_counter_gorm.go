package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
	repo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockCounterGormRepository struct {
	db *gorm.DB
}

func NewStockCounterGormRepository(db *gorm.DB) *StockCounterGormRepository {
	return &StockCounterGormRepository{db: db}
}

// SELECT ... FOR UPDATE で取得、なければINSERTしてからロックを取り直す
func (r *StockCounterGormRepository) GetOrCreateForUpdate(ctx context.Context, shopID int64, productID int64) (model.StockCounter, bool, error) {
	c, err := r.lockByProductID(ctx, productID)
	if err == nil {
		if c.ShopID != shopID {
			return model.StockCounter{}, false, repo.ErrNotFound
		}
		return c, false, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return model.StockCounter{}, false, err
	}

	//初回参照：ショップ必須
	if shopID <= 0 {
		return model.StockCounter{}, false, repo.ErrShopIDRequired
	}

	now := time.Now()
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoNothing: true,
		}).
		Create(&model.StockCounter{
			ShopID:    shopID,
			ProductID: productID,
			CreatedAt: now,
			UpdatedAt: now,
		})
	if res.Error != nil {
		return model.StockCounter{}, false, translateError(res.Error)
	}
	//同時作成に負けたときは0件
	created := res.RowsAffected == 1

	c, err = r.lockByProductID(ctx, productID)
	if err != nil {
		return model.StockCounter{}, false, err
	}
	if c.ShopID != shopID {
		return model.StockCounter{}, false, repo.ErrNotFound
	}
	return c, created, nil
}

func (r *StockCounterGormRepository) lockByProductID(ctx context.Context, productID int64) (model.StockCounter, error) {
	var c model.StockCounter
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		First(&c).Error
	if err != nil {
		return model.StockCounter{}, translateError(err)
	}
	return c, nil
}

func (r *StockCounterGormRepository) FindByProductID(ctx context.Context, shopID int64, productID int64) (model.StockCounter, error) {
	var c model.StockCounter
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND shop_id = ?", productID, shopID).
		First(&c).Error
	if err != nil {
		return model.StockCounter{}, translateError(err)
	}
	return c, nil
}

func (r *StockCounterGormRepository) Save(ctx context.Context, c model.StockCounter) error {
	res := r.db.WithContext(ctx).
		Model(&model.StockCounter{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"stock_quantity":     c.StockQuantity,
			"available_quantity": c.AvailableQuantity,
			"reserved_quantity":  c.ReservedQuantity,
			"reorder_level":      c.ReorderLevel,
			"reorder_quantity":   c.ReorderQuantity,
			"location":           c.Location,
			"updated_at":         c.UpdatedAt,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 緊急度（stock/reorder_level）の小さい順、同率は商品ID順
func (r *StockCounterGormRepository) ListLowStock(ctx context.Context, shopID int64) ([]model.StockCounter, error) {
	var items []model.StockCounter
	err := r.db.WithContext(ctx).
		Where("shop_id = ? AND reorder_level > 0 AND stock_quantity <= reorder_level", shopID).
		Order("CAST(stock_quantity AS DOUBLE PRECISION) / reorder_level ASC").
		Order("product_id ASC").
		Find(&items).Error
	if err != nil {
		return []model.StockCounter{}, translateError(err)
	}
	return items, nil
}
