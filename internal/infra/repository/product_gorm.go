package repository

import (
	"context"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// IDで商品を取得（論理削除済み・他ショップはnot found）
func (r *ProductGormRepository) FindByID(ctx context.Context, shopID int64, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND shop_id = ?", id, shopID).
		First(&p).Error
	if err != nil {
		return model.Product{}, translateError(err)
	}
	return p, nil
}

func (r *ProductGormRepository) ListByIDs(ctx context.Context, shopID int64, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	var items []model.Product
	err := r.db.WithContext(ctx).
		Where("shop_id = ? AND id IN ?", shopID, ids).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.Product{}, translateError(err)
	}
	return items, nil
}
