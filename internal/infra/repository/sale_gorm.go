package repository

import (
	"context"
	"time"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
	repo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleGormRepository struct {
	db *gorm.DB
}

func NewSaleGormRepository(db *gorm.DB) *SaleGormRepository {
	return &SaleGormRepository{db: db}
}

// 販売ヘッダ＋明細を作成
func (r *SaleGormRepository) Create(ctx context.Context, s model.Sale, items []model.SaleItem) (model.Sale, []model.SaleItem, error) {
	if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
		return model.Sale{}, nil, translateError(err)
	}

	if len(items) == 0 {
		return s, []model.SaleItem{}, nil
	}

	for i := range items {
		items[i].SaleID = s.ID
	}
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return model.Sale{}, nil, translateError(err)
	}
	return s, items, nil
}

func (r *SaleGormRepository) FindByID(ctx context.Context, shopID int64, id int64) (model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Where("id = ? AND shop_id = ?", id, shopID).
		First(&s).Error
	if err != nil {
		return model.Sale{}, translateError(err)
	}
	return s, nil
}

func (r *SaleGormRepository) FindByIDForUpdate(ctx context.Context, shopID int64, id int64) (model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND shop_id = ?", id, shopID).
		First(&s).Error
	if err != nil {
		return model.Sale{}, translateError(err)
	}
	return s, nil
}

func (r *SaleGormRepository) ListItems(ctx context.Context, saleID int64) ([]model.SaleItem, error) {
	var items []model.SaleItem
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.SaleItem{}, translateError(err)
	}
	return items, nil
}

func (r *SaleGormRepository) MarkRefunded(ctx context.Context, id int64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Sale{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.SaleStatusRefunded,
			"refunded_at": at,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
