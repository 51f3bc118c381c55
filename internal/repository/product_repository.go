package repository

import (
	"context"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
)

// 商品の参照だけを約束（CRUDは別サービス）。
type ProductRepository interface {
	// 他ショップの商品はErrNotFound
	FindByID(ctx context.Context, shopID int64, id int64) (model.Product, error)
	ListByIDs(ctx context.Context, shopID int64, ids []int64) ([]model.Product, error)
}
