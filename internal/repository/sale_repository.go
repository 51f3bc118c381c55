package repository

import (
	"context"
	"time"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
)

type SaleRepository interface {
	// 販売と明細を作成してIDを埋めて返す
	Create(ctx context.Context, s model.Sale, items []model.SaleItem) (model.Sale, []model.SaleItem, error)
	FindByID(ctx context.Context, shopID int64, id int64) (model.Sale, error)
	// 返金の二重実行を防ぐため行ロックを取る
	FindByIDForUpdate(ctx context.Context, shopID int64, id int64) (model.Sale, error)
	ListItems(ctx context.Context, saleID int64) ([]model.SaleItem, error)
	MarkRefunded(ctx context.Context, id int64, at time.Time) error
}
