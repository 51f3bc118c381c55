package repository

import (
	"context"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
)

// 在庫カウンタの永続化の約束。
type StockCounterRepository interface {
	// カウンタを行ロック付きで取得、なければ数量0で作成する。
	// created=trueは今回作成したことを表す。
	// Tx内でのみ呼ぶこと（ロックはTx終了まで保持）。
	GetOrCreateForUpdate(ctx context.Context, shopID int64, productID int64) (model.StockCounter, bool, error)

	// ロックなしの取得（コミット済みの値）
	FindByProductID(ctx context.Context, shopID int64, productID int64) (model.StockCounter, error)

	// 数量と属性をまとめて保存
	Save(ctx context.Context, c model.StockCounter) error

	// reorder_level > 0 かつ stock <= reorder_level
	ListLowStock(ctx context.Context, shopID int64) ([]model.StockCounter, error)
}
