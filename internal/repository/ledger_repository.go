package repository

import (
	"context"
	"time"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
)

// 集計条件。nilは絞り込みなし。
type LedgerAggregateQuery struct {
	ShopID    int64
	ProductID int64
	Kind      *model.MovementKind
	From      *time.Time
	To        *time.Time
}

type LedgerAggregate struct {
	Count       int64
	QuantitySum int64
}

// 日別の販売（返金済みは除く）
type DailySales struct {
	Day      string `json:"date"`
	Quantity int64  `json:"quantity"`
	Revenue  int64  `json:"revenue"`
}

// 台帳は追記と参照だけ。更新・削除の手段は用意しない。
type LedgerRepository interface {
	Append(ctx context.Context, e model.LedgerEntry) (model.LedgerEntry, error)

	// 新しい順（created_at DESC, id DESC）
	History(ctx context.Context, shopID int64, productID int64, page int, pageSize int) ([]model.LedgerEntry, int64, error)

	Aggregate(ctx context.Context, q LedgerAggregateQuery) (LedgerAggregate, error)

	// [from, to) の販売をUTC日付ごとに集計、日付昇順
	DailySales(ctx context.Context, shopID int64, productID int64, from time.Time, to time.Time) ([]DailySales, error)
}
