package usecase

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
	repo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/repository"
)

const (
	defaultStatsDays = 30
	maxStatsDays     = 365
	maxPageSize      = 100
)

// 参照専用。ロックは取らずコミット済みの値だけを読む。
type InventoryViewUsecase struct {
	products repo.ProductRepository
	counters repo.StockCounterRepository
	ledger   repo.LedgerRepository
	clock    Clock
}

// DI
func NewInventoryViewUsecase(
	products repo.ProductRepository,
	counters repo.StockCounterRepository,
	ledger repo.LedgerRepository,
	clock Clock,
) *InventoryViewUsecase {
	if clock == nil {
		clock = systemClock{}
	}
	return &InventoryViewUsecase{
		products: products,
		counters: counters,
		ledger:   ledger,
		clock:    clock,
	}
}

type HistoryOutput struct {
	Items    []model.LedgerEntry `json:"items"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
	Pages    int64               `json:"pages"`
}

func (u *InventoryViewUsecase) GetHistory(ctx context.Context, shopID int64, productID int64, page int, pageSize int) (HistoryOutput, error) {
	if page < 1 {
		return HistoryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return HistoryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page_size")
	}
	if err := u.checkProduct(ctx, shopID, productID); err != nil {
		return HistoryOutput{}, err
	}

	items, total, err := u.ledger.History(ctx, shopID, productID, page, pageSize)
	if err != nil {
		return HistoryOutput{}, translateError(err)
	}

	pages := (total + int64(pageSize) - 1) / int64(pageSize)
	return HistoryOutput{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    pages,
	}, nil
}

type LowStockItem struct {
	Product    model.ProductSummary `json:"product"`
	Inventory  model.StockCounter   `json:"inventory"`
	StockRatio float64              `json:"stock_ratio"`
}

// 緊急度の高い順（stock/reorder_level 昇順、同率は商品ID順）
func (u *InventoryViewUsecase) GetLowStock(ctx context.Context, shopID int64) ([]LowStockItem, error) {
	if shopID <= 0 {
		return nil, NewCodedError(http.StatusBadRequest, CodeShopIDRequired, "shop_id required")
	}

	counters, err := u.counters.ListLowStock(ctx, shopID)
	if err != nil {
		return nil, translateError(err)
	}
	if len(counters) == 0 {
		return []LowStockItem{}, nil
	}

	ids := make([]int64, 0, len(counters))
	for _, c := range counters {
		ids = append(ids, c.ProductID)
	}
	products, err := u.products.ListByIDs(ctx, shopID, ids)
	if err != nil {
		return nil, translateError(err)
	}
	byID := make(map[int64]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]LowStockItem, 0, len(counters))
	for _, c := range counters {
		//削除済みの商品は出さない
		p, ok := byID[c.ProductID]
		if !ok {
			continue
		}
		items = append(items, LowStockItem{
			Product:    p.Summary(),
			Inventory:  c,
			StockRatio: c.StockRatio(),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].StockRatio != items[j].StockRatio {
			return items[i].StockRatio < items[j].StockRatio
		}
		return items[i].Product.ID < items[j].Product.ID
	})
	return items, nil
}

type SalesStatsOutput struct {
	ProductID        int64             `json:"product_id"`
	Days             int               `json:"days"`
	From             time.Time         `json:"from"`
	To               time.Time         `json:"to"`
	TotalQuantity    int64             `json:"total_quantity"`
	TotalRevenue     int64             `json:"total_revenue"`
	SaleMovements    int64             `json:"sale_movements"`
	ReturnedQuantity int64             `json:"returned_quantity"`
	DailySales       []repo.DailySales `json:"daily_sales"`
}

// 直近days日（今日を含む、UTC日付）の販売実績。返金済みの販売は含めない。
func (u *InventoryViewUsecase) GetSalesStats(ctx context.Context, shopID int64, productID int64, days int) (SalesStatsOutput, error) {
	if days == 0 {
		days = defaultStatsDays
	}
	if days < 1 || days > maxStatsDays {
		return SalesStatsOutput{}, NewHTTPError(http.StatusBadRequest, "days must be between 1 and 365")
	}
	if err := u.checkProduct(ctx, shopID, productID); err != nil {
		return SalesStatsOutput{}, err
	}

	now := u.clock.Now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -days)

	daily, err := u.ledger.DailySales(ctx, shopID, productID, from, to)
	if err != nil {
		return SalesStatsOutput{}, translateError(err)
	}

	out := SalesStatsOutput{
		ProductID:  productID,
		Days:       days,
		From:       from,
		To:         to,
		DailySales: daily,
	}
	if out.DailySales == nil {
		out.DailySales = []repo.DailySales{}
	}
	for _, d := range daily {
		out.TotalQuantity += d.Quantity
		out.TotalRevenue += d.Revenue
	}

	saleKind := model.MovementSale
	sales, err := u.ledger.Aggregate(ctx, repo.LedgerAggregateQuery{
		ShopID: shopID, ProductID: productID, Kind: &saleKind, From: &from, To: &to,
	})
	if err != nil {
		return SalesStatsOutput{}, translateError(err)
	}
	out.SaleMovements = sales.Count

	returnKind := model.MovementReturn
	returns, err := u.ledger.Aggregate(ctx, repo.LedgerAggregateQuery{
		ShopID: shopID, ProductID: productID, Kind: &returnKind, From: &from, To: &to,
	})
	if err != nil {
		return SalesStatsOutput{}, translateError(err)
	}
	out.ReturnedQuantity = returns.QuantitySum

	return out, nil
}

func (u *InventoryViewUsecase) checkProduct(ctx context.Context, shopID int64, productID int64) error {
	if shopID <= 0 {
		return NewCodedError(http.StatusBadRequest, CodeShopIDRequired, "shop_id required")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	return ensureProduct(ctx, u.products, shopID, productID)
}
