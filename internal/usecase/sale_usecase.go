package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
	repo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/repository"
)

const maxSaleLines = 100

type SaleUsecase struct {
	coord *InventoryCoordinator
	sales repo.SaleRepository
}

// DI
func NewSaleUsecase(coord *InventoryCoordinator, sales repo.SaleRepository) *SaleUsecase {
	return &SaleUsecase{coord: coord, sales: sales}
}

type SaleLineInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type SaleOutput struct {
	Sale  model.Sale       `json:"sale"`
	Items []model.SaleItem `json:"items"`
}

// 販売の確定。明細ごとにsaleの在庫移動を書き、1つでも不足なら全体を取り消す。
func (u *SaleUsecase) CompleteSale(ctx context.Context, shopID int64, cashierID int64, lines []SaleLineInput) (SaleOutput, error) {
	if shopID <= 0 {
		return SaleOutput{}, NewCodedError(http.StatusBadRequest, CodeShopIDRequired, "shop_id required")
	}
	if cashierID <= 0 {
		return SaleOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if len(lines) == 0 {
		return SaleOutput{}, NewHTTPError(http.StatusBadRequest, "items required")
	}
	if len(lines) > maxSaleLines {
		return SaleOutput{}, NewHTTPError(http.StatusBadRequest, "too many items")
	}

	//同じ商品の行はまとめる（最初に出た順を保つ）
	qty := map[int64]int64{}
	order := make([]int64, 0, len(lines))
	for _, l := range lines {
		if l.ProductID <= 0 {
			return SaleOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
		}
		if l.Quantity <= 0 {
			return SaleOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be > 0")
		}
		if _, ok := qty[l.ProductID]; !ok {
			order = append(order, l.ProductID)
		}
		qty[l.ProductID] += l.Quantity
	}

	var out SaleOutput
	err := u.coord.WithinProducts(ctx, shopID, order, func(r repo.TxRepos) error {
		products, err := r.Products().ListByIDs(ctx, shopID, order)
		if err != nil {
			return err
		}
		byID := make(map[int64]model.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		now := u.coord.clock.Now()
		items := make([]model.SaleItem, 0, len(order))
		var total int64
		for _, pid := range order {
			p, ok := byID[pid]
			if !ok || !p.IsActive {
				return NewCodedError(http.StatusNotFound, CodeProductNotFound, fmt.Sprintf("product %d not found", pid))
			}
			items = append(items, model.SaleItem{
				ProductID:           pid,
				ProductNameSnapshot: p.Name,
				UnitPrice:           p.Price,
				Quantity:            qty[pid],
				CreatedAt:           now,
			})
			total += p.Price * qty[pid]
		}

		sale, created, err := r.Sales().Create(ctx, model.Sale{
			ShopID:      shopID,
			CashierID:   cashierID,
			Status:      model.SaleStatusCompleted,
			TotalAmount: total,
			CreatedAt:   now,
		}, items)
		if err != nil {
			return err
		}

		for _, it := range created {
			if _, err := u.coord.ApplyInTx(ctx, r, StockChangeRequest{
				ShopID:        shopID,
				ProductID:     it.ProductID,
				Change:        model.DeltaOf(-it.Quantity, -it.Quantity, 0),
				Kind:          model.MovementSale,
				ReferenceType: model.ReferenceSale,
				ReferenceID:   &sale.ID,
				Note:          fmt.Sprintf("sale #%d", sale.ID),
				ActorID:       &cashierID,
			}); err != nil {
				return err
			}
		}

		out = SaleOutput{Sale: sale, Items: created}
		return nil
	})
	if err != nil {
		return SaleOutput{}, err
	}
	return out, nil
}

// 返金。販売をrefundedにして明細ぶんの在庫を戻す。
func (u *SaleUsecase) RefundSale(ctx context.Context, shopID int64, actorID int64, saleID int64, reason string) (SaleOutput, error) {
	if shopID <= 0 {
		return SaleOutput{}, NewCodedError(http.StatusBadRequest, CodeShopIDRequired, "shop_id required")
	}
	if actorID <= 0 {
		return SaleOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if saleID <= 0 {
		return SaleOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sale id")
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > maxNoteLength {
		return SaleOutput{}, NewHTTPError(http.StatusBadRequest, "reason too long")
	}

	//ロック順を決めるために明細の商品を先に読む（明細は作成後に変わらない）
	if _, err := u.sales.FindByID(ctx, shopID, saleID); err != nil {
		return SaleOutput{}, saleLookupError(err)
	}
	items, err := u.sales.ListItems(ctx, saleID)
	if err != nil {
		return SaleOutput{}, translateError(err)
	}
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}

	var out SaleOutput
	err = u.coord.WithinProducts(ctx, shopID, ids, func(r repo.TxRepos) error {
		sale, err := r.Sales().FindByIDForUpdate(ctx, shopID, saleID)
		if err != nil {
			return saleLookupError(err)
		}
		if sale.Status != model.SaleStatusCompleted {
			return NewCodedError(http.StatusConflict, CodeInvalidState, "sale already refunded")
		}

		now := u.coord.clock.Now()
		if err := r.Sales().MarkRefunded(ctx, sale.ID, now); err != nil {
			return err
		}

		for _, it := range items {
			note := fmt.Sprintf("refund of sale #%d", sale.ID)
			if reason != "" {
				note += ": " + reason
			}
			if _, err := u.coord.ApplyInTx(ctx, r, StockChangeRequest{
				ShopID:        shopID,
				ProductID:     it.ProductID,
				Change:        model.DeltaOf(it.Quantity, it.Quantity, 0),
				Kind:          model.MovementReturn,
				ReferenceType: model.ReferenceSale,
				ReferenceID:   &sale.ID,
				Note:          note,
				ActorID:       &actorID,
			}); err != nil {
				return err
			}
		}

		beforeJSON, _ := json.Marshal(map[string]any{"status": sale.Status})
		afterJSON, _ := json.Marshal(map[string]any{"status": model.SaleStatusRefunded, "refunded_at": now})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ShopID:       shopID,
			ActorUserID:  actorID,
			Action:       model.AuditActionRefundSale,
			ResourceType: model.AuditResourceSale,
			ResourceID:   sale.ID,
			Reason:       reason,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
			CreatedAt:    now,
		}); err != nil {
			return err
		}

		sale.Status = model.SaleStatusRefunded
		sale.RefundedAt = &now
		out = SaleOutput{Sale: sale, Items: items}
		return nil
	})
	if err != nil {
		return SaleOutput{}, err
	}
	return out, nil
}

func (u *SaleUsecase) GetSale(ctx context.Context, shopID int64, saleID int64) (SaleOutput, error) {
	if shopID <= 0 {
		return SaleOutput{}, NewCodedError(http.StatusBadRequest, CodeShopIDRequired, "shop_id required")
	}
	if saleID <= 0 {
		return SaleOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sale id")
	}

	sale, err := u.sales.FindByID(ctx, shopID, saleID)
	if err != nil {
		return SaleOutput{}, saleLookupError(err)
	}
	items, err := u.sales.ListItems(ctx, saleID)
	if err != nil {
		return SaleOutput{}, translateError(err)
	}
	return SaleOutput{Sale: sale, Items: items}, nil
}

func saleLookupError(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return NewCodedError(http.StatusNotFound, CodeNotFound, "sale not found")
	}
	return translateError(err)
}
