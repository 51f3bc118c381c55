package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
	repo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/repository"
)

const maxNoteLength = 500

type InventoryUsecase struct {
	coord    *InventoryCoordinator
	products repo.ProductRepository
	counters repo.StockCounterRepository
}

// DI
func NewInventoryUsecase(
	coord *InventoryCoordinator,
	products repo.ProductRepository,
	counters repo.StockCounterRepository,
) *InventoryUsecase {
	return &InventoryUsecase{
		coord:    coord,
		products: products,
		counters: counters,
	}
}

// 変更後のカウンタと、書かれた台帳行（なければnil）
type MutationOutput struct {
	Inventory   model.StockCounter `json:"inventory"`
	Transaction *model.LedgerEntry `json:"transaction,omitempty"`
}

func toMutationOutput(res ChangeResult) MutationOutput {
	return MutationOutput{Inventory: res.Counter, Transaction: res.Entry}
}

// PUT /inventory/:product_idの入力。nilは変更しない。
type SetInventoryInput struct {
	StockQuantity     *int64
	AvailableQuantity *int64
	ReservedQuantity  *int64
	ReorderLevel      *int64
	ReorderQuantity   *int64
	Location          *string
	Reason            string
}

// 在庫数を符号付きで増減（available も同じだけ動く）
func (u *InventoryUsecase) AdjustStock(ctx context.Context, shopID int64, actorID int64, productID int64, quantity int64, note string) (MutationOutput, error) {
	if quantity == 0 {
		return MutationOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must not be 0")
	}
	note, err := u.precheck(ctx, shopID, productID, note)
	if err != nil {
		return MutationOutput{}, err
	}

	res, err := u.coord.ApplyChange(ctx, StockChangeRequest{
		ShopID:    shopID,
		ProductID: productID,
		Change:    model.DeltaOf(quantity, quantity, 0),
		Kind:      model.AdjustmentKind(quantity),
		Note:      note,
		ActorID:   &actorID,
	})
	if err != nil {
		return MutationOutput{}, err
	}
	return toMutationOutput(res), nil
}

// 項目を絶対値で上書きする。availableは自動で合わせない。
func (u *InventoryUsecase) SetInventoryFields(ctx context.Context, shopID int64, actorID int64, productID int64, in SetInventoryInput) (MutationOutput, error) {
	if err := validateSetInput(in); err != nil {
		return MutationOutput{}, err
	}
	reason, err := u.precheck(ctx, shopID, productID, in.Reason)
	if err != nil {
		return MutationOutput{}, err
	}

	req := StockChangeRequest{
		ShopID:    shopID,
		ProductID: productID,
		Change: model.DeltaSpec{
			Stock:     model.QuantityChange{Set: in.StockQuantity},
			Available: model.QuantityChange{Set: in.AvailableQuantity},
			Reserved:  model.QuantityChange{Set: in.ReservedQuantity},
		},
		Attributes: model.CounterAttributes{
			ReorderLevel:    in.ReorderLevel,
			ReorderQuantity: in.ReorderQuantity,
			Location:        in.Location,
		},
		Kind:    model.MovementAdjustment,
		Note:    reason,
		ActorID: &actorID,
	}

	var res ChangeResult
	err = u.coord.WithinProducts(ctx, shopID, []int64{productID}, func(r repo.TxRepos) error {
		var err error
		res, err = u.coord.ApplyInTx(ctx, r, req)
		if err != nil {
			return err
		}

		//監査ログ（項目ごとのbefore/after）
		beforeJSON, err := json.Marshal(snapshotOf(res.Before))
		if err != nil {
			return err
		}
		afterJSON, err := json.Marshal(snapshotOf(res.Counter))
		if err != nil {
			return err
		}
		return r.AuditLogs().Create(ctx, model.AuditLog{
			ShopID:       shopID,
			ActorUserID:  actorID,
			Action:       model.AuditActionSetInventory,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			Reason:       reason,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
			CreatedAt:    u.coord.clock.Now(),
		})
	})
	if err != nil {
		return MutationOutput{}, err
	}
	return toMutationOutput(res), nil
}

// 入荷（発注番号は任意）
func (u *InventoryUsecase) ReceiveStock(ctx context.Context, shopID int64, actorID int64, productID int64, quantity int64, purchaseOrderID *int64, note string) (MutationOutput, error) {
	if quantity <= 0 {
		return MutationOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be > 0")
	}
	note, err := u.precheck(ctx, shopID, productID, note)
	if err != nil {
		return MutationOutput{}, err
	}

	req := StockChangeRequest{
		ShopID:    shopID,
		ProductID: productID,
		Change:    model.DeltaOf(quantity, quantity, 0),
		Kind:      model.MovementPurchase,
		Note:      note,
		ActorID:   &actorID,
	}
	if purchaseOrderID != nil {
		req.ReferenceType = model.ReferencePurchaseOrder
		req.ReferenceID = purchaseOrderID
	}

	res, err := u.coord.ApplyChange(ctx, req)
	if err != nil {
		return MutationOutput{}, err
	}
	return toMutationOutput(res), nil
}

// available -> reserved（在庫数は変わらないので台帳なし）
func (u *InventoryUsecase) ReserveStock(ctx context.Context, shopID int64, actorID int64, productID int64, quantity int64, orderID int64) (MutationOutput, error) {
	return u.orderMovement(ctx, shopID, actorID, productID, quantity, orderID, model.DeltaOf(0, -quantity, quantity), "")
}

// reserved -> available
func (u *InventoryUsecase) ReleaseReservation(ctx context.Context, shopID int64, actorID int64, productID int64, quantity int64, orderID int64) (MutationOutput, error) {
	return u.orderMovement(ctx, shopID, actorID, productID, quantity, orderID, model.DeltaOf(0, quantity, -quantity), "")
}

// 引当分を出荷（reservedとstockが減る）
func (u *InventoryUsecase) FulfillReservation(ctx context.Context, shopID int64, actorID int64, productID int64, quantity int64, orderID int64) (MutationOutput, error) {
	return u.orderMovement(ctx, shopID, actorID, productID, quantity, orderID, model.DeltaOf(-quantity, 0, -quantity), model.MovementDelivery)
}

func (u *InventoryUsecase) orderMovement(ctx context.Context, shopID int64, actorID int64, productID int64, quantity int64, orderID int64, change model.DeltaSpec, kind model.MovementKind) (MutationOutput, error) {
	if quantity <= 0 {
		return MutationOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be > 0")
	}
	if orderID < 0 {
		return MutationOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}
	if _, err := u.precheck(ctx, shopID, productID, ""); err != nil {
		return MutationOutput{}, err
	}

	req := StockChangeRequest{
		ShopID:    shopID,
		ProductID: productID,
		Change:    change,
		Kind:      kind,
		ActorID:   &actorID,
	}
	if orderID > 0 {
		req.ReferenceType = model.ReferenceOrder
		req.ReferenceID = &orderID
	}

	res, err := u.coord.ApplyChange(ctx, req)
	if err != nil {
		return MutationOutput{}, err
	}
	return toMutationOutput(res), nil
}

// まだ一度も触られていない商品はゼロのカウンタを返す（作成はしない）
func (u *InventoryUsecase) GetInventory(ctx context.Context, shopID int64, productID int64) (model.StockCounter, error) {
	if _, err := u.precheck(ctx, shopID, productID, ""); err != nil {
		return model.StockCounter{}, err
	}

	c, err := u.counters.FindByProductID(ctx, shopID, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.StockCounter{ShopID: shopID, ProductID: productID}, nil
	}
	if err != nil {
		return model.StockCounter{}, translateError(err)
	}
	return c, nil
}

// ロックを取る前の入力チェックと商品の存在確認
func (u *InventoryUsecase) precheck(ctx context.Context, shopID int64, productID int64, note string) (string, error) {
	if shopID <= 0 {
		return "", NewCodedError(http.StatusBadRequest, CodeShopIDRequired, "shop_id required")
	}
	if productID <= 0 {
		return "", NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	note = strings.TrimSpace(note)
	if len(note) > maxNoteLength {
		return "", NewHTTPError(http.StatusBadRequest, "note too long")
	}
	if err := ensureProduct(ctx, u.products, shopID, productID); err != nil {
		return "", err
	}
	return note, nil
}

func ensureProduct(ctx context.Context, products repo.ProductRepository, shopID int64, productID int64) error {
	_, err := products.FindByID(ctx, shopID, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewCodedError(http.StatusNotFound, CodeProductNotFound, "product not found")
	}
	if err != nil {
		return translateError(err)
	}
	return nil
}

func validateSetInput(in SetInventoryInput) error {
	fields := []struct {
		name string
		v    *int64
	}{
		{"stock_quantity", in.StockQuantity},
		{"available_quantity", in.AvailableQuantity},
		{"reserved_quantity", in.ReservedQuantity},
		{"reorder_level", in.ReorderLevel},
		{"reorder_quantity", in.ReorderQuantity},
	}
	empty := in.Location == nil
	for _, f := range fields {
		if f.v == nil {
			continue
		}
		empty = false
		if *f.v < 0 {
			return NewHTTPError(http.StatusBadRequest, f.name+" must be >= 0")
		}
	}
	if empty {
		return NewHTTPError(http.StatusBadRequest, "no fields to update")
	}
	if in.Location != nil && len(*in.Location) > 255 {
		return NewHTTPError(http.StatusBadRequest, "location too long")
	}
	return nil
}

// 監査ログに残すカウンタの項目
type inventorySnapshot struct {
	StockQuantity     int64  `json:"stock_quantity"`
	AvailableQuantity int64  `json:"available_quantity"`
	ReservedQuantity  int64  `json:"reserved_quantity"`
	ReorderLevel      int64  `json:"reorder_level"`
	ReorderQuantity   int64  `json:"reorder_quantity"`
	Location          string `json:"location"`
}

func snapshotOf(c model.StockCounter) inventorySnapshot {
	return inventorySnapshot{
		StockQuantity:     c.StockQuantity,
		AvailableQuantity: c.AvailableQuantity,
		ReservedQuantity:  c.ReservedQuantity,
		ReorderLevel:      c.ReorderLevel,
		ReorderQuantity:   c.ReorderQuantity,
		Location:          c.Location,
	}
}
