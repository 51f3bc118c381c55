package model

import "time"

// 在庫移動の種類
type MovementKind string

const (
	MovementPurchase      MovementKind = "purchase"
	MovementSale          MovementKind = "sale"
	MovementAdjustmentIn  MovementKind = "adjustment_in"
	MovementAdjustmentOut MovementKind = "adjustment_out"
	MovementAdjustment    MovementKind = "adjustment"
	MovementReturn        MovementKind = "return"
	MovementTransfer      MovementKind = "transfer"
	MovementDelivery      MovementKind = "delivery"
)

func (k MovementKind) Valid() bool {
	switch k {
	case MovementPurchase, MovementSale, MovementAdjustmentIn, MovementAdjustmentOut,
		MovementAdjustment, MovementReturn, MovementTransfer, MovementDelivery:
		return true
	}
	return false
}

// 手動調整の種類を数量の符号で決める
func AdjustmentKind(quantity int64) MovementKind {
	if quantity < 0 {
		return MovementAdjustmentOut
	}
	return MovementAdjustmentIn
}

// 移動のきっかけになった業務イベントの種類
type ReferenceType string

const (
	ReferenceSale          ReferenceType = "sale"
	ReferenceOrder         ReferenceType = "order"
	ReferencePurchaseOrder ReferenceType = "purchase_order"
)

// 在庫移動の台帳（追記のみ。更新・削除しない）。
// Quantityはstock_quantityに適用した符号付き差分。
type LedgerEntry struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopID        int64         `gorm:"not null;index" json:"shop_id"`
	ProductID     int64         `gorm:"not null;index:idx_ledger_product_created,priority:1" json:"product_id"`
	Quantity      int64         `gorm:"not null" json:"quantity"`
	MovementKind  MovementKind  `gorm:"type:varchar(32);not null;index" json:"movement_kind"`
	ReferenceType ReferenceType `gorm:"type:varchar(32)" json:"reference_type,omitempty"`
	ReferenceID   *int64        `gorm:"index" json:"reference_id,omitempty"`
	Note          string        `gorm:"type:text" json:"note"`
	ActorID       *int64        `gorm:"index" json:"actor_id,omitempty"`
	StockBefore   int64         `gorm:"not null" json:"stock_before"`
	StockAfter    int64         `gorm:"not null" json:"stock_after"`
	CreatedAt     time.Time     `gorm:"not null;index:idx_ledger_product_created,priority:2" json:"created_at"`
}
