package model

import "time"

type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusRefunded  SaleStatus = "refunded"
)

type Sale struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopID      int64      `gorm:"not null;index" json:"shop_id"`
	CashierID   int64      `gorm:"not null;index" json:"cashier_id"`
	Status      SaleStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalAmount int64      `gorm:"not null" json:"total_amount"`
	CreatedAt   time.Time  `gorm:"not null;index" json:"created_at"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`
}

// 販売時点の商品名・単価を保存する
type SaleItem struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SaleID              int64     `gorm:"not null;index" json:"sale_id"`
	ProductID           int64     `gorm:"not null;index" json:"product_id"`
	ProductNameSnapshot string    `gorm:"type:varchar(255);not null" json:"product_name_snapshot"`
	UnitPrice           int64     `gorm:"not null" json:"unit_price"`
	Quantity            int64     `gorm:"not null" json:"quantity"`
	CreatedAt           time.Time `gorm:"not null" json:"created_at"`
}
