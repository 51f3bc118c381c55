package model

import (
	"errors"
	"time"
)

var (
	// 在庫・引当可能・引当済のいずれかが負になる
	ErrInsufficientStock = errors.New("insufficient stock")
	// available + reserved が stock を超える（厳格モードのみ）
	ErrUnreconciled = errors.New("available + reserved exceeds stock")
)

// 商品ごとの在庫カウンタ（1商品1行）。
// 数量の更新はInventoryCoordinator経由だけで行う。
type StockCounter struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopID            int64     `gorm:"not null;index" json:"shop_id"`
	ProductID         int64     `gorm:"not null;uniqueIndex" json:"product_id"`
	StockQuantity     int64     `gorm:"not null;default:0" json:"stock_quantity"`
	AvailableQuantity int64     `gorm:"not null;default:0" json:"available_quantity"`
	ReservedQuantity  int64     `gorm:"not null;default:0" json:"reserved_quantity"`
	ReorderLevel      int64     `gorm:"not null;default:0" json:"reorder_level"`
	ReorderQuantity   int64     `gorm:"not null;default:0" json:"reorder_quantity"`
	Location          string    `gorm:"type:varchar(255)" json:"location"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null" json:"updated_at"`
}

type StockLevels struct {
	Stock     int64 `json:"stock"`
	Available int64 `json:"available"`
	Reserved  int64 `json:"reserved"`
}

func (c StockCounter) Levels() StockLevels {
	return StockLevels{
		Stock:     c.StockQuantity,
		Available: c.AvailableQuantity,
		Reserved:  c.ReservedQuantity,
	}
}

func (c *StockCounter) SetLevels(l StockLevels) {
	c.StockQuantity = l.Stock
	c.AvailableQuantity = l.Available
	c.ReservedQuantity = l.Reserved
}

// 1フィールド分の変更。Setがあれば絶対値で上書き、なければDeltaを加算。
type QuantityChange struct {
	Set   *int64
	Delta int64
}

func (q QuantityChange) apply(current int64) int64 {
	if q.Set != nil {
		return *q.Set
	}
	return current + q.Delta
}

// 在庫・引当可能・引当済それぞれの変更内容
type DeltaSpec struct {
	Stock     QuantityChange
	Available QuantityChange
	Reserved  QuantityChange
}

// 符号付き差分だけのDeltaSpec
func DeltaOf(stock, available, reserved int64) DeltaSpec {
	return DeltaSpec{
		Stock:     QuantityChange{Delta: stock},
		Available: QuantityChange{Delta: available},
		Reserved:  QuantityChange{Delta: reserved},
	}
}

func (l StockLevels) Apply(d DeltaSpec) StockLevels {
	return StockLevels{
		Stock:     d.Stock.apply(l.Stock),
		Available: d.Available.apply(l.Available),
		Reserved:  d.Reserved.apply(l.Reserved),
	}
}

// 変更後の値を検証する（副作用なし）
func ValidateLevels(l StockLevels, strict bool) error {
	if l.Stock < 0 || l.Available < 0 || l.Reserved < 0 {
		return ErrInsufficientStock
	}
	if strict && l.Available+l.Reserved > l.Stock {
		return ErrUnreconciled
	}
	return nil
}

// 数量以外の属性。nilは変更なし。
type CounterAttributes struct {
	ReorderLevel    *int64
	ReorderQuantity *int64
	Location        *string
}

func (a CounterAttributes) IsEmpty() bool {
	return a.ReorderLevel == nil && a.ReorderQuantity == nil && a.Location == nil
}

func (c *StockCounter) ApplyAttributes(a CounterAttributes) {
	if a.ReorderLevel != nil {
		c.ReorderLevel = *a.ReorderLevel
	}
	if a.ReorderQuantity != nil {
		c.ReorderQuantity = *a.ReorderQuantity
	}
	if a.Location != nil {
		c.Location = *a.Location
	}
}

// 発注点以下か（発注点0は未設定扱い）
func (c StockCounter) IsLowStock() bool {
	return c.ReorderLevel > 0 && c.StockQuantity <= c.ReorderLevel
}

// stock / reorder_level。小さいほど緊急。
func (c StockCounter) StockRatio() float64 {
	if c.ReorderLevel <= 0 {
		return 0
	}
	return float64(c.StockQuantity) / float64(c.ReorderLevel)
}
