package model

import (
	"time"

	"gorm.io/gorm"
)

// 在庫エンジンからはIDと所属ショップだけを見る
type Product struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopID    int64          `gorm:"not null;index" json:"shop_id"`
	SKU       string         `gorm:"type:varchar(64);not null;index" json:"sku"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Price     int64          `gorm:"not null" json:"price"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// 一覧表示用の要約
type ProductSummary struct {
	ID   int64  `json:"id"`
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

func (p Product) Summary() ProductSummary {
	return ProductSummary{ID: p.ID, SKU: p.SKU, Name: p.Name}
}
