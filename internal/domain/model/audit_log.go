package model

import "time"

type AuditAction string

const (
	//在庫カウンタの項目を直接上書きした操作
	AuditActionSetInventory AuditAction = "SET_INVENTORY"
	//販売を返金した操作
	AuditActionRefundSale AuditAction = "REFUND_SALE"
)

type AuditResourceType string

const (
	AuditResourceProduct AuditResourceType = "product"
	AuditResourceSale    AuditResourceType = "sale"
)

// 監査ログ（管理者操作ログ）。
// 数量の変化は台帳に残るので、ここには項目ごとのbefore/afterを残す。
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopID       int64             `gorm:"not null;index" json:"shop_id"`
	ActorUserID  int64             `gorm:"not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index" json:"resource_id"`
	Reason       string            `gorm:"type:text" json:"reason"`
	BeforeJSON   string            `gorm:"type:text" json:"before_json"`
	AfterJSON    string            `gorm:"type:text" json:"after_json"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"created_at"`
}
