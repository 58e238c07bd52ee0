package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== 变更类型 ====================

const (
	HistoryKindPriceChange     = "price_change"
	HistoryKindStockChange     = "stock_change"
	HistoryKindStatusChange    = "status_change"
	HistoryKindContentChange   = "content_change"
	HistoryKindVariantChange   = "variant_change"
	HistoryKindItemCreated     = "item_created"
	HistoryKindItemDeleted     = "item_deleted"
	HistoryKindPolicyViolation = "policy_violation"
)

// ==================== 严重级别 ====================

const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// ==================== 来源 ====================

const (
	HistorySourceSync    = "sync"
	HistorySourceWebhook = "webhook"
)

// HistoryLog 变更历史（追加写，事实字段不可变）
// 仅 IsRead / ReadAt 允许更新
type HistoryLog struct {
	BaseModel
	ShopID  int64 `gorm:"index:idx_shop_detected;not null"`
	ItemID  int64 `gorm:"index;not null"` // Shopee item_id
	ModelID int64 `gorm:"default:0"`      // 变体级事件时填写，否则为 0

	Kind     string `gorm:"size:32;index;not null"` // price_change / item_created / ...
	Severity string `gorm:"size:16;index;not null"` // info / warning / high / critical
	Source   string `gorm:"size:16;not null"`       // sync / webhook

	// --- 变更内容 ---
	OldValue datatypes.JSON `gorm:"type:jsonb"`
	NewValue datatypes.JSON `gorm:"type:jsonb"`
	Summary  string         `gorm:"size:512"`

	DetectedAt time.Time      `gorm:"index:idx_shop_detected;not null"`
	RawPayload datatypes.JSON `gorm:"type:jsonb"` // 原始响应/推送，留作排查

	// --- 已读标记（唯一可变部分）---
	IsRead bool       `gorm:"default:false;index"`
	ReadAt *time.Time `gorm:""`
}

func (HistoryLog) TableName() string {
	return "history_logs"
}
