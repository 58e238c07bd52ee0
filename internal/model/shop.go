package model

import "time"

// ==================== Token 状态 ====================

const (
	TokenStatusActive   = 0 // 正常
	TokenStatusExpiring = 1 // 即将过期（保活任务优先处理）
	TokenStatusInvalid  = 2 // 已失效，需要重新授权
)

// Partner 开放平台合作方应用
// 一个 Partner (partner_id + partner_key) 可以挂多个店铺
type Partner struct {
	BaseModel
	Name            string `gorm:"size:100"`
	ShopeePartnerID int64  `gorm:"uniqueIndex;not null"` // Shopee 分配的 partner_id
	PartnerKey      string `gorm:"size:255;not null"`    // 签名密钥
	Region          string `gorm:"size:10;index"`        // SG / MY / TH ...
	Status          int    `gorm:"default:1"`            // 1:启用 0:停用
}

func (Partner) TableName() string {
	return "partners"
}

// Shop 店铺（即一个目录同步单元）
type Shop struct {
	BaseModel
	ShopName string `gorm:"size:100"`
	Region   string `gorm:"size:10;index"`
	Status   int    `gorm:"default:1;index"` // 1:启用 0:停用

	// --- Shopee 身份 ---
	ShopeeShopID int64 `gorm:"uniqueIndex;not null"` // Shopee 侧 shop_id

	// --- 合作方绑定 ---
	PartnerID int64    `gorm:"index;not null"`
	Partner   *Partner `gorm:"foreignKey:PartnerID"`

	// --- 授权凭证 ---
	AccessToken    string    `gorm:"size:512"`
	RefreshToken   string    `gorm:"size:512"`
	TokenExpiresAt time.Time `gorm:"index"`
	TokenStatus    int       `gorm:"default:0;index"`
}

func (Shop) TableName() string {
	return "shops"
}
