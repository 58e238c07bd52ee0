package model

import (
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// ==================== 商品状态 ====================

// Shopee item_status 取值
const (
	ItemStatusNormal = "NORMAL" // 在售
	ItemStatusUnlist = "UNLIST" // 下架
	ItemStatusBanned = "BANNED" // 被封禁
)

// SyncStatusPartitions 同步时需要扫描的状态分区
// DELETED 不在其中：远端已删除的商品通过全量 ID 对比识别
var SyncStatusPartitions = []string{ItemStatusNormal, ItemStatusUnlist, ItemStatusBanned}

// Product 商品镜像表
// 以 (shop_id, item_id) 为业务主键，远端每次同步 UPSERT
type Product struct {
	BaseModel
	ShopID int64 `gorm:"index:idx_shop_item,unique;not null"` // 本地店铺 ID
	Shop   *Shop `gorm:"foreignKey:ShopID"`

	// --- Shopee 身份 ---
	ItemID int64 `gorm:"index:idx_shop_item,unique;not null"` // Shopee item_id

	// --- 基本信息 ---
	ItemName   string `gorm:"size:255"`
	ItemStatus string `gorm:"size:20;index"` // NORMAL / UNLIST / BANNED
	Brand      string `gorm:"size:100"`

	// --- 价格与库存 (价格统一以分存储，避免浮点对比误差) ---
	CurrentPrice  int64 `gorm:"default:0"`
	OriginalPrice int64 `gorm:"default:0"`
	StockAvail    int   `gorm:"default:0"`
	StockReserved int   `gorm:"default:0"`

	// --- 图片 ---
	ImageURLs pq.StringArray `gorm:"type:text[]"`

	// --- 变体标记与远端时间戳 ---
	HasModel   bool  `gorm:"default:false"`
	UpdateTime int64 `gorm:"default:0;index"` // Shopee 侧 update_time (unix 秒)

	// --- 关联关系 ---
	Variants []ProductVariant `gorm:"foreignKey:ProductID"`
	Options  []ProductOption  `gorm:"foreignKey:ProductID"`
}

func (Product) TableName() string {
	return "products"
}

// ProductVariant 商品变体（Shopee model）
// 变体随父商品整体替换：每次成功拉到完整 model 列表后先删后插
type ProductVariant struct {
	BaseModel
	ProductID int64    `gorm:"index:idx_product_model,unique;not null"`
	Product   *Product `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ShopID    int64    `gorm:"index"`

	// --- Shopee 身份 ---
	ModelID int64 `gorm:"index:idx_product_model,unique;not null"` // Shopee model_id

	// --- 规格 ---
	SKU       string        `gorm:"size:100;index"`
	ModelName string        `gorm:"size:255"` // 由各层级选项名拼接，如 "红色,XL"
	TierIndex pq.Int64Array `gorm:"type:bigint[]"`

	// --- 销售数据 ---
	PriceAmount   int64  `gorm:"default:0"` // 分
	StockAvail    int    `gorm:"default:0"`
	StockReserved int    `gorm:"default:0"`
	ImageURL      string `gorm:"size:512"`
}

func (ProductVariant) TableName() string {
	return "product_variants"
}

// ProductOption 商品规格层级（Shopee tier_variation）
// 每个商品按 rank 排序存若干层，层内选项列表存 jsonb
type ProductOption struct {
	BaseModel
	ProductID int64    `gorm:"index:idx_product_rank,unique;not null"`
	Product   *Product `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ShopID    int64    `gorm:"index"`

	Name string `gorm:"size:100"`                               // 层级名，如 "颜色"
	Rank int    `gorm:"index:idx_product_rank,unique;not null"` // 层级序号，从 0 开始

	// 选项列表: [{"label":"红色","image":"https://..."}]
	Values datatypes.JSON `gorm:"type:jsonb"`
}

func (ProductOption) TableName() string {
	return "product_options"
}

// OptionValue ProductOption.Values 的元素结构
type OptionValue struct {
	Label string `json:"label"`
	Image string `json:"image,omitempty"`
}
