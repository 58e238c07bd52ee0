package shopee

import "encoding/json"

// ==========================================
// DTO: 用于接收 Shopee OpenAPI v2 返回的原始 JSON 数据
// ==========================================

// BaseResp Shopee 通用响应外壳
// error 为空字符串表示成功
type BaseResp struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
	Message   string `json:"message"`
}

// Err 返回外壳中的错误码与描述
func (r *BaseResp) Err() (string, string) {
	return r.Error, r.Message
}

// ItemListEntry 商品列表项
type ItemListEntry struct {
	ItemID     int64  `json:"item_id"`
	ItemStatus string `json:"item_status"`
	UpdateTime int64  `json:"update_time"`
}

// GetItemListResp 商品 ID 列表响应
// GET /api/v2/product/get_item_list
type GetItemListResp struct {
	BaseResp
	Response struct {
		Item        []ItemListEntry `json:"item"`
		TotalCount  int             `json:"total_count"`
		HasNextPage bool            `json:"has_next_page"`
		NextOffset  int             `json:"next_offset"`
	} `json:"response"`
}

// PriceInfo 价格信息（币种原生单位，浮点）
type PriceInfo struct {
	Currency      string  `json:"currency"`
	OriginalPrice float64 `json:"original_price"`
	CurrentPrice  float64 `json:"current_price"`
}

// StockSummary 库存汇总
type StockSummary struct {
	TotalReservedStock  int `json:"total_reserved_stock"`
	TotalAvailableStock int `json:"total_available_stock"`
}

// StockInfoV2 库存信息
type StockInfoV2 struct {
	SummaryInfo StockSummary `json:"summary_info"`
}

// ItemBaseInfo 商品详情
type ItemBaseInfo struct {
	ItemID     int64  `json:"item_id"`
	ItemName   string `json:"item_name"`
	ItemStatus string `json:"item_status"`
	Brand      struct {
		BrandID           int64  `json:"brand_id"`
		OriginalBrandName string `json:"original_brand_name"`
	} `json:"brand"`
	PriceInfo   []PriceInfo `json:"price_info"`
	StockInfoV2 StockInfoV2 `json:"stock_info_v2"`
	Image       struct {
		ImageURLList []string `json:"image_url_list"`
	} `json:"image"`
	HasModel   bool  `json:"has_model"`
	UpdateTime int64 `json:"update_time"`
}

// GetItemBaseInfoResp 商品详情批量响应
// GET /api/v2/product/get_item_base_info (item_id_list 最多 50 个)
type GetItemBaseInfoResp struct {
	BaseResp
	Response struct {
		ItemList []ItemBaseInfo `json:"item_list"`
	} `json:"response"`
}

// TierVariation 规格层级
type TierVariation struct {
	Name       string `json:"name"`
	OptionList []struct {
		Option string `json:"option"`
		Image  struct {
			ImageURL string `json:"image_url"`
		} `json:"image"`
	} `json:"option_list"`
}

// ModelEntry 变体条目
type ModelEntry struct {
	ModelID     int64       `json:"model_id"`
	ModelSKU    string      `json:"model_sku"`
	TierIndex   []int64     `json:"tier_index"`
	PriceInfo   []PriceInfo `json:"price_info"`
	StockInfoV2 StockInfoV2 `json:"stock_info_v2"`
	Image       struct {
		ImageURL string `json:"image_url"`
	} `json:"image"`
}

// GetModelListResp 变体列表响应
// GET /api/v2/product/get_model_list
type GetModelListResp struct {
	BaseResp
	Response struct {
		TierVariation []TierVariation `json:"tier_variation"`
		Model         []ModelEntry    `json:"model"`
	} `json:"response"`
}

// RefreshTokenResp 刷新令牌响应
// POST /api/v2/auth/access_token/get
type RefreshTokenResp struct {
	BaseResp
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpireIn     int    `json:"expire_in"`
}

// ==========================================
// Webhook 推送载荷（仅消费 payload，验签在网关层）
// ==========================================

// 推送事件类型码
const (
	PushCodeViolation    = 4 // 商品违规
	PushCodePriceUpdate  = 5 // 价格变动
	PushCodeStockUpdate  = 6 // 库存变动
	PushCodeStatusChange = 7 // 状态变动
)

// PushEvent 推送事件外壳
type PushEvent struct {
	ShopID    int64           `json:"shop_id"` // Shopee 侧 shop_id
	Code      int             `json:"code"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// ViolationPush 商品违规推送
type ViolationPush struct {
	ItemID        int64  `json:"item_id"`
	ViolationType string `json:"violation_type"`
	Reason        string `json:"reason"`
	Suggestion    string `json:"suggestion"`
}

// PriceUpdatePush 价格变动推送
type PriceUpdatePush struct {
	ItemID   int64   `json:"item_id"`
	ModelID  int64   `json:"model_id,omitempty"`
	OldPrice float64 `json:"old_price"`
	NewPrice float64 `json:"new_price"`
}

// StockUpdatePush 库存变动推送
type StockUpdatePush struct {
	ItemID   int64 `json:"item_id"`
	ModelID  int64 `json:"model_id,omitempty"`
	OldStock int   `json:"old_stock"`
	NewStock int   `json:"new_stock"`
}

// StatusChangePush 状态变动推送
type StatusChangePush struct {
	ItemID    int64  `json:"item_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Reason    string `json:"reason"`
}
