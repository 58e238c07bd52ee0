package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	"shopee_sync_v1_202608/internal/model"
	"shopee_sync_v1_202608/pkg/shopee"
)

// ==================== DTO -> 镜像模型 ====================

// priceToCents 价格统一转分存储，math.Round 修正浮点精度
func priceToCents(p float64) int64 {
	return int64(math.Round(p * 100))
}

// buildProduct 将详情 DTO 转为镜像行（未含变体聚合）
func buildProduct(shopID int64, info *shopee.ItemBaseInfo) model.Product {
	p := model.Product{
		ShopID:     shopID,
		ItemID:     info.ItemID,
		ItemName:   info.ItemName,
		ItemStatus: info.ItemStatus,
		Brand:      info.Brand.OriginalBrandName,
		HasModel:   info.HasModel,
		UpdateTime: info.UpdateTime,
		ImageURLs:  pq.StringArray(info.Image.ImageURLList),
	}
	if len(info.PriceInfo) > 0 {
		p.CurrentPrice = priceToCents(info.PriceInfo[0].CurrentPrice)
		p.OriginalPrice = priceToCents(info.PriceInfo[0].OriginalPrice)
	}
	p.StockAvail = info.StockInfoV2.SummaryInfo.TotalAvailableStock
	p.StockReserved = info.StockInfoV2.SummaryInfo.TotalReservedStock
	return p
}

// buildVariants 将变体响应转为变体/规格层级行，并把聚合值写回商品
// 聚合规则沿用源系统：现价取变体最低价，库存取变体求和
func buildVariants(p *model.Product, resp *shopee.GetModelListResp) ([]model.ProductVariant, []model.ProductOption) {
	options := make([]model.ProductOption, 0, len(resp.Response.TierVariation))
	for rank, tier := range resp.Response.TierVariation {
		values := make([]model.OptionValue, 0, len(tier.OptionList))
		for _, opt := range tier.OptionList {
			values = append(values, model.OptionValue{
				Label: opt.Option,
				Image: opt.Image.ImageURL,
			})
		}
		raw, _ := json.Marshal(values)
		options = append(options, model.ProductOption{
			ShopID: p.ShopID,
			Name:   tier.Name,
			Rank:   rank,
			Values: raw,
		})
	}

	variants := make([]model.ProductVariant, 0, len(resp.Response.Model))
	var minPrice int64 = -1
	totalAvail, totalReserved := 0, 0

	for _, m := range resp.Response.Model {
		v := model.ProductVariant{
			ShopID:    p.ShopID,
			ModelID:   m.ModelID,
			SKU:       m.ModelSKU,
			ModelName: modelDisplayName(resp.Response.TierVariation, m.TierIndex),
			TierIndex: pq.Int64Array(m.TierIndex),
			ImageURL:  m.Image.ImageURL,
		}
		if len(m.PriceInfo) > 0 {
			v.PriceAmount = priceToCents(m.PriceInfo[0].CurrentPrice)
		}
		v.StockAvail = m.StockInfoV2.SummaryInfo.TotalAvailableStock
		v.StockReserved = m.StockInfoV2.SummaryInfo.TotalReservedStock

		if minPrice < 0 || v.PriceAmount < minPrice {
			minPrice = v.PriceAmount
		}
		totalAvail += v.StockAvail
		totalReserved += v.StockReserved
		variants = append(variants, v)
	}

	if len(variants) > 0 {
		p.CurrentPrice = minPrice
		p.StockAvail = totalAvail
		p.StockReserved = totalReserved
	}
	return variants, options
}

// modelDisplayName 按层级索引取各层选项名拼接，如 "红色,XL"
func modelDisplayName(tiers []shopee.TierVariation, tierIndex []int64) string {
	parts := make([]string, 0, len(tierIndex))
	for level, idx := range tierIndex {
		if level >= len(tiers) {
			break
		}
		opts := tiers[level].OptionList
		if idx < 0 || int(idx) >= len(opts) {
			continue
		}
		parts = append(parts, opts[idx].Option)
	}
	return strings.Join(parts, ",")
}

// ==================== 差异比对 ====================

// mustJSON 序列化失败只会发生在不可序列化类型上，此处输入全为基础类型
func mustJSON(v interface{}) datatypes.JSON {
	raw, _ := json.Marshal(v)
	return raw
}

// statusSeverity 状态迁移的严重级别：迁入 BANNED 升为 high
func statusSeverity(newStatus string) string {
	if newStatus == model.ItemStatusBanned {
		return model.SeverityHigh
	}
	return model.SeverityInfo
}

// diffProduct 单商品三方对比
// local 为 nil 时记 item_created；否则逐个比对四个跟踪字段，
// 每个有差异的字段各记一条，字段全同但远端时间戳前移且有变体时记一条 variant_change
func diffProduct(local *model.Product, remote *model.Product, detectedAt time.Time, raw datatypes.JSON) []model.HistoryLog {
	base := model.HistoryLog{
		ShopID:     remote.ShopID,
		ItemID:     remote.ItemID,
		Source:     model.HistorySourceSync,
		DetectedAt: detectedAt,
		RawPayload: raw,
	}

	if local == nil {
		entry := base
		entry.Kind = model.HistoryKindItemCreated
		entry.Severity = model.SeverityInfo
		entry.NewValue = mustJSON(map[string]interface{}{
			"item_name":     remote.ItemName,
			"item_status":   remote.ItemStatus,
			"current_price": remote.CurrentPrice,
			"stock_avail":   remote.StockAvail,
		})
		entry.Summary = fmt.Sprintf("新增商品「%s」", remote.ItemName)
		return []model.HistoryLog{entry}
	}

	var entries []model.HistoryLog

	if local.CurrentPrice != remote.CurrentPrice {
		entry := base
		entry.Kind = model.HistoryKindPriceChange
		entry.Severity = model.SeverityInfo
		entry.OldValue = mustJSON(map[string]int64{"current_price": local.CurrentPrice})
		entry.NewValue = mustJSON(map[string]int64{"current_price": remote.CurrentPrice})
		entry.Summary = fmt.Sprintf("价格(分) %d -> %d", local.CurrentPrice, remote.CurrentPrice)
		entries = append(entries, entry)
	}

	if local.StockAvail != remote.StockAvail {
		entry := base
		entry.Kind = model.HistoryKindStockChange
		entry.Severity = model.SeverityInfo
		entry.OldValue = mustJSON(map[string]int{"stock_avail": local.StockAvail})
		entry.NewValue = mustJSON(map[string]int{"stock_avail": remote.StockAvail})
		entry.Summary = fmt.Sprintf("可售库存 %d -> %d", local.StockAvail, remote.StockAvail)
		entries = append(entries, entry)
	}

	if local.ItemStatus != remote.ItemStatus {
		entry := base
		entry.Kind = model.HistoryKindStatusChange
		entry.Severity = statusSeverity(remote.ItemStatus)
		entry.OldValue = mustJSON(map[string]string{"item_status": local.ItemStatus})
		entry.NewValue = mustJSON(map[string]string{"item_status": remote.ItemStatus})
		entry.Summary = fmt.Sprintf("状态 %s -> %s", local.ItemStatus, remote.ItemStatus)
		entries = append(entries, entry)
	}

	if local.ItemName != remote.ItemName {
		entry := base
		entry.Kind = model.HistoryKindContentChange
		entry.Severity = model.SeverityInfo
		entry.OldValue = mustJSON(map[string]string{"item_name": local.ItemName})
		entry.NewValue = mustJSON(map[string]string{"item_name": remote.ItemName})
		entry.Summary = fmt.Sprintf("标题「%s」改为「%s」", local.ItemName, remote.ItemName)
		entries = append(entries, entry)
	}

	// 变体整体替换不逐条记账；字段全同但远端有更新时留一条痕迹
	if len(entries) == 0 && remote.HasModel && remote.UpdateTime != local.UpdateTime {
		entry := base
		entry.Kind = model.HistoryKindVariantChange
		entry.Severity = model.SeverityInfo
		entry.Summary = "变体集合已刷新"
		entries = append(entries, entry)
	}

	return entries
}

// deletionEntry 本地有、远端全量列表已不存在 -> item_deleted (warning)
func deletionEntry(local *model.Product, detectedAt time.Time) model.HistoryLog {
	return model.HistoryLog{
		ShopID:   local.ShopID,
		ItemID:   local.ItemID,
		Kind:     model.HistoryKindItemDeleted,
		Severity: model.SeverityWarning,
		Source:   model.HistorySourceSync,
		OldValue: mustJSON(map[string]interface{}{
			"item_name":     local.ItemName,
			"item_status":   local.ItemStatus,
			"current_price": local.CurrentPrice,
			"stock_avail":   local.StockAvail,
		}),
		Summary:    fmt.Sprintf("商品「%s」已从远端目录消失", local.ItemName),
		DetectedAt: detectedAt,
	}
}
