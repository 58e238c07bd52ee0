package service

import (
	"testing"
	"time"

	"shopee_sync_v1_202608/internal/model"
	"shopee_sync_v1_202608/pkg/shopee"
)

func TestPriceToCents(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{19.90, 1990},
		{0, 0},
		{0.1, 10},
		{29.99, 2999},
		// 浮点表示误差必须被 Round 修正
		{19.899999999, 1990},
	}
	for _, c := range cases {
		if got := priceToCents(c.in); got != c.want {
			t.Errorf("priceToCents(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestBuildVariants_Aggregates(t *testing.T) {
	p := &model.Product{ShopID: 1, ItemID: 100, CurrentPrice: 9999, StockAvail: 99, HasModel: true}

	resp := &shopee.GetModelListResp{}
	resp.Response.TierVariation = []shopee.TierVariation{
		{
			Name: "颜色",
			OptionList: []struct {
				Option string `json:"option"`
				Image  struct {
					ImageURL string `json:"image_url"`
				} `json:"image"`
			}{
				{Option: "红色"},
				{Option: "蓝色"},
			},
		},
	}
	resp.Response.Model = []shopee.ModelEntry{
		{
			ModelID:   1,
			ModelSKU:  "SKU-R",
			TierIndex: []int64{0},
			PriceInfo: []shopee.PriceInfo{{CurrentPrice: 25.00}},
			StockInfoV2: shopee.StockInfoV2{
				SummaryInfo: shopee.StockSummary{TotalAvailableStock: 3, TotalReservedStock: 1},
			},
		},
		{
			ModelID:   2,
			ModelSKU:  "SKU-B",
			TierIndex: []int64{1},
			PriceInfo: []shopee.PriceInfo{{CurrentPrice: 19.90}},
			StockInfoV2: shopee.StockInfoV2{
				SummaryInfo: shopee.StockSummary{TotalAvailableStock: 7, TotalReservedStock: 2},
			},
		},
	}

	variants, options := buildVariants(p, resp)

	if len(variants) != 2 {
		t.Fatalf("变体数 = %d, want 2", len(variants))
	}
	if len(options) != 1 || options[0].Name != "颜色" || options[0].Rank != 0 {
		t.Errorf("规格层级构建错误: %+v", options)
	}

	// 变体名由层级选项拼接
	if variants[0].ModelName != "红色" || variants[1].ModelName != "蓝色" {
		t.Errorf("ModelName = %s / %s", variants[0].ModelName, variants[1].ModelName)
	}

	// 聚合：现价取最低，库存求和
	if p.CurrentPrice != 1990 {
		t.Errorf("聚合现价 = %d, want 1990", p.CurrentPrice)
	}
	if p.StockAvail != 10 {
		t.Errorf("聚合可售库存 = %d, want 10", p.StockAvail)
	}
	if p.StockReserved != 3 {
		t.Errorf("聚合占用库存 = %d, want 3", p.StockReserved)
	}
}

func TestBuildVariants_EmptyKeepsItemFields(t *testing.T) {
	p := &model.Product{ShopID: 1, ItemID: 100, CurrentPrice: 1990, StockAvail: 5}
	resp := &shopee.GetModelListResp{}

	variants, _ := buildVariants(p, resp)
	if len(variants) != 0 {
		t.Fatalf("变体数 = %d, want 0", len(variants))
	}
	if p.CurrentPrice != 1990 || p.StockAvail != 5 {
		t.Error("无变体时不应覆盖商品自身字段")
	}
}

func TestDiffProduct_Created(t *testing.T) {
	remote := &model.Product{ShopID: 1, ItemID: 100, ItemName: "新品", ItemStatus: model.ItemStatusNormal, CurrentPrice: 1990, StockAvail: 10}

	entries := diffProduct(nil, remote, time.Now(), nil)
	if len(entries) != 1 {
		t.Fatalf("条数 = %d, want 1", len(entries))
	}
	if entries[0].Kind != model.HistoryKindItemCreated {
		t.Errorf("Kind = %s, want item_created", entries[0].Kind)
	}
	if entries[0].Severity != model.SeverityInfo {
		t.Errorf("Severity = %s, want info", entries[0].Severity)
	}
	if entries[0].Source != model.HistorySourceSync {
		t.Errorf("Source = %s, want sync", entries[0].Source)
	}
}

func TestDiffProduct_PerFieldEntries(t *testing.T) {
	local := &model.Product{ShopID: 1, ItemID: 100, ItemName: "旧标题", ItemStatus: model.ItemStatusNormal, CurrentPrice: 1990, StockAvail: 10}
	remote := &model.Product{ShopID: 1, ItemID: 100, ItemName: "新标题", ItemStatus: model.ItemStatusNormal, CurrentPrice: 1590, StockAvail: 10}

	entries := diffProduct(local, remote, time.Now(), nil)
	if len(entries) != 2 {
		t.Fatalf("条数 = %d, want 2 (价格 + 标题各一条)", len(entries))
	}

	kinds := map[string]bool{}
	for _, e := range entries {
		kinds[e.Kind] = true
	}
	if !kinds[model.HistoryKindPriceChange] || !kinds[model.HistoryKindContentChange] {
		t.Errorf("kinds = %v, want price_change + content_change", kinds)
	}
}

func TestDiffProduct_NoChange(t *testing.T) {
	local := &model.Product{ShopID: 1, ItemID: 100, ItemName: "同款", ItemStatus: model.ItemStatusNormal, CurrentPrice: 1990, StockAvail: 10, UpdateTime: 1700000000}
	remote := &model.Product{ShopID: 1, ItemID: 100, ItemName: "同款", ItemStatus: model.ItemStatusNormal, CurrentPrice: 1990, StockAvail: 10, UpdateTime: 1700000000}

	entries := diffProduct(local, remote, time.Now(), nil)
	if len(entries) != 0 {
		t.Errorf("无差异应不记账, got %d 条", len(entries))
	}
}

func TestDiffProduct_VariantOnlyChange(t *testing.T) {
	local := &model.Product{ShopID: 1, ItemID: 100, ItemName: "同款", ItemStatus: model.ItemStatusNormal, CurrentPrice: 1990, StockAvail: 10, HasModel: true, UpdateTime: 1700000000}
	remote := &model.Product{ShopID: 1, ItemID: 100, ItemName: "同款", ItemStatus: model.ItemStatusNormal, CurrentPrice: 1990, StockAvail: 10, HasModel: true, UpdateTime: 1700009999}

	entries := diffProduct(local, remote, time.Now(), nil)
	if len(entries) != 1 {
		t.Fatalf("条数 = %d, want 1", len(entries))
	}
	if entries[0].Kind != model.HistoryKindVariantChange {
		t.Errorf("Kind = %s, want variant_change", entries[0].Kind)
	}
}

func TestDiffProduct_BannedSeverity(t *testing.T) {
	local := &model.Product{ShopID: 1, ItemID: 100, ItemStatus: model.ItemStatusNormal}
	remote := &model.Product{ShopID: 1, ItemID: 100, ItemStatus: model.ItemStatusBanned}

	entries := diffProduct(local, remote, time.Now(), nil)
	if len(entries) != 1 {
		t.Fatalf("条数 = %d, want 1", len(entries))
	}
	if entries[0].Kind != model.HistoryKindStatusChange {
		t.Errorf("Kind = %s, want status_change", entries[0].Kind)
	}
	if entries[0].Severity != model.SeverityHigh {
		t.Errorf("迁入 BANNED 的 Severity = %s, want high", entries[0].Severity)
	}

	// 普通状态迁移仍是 info
	remote.ItemStatus = model.ItemStatusUnlist
	entries = diffProduct(local, remote, time.Now(), nil)
	if entries[0].Severity != model.SeverityInfo {
		t.Errorf("NORMAL->UNLIST 的 Severity = %s, want info", entries[0].Severity)
	}
}

func TestDeletionEntry(t *testing.T) {
	local := &model.Product{ShopID: 1, ItemID: 100, ItemName: "消失的商品", ItemStatus: model.ItemStatusNormal, CurrentPrice: 1990}

	entry := deletionEntry(local, time.Now())
	if entry.Kind != model.HistoryKindItemDeleted {
		t.Errorf("Kind = %s, want item_deleted", entry.Kind)
	}
	if entry.Severity != model.SeverityWarning {
		t.Errorf("Severity = %s, want warning", entry.Severity)
	}
	if len(entry.OldValue) == 0 {
		t.Error("OldValue 应包含删除前快照")
	}
}
