package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shopee_sync_v1_202608/internal/model"
	"shopee_sync_v1_202608/internal/repository"
	"shopee_sync_v1_202608/pkg/shopee"
)

// HistoryService 变更历史：查询、已读标记、Webhook 推送入账
type HistoryService struct {
	HistoryRepo repository.HistoryRepository
	ShopRepo    repository.ShopRepository
}

// NewHistoryService 工厂方法
func NewHistoryService(historyRepo repository.HistoryRepository, shopRepo repository.ShopRepository) *HistoryService {
	return &HistoryService{
		HistoryRepo: historyRepo,
		ShopRepo:    shopRepo,
	}
}

// Record 追加一条历史
func (s *HistoryService) Record(ctx context.Context, entry *model.HistoryLog) (int64, error) {
	if entry.DetectedAt.IsZero() {
		entry.DetectedAt = time.Now()
	}
	if err := s.HistoryRepo.Create(ctx, entry); err != nil {
		return 0, err
	}
	return entry.ID, nil
}

// List 过滤查询
func (s *HistoryService) List(ctx context.Context, filter repository.HistoryFilter) ([]model.HistoryLog, int64, error) {
	return s.HistoryRepo.List(ctx, filter)
}

// MarkRead 标记指定条目已读；ids 为空时标记该店铺全部未读
func (s *HistoryService) MarkRead(ctx context.Context, shopID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return s.HistoryRepo.MarkAllRead(ctx, shopID)
	}
	return s.HistoryRepo.MarkRead(ctx, shopID, ids)
}

// CountUnread 未读条数
func (s *HistoryService) CountUnread(ctx context.Context, shopID int64) (int64, error) {
	return s.HistoryRepo.CountUnread(ctx, shopID)
}

// ==================== Webhook 推送入账 ====================

// HandlePush 将一条推送事件映射为一条历史
// 分级规则与同步侧一致：迁入 BANNED 为 high，违规为 critical，其余 info
func (s *HistoryService) HandlePush(ctx context.Context, event *shopee.PushEvent) (*model.HistoryLog, error) {
	shop, err := s.ShopRepo.GetByShopeeShopID(ctx, event.ShopID)
	if err != nil {
		return nil, fmt.Errorf("未知店铺 shopee_shop_id=%d: %w", event.ShopID, err)
	}

	detectedAt := time.Now()
	if event.Timestamp > 0 {
		detectedAt = time.Unix(event.Timestamp, 0)
	}

	entry := &model.HistoryLog{
		ShopID:     shop.ID,
		Source:     model.HistorySourceWebhook,
		DetectedAt: detectedAt,
		RawPayload: append([]byte(nil), event.Data...),
	}

	switch event.Code {
	case shopee.PushCodeViolation:
		var p shopee.ViolationPush
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return nil, fmt.Errorf("违规推送解析失败: %w", err)
		}
		entry.ItemID = p.ItemID
		entry.Kind = model.HistoryKindPolicyViolation
		entry.Severity = model.SeverityCritical
		entry.NewValue = mustJSON(map[string]string{
			"violation_type": p.ViolationType,
			"reason":         p.Reason,
			"suggestion":     p.Suggestion,
		})
		entry.Summary = fmt.Sprintf("商品违规 [%s]: %s", p.ViolationType, p.Reason)

	case shopee.PushCodePriceUpdate:
		var p shopee.PriceUpdatePush
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return nil, fmt.Errorf("价格推送解析失败: %w", err)
		}
		entry.ItemID = p.ItemID
		entry.ModelID = p.ModelID
		entry.Kind = model.HistoryKindPriceChange
		entry.Severity = model.SeverityInfo
		entry.OldValue = mustJSON(map[string]int64{"current_price": priceToCents(p.OldPrice)})
		entry.NewValue = mustJSON(map[string]int64{"current_price": priceToCents(p.NewPrice)})
		entry.Summary = fmt.Sprintf("价格(分) %d -> %d", priceToCents(p.OldPrice), priceToCents(p.NewPrice))

	case shopee.PushCodeStockUpdate:
		var p shopee.StockUpdatePush
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return nil, fmt.Errorf("库存推送解析失败: %w", err)
		}
		entry.ItemID = p.ItemID
		entry.ModelID = p.ModelID
		entry.Kind = model.HistoryKindStockChange
		entry.Severity = model.SeverityInfo
		entry.OldValue = mustJSON(map[string]int{"stock_avail": p.OldStock})
		entry.NewValue = mustJSON(map[string]int{"stock_avail": p.NewStock})
		entry.Summary = fmt.Sprintf("可售库存 %d -> %d", p.OldStock, p.NewStock)

	case shopee.PushCodeStatusChange:
		var p shopee.StatusChangePush
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return nil, fmt.Errorf("状态推送解析失败: %w", err)
		}
		entry.ItemID = p.ItemID
		entry.Kind = model.HistoryKindStatusChange
		entry.Severity = statusSeverity(p.NewStatus)
		entry.OldValue = mustJSON(map[string]string{"item_status": p.OldStatus})
		entry.NewValue = mustJSON(map[string]string{"item_status": p.NewStatus})
		entry.Summary = fmt.Sprintf("状态 %s -> %s (%s)", p.OldStatus, p.NewStatus, p.Reason)

	default:
		return nil, fmt.Errorf("不支持的推送类型 code=%d", event.Code)
	}

	if err := s.HistoryRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("推送入账失败: %w", err)
	}
	return entry, nil
}
