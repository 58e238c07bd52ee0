package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopee_sync_v1_202608/internal/model"
	"shopee_sync_v1_202608/internal/repository"
	"shopee_sync_v1_202608/pkg/shopee"
)

// ==================== 错误与结果 ====================

var (
	// ErrSyncInProgress 同店铺不允许并发同步
	ErrSyncInProgress = errors.New("该店铺已有同步任务在执行")
	// ErrStoreUnavailable 本地存储故障，本轮终止（已落库的批次不回滚）
	ErrStoreUnavailable = errors.New("本地存储不可用")
)

// SyncMode 同步模式
type SyncMode string

const (
	SyncModeFull        SyncMode = "full"
	SyncModeIncremental SyncMode = "incremental"
)

// SyncResult 单轮同步结果
// 部分批次失败不算整轮失败：PartialFailure + SkippedIDs 暴露给运维，下一轮自然重试
type SyncResult struct {
	RunID          string    `json:"run_id"`
	ShopID         int64     `json:"shop_id"`
	Mode           SyncMode  `json:"mode"`
	Inserted       int       `json:"inserted"`
	Updated        int       `json:"updated"`
	Deleted        int       `json:"deleted"`
	HistoryEntries int       `json:"history_entries"`
	SkippedIDs     []int64   `json:"skipped_ids"`
	PartialFailure bool      `json:"partial_failure"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// ==================== SyncService ====================

// SyncService 目录同步引擎
// 全量与增量共用同一条 对比/落库/记账 流水线，只是"变更 ID 来源"不同
type SyncService struct {
	ShopRepo    repository.ShopRepository
	ProductRepo repository.ProductRepository
	HistoryRepo repository.HistoryRepository
	StateRepo   repository.SyncStateRepository

	client *shopee.Client

	pageSize  int // 列表页大小
	batchSize int // 详情批大小（Shopee 上限 50）

	runLocks sync.Map // shopID -> *sync.Mutex
}

// NewSyncService 创建同步引擎
func NewSyncService(
	shopRepo repository.ShopRepository,
	productRepo repository.ProductRepository,
	historyRepo repository.HistoryRepository,
	stateRepo repository.SyncStateRepository,
	client *shopee.Client,
) *SyncService {
	return &SyncService{
		ShopRepo:    shopRepo,
		ProductRepo: productRepo,
		HistoryRepo: historyRepo,
		StateRepo:   stateRepo,
		client:      client,
		pageSize:    100,
		batchSize:   50,
	}
}

// SetBatchSize 设置详情批大小（测试用）
func (s *SyncService) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// lockFor 取店铺运行锁
func (s *SyncService) lockFor(shopID int64) *sync.Mutex {
	actual, _ := s.runLocks.LoadOrStore(shopID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// GetState 查询店铺同步水位
func (s *SyncService) GetState(ctx context.Context, shopID int64) (*model.SyncState, error) {
	return s.StateRepo.Get(ctx, shopID)
}

// ==================== 主流程 ====================

// RunSync 执行一轮同步
// 流程：列表扫描 -> 删除识别 -> 分批详情(+变体) -> 对比 -> 落库 -> 记账 -> 更新水位
func (s *SyncService) RunSync(ctx context.Context, shopID int64, mode SyncMode) (*SyncResult, error) {
	lock := s.lockFor(shopID)
	if !lock.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer lock.Unlock()

	shop, err := s.ShopRepo.GetByID(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("店铺不存在: %w", err)
	}
	if shop.Status != 1 {
		return nil, fmt.Errorf("店铺 %d 已停用", shopID)
	}
	if shop.TokenStatus == model.TokenStatusInvalid {
		return nil, fmt.Errorf("店铺 %d 授权已失效，请重新授权", shopID)
	}

	result := &SyncResult{
		RunID:     uuid.NewString(),
		ShopID:    shopID,
		Mode:      mode,
		StartedAt: time.Now(),
	}
	log.Printf("[Sync] 店铺 %d 开始%s同步 run=%s", shopID, modeLabel(mode), result.RunID)

	// 1. 上一轮水位（增量筛选用；有批次被跳过时也要原样保留）
	var watermark int64
	state, err := s.StateRepo.Get(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if state != nil {
		watermark = state.Watermark
	}

	// 2. 全量 ID 扫描（不带时间过滤）
	// 删除识别必须基于无过滤扫描："modified since" 看不见消失的商品
	remoteAll, err := s.listRemote(ctx, shopID, 0)
	if err != nil {
		s.recordFailure(ctx, shopID, result, err)
		return nil, fmt.Errorf("远端列表扫描失败: %w", err)
	}

	// 3. 变更 ID 集合
	changedSet, err := s.resolveChangedSet(ctx, shopID, mode, watermark, remoteAll)
	if err != nil {
		s.recordFailure(ctx, shopID, result, err)
		return nil, err
	}

	// 4. 删除识别与落库
	if err := s.reconcileDeletions(ctx, shopID, remoteAll, result); err != nil {
		s.recordFailure(ctx, shopID, result, err)
		return nil, err
	}

	// 5. 分批 详情 -> 对比 -> 落库 -> 记账
	// 每批独立提交：中途取消只截断覆盖范围，不破坏一致性
	batches := chunkIDs(changedSet, s.batchSize)
	for _, batch := range batches {
		select {
		case <-ctx.Done():
			s.recordFailure(ctx, shopID, result, ctx.Err())
			result.FinishedAt = time.Now()
			return result, ctx.Err()
		default:
		}

		if err := s.processBatch(ctx, shopID, batch, result); err != nil {
			// 存储故障是致命的；远端批次失败已在内部降级为 skip
			s.recordFailure(ctx, shopID, result, err)
			return nil, err
		}
	}

	// 6. 水位推进到本轮起点；有批次被跳过时保留旧水位，
	//    跳过商品的修改时间仍落在下一轮增量的筛选窗口内，自然重试
	result.FinishedAt = time.Now()
	next := watermarkFor(result)
	if result.PartialFailure {
		next = watermark
	}
	if err := s.recordSuccess(ctx, shopID, next, result); err != nil {
		return nil, err
	}

	log.Printf("[Sync] 店铺 %d %s同步完成: 新增 %d, 更新 %d, 删除 %d, 记账 %d, 跳过 %d",
		shopID, modeLabel(mode), result.Inserted, result.Updated, result.Deleted,
		result.HistoryEntries, len(result.SkippedIDs))
	return result, nil
}

// ==================== 子步骤 ====================

// listRemote 按状态分区逐页拉取 item_id -> update_time
// updateTimeFrom > 0 时由远端按修改时间过滤
func (s *SyncService) listRemote(ctx context.Context, shopID int64, updateTimeFrom int64) (map[int64]int64, error) {
	out := make(map[int64]int64)
	for _, status := range model.SyncStatusPartitions {
		offset := 0
		for {
			resp, err := s.client.GetItemList(ctx, shopID, status, offset, s.pageSize, updateTimeFrom)
			if err != nil {
				return nil, fmt.Errorf("拉取 %s 分区失败: %w", status, err)
			}
			for _, it := range resp.Response.Item {
				out[it.ItemID] = it.UpdateTime
			}
			if !resp.Response.HasNextPage {
				break
			}
			offset = resp.Response.NextOffset
		}
	}
	return out, nil
}

// resolveChangedSet 决定需要拉详情的 ID 集合
// 全量：远端全部；增量：远端按水位过滤的结果，外加本地还没有的新 ID 兜底
func (s *SyncService) resolveChangedSet(ctx context.Context, shopID int64, mode SyncMode, watermark int64, remoteAll map[int64]int64) ([]int64, error) {
	if mode == SyncModeFull || watermark == 0 {
		return sortedKeys(remoteAll), nil
	}

	filtered, err := s.listRemote(ctx, shopID, watermark)
	if err != nil {
		return nil, fmt.Errorf("增量列表扫描失败: %w", err)
	}

	localIDs, err := s.ProductRepo.ListItemIDs(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	localSet := make(map[int64]struct{}, len(localIDs))
	for _, id := range localIDs {
		localSet[id] = struct{}{}
	}

	set := make(map[int64]struct{}, len(filtered))
	for id := range filtered {
		set[id] = struct{}{}
	}
	for id := range remoteAll {
		if _, ok := localSet[id]; !ok {
			set[id] = struct{}{}
		}
	}

	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// reconcileDeletions 本地有、远端全量列表没有的商品：级联删除并各记一条 item_deleted
func (s *SyncService) reconcileDeletions(ctx context.Context, shopID int64, remoteAll map[int64]int64, result *SyncResult) error {
	localIDs, err := s.ProductRepo.ListItemIDs(ctx, shopID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var gone []int64
	for _, id := range localIDs {
		if _, ok := remoteAll[id]; !ok {
			gone = append(gone, id)
		}
	}
	if len(gone) == 0 {
		return nil
	}

	locals, err := s.ProductRepo.GetByItemIDs(ctx, shopID, gone)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	now := time.Now()
	entries := make([]model.HistoryLog, 0, len(locals))
	for i := range locals {
		entries = append(entries, deletionEntry(&locals[i], now))
	}

	deleted, err := s.ProductRepo.DeleteByItemIDs(ctx, shopID, gone)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := s.HistoryRepo.BatchCreate(ctx, entries); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	result.Deleted += int(deleted)
	result.HistoryEntries += len(entries)
	return nil
}

// processBatch 处理一批变更 ID：详情 -> (变体) -> 对比 -> 落库 -> 记账
// 远端失败（整批或单品变体）降级为 skip，存储失败向上抛
func (s *SyncService) processBatch(ctx context.Context, shopID int64, batch []int64, result *SyncResult) error {
	detail, err := s.client.GetItemBaseInfo(ctx, shopID, batch)
	if err != nil {
		log.Printf("[Sync] 店铺 %d 批次详情拉取失败(已跳过 %d 个): %v", shopID, len(batch), err)
		result.SkippedIDs = append(result.SkippedIDs, batch...)
		result.PartialFailure = true
		return nil
	}

	locals, err := s.ProductRepo.GetByItemIDs(ctx, shopID, batch)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	localByItem := make(map[int64]*model.Product, len(locals))
	for i := range locals {
		localByItem[locals[i].ItemID] = &locals[i]
	}

	now := time.Now()
	var (
		upserts  []model.Product
		entries  []model.HistoryLog
		replaces = make(map[int64]variantSet) // item_id -> 完整变体集
	)

	for i := range detail.Response.ItemList {
		info := &detail.Response.ItemList[i]
		remote := buildProduct(shopID, info)

		// 变体商品必须先拿到完整变体响应，拿不到就整件跳过，
		// 绝不落下一半的变体集合
		if remote.HasModel {
			modelResp, err := s.client.GetModelList(ctx, shopID, remote.ItemID)
			if err != nil {
				log.Printf("[Sync] 店铺 %d 商品 %d 变体拉取失败(已跳过): %v", shopID, remote.ItemID, err)
				result.SkippedIDs = append(result.SkippedIDs, remote.ItemID)
				result.PartialFailure = true
				continue
			}
			variants, options := buildVariants(&remote, modelResp)
			replaces[remote.ItemID] = variantSet{variants: variants, options: options}
		}

		raw, _ := json.Marshal(info)
		diff := diffProduct(localByItem[remote.ItemID], &remote, now, raw)

		for _, e := range diff {
			if e.Kind == model.HistoryKindItemCreated {
				result.Inserted++
			}
		}
		if len(diff) > 0 && diff[0].Kind != model.HistoryKindItemCreated {
			result.Updated++
		}

		entries = append(entries, diff...)
		upserts = append(upserts, remote)
	}

	// 本批落库（详情行 -> 变体整体替换 -> 历史），各自独立提交
	if err := s.ProductRepo.BatchUpsert(ctx, upserts); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if len(replaces) > 0 {
		ids := make([]int64, 0, len(replaces))
		for id := range replaces {
			ids = append(ids, id)
		}
		persisted, err := s.ProductRepo.GetByItemIDs(ctx, shopID, ids)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		for i := range persisted {
			set := replaces[persisted[i].ItemID]
			if err := s.ProductRepo.ReplaceVariants(ctx, shopID, persisted[i].ID, set.variants, set.options); err != nil {
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}
	}

	if err := s.HistoryRepo.BatchCreate(ctx, entries); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	result.HistoryEntries += len(entries)
	return nil
}

type variantSet struct {
	variants []model.ProductVariant
	options  []model.ProductOption
}

// ==================== 水位与收尾 ====================

// watermarkFor 下一轮增量的起点 = 本轮开始时间
// 用开始时间而不是结束时间，同步期间远端的并发修改不会漏掉
func watermarkFor(result *SyncResult) int64 {
	return result.StartedAt.Unix()
}

func (s *SyncService) recordSuccess(ctx context.Context, shopID int64, watermark int64, result *SyncResult) error {
	stats, _ := json.Marshal(result)
	now := time.Now()
	state := &model.SyncState{
		ShopID:        shopID,
		Watermark:     watermark,
		LastRunID:     result.RunID,
		LastRunAt:     &result.StartedAt,
		LastSuccessAt: &now,
		LastError:     "",
		Stats:         stats,
	}
	if err := s.StateRepo.Upsert(ctx, state); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// recordFailure 尽力而为地记录失败原因，不覆盖水位
func (s *SyncService) recordFailure(ctx context.Context, shopID int64, result *SyncResult, cause error) {
	prev, err := s.StateRepo.Get(ctx, shopID)
	if err != nil {
		log.Printf("[Sync] 店铺 %d 读取水位失败: %v", shopID, err)
		return
	}
	state := &model.SyncState{ShopID: shopID}
	if prev != nil {
		state.Watermark = prev.Watermark
		state.LastSuccessAt = prev.LastSuccessAt
		state.Stats = prev.Stats
	}
	state.LastRunID = result.RunID
	state.LastRunAt = &result.StartedAt
	state.LastError = cause.Error()
	if err := s.StateRepo.Upsert(ctx, state); err != nil {
		log.Printf("[Sync] 店铺 %d 写入失败状态出错: %v", shopID, err)
	}
}

// ==================== 工具 ====================

func modeLabel(mode SyncMode) string {
	if mode == SyncModeFull {
		return "全量"
	}
	return "增量"
}

func sortedKeys(m map[int64]int64) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func chunkIDs(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = 50
	}
	var out [][]int64
	for len(ids) > 0 {
		n := size
		if len(ids) < n {
			n = len(ids)
		}
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}
