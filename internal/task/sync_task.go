package task

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"shopee_sync_v1_202608/internal/repository"
	"shopee_sync_v1_202608/internal/service"
)

// ==================== CatalogSyncTask 目录同步任务 ====================

// CatalogSyncTask 目录同步定时任务
// 同步策略：
//   - 增量同步：每 30 分钟，基于上轮水位筛选
//   - 全量同步：每日凌晨 3 点，兜底修正增量漏掉的差异
type CatalogSyncTask struct {
	shopRepo    repository.ShopRepository
	syncService *service.SyncService
	cron        *cron.Cron

	// 并发控制
	concurrencyLimit int
	sleepTime        time.Duration
}

// NewCatalogSyncTask 创建目录同步任务
func NewCatalogSyncTask(
	shopRepo repository.ShopRepository,
	syncService *service.SyncService,
) *CatalogSyncTask {
	return &CatalogSyncTask{
		shopRepo:         shopRepo,
		syncService:      syncService,
		cron:             cron.New(cron.WithSeconds()),
		concurrencyLimit: 3,
		sleepTime:        300 * time.Millisecond,
	}
}

// SetConcurrency 设置并发参数
func (t *CatalogSyncTask) SetConcurrency(limit int, sleep time.Duration) {
	t.concurrencyLimit = limit
	t.sleepTime = sleep
}

// Start 启动定时任务
func (t *CatalogSyncTask) Start() {
	// 首次执行（延迟 60 秒，等待凭证检查完成）
	go func() {
		time.Sleep(60 * time.Second)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		defer cancel()
		log.Println("[CatalogSyncTask] 执行首次目录同步...")
		t.syncAllShops(ctx, service.SyncModeIncremental)
	}()

	// 增量同步：每 30 分钟
	_, _ = t.cron.AddFunc("0 */30 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Hour)
		defer cancel()
		t.syncAllShops(ctx, service.SyncModeIncremental)
	})

	// 全量同步：每日凌晨 3 点
	_, _ = t.cron.AddFunc("0 0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Hour)
		defer cancel()
		log.Println("[CatalogSyncTask] 开始每日全量目录同步...")
		t.syncAllShops(ctx, service.SyncModeFull)
	})

	t.cron.Start()
	log.Println("[CatalogSyncTask] 已启动 (增量每30分钟/全量每日3点)")
}

// Stop 停止任务
func (t *CatalogSyncTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[CatalogSyncTask] 已停止")
}

// syncAllShops 同步所有店铺的目录
func (t *CatalogSyncTask) syncAllShops(ctx context.Context, mode service.SyncMode) {
	syncType := "增量"
	if mode == service.SyncModeFull {
		syncType = "全量"
	}
	log.Printf("[CatalogSyncTask] 开始%s目录同步...", syncType)

	shops, _, err := t.shopRepo.List(ctx, repository.ShopFilter{
		Status:   1,
		PageSize: 1000,
	})
	if err != nil {
		log.Printf("[CatalogSyncTask] 获取店铺列表失败: %v", err)
		return
	}

	if len(shops) == 0 {
		log.Println("[CatalogSyncTask] 无活跃店铺需要同步")
		return
	}

	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup

	var (
		successCount int
		failCount    int
		totalChanges int
		mu           sync.Mutex
	)

	log.Printf("[CatalogSyncTask] 开始处理 %d 个店铺", len(shops))

	for i := range shops {
		shop := shops[i]
		select {
		case <-ctx.Done():
			log.Println("[CatalogSyncTask] 任务超时停止")
			wg.Wait()
			return
		default:
		}

		sem <- struct{}{}
		wg.Add(1)
		time.Sleep(t.sleepTime)

		go func(shopID int64, shopName string) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := t.syncService.RunSync(ctx, shopID, mode)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case errors.Is(err, service.ErrSyncInProgress):
				// 手动触发或上一轮还没跑完，本轮跳过即可
				log.Printf("[CatalogSyncTask] 店铺 %s(%d) 正在同步中，跳过", shopName, shopID)
			case err != nil:
				log.Printf("[CatalogSyncTask] 店铺 %s(%d) 同步失败: %v", shopName, shopID, err)
				failCount++
			default:
				successCount++
				totalChanges += result.HistoryEntries
				if result.Inserted > 0 || result.Updated > 0 || result.Deleted > 0 {
					log.Printf("[CatalogSyncTask] 店铺 %s: 新增 %d, 更新 %d, 删除 %d",
						shopName, result.Inserted, result.Updated, result.Deleted)
				}
				if result.PartialFailure {
					log.Printf("[CatalogSyncTask] 店铺 %s: 本轮有 %d 个商品被跳过", shopName, len(result.SkippedIDs))
				}
			}
		}(shop.ID, shop.ShopName)
	}

	wg.Wait()
	log.Printf("[CatalogSyncTask] %s同步完成: 店铺成功 %d, 失败 %d, 变更记录 %d",
		syncType, successCount, failCount, totalChanges)
}

// ==================== 手动触发 ====================

// SyncShopNow 立即同步单个店铺目录
func (t *CatalogSyncTask) SyncShopNow(ctx context.Context, shopID int64, mode service.SyncMode) (*service.SyncResult, error) {
	return t.syncService.RunSync(ctx, shopID, mode)
}

// SyncAllNow 立即同步所有店铺目录
func (t *CatalogSyncTask) SyncAllNow(mode service.SyncMode) {
	go func() {
		timeout := 1 * time.Hour
		if mode == service.SyncModeFull {
			timeout = 4 * time.Hour
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		t.syncAllShops(ctx, mode)
	}()
}
