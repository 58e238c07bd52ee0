package task

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"shopee_sync_v1_202608/internal/model"
	"shopee_sync_v1_202608/internal/repository"
	"shopee_sync_v1_202608/internal/service"
)

// TokenTask 凭证保活任务
// 提前续期即将过期的 access_token，避免同步任务在途中撞上 401
type TokenTask struct {
	ShopRepo    repository.ShopRepository
	AuthService *service.AuthService
	Cron        *cron.Cron

	// 控制并发续期的数量，防止把刷新接口打满
	concurrencyLimit int
	sleepTime        time.Duration
	refreshWithin    time.Duration
}

func NewTokenTask(shopRepo repository.ShopRepository, authService *service.AuthService) *TokenTask {
	return &TokenTask{
		ShopRepo:         shopRepo,
		AuthService:      authService,
		Cron:             cron.New(cron.WithSeconds()), // 支持秒级控制
		concurrencyLimit: 10,
		sleepTime:        50 * time.Millisecond, // 每个协程启动间隔，平滑波峰
		refreshWithin:    1 * time.Hour,         // 过期前 1 小时内的都续
	}
}

// Start 启动定时任务
func (t *TokenTask) Start() {
	// 首次执行
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		log.Println("[TokenTask] 服务启动，正在执行首次凭证检查...")
		t.refreshJob(ctx)
	}()

	// 定时策略
	_, err := t.Cron.AddFunc("0 0/40 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		t.refreshJob(ctx)
	})

	if err != nil {
		log.Fatalf("无法启动凭证定时任务: %v", err)
	}

	t.Cron.Start()
	log.Println("[TokenTask] 凭证保活任务已启动 (每40分钟检查一次)")
}

// Stop 停止任务
func (t *TokenTask) Stop() {
	ctx := t.Cron.Stop()
	<-ctx.Done()
	log.Println("[TokenTask] 已停止")
}

// refreshJob 自动续期逻辑
func (t *TokenTask) refreshJob(ctx context.Context) {
	shops, err := t.ShopRepo.FindExpiringShops(ctx, t.refreshWithin)
	if err != nil {
		log.Printf("[TokenTask] 店铺过期状态查询失败: %v", err)
		return
	}

	if len(shops) == 0 {
		return
	}

	// 1. 定义信号量通道，容量即为并发上限
	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup

	log.Printf("[TokenTask] 开始处理 %d 个店铺的凭证续期，并发上限: %d", len(shops), t.concurrencyLimit)

	for _, shop := range shops {
		// 检查上下文是否已取消（超时处理）
		select {
		case <-ctx.Done():
			log.Println("[TokenTask] 任务超时停止")
			wg.Wait()
			return
		default:
		}

		// 2. 获取信号量（如果已满则阻塞在此，起到限流作用）
		sem <- struct{}{}
		wg.Add(1)

		// 3. 平滑波峰
		time.Sleep(t.sleepTime)

		go func(s model.Shop) {
			defer wg.Done()
			defer func() { <-sem }() // 任务结束释放信号量

			if err := t.AuthService.RefreshShopToken(ctx, &s); err != nil {
				// 日志仅记录，不中断其他协程
				log.Printf("[TokenTask] 店铺 [%s] 续期失败: %v", s.ShopName, err)
			}
		}(shop)
	}

	// 4. 等待所有 Goroutine 完成
	wg.Wait()
	log.Println("[TokenTask] 本轮凭证续期任务完成")
}

// RefreshShopNow 立即续期单个店铺
func (t *TokenTask) RefreshShopNow(ctx context.Context, shopID int64) error {
	shop, err := t.ShopRepo.GetByID(ctx, shopID)
	if err != nil {
		return err
	}
	return t.AuthService.RefreshShopToken(ctx, shop)
}
