package task

import (
	"context"
	"log"
	"time"

	"shopee_sync_v1_202608/internal/repository"
	"shopee_sync_v1_202608/internal/service"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台定时任务
// 管理范围：目录同步、凭证保活
type TaskManager struct {
	syncTask  *CatalogSyncTask
	tokenTask *TokenTask
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	// Repositories
	ShopRepo repository.ShopRepository

	// Services
	SyncService *service.SyncService
	AuthService *service.AuthService
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	// 目录同步
	SyncEnabled     bool
	SyncConcurrency int

	// 凭证保活
	TokenEnabled     bool
	TokenConcurrency int
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		SyncEnabled:     true,
		SyncConcurrency: 3,

		TokenEnabled:     true,
		TokenConcurrency: 10,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{}

	// 目录同步任务
	if cfg.SyncEnabled && deps.SyncService != nil {
		tm.syncTask = NewCatalogSyncTask(deps.ShopRepo, deps.SyncService)
		tm.syncTask.SetConcurrency(cfg.SyncConcurrency, 300*time.Millisecond)
	}

	// 凭证保活任务
	if cfg.TokenEnabled && deps.AuthService != nil {
		tm.tokenTask = NewTokenTask(deps.ShopRepo, deps.AuthService)
		tm.tokenTask.concurrencyLimit = cfg.TokenConcurrency
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() {
	log.Println("[TaskManager] 正在启动后台任务...")

	if tm.tokenTask != nil {
		tm.tokenTask.Start()
	}
	if tm.syncTask != nil {
		tm.syncTask.Start()
	}

	log.Println("[TaskManager] 后台任务已全部启动")
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	log.Println("[TaskManager] 正在停止后台任务...")

	if tm.syncTask != nil {
		tm.syncTask.Stop()
	}
	if tm.tokenTask != nil {
		tm.tokenTask.Stop()
	}

	log.Println("[TaskManager] 后台任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerShopSync 触发单店铺目录同步
func (tm *TaskManager) TriggerShopSync(ctx context.Context, shopID int64, mode service.SyncMode) (*service.SyncResult, error) {
	if tm.syncTask == nil {
		return nil, ErrTaskDisabled
	}
	return tm.syncTask.SyncShopNow(ctx, shopID, mode)
}

// TriggerAllShopsSync 触发所有店铺目录同步
func (tm *TaskManager) TriggerAllShopsSync(mode service.SyncMode) {
	if tm.syncTask != nil {
		tm.syncTask.SyncAllNow(mode)
	}
}

// TriggerTokenRefresh 触发单店铺凭证续期
func (tm *TaskManager) TriggerTokenRefresh(ctx context.Context, shopID int64) error {
	if tm.tokenTask == nil {
		return ErrTaskDisabled
	}
	return tm.tokenTask.RefreshShopNow(ctx, shopID)
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"sync":  tm.syncTask != nil,
		"token": tm.tokenTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
