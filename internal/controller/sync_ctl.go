package controller

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopee_sync_v1_202608/internal/middleware"
	"shopee_sync_v1_202608/internal/service"
	"shopee_sync_v1_202608/internal/task"
)

// SyncController 同步控制器
// 手动触发统一走 TaskManager，和定时任务共用同一条执行入口
type SyncController struct {
	syncService *service.SyncService
	tasks       *task.TaskManager
}

// NewSyncController 创建同步控制器
func NewSyncController(syncService *service.SyncService, tasks *task.TaskManager) *SyncController {
	return &SyncController{
		syncService: syncService,
		tasks:       tasks,
	}
}

// ==================== Handler 实现 ====================

// TriggerSync 手动触发单店铺同步（同步执行，返回本轮结果）
// @Summary 触发店铺目录同步
// @Tags Sync
// @Param id path int true "店铺 ID"
// @Param mode query string false "full 或 incremental，默认 incremental"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "该店铺已在同步中"
// @Router /api/shops/{id}/sync [post]
func (c *SyncController) TriggerSync(ctx *gin.Context) {
	shopID := parseID(ctx, "id")
	if shopID == 0 {
		return
	}

	mode := service.SyncModeIncremental
	if ctx.Query("mode") == string(service.SyncModeFull) {
		mode = service.SyncModeFull
	}

	log.Printf("[SyncCtl] 操作员 %s 手动触发店铺 %d %s同步",
		middleware.GetOperator(ctx), shopID, mode)

	result, err := c.tasks.TriggerShopSync(ctx.Request.Context(), shopID, mode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSyncInProgress):
			ctx.JSON(http.StatusConflict, gin.H{"code": 409, "message": err.Error()})
		case errors.Is(err, task.ErrTaskDisabled):
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"code": 503, "message": "同步任务未启用"})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "同步完成",
		"data":    result,
	})
}

// TriggerAllSync 触发全部店铺同步（后台异步执行）
// @Summary 触发全部店铺目录同步
// @Tags Sync
// @Param mode query string false "full 或 incremental，默认 incremental"
// @Success 202 {object} map[string]interface{}
// @Router /api/sync/all [post]
func (c *SyncController) TriggerAllSync(ctx *gin.Context) {
	mode := service.SyncModeIncremental
	if ctx.Query("mode") == string(service.SyncModeFull) {
		mode = service.SyncModeFull
	}

	log.Printf("[SyncCtl] 操作员 %s 触发全部店铺%s同步", middleware.GetOperator(ctx), mode)
	c.tasks.TriggerAllShopsSync(mode)

	ctx.JSON(http.StatusAccepted, gin.H{"code": 202, "message": "批量同步已在后台执行"})
}

// GetSyncState 查询店铺同步水位与手动触发冷却状态
// @Summary 查询店铺同步状态
// @Tags Sync
// @Param id path int true "店铺 ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/shops/{id}/sync/state [get]
func (c *SyncController) GetSyncState(ctx *gin.Context) {
	shopID := parseID(ctx, "id")
	if shopID == 0 {
		return
	}

	state, err := c.syncService.GetState(ctx.Request.Context(), shopID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}
	if state == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "该店铺还未同步过"})
		return
	}

	allowed, retryAfter := middleware.ManualSyncCooldown(shopID, middleware.SyncTypeIncremental)
	ctx.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"state":               state,
			"manual_sync_allowed": allowed,
			"retry_after":         int(retryAfter.Seconds()),
		},
	})
}

// TaskStatus 查询后台任务启用状态
// @Summary 查询后台任务状态
// @Tags Sync
// @Success 200 {object} map[string]interface{}
// @Router /api/tasks/status [get]
func (c *SyncController) TaskStatus(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": c.tasks.Status()})
}
