package controller

import (
	"github.com/gin-gonic/gin"

	"shopee_sync_v1_202608/internal/repository"
	"shopee_sync_v1_202608/internal/service"
)

// HistoryController 变更历史控制器
type HistoryController struct {
	historyService *service.HistoryService
}

// NewHistoryController 创建变更历史控制器
func NewHistoryController(historyService *service.HistoryService) *HistoryController {
	return &HistoryController{historyService: historyService}
}

// ==================== Handler 实现 ====================

// ListHistory 分页查询变更历史
// @Summary 查询店铺变更历史
// @Tags History
// @Param id path int true "店铺 ID"
// @Param item_id query int false "按商品过滤"
// @Param kind query string false "变更类型"
// @Param severity query string false "严重级别"
// @Param unread query bool false "只看未读"
// @Param page query int false "页码"
// @Param page_size query int false "页大小"
// @Success 200 {object} map[string]interface{}
// @Router /api/shops/{id}/history [get]
func (c *HistoryController) ListHistory(ctx *gin.Context) {
	shopID := parseID(ctx, "id")
	if shopID == 0 {
		return
	}

	filter := repository.HistoryFilter{
		ShopID:     shopID,
		ItemID:     int64(parseIntQuery(ctx, "item_id", 0)),
		Kind:       ctx.Query("kind"),
		Severity:   ctx.Query("severity"),
		UnreadOnly: ctx.Query("unread") == "true",
		Page:       parseIntQuery(ctx, "page", 1),
		PageSize:   parseIntQuery(ctx, "page_size", 20),
	}

	entries, total, err := c.historyService.List(ctx.Request.Context(), filter)
	if err != nil {
		ctx.JSON(500, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{
		"code": 200,
		"data": gin.H{
			"list":  entries,
			"total": total,
			"page":  filter.Page,
		},
	})
}

// markReadReq 已读标记请求体
type markReadReq struct {
	IDs []int64 `json:"ids"` // 为空表示全部未读
}

// MarkRead 标记已读
// @Summary 标记变更历史已读
// @Tags History
// @Param id path int true "店铺 ID"
// @Param body body markReadReq true "条目 ID 列表，空数组表示全部"
// @Success 200 {object} map[string]interface{}
// @Router /api/shops/{id}/history/read [post]
func (c *HistoryController) MarkRead(ctx *gin.Context) {
	shopID := parseID(ctx, "id")
	if shopID == 0 {
		return
	}

	var req markReadReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	affected, err := c.historyService.MarkRead(ctx.Request.Context(), shopID, req.IDs)
	if err != nil {
		ctx.JSON(500, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{
		"code": 200,
		"data": gin.H{"marked": affected},
	})
}

// CountUnread 未读条数
// @Summary 查询未读变更条数
// @Tags History
// @Param id path int true "店铺 ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/shops/{id}/history/unread [get]
func (c *HistoryController) CountUnread(ctx *gin.Context) {
	shopID := parseID(ctx, "id")
	if shopID == 0 {
		return
	}

	count, err := c.historyService.CountUnread(ctx.Request.Context(), shopID)
	if err != nil {
		ctx.JSON(500, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{"code": 200, "data": gin.H{"unread": count}})
}
