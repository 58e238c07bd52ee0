package controller

import (
	"log"

	"github.com/gin-gonic/gin"

	"shopee_sync_v1_202608/internal/service"
	"shopee_sync_v1_202608/pkg/shopee"
)

// WebhookController 平台推送接收
// 验签在接入层网关完成，这里只消费载荷
type WebhookController struct {
	historyService *service.HistoryService
}

// NewWebhookController 创建推送控制器
func NewWebhookController(historyService *service.HistoryService) *WebhookController {
	return &WebhookController{historyService: historyService}
}

// HandlePush 接收一条推送事件并入账
// @Summary Shopee 推送接收
// @Tags Webhook
// @Param body body shopee.PushEvent true "推送事件"
// @Success 200 {object} map[string]interface{}
// @Router /api/webhook/shopee [post]
func (c *WebhookController) HandlePush(ctx *gin.Context) {
	var event shopee.PushEvent
	if err := ctx.ShouldBindJSON(&event); err != nil {
		ctx.JSON(400, gin.H{"code": 400, "message": "载荷解析失败: " + err.Error()})
		return
	}

	entry, err := c.historyService.HandlePush(ctx.Request.Context(), &event)
	if err != nil {
		// 推送方会按非 2xx 重试，入账失败要让它重发
		log.Printf("[Webhook] 推送入账失败 code=%d shop=%d: %v", event.Code, event.ShopID, err)
		ctx.JSON(500, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{
		"code": 200,
		"data": gin.H{"entry_id": entry.ID},
	})
}
