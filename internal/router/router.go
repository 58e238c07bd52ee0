package router

import (
	"github.com/gin-gonic/gin"

	"shopee_sync_v1_202608/internal/controller"
	"shopee_sync_v1_202608/internal/middleware"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	authCtl *controller.AuthController,
	shopCtl *controller.ShopController,
	productCtl *controller.ProductController,
	syncCtl *controller.SyncController,
	historyCtl *controller.HistoryController,
	webhookCtl *controller.WebhookController) {

	// 1. Webhook 路由：平台回调不带我们的 JWT，单独挂在认证之外
	r.POST("/api/webhook/shopee", webhookCtl.HandlePush)

	// 2. 登录路由：签发管理端 JWT
	r.POST("/api/auth/login", authCtl.Login)

	// 3. 管理 API 路由组
	api := r.Group("/api")
	api.Use(middleware.JWTAuth())
	{
		// task 后台任务
		api.GET("/tasks/status", syncCtl.TaskStatus)

		// sync 全局批量触发（重操作，统一走全量冷却）
		api.POST("/sync/all",
			middleware.GlobalSyncRateLimit(middleware.SyncTypeFull, 0),
			syncCtl.TriggerAllSync)

		// shop 店铺管理
		shops := api.Group("/shops")
		{
			shops.POST("", shopCtl.CreateShop)
			shops.GET("", shopCtl.GetShopList)
			shops.GET("/:id", shopCtl.GetShopDetail)
			shops.POST("/:id/stop", shopCtl.StopShop)
			shops.POST("/:id/resume", shopCtl.ResumeShop)
			shops.POST("/:id/token/refresh",
				middleware.SyncRateLimit(middleware.SyncTypeToken, 0),
				shopCtl.RefreshToken)

			// product 本地商品镜像（只读）
			shops.GET("/:id/products", productCtl.GetProductList)
			shops.GET("/:id/products/stats", productCtl.GetProductStats)
			shops.GET("/:id/products/:itemId", productCtl.GetProductDetail)

			// sync 同步触发与状态（冷却维度跟随 mode 参数）
			shops.POST("/:id/sync",
				middleware.SyncRateLimitByMode(),
				syncCtl.TriggerSync)
			shops.GET("/:id/sync/state", syncCtl.GetSyncState)

			// history 变更历史
			shops.GET("/:id/history", historyCtl.ListHistory)
			shops.GET("/:id/history/unread", historyCtl.CountUnread)
			shops.POST("/:id/history/read", historyCtl.MarkRead)
		}
	}
}
