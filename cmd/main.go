package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"shopee_sync_v1_202608/internal/controller"
	"shopee_sync_v1_202608/internal/model"
	"shopee_sync_v1_202608/internal/repository"
	"shopee_sync_v1_202608/internal/router"
	"shopee_sync_v1_202608/internal/service"
	"shopee_sync_v1_202608/internal/task"
	"shopee_sync_v1_202608/pkg/database"
	"shopee_sync_v1_202608/pkg/shopee"
)

func main() {
	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动定时任务
	deps.Tasks.Start()
	defer deps.Tasks.Stop()

	// 4. 初始化路由
	r := gin.Default()
	router.InitRoutes(r,
		deps.Controllers.Auth,
		deps.Controllers.Shop,
		deps.Controllers.Product,
		deps.Controllers.Sync,
		deps.Controllers.History,
		deps.Controllers.Webhook,
	)

	// 5. 启动服务
	startServer(r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Client      *shopee.Client
	Services    *Services
	Controllers *Controllers
	Tasks       *task.TaskManager
}

// Repositories 仓库集合
type Repositories struct {
	Shop      repository.ShopRepository
	Product   repository.ProductRepository
	History   repository.HistoryRepository
	SyncState repository.SyncStateRepository
}

// Services 服务集合
type Services struct {
	Auth    *service.AuthService
	Sync    *service.SyncService
	History *service.HistoryService
}

// Controllers 控制器集合
type Controllers struct {
	Auth    *controller.AuthController
	Shop    *controller.ShopController
	Product *controller.ProductController
	Sync    *controller.SyncController
	History *controller.HistoryController
	Webhook *controller.WebhookController
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	dsn := getEnv("DATABASE_DSN",
		"host=localhost user=postgres password=postgres dbname=shopee_sync port=5432 sslmode=disable")

	return database.InitDB(dsn,
		// Shop
		&model.Partner{}, &model.Shop{},
		// Product
		&model.Product{}, &model.ProductVariant{}, &model.ProductOption{},
		// History
		&model.HistoryLog{},
		// Sync
		&model.SyncState{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Shop:      repository.NewShopRepository(db),
		Product:   repository.NewProductRepository(db),
		History:   repository.NewHistoryRepository(db),
		SyncState: repository.NewSyncStateRepository(db),
	}

	// -------- 平台客户端 --------
	// AuthService 既是凭证来源又依赖客户端续期，先建服务再回填客户端
	authSvc := service.NewAuthService(repos.Shop)
	client := shopee.NewClient(getEnv("SHOPEE_API_BASE", "https://partner.shopeemobile.com"), authSvc)
	authSvc.SetClient(client)

	// -------- 业务服务 --------
	services := &Services{
		Auth:    authSvc,
		Sync:    service.NewSyncService(repos.Shop, repos.Product, repos.History, repos.SyncState, client),
		History: service.NewHistoryService(repos.History, repos.Shop),
	}

	// -------- 定时任务 --------
	// 手动触发接口也走 TaskManager，先于 Controller 创建
	tasks := task.NewTaskManager(&task.TaskManagerDeps{
		ShopRepo:    repos.Shop,
		SyncService: services.Sync,
		AuthService: services.Auth,
	}, nil)

	// -------- Controller 层 --------
	controllers := &Controllers{
		Auth: controller.NewAuthController(
			getEnv("ADMIN_USERNAME", "admin"),
			getEnv("ADMIN_PASSWORD", "admin123")),
		Shop:    controller.NewShopController(repos.Shop, services.Auth, tasks),
		Product: controller.NewProductController(repos.Product),
		Sync:    controller.NewSyncController(services.Sync, tasks),
		History: controller.NewHistoryController(services.History),
		Webhook: controller.NewWebhookController(services.History),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Client:      client,
		Services:    services,
		Controllers: controllers,
		Tasks:       tasks,
	}
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
