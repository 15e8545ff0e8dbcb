package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"lazada_sync_v1_202608/internal/controller"
	"lazada_sync_v1_202608/internal/middleware"
	"lazada_sync_v1_202608/internal/model"
	"lazada_sync_v1_202608/internal/repository"
	"lazada_sync_v1_202608/internal/router"
	"lazada_sync_v1_202608/internal/service"
	"lazada_sync_v1_202608/internal/task"
	"lazada_sync_v1_202608/pkg/database"
)

func main() {
	// .env 缺失不是错误，容器环境直接用环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动后台任务
	initTasks(deps)

	// 4. 初始化路由
	r := gin.Default()
	router.InitRoutes(r, deps.Controllers.Auth, deps.Controllers.Product,
		deps.Controllers.Connection, deps.Controllers.Sync)

	// 5. 启动服务
	startServer(r, deps)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers *Controllers
	TokenTask   *task.TokenTask
	WorkerPool  *task.SyncWorkerPool
}

// Repositories 仓库集合
type Repositories struct {
	Merchant   repository.MerchantRepository
	Product    repository.ProductRepository
	Connection repository.ConnectionRepository
	SyncLog    repository.SyncLogRepository
}

// Services 服务集合
type Services struct {
	Auth       service.AuthService
	Product    service.ProductService
	Connection service.ConnectionService
	Sync       service.SyncService
	Lazada     *service.LazadaService
}

// Controllers 控制器集合
type Controllers struct {
	Auth       *controller.AuthController
	Product    *controller.ProductController
	Connection *controller.ConnectionController
	Sync       *controller.SyncController
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	dsn := getEnv("DATABASE_DSN", "")
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Shanghai",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_NAME", "lazada_sync"),
			getEnv("DB_PORT", "5432"),
		)
	}

	return database.InitDB(dsn,
		&model.Merchant{},
		&model.Product{},
		&model.PlatformConnection{},
		&model.SyncLog{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- JWT 配置 --------
	if secret := getEnv("JWT_SECRET", ""); secret != "" {
		cfg := middleware.DefaultJWTConfig()
		cfg.SecretKey = secret
		middleware.SetJWTConfig(cfg)
	}

	// -------- Repo 层 --------
	repos := &Repositories{
		Merchant:   repository.NewMerchantRepository(db),
		Product:    repository.NewProductRepository(db),
		Connection: repository.NewConnectionRepository(db),
		SyncLog:    repository.NewSyncLogRepository(db),
	}

	// -------- 平台客户端 --------
	lazadaSvc := service.NewLazadaService(&service.LazadaConfig{
		APIBaseURL:  getEnv("LAZADA_API_URL", "https://api.lazada.com/rest"),
		AuthBaseURL: getEnv("LAZADA_AUTH_URL", "https://auth.lazada.com"),
		AppKey:      getEnv("LAZADA_APP_KEY", ""),
		AppSecret:   getEnv("LAZADA_APP_SECRET", ""),
		RedirectURI: getEnv("LAZADA_REDIRECT_URI", "http://localhost:8080/api/v1/connections/lazada/callback"),
	}, repos.Connection)

	// -------- 业务服务 --------
	services := &Services{
		Lazada:     lazadaSvc,
		Auth:       service.NewAuthService(repos.Merchant),
		Product:    service.NewProductService(repos.Product),
		Connection: service.NewConnectionService(repos.Connection, lazadaSvc),
		Sync:       service.NewSyncService(repos.Product, repos.Connection, repos.SyncLog, lazadaSvc),
	}

	// -------- 后台任务 --------
	workerPool := task.NewSyncWorkerPool(services.Sync, task.SyncWorkerConfig{
		Workers:   getEnvInt("SYNC_WORKERS", 4),
		QueueSize: getEnvInt("SYNC_QUEUE_SIZE", 256),
	})
	tokenTask := task.NewTokenTask(repos.Connection, lazadaSvc)

	// -------- Controller 层 --------
	controllers := &Controllers{
		Auth:       controller.NewAuthController(services.Auth),
		Product:    controller.NewProductController(services.Product),
		Connection: controller.NewConnectionController(services.Connection),
		Sync:       controller.NewSyncController(services.Product, services.Connection, repos.SyncLog, workerPool),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
		TokenTask:   tokenTask,
		WorkerPool:  workerPool,
	}
}

// ==================== 后台任务 ====================

// initTasks 启动后台任务
func initTasks(deps *Dependencies) {
	deps.WorkerPool.Start()
	deps.TokenTask.Start()
	log.Println("后台任务已启动")
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine, deps *Dependencies) {
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

	// 先停后台任务，把在途同步跑完再关 HTTP
	deps.TokenTask.Stop()
	deps.WorkerPool.Stop()

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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
