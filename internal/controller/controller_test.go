package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lazada_sync_v1_202608/internal/middleware"
	"lazada_sync_v1_202608/internal/model"
	"lazada_sync_v1_202608/internal/repository"
	"lazada_sync_v1_202608/internal/service"
	"lazada_sync_v1_202608/internal/task"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==================== 测试模型 ====================

// 测试用商品表结构，tags 存为普通文本列
type TestCtlProduct struct {
	ID           int64 `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt
	MerchantID   int64
	Name         string
	Description  string
	Price        float64
	SKU          string `gorm:"column:sku;uniqueIndex"`
	Stock        int
	ImageURL     string
	Tags         string
	Status       string
	SyncData     []byte
	LastSyncedAt *time.Time
}

func (TestCtlProduct) TableName() string { return "products" }

// ==================== 测试辅助 ====================

type ctlTestEnv struct {
	db     *gorm.DB
	router *gin.Engine
	pool   *task.SyncWorkerPool
}

func setupCtlTest(t *testing.T) *ctlTestEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	err = db.AutoMigrate(
		&model.Merchant{},
		&TestCtlProduct{},
		&model.PlatformConnection{},
		&model.SyncLog{},
	)
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	merchantRepo := repository.NewMerchantRepository(db)
	productRepo := repository.NewProductRepository(db)
	connRepo := repository.NewConnectionRepository(db)
	logRepo := repository.NewSyncLogRepository(db)

	lazada := service.NewLazadaService(&service.LazadaConfig{
		APIBaseURL:  "http://unused.invalid",
		AuthBaseURL: "http://unused.invalid",
		AppKey:      "k",
		AppSecret:   "s",
	}, connRepo)

	authSvc := service.NewAuthService(merchantRepo)
	productSvc := service.NewProductService(productRepo)
	connSvc := service.NewConnectionService(connRepo, lazada)
	syncSvc := service.NewSyncService(productRepo, connRepo, logRepo, lazada)

	pool := task.NewSyncWorkerPool(syncSvc, task.SyncWorkerConfig{Workers: 1, QueueSize: 4})
	// 测试里不启动 worker，只验证受理语义

	authCtrl := NewAuthController(authSvc)
	productCtrl := NewProductController(productSvc)
	syncCtrl := NewSyncController(productSvc, connSvc, logRepo, pool)

	r := gin.New()
	r.Use(gin.Recovery())
	api := r.Group("/api/v1")
	{
		api.POST("/auth/register", authCtrl.Register)
		api.POST("/auth/login", authCtrl.Login)

		authed := api.Group("")
		authed.Use(middleware.JWTAuth())
		{
			authed.GET("/auth/me", authCtrl.Me)
			authed.POST("/auth/logout", authCtrl.Logout)
			authed.POST("/products", productCtrl.Create)
			authed.GET("/products/:id", productCtrl.Get)
			authed.POST("/products/:id/stock/adjust", productCtrl.AdjustStock)
			authed.POST("/products/:id/sync", syncCtrl.SyncProduct)
			authed.GET("/products/:id/sync/status", syncCtrl.SyncStatus)
			authed.POST("/sync/bulk", syncCtrl.BulkSync)
			authed.GET("/dashboard", syncCtrl.Dashboard)
		}
	}

	return &ctlTestEnv{db: db, router: r, pool: pool}
}

func (e *ctlTestEnv) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// register 注册商家并返回 access token
func (e *ctlTestEnv) register(t *testing.T, email string) string {
	w := e.request("POST", "/api/v1/auth/register", "", map[string]interface{}{
		"name":     "Test Shop",
		"email":    email,
		"password": "secret-password",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("注册失败: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.AccessToken
}

// connect 给商家直接落一条有效连接
func (e *ctlTestEnv) connect(t *testing.T, merchantID int64) {
	exp := time.Now().Add(2 * time.Hour)
	err := e.db.Create(&model.PlatformConnection{
		MerchantID:     merchantID,
		PlatformName:   model.PlatformLazada,
		AccessToken:    "valid-token",
		RefreshToken:   "refresh",
		TokenExpiresAt: &exp,
		Status:         model.ConnectionStatusActive,
	}).Error
	if err != nil {
		t.Fatalf("创建测试连接失败: %v", err)
	}
}

// ==================== 认证接口测试 ====================

func TestAuthAPI_RegisterAndLogin(t *testing.T) {
	env := setupCtlTest(t)

	token := env.register(t, "shop@example.com")
	assert.NotEmpty(t, token)

	// 重复邮箱 422
	w := env.request("POST", "/api/v1/auth/register", "", map[string]interface{}{
		"name": "Dup", "email": "shop@example.com", "password": "secret-password",
	})
	assert.Equal(t, 422, w.Code)

	// 登录成功
	w = env.request("POST", "/api/v1/auth/login", "", map[string]interface{}{
		"email": "shop@example.com", "password": "secret-password",
	})
	assert.Equal(t, 200, w.Code)

	// 密码错误 401
	w = env.request("POST", "/api/v1/auth/login", "", map[string]interface{}{
		"email": "shop@example.com", "password": "wrong",
	})
	assert.Equal(t, 401, w.Code)
}

func TestAuthAPI_InactiveAccountForbidden(t *testing.T) {
	env := setupCtlTest(t)
	env.register(t, "shop@example.com")

	env.db.Model(&model.Merchant{}).
		Where("email = ?", "shop@example.com").
		Update("status", model.MerchantStatusInactive)

	// 密码对不对都是 403
	w := env.request("POST", "/api/v1/auth/login", "", map[string]interface{}{
		"email": "shop@example.com", "password": "secret-password",
	})
	assert.Equal(t, 403, w.Code)

	w = env.request("POST", "/api/v1/auth/login", "", map[string]interface{}{
		"email": "shop@example.com", "password": "wrong",
	})
	assert.Equal(t, 403, w.Code)
}

func TestAuthAPI_ProtectedRouteNeedsToken(t *testing.T) {
	env := setupCtlTest(t)

	w := env.request("GET", "/api/v1/auth/me", "", nil)
	assert.Equal(t, 401, w.Code)

	w = env.request("GET", "/api/v1/auth/me", "garbage-token", nil)
	assert.Equal(t, 401, w.Code)

	token := env.register(t, "shop@example.com")
	w = env.request("GET", "/api/v1/auth/me", token, nil)
	assert.Equal(t, 200, w.Code)
}

// ==================== 商品接口测试 ====================

func TestProductAPI_CreateAndScope(t *testing.T) {
	env := setupCtlTest(t)
	tokenA := env.register(t, "a@example.com")
	tokenB := env.register(t, "b@example.com")

	w := env.request("POST", "/api/v1/products", tokenA, map[string]interface{}{
		"name": "Widget", "price": 19.9, "sku": "SKU-1", "stock": 10,
	})
	assert.Equal(t, 201, w.Code)

	var created struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)

	// 本商家可见
	w = env.request("GET", "/api/v1/products/1", tokenA, nil)
	assert.Equal(t, 200, w.Code)

	// 其他商家 404
	w = env.request("GET", "/api/v1/products/1", tokenB, nil)
	assert.Equal(t, 404, w.Code)

	// SKU 冲突 422
	w = env.request("POST", "/api/v1/products", tokenB, map[string]interface{}{
		"name": "Clone", "price": 1, "sku": "SKU-1",
	})
	assert.Equal(t, 422, w.Code)
}

func TestProductAPI_StockAdjustRejectsOverdraw(t *testing.T) {
	env := setupCtlTest(t)
	token := env.register(t, "shop@example.com")

	env.request("POST", "/api/v1/products", token, map[string]interface{}{
		"name": "Widget", "price": 19.9, "sku": "SKU-1", "stock": 5,
	})

	w := env.request("POST", "/api/v1/products/1/stock/adjust", token, map[string]interface{}{
		"delta": -10,
	})
	assert.Equal(t, 422, w.Code)

	w = env.request("POST", "/api/v1/products/1/stock/adjust", token, map[string]interface{}{
		"delta": -5,
	})
	assert.Equal(t, 200, w.Code)
}

// ==================== 同步接口测试 ====================

func TestSyncAPI_AcceptsJob(t *testing.T) {
	env := setupCtlTest(t)
	token := env.register(t, "shop@example.com")
	env.connect(t, 1)

	env.request("POST", "/api/v1/products", token, map[string]interface{}{
		"name": "Widget", "price": 19.9, "sku": "SKU-1", "stock": 5,
	})

	w := env.request("POST", "/api/v1/products/1/sync", token, map[string]interface{}{
		"action": "create",
	})
	assert.Equal(t, 202, w.Code)

	var resp struct {
		JobID  string `json:"job_id"`
		Action string `json:"action"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, "create", resp.Action)
}

func TestSyncAPI_RejectsWithoutConnection(t *testing.T) {
	env := setupCtlTest(t)
	token := env.register(t, "shop@example.com")

	env.request("POST", "/api/v1/products", token, map[string]interface{}{
		"name": "Widget", "price": 19.9, "sku": "SKU-1",
	})

	// 没有有效连接时在受理阶段就拒绝，不入队
	w := env.request("POST", "/api/v1/products/1/sync", token, map[string]interface{}{
		"action": "create",
	})
	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "No active Lazada connection found")
	assert.Equal(t, 0, env.pool.QueueDepth())

	w = env.request("POST", "/api/v1/sync/bulk", token, map[string]interface{}{
		"ids": []int64{1}, "action": "create",
	})
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, 0, env.pool.QueueDepth())
}

func TestSyncAPI_InvalidAction(t *testing.T) {
	env := setupCtlTest(t)
	token := env.register(t, "shop@example.com")

	env.request("POST", "/api/v1/products", token, map[string]interface{}{
		"name": "Widget", "price": 19.9, "sku": "SKU-1",
	})

	w := env.request("POST", "/api/v1/products/1/sync", token, map[string]interface{}{
		"action": "publish",
	})
	assert.Equal(t, 422, w.Code)
}

func TestSyncAPI_QueueFull(t *testing.T) {
	env := setupCtlTest(t)
	token := env.register(t, "shop@example.com")
	env.connect(t, 1)

	env.request("POST", "/api/v1/products", token, map[string]interface{}{
		"name": "Widget", "price": 19.9, "sku": "SKU-1",
	})

	// worker 未启动，塞满队列后返回 503
	body := map[string]interface{}{"action": "update"}
	for i := 0; i < 4; i++ {
		w := env.request("POST", "/api/v1/products/1/sync", token, body)
		assert.Equal(t, 202, w.Code)
	}
	w := env.request("POST", "/api/v1/products/1/sync", token, body)
	assert.Equal(t, 503, w.Code)
}

func TestSyncAPI_OtherMerchantsProduct(t *testing.T) {
	env := setupCtlTest(t)
	tokenA := env.register(t, "a@example.com")
	tokenB := env.register(t, "b@example.com")

	env.request("POST", "/api/v1/products", tokenA, map[string]interface{}{
		"name": "Widget", "price": 19.9, "sku": "SKU-1",
	})

	// 别人的商品不能排同步任务
	w := env.request("POST", "/api/v1/products/1/sync", tokenB, map[string]interface{}{
		"action": "create",
	})
	assert.Equal(t, 404, w.Code)
}

func TestSyncAPI_BulkSkipsForeignProducts(t *testing.T) {
	env := setupCtlTest(t)
	tokenA := env.register(t, "a@example.com")
	tokenB := env.register(t, "b@example.com")

	env.connect(t, 1)
	env.request("POST", "/api/v1/products", tokenA, map[string]interface{}{
		"name": "Widget A", "price": 19.9, "sku": "SKU-A",
	})
	env.request("POST", "/api/v1/products", tokenB, map[string]interface{}{
		"name": "Widget B", "price": 29.9, "sku": "SKU-B",
	})

	// 商家 A 批量同步时，商家 B 的商品被跳过
	w := env.request("POST", "/api/v1/sync/bulk", tokenA, map[string]interface{}{
		"ids": []int64{1, 2}, "action": "update",
	})
	assert.Equal(t, 202, w.Code)

	var resp struct {
		Accepted []struct {
			ProductID int64 `json:"product_id"`
		} `json:"accepted"`
		Skipped []int64 `json:"skipped"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Len(t, resp.Accepted, 1)
	assert.Equal(t, int64(1), resp.Accepted[0].ProductID)
	assert.Equal(t, []int64{2}, resp.Skipped)
}

func TestSyncAPI_StatusForUnsyncedProduct(t *testing.T) {
	env := setupCtlTest(t)
	token := env.register(t, "shop@example.com")

	env.request("POST", "/api/v1/products", token, map[string]interface{}{
		"name": "Widget", "price": 19.9, "sku": "SKU-1",
	})

	w := env.request("GET", "/api/v1/products/1/sync/status", token, nil)
	assert.Equal(t, 200, w.Code)

	var resp struct {
		Data struct {
			ProductID    int64       `json:"product_id"`
			IsSynced     bool        `json:"is_synced"`
			LastSyncedAt interface{} `json:"last_synced_at"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, int64(1), resp.Data.ProductID)
	assert.False(t, resp.Data.IsSynced)
	assert.Nil(t, resp.Data.LastSyncedAt)
}

// ==================== 看板接口测试 ====================

func TestDashboardAPI_SyncCoverage(t *testing.T) {
	env := setupCtlTest(t)
	token := env.register(t, "shop@example.com")

	env.request("POST", "/api/v1/products", token, map[string]interface{}{
		"name": "Widget A", "price": 19.9, "sku": "SKU-A",
	})
	env.request("POST", "/api/v1/products", token, map[string]interface{}{
		"name": "Widget B", "price": 29.9, "sku": "SKU-B",
	})

	// 标记其中一个为已同步
	now := time.Now()
	env.db.Model(&TestCtlProduct{}).Where("id = ?", 1).Update("last_synced_at", &now)

	w := env.request("GET", "/api/v1/dashboard", token, nil)
	assert.Equal(t, 200, w.Code)

	var resp struct {
		Coverage struct {
			TotalProducts  int64 `json:"total_products"`
			SyncedProducts int64 `json:"synced_products"`
		} `json:"coverage"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, int64(2), resp.Coverage.TotalProducts)
	assert.Equal(t, int64(1), resp.Coverage.SyncedProducts)
}

// ==================== 登出接口测试 ====================

func TestAuthAPI_Logout(t *testing.T) {
	env := setupCtlTest(t)
	token := env.register(t, "shop@example.com")

	w := env.request("POST", "/api/v1/auth/logout", token, nil)
	assert.Equal(t, 200, w.Code)

	// 未携带令牌时登出也要求登录
	w = env.request("POST", "/api/v1/auth/logout", "", nil)
	assert.Equal(t, 401, w.Code)
}
