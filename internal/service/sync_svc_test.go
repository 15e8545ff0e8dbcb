package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"lazada_sync_v1_202608/internal/model"
	"lazada_sync_v1_202608/internal/repository"
)

// ==================== 测试模型 ====================

// 测试用商品模型，避开 text[] 等 PG 专属类型
type TestSyncProduct struct {
	ID           int64 `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt
	MerchantID   int64
	Name         string
	Description  string
	Price        float64
	SKU          string `gorm:"column:sku"`
	Stock        int
	ImageURL     string
	Status       string
	SyncData     []byte
	LastSyncedAt *time.Time
}

func (TestSyncProduct) TableName() string { return "products" }

// ==================== 测试辅助 ====================

type syncTestEnv struct {
	db          *gorm.DB
	productRepo repository.ProductRepository
	connRepo    repository.ConnectionRepository
	logRepo     repository.SyncLogRepository
	syncSvc     SyncService
}

func setupSyncTest(t *testing.T, apiURL string) *syncTestEnv {
	db := setupServiceTestDB(t)
	if err := db.AutoMigrate(&TestSyncProduct{}); err != nil {
		t.Fatalf("商品表迁移失败: %v", err)
	}

	productRepo := repository.NewProductRepository(db)
	connRepo := repository.NewConnectionRepository(db)
	logRepo := repository.NewSyncLogRepository(db)

	lazada := NewLazadaService(&LazadaConfig{
		APIBaseURL:  apiURL,
		AuthBaseURL: apiURL,
		AppKey:      "test-app-key",
		AppSecret:   "test-app-secret",
		RedirectURI: "http://localhost/callback",
		Timeout:     5 * time.Second,
	}, connRepo)

	return &syncTestEnv{
		db:          db,
		productRepo: productRepo,
		connRepo:    connRepo,
		logRepo:     logRepo,
		syncSvc:     NewSyncService(productRepo, connRepo, logRepo, lazada),
	}
}

func (e *syncTestEnv) createProduct(t *testing.T, p *TestSyncProduct) *TestSyncProduct {
	if err := e.db.Create(p).Error; err != nil {
		t.Fatalf("创建测试商品失败: %v", err)
	}
	return p
}

func (e *syncTestEnv) activeConnection(t *testing.T, merchantID int64) {
	err := e.db.Create(&model.PlatformConnection{
		MerchantID:     merchantID,
		PlatformName:   model.PlatformLazada,
		AccessToken:    "valid-token",
		RefreshToken:   "refresh",
		TokenExpiresAt: timePtr(time.Now().Add(2 * time.Hour)),
		Status:         model.ConnectionStatusActive,
	}).Error
	if err != nil {
		t.Fatalf("创建测试连接失败: %v", err)
	}
}

func (e *syncTestEnv) productSyncInfo(t *testing.T, id int64) model.ProductSyncData {
	var p TestSyncProduct
	if err := e.db.First(&p, id).Error; err != nil {
		t.Fatalf("重读商品失败: %v", err)
	}
	var info model.ProductSyncData
	if len(p.SyncData) > 0 {
		json.Unmarshal(p.SyncData, &info)
	}
	return info
}

func (e *syncTestEnv) logsFor(t *testing.T, merchantID int64) []model.SyncLog {
	logs, _, err := e.logRepo.List(context.Background(), repository.SyncLogFilter{MerchantID: merchantID})
	if err != nil {
		t.Fatalf("查询流水失败: %v", err)
	}
	return logs
}

// okLazadaServer 返回建档成功响应的模拟平台
func okLazadaServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/seller/get"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"code": "0",
				"data": map[string]interface{}{"name": "Test Seller"},
			})
		case strings.Contains(r.URL.Path, "/product/create"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"code": "0",
				"data": map[string]interface{}{
					"item_id": float64(987654),
					"sku_list": []interface{}{
						map[string]interface{}{"sku_id": float64(111222)},
					},
				},
			})
		default:
			json.NewEncoder(w).Encode(map[string]interface{}{"code": "0", "data": map[string]interface{}{}})
		}
	}))
}

// ==================== 前置条件测试 ====================

func TestSyncService_NoConnection(t *testing.T) {
	env := setupSyncTest(t, "http://unused.invalid")
	p := env.createProduct(t, &TestSyncProduct{MerchantID: 1, Name: "Widget", SKU: "W-1", Price: 10, Stock: 5, Status: "active"})

	job := NewSyncJob(1, p.ID, model.SyncActionCreate, nil)
	err := env.syncSvc.Execute(context.Background(), job)
	if !errors.Is(err, ErrNoConnection) {
		t.Fatalf("err = %v, want ErrNoConnection", err)
	}

	// 失败也要落一条流水
	logs := env.logsFor(t, 1)
	if len(logs) != 1 {
		t.Fatalf("流水数 = %d, want 1", len(logs))
	}
	if logs[0].Status != model.SyncStatusFailed {
		t.Errorf("流水状态 = %s, want failed", logs[0].Status)
	}
	if logs[0].ActionType != "product_create" {
		t.Errorf("ActionType = %s, want product_create", logs[0].ActionType)
	}
	if logs[0].AffectedItems != 1 {
		t.Errorf("AffectedItems = %d, want 1", logs[0].AffectedItems)
	}

	// 商品元数据也要记录失败
	info := env.productSyncInfo(t, p.ID)
	if info.LastSyncStatus != "error" {
		t.Errorf("last_sync_status = %s, want error", info.LastSyncStatus)
	}
	if info.LastError == "" {
		t.Error("last_error 应记录失败原因")
	}
}

func TestSyncService_StockUpdateRequiresPriorSync(t *testing.T) {
	ts := okLazadaServer()
	defer ts.Close()

	env := setupSyncTest(t, ts.URL)
	env.activeConnection(t, 1)
	// 从未同步过的商品没有 seller_sku
	p := env.createProduct(t, &TestSyncProduct{MerchantID: 1, Name: "Widget", SKU: "W-1", Price: 10, Stock: 5, Status: "active"})

	job := NewSyncJob(1, p.ID, model.SyncActionStockUpdate, nil)
	err := env.syncSvc.Execute(context.Background(), job)
	if !errors.Is(err, ErrNotYetSynced) {
		t.Fatalf("err = %v, want ErrNotYetSynced", err)
	}

	logs := env.logsFor(t, 1)
	if len(logs) != 1 || logs[0].Status != model.SyncStatusFailed {
		t.Fatalf("应有一条失败流水, got %d", len(logs))
	}
	if logs[0].ActionType != "product_stock_update" {
		t.Errorf("ActionType = %s, want product_stock_update", logs[0].ActionType)
	}

	info := env.productSyncInfo(t, p.ID)
	if info.LastSyncStatus != "error" {
		t.Errorf("last_sync_status = %s, want error", info.LastSyncStatus)
	}
}

func TestSyncService_UnknownActionRejected(t *testing.T) {
	env := setupSyncTest(t, "http://unused.invalid")
	p := env.createProduct(t, &TestSyncProduct{MerchantID: 1, SKU: "W-1"})

	job := NewSyncJob(1, p.ID, model.SyncAction("publish"), nil)
	if err := env.syncSvc.Execute(context.Background(), job); err == nil {
		t.Error("未知动作应直接拒绝")
	}
}

// ==================== 成功路径测试 ====================

func TestSyncService_CreateSuccess(t *testing.T) {
	ts := okLazadaServer()
	defer ts.Close()

	env := setupSyncTest(t, ts.URL)
	env.activeConnection(t, 1)
	p := env.createProduct(t, &TestSyncProduct{MerchantID: 1, Name: "Widget", SKU: "W-1", Price: 19.9, Stock: 5, Status: "active"})

	job := NewSyncJob(1, p.ID, model.SyncActionCreate, nil)
	if err := env.syncSvc.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute 失败: %v", err)
	}

	// 平台侧标识落入 sync_data
	info := env.productSyncInfo(t, p.ID)
	if info.ItemID != 987654 {
		t.Errorf("item_id = %d, want 987654", info.ItemID)
	}
	if info.SkuID != 111222 {
		t.Errorf("sku_id = %d, want 111222", info.SkuID)
	}
	if info.SellerSKU != "W-1" {
		t.Errorf("seller_sku = %s, want W-1", info.SellerSKU)
	}
	if info.LastSyncStatus != "success" {
		t.Errorf("last_sync_status = %s, want success", info.LastSyncStatus)
	}

	var saved TestSyncProduct
	env.db.First(&saved, p.ID)
	if saved.LastSyncedAt == nil {
		t.Error("last_synced_at 应被更新")
	}

	// 成功流水
	logs := env.logsFor(t, 1)
	if len(logs) != 1 {
		t.Fatalf("流水数 = %d, want 1", len(logs))
	}
	if logs[0].Status != model.SyncStatusSuccess {
		t.Errorf("流水状态 = %s, want success", logs[0].Status)
	}
	if len(logs[0].RequestData) == 0 || len(logs[0].ResponseData) == 0 {
		t.Error("流水应带请求/响应快照")
	}
}

func TestSyncService_CreateCapturesFlatSkuID(t *testing.T) {
	// 建档响应的 sku_id 也可能直接平铺在 data 下
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/product/create"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"code": "0",
				"data": map[string]interface{}{
					"item_id": float64(987654),
					"sku_id":  float64(333444),
				},
			})
		default:
			json.NewEncoder(w).Encode(map[string]interface{}{"code": "0", "data": map[string]interface{}{}})
		}
	}))
	defer ts.Close()

	env := setupSyncTest(t, ts.URL)
	env.activeConnection(t, 1)
	p := env.createProduct(t, &TestSyncProduct{MerchantID: 1, Name: "Widget", SKU: "W-1", Price: 19.9, Stock: 5, Status: "active"})

	job := NewSyncJob(1, p.ID, model.SyncActionCreate, nil)
	if err := env.syncSvc.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute 失败: %v", err)
	}

	info := env.productSyncInfo(t, p.ID)
	if info.SkuID != 333444 {
		t.Errorf("sku_id = %d, want 333444", info.SkuID)
	}
	if info.ItemID != 987654 {
		t.Errorf("item_id = %d, want 987654", info.ItemID)
	}
}

func TestSyncService_StockUpdateWithSellerSKU(t *testing.T) {
	ts := okLazadaServer()
	defer ts.Close()

	env := setupSyncTest(t, ts.URL)
	env.activeConnection(t, 1)

	syncData, _ := json.Marshal(model.ProductSyncData{
		ItemID: 987654, SkuID: 111222, SellerSKU: "W-1",
		LastSyncAction: "create", LastSyncStatus: "success",
	})
	p := env.createProduct(t, &TestSyncProduct{
		MerchantID: 1, Name: "Widget", SKU: "W-1", Price: 19.9, Stock: 5,
		Status: "active", SyncData: syncData, LastSyncedAt: timePtr(time.Now()),
	})

	newStock := 99
	job := NewSyncJob(1, p.ID, model.SyncActionStockUpdate, &SyncOverrides{Stock: &newStock})
	if err := env.syncSvc.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute 失败: %v", err)
	}

	info := env.productSyncInfo(t, p.ID)
	if info.LastSyncAction != "stock_update" {
		t.Errorf("last_sync_action = %s, want stock_update", info.LastSyncAction)
	}
	// 之前的平台标识不丢
	if info.ItemID != 987654 {
		t.Errorf("item_id = %d, 应保留 987654", info.ItemID)
	}
}

func TestSyncService_DeleteDeactivates(t *testing.T) {
	var gotPayload map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/seller/get"):
			json.NewEncoder(w).Encode(map[string]interface{}{"code": "0", "data": map[string]interface{}{}})
		case strings.Contains(r.URL.Path, "/product/update"):
			r.ParseForm()
			json.Unmarshal([]byte(r.FormValue("payload")), &gotPayload)
			json.NewEncoder(w).Encode(map[string]interface{}{"code": "0", "data": map[string]interface{}{}})
		default:
			json.NewEncoder(w).Encode(map[string]interface{}{"code": "0"})
		}
	}))
	defer ts.Close()

	env := setupSyncTest(t, ts.URL)
	env.activeConnection(t, 1)

	syncData, _ := json.Marshal(model.ProductSyncData{ItemID: 555, SellerSKU: "W-1"})
	p := env.createProduct(t, &TestSyncProduct{
		MerchantID: 1, Name: "Widget", SKU: "W-1", Price: 10, Stock: 5,
		Status: "active", SyncData: syncData,
	})

	job := NewSyncJob(1, p.ID, model.SyncActionDelete, nil)
	if err := env.syncSvc.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute 失败: %v", err)
	}

	// 删除走的是带 ItemId 的下架更新
	if gotPayload == nil {
		t.Fatal("平台未收到更新请求")
	}
	product := gotPayload["Request"].(map[string]interface{})["Product"].(map[string]interface{})
	if product["ItemId"] != float64(555) {
		t.Errorf("ItemId = %v, want 555", product["ItemId"])
	}

	info := env.productSyncInfo(t, p.ID)
	if info.LastSyncAction != "delete" {
		t.Errorf("last_sync_action = %s, want delete", info.LastSyncAction)
	}
}

// ==================== 终态处理测试 ====================

func TestSyncService_HandlePermanentFailure_Idempotent(t *testing.T) {
	env := setupSyncTest(t, "http://unused.invalid")
	p := env.createProduct(t, &TestSyncProduct{MerchantID: 1, SKU: "W-1"})

	job := NewSyncJob(1, p.ID, model.SyncActionCreate, nil)
	cause := errors.New("upstream timeout")

	env.syncSvc.HandlePermanentFailure(context.Background(), job, cause)
	first := env.productSyncInfo(t, p.ID)
	if first.LastSyncStatus != "error" || first.LastError != "upstream timeout" {
		t.Fatalf("终态落库不正确: %+v", first)
	}

	// 重复调用不改变结果
	env.syncSvc.HandlePermanentFailure(context.Background(), job, cause)
	second := env.productSyncInfo(t, p.ID)
	if second != first {
		t.Errorf("重复调用改变了终态: %+v -> %+v", first, second)
	}
}
