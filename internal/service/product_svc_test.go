package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"lazada_sync_v1_202608/internal/model"
	"lazada_sync_v1_202608/internal/repository"
)

// ==================== 测试模型 ====================

// 测试用商品表结构，tags 存为普通文本列
type TestCatalogProduct struct {
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

func (TestCatalogProduct) TableName() string { return "products" }

func setupProductTest(t *testing.T) ProductService {
	db := setupServiceTestDB(t)
	if err := db.AutoMigrate(&TestCatalogProduct{}); err != nil {
		t.Fatalf("商品表迁移失败: %v", err)
	}
	return NewProductService(repository.NewProductRepository(db))
}

func createCatalogProduct(t *testing.T, svc ProductService, merchantID int64, sku string, stock int) *model.Product {
	p, err := svc.Create(context.Background(), merchantID, &ProductInput{
		Name:  "Widget " + sku,
		Price: 19.9,
		SKU:   sku,
		Stock: stock,
	})
	if err != nil {
		t.Fatalf("创建商品失败: %v", err)
	}
	return p
}

// ==================== 创建测试 ====================

func TestProductService_Create_DefaultsToDraft(t *testing.T) {
	svc := setupProductTest(t)

	p := createCatalogProduct(t, svc, 1, "SKU-1", 10)
	if p.Status != model.ProductStatusDraft {
		t.Errorf("默认状态 = %s, want draft", p.Status)
	}
}

func TestProductService_Create_SKUConflict(t *testing.T) {
	svc := setupProductTest(t)
	createCatalogProduct(t, svc, 1, "SKU-1", 10)

	// SKU 全局唯一，换个商家也冲突
	_, err := svc.Create(context.Background(), 2, &ProductInput{
		Name: "Clone", Price: 1, SKU: "SKU-1",
	})
	if !errors.Is(err, ErrSKUTaken) {
		t.Errorf("err = %v, want ErrSKUTaken", err)
	}
}

// ==================== 更新测试 ====================

func TestProductService_Update_PartialPatch(t *testing.T) {
	svc := setupProductTest(t)
	p := createCatalogProduct(t, svc, 1, "SKU-1", 10)

	price := 29.9
	updated, err := svc.Update(context.Background(), 1, p.ID, &ProductPatch{Price: &price})
	if err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	if updated.Price != 29.9 {
		t.Errorf("Price = %.2f, want 29.9", updated.Price)
	}
	// 未指定字段不变
	if updated.Name != p.Name || updated.Stock != 10 {
		t.Error("未指定字段被意外修改")
	}
}

func TestProductService_Update_SKUConflict(t *testing.T) {
	svc := setupProductTest(t)
	createCatalogProduct(t, svc, 1, "SKU-1", 10)
	p2 := createCatalogProduct(t, svc, 1, "SKU-2", 10)

	taken := "SKU-1"
	_, err := svc.Update(context.Background(), 1, p2.ID, &ProductPatch{SKU: &taken})
	if !errors.Is(err, ErrSKUTaken) {
		t.Errorf("err = %v, want ErrSKUTaken", err)
	}

	// 改回自己的 SKU 不算冲突
	own := "SKU-2"
	if _, err := svc.Update(context.Background(), 1, p2.ID, &ProductPatch{SKU: &own}); err != nil {
		t.Errorf("提交自身 SKU 不应报错: %v", err)
	}
}

func TestProductService_MerchantScope(t *testing.T) {
	svc := setupProductTest(t)
	p := createCatalogProduct(t, svc, 1, "SKU-1", 10)

	// 商家 2 访问商家 1 的商品
	if _, err := svc.Get(context.Background(), 2, p.ID); err == nil {
		t.Error("跨商家访问应失败")
	}
	if err := svc.Delete(context.Background(), 2, p.ID); err == nil {
		t.Error("跨商家删除应失败")
	}
}

// ==================== 库存测试 ====================

func TestProductService_SetStock_ClampsNegative(t *testing.T) {
	svc := setupProductTest(t)
	p := createCatalogProduct(t, svc, 1, "SKU-1", 10)

	updated, err := svc.SetStock(context.Background(), 1, p.ID, -5)
	if err != nil {
		t.Fatalf("SetStock 失败: %v", err)
	}
	if updated.Stock != 0 {
		t.Errorf("Stock = %d, want 0", updated.Stock)
	}
}

func TestProductService_AdjustStock(t *testing.T) {
	svc := setupProductTest(t)
	p := createCatalogProduct(t, svc, 1, "SKU-1", 10)

	updated, err := svc.AdjustStock(context.Background(), 1, p.ID, 5)
	if err != nil {
		t.Fatalf("加库存失败: %v", err)
	}
	if updated.Stock != 15 {
		t.Errorf("Stock = %d, want 15", updated.Stock)
	}

	updated, err = svc.AdjustStock(context.Background(), 1, p.ID, -15)
	if err != nil {
		t.Fatalf("扣库存失败: %v", err)
	}
	if updated.Stock != 0 {
		t.Errorf("Stock = %d, want 0", updated.Stock)
	}

	// 超扣直接拒绝，库存不动
	if _, err := svc.AdjustStock(context.Background(), 1, p.ID, -1); !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("err = %v, want ErrInsufficientStock", err)
	}
	current, _ := svc.Get(context.Background(), 1, p.ID)
	if current.Stock != 0 {
		t.Errorf("拒绝后库存 = %d, want 0", current.Stock)
	}
}
