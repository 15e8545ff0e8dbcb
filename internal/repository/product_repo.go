package repository

import (
	"context"

	"gorm.io/gorm"

	"lazada_sync_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// ProductRepository 商品仓储接口
type ProductRepository interface {
	// 基础 CRUD
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	GetForMerchant(ctx context.Context, merchantID, id int64) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	ListByIDs(ctx context.Context, merchantID int64, ids []int64) ([]model.Product, error)

	// SKU 全局唯一校验（excludeID 用于更新时排除自身）
	ExistsBySKU(ctx context.Context, sku string, excludeID int64) (bool, error)

	// 批量操作
	BulkUpdateStatus(ctx context.Context, merchantID int64, ids []int64, status string) (int64, error)

	// 统计
	Stats(ctx context.Context, merchantID int64) (*ProductStats, error)
	CountSynced(ctx context.Context, merchantID int64) (total, synced int64, err error)
}

// ==================== 过滤条件 ====================

// 库存筛选档位
const (
	StockFilterInStock    = "in_stock"
	StockFilterLowStock   = "low_stock"
	StockFilterOutOfStock = "out_of_stock"
)

// ProductFilter 商品过滤条件
type ProductFilter struct {
	MerchantID  int64
	Status      string
	StockFilter string
	Search      string
	SortBy      string
	SortOrder   string
	Page        int
	PerPage     int
}

// ProductStats 商品统计
type ProductStats struct {
	TotalProducts    int64   `json:"total_products"`
	ActiveProducts   int64   `json:"active_products"`
	InactiveProducts int64   `json:"inactive_products"`
	DraftProducts    int64   `json:"draft_products"`
	OutOfStock       int64   `json:"out_of_stock"`
	LowStock         int64   `json:"low_stock"`
	TotalValue       float64 `json:"total_value"`
}

// ==================== 仓储实现 ====================

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) GetForMerchant(ctx context.Context, merchantID, id int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND merchant_id = ?", id, merchantID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *productRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Product{}, id).Error
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("merchant_id = ?", filter.MerchantID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR sku LIKE ? OR description LIKE ?", like, like, like)
	}
	switch filter.StockFilter {
	case StockFilterInStock:
		query = query.Where("stock > 0")
	case StockFilterLowStock:
		query = query.Where("stock > 0 AND stock <= ?", model.LowStockThreshold)
	case StockFilterOutOfStock:
		query = query.Where("stock <= 0")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	// 白名单，防止排序字段注入
	switch sortBy {
	case "created_at", "updated_at", "name", "price", "stock", "sku":
	default:
		sortBy = "created_at"
	}
	order := "DESC"
	if filter.SortOrder == "asc" {
		order = "ASC"
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 15
	}

	offset := (filter.Page - 1) * filter.PerPage
	err := query.
		Order(sortBy + " " + order).
		Limit(filter.PerPage).
		Offset(offset).
		Find(&products).Error

	return products, total, err
}

func (r *productRepo) ListByIDs(ctx context.Context, merchantID int64, ids []int64) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND id IN ?", merchantID, ids).
		Find(&products).Error
	return products, err
}

func (r *productRepo) ExistsBySKU(ctx context.Context, sku string, excludeID int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("sku = ?", sku)
	if excludeID > 0 {
		query = query.Where("id != ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *productRepo) BulkUpdateStatus(ctx context.Context, merchantID int64, ids []int64, status string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("merchant_id = ? AND id IN ?", merchantID, ids).
		Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *productRepo) Stats(ctx context.Context, merchantID int64) (*ProductStats, error) {
	stats := &ProductStats{}
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.Product{}).Where("merchant_id = ?", merchantID)
	}

	if err := base().Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", model.ProductStatusActive).Count(&stats.ActiveProducts).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", model.ProductStatusInactive).Count(&stats.InactiveProducts).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", model.ProductStatusDraft).Count(&stats.DraftProducts).Error; err != nil {
		return nil, err
	}
	if err := base().Where("stock <= 0").Count(&stats.OutOfStock).Error; err != nil {
		return nil, err
	}
	if err := base().Where("stock > 0 AND stock <= ?", model.LowStockThreshold).Count(&stats.LowStock).Error; err != nil {
		return nil, err
	}

	// COALESCE 防止空表 sum 为 NULL
	err := base().
		Where("status = ?", model.ProductStatusActive).
		Select("COALESCE(SUM(price), 0)").
		Scan(&stats.TotalValue).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *productRepo) CountSynced(ctx context.Context, merchantID int64) (int64, int64, error) {
	var total, synced int64
	base := r.db.WithContext(ctx).Model(&model.Product{}).Where("merchant_id = ?", merchantID)

	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err := base.Session(&gorm.Session{}).
		Where("last_synced_at IS NOT NULL").
		Count(&synced).Error
	return total, synced, err
}
