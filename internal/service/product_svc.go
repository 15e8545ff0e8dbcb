package service

import (
	"context"

	"lazada_sync_v1_202608/internal/model"
	"lazada_sync_v1_202608/internal/repository"
)

// ==================== 接口定义 ====================

// ProductService 商品服务，所有操作都限定在当前商家范围内
type ProductService interface {
	Create(ctx context.Context, merchantID int64, input *ProductInput) (*model.Product, error)
	Get(ctx context.Context, merchantID, productID int64) (*model.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]model.Product, int64, error)
	// ListByIDs 按 ID 集合取商品，自动过滤掉不属于该商家的 ID
	ListByIDs(ctx context.Context, merchantID int64, ids []int64) ([]model.Product, error)
	Update(ctx context.Context, merchantID, productID int64, patch *ProductPatch) (*model.Product, error)
	Delete(ctx context.Context, merchantID, productID int64) error

	// 库存操作
	SetStock(ctx context.Context, merchantID, productID int64, stock int) (*model.Product, error)
	AdjustStock(ctx context.Context, merchantID, productID int64, delta int) (*model.Product, error)

	// 批量与统计
	BulkUpdateStatus(ctx context.Context, merchantID int64, ids []int64, status string) (int64, error)
	Stats(ctx context.Context, merchantID int64) (*repository.ProductStats, error)
	// SyncedCount 商品总数与已同步到平台的数量
	SyncedCount(ctx context.Context, merchantID int64) (total, synced int64, err error)
}

// ProductInput 创建商品的输入
type ProductInput struct {
	Name        string
	Description string
	Price       float64
	SKU         string
	Stock       int
	ImageURL    string
	Tags        []string
	Status      string
}

// ProductPatch 商品更新，nil 字段不修改
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *float64
	SKU         *string
	Stock       *int
	ImageURL    *string
	Tags        []string
	Status      *string
}

// ==================== 实现 ====================

type productService struct {
	productRepo repository.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

// Create 创建商品，SKU 全局唯一
func (s *productService) Create(ctx context.Context, merchantID int64, input *ProductInput) (*model.Product, error) {
	taken, err := s.productRepo.ExistsBySKU(ctx, input.SKU, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSKUTaken
	}

	status := input.Status
	if status == "" {
		status = model.ProductStatusDraft
	}
	stock := input.Stock
	if stock < 0 {
		stock = 0
	}

	product := &model.Product{
		MerchantID:  merchantID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		SKU:         input.SKU,
		Stock:       stock,
		ImageURL:    input.ImageURL,
		Tags:        input.Tags,
		Status:      status,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) Get(ctx context.Context, merchantID, productID int64) (*model.Product, error) {
	return s.productRepo.GetForMerchant(ctx, merchantID, productID)
}

func (s *productService) List(ctx context.Context, filter repository.ProductFilter) ([]model.Product, int64, error) {
	return s.productRepo.List(ctx, filter)
}

func (s *productService) ListByIDs(ctx context.Context, merchantID int64, ids []int64) ([]model.Product, error) {
	return s.productRepo.ListByIDs(ctx, merchantID, ids)
}

// Update 按 patch 局部更新
func (s *productService) Update(ctx context.Context, merchantID, productID int64, patch *ProductPatch) (*model.Product, error) {
	product, err := s.productRepo.GetForMerchant(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}

	if patch.SKU != nil && *patch.SKU != product.SKU {
		taken, err := s.productRepo.ExistsBySKU(ctx, *patch.SKU, product.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrSKUTaken
		}
		product.SKU = *patch.SKU
	}
	if patch.Name != nil {
		product.Name = *patch.Name
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Stock != nil {
		stock := *patch.Stock
		if stock < 0 {
			stock = 0
		}
		product.Stock = stock
	}
	if patch.ImageURL != nil {
		product.ImageURL = *patch.ImageURL
	}
	if patch.Tags != nil {
		product.Tags = patch.Tags
	}
	if patch.Status != nil {
		product.Status = *patch.Status
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) Delete(ctx context.Context, merchantID, productID int64) error {
	product, err := s.productRepo.GetForMerchant(ctx, merchantID, productID)
	if err != nil {
		return err
	}
	return s.productRepo.Delete(ctx, product.ID)
}

// SetStock 库存置为绝对值，负数按 0 处理
func (s *productService) SetStock(ctx context.Context, merchantID, productID int64, stock int) (*model.Product, error) {
	product, err := s.productRepo.GetForMerchant(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}

	if stock < 0 {
		stock = 0
	}
	product.Stock = stock
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// AdjustStock 增减库存，扣减超过现有库存则拒绝
func (s *productService) AdjustStock(ctx context.Context, merchantID, productID int64, delta int) (*model.Product, error) {
	product, err := s.productRepo.GetForMerchant(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}

	next := product.Stock + delta
	if next < 0 {
		return nil, ErrInsufficientStock
	}
	product.Stock = next
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) BulkUpdateStatus(ctx context.Context, merchantID int64, ids []int64, status string) (int64, error) {
	return s.productRepo.BulkUpdateStatus(ctx, merchantID, ids, status)
}

func (s *productService) Stats(ctx context.Context, merchantID int64) (*repository.ProductStats, error) {
	return s.productRepo.Stats(ctx, merchantID)
}

func (s *productService) SyncedCount(ctx context.Context, merchantID int64) (total, synced int64, err error) {
	return s.productRepo.CountSynced(ctx, merchantID)
}
