package dto

import "time"

// ==================== 创建/更新 ====================

// CreateProductRequest 创建商品请求
type CreateProductRequest struct {
	Name        string   `json:"name" binding:"required,max=255"`
	Description string   `json:"description" binding:"omitempty"`
	Price       float64  `json:"price" binding:"required,gt=0"`
	SKU         string   `json:"sku" binding:"required,max=100"`
	Stock       int      `json:"stock" binding:"omitempty,gte=0"`
	ImageURL    string   `json:"image_url" binding:"omitempty,url,max=255"`
	Tags        []string `json:"tags" binding:"omitempty,max=20"`
	Status      string   `json:"status" binding:"omitempty,oneof=active inactive draft"`
}

// UpdateProductRequest 更新商品请求，nil 字段不修改
type UpdateProductRequest struct {
	Name        *string  `json:"name" binding:"omitempty,max=255"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0"`
	SKU         *string  `json:"sku" binding:"omitempty,max=100"`
	Stock       *int     `json:"stock" binding:"omitempty,gte=0"`
	ImageURL    *string  `json:"image_url" binding:"omitempty,url,max=255"`
	Tags        []string `json:"tags" binding:"omitempty,max=20"`
	Status      *string  `json:"status" binding:"omitempty,oneof=active inactive draft"`
}

// ==================== 列表 ====================

// ProductListRequest 商品列表请求
type ProductListRequest struct {
	Status      string `form:"status" binding:"omitempty,oneof=active inactive draft"`
	StockFilter string `form:"stock" binding:"omitempty,oneof=in_stock low_stock out_of_stock"`
	Search      string `form:"search"`
	SortBy      string `form:"sort_by"`
	SortOrder   string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
	Page        int    `form:"page,default=1"`
	PerPage     int    `form:"per_page,default=15"`
}

// ProductInfo 商品信息
type ProductInfo struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Price        float64    `json:"price"`
	SKU          string     `json:"sku"`
	Stock        int        `json:"stock"`
	StockStatus  string     `json:"stock_status"`
	ImageURL     string     `json:"image_url"`
	Tags         []string   `json:"tags"`
	Status       string     `json:"status"`
	IsSynced     bool       `json:"is_synced"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ProductListResponse 商品列表响应
type ProductListResponse struct {
	List    []*ProductInfo `json:"list"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}

// ==================== 库存 ====================

// SetStockRequest 库存设置请求
type SetStockRequest struct {
	Stock int `json:"stock" binding:"gte=0"`
}

// AdjustStockRequest 库存增减请求
type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// ==================== 批量操作 ====================

// BulkStatusRequest 批量状态更新请求
type BulkStatusRequest struct {
	IDs    []int64 `json:"ids" binding:"required,min=1,max=100"`
	Status string  `json:"status" binding:"required,oneof=active inactive draft"`
}
