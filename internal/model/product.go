package model

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Product 状态常量
const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
	ProductStatusDraft    = "draft"
)

// 库存档位
const (
	StockStatusInStock    = "in_stock"
	StockStatusLowStock   = "low_stock"
	StockStatusOutOfStock = "out_of_stock"
)

// LowStockThreshold 低库存阈值
const LowStockThreshold = 10

type Product struct {
	BaseModel
	MerchantID int64     `gorm:"index:idx_merchant_status;not null" json:"merchant_id"`
	Merchant   *Merchant `gorm:"foreignKey:MerchantID" json:"-"`

	Name        string         `gorm:"size:255;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Price       float64        `gorm:"type:decimal(10,2);not null" json:"price"`
	SKU         string         `gorm:"column:sku;size:100;uniqueIndex;not null" json:"sku"` // 全局唯一，跨商家
	Stock       int            `gorm:"default:0" json:"stock"`
	ImageURL    string         `gorm:"size:255" json:"image_url"`
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags"`
	Status      string         `gorm:"size:20;default:'draft';index:idx_merchant_status" json:"status"`

	// 同步元数据：平台侧 item_id / sku_id、最后一次动作与结果
	SyncData     datatypes.JSON `gorm:"type:jsonb" json:"sync_data"`
	LastSyncedAt *time.Time     `json:"last_synced_at"`
}

func (Product) TableName() string {
	return "products"
}

// ProductSyncData SyncData 字段的结构化视图
type ProductSyncData struct {
	ItemID         int64  `json:"item_id,omitempty"`
	SkuID          int64  `json:"sku_id,omitempty"`
	SellerSKU      string `json:"seller_sku,omitempty"`
	LastSyncAction string `json:"last_sync_action,omitempty"`
	LastSyncStatus string `json:"last_sync_status,omitempty"`
	LastError      string `json:"last_error,omitempty"`
}

// SyncInfo 解析 SyncData，空值或损坏时返回零值
func (p *Product) SyncInfo() ProductSyncData {
	var info ProductSyncData
	if len(p.SyncData) == 0 {
		return info
	}
	_ = json.Unmarshal(p.SyncData, &info)
	return info
}

// SetSyncInfo 回写 SyncData
func (p *Product) SetSyncInfo(info ProductSyncData) {
	raw, err := json.Marshal(info)
	if err != nil {
		return
	}
	p.SyncData = raw
}

// IsSynced 是否已在平台侧建档（拿到过 item_id）
func (p *Product) IsSynced() bool {
	return p.LastSyncedAt != nil && p.SyncInfo().ItemID != 0
}

func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// StockStatus 库存档位，前端列表筛选用
func (p *Product) StockStatus() string {
	switch {
	case p.Stock <= 0:
		return StockStatusOutOfStock
	case p.Stock <= LowStockThreshold:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}
