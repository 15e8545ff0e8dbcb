package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// 平台标识
const (
	PlatformLazada    = "lazada"
	PlatformShopee    = "shopee"
	PlatformTokopedia = "tokopedia"
)

// Connection 状态常量
const (
	ConnectionStatusActive       = "active"
	ConnectionStatusDisconnected = "disconnected"
	ConnectionStatusExpired      = "expired"
	ConnectionStatusError        = "error"
)

// TokenRefreshWindow Token 到期前多久视为"即将过期"，触发刷新
const TokenRefreshWindow = time.Hour

// PlatformConnection 商家在某平台的 OAuth 授权凭证
// (merchant_id, platform_name) 联合唯一：每个商家每个平台最多一条
type PlatformConnection struct {
	BaseModel
	MerchantID   int64     `gorm:"uniqueIndex:idx_merchant_platform;not null" json:"merchant_id"`
	Merchant     *Merchant `gorm:"foreignKey:MerchantID" json:"-"`
	PlatformName string    `gorm:"size:20;uniqueIndex:idx_merchant_platform;not null" json:"platform_name"`

	// Token 凭证，永不下发
	AccessToken    string     `gorm:"type:text" json:"-"`
	RefreshToken   string     `gorm:"type:text" json:"-"`
	TokenExpiresAt *time.Time `json:"token_expires_at"`

	// 平台侧附加信息：seller/国家信息、最后一次错误
	ConnectionData datatypes.JSON `gorm:"type:jsonb" json:"connection_data"`

	Status      string     `gorm:"size:20;default:'active';index" json:"status"`
	ConnectedAt *time.Time `json:"connected_at"`
	LastSyncAt  *time.Time `json:"last_sync_at"`
}

func (PlatformConnection) TableName() string {
	return "platform_connections"
}

func (c *PlatformConnection) IsActive() bool {
	return c.Status == ConnectionStatusActive
}

// IsTokenExpired Token 是否已过期
func (c *PlatformConnection) IsTokenExpired() bool {
	return c.TokenExpiresAt != nil && c.TokenExpiresAt.Before(time.Now())
}

// IsTokenExpiringSoon Token 是否在刷新窗口内（含已过期）
func (c *PlatformConnection) IsTokenExpiringSoon() bool {
	return c.TokenExpiresAt != nil && c.TokenExpiresAt.Before(time.Now().Add(TokenRefreshWindow))
}

// ConnectionInfo ConnectionData 的结构化视图
type ConnectionInfo struct {
	AccountPlatform string          `json:"account_platform,omitempty"`
	CountryUserInfo json.RawMessage `json:"country_user_info,omitempty"`
	SellerInfo      json.RawMessage `json:"seller_info,omitempty"`
	LastError       *ConnectionErr  `json:"last_error,omitempty"`
}

// ConnectionErr 最后一次校验/刷新失败的记录
type ConnectionErr struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Info 解析 ConnectionData，空值或损坏时返回零值
func (c *PlatformConnection) Info() ConnectionInfo {
	var info ConnectionInfo
	if len(c.ConnectionData) == 0 {
		return info
	}
	_ = json.Unmarshal(c.ConnectionData, &info)
	return info
}

// SetInfo 回写 ConnectionData
func (c *PlatformConnection) SetInfo(info ConnectionInfo) {
	raw, err := json.Marshal(info)
	if err != nil {
		return
	}
	c.ConnectionData = raw
}
