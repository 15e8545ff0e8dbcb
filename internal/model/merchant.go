package model

// Merchant 状态常量
const (
	MerchantStatusActive   = "active"
	MerchantStatusInactive = "inactive"
)

// Merchant 商家账号（多租户核心，所有业务数据都挂在 Merchant 下）
type Merchant struct {
	BaseModel
	Name     string `gorm:"size:255;not null" json:"name"`
	Email    string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"` // bcrypt 哈希，永不下发
	Phone    string `gorm:"size:20" json:"phone"`
	Address  string `gorm:"size:500" json:"address"`
	Status   string `gorm:"size:20;default:'active';index" json:"status"`

	// 关联关系（级联删除：商家注销时一并清理）
	Products    []Product            `gorm:"foreignKey:MerchantID;constraint:OnDelete:CASCADE" json:"products,omitempty"`
	Connections []PlatformConnection `gorm:"foreignKey:MerchantID;constraint:OnDelete:CASCADE" json:"connections,omitempty"`
	SyncLogs    []SyncLog            `gorm:"foreignKey:MerchantID;constraint:OnDelete:CASCADE" json:"sync_logs,omitempty"`
}

func (Merchant) TableName() string {
	return "merchants"
}

// IsActive 账号是否可登录
func (m *Merchant) IsActive() bool {
	return m.Status == MerchantStatusActive
}
