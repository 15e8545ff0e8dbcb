package model

import (
	"gorm.io/datatypes"
)

// SyncLog 状态常量
const (
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
	SyncStatusPending = "pending"
	SyncStatusPartial = "partial"
)

// SyncAction 同步动作（封闭枚举，调度时穷举匹配）
type SyncAction string

const (
	SyncActionCreate      SyncAction = "create"
	SyncActionUpdate      SyncAction = "update"
	SyncActionStockUpdate SyncAction = "stock_update"
	SyncActionDelete      SyncAction = "delete"
)

// Valid 是否为已知动作
func (a SyncAction) Valid() bool {
	switch a {
	case SyncActionCreate, SyncActionUpdate, SyncActionStockUpdate, SyncActionDelete:
		return true
	}
	return false
}

// ActionType 落库 action_type 字段的取值，如 "product_create"
func (a SyncAction) ActionType() string {
	return "product_" + string(a)
}

// SyncLog 同步流水，仅追加，创建后不再修改
type SyncLog struct {
	BaseModel
	MerchantID   int64     `gorm:"index:idx_log_merchant_status;not null" json:"merchant_id"`
	Merchant     *Merchant `gorm:"foreignKey:MerchantID" json:"-"`
	ActionType   string    `gorm:"size:50;index:idx_log_platform_action" json:"action_type"`
	PlatformName string    `gorm:"size:20;index:idx_log_platform_action" json:"platform_name"`
	Status       string    `gorm:"size:20;index:idx_log_merchant_status" json:"status"`
	Message      string    `gorm:"type:text" json:"message"`

	// 请求/响应快照，排障用
	RequestData  datatypes.JSON `gorm:"type:jsonb" json:"request_data"`
	ResponseData datatypes.JSON `gorm:"type:jsonb" json:"response_data"`

	AffectedItems int   `gorm:"default:0" json:"affected_items"`
	Duration      int64 `gorm:"default:0" json:"duration"` // 毫秒
}

func (SyncLog) TableName() string {
	return "sync_logs"
}

func (l *SyncLog) IsSuccessful() bool {
	return l.Status == SyncStatusSuccess
}

func (l *SyncLog) IsFailed() bool {
	return l.Status == SyncStatusFailed
}
