package dto

import (
	"encoding/json"
	"time"
)

// ==================== 同步触发 ====================

// SyncProductRequest 触发商品同步请求
type SyncProductRequest struct {
	Action    string         `json:"action" binding:"required,oneof=create update stock_update delete"`
	Overrides *SyncOverrides `json:"overrides" binding:"omitempty"`
}

// SyncOverrides 本次同步覆盖的字段
type SyncOverrides struct {
	Name        *string  `json:"name" binding:"omitempty,max=255"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0"`
	Stock       *int     `json:"stock" binding:"omitempty,gte=0"`
	Status      *string  `json:"status" binding:"omitempty,oneof=active inactive"`
}

// SyncAcceptedResponse 任务受理响应
type SyncAcceptedResponse struct {
	JobID     string `json:"job_id"`
	ProductID int64  `json:"product_id"`
	Action    string `json:"action"`
}

// BulkSyncRequest 批量同步请求
type BulkSyncRequest struct {
	IDs    []int64 `json:"ids" binding:"required,min=1,max=50"`
	Action string  `json:"action" binding:"required,oneof=create update stock_update delete"`
}

// BulkSyncResponse 批量同步受理结果
type BulkSyncResponse struct {
	Accepted []SyncAcceptedResponse `json:"accepted"`
	Skipped  []int64                `json:"skipped"` // 不存在/不属于当前商家/队列满
}

// ProductSyncStatus 单商品同步状态
type ProductSyncStatus struct {
	ProductID    int64           `json:"product_id"`
	IsSynced     bool            `json:"is_synced"`
	LastSyncedAt *time.Time      `json:"last_synced_at"`
	SyncData     json.RawMessage `json:"sync_data,omitempty"`
	RecentLogs   []*SyncLogInfo  `json:"recent_logs"`
}

// ==================== 流水查询 ====================

// SyncLogListRequest 同步流水列表请求
type SyncLogListRequest struct {
	Platform   string `form:"platform"`
	Status     string `form:"status" binding:"omitempty,oneof=success failed pending partial"`
	ActionType string `form:"action_type"`
	Page       int    `form:"page,default=1"`
	PerPage    int    `form:"per_page,default=20"`
}

// SyncLogInfo 同步流水
type SyncLogInfo struct {
	ID            int64           `json:"id"`
	ActionType    string          `json:"action_type"`
	PlatformName  string          `json:"platform_name"`
	Status        string          `json:"status"`
	Message       string          `json:"message"`
	RequestData   json.RawMessage `json:"request_data,omitempty"`
	ResponseData  json.RawMessage `json:"response_data,omitempty"`
	AffectedItems int             `json:"affected_items"`
	Duration      int64           `json:"duration"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SyncLogListResponse 同步流水列表响应
type SyncLogListResponse struct {
	List    []*SyncLogInfo `json:"list"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}

// ==================== 看板统计 ====================

// SyncCoverage 商品同步覆盖率
type SyncCoverage struct {
	TotalProducts  int64 `json:"total_products"`
	SyncedProducts int64 `json:"synced_products"`
}

// DashboardResponse 商家看板统计
type DashboardResponse struct {
	Products    interface{}  `json:"products"`
	Connections interface{}  `json:"connections"`
	Syncs       interface{}  `json:"syncs"`
	Coverage    SyncCoverage `json:"coverage"`
}
