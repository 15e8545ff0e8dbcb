package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lazada_sync_v1_202608/internal/model"
)

// SyncLogRepository 同步流水仓储接口（仅追加，无更新/删除）
type SyncLogRepository interface {
	Append(ctx context.Context, log *model.SyncLog) error
	List(ctx context.Context, filter SyncLogFilter) ([]model.SyncLog, int64, error)
	// ListByProduct 按 request_data 里的 product_id 查最近的流水
	ListByProduct(ctx context.Context, merchantID, productID int64, limit int) ([]model.SyncLog, error)
	Stats(ctx context.Context, merchantID int64) (*SyncLogStats, error)
}

// SyncLogFilter 流水过滤条件
type SyncLogFilter struct {
	MerchantID int64
	Platform   string
	Status     string
	ActionType string
	Page       int
	PerPage    int
}

// SyncLogStats 近期同步统计
type SyncLogStats struct {
	TotalSyncs24h      int64            `json:"total_syncs_24h"`
	SuccessfulSyncs24h int64            `json:"successful_syncs_24h"`
	FailedSyncs24h     int64            `json:"failed_syncs_24h"`
	ByAction7d         map[string]int64 `json:"sync_by_action_7d"`
}

type syncLogRepo struct {
	db *gorm.DB
}

// NewSyncLogRepository 创建同步流水仓储
func NewSyncLogRepository(db *gorm.DB) SyncLogRepository {
	return &syncLogRepo{db: db}
}

func (r *syncLogRepo) Append(ctx context.Context, log *model.SyncLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *syncLogRepo) List(ctx context.Context, filter SyncLogFilter) ([]model.SyncLog, int64, error) {
	var logs []model.SyncLog
	var total int64

	query := r.db.WithContext(ctx).Model(&model.SyncLog{}).
		Where("merchant_id = ?", filter.MerchantID)

	if filter.Platform != "" {
		query = query.Where("platform_name = ?", filter.Platform)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ActionType != "" {
		query = query.Where("action_type = ?", filter.ActionType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}

	offset := (filter.Page - 1) * filter.PerPage
	err := query.
		Order("created_at DESC").
		Limit(filter.PerPage).
		Offset(offset).
		Find(&logs).Error

	return logs, total, err
}

func (r *syncLogRepo) ListByProduct(ctx context.Context, merchantID, productID int64, limit int) ([]model.SyncLog, error) {
	var logs []model.SyncLog
	if limit <= 0 {
		limit = 10
	}
	// datatypes.JSONQuery 按方言生成 JSON 抽取语法
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Where(datatypes.JSONQuery("request_data").Equals(productID, "product_id")).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func (r *syncLogRepo) Stats(ctx context.Context, merchantID int64) (*SyncLogStats, error) {
	stats := &SyncLogStats{ByAction7d: make(map[string]int64)}
	dayAgo := time.Now().Add(-24 * time.Hour)
	weekAgo := time.Now().Add(-7 * 24 * time.Hour)

	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.SyncLog{}).Where("merchant_id = ?", merchantID)
	}

	if err := base().Where("created_at >= ?", dayAgo).Count(&stats.TotalSyncs24h).Error; err != nil {
		return nil, err
	}
	if err := base().Where("created_at >= ? AND status = ?", dayAgo, model.SyncStatusSuccess).
		Count(&stats.SuccessfulSyncs24h).Error; err != nil {
		return nil, err
	}
	if err := base().Where("created_at >= ? AND status = ?", dayAgo, model.SyncStatusFailed).
		Count(&stats.FailedSyncs24h).Error; err != nil {
		return nil, err
	}

	type row struct {
		ActionType string
		Count      int64
	}
	var rows []row
	err := base().
		Where("created_at >= ?", weekAgo).
		Select("action_type, COUNT(*) as count").
		Group("action_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.ByAction7d[r.ActionType] = r.Count
	}
	return stats, nil
}
