package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lazada_sync_v1_202608/internal/model"
)

// ConnectionRepository 平台授权仓储接口
type ConnectionRepository interface {
	GetByID(ctx context.Context, id int64) (*model.PlatformConnection, error)
	GetForMerchant(ctx context.Context, merchantID, id int64) (*model.PlatformConnection, error)
	FindActive(ctx context.Context, merchantID int64, platform string) (*model.PlatformConnection, error)
	ListByMerchant(ctx context.Context, merchantID int64) ([]model.PlatformConnection, error)

	// Upsert OAuth 回调落库：(merchant, platform) 已存在则整体覆盖
	Upsert(ctx context.Context, conn *model.PlatformConnection) error
	Update(ctx context.Context, conn *model.PlatformConnection) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error

	// FindExpiring 查询 Token 在窗口期内到期且仍为 active 的连接（保活任务用）
	FindExpiring(ctx context.Context, within time.Duration) ([]model.PlatformConnection, error)

	Stats(ctx context.Context, merchantID int64) (*ConnectionStats, error)
}

// ConnectionStats 连接统计
type ConnectionStats struct {
	Total        int64            `json:"total_connections"`
	Active       int64            `json:"active_connections"`
	Error        int64            `json:"error_connections"`
	Disconnected int64            `json:"disconnected_connections"`
	ByPlatform   map[string]int64 `json:"by_platform"`
}

type connectionRepo struct {
	db *gorm.DB
}

// NewConnectionRepository 创建平台授权仓储
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepo{db: db}
}

func (r *connectionRepo) GetByID(ctx context.Context, id int64) (*model.PlatformConnection, error) {
	var conn model.PlatformConnection
	if err := r.db.WithContext(ctx).First(&conn, id).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) GetForMerchant(ctx context.Context, merchantID, id int64) (*model.PlatformConnection, error) {
	var conn model.PlatformConnection
	err := r.db.WithContext(ctx).
		Where("id = ? AND merchant_id = ?", id, merchantID).
		First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) FindActive(ctx context.Context, merchantID int64, platform string) (*model.PlatformConnection, error) {
	var conn model.PlatformConnection
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND platform_name = ? AND status = ?",
			merchantID, platform, model.ConnectionStatusActive).
		First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) ListByMerchant(ctx context.Context, merchantID int64) ([]model.PlatformConnection, error) {
	var conns []model.PlatformConnection
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at DESC").
		Find(&conns).Error
	return conns, err
}

func (r *connectionRepo) Upsert(ctx context.Context, conn *model.PlatformConnection) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "merchant_id"}, {Name: "platform_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "token_expires_at",
			"connection_data", "status", "connected_at", "last_sync_at", "updated_at",
		}),
	}).Create(conn).Error
}

func (r *connectionRepo) Update(ctx context.Context, conn *model.PlatformConnection) error {
	return r.db.WithContext(ctx).Save(conn).Error
}

func (r *connectionRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.PlatformConnection{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *connectionRepo) FindExpiring(ctx context.Context, within time.Duration) ([]model.PlatformConnection, error) {
	var conns []model.PlatformConnection
	err := r.db.WithContext(ctx).
		Where("status = ? AND token_expires_at IS NOT NULL AND token_expires_at < ?",
			model.ConnectionStatusActive, time.Now().Add(within)).
		Find(&conns).Error
	return conns, err
}

func (r *connectionRepo) Stats(ctx context.Context, merchantID int64) (*ConnectionStats, error) {
	stats := &ConnectionStats{ByPlatform: make(map[string]int64)}
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.PlatformConnection{}).Where("merchant_id = ?", merchantID)
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", model.ConnectionStatusActive).Count(&stats.Active).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", model.ConnectionStatusError).Count(&stats.Error).Error; err != nil {
		return nil, err
	}
	stats.Disconnected = stats.Total - stats.Active - stats.Error

	type row struct {
		PlatformName string
		Count        int64
	}
	var rows []row
	err := base().
		Select("platform_name, COUNT(*) as count").
		Group("platform_name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.ByPlatform[r.PlatformName] = r.Count
	}
	return stats, nil
}
