package repository

import (
	"context"

	"gorm.io/gorm"

	"lazada_sync_v1_202608/internal/model"
)

// MerchantRepository 商家仓储接口
type MerchantRepository interface {
	Create(ctx context.Context, merchant *model.Merchant) error
	GetByID(ctx context.Context, id int64) (*model.Merchant, error)
	GetByEmail(ctx context.Context, email string) (*model.Merchant, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, merchant *model.Merchant) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
}

type merchantRepo struct {
	db *gorm.DB
}

// NewMerchantRepository 创建商家仓储
func NewMerchantRepository(db *gorm.DB) MerchantRepository {
	return &merchantRepo{db: db}
}

func (r *merchantRepo) Create(ctx context.Context, merchant *model.Merchant) error {
	return r.db.WithContext(ctx).Create(merchant).Error
}

func (r *merchantRepo) GetByID(ctx context.Context, id int64) (*model.Merchant, error) {
	var merchant model.Merchant
	if err := r.db.WithContext(ctx).First(&merchant, id).Error; err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *merchantRepo) GetByEmail(ctx context.Context, email string) (*model.Merchant, error) {
	var merchant model.Merchant
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&merchant).Error
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *merchantRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Merchant{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

func (r *merchantRepo) Update(ctx context.Context, merchant *model.Merchant) error {
	return r.db.WithContext(ctx).Save(merchant).Error
}

func (r *merchantRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Merchant{}).
		Where("id = ?", id).
		Updates(fields).Error
}
