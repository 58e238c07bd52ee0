package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shopee_sync_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// ShopRepository 店铺仓储接口
type ShopRepository interface {
	Create(ctx context.Context, shop *model.Shop) error
	GetByID(ctx context.Context, id int64) (*model.Shop, error)
	GetByShopeeShopID(ctx context.Context, shopeeShopID int64) (*model.Shop, error)
	Update(ctx context.Context, shop *model.Shop) error
	List(ctx context.Context, filter ShopFilter) ([]model.Shop, int64, error)

	// 凭证维护
	UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error
	UpdateTokenStatus(ctx context.Context, id int64, status int) error
	FindExpiringShops(ctx context.Context, within time.Duration) ([]model.Shop, error)
}

// ShopFilter 店铺过滤条件
type ShopFilter struct {
	Status   int
	Region   string
	Page     int
	PageSize int
}

// ==================== 仓储实现 ====================

type shopRepo struct {
	db *gorm.DB
}

// NewShopRepository 创建店铺仓储
func NewShopRepository(db *gorm.DB) ShopRepository {
	return &shopRepo{db: db}
}

func (r *shopRepo) Create(ctx context.Context, shop *model.Shop) error {
	return r.db.WithContext(ctx).Create(shop).Error
}

func (r *shopRepo) GetByID(ctx context.Context, id int64) (*model.Shop, error) {
	var shop model.Shop
	err := r.db.WithContext(ctx).
		Preload("Partner").
		First(&shop, id).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepo) GetByShopeeShopID(ctx context.Context, shopeeShopID int64) (*model.Shop, error) {
	var shop model.Shop
	err := r.db.WithContext(ctx).
		Preload("Partner").
		Where("shopee_shop_id = ?", shopeeShopID).
		First(&shop).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepo) Update(ctx context.Context, shop *model.Shop) error {
	return r.db.WithContext(ctx).Save(shop).Error
}

func (r *shopRepo) List(ctx context.Context, filter ShopFilter) ([]model.Shop, int64, error) {
	var shops []model.Shop
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Shop{})
	if filter.Status > 0 {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Region != "" {
		query = query.Where("region = ?", filter.Region)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.
		Preload("Partner").
		Order("id ASC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&shops).Error

	return shops, total, err
}

func (r *shopRepo) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Shop{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"access_token":     accessToken,
			"refresh_token":    refreshToken,
			"token_expires_at": expiresAt,
			"token_status":     model.TokenStatusActive,
		}).Error
}

func (r *shopRepo) UpdateTokenStatus(ctx context.Context, id int64, status int) error {
	return r.db.WithContext(ctx).
		Model(&model.Shop{}).
		Where("id = ?", id).
		Update("token_status", status).Error
}

func (r *shopRepo) FindExpiringShops(ctx context.Context, within time.Duration) ([]model.Shop, error) {
	var shops []model.Shop
	deadline := time.Now().Add(within)
	err := r.db.WithContext(ctx).
		Preload("Partner").
		Where("status = ?", 1).
		Where("token_status <> ?", model.TokenStatusInvalid).
		Where("token_expires_at < ?", deadline).
		Find(&shops).Error
	return shops, err
}
