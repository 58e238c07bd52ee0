package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopee_sync_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// SyncStateRepository 同步水位仓储接口
type SyncStateRepository interface {
	// Get 查询店铺水位，不存在时返回 (nil, nil)
	Get(ctx context.Context, shopID int64) (*model.SyncState, error)
	// Upsert 按 shop_id 写入/覆盖水位行
	Upsert(ctx context.Context, state *model.SyncState) error
}

// ==================== 仓储实现 ====================

type syncStateRepo struct {
	db *gorm.DB
}

// NewSyncStateRepository 创建同步水位仓储
func NewSyncStateRepository(db *gorm.DB) SyncStateRepository {
	return &syncStateRepo{db: db}
}

func (r *syncStateRepo) Get(ctx context.Context, shopID int64) (*model.SyncState, error) {
	var state model.SyncState
	err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *syncStateRepo) Upsert(ctx context.Context, state *model.SyncState) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"watermark", "last_run_id", "last_run_at",
			"last_success_at", "last_error", "stats",
			"updated_at",
		}),
	}).Create(state).Error
}
