package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shopee_sync_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// HistoryRepository 变更历史仓储接口
// 只追加，不更新——唯一例外是已读标记
type HistoryRepository interface {
	Create(ctx context.Context, entry *model.HistoryLog) error
	BatchCreate(ctx context.Context, entries []model.HistoryLog) error
	GetByID(ctx context.Context, id int64) (*model.HistoryLog, error)
	List(ctx context.Context, filter HistoryFilter) ([]model.HistoryLog, int64, error)

	// 已读标记：只翻转 is_read/read_at，不碰事实字段
	MarkRead(ctx context.Context, shopID int64, ids []int64) (int64, error)
	MarkAllRead(ctx context.Context, shopID int64) (int64, error)
	CountUnread(ctx context.Context, shopID int64) (int64, error)
}

// HistoryFilter 历史查询过滤条件
type HistoryFilter struct {
	ShopID     int64
	ItemID     int64
	Kind       string
	Severity   string
	UnreadOnly bool
	Page       int
	PageSize   int
}

// ==================== 仓储实现 ====================

type historyRepo struct {
	db *gorm.DB
}

// NewHistoryRepository 创建历史仓储
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepo{db: db}
}

func (r *historyRepo) Create(ctx context.Context, entry *model.HistoryLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *historyRepo) BatchCreate(ctx context.Context, entries []model.HistoryLog) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&entries, 200).Error
}

func (r *historyRepo) GetByID(ctx context.Context, id int64) (*model.HistoryLog, error) {
	var entry model.HistoryLog
	err := r.db.WithContext(ctx).First(&entry, id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *historyRepo) List(ctx context.Context, filter HistoryFilter) ([]model.HistoryLog, int64, error) {
	var entries []model.HistoryLog
	var total int64

	query := r.db.WithContext(ctx).Model(&model.HistoryLog{})

	if filter.ShopID > 0 {
		query = query.Where("shop_id = ?", filter.ShopID)
	}
	if filter.ItemID > 0 {
		query = query.Where("item_id = ?", filter.ItemID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
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
		Order("detected_at DESC, id DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&entries).Error

	return entries, total, err
}

func (r *historyRepo) MarkRead(ctx context.Context, shopID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.HistoryLog{}).
		Where("shop_id = ? AND id IN ? AND is_read = ?", shopID, ids, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *historyRepo) MarkAllRead(ctx context.Context, shopID int64) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.HistoryLog{}).
		Where("shop_id = ? AND is_read = ?", shopID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *historyRepo) CountUnread(ctx context.Context, shopID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.HistoryLog{}).
		Where("shop_id = ? AND is_read = ?", shopID, false).
		Count(&count).Error
	return count, err
}
