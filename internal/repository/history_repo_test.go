package repository

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopee_sync_v1_202608/internal/model"
)

func setupHistoryTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	if err := db.AutoMigrate(&model.HistoryLog{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	return db
}

func TestHistoryRepo_BatchCreate(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewHistoryRepository(db)
	ctx := context.Background()

	entries := []model.HistoryLog{
		{ShopID: 1, ItemID: 100, Kind: model.HistoryKindPriceChange, Severity: model.SeverityInfo, Source: model.HistorySourceSync, DetectedAt: time.Now()},
		{ShopID: 1, ItemID: 100, Kind: model.HistoryKindStockChange, Severity: model.SeverityInfo, Source: model.HistorySourceSync, DetectedAt: time.Now()},
	}
	if err := repo.BatchCreate(ctx, entries); err != nil {
		t.Fatalf("BatchCreate() error = %v", err)
	}

	// 空批不报错
	if err := repo.BatchCreate(ctx, nil); err != nil {
		t.Errorf("BatchCreate(nil) error = %v", err)
	}

	count, err := repo.CountUnread(ctx, 1)
	if err != nil {
		t.Fatalf("CountUnread() error = %v", err)
	}
	if count != 2 {
		t.Errorf("未读数 = %d, want 2", count)
	}
}

func TestHistoryRepo_List(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewHistoryRepository(db)
	ctx := context.Background()

	base := time.Now()
	entries := []model.HistoryLog{
		{ShopID: 1, ItemID: 100, Kind: model.HistoryKindPriceChange, Severity: model.SeverityInfo, Source: model.HistorySourceSync, DetectedAt: base.Add(-3 * time.Hour)},
		{ShopID: 1, ItemID: 100, Kind: model.HistoryKindStatusChange, Severity: model.SeverityHigh, Source: model.HistorySourceSync, DetectedAt: base.Add(-2 * time.Hour)},
		{ShopID: 1, ItemID: 200, Kind: model.HistoryKindPolicyViolation, Severity: model.SeverityCritical, Source: model.HistorySourceWebhook, DetectedAt: base.Add(-1 * time.Hour)},
		{ShopID: 2, ItemID: 300, Kind: model.HistoryKindPriceChange, Severity: model.SeverityInfo, Source: model.HistorySourceSync, DetectedAt: base},
	}
	repo.BatchCreate(ctx, entries)

	// 按店铺：倒序返回
	list, total, err := repo.List(ctx, HistoryFilter{ShopID: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(list) != 3 || list[0].ItemID != 200 {
		t.Errorf("应按 detected_at 倒序，首条 ItemID = %d, want 200", list[0].ItemID)
	}

	// 按商品
	_, total, _ = repo.List(ctx, HistoryFilter{ShopID: 1, ItemID: 100})
	if total != 2 {
		t.Errorf("按商品过滤 total = %d, want 2", total)
	}

	// 按类型 + 级别
	_, total, _ = repo.List(ctx, HistoryFilter{ShopID: 1, Kind: model.HistoryKindPolicyViolation, Severity: model.SeverityCritical})
	if total != 1 {
		t.Errorf("按类型过滤 total = %d, want 1", total)
	}

	// 分页
	list, _, _ = repo.List(ctx, HistoryFilter{ShopID: 1, Page: 2, PageSize: 2})
	if len(list) != 1 {
		t.Errorf("第二页条数 = %d, want 1", len(list))
	}
}

func TestHistoryRepo_MarkRead(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewHistoryRepository(db)
	ctx := context.Background()

	entries := []model.HistoryLog{
		{ShopID: 1, ItemID: 100, Kind: model.HistoryKindPriceChange, Severity: model.SeverityInfo, Source: model.HistorySourceSync, DetectedAt: time.Now()},
		{ShopID: 1, ItemID: 101, Kind: model.HistoryKindStockChange, Severity: model.SeverityInfo, Source: model.HistorySourceSync, DetectedAt: time.Now()},
		{ShopID: 2, ItemID: 102, Kind: model.HistoryKindStockChange, Severity: model.SeverityInfo, Source: model.HistorySourceSync, DetectedAt: time.Now()},
	}
	repo.BatchCreate(ctx, entries)

	var first model.HistoryLog
	db.Where("shop_id = ? AND item_id = ?", 1, 100).First(&first)

	affected, err := repo.MarkRead(ctx, 1, []int64{first.ID})
	if err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if affected != 1 {
		t.Errorf("affected = %d, want 1", affected)
	}

	// 重复标记不再计数
	affected, _ = repo.MarkRead(ctx, 1, []int64{first.ID})
	if affected != 0 {
		t.Errorf("重复标记 affected = %d, want 0", affected)
	}

	// 跨店铺的 ID 不生效
	var other model.HistoryLog
	db.Where("shop_id = ?", 2).First(&other)
	affected, _ = repo.MarkRead(ctx, 1, []int64{other.ID})
	if affected != 0 {
		t.Errorf("跨店铺标记 affected = %d, want 0", affected)
	}

	found, _ := repo.GetByID(ctx, first.ID)
	if !found.IsRead || found.ReadAt == nil {
		t.Error("is_read/read_at 应已更新")
	}
}

func TestHistoryRepo_MarkAllRead(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewHistoryRepository(db)
	ctx := context.Background()

	entries := []model.HistoryLog{
		{ShopID: 1, ItemID: 100, Kind: model.HistoryKindPriceChange, Severity: model.SeverityInfo, Source: model.HistorySourceSync, DetectedAt: time.Now()},
		{ShopID: 1, ItemID: 101, Kind: model.HistoryKindStockChange, Severity: model.SeverityInfo, Source: model.HistorySourceSync, DetectedAt: time.Now()},
		{ShopID: 2, ItemID: 102, Kind: model.HistoryKindStockChange, Severity: model.SeverityInfo, Source: model.HistorySourceSync, DetectedAt: time.Now()},
	}
	repo.BatchCreate(ctx, entries)

	affected, err := repo.MarkAllRead(ctx, 1)
	if err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}
	if affected != 2 {
		t.Errorf("affected = %d, want 2", affected)
	}

	count, _ := repo.CountUnread(ctx, 1)
	if count != 0 {
		t.Errorf("店铺1未读数 = %d, want 0", count)
	}
	count, _ = repo.CountUnread(ctx, 2)
	if count != 1 {
		t.Errorf("店铺2未读数 = %d, want 1", count)
	}
}
