package repository

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopee_sync_v1_202608/internal/model"
)

func setupProductTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	err = db.AutoMigrate(
		&model.Partner{}, &model.Shop{},
		&model.Product{}, &model.ProductVariant{}, &model.ProductOption{},
	)
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	return db
}

func TestProductRepo_BatchUpsert(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	products := []model.Product{
		{ShopID: 1, ItemID: 1001, ItemName: "商品A", ItemStatus: model.ItemStatusNormal, CurrentPrice: 1990, StockAvail: 10},
		{ShopID: 1, ItemID: 1002, ItemName: "商品B", ItemStatus: model.ItemStatusNormal, CurrentPrice: 2990, StockAvail: 5},
	}
	if err := repo.BatchUpsert(ctx, products); err != nil {
		t.Fatalf("BatchUpsert() error = %v", err)
	}

	// 同一批重放：数量不变，字段被覆盖
	replay := []model.Product{
		{ShopID: 1, ItemID: 1001, ItemName: "商品A改", ItemStatus: model.ItemStatusUnlist, CurrentPrice: 1590, StockAvail: 3},
	}
	if err := repo.BatchUpsert(ctx, replay); err != nil {
		t.Fatalf("BatchUpsert() 重放 error = %v", err)
	}

	ids, err := repo.ListItemIDs(ctx, 1)
	if err != nil {
		t.Fatalf("ListItemIDs() error = %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("商品数量 = %d, want 2", len(ids))
	}

	found, err := repo.GetByItemID(ctx, 1, 1001)
	if err != nil {
		t.Fatalf("GetByItemID() error = %v", err)
	}
	if found.ItemName != "商品A改" {
		t.Errorf("ItemName = %s, want 商品A改", found.ItemName)
	}
	if found.ItemStatus != model.ItemStatusUnlist {
		t.Errorf("ItemStatus = %s, want UNLIST", found.ItemStatus)
	}
	if found.CurrentPrice != 1590 {
		t.Errorf("CurrentPrice = %d, want 1590", found.CurrentPrice)
	}
}

func TestProductRepo_ReplaceVariants(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	product := &model.Product{ShopID: 1, ItemID: 2001, ItemName: "变体商品", ItemStatus: model.ItemStatusNormal, HasModel: true}
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// 首次写入两个变体 + 一层规格
	variants := []model.ProductVariant{
		{ModelID: 1, SKU: "SKU-RED", ModelName: "红色", PriceAmount: 1990, StockAvail: 3},
		{ModelID: 2, SKU: "SKU-BLUE", ModelName: "蓝色", PriceAmount: 2190, StockAvail: 7},
	}
	options := []model.ProductOption{
		{Name: "颜色", Rank: 0, Values: []byte(`[{"label":"红色"},{"label":"蓝色"}]`)},
	}
	if err := repo.ReplaceVariants(ctx, 1, product.ID, variants, options); err != nil {
		t.Fatalf("ReplaceVariants() error = %v", err)
	}

	// 整体替换为一个新变体
	replaced := []model.ProductVariant{
		{ModelID: 3, SKU: "SKU-GREEN", ModelName: "绿色", PriceAmount: 2390, StockAvail: 1},
	}
	if err := repo.ReplaceVariants(ctx, 1, product.ID, replaced, nil); err != nil {
		t.Fatalf("ReplaceVariants() 替换 error = %v", err)
	}

	found, err := repo.GetByItemID(ctx, 1, 2001)
	if err != nil {
		t.Fatalf("GetByItemID() error = %v", err)
	}
	if len(found.Variants) != 1 {
		t.Fatalf("变体数量 = %d, want 1", len(found.Variants))
	}
	if found.Variants[0].ModelID != 3 {
		t.Errorf("ModelID = %d, want 3", found.Variants[0].ModelID)
	}
	if found.Variants[0].ProductID != product.ID {
		t.Errorf("ProductID = %d, want %d", found.Variants[0].ProductID, product.ID)
	}
	if len(found.Options) != 0 {
		t.Errorf("规格层数 = %d, want 0", len(found.Options))
	}
}

func TestProductRepo_DeleteByItemIDs(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	product := &model.Product{ShopID: 1, ItemID: 3001, ItemName: "待删除", ItemStatus: model.ItemStatusNormal, HasModel: true}
	repo.Create(ctx, product)
	repo.ReplaceVariants(ctx, 1, product.ID,
		[]model.ProductVariant{{ModelID: 10, SKU: "SKU-X", PriceAmount: 990}},
		[]model.ProductOption{{Name: "规格", Rank: 0, Values: []byte(`[{"label":"X"}]`)}},
	)
	repo.Create(ctx, &model.Product{ShopID: 1, ItemID: 3002, ItemName: "保留", ItemStatus: model.ItemStatusNormal})

	deleted, err := repo.DeleteByItemIDs(ctx, 1, []int64{3001})
	if err != nil {
		t.Fatalf("DeleteByItemIDs() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	// 主表与子表都应被清掉
	if _, err := repo.GetByItemID(ctx, 1, 3001); err == nil {
		t.Error("商品 3001 应已被删除")
	}
	var variantCount int64
	db.Model(&model.ProductVariant{}).Where("product_id = ?", product.ID).Count(&variantCount)
	if variantCount != 0 {
		t.Errorf("残留变体数 = %d, want 0", variantCount)
	}
	var optionCount int64
	db.Model(&model.ProductOption{}).Where("product_id = ?", product.ID).Count(&optionCount)
	if optionCount != 0 {
		t.Errorf("残留规格层数 = %d, want 0", optionCount)
	}

	// 未命中的店铺不受影响
	if _, err := repo.GetByItemID(ctx, 1, 3002); err != nil {
		t.Errorf("商品 3002 不应被删除: %v", err)
	}
}

func TestProductRepo_List(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	repo.Create(ctx, &model.Product{ShopID: 1, ItemID: 1, ItemName: "夏季短袖", ItemStatus: model.ItemStatusNormal})
	repo.Create(ctx, &model.Product{ShopID: 1, ItemID: 2, ItemName: "冬季外套", ItemStatus: model.ItemStatusUnlist})
	repo.Create(ctx, &model.Product{ShopID: 2, ItemID: 3, ItemName: "夏季连衣裙", ItemStatus: model.ItemStatusNormal})

	// 按店铺 + 状态
	products, total, err := repo.List(ctx, ProductFilter{ShopID: 1, ItemStatus: model.ItemStatusNormal})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(products) != 1 {
		t.Errorf("total = %d, len = %d, want 1/1", total, len(products))
	}

	// 关键词
	products, total, _ = repo.List(ctx, ProductFilter{ShopID: 1, Keyword: "夏季"})
	if total != 1 {
		t.Errorf("关键词过滤 total = %d, want 1", total)
	}
}

func TestProductRepo_CountByShopAndStatus(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	repo.Create(ctx, &model.Product{ShopID: 1, ItemID: 1, ItemStatus: model.ItemStatusNormal})
	repo.Create(ctx, &model.Product{ShopID: 1, ItemID: 2, ItemStatus: model.ItemStatusNormal})
	repo.Create(ctx, &model.Product{ShopID: 1, ItemID: 3, ItemStatus: model.ItemStatusBanned})

	stats, err := repo.CountByShopAndStatus(ctx, 1)
	if err != nil {
		t.Fatalf("CountByShopAndStatus() error = %v", err)
	}
	if stats[model.ItemStatusNormal] != 2 {
		t.Errorf("NORMAL = %d, want 2", stats[model.ItemStatusNormal])
	}
	if stats[model.ItemStatusBanned] != 1 {
		t.Errorf("BANNED = %d, want 1", stats[model.ItemStatusBanned])
	}
}
