package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopee_sync_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// ProductRepository 商品镜像仓储接口
type ProductRepository interface {
	// 基础 CRUD
	Create(ctx context.Context, product *model.Product) error
	GetByItemID(ctx context.Context, shopID, itemID int64) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)

	// 同步专用
	ListItemIDs(ctx context.Context, shopID int64) ([]int64, error)
	GetByItemIDs(ctx context.Context, shopID int64, itemIDs []int64) ([]model.Product, error)
	BatchUpsert(ctx context.Context, products []model.Product) error

	// 变体整体替换：先删后插，同一事务内完成
	ReplaceVariants(ctx context.Context, shopID, productID int64, variants []model.ProductVariant, options []model.ProductOption) error

	// 级联删除：先清变体与规格层级，再删商品行
	DeleteByItemIDs(ctx context.Context, shopID int64, itemIDs []int64) (int64, error)

	// 统计
	CountByShopAndStatus(ctx context.Context, shopID int64) (map[string]int64, error)

	// 事务
	WithTx(tx *gorm.DB) ProductRepository
	Transaction(ctx context.Context, fn func(txRepo ProductRepository) error) error
}

// ProductFilter 商品过滤条件
type ProductFilter struct {
	ShopID     int64
	ItemStatus string
	Keyword    string
	Page       int
	PageSize   int
}

// ==================== 仓储实现 ====================

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) GetByItemID(ctx context.Context, shopID, itemID int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Preload("Options").
		Where("shop_id = ? AND item_id = ?", shopID, itemID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Product{})

	if filter.ShopID > 0 {
		query = query.Where("shop_id = ?", filter.ShopID)
	}
	if filter.ItemStatus != "" {
		query = query.Where("item_status = ?", filter.ItemStatus)
	}
	if filter.Keyword != "" {
		query = query.Where("item_name LIKE ?", "%"+filter.Keyword+"%")
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
		Order("update_time DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&products).Error

	return products, total, err
}

func (r *productRepo) ListItemIDs(ctx context.Context, shopID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("shop_id = ?", shopID).
		Pluck("item_id", &ids).Error
	return ids, err
}

func (r *productRepo) GetByItemIDs(ctx context.Context, shopID int64, itemIDs []int64) ([]model.Product, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("shop_id = ? AND item_id IN ?", shopID, itemIDs).
		Find(&products).Error
	return products, err
}

func (r *productRepo) BatchUpsert(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_id"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"item_name", "item_status", "brand",
			"current_price", "original_price",
			"stock_avail", "stock_reserved",
			"image_urls", "has_model", "update_time",
			"updated_at",
		}),
	}).Create(&products).Error
}

func (r *productRepo) ReplaceVariants(ctx context.Context, shopID, productID int64, variants []model.ProductVariant, options []model.ProductOption) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).
			Delete(&model.ProductVariant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", productID).
			Delete(&model.ProductOption{}).Error; err != nil {
			return err
		}
		for i := range variants {
			variants[i].ProductID = productID
			variants[i].ShopID = shopID
		}
		for i := range options {
			options[i].ProductID = productID
			options[i].ShopID = shopID
		}
		if len(variants) > 0 {
			if err := tx.Create(&variants).Error; err != nil {
				return err
			}
		}
		if len(options) > 0 {
			if err := tx.Create(&options).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *productRepo) DeleteByItemIDs(ctx context.Context, shopID int64, itemIDs []int64) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var productIDs []int64
		if err := tx.Model(&model.Product{}).
			Where("shop_id = ? AND item_id IN ?", shopID, itemIDs).
			Pluck("id", &productIDs).Error; err != nil {
			return err
		}
		if len(productIDs) == 0 {
			return nil
		}

		// 先清子表再删主表
		if err := tx.Where("product_id IN ?", productIDs).
			Delete(&model.ProductVariant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id IN ?", productIDs).
			Delete(&model.ProductOption{}).Error; err != nil {
			return err
		}

		result := tx.Where("id IN ?", productIDs).Delete(&model.Product{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	return deleted, err
}

func (r *productRepo) CountByShopAndStatus(ctx context.Context, shopID int64) (map[string]int64, error) {
	type row struct {
		ItemStatus string
		Count      int64
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Select("item_status, COUNT(*) as count").
		Where("shop_id = ?", shopID).
		Group("item_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int64)
	for _, r := range rows {
		stats[r.ItemStatus] = r.Count
	}
	return stats, nil
}

func (r *productRepo) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepo{db: tx}
}

func (r *productRepo) Transaction(ctx context.Context, fn func(txRepo ProductRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
