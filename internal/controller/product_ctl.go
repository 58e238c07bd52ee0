package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopee_sync_v1_202608/internal/repository"
)

// ProductController 商品镜像查询控制器
// 只读：本地镜像由同步与 Webhook 维护，不提供写入口
type ProductController struct {
	productRepo repository.ProductRepository
}

// NewProductController 创建商品控制器
func NewProductController(productRepo repository.ProductRepository) *ProductController {
	return &ProductController{productRepo: productRepo}
}

// GetProductList 获取商品列表
// @Summary 获取店铺商品列表
// @Description 分页查询本地商品镜像，支持按状态、关键词筛选
// @Tags Product (商品镜像)
// @Produce json
// @Param id path int true "店铺ID"
// @Param item_status query string false "NORMAL / UNLIST / BANNED"
// @Param keyword query string false "商品名称关键词"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /api/shops/{id}/products [get]
func (c *ProductController) GetProductList(ctx *gin.Context) {
	shopID := parseID(ctx, "id")
	if shopID == 0 {
		return
	}

	filter := repository.ProductFilter{
		ShopID:     shopID,
		ItemStatus: ctx.Query("item_status"),
		Keyword:    ctx.Query("keyword"),
		Page:       parseIntQuery(ctx, "page", 1),
		PageSize:   parseIntQuery(ctx, "page_size", 20),
	}

	products, total, err := c.productRepo.List(ctx.Request.Context(), filter)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"list":  products,
			"total": total,
			"page":  filter.Page,
		},
	})
}

// GetProductDetail 获取商品详情（含变体与规格）
// @Summary 获取商品详情
// @Tags Product (商品镜像)
// @Produce json
// @Param id path int true "店铺ID"
// @Param itemId path int true "平台商品ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "商品不存在"
// @Router /api/shops/{id}/products/{itemId} [get]
func (c *ProductController) GetProductDetail(ctx *gin.Context) {
	shopID := parseID(ctx, "id")
	if shopID == 0 {
		return
	}
	itemID := parseID(ctx, "itemId")
	if itemID == 0 {
		return
	}

	product, err := c.productRepo.GetByItemID(ctx.Request.Context(), shopID, itemID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "商品不存在"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": product})
}

// GetProductStats 按状态统计商品数
// @Summary 店铺商品状态统计
// @Tags Product (商品镜像)
// @Produce json
// @Param id path int true "店铺ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/shops/{id}/products/stats [get]
func (c *ProductController) GetProductStats(ctx *gin.Context) {
	shopID := parseID(ctx, "id")
	if shopID == 0 {
		return
	}

	stats, err := c.productRepo.CountByShopAndStatus(ctx.Request.Context(), shopID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": stats})
}
