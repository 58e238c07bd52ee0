package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shopee_sync_v1_202608/internal/model"
	"shopee_sync_v1_202608/internal/repository"
	"shopee_sync_v1_202608/internal/service"
	"shopee_sync_v1_202608/internal/task"
)

// ShopController 店铺管理控制器
type ShopController struct {
	shopRepo repository.ShopRepository
	authSvc  *service.AuthService
	tasks    *task.TaskManager
}

// NewShopController 创建店铺控制器
func NewShopController(shopRepo repository.ShopRepository, authSvc *service.AuthService, tasks *task.TaskManager) *ShopController {
	return &ShopController{
		shopRepo: shopRepo,
		authSvc:  authSvc,
		tasks:    tasks,
	}
}

// shopCreateReq 接入新店铺请求体
type shopCreateReq struct {
	ShopName     string `json:"shop_name" binding:"required"`
	Region       string `json:"region" binding:"required"`
	ShopeeShopID int64  `json:"shopee_shop_id" binding:"required"`
	PartnerID    int64  `json:"partner_id" binding:"required"`
	AccessToken  string `json:"access_token" binding:"required"`
	RefreshToken string `json:"refresh_token" binding:"required"`
	ExpiresIn    int64  `json:"expires_in"` // 秒，缺省 4 小时
}

// CreateShop 接入新店铺
// @Summary 接入新店铺
// @Description 录入店铺与初始授权凭证，接入后纳入定时同步
// @Tags Shop (店铺管理)
// @Accept json
// @Produce json
// @Param request body shopCreateReq true "店铺参数"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Router /api/shops [post]
func (c *ShopController) CreateShop(ctx *gin.Context) {
	var req shopCreateReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	expiresIn := req.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 4 * 3600
	}

	shop := &model.Shop{
		ShopName:       req.ShopName,
		Region:         req.Region,
		Status:         1,
		ShopeeShopID:   req.ShopeeShopID,
		PartnerID:      req.PartnerID,
		AccessToken:    req.AccessToken,
		RefreshToken:   req.RefreshToken,
		TokenExpiresAt: time.Now().Add(time.Duration(expiresIn) * time.Second),
		TokenStatus:    model.TokenStatusActive,
	}
	if err := c.shopRepo.Create(ctx.Request.Context(), shop); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"code": 201, "data": gin.H{"id": shop.ID}})
}

// GetShopList 获取店铺列表
// @Summary 获取店铺列表
// @Description 分页查询店铺，支持按状态、站点筛选
// @Tags Shop (店铺管理)
// @Produce json
// @Param status query int false "状态筛选"
// @Param region query string false "站点筛选"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /api/shops [get]
func (c *ShopController) GetShopList(ctx *gin.Context) {
	filter := repository.ShopFilter{
		Status:   parseIntQuery(ctx, "status", 0),
		Region:   ctx.Query("region"),
		Page:     parseIntQuery(ctx, "page", 1),
		PageSize: parseIntQuery(ctx, "page_size", 20),
	}

	shops, total, err := c.shopRepo.List(ctx.Request.Context(), filter)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"list":  shops,
			"total": total,
			"page":  filter.Page,
		},
	})
}

// GetShopDetail 获取店铺详情
// @Summary 获取店铺详情
// @Description 根据店铺ID获取详细信息，包含凭证状态与关联主体
// @Tags Shop (店铺管理)
// @Produce json
// @Param id path int true "店铺ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "店铺不存在"
// @Router /api/shops/{id} [get]
func (c *ShopController) GetShopDetail(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	shop, err := c.shopRepo.GetByID(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "店铺不存在"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": shop})
}

// StopShop 停用店铺
// @Summary 停用店铺
// @Description 停用后不再参与定时同步与凭证续期
// @Tags Shop (店铺管理)
// @Produce json
// @Param id path int true "店铺ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/shops/{id}/stop [post]
func (c *ShopController) StopShop(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	shop, err := c.shopRepo.GetByID(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "店铺不存在"})
		return
	}

	shop.Status = 0
	if err := c.shopRepo.Update(ctx.Request.Context(), shop); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "message": "店铺已停用"})
}

// ResumeShop 恢复店铺
// @Summary 恢复店铺
// @Description 恢复店铺并主动续期一次凭证
// @Tags Shop (店铺管理)
// @Produce json
// @Param id path int true "店铺ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/shops/{id}/resume [post]
func (c *ShopController) ResumeShop(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	shop, err := c.shopRepo.GetByID(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "店铺不存在"})
		return
	}

	shop.Status = 1
	if err := c.shopRepo.Update(ctx.Request.Context(), shop); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	// 恢复即续期，失败不阻断恢复本身
	if err := c.authSvc.RefreshShopToken(ctx.Request.Context(), shop); err != nil {
		ctx.JSON(http.StatusOK, gin.H{"code": 200, "message": "店铺已恢复，但凭证续期失败: " + err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "message": "店铺已恢复"})
}

// RefreshToken 手动续期店铺凭证
// @Summary 手动续期凭证
// @Tags Shop (店铺管理)
// @Produce json
// @Param id path int true "店铺ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/shops/{id}/token/refresh [post]
func (c *ShopController) RefreshToken(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	if _, err := c.shopRepo.GetByID(ctx.Request.Context(), id); err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "店铺不存在"})
		return
	}

	// 手动续期走任务管理器，和定时保活共用同一条入口
	if err := c.tasks.TriggerTokenRefresh(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, task.ErrTaskDisabled) {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"code": 503, "message": "凭证保活任务未启用"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	shop, err := c.shopRepo.GetByID(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{"token_expires_at": shop.TokenExpiresAt},
	})
}
