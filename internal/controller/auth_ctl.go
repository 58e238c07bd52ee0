package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopee_sync_v1_202608/internal/middleware"
)

// AuthController 管理端登录控制器
// 单操作员账号由环境变量下发，用户体系是外部系统的事
type AuthController struct {
	username string
	password string
}

// NewAuthController 创建登录控制器
func NewAuthController(username, password string) *AuthController {
	return &AuthController{username: username, password: password}
}

// loginReq 登录请求体
type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 操作员登录，签发管理端 JWT
// @Summary 操作员登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body loginReq true "登录凭证"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{} "账号或密码错误"
// @Router /api/auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req loginReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	if req.Username != c.username || req.Password != c.password {
		ctx.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "账号或密码错误"})
		return
	}

	token, expiresAt, err := middleware.IssueToken(req.Username)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"token":      token,
			"expires_at": expiresAt,
		},
	})
}
