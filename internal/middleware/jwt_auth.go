package middleware

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ==================== JWT 配置 ====================

// JWTConfig 管理端登录态配置
type JWTConfig struct {
	SecretKey string        // 签名密钥
	TokenTTL  time.Duration // 登录态有效期
	Issuer    string        // 签发者
}

// DefaultJWTConfig 默认配置，密钥用 JWT_SECRET 覆盖
func DefaultJWTConfig() *JWTConfig {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "shopee-sync-secret-key-change-in-production"
	}
	return &JWTConfig{
		SecretKey: secret,
		TokenTTL:  12 * time.Hour,
		Issuer:    "shopee-sync",
	}
}

// 全局配置
var jwtConfig = DefaultJWTConfig()

// ==================== Claims 与签发 ====================

// OperatorClaims 管理端操作员声明
// 本系统是单角色运维面板，店铺粒度的权限不在这里做
type OperatorClaims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// IssueToken 给操作员签发登录态
func IssueToken(operator string) (token string, expiresAt time.Time, err error) {
	now := time.Now()
	expiresAt = now.Add(jwtConfig.TokenTTL)
	claims := &OperatorClaims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtConfig.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtConfig.SecretKey))
	return token, expiresAt, err
}

// ParseToken 解析并校验登录态
func ParseToken(tokenString string) (*OperatorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(jwtConfig.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*OperatorClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// ==================== Gin 中间件 ====================

// ContextKeyOperator 操作员注入键
const ContextKeyOperator = "operator"

// JWTAuth 管理端认证中间件
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "未提供认证信息",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "认证格式错误，应为 Bearer {token}",
			})
			c.Abort()
			return
		}

		claims, err := ParseToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "Token 无效或已过期",
			})
			c.Abort()
			return
		}

		c.Set(ContextKeyOperator, claims.Operator)
		c.Next()
	}
}

// GetOperator 从 Context 获取当前操作员
func GetOperator(c *gin.Context) string {
	if v, exists := c.Get(ContextKeyOperator); exists {
		return v.(string)
	}
	return ""
}
