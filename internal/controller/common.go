package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// parseID 解析路径参数中的数字 ID，非法时直接写响应并返回 0
func parseID(ctx *gin.Context, name string) int64 {
	raw := ctx.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(400, gin.H{"code": 400, "message": "无效的 " + name})
		return 0
	}
	return id
}

// parseIntQuery 解析查询参数中的整数，缺省返回 def
func parseIntQuery(ctx *gin.Context, name string, def int) int {
	raw := ctx.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
