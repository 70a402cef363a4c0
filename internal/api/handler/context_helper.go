package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tutorhub/backend/pkg/response"
)

// 中间件注入的上下文键
const (
	ctxUserID   = "user_id"
	ctxRole     = "role"
	ctxTokenJTI = "token_jti"
	ctxTokenExp = "token_exp"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, ctxUserID)
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, ctxRole)
}

// MustGetCaller 同时提取 user_id 与 role
func MustGetCaller(c *gin.Context) (userID, role string, ok bool) {
	if userID, ok = MustGetUserID(c); !ok {
		return "", "", false
	}
	if role, ok = MustGetRole(c); !ok {
		return "", "", false
	}
	return userID, role, true
}

// MustGetPathID 提取路由中的 :id 参数，空白时写入 400 响应
func MustGetPathID(c *gin.Context, emptyMsg string) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.BadRequest(c, 10001, emptyMsg)
		return "", false
	}
	return id, true
}

// GetTokenMeta 提取当前 Access Token 的 JTI 与过期时刻（登出拉黑用）
func GetTokenMeta(c *gin.Context) (string, time.Time) {
	jti := c.GetString(ctxTokenJTI)
	exp, _ := c.Get(ctxTokenExp)
	expiresAt, _ := exp.(time.Time)
	return jti, expiresAt
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}
