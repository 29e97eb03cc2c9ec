/*
 * @module api/middleware/user_identity
 * @description 用户标识中间件，从请求头提取调用方用户标识并注入上下文
 * @architecture 中间件模式 - HTTP请求拦截
 * @stateFlow 读取请求头 -> 规范化 -> 上下文注入 -> 下一个处理器
 * @rules 不做鉴权；超长或含控制字符的标识直接拒绝；缺少标识的请求由下游按校验错误处理
 * @dependencies net/http, github.com/go-chi/render
 * @refs api/routes.go, api/controllers/variant_controller.go
 */

package middleware

import (
	"context"
	"net/http"
	"strings"
	"unicode"

	"github.com/go-chi/render"
)

// ContextKey 上下文键类型
type ContextKey string

const (
	// UserIDKey 用户标识在上下文中的键
	UserIDKey ContextKey = "user_id"

	// UserIDHeader 用户标识请求头
	UserIDHeader = "X-User-ID"

	// MaxUserIDLength 用户标识最大长度
	MaxUserIDLength = 128
)

// UserIdentity 提取 X-User-ID 并注入上下文
func UserIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		if len(userID) > MaxUserIDLength || strings.IndexFunc(userID, unicode.IsControl) >= 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]interface{}{
				"status": http.StatusBadRequest,
				"msg":    "无效的用户标识",
			})
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext 从上下文读取用户标识，未设置时返回空串
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return ""
}
