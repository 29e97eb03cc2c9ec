package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	"snpfreq-service/service/lookup"
	"snpfreq-service/service/rate_limiter"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// SuccessResponse 成功响应
func SuccessResponse(msg string, data interface{}) APIResponse {
	return APIResponse{Status: 0, Msg: msg, Data: data}
}

// ErrorResponse 错误响应，status 与 HTTP 状态码一致
func ErrorResponse(status int, msg string) APIResponse {
	return APIResponse{Status: status, Msg: msg}
}

// writeError 写出错误响应
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse(status, msg))
}

// statusForKind 查询错误类型到 HTTP 状态码的映射
func statusForKind(kind lookup.ErrorKind) int {
	switch kind {
	case lookup.KindValidation:
		return http.StatusBadRequest
	case lookup.KindRejected:
		return http.StatusTooManyRequests
	case lookup.KindNotFound:
		return http.StatusNotFound
	case lookup.KindMalformed:
		return http.StatusBadGateway
	case lookup.KindCanceled:
		// 客户端已断开，状态码只用于日志
		return 499
	default:
		return http.StatusServiceUnavailable
	}
}

// messageForKind 面向用户的错误信息
func messageForKind(kind lookup.ErrorKind) string {
	switch kind {
	case lookup.KindValidation:
		return "rsID格式错误或缺少用户标识"
	case lookup.KindRejected:
		return "已超过每小时查询次数限制"
	case lookup.KindNotFound:
		return "dbSNP中不存在该rsID"
	case lookup.KindMalformed:
		return "上游返回了无法解析的数据"
	case lookup.KindCanceled:
		return "请求已取消"
	default:
		return "服务暂时不可用，请稍后重试"
	}
}

// setRateLimitHeaders 写出配额相关响应头
func setRateLimitHeaders(w http.ResponseWriter, q *rate_limiter.RateLimitResult) {
	if q == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(q.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(q.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(q.ResetAt, 10))
}
