/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器，提供服务存活与就绪检查
 * @architecture MVC架构 - 控制器层
 * @stateFlow HTTP请求处理流程
 * @rules 存活检查不访问外部依赖；就绪检查探测 Redis，失败返回503
 * @dependencies net/http
 * @refs service/app.go
 */

package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// ServiceName 服务名
const ServiceName = "snpfreq-service"

// Version 服务版本
var Version = "1.0.0"

// Pinger 依赖连通性探测
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController 健康检查控制器
type HealthController struct {
	pinger  Pinger
	timeout time.Duration
}

// NewHealthController 创建健康检查控制器实例
func NewHealthController(pinger Pinger) *HealthController {
	return &HealthController{pinger: pinger, timeout: 2 * time.Second}
}

// HealthResponse 健康检查响应结构
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Timestamp time.Time `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Version   string    `json:"version" example:"1.0.0"`
	Service   string    `json:"service" example:"snpfreq-service"`
	Error     string    `json:"error,omitempty"`
}

// Health 健康检查
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   Version,
		Service:   ServiceName,
	}

	render.JSON(w, r, response)
}

// Ready 就绪检查
// @Summary 就绪检查
// @Description 检查 Redis 是否可用
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /ready [get]
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   Version,
		Service:   ServiceName,
	}

	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	if err := c.pinger.Ping(ctx); err != nil {
		slog.Warn("就绪检查失败", "error", err)
		response.Status = "unavailable"
		response.Error = err.Error()
		render.Status(r, http.StatusServiceUnavailable)
	}

	render.JSON(w, r, response)
}
