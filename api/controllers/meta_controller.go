/*
 * @module api/controllers/meta_controller
 * @description 元信息控制器，提供示例 rsID、服务说明与审计记录查询
 * @architecture RESTful API架构
 * @stateFlow HTTP请求 -> 控制器 -> 静态信息或审计存储
 * @rules 审计接口只返回脱敏后的用户标识；未启用审计时返回503
 * @dependencies github.com/go-chi/render
 * @refs service/lookup/examples.go, service/audit
 */

package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	"snpfreq-service/service/audit"
	"snpfreq-service/service/lookup"
	"snpfreq-service/service/models"
)

// AboutProvider 服务说明
type AboutProvider interface {
	About() lookup.About
}

// AuditReader 审计记录查询
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]models.LookupAudit, error)
}

// MetaController 元信息控制器
type MetaController struct {
	about AboutProvider
	audit AuditReader // 可为 nil
}

// NewMetaController 创建元信息控制器实例
func NewMetaController(about AboutProvider, audit AuditReader) *MetaController {
	return &MetaController{about: about, audit: audit}
}

// GetExamples 获取示例 rsID
// @Summary 示例rsID
// @Description 返回常用的示例 rsID 及其所在基因
// @Tags 元数据
// @Produce json
// @Success 200 {object} APIResponse{data=[]lookup.Example}
// @Router /examples [get]
func (c *MetaController) GetExamples(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("获取示例成功", lookup.Examples()))
}

// GetAbout 获取服务说明
// @Summary 服务说明
// @Description 返回数据来源、每小时查询限制与免责声明
// @Tags 元数据
// @Produce json
// @Success 200 {object} APIResponse{data=lookup.About}
// @Router /about [get]
func (c *MetaController) GetAbout(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("获取服务说明成功", c.about.About()))
}

// GetRecentLookups 获取最近的查询审计记录
// @Summary 查询审计
// @Description 按时间倒序返回最近的查询审计记录
// @Tags 管理
// @Produce json
// @Param limit query int false "返回条数，默认50，最大500"
// @Success 200 {object} APIResponse{data=[]models.LookupAudit}
// @Failure 400 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /admin/lookups [get]
func (c *MetaController) GetRecentLookups(w http.ResponseWriter, r *http.Request) {
	if c.audit == nil {
		writeError(w, r, http.StatusServiceUnavailable, "未启用查询审计")
		return
	}

	limit := audit.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "limit必须为正整数")
			return
		}
		limit = n
	}

	rows, err := c.audit.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "查询审计记录失败: "+err.Error())
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", rows))
}
