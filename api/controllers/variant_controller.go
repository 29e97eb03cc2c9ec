/*
 * @module api/controllers/variant_controller
 * @description 变异位点查询控制器，提供 rsID 查询、查询历史、配额与渲染产物下载接口
 * @architecture RESTful API架构
 * @stateFlow HTTP请求 -> 用户标识 -> 查询编排服务 -> 错误分类 -> 统一响应
 * @rules 错误类型映射为固定状态码；限流拒绝附带 X-RateLimit-* 与 Retry-After 头；产物只从渲染目录读取
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/lookup, api/middleware/user_identity.go
 */

package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"snpfreq-service/api/middleware"
	"snpfreq-service/service/lookup"
	"snpfreq-service/service/models"
	"snpfreq-service/service/rate_limiter"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// VariantLookup 控制器依赖的查询能力
type VariantLookup interface {
	Resolve(ctx context.Context, userID, rsid string) (*lookup.Outcome, error)
	History(ctx context.Context, userID string) ([]models.VariantID, error)
	Quota(ctx context.Context, userID string) (*rate_limiter.RateLimitResult, error)
}

// ReportLocator 报告文件定位
type ReportLocator interface {
	ReportPath(id models.VariantID) string
}

// ChartLocator 图表文件定位
type ChartLocator interface {
	ChartPath(id models.VariantID) string
}

// VariantController 变异位点查询控制器
type VariantController struct {
	lookup  VariantLookup
	reports ReportLocator // 可为 nil
	charts  ChartLocator  // 可为 nil
}

// NewVariantController 创建变异位点查询控制器实例
func NewVariantController(lookup VariantLookup, reports ReportLocator, charts ChartLocator) *VariantController {
	return &VariantController{lookup: lookup, reports: reports, charts: charts}
}

// HistoryResponse 查询历史响应
type HistoryResponse struct {
	UserID string             `json:"user_id"`
	RSIDs  []models.VariantID `json:"rsids"`
}

// GetVariant 查询 rsID 的人群频率
// @Summary 查询变异位点
// @Description 查询 rsID 的等位基因频率、基因型频率与富化摘要，结果缓存24小时
// @Tags 变异位点
// @Produce json
// @Param rsid path string true "rsID，如 rs1801133"
// @Param X-User-ID header string true "用户标识"
// @Success 200 {object} APIResponse{data=lookup.Outcome}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 429 {object} APIResponse
// @Failure 502 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /variants/{rsid} [get]
func (c *VariantController) GetVariant(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	rsid := chi.URLParam(r, "rsid")

	out, err := c.lookup.Resolve(r.Context(), userID, rsid)
	if err != nil {
		c.writeLookupError(w, r, err)
		return
	}

	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(out.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(out.ResetAt, 10))
	w.Header().Set("X-Cache", string(out.Source))
	render.JSON(w, r, SuccessResponse("查询成功", out))
}

// writeLookupError 按错误类型写出响应
func (c *VariantController) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	kind := lookup.KindOf(err)
	status := statusForKind(kind)

	var le *lookup.LookupError
	if errors.As(err, &le) && le.Quota != nil {
		setRateLimitHeaders(w, le.Quota)
		if wait := le.Quota.ResetAt - time.Now().Unix(); wait > 0 {
			w.Header().Set("Retry-After", strconv.FormatInt(wait, 10))
		}
	}

	if kind == lookup.KindCanceled {
		slog.Debug("客户端取消查询", "path", r.URL.Path)
		return
	}
	writeError(w, r, status, messageForKind(kind))
}

// GetHistory 查询最近24小时内的查询历史
// @Summary 查询历史
// @Description 返回用户最近24小时内查询过的 rsID，按时间先后排列，可能重复
// @Tags 变异位点
// @Produce json
// @Param X-User-ID header string true "用户标识"
// @Success 200 {object} APIResponse{data=HistoryResponse}
// @Failure 400 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /history [get]
func (c *VariantController) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	ids, err := c.lookup.History(r.Context(), userID)
	if err != nil {
		c.writeLookupError(w, r, err)
		return
	}
	if ids == nil {
		ids = []models.VariantID{}
	}

	render.JSON(w, r, SuccessResponse("查询成功", HistoryResponse{UserID: userID, RSIDs: ids}))
}

// GetQuota 查询当前小时配额
// @Summary 查询配额
// @Description 返回用户当前小时的已用次数和剩余次数，不消耗配额
// @Tags 变异位点
// @Produce json
// @Param X-User-ID header string true "用户标识"
// @Success 200 {object} APIResponse{data=rate_limiter.RateLimitResult}
// @Failure 400 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /quota [get]
func (c *VariantController) GetQuota(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	quota, err := c.lookup.Quota(r.Context(), userID)
	if err != nil {
		c.writeLookupError(w, r, err)
		return
	}

	setRateLimitHeaders(w, quota)
	render.JSON(w, r, SuccessResponse("查询成功", quota))
}

// GetReport 下载 HTML 报告
// @Summary 下载报告
// @Description 返回最近一次计算生成的 HTML 报告
// @Tags 变异位点
// @Produce html
// @Param rsid path string true "rsID"
// @Success 200 {file} file
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /variants/{rsid}/report [get]
func (c *VariantController) GetReport(w http.ResponseWriter, r *http.Request) {
	if c.reports == nil {
		writeError(w, r, http.StatusNotFound, "未启用报告生成")
		return
	}
	id, ok := parseRSIDParam(w, r)
	if !ok {
		return
	}
	serveArtifact(w, r, c.reports.ReportPath(id), "text/html; charset=utf-8", "")
}

// GetCharts 下载图表工作簿
// @Summary 下载图表
// @Description 返回最近一次计算生成的频率图表工作簿
// @Tags 变异位点
// @Produce octet-stream
// @Param rsid path string true "rsID"
// @Success 200 {file} file
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /variants/{rsid}/charts [get]
func (c *VariantController) GetCharts(w http.ResponseWriter, r *http.Request) {
	if c.charts == nil {
		writeError(w, r, http.StatusNotFound, "未启用图表生成")
		return
	}
	id, ok := parseRSIDParam(w, r)
	if !ok {
		return
	}
	serveArtifact(w, r, c.charts.ChartPath(id), xlsxContentType, id.String()+"_charts.xlsx")
}

func parseRSIDParam(w http.ResponseWriter, r *http.Request) (models.VariantID, bool) {
	id, err := models.ParseVariantID(chi.URLParam(r, "rsid"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, messageForKind(lookup.KindValidation))
		return "", false
	}
	return id, true
}

// serveArtifact 输出渲染产物，attachment 非空时作为附件下载
func serveArtifact(w http.ResponseWriter, r *http.Request, path, contentType, attachment string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, r, http.StatusNotFound, "产物不存在，请先查询该rsID")
		return
	}

	w.Header().Set("Content-Type", contentType)
	if attachment != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+attachment+`"`)
	}
	http.ServeFile(w, r, path)
}
