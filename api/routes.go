/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers, service/app.go
 */

package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"snpfreq-service/api/controllers"
	usermw "snpfreq-service/api/middleware"
	"snpfreq-service/service"
)

// Dependencies 路由所需的服务能力
type Dependencies struct {
	Lookup interface {
		controllers.VariantLookup
		controllers.AboutProvider
	}
	Reports controllers.ReportLocator // 可为 nil
	Charts  controllers.ChartLocator  // 可为 nil
	Audit   controllers.AuditReader   // 可为 nil
	Pinger  controllers.Pinger
}

// DependenciesFromApp 从装配好的服务实例提取路由依赖
func DependenciesFromApp(app *service.App) Dependencies {
	deps := Dependencies{Lookup: app.Lookup, Pinger: app}
	if app.Reports != nil {
		deps.Reports = app.Reports
	}
	if app.Charts != nil {
		deps.Charts = app.Charts
	}
	if app.Audit != nil {
		deps.Audit = app.Audit
	}
	return deps
}

// InitRoute 初始化所有API路由
func InitRoute(r chi.Router, deps Dependencies) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", usermw.UserIDHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After", "X-Cache"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController(deps.Pinger)
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 元数据
	metaController := controllers.NewMetaController(deps.Lookup, deps.Audit)
	r.Get("/examples", metaController.GetExamples)
	r.Get("/about", metaController.GetAbout)
	r.Get("/admin/lookups", metaController.GetRecentLookups)

	// 变异位点查询
	variantController := controllers.NewVariantController(deps.Lookup, deps.Reports, deps.Charts)
	r.Group(func(r chi.Router) {
		r.Use(usermw.UserIdentity)

		r.Get("/history", variantController.GetHistory)
		r.Get("/quota", variantController.GetQuota)

		r.Route("/variants/{rsid}", func(r chi.Router) {
			r.Get("/", variantController.GetVariant)
			r.Get("/report", variantController.GetReport)
			r.Get("/charts", variantController.GetCharts)
		})
	})
}
