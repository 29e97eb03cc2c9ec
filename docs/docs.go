// Package docs 提供 swagger 文档注册
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/variants/{rsid}": {
            "get": {
                "description": "查询 rsID 的等位基因频率、基因型频率与富化摘要，结果缓存24小时",
                "produces": ["application/json"],
                "tags": ["变异位点"],
                "summary": "查询变异位点",
                "parameters": [
                    {"type": "string", "description": "rsID，如 rs1801133", "name": "rsid", "in": "path", "required": true},
                    {"type": "string", "description": "用户标识", "name": "X-User-ID", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}
                }
            }
        },
        "/variants/{rsid}/report": {
            "get": {
                "description": "返回最近一次计算生成的 HTML 报告",
                "produces": ["text/html"],
                "tags": ["变异位点"],
                "summary": "下载报告",
                "parameters": [{"type": "string", "description": "rsID", "name": "rsid", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}
                }
            }
        },
        "/variants/{rsid}/charts": {
            "get": {
                "description": "返回最近一次计算生成的频率图表工作簿",
                "produces": ["application/octet-stream"],
                "tags": ["变异位点"],
                "summary": "下载图表",
                "parameters": [{"type": "string", "description": "rsID", "name": "rsid", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}
                }
            }
        },
        "/history": {
            "get": {
                "description": "返回用户最近24小时内查询过的 rsID，按时间先后排列，可能重复",
                "produces": ["application/json"],
                "tags": ["变异位点"],
                "summary": "查询历史",
                "parameters": [{"type": "string", "description": "用户标识", "name": "X-User-ID", "in": "header", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}
                }
            }
        },
        "/quota": {
            "get": {
                "description": "返回用户当前小时的已用次数和剩余次数，不消耗配额",
                "produces": ["application/json"],
                "tags": ["变异位点"],
                "summary": "查询配额",
                "parameters": [{"type": "string", "description": "用户标识", "name": "X-User-ID", "in": "header", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}
                }
            }
        },
        "/examples": {
            "get": {
                "description": "返回常用的示例 rsID 及其所在基因",
                "produces": ["application/json"],
                "tags": ["元数据"],
                "summary": "示例rsID",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}}
            }
        },
        "/about": {
            "get": {
                "description": "返回数据来源、每小时查询限制与免责声明",
                "produces": ["application/json"],
                "tags": ["元数据"],
                "summary": "服务说明",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}}
            }
        },
        "/admin/lookups": {
            "get": {
                "description": "按时间倒序返回最近的查询审计记录",
                "produces": ["application/json"],
                "tags": ["管理"],
                "summary": "查询审计",
                "parameters": [{"type": "integer", "description": "返回条数，默认50，最大500", "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}}
            }
        },
        "/health": {
            "get": {
                "description": "检查服务健康状态",
                "produces": ["application/json"],
                "tags": ["系统"],
                "summary": "健康检查",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.HealthResponse"}}}
            }
        },
        "/ready": {
            "get": {
                "description": "检查 Redis 是否可用",
                "produces": ["application/json"],
                "tags": ["系统"],
                "summary": "就绪检查",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/controllers.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "controllers.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "msg": {"type": "string", "example": "操作成功"},
                "status": {"type": "integer", "example": 0}
            }
        },
        "controllers.HealthResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "service": {"type": "string", "example": "snpfreq-service"},
                "status": {"type": "string", "example": "ok"},
                "timestamp": {"type": "string", "example": "2024-01-01T00:00:00Z"},
                "version": {"type": "string", "example": "1.0.0"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "SNP 人群频率查询服务 API",
	Description:      "按 rsID 查询 dbSNP 人群等位基因频率，计算 Hardy-Weinberg 基因型频率并生成报告",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
