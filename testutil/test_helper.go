/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数：内存 Redis、内存 SQLite、dbSNP 假服务与 RefSNP 文档工厂
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies miniredis, go-redis, gorm, sqlite, testify
 * @refs service/models, client/dbsnp
 */

package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"snpfreq-service/service/models"
)

// TestRedis 测试用 Redis（进程内 miniredis）
type TestRedis struct {
	Server *miniredis.Miniredis
	Client *redis.Client
}

// NewTestRedis 启动内存 Redis 并返回已连接的客户端，测试结束自动关闭
func NewTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		client.Close()
	})

	return &TestRedis{Server: server, Client: client}
}

// NewTestDB 创建内存 SQLite 测试数据库并迁移审计表
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect test database")

	require.NoError(t, db.AutoMigrate(&models.LookupAudit{}), "failed to migrate test database")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// StudyFrequency 单个研究的频率观测
type StudyFrequency struct {
	Study       string
	Ref         string
	Alt         string
	AlleleCount int
	TotalCount  int
}

// RefSNPOption RefSNP 文档选项函数类型
type RefSNPOption func(doc map[string]interface{})

// WithGenes 设置基因符号（作为 allele_annotations[*].gene 对象写入）
func WithGenes(symbols ...string) RefSNPOption {
	return func(doc map[string]interface{}) {
		primary := doc["primary_snapshot_data"].(map[string]interface{})
		anns := primary["allele_annotations"].([]interface{})
		for _, s := range symbols {
			anns = append(anns, map[string]interface{}{
				"gene": map[string]interface{}{"symbol": s},
			})
		}
		primary["allele_annotations"] = anns
	}
}

// WithPlacement 设置 GRCh38 顶层序列位置
func WithPlacement(seqID string, position int) RefSNPOption {
	return func(doc map[string]interface{}) {
		primary := doc["primary_snapshot_data"].(map[string]interface{})
		primary["placements_with_allele"] = []interface{}{
			map[string]interface{}{
				"is_ptlp": true,
				"placement_annot": map[string]interface{}{
					"assembly_name": "GRCh38.p14",
				},
				"alleles": []interface{}{
					map[string]interface{}{
						"allele": map[string]interface{}{
							"spdi": map[string]interface{}{
								"seq_id":   seqID,
								"position": position,
							},
						},
					},
				},
			},
		}
	}
}

// WithHGVS 设置 HGVS 表示
func WithHGVS(hgvs ...string) RefSNPOption {
	return func(doc map[string]interface{}) {
		list := make([]interface{}, 0, len(hgvs))
		for _, h := range hgvs {
			list = append(list, h)
		}
		doc["hgvs"] = list
	}
}

// WithVariantType 设置变异类型
func WithVariantType(variantType string) RefSNPOption {
	return func(doc map[string]interface{}) {
		primary := doc["primary_snapshot_data"].(map[string]interface{})
		primary["variant_type"] = variantType
	}
}

// NewRefSNPDocument 构造与 dbSNP RefSNP 接口结构一致的文档
func NewRefSNPDocument(studies []StudyFrequency, opts ...RefSNPOption) map[string]interface{} {
	freqs := make([]interface{}, 0, len(studies))
	for _, s := range studies {
		freqs = append(freqs, map[string]interface{}{
			"study_name":   s.Study,
			"allele_count": s.AlleleCount,
			"total_count":  s.TotalCount,
			"observation": map[string]interface{}{
				"deleted_sequence":  s.Ref,
				"inserted_sequence": s.Alt,
			},
		})
	}

	doc := map[string]interface{}{
		"primary_snapshot_data": map[string]interface{}{
			"allele_annotations": []interface{}{
				map[string]interface{}{"frequency": freqs},
			},
		},
	}
	for _, opt := range opts {
		opt(doc)
	}
	return doc
}

// MustJSON 序列化为 JSON，失败直接 panic
func MustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal fixture: %v", err))
	}
	return data
}

// FixtureResponse 假服务针对某个 rsID 数字部分的响应
type FixtureResponse struct {
	Status int
	Body   []byte
}

// DBSNPServer dbSNP 假服务，记录每个 rsID 的调用次数
type DBSNPServer struct {
	*httptest.Server

	mu        sync.RWMutex
	fixtures  map[string]FixtureResponse
	calls     sync.Map // numeric id -> *int64
	totalCall int64
}

// NewDBSNPServer 启动 dbSNP 假服务，未登记的 rsID 返回 404
func NewDBSNPServer(t *testing.T) *DBSNPServer {
	t.Helper()

	s := &DBSNPServer{fixtures: make(map[string]FixtureResponse)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Server.Close)
	return s
}

// Set 登记响应
func (s *DBSNPServer) Set(numericID string, status int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixtures[numericID] = FixtureResponse{Status: status, Body: body}
}

// SetDocument 登记 200 响应
func (s *DBSNPServer) SetDocument(numericID string, doc map[string]interface{}) {
	s.Set(numericID, http.StatusOK, MustJSON(doc))
}

// Calls 返回某个 rsID 的调用次数
func (s *DBSNPServer) Calls(numericID string) int64 {
	if v, ok := s.calls.Load(numericID); ok {
		return atomic.LoadInt64(v.(*int64))
	}
	return 0
}

// TotalCalls 返回总调用次数
func (s *DBSNPServer) TotalCalls() int64 {
	return atomic.LoadInt64(&s.totalCall)
}

func (s *DBSNPServer) handle(w http.ResponseWriter, r *http.Request) {
	const prefix = "/variation/v0/refsnp/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, prefix)

	counter, _ := s.calls.LoadOrStore(id, new(int64))
	atomic.AddInt64(counter.(*int64), 1)
	atomic.AddInt64(&s.totalCall, 1)

	s.mu.RLock()
	fixture, ok := s.fixtures[id]
	s.mu.RUnlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":404,"message":"RefSNP not found"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(fixture.Status)
	w.Write(fixture.Body)
}
