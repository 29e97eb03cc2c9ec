package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snpfreq-service/service"
	"snpfreq-service/service/config"
	"snpfreq-service/testutil"
)

func newTestRouter(t *testing.T, limit int) (*chi.Mux, *testutil.DBSNPServer) {
	t.Helper()

	rds := testutil.NewTestRedis(t)
	upstream := testutil.NewDBSNPServer(t)

	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.RedisURL = "redis://" + rds.Server.Addr() + "/0"
	cfg.NCBIBaseURL = upstream.URL
	cfg.MaxRequestsPerHour = limit
	cfg.ReportsDir = filepath.Join(dir, "reports")
	cfg.ChartsDir = filepath.Join(dir, "charts")

	app, err := service.NewApp(context.Background(), cfg, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	r := chi.NewRouter()
	InitRoute(r, DependenciesFromApp(app))
	return r, upstream
}

func get(r http.Handler, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutes_LookupFlow(t *testing.T) {
	r, upstream := newTestRouter(t, 2)
	upstream.SetDocument("1801133", testutil.NewRefSNPDocument([]testutil.StudyFrequency{
		{Study: "GnomAD", Ref: "G", Alt: "A", AlleleCount: 300, TotalCount: 1000},
	}))

	w := get(r, "/variants/rs1801133", "alice")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "upstream", w.Header().Get("X-Cache"))

	w = get(r, "/variants/rs1801133", "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cache", w.Header().Get("X-Cache"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = get(r, "/variants/rs1801133", "alice")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))

	w = get(r, "/history", "alice")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			RSIDs []string `json:"rsids"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, []string{"rs1801133", "rs1801133"}, resp.Data.RSIDs)

	w = get(r, "/variants/rs1801133/report", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rs1801133")

	w = get(r, "/variants/rs1801133/charts", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_Errors(t *testing.T) {
	r, _ := newTestRouter(t, 50)

	assert.Equal(t, http.StatusBadRequest, get(r, "/variants/abc", "bob").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/variants/rs1", "").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/variants/rs999999", "bob").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/history", "").Code)
}

func TestRoutes_Meta(t *testing.T) {
	r, _ := newTestRouter(t, 50)

	assert.Equal(t, http.StatusOK, get(r, "/health", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ready", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/examples", "").Code)

	w := get(r, "/about", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dbSNP")

	// 默认配置未启用审计
	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/admin/lookups", "").Code)
}
