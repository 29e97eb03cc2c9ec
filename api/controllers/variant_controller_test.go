package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"snpfreq-service/api/middleware"
	"snpfreq-service/service/lookup"
	"snpfreq-service/service/models"
	"snpfreq-service/service/rate_limiter"
)

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) Resolve(ctx context.Context, userID, rsid string) (*lookup.Outcome, error) {
	args := m.Called(ctx, userID, rsid)
	out, _ := args.Get(0).(*lookup.Outcome)
	return out, args.Error(1)
}

func (m *mockLookup) History(ctx context.Context, userID string) ([]models.VariantID, error) {
	args := m.Called(ctx, userID)
	ids, _ := args.Get(0).([]models.VariantID)
	return ids, args.Error(1)
}

func (m *mockLookup) Quota(ctx context.Context, userID string) (*rate_limiter.RateLimitResult, error) {
	args := m.Called(ctx, userID)
	q, _ := args.Get(0).(*rate_limiter.RateLimitResult)
	return q, args.Error(1)
}

type dirLocator string

func (d dirLocator) ReportPath(id models.VariantID) string {
	return filepath.Join(string(d), id.String()+".html")
}

func (d dirLocator) ChartPath(id models.VariantID) string {
	return filepath.Join(string(d), id.String()+"_charts.xlsx")
}

func newVariantRouter(c *VariantController) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.UserIdentity)
	r.Get("/history", c.GetHistory)
	r.Get("/quota", c.GetQuota)
	r.Get("/variants/{rsid}", c.GetVariant)
	r.Get("/variants/{rsid}/report", c.GetReport)
	r.Get("/variants/{rsid}/charts", c.GetCharts)
	return r
}

func doGet(t *testing.T, h http.Handler, path, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestGetVariant_Success(t *testing.T) {
	m := new(mockLookup)
	m.On("Resolve", mock.Anything, "u1", "rs7412").Return(&lookup.Outcome{
		Result:    &models.EnrichedResult{RSID: "rs7412", SchemaVersion: models.ResultSchemaVersion},
		Source:    lookup.SourceCache,
		Remaining: 41,
		ResetAt:   1700000000,
	}, nil)

	w := doGet(t, newVariantRouter(NewVariantController(m, nil, nil)), "/variants/rs7412", "u1")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "41", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "cache", w.Header().Get("X-Cache"))

	resp := decode(t, w)
	assert.Equal(t, 0, resp.Status)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "cache", data["source"])
	assert.Equal(t, "rs7412", data["result"].(map[string]interface{})["rsid"])
	m.AssertExpectations(t)
}

func TestGetVariant_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		kind   lookup.ErrorKind
		status int
	}{
		{"格式错误", lookup.KindValidation, http.StatusBadRequest},
		{"不存在", lookup.KindNotFound, http.StatusNotFound},
		{"上游不可用", lookup.KindUnavailable, http.StatusServiceUnavailable},
		{"上游数据异常", lookup.KindMalformed, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(mockLookup)
			m.On("Resolve", mock.Anything, "u1", "rs1").
				Return(nil, &lookup.LookupError{Kind: tt.kind, RSID: "rs1", Err: errors.New("boom")})

			w := doGet(t, newVariantRouter(NewVariantController(m, nil, nil)), "/variants/rs1", "u1")

			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			assert.Equal(t, tt.status, resp.Status)
			assert.NotEmpty(t, resp.Msg)
		})
	}
}

func TestGetVariant_RateLimited(t *testing.T) {
	resetAt := time.Now().Add(10 * time.Minute).Unix()
	m := new(mockLookup)
	m.On("Resolve", mock.Anything, "u1", "rs1").Return(nil, &lookup.LookupError{
		Kind:  lookup.KindRejected,
		RSID:  "rs1",
		Err:   lookup.ErrQuotaExceeded,
		Quota: &rate_limiter.RateLimitResult{Allowed: false, Limit: 50, Remaining: 0, Count: 51, ResetAt: resetAt},
	})

	w := doGet(t, newVariantRouter(NewVariantController(m, nil, nil)), "/variants/rs1", "u1")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "50", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestGetVariant_MissingUserPassesThrough(t *testing.T) {
	m := new(mockLookup)
	m.On("Resolve", mock.Anything, "", "rs1").
		Return(nil, &lookup.LookupError{Kind: lookup.KindValidation, Err: errors.New("user id is required")})

	w := doGet(t, newVariantRouter(NewVariantController(m, nil, nil)), "/variants/rs1", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	m.AssertExpectations(t)
}

func TestUserIdentity_RejectsInvalidHeader(t *testing.T) {
	m := new(mockLookup)
	long := make([]byte, middleware.MaxUserIDLength+1)
	for i := range long {
		long[i] = 'a'
	}

	w := doGet(t, newVariantRouter(NewVariantController(m, nil, nil)), "/variants/rs1", string(long))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	m.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetHistory(t *testing.T) {
	m := new(mockLookup)
	m.On("History", mock.Anything, "u1").Return([]models.VariantID{"rs1", "rs2", "rs1"}, nil)
	m.On("History", mock.Anything, "u2").Return(nil, nil)

	router := newVariantRouter(NewVariantController(m, nil, nil))

	w := doGet(t, router, "/history", "u1")
	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, []interface{}{"rs1", "rs2", "rs1"}, data["rsids"])

	w = doGet(t, router, "/history", "u2")
	assert.Equal(t, http.StatusOK, w.Code)
	data = decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, []interface{}{}, data["rsids"])
}

func TestGetQuota(t *testing.T) {
	m := new(mockLookup)
	m.On("Quota", mock.Anything, "u1").Return(&rate_limiter.RateLimitResult{Allowed: true, Limit: 50, Remaining: 47, Count: 3}, nil)
	m.On("Quota", mock.Anything, "u2").Return(nil, &lookup.LookupError{Kind: lookup.KindUnavailable, Err: errors.New("redis down")})

	router := newVariantRouter(NewVariantController(m, nil, nil))

	w := doGet(t, router, "/quota", "u1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "47", w.Header().Get("X-RateLimit-Remaining"))

	w = doGet(t, router, "/quota", "u2")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestArtifacts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rs7412.html"), []byte("<html>report</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rs7412_charts.xlsx"), []byte("PK"), 0o644))

	loc := dirLocator(dir)
	router := newVariantRouter(NewVariantController(new(mockLookup), loc, loc))

	w := doGet(t, router, "/variants/RS7412/report", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "report")
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	w = doGet(t, router, "/variants/rs7412/charts", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "rs7412_charts.xlsx")

	w = doGet(t, router, "/variants/rs1/report", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doGet(t, router, "/variants/abc/report", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestArtifacts_RenderDisabled(t *testing.T) {
	router := newVariantRouter(NewVariantController(new(mockLookup), nil, nil))

	assert.Equal(t, http.StatusNotFound, doGet(t, router, "/variants/rs1/report", "").Code)
	assert.Equal(t, http.StatusNotFound, doGet(t, router, "/variants/rs1/charts", "").Code)
}
