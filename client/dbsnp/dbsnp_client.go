/*
 * @module client/dbsnp/dbsnp_client
 * @description NCBI dbSNP RefSNP 接口客户端，按 rsID 数字部分拉取原始记录并对失败进行分类
 * @architecture 适配器模式 - 封装上游 HTTP 接口
 * @stateFlow 构造请求 -> 发送 -> 状态码分类 -> JSON 解码
 * @rules 不做内部重试；超时与网络错误归为 Unavailable；404 归为 NotFound；其他非 200 或解码失败归为 Malformed
 * @dependencies net/http, encoding/json, log/slog
 * @refs service/lookup
 */

package dbsnp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"snpfreq-service/service/models"
)

// DefaultBaseURL NCBI Variation API 地址
const DefaultBaseURL = "https://api.ncbi.nlm.nih.gov"

// refSNPPath RefSNP 记录路径模板
const refSNPPath = "/variation/v0/refsnp/%s"

// 上游失败分类
var (
	ErrNotFound    = errors.New("variant not found upstream")
	ErrUnavailable = errors.New("upstream unavailable")
	ErrMalformed   = errors.New("unexpected upstream response")
)

// Client dbSNP 客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建 dbSNP 客户端，timeout 约束每次请求的总耗时
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch 拉取 rsID 对应的原始记录
func (c *Client) Fetch(ctx context.Context, id models.VariantID) (models.RawRecord, error) {
	url := c.baseURL + fmt.Sprintf(refSNPPath, id.NumericSuffix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: 创建HTTP请求失败: %w", ErrMalformed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("dbSNP请求失败", "rsid", id, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case resp.StatusCode >= http.StatusInternalServerError:
		slog.Warn("dbSNP服务端错误", "rsid", id, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		slog.Warn("dbSNP返回非预期状态码", "rsid", id, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrMalformed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// 读取响应体中途超时或断连
		slog.Warn("读取dbSNP响应失败", "rsid", id, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var raw models.RawRecord
	if err := json.Unmarshal(body, &raw); err != nil {
		slog.Warn("解析dbSNP响应失败", "rsid", id, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}

	return raw, nil
}
