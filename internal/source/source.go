package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dc-folding/team-comp-backend/internal/domain"
)

// Source 是外部统计源的契约：给定用户身份，返回其终身累计数据。
// 实现不做内部重试；重试策略由调用方（调度器）掌握。
type Source interface {
	Fetch(ctx context.Context, identity domain.Identity) (domain.Stats, error)
}

// ConnectionError 表示到统计源的传输层失败（连接、超时），属于可重试的瞬时错误。
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("无法连接到统计源 %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// APIError 表示统计源返回了确定性的失败（非2xx、响应不可解析），不可盲目重试。
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("统计源返回错误 (HTTP %d): %s", e.Status, e.Message)
}

// HTTPSource 是Source的HTTP/JSON实现，带有界超时：
// 挂起的调用会在超时后以ConnectionError失败，而不是拖住整个小时周期。
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource 创建一个HTTP统计源客户端。
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// statsPayload 对应统计源返回的JSON结构。
type statsPayload struct {
	Points int64 `json:"points"`
	Units  int64 `json:"units"`
}

// Fetch 调用 GET {base}/user/{name}/stats?passkey=... 获取终身累计数据。
func (s *HTTPSource) Fetch(ctx context.Context, identity domain.Identity) (domain.Stats, error) {
	endpoint := fmt.Sprintf("%s/user/%s/stats?passkey=%s",
		s.baseURL, url.PathEscape(identity.FoldingName), url.QueryEscape(identity.Passkey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Stats{}, &APIError{Message: fmt.Sprintf("无法构造请求: %v", err)}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.Stats{}, &ConnectionError{URL: s.baseURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Stats{}, &APIError{Status: resp.StatusCode, Message: string(body)}
	}

	var payload statsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Stats{}, &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("响应不可解析: %v", err)}
	}
	if payload.Points < 0 || payload.Units < 0 {
		return domain.Stats{}, &APIError{Status: resp.StatusCode, Message: "统计源报告了负数的累计数据"}
	}

	return domain.Stats{Points: payload.Points, Units: payload.Units}, nil
}
