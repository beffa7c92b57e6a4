package search

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/HildaM/logs/slog"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hildam/printlab/entity/conf"
	"github.com/hildam/printlab/entity/model"
)

// tavilyRequest Tavily 检索请求
type tavilyRequest struct {
	APIKey         string   `json:"api_key,omitempty"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth,omitempty"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

// tavilyResponse Tavily 检索响应
type tavilyResponse struct {
	Results []struct {
		Title   string   `json:"title"`
		URL     string   `json:"url"`
		Content string   `json:"content"`
		Score   *float64 `json:"score"`
	} `json:"results"`
}

// defaultCallTimeout 未配置超时时的单次请求上限
const defaultCallTimeout = 60 * time.Second

// Tavily 基于 Tavily HTTP 接口的检索服务
type Tavily struct {
	cli     *client.Client
	baseURL string
	apiKey  string
	profile Profile
	timeout time.Duration
}

// newHTTPClient 创建共享的 hertz 客户端，netpoll 不支持 tls，这里换成标准库 dialer
func newHTTPClient(timeout time.Duration, tlsCfg *tls.Config) (*client.Client, error) {
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	cli, err := client.NewClient(
		client.WithDialer(standard.NewDialer()),
		client.WithTLSConfig(tlsCfg),
		client.WithDialTimeout(10*time.Second),
		client.WithClientReadTimeout(timeout),
	)
	if err != nil {
		slog.Error("newHTTPClient failed, err = %+v", err)
		return nil, fmt.Errorf("create http client: %w", err)
	}
	return cli, nil
}

// NewTavily 创建实例
func NewTavily(cli *client.Client, cfg conf.TavilyConfig, profile Profile, timeout time.Duration) *Tavily {
	return &Tavily{
		cli:     cli,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		profile: profile,
		timeout: timeout,
	}
}

// Search 按 profile 改写查询后调用 /search
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]model.Document, error) {
	body, err := json.Marshal(&tavilyRequest{
		APIKey:         t.apiKey,
		Query:          t.profile.Query(query),
		SearchDepth:    t.profile.Depth,
		MaxResults:     t.profile.limit(maxResults),
		IncludeDomains: t.profile.IncludeDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrProvider, err)
	}

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetRequestURI(t.baseURL + "/search")
	req.SetMethod(consts.MethodPost)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	if t.apiKey != "" {
		req.SetHeader("Authorization", "Bearer "+t.apiKey)
	}
	req.SetBody(body)

	if err := t.cli.DoTimeout(ctx, req, resp, t.callTimeout(ctx)); err != nil {
		slog.Error("Search failed, %s query = %s, err = %+v", t.profile.Name, query, err)
		return nil, fmt.Errorf("%w: %s: %v", ErrProvider, t.profile.Name, err)
	}
	if code := resp.StatusCode(); code != consts.StatusOK {
		slog.Error("Search failed, %s query = %s, status = %d", t.profile.Name, query, code)
		return nil, fmt.Errorf("%w: %s: status %d", ErrProvider, t.profile.Name, code)
	}

	var out tavilyResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("%w: %s: decode: %v", ErrProvider, t.profile.Name, err)
	}

	docs := make([]model.Document, 0, len(out.Results))
	for _, r := range out.Results {
		docs = append(docs, model.Document{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   scoreOrDefault(r.Score),
		})
	}
	slog.Debug("Search debug, %s query = %s, results = %d", t.profile.Name, query, len(docs))
	return docs, nil
}

// callTimeout 取配置超时与 ctx 剩余时间中较小的一个
func (t *Tavily) callTimeout(ctx context.Context) time.Duration {
	timeout := t.timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	// ctx 已过期时仍交给客户端，由其立即返回超时错误
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	return timeout
}
