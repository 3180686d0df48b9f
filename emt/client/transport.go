package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/riiy/EMTradingAgent/emt/types"
)

// Response 平台的原始 HTTP 响应
type Response struct {
	StatusCode int
	Body       []byte
	Cookies    []*http.Cookie
}

// Transport 出站 HTTP 边界，便于测试时换成桩实现
type Transport interface {
	Get(ctx context.Context, path string, headers map[string]string, query url.Values) (*Response, error)
	PostForm(ctx context.Context, path string, headers map[string]string, form url.Values) (*Response, error)
}

// restyTransport 基于 resty 的 Transport 实现。
//
// 重试次数显式设为 0：下单请求自动重试可能造成重复委托，
// 这是资金风险而不是普通的瞬时故障，重试与否必须由调用方决定。
// resty 会自动读取 HTTP_PROXY / HTTPS_PROXY 环境变量。
type restyTransport struct {
	rc *resty.Client
}

// NewTransport 创建指向指定主机的 HTTP 传输层
func NewTransport(baseURL string, timeout time.Duration) Transport {
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0)
	return &restyTransport{rc: rc}
}

func (t *restyTransport) Get(ctx context.Context, path string, headers map[string]string, query url.Values) (*Response, error) {
	r := t.rc.R().SetContext(ctx).SetHeaders(headers)
	if query != nil {
		r.SetQueryParamsFromValues(query)
	}
	resp, err := r.Get(path)
	if err != nil {
		return nil, &types.TransportError{Op: "GET " + path, Err: err}
	}
	return toResponse(resp), nil
}

func (t *restyTransport) PostForm(ctx context.Context, path string, headers map[string]string, form url.Values) (*Response, error) {
	resp, err := t.rc.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetFormDataFromValues(form).
		Post(path)
	if err != nil {
		return nil, &types.TransportError{Op: "POST " + path, Err: err}
	}
	return toResponse(resp), nil
}

func toResponse(resp *resty.Response) *Response {
	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Cookies:    resp.Cookies(),
	}
}

// defaultHeaders 模拟浏览器的基础请求头，缺了会被平台风控拦截
func defaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) " +
			"Chrome/114.0.0.0 Safari/537.36",
		"Origin": "https://jywg.18.cn",
		"Host":   "jywg.18.cn",
	}
}

// ajaxHeaders 在基础头之上加 XHR 标记和 Referer
func ajaxHeaders(referer string) map[string]string {
	h := defaultHeaders()
	h["X-Requested-With"] = "XMLHttpRequest"
	if referer != "" {
		h["Referer"] = referer
	}
	return h
}

// sessionHeaders 在 AJAX 头之上带上会话 Cookie
func sessionHeaders(s *types.Session) map[string]string {
	h := ajaxHeaders("")
	if cookie := s.CookieHeader(); cookie != "" {
		h["Cookie"] = cookie
	}
	return h
}
