package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// MockTransport 测试用的传输桩：按端点记录调用次数、注入错误、
// 返回预设响应。会话守卫的「不发网络请求」断言依赖这里的计数。
type MockTransport struct {
	mu sync.Mutex

	// Calls 每个端点的调用次数
	Calls map[string]int

	// TotalCalls 所有端点的调用总数
	TotalCalls int

	// ErrorOnNext 下一次访问该端点时返回的错误（消费后清除）
	ErrorOnNext map[string]error

	// Responses 端点到预设响应的映射
	Responses map[string]*Response

	// Forms 每个端点最近一次提交的表单
	Forms map[string]url.Values

	// Queries 每个端点最近一次 GET 的查询参数
	Queries map[string]url.Values
}

// NewMockTransport 创建传输桩
func NewMockTransport() *MockTransport {
	return &MockTransport{
		Calls:       make(map[string]int),
		ErrorOnNext: make(map[string]error),
		Responses:   make(map[string]*Response),
		Forms:       make(map[string]url.Values),
		Queries:     make(map[string]url.Values),
	}
}

// SetResponse 设置端点的预设响应
func (m *MockTransport) SetResponse(endpoint string, resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[endpoint] = resp
}

// SetJSONResponse 设置端点返回的 JSON 文本（状态码 200）
func (m *MockTransport) SetJSONResponse(endpoint, body string) {
	m.SetResponse(endpoint, &Response{StatusCode: 200, Body: []byte(body)})
}

// SetJSONResponseWithCookies 设置带 Cookie 的 JSON 响应
func (m *MockTransport) SetJSONResponseWithCookies(endpoint, body string, cookies []*http.Cookie) {
	m.SetResponse(endpoint, &Response{StatusCode: 200, Body: []byte(body), Cookies: cookies})
}

// LastForm 端点最近一次提交的表单
func (m *MockTransport) LastForm(endpoint string) url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Forms[endpoint]
}

// CallCount 端点的调用次数
func (m *MockTransport) CallCount(endpoint string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[endpoint]
}

func (m *MockTransport) Get(ctx context.Context, path string, headers map[string]string, query url.Values) (*Response, error) {
	return m.respond(path, nil, query)
}

func (m *MockTransport) PostForm(ctx context.Context, path string, headers map[string]string, form url.Values) (*Response, error) {
	return m.respond(path, form, nil)
}

func (m *MockTransport) respond(path string, form, query url.Values) (*Response, error) {
	key := pathKey(path)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls[key]++
	m.TotalCalls++
	if form != nil {
		m.Forms[key] = form
	}
	if query != nil {
		m.Queries[key] = query
	}
	if err, ok := m.ErrorOnNext[key]; ok {
		delete(m.ErrorOnNext, key)
		return nil, err
	}
	if resp, ok := m.Responses[key]; ok {
		return resp, nil
	}
	return &Response{StatusCode: 200, Body: []byte(`{"Status":0,"Message":"","Data":[]}`)}, nil
}

// pathKey 去掉查询串，按端点路径计数
func pathKey(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
