package client

import (
	"encoding/json"
	"strings"

	"github.com/riiy/EMTradingAgent/emt/types"
)

// envelope 平台统一的响应外壳。各端点字段名一致但语义松散：
// 有的只看 Status，有的只在失败时填 Message，这里做唯一一次
// 归一化，解析失败不向外抛原始 JSON 错误。
type envelope struct {
	Status  *int            `json:"Status"`
	Message string          `json:"Message"`
	Data    json.RawMessage `json:"Data"`
}

// parseEnvelope 把原始响应解析为统一外壳，HTTP 层和 JSON 层的
// 异常都归入 PlatformError
func parseEnvelope(resp *Response) (*envelope, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &types.PlatformError{
			Status:  resp.StatusCode,
			Message: "http " + snippet(resp.Body),
		}
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, &types.PlatformError{
			Status:  resp.StatusCode,
			Message: "unparseable response: " + snippet(resp.Body),
		}
	}
	if env.Status == nil {
		return nil, &types.PlatformError{
			Status:  resp.StatusCode,
			Message: "response missing status field: " + snippet(resp.Body),
		}
	}
	return &env, nil
}

// ok 平台的成功标记（Status == 0）
func (e *envelope) ok() bool {
	return e.Status != nil && *e.Status == 0
}

// platformError 把失败外壳转成 PlatformError
func (e *envelope) platformError() *types.PlatformError {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	status := -1
	if e.Status != nil {
		status = *e.Status
	}
	return &types.PlatformError{Status: status, Message: msg}
}

// classifyLoginFailure 区分验证码拒绝和凭证拒绝。
// 验证码错误时调用方应换一张新图重试整个握手，凭证错误则应中止，
// 盲目重试会触发平台的反自动化锁定。
func classifyLoginFailure(env *envelope) error {
	msg := env.Message
	if strings.Contains(msg, "验证码") || strings.Contains(strings.ToLower(msg), "captcha") {
		return &types.CaptchaError{Reason: msg}
	}
	if msg == "" {
		msg = "unknown error"
	}
	return &types.AuthenticationError{Message: msg}
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
