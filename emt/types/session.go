package types

import (
	"net/http"
	"time"
)

// Session 已认证的交易会话
//
// 由 AuthClient 在登录成功后一次性构建：validate key、平台下发的
// Cookie、资金账号和过期时间要么全部就位，要么整个 Session 不存在。
// APIClient 只读，不会修改 Session。
type Session struct {
	// ValidateKey 平台登录后下发的校验 key，附加在所有交易接口 URL 上
	ValidateKey string

	// Cookies 登录响应携带的会话 Cookie
	Cookies []*http.Cookie

	// AccountID 资金账号（即登录用户名）
	AccountID string

	// CreatedAt 会话创建时间
	CreatedAt time.Time

	// ExpiresAt 会话过期时间（CreatedAt + duration 分钟）
	ExpiresAt time.Time
}

// Valid 判断会话当前是否有效，纯本地判断，不发起网络请求
func (s *Session) Valid() bool {
	return s.ValidAt(time.Now())
}

// ValidAt 判断会话在指定时刻是否有效
func (s *Session) ValidAt(t time.Time) bool {
	if s == nil || s.ValidateKey == "" {
		return false
	}
	return t.Before(s.ExpiresAt)
}

// CookieHeader 把会话 Cookie 拼成请求头的 Cookie 值
func (s *Session) CookieHeader() string {
	if s == nil || len(s.Cookies) == 0 {
		return ""
	}
	out := ""
	for i, c := range s.Cookies {
		if i > 0 {
			out += "; "
		}
		out += c.Name + "=" + c.Value
	}
	return out
}
