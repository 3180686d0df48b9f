package client

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/riiy/EMTradingAgent/emt/captcha"
	"github.com/riiy/EMTradingAgent/emt/encrypt"
	"github.com/riiy/EMTradingAgent/emt/types"
)

// DefaultSessionMinutes 默认的会话有效期（分钟），与网页端 duration 参数一致
const DefaultSessionMinutes = 30

var validateKeyPattern = regexp.MustCompile(`id="em_validatekey" type="hidden" value="(.*?)"`)

// AuthClient 登录握手与会话维护。
//
// 验证码识别器作为无状态依赖注入，测试时换成确定性的桩。
// 登录失败不做自动重试：对登录端点的自动重试正是反自动化
// 锁定机制针对的行为，要重试由调用方显式再次 Login。
type AuthClient struct {
	transport Transport
	solver    captcha.Solver
	session   *types.Session
	log       *logrus.Entry
}

// NewAuthClient 创建认证客户端
func NewAuthClient(transport Transport, solver captcha.Solver) *AuthClient {
	return &AuthClient{
		transport: transport,
		solver:    solver,
		log:       logrus.WithField("component", "auth"),
	}
}

// Login 执行完整的登录握手，成功时返回就绪的 Session。
//
// durationMinutes 是平台的会话时长参数，同时决定本地过期时间，
// 传 0 使用默认 30 分钟。明文密码只在本调用内存在，加密后即丢弃，
// 不会出现在任何日志或错误信息里。
func (a *AuthClient) Login(ctx context.Context, username, password string, durationMinutes int) (*types.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &types.ValidationError{Field: "username", Reason: "empty"}
	}
	if strings.TrimSpace(password) == "" {
		return nil, &types.ValidationError{Field: "password", Reason: "empty"}
	}
	if durationMinutes <= 0 {
		durationMinutes = DefaultSessionMinutes
	}

	log := a.log.WithFields(logrus.Fields{
		"attempt": uuid.NewString()[:8],
		"account": maskAccount(username),
	})
	log.Info("login started")

	// 1. 取验证码图片
	randNum := captcha.NextRandNum()
	capResp, err := a.transport.Get(ctx, EndpointCaptcha, defaultHeaders(), url.Values{
		"randNum": {randNum},
	})
	if err != nil {
		return nil, err
	}
	if capResp.StatusCode < 200 || capResp.StatusCode >= 300 {
		// 错误页不能流进识别器，否则会伪装成验证码失败
		return nil, &types.PlatformError{
			Status:  capResp.StatusCode,
			Message: "captcha fetch http " + snippet(capResp.Body),
		}
	}

	// 2. 识别。空的或不像验证码的猜测直接中止，提交错误的验证码
	// 会消耗登录尝试次数，多次出错会触发账户锁定。
	guess := a.solver.Solve(capResp.Body)
	if !usableGuess(guess) {
		log.Warn("captcha solver produced no usable guess")
		return nil, &types.CaptchaError{Reason: "solver produced no usable guess"}
	}

	// 3. 加密密码，此后明文不再被引用
	encrypted, err := encrypt.EncryptPassword(strings.TrimSpace(password))
	if err != nil {
		return nil, err
	}

	// 4. 提交登录表单
	form := url.Values{
		"userId":       {username},
		"password":     {encrypted},
		"randNumber":   {randNum},
		"identifyCode": {guess},
		"duration":     {strconv.Itoa(durationMinutes)},
		"authCode":     {""},
		"type":         {"Z"},
		"secInfo":      {""},
	}
	headers := ajaxHeaders(loginReferer)
	headers["Content-Type"] = "application/x-www-form-urlencoded"
	if cookie := cookieHeader(capResp.Cookies); cookie != "" {
		headers["Cookie"] = cookie
	}

	loginResp, err := a.transport.PostForm(ctx, EndpointLogin+"?validatekey=", headers, form)
	if err != nil {
		return nil, err
	}

	// 5. 判定结果，区分验证码拒绝和凭证拒绝
	env, err := parseEnvelope(loginResp)
	if err != nil {
		return nil, err
	}
	if !env.ok() {
		err := classifyLoginFailure(env)
		log.WithField("status", *env.Status).Warnf("login rejected: %v", err)
		return nil, err
	}

	cookies := mergeCookies(capResp.Cookies, loginResp.Cookies)

	// 6. 抓取 validate key，之后所有交易接口都要带上它
	validateKey, err := a.fetchValidateKey(ctx, cookies)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	a.session = &types.Session{
		ValidateKey: validateKey,
		Cookies:     cookies,
		AccountID:   username,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(durationMinutes) * time.Minute),
	}
	log.WithField("expires_at", a.session.ExpiresAt.Format(time.RFC3339)).Info("login succeeded")
	return a.session, nil
}

// fetchValidateKey 从交易页面抓取隐藏的 em_validatekey
func (a *AuthClient) fetchValidateKey(ctx context.Context, cookies []*http.Cookie) (string, error) {
	headers := defaultHeaders()
	if cookie := cookieHeader(cookies); cookie != "" {
		headers["Cookie"] = cookie
	}
	resp, err := a.transport.Get(ctx, EndpointValidateKeyPage, headers, nil)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &types.PlatformError{
			Status:  resp.StatusCode,
			Message: "trade page http " + snippet(resp.Body),
		}
	}

	match := validateKeyPattern.FindSubmatch(resp.Body)
	if match == nil {
		return "", &types.AuthenticationError{Message: "unable to extract validate key from trade page"}
	}
	key := strings.TrimSpace(string(match[1]))
	if key == "" {
		return "", &types.AuthenticationError{Message: "validate key is empty"}
	}
	return key, nil
}

// Logout 注销会话。对平台的退出请求是尽力而为：无论服务端响应
// 如何，本地会话一定被清掉，客户端登出不能被服务端错误卡住。
func (a *AuthClient) Logout(ctx context.Context) {
	if a.session != nil {
		headers := defaultHeaders()
		if cookie := a.session.CookieHeader(); cookie != "" {
			headers["Cookie"] = cookie
		}
		if _, err := a.transport.Get(ctx, EndpointLogout, headers, url.Values{
			"returl": {"/Trade/Buy"},
		}); err != nil {
			a.log.Debugf("logout endpoint call failed (ignored): %v", err)
		}
	}
	a.session = nil
	a.log.Info("logged out")
}

// Session 当前会话，未登录时为 nil
func (a *AuthClient) Session() *types.Session {
	return a.session
}

// usableGuess 识别结果必须是 4 位以上的字母数字
func usableGuess(guess string) bool {
	guess = strings.TrimSpace(guess)
	if len(guess) < 4 {
		return false
	}
	for _, r := range guess {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

func cookieHeader(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// mergeCookies 合并两批 Cookie，后者覆盖同名项
func mergeCookies(a, b []*http.Cookie) []*http.Cookie {
	seen := make(map[string]int, len(a))
	out := make([]*http.Cookie, 0, len(a)+len(b))
	for _, c := range a {
		seen[c.Name] = len(out)
		out = append(out, c)
	}
	for _, c := range b {
		if i, ok := seen[c.Name]; ok {
			out[i] = c
			continue
		}
		seen[c.Name] = len(out)
		out = append(out, c)
	}
	return out
}

// maskAccount 日志里只保留账号前三位
func maskAccount(account string) string {
	if len(account) <= 3 {
		return "***"
	}
	return account[:3] + "***"
}
