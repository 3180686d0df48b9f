package types

import (
	"errors"
	"fmt"
)

// CaptchaError 验证码失败：识别器没有给出可用的猜测，或平台明确
// 拒绝了验证码。调用方可以换一张新图重走整个登录流程。
type CaptchaError struct {
	Reason string
}

func (e *CaptchaError) Error() string {
	return fmt.Sprintf("captcha failed: %s", e.Reason)
}

// AuthenticationError 凭证被拒绝（密码错误、账户锁定等非验证码原因）
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// SessionExpiredError 会话无效或已过期，本地判定，不发起网络请求
type SessionExpiredError struct {
	Reason string
}

func (e *SessionExpiredError) Error() string {
	if e.Reason == "" {
		return "session expired"
	}
	return "session expired: " + e.Reason
}

// ValidationError 本地预检失败（参数不合法），发生在任何网络请求之前
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PlatformError 平台返回了可识别的失败报文，携带平台原文便于排查
type PlatformError struct {
	Status  int
	Message string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform error (status=%d): %s", e.Status, e.Message)
}

// TransportError 网络层失败。永远向上传播：下单请求失败时结果是
// 未知的，必须由调用方通过查询委托来对账，而不是当作无事发生。
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsCaptchaError 判断错误链中是否有验证码失败
func IsCaptchaError(err error) bool {
	var target *CaptchaError
	return errors.As(err, &target)
}

// IsAuthenticationError 判断错误链中是否有认证失败
func IsAuthenticationError(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

// IsSessionExpired 判断错误链中是否有会话过期
func IsSessionExpired(err error) bool {
	var target *SessionExpiredError
	return errors.As(err, &target)
}

// IsValidationError 判断错误链中是否有本地预检失败
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsPlatformError 判断错误链中是否有平台业务失败
func IsPlatformError(err error) bool {
	var target *PlatformError
	return errors.As(err, &target)
}

// IsTransportError 判断错误链中是否有网络层失败
func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}
