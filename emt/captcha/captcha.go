// Package captcha 验证码识别边界。
//
// 识别本身是外部依赖（OCR 服务、人工输入等），这里只定义注入
// AuthClient 的接口：输入图片字节，输出文本。识别失败时返回空串
// 而不是 error，由 AuthClient 决定是否中止登录。
package captcha

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Solver 验证码识别器
type Solver interface {
	// Solve 识别验证码图片，失败时返回空串，不返回 error
	Solve(image []byte) string
}

// SolverFunc 把函数适配成 Solver
type SolverFunc func(image []byte) string

func (f SolverFunc) Solve(image []byte) string {
	return f(image)
}

// NextRandNum 生成验证码请求的随机数参数。
// 平台期望一个 [0,1) 的小数文本（网页端用 Math.random() 生成）。
func NextRandNum() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand 不可用时退回固定值，登录仍可进行
		return "0.5"
	}
	n := binary.BigEndian.Uint64(buf[:]) >> 11 // 53 位精度
	return fmt.Sprintf("%.16f", float64(n)/(1<<53))
}
