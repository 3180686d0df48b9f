package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/riiy/EMTradingAgent/emt"
	"github.com/riiy/EMTradingAgent/emt/captcha"
	"github.com/riiy/EMTradingAgent/pkg/config"
	"github.com/riiy/EMTradingAgent/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML 配置文件路径")
		quoteCode  = flag.String("quote", "", "查询指定代码的行情后退出")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("加载配置失败: %v", err)
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.OutputFile,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		logrus.Fatalf("初始化日志失败: %v", err)
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		logrus.Fatalf("读取凭证失败: %v", err)
	}

	agent := emt.New(emt.Options{
		Host:      cfg.Host,
		QuoteHost: cfg.QuoteHost,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		Solver:    captcha.SolverFunc(promptSolver),
	})

	ctx := context.Background()
	if !agent.Login(ctx, creds.Username, creds.Password, cfg.SessionMinutes) {
		logrus.Fatalf("登录失败: %v", agent.LastError())
	}
	defer agent.Logout(ctx)

	if *quoteCode != "" {
		quote, err := agent.GetMarketData(ctx, *quoteCode)
		if err != nil {
			logrus.Fatalf("查询行情失败: %v", err)
		}
		fmt.Printf("%s(%s) 最新 %s 买一 %s 卖一 %s 量 %d\n",
			quote.Name, quote.Code, quote.LastPrice, quote.BidPrice, quote.AskPrice, quote.Volume)
		return
	}

	info, err := agent.GetAccountInfo(ctx)
	if err != nil {
		logrus.Fatalf("查询账户失败: %v", err)
	}
	fmt.Printf("总资产 %s 可用 %s 市值 %s\n",
		info.Overview.TotalAssets, info.Overview.AvailableCash, info.Overview.MarketValue)
	for _, p := range info.Positions {
		fmt.Printf("  %s(%s) 持仓 %d 可用 %d 成本 %s 现价 %s\n",
			p.Name, p.Code, p.Quantity, p.AvailableQuantity, p.CostPrice, p.LastPrice)
	}
}

// promptSolver 把验证码图片落盘，提示人工输入识别结果。
// 接入 OCR 服务时换成对应的 Solver 实现即可。
func promptSolver(image []byte) string {
	path := filepath.Join(os.TempDir(), "emta-captcha.png")
	if err := os.WriteFile(path, image, 0o600); err != nil {
		logrus.Errorf("保存验证码图片失败: %v", err)
		return ""
	}
	fmt.Printf("验证码已保存到 %s，请输入: ", path)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}
