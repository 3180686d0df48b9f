// Package stocks 证券代码与交易所规则查询。
//
// 东财的交易接口要求每笔委托带上市场代码（沪 A "HA"、深 A "SA"、
// 北交所 "BJ"），行情接口则使用 push2 的 secid 格式。这里根据代码
// 前缀做本地解析，同时给出对应板块的手数和最小报价单位，供下单
// 前的本地校验使用。
package stocks

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/riiy/EMTradingAgent/emt/types"
)

// 市场代码（东财交易接口的 market 参数取值）
const (
	MarketShanghai = "HA" // 沪 A
	MarketShenzhen = "SA" // 深 A
	MarketBeijing  = "BJ" // 北交所
	MarketHongKong = "HK" // 港股（仅行情）
	MarketUS       = "US" // 美股（仅行情）
)

// Instrument 一只证券的交易规则
type Instrument struct {
	// Code 原始证券代码
	Code string

	// Market 市场代码
	Market string

	// LotSize 委托数量步长（股）
	LotSize int

	// MinQuantity 最小委托数量（股）。科创板最低 200 股，
	// 超过部分可以 1 股递增，与主板的整手规则不同。
	MinQuantity int

	// TickSize 最小报价单位
	TickSize decimal.Decimal

	// Tradable 是否可以通过本客户端下单（A 股为 true）
	Tradable bool
}

var (
	shanghaiPrefixes = []string{"600", "601", "603", "605", "688"}
	shenzhenPrefixes = []string{"000", "001", "002", "003", "300", "301"}

	tickOneCent = decimal.New(1, -2) // 0.01
)

// Resolve 解析证券代码，返回市场归属和交易规则。
// 无法识别的代码返回 ValidationError。
func Resolve(code string) (*Instrument, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &types.ValidationError{Field: "stock_code", Reason: "empty code"}
	}

	if isDigits(code) && len(code) == 6 {
		for _, p := range shanghaiPrefixes {
			if strings.HasPrefix(code, p) {
				inst := &Instrument{
					Code:        code,
					Market:      MarketShanghai,
					LotSize:     100,
					MinQuantity: 100,
					TickSize:    tickOneCent,
					Tradable:    true,
				}
				if strings.HasPrefix(code, "688") {
					// 科创板：最低 200 股，之上按 1 股递增
					inst.LotSize = 1
					inst.MinQuantity = 200
				}
				return inst, nil
			}
		}
		for _, p := range shenzhenPrefixes {
			if strings.HasPrefix(code, p) {
				return &Instrument{
					Code:        code,
					Market:      MarketShenzhen,
					LotSize:     100,
					MinQuantity: 100,
					TickSize:    tickOneCent,
					Tradable:    true,
				}, nil
			}
		}
		if strings.HasPrefix(code, "8") || strings.HasPrefix(code, "4") {
			return &Instrument{
				Code:        code,
				Market:      MarketBeijing,
				LotSize:     100,
				MinQuantity: 100,
				TickSize:    tickOneCent,
				Tradable:    true,
			}, nil
		}
	}

	// 港股：纯数字且不超过 5 位，补零到 5 位
	if isDigits(code) && len(code) <= 5 {
		padded := strings.Repeat("0", 5-len(code)) + code
		return &Instrument{
			Code:     padded,
			Market:   MarketHongKong,
			TickSize: tickOneCent,
		}, nil
	}

	// 美股：纯字母
	if isLetters(code) {
		return &Instrument{
			Code:     strings.ToUpper(code),
			Market:   MarketUS,
			TickSize: tickOneCent,
		}, nil
	}

	return nil, &types.ValidationError{Field: "stock_code", Reason: "unrecognized code: " + code}
}

// SecID push2 行情接口的 secid（沪市前缀 1，深市和北交所前缀 0）
func (i *Instrument) SecID() string {
	switch i.Market {
	case MarketShanghai:
		return "1." + i.Code
	case MarketShenzhen, MarketBeijing:
		return "0." + i.Code
	case MarketHongKong:
		return "116." + i.Code
	case MarketUS:
		return "105." + i.Code
	}
	return i.Code
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

func isLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(s) > 0
}
