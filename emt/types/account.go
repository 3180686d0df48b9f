package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountOverview 资金概览
type AccountOverview struct {
	TotalAssets   decimal.Decimal // 总资产（Zzc）
	Balance       decimal.Decimal // 资金余额（Zjye）
	AvailableCash decimal.Decimal // 可用资金（Kyzj）
	FrozenCash    decimal.Decimal // 冻结资金（Djzj）
	MarketValue   decimal.Decimal // 持仓市值（Zxsz）
}

// Position 单只证券的持仓
type Position struct {
	Code              string          // 证券代码
	Name              string          // 证券名称
	Quantity          int             // 持仓数量
	AvailableQuantity int             // 可用数量
	CostPrice         decimal.Decimal // 成本价
	LastPrice         decimal.Decimal // 最新价
	MarketValue       decimal.Decimal // 最新市值
}

// AccountInfo 账户快照
//
// 每次查询生成新实例，不做原地更新。资金和持仓两个子查询
// 必须同时成功，不会返回只有一半数据的快照。
type AccountInfo struct {
	Overview  AccountOverview
	Positions []Position
	FetchedAt time.Time
}

// MarketData 单只证券的行情快照
type MarketData struct {
	Code      string          // 证券代码
	Name      string          // 证券名称
	LastPrice decimal.Decimal // 最新价
	BidPrice  decimal.Decimal // 买一价
	AskPrice  decimal.Decimal // 卖一价
	Volume    int64           // 成交量（手）
	Timestamp time.Time       // 快照时间（本地时钟）
}
