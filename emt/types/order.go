package types

import (
	"github.com/shopspring/decimal"
)

// TradeSide 买卖方向
type TradeSide string

const (
	// SideBuy 买入，平台 tradeType 取值 "B"
	SideBuy TradeSide = "B"
	// SideSell 卖出，平台 tradeType 取值 "S"
	SideSell TradeSide = "S"
)

// Valid 检查方向是否为合法枚举值
func (s TradeSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"          // 本地已创建，未提交
	OrderStatusSubmitted       OrderStatus = "submitted"        // 已报
	OrderStatusPartiallyFilled OrderStatus = "partially_filled" // 部成
	OrderStatusFilled          OrderStatus = "filled"           // 已成
	OrderStatusCancelled       OrderStatus = "cancelled"        // 已撤
	OrderStatusRejected        OrderStatus = "rejected"         // 废单
)

// IsTerminal 判断是否为终态，终态订单不可撤
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled || s == OrderStatusRejected
}

// Order 本地构建的委托单
type Order struct {
	// Code 证券代码（未带市场前缀的原始代码）
	Code string

	// Side 买卖方向
	Side TradeSide

	// Quantity 委托数量（股）
	Quantity int

	// Price 委托价格
	Price decimal.Decimal

	// OrderID 平台回报的委托编号，提交成功后填充
	OrderID string

	// Status 订单状态，提交时置为已报或拒绝，成交进度由后续查询更新
	Status OrderStatus
}

// OrderRecord 平台回报的委托记录（GetOrdersData 返回的一行）
type OrderRecord struct {
	OrderID        string          // 委托编号（Wtrq_Wtbh 组合格式）
	Code           string          // 证券代码
	Name           string          // 证券名称
	Side           TradeSide       // 买卖方向
	Price          decimal.Decimal // 委托价格
	Quantity       int             // 委托数量
	FilledQuantity int             // 成交数量
	Status         OrderStatus     // 委托状态
	StatusText     string          // 平台原始状态文本
	SubmittedAt    string          // 委托时间（平台文本）
}

// PlaceOrderResult 下单结果
//
// 平台的业务拒绝（资金不足、超出涨跌停等）不是错误：Rejected 为 true
// 且 Reason 携带平台原文，OrderIDs 为空。硬失败（网络、会话）走 error。
type PlaceOrderResult struct {
	// OrderIDs 委托编号列表，格式 YYYYMMDD_委托编号；多腿委托会有多条
	OrderIDs []string

	// Rejected 平台业务拒绝
	Rejected bool

	// Reason 拒绝原因（平台原文）
	Reason string
}

// OrderID 返回首个委托编号，未成功时为空串
func (r *PlaceOrderResult) OrderID() string {
	if r == nil || len(r.OrderIDs) == 0 {
		return ""
	}
	return r.OrderIDs[0]
}

// CancelOrderResult 撤单结果
//
// 撤单和成交之间存在竞态：对已成/已撤的委托撤单是预期情况，
// 返回 Cancelled=false 和原因，不作为错误。
type CancelOrderResult struct {
	Cancelled bool   // 撤单请求已受理
	Reason    string // 不可撤时的平台原文
}
