package client

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/riiy/EMTradingAgent/emt/stocks"
	"github.com/riiy/EMTradingAgent/emt/types"
)

var orderIDPattern = regexp.MustCompile(`^\d{8}_\d+$`)

// notCancellableMarkers 平台报文中表示委托已处于终态的关键词。
// 撤单请求和成交之间的竞态是预期情况，撞上这些回复不算错误。
var notCancellableMarkers = []string{"已成", "已撤", "无法撤", "不可撤", "不允许撤"}

// APIClient 会话绑定的交易与查询接口。
//
// 所有操作共享同一个约定：会话无效时本地直接失败，绝不发出
// 网络请求；有效时把 validate key 和会话 Cookie 附到出站请求上。
// APIClient 从不修改 Session。
type APIClient struct {
	trade Transport
	quote Transport
	log   *logrus.Entry
}

// NewAPIClient 创建 API 客户端，交易和行情走不同的主机
func NewAPIClient(trade, quote Transport) *APIClient {
	return &APIClient{
		trade: trade,
		quote: quote,
		log:   logrus.WithField("component", "api"),
	}
}

// requireSession 会话守卫，无效会话在任何 I/O 之前失败
func requireSession(s *types.Session) error {
	if !s.Valid() {
		return &types.SessionExpiredError{}
	}
	return nil
}

// keyedPath 把 validate key 附到端点 URL 上
func keyedPath(endpoint string, s *types.Session) string {
	return endpoint + "?validatekey=" + url.QueryEscape(s.ValidateKey)
}

// PlaceOrder 提交委托。
//
// 数量、价格和代码先走本地校验：不合法的单子不值得消耗一次
// 网络往返和平台的限流额度。平台的业务拒绝（资金不足等）通过
// 结果的 Rejected/Reason 返回而不是 error，硬失败才返回 error。
func (c *APIClient) PlaceOrder(ctx context.Context, s *types.Session, code string, side types.TradeSide, quantity int, price decimal.Decimal) (*types.PlaceOrderResult, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}
	if !side.Valid() {
		return nil, &types.ValidationError{Field: "side", Reason: "must be BUY(B) or SELL(S)"}
	}

	inst, err := stocks.Resolve(code)
	if err != nil {
		return nil, err
	}
	if !inst.Tradable {
		return nil, &types.ValidationError{Field: "stock_code", Reason: "market " + inst.Market + " is not tradable via this client"}
	}
	if quantity <= 0 {
		return nil, &types.ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if quantity < inst.MinQuantity {
		return nil, &types.ValidationError{Field: "quantity", Reason: "below minimum " + strconv.Itoa(inst.MinQuantity)}
	}
	if inst.LotSize > 1 && quantity%inst.LotSize != 0 {
		return nil, &types.ValidationError{Field: "quantity", Reason: "not aligned to lot size " + strconv.Itoa(inst.LotSize)}
	}
	if !price.IsPositive() {
		return nil, &types.ValidationError{Field: "price", Reason: "must be positive"}
	}
	if !price.Mod(inst.TickSize).IsZero() {
		return nil, &types.ValidationError{Field: "price", Reason: "not aligned to tick size " + inst.TickSize.String()}
	}

	log := c.log.WithFields(logrus.Fields{
		"req":   uuid.NewString()[:8],
		"code":  inst.Code,
		"side":  string(side),
		"qty":   quantity,
		"price": price.String(),
	})

	form := url.Values{
		"stockCode": {inst.Code},
		"price":     {price.String()},
		"amount":    {strconv.Itoa(quantity)},
		"tradeType": {string(side)},
		"zqmc":      {""},
		"market":    {inst.Market},
	}
	resp, err := c.trade.PostForm(ctx, keyedPath(EndpointSubmitTrade, s), sessionHeaders(s), form)
	if err != nil {
		return nil, err
	}

	env, err := parseEnvelope(resp)
	if err != nil {
		return nil, err
	}
	if !env.ok() {
		reason := env.Message
		if reason == "" {
			reason = "unknown rejection"
		}
		log.Warnf("order rejected by platform: %s", reason)
		return &types.PlaceOrderResult{Rejected: true, Reason: reason}, nil
	}

	var rows []struct {
		Wtbh string `json:"Wtbh"`
	}
	if err := json.Unmarshal(env.Data, &rows); err != nil || len(rows) == 0 {
		return nil, &types.PlatformError{Status: *env.Status, Message: "order accepted but no order number returned: " + snippet(env.Data)}
	}

	// 委托编号 = 委托日期 + 委托编号，与查询接口的格式保持一致
	day := time.Now().Format("20060102")
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, day+"_"+row.Wtbh)
	}
	log.WithField("order_ids", ids).Info("order placed")
	return &types.PlaceOrderResult{OrderIDs: ids}, nil
}

// CancelOrder 撤单。对已成交或已撤销的委托撤单返回「不可撤」
// 结果而不是错误，这是撤单与成交竞态下的正常路径。
func (c *APIClient) CancelOrder(ctx context.Context, s *types.Session, orderID string) (*types.CancelOrderResult, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}
	orderID = strings.TrimSpace(orderID)
	if !orderIDPattern.MatchString(orderID) {
		return nil, &types.ValidationError{Field: "order_id", Reason: "expected YYYYMMDD_number, got " + orderID}
	}

	form := url.Values{"revokes": {orderID}}
	resp, err := c.trade.PostForm(ctx, keyedPath(EndpointRevokeOrders, s), sessionHeaders(s), form)
	if err != nil {
		return nil, err
	}

	env, err := parseEnvelope(resp)
	if err != nil {
		return nil, err
	}
	if env.ok() {
		c.log.WithField("order_id", orderID).Info("cancel submitted")
		return &types.CancelOrderResult{Cancelled: true}, nil
	}

	for _, marker := range notCancellableMarkers {
		if strings.Contains(env.Message, marker) {
			c.log.WithField("order_id", orderID).Infof("order not cancellable: %s", env.Message)
			return &types.CancelOrderResult{Cancelled: false, Reason: env.Message}, nil
		}
	}
	return nil, env.platformError()
}

// orderRow GetOrdersData 返回的一行，数值字段平台有时给字符串
// 有时给数字，decimal 两种都能解
type orderRow struct {
	Wtrq string          `json:"Wtrq"` // 委托日期
	Wtsj string          `json:"Wtsj"` // 委托时间
	Wtbh string          `json:"Wtbh"` // 委托编号
	Zqdm string          `json:"Zqdm"` // 证券代码
	Zqmc string          `json:"Zqmc"` // 证券名称
	Mmsm string          `json:"Mmsm"` // 买卖说明
	Wtjg decimal.Decimal `json:"Wtjg"` // 委托价格
	Wtsl decimal.Decimal `json:"Wtsl"` // 委托数量
	Cjsl decimal.Decimal `json:"Cjsl"` // 成交数量
	Wtzt string          `json:"Wtzt"` // 委托状态
}

// QueryOrders 查询当日委托。保持平台返回的顺序（平台按时间倒序
// 给最近的委托），调用方可能依赖这一点，不做重排。
func (c *APIClient) QueryOrders(ctx context.Context, s *types.Session) ([]types.OrderRecord, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}

	form := url.Values{"qqhs": {"100"}, "dwc": {""}}
	resp, err := c.trade.PostForm(ctx, keyedPath(EndpointGetOrders, s), sessionHeaders(s), form)
	if err != nil {
		return nil, err
	}

	env, err := parseEnvelope(resp)
	if err != nil {
		return nil, err
	}
	if !env.ok() {
		return nil, env.platformError()
	}

	var rows []orderRow
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, &types.PlatformError{Status: *env.Status, Message: "unparseable order data: " + snippet(env.Data)}
	}

	records := make([]types.OrderRecord, 0, len(rows))
	for _, row := range rows {
		day := row.Wtrq
		if day == "" {
			day = time.Now().Format("20060102")
		}
		records = append(records, types.OrderRecord{
			OrderID:        day + "_" + row.Wtbh,
			Code:           row.Zqdm,
			Name:           row.Zqmc,
			Side:           sideFromText(row.Mmsm),
			Price:          row.Wtjg,
			Quantity:       int(row.Wtsl.IntPart()),
			FilledQuantity: int(row.Cjsl.IntPart()),
			Status:         orderStatusFromText(row.Wtzt),
			StatusText:     row.Wtzt,
			SubmittedAt:    strings.TrimSpace(row.Wtrq + " " + row.Wtsj),
		})
	}
	return records, nil
}

// assetRow queryAssetAndPositionV1 返回的资金概览
type assetRow struct {
	Zzc  decimal.Decimal `json:"Zzc"`  // 总资产
	Zjye decimal.Decimal `json:"Zjye"` // 资金余额
	Kyzj decimal.Decimal `json:"Kyzj"` // 可用资金
	Djzj decimal.Decimal `json:"Djzj"` // 冻结资金
	Zxsz decimal.Decimal `json:"Zxsz"` // 持仓市值
}

// positionRow GetStockList 返回的一行持仓
type positionRow struct {
	Zqdm string          `json:"Zqdm"` // 证券代码
	Zqmc string          `json:"Zqmc"` // 证券名称
	Zqsl decimal.Decimal `json:"Zqsl"` // 持仓数量
	Kysl decimal.Decimal `json:"Kysl"` // 可用数量
	Cbjg decimal.Decimal `json:"Cbjg"` // 成本价
	Zxjg decimal.Decimal `json:"Zxjg"` // 最新价
	Zxsz decimal.Decimal `json:"Zxsz"` // 最新市值
}

// GetAccountInfo 查询账户快照，资金和持仓两个子查询必须都成功。
// 任何一个失败整个调用失败，不返回缺了一半的数据——调用方会
// 基于这个快照做资金决策，不完整的数据比没有数据更危险。
func (c *APIClient) GetAccountInfo(ctx context.Context, s *types.Session) (*types.AccountInfo, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}

	form := url.Values{"qqhs": {"100"}, "dwc": {""}}

	assetResp, err := c.trade.PostForm(ctx, keyedPath(EndpointAssetAndPosition, s), sessionHeaders(s), form)
	if err != nil {
		return nil, err
	}
	assetEnv, err := parseEnvelope(assetResp)
	if err != nil {
		return nil, err
	}
	if !assetEnv.ok() {
		return nil, assetEnv.platformError()
	}
	var assets []assetRow
	if err := json.Unmarshal(assetEnv.Data, &assets); err != nil || len(assets) == 0 {
		return nil, &types.PlatformError{Status: *assetEnv.Status, Message: "unparseable asset data: " + snippet(assetEnv.Data)}
	}

	posResp, err := c.trade.PostForm(ctx, keyedPath(EndpointStockList, s), sessionHeaders(s), form)
	if err != nil {
		return nil, err
	}
	posEnv, err := parseEnvelope(posResp)
	if err != nil {
		return nil, err
	}
	if !posEnv.ok() {
		return nil, posEnv.platformError()
	}
	var rows []positionRow
	if len(posEnv.Data) > 0 && string(posEnv.Data) != "null" {
		if err := json.Unmarshal(posEnv.Data, &rows); err != nil {
			return nil, &types.PlatformError{Status: *posEnv.Status, Message: "unparseable position data: " + snippet(posEnv.Data)}
		}
	}

	positions := make([]types.Position, 0, len(rows))
	for _, row := range rows {
		positions = append(positions, types.Position{
			Code:              row.Zqdm,
			Name:              row.Zqmc,
			Quantity:          int(row.Zqsl.IntPart()),
			AvailableQuantity: int(row.Kysl.IntPart()),
			CostPrice:         row.Cbjg,
			LastPrice:         row.Zxjg,
			MarketValue:       row.Zxsz,
		})
	}

	overview := assets[0]
	return &types.AccountInfo{
		Overview: types.AccountOverview{
			TotalAssets:   overview.Zzc,
			Balance:       overview.Zjye,
			AvailableCash: overview.Kyzj,
			FrozenCash:    overview.Djzj,
			MarketValue:   overview.Zxsz,
		},
		Positions: positions,
		FetchedAt: time.Now(),
	}, nil
}

// quotePayload push2 行情接口的响应（fltt=2 时价格已是两位小数）
type quotePayload struct {
	Data *struct {
		Code   string          `json:"f57"`
		Name   string          `json:"f58"`
		Last   decimal.Decimal `json:"f43"`
		Bid    decimal.Decimal `json:"f19"`
		Ask    decimal.Decimal `json:"f39"`
		Volume decimal.Decimal `json:"f47"`
	} `json:"data"`
}

// GetMarketData 行情快照。证券代码先经过本地解析得到 secid，
// 解析不了的代码在发请求之前就失败。
func (c *APIClient) GetMarketData(ctx context.Context, s *types.Session, code string) (*types.MarketData, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}
	inst, err := stocks.Resolve(code)
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"secid":  {inst.SecID()},
		"fields": {"f19,f39,f43,f47,f57,f58"},
		"invt":   {"2"},
		"fltt":   {"2"},
	}
	resp, err := c.quote.Get(ctx, EndpointQuote, map[string]string{
		"User-Agent": defaultHeaders()["User-Agent"],
	}, query)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &types.PlatformError{Status: resp.StatusCode, Message: "quote http " + snippet(resp.Body)}
	}

	var payload quotePayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, &types.PlatformError{Status: resp.StatusCode, Message: "unparseable quote: " + snippet(resp.Body)}
	}
	if payload.Data == nil {
		return nil, &types.PlatformError{Status: resp.StatusCode, Message: "no quote for " + inst.Code}
	}

	return &types.MarketData{
		Code:      payload.Data.Code,
		Name:      payload.Data.Name,
		LastPrice: payload.Data.Last,
		BidPrice:  payload.Data.Bid,
		AskPrice:  payload.Data.Ask,
		Volume:    payload.Data.Volume.IntPart(),
		Timestamp: time.Now(),
	}, nil
}

// sideFromText 从平台的买卖说明推断方向
func sideFromText(text string) types.TradeSide {
	if strings.Contains(text, "卖") {
		return types.SideSell
	}
	return types.SideBuy
}

// orderStatusFromText 平台状态文本到枚举的映射
func orderStatusFromText(text string) types.OrderStatus {
	switch {
	case strings.Contains(text, "部成"), strings.Contains(text, "部分成交"):
		return types.OrderStatusPartiallyFilled
	case strings.Contains(text, "已成"):
		return types.OrderStatusFilled
	case strings.Contains(text, "已撤"), strings.Contains(text, "部撤"):
		return types.OrderStatusCancelled
	case strings.Contains(text, "废单"), strings.Contains(text, "拒绝"):
		return types.OrderStatusRejected
	case strings.Contains(text, "已报"), strings.Contains(text, "已申报"):
		return types.OrderStatusSubmitted
	default:
		return types.OrderStatusPending
	}
}
