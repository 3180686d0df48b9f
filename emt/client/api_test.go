package client

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riiy/EMTradingAgent/emt/types"
)

func liveSession() *types.Session {
	now := time.Now()
	return &types.Session{
		ValidateKey: testValidateKey,
		AccountID:   "540800000000",
		CreatedAt:   now,
		ExpiresAt:   now.Add(30 * time.Minute),
	}
}

func expiredSession() *types.Session {
	now := time.Now()
	return &types.Session{
		ValidateKey: testValidateKey,
		AccountID:   "540800000000",
		CreatedAt:   now.Add(-time.Hour),
		ExpiresAt:   now.Add(-time.Minute),
	}
}

// 所有操作在会话无效时本地失败，一个网络请求都不发
func TestOperationsRequireValidSession(t *testing.T) {
	price := decimal.NewFromFloat(12.50)

	for _, session := range []*types.Session{nil, expiredSession(), {}} {
		mock := NewMockTransport()
		api := NewAPIClient(mock, mock)
		ctx := context.Background()

		_, err := api.PlaceOrder(ctx, session, "600000", types.SideBuy, 100, price)
		assert.True(t, types.IsSessionExpired(err))

		_, err = api.CancelOrder(ctx, session, "20260830_1001")
		assert.True(t, types.IsSessionExpired(err))

		_, err = api.QueryOrders(ctx, session)
		assert.True(t, types.IsSessionExpired(err))

		_, err = api.GetAccountInfo(ctx, session)
		assert.True(t, types.IsSessionExpired(err))

		_, err = api.GetMarketData(ctx, session, "600000")
		assert.True(t, types.IsSessionExpired(err))

		assert.Equal(t, 0, mock.TotalCalls, "无效会话不应产生任何网络请求")
	}
}

// 不合法的委托参数在发请求之前就被拒绝
func TestPlaceOrderValidation(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		side  types.TradeSide
		qty   int
		price decimal.Decimal
	}{
		{"零数量", "600000", types.SideBuy, 0, decimal.NewFromFloat(12.50)},
		{"负数量", "600000", types.SideBuy, -100, decimal.NewFromFloat(12.50)},
		{"不足一手", "600000", types.SideBuy, 150, decimal.NewFromFloat(12.50)},
		{"科创板低于200股", "688001", types.SideBuy, 100, decimal.NewFromFloat(50)},
		{"零价格", "600000", types.SideBuy, 100, decimal.Zero},
		{"负价格", "600000", types.SideSell, 100, decimal.NewFromFloat(-1)},
		{"价格不对齐最小变动", "600000", types.SideBuy, 100, decimal.RequireFromString("12.505")},
		{"无效代码", "XX9999", types.SideBuy, 100, decimal.NewFromFloat(12.50)},
		{"无效方向", "600000", types.TradeSide("X"), 100, decimal.NewFromFloat(12.50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockTransport()
			api := NewAPIClient(mock, mock)

			result, err := api.PlaceOrder(context.Background(), liveSession(), tt.code, tt.side, tt.qty, tt.price)
			assert.Nil(t, result)
			assert.True(t, types.IsValidationError(err), "expected ValidationError, got %v", err)
			assert.Equal(t, 0, mock.TotalCalls)
		})
	}
}

func TestPlaceOrderSuccess(t *testing.T) {
	mock := NewMockTransport()
	mock.SetJSONResponse(EndpointSubmitTrade, `{"Status":0,"Message":"","Data":[{"Wtbh":"X123"}]}`)
	api := NewAPIClient(mock, mock)

	result, err := api.PlaceOrder(context.Background(), liveSession(), "600000", types.SideBuy, 100, decimal.NewFromFloat(12.50))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Rejected)

	wantID := time.Now().Format("20060102") + "_X123"
	require.Len(t, result.OrderIDs, 1)
	assert.Equal(t, wantID, result.OrderIDs[0])
	assert.Equal(t, wantID, result.OrderID())

	form := mock.LastForm(EndpointSubmitTrade)
	require.NotNil(t, form)
	assert.Equal(t, "600000", form.Get("stockCode"))
	assert.Equal(t, "B", form.Get("tradeType"))
	assert.Equal(t, "HA", form.Get("market"))
	assert.Equal(t, "100", form.Get("amount"))
	assert.Equal(t, "12.5", form.Get("price"))
}

// 北交所委托的 market 字段必须是 "BJ"
func TestPlaceOrderBeijingMarket(t *testing.T) {
	mock := NewMockTransport()
	mock.SetJSONResponse(EndpointSubmitTrade, `{"Status":0,"Message":"","Data":[{"Wtbh":"9"}]}`)
	api := NewAPIClient(mock, mock)

	result, err := api.PlaceOrder(context.Background(), liveSession(), "830799", types.SideBuy, 100, decimal.NewFromFloat(8.88))
	require.NoError(t, err)
	assert.False(t, result.Rejected)
	assert.Equal(t, "BJ", mock.LastForm(EndpointSubmitTrade).Get("market"))
}

// 科创板 200 股起、1 股递增
func TestPlaceOrderStarBoardQuantity(t *testing.T) {
	mock := NewMockTransport()
	mock.SetJSONResponse(EndpointSubmitTrade, `{"Status":0,"Message":"","Data":[{"Wtbh":"7"}]}`)
	api := NewAPIClient(mock, mock)

	result, err := api.PlaceOrder(context.Background(), liveSession(), "688001", types.SideBuy, 201, decimal.NewFromFloat(50.01))
	require.NoError(t, err)
	assert.False(t, result.Rejected)
	assert.Equal(t, "HA", mock.LastForm(EndpointSubmitTrade).Get("market"))
}

// 资金不足这类业务拒绝通过结果返回，不是错误
func TestPlaceOrderSoftReject(t *testing.T) {
	mock := NewMockTransport()
	mock.SetJSONResponse(EndpointSubmitTrade, `{"Status":-1,"Message":"资金不足"}`)
	api := NewAPIClient(mock, mock)

	result, err := api.PlaceOrder(context.Background(), liveSession(), "600000", types.SideSell, 100, decimal.NewFromFloat(12.50))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Rejected)
	assert.Equal(t, "资金不足", result.Reason)
	assert.Empty(t, result.OrderIDs)
	assert.Empty(t, result.OrderID())
}

func TestPlaceOrderMissingOrderNumber(t *testing.T) {
	mock := NewMockTransport()
	mock.SetJSONResponse(EndpointSubmitTrade, `{"Status":0,"Message":"","Data":[]}`)
	api := NewAPIClient(mock, mock)

	result, err := api.PlaceOrder(context.Background(), liveSession(), "600000", types.SideBuy, 100, decimal.NewFromFloat(12.50))
	assert.Nil(t, result)
	assert.True(t, types.IsPlatformError(err))
}

func TestPlaceOrderTransportFailure(t *testing.T) {
	mock := NewMockTransport()
	mock.ErrorOnNext[EndpointSubmitTrade] = &types.TransportError{Op: "POST /Trade/SubmitTradeV2", Err: context.DeadlineExceeded}
	api := NewAPIClient(mock, mock)

	result, err := api.PlaceOrder(context.Background(), liveSession(), "600000", types.SideBuy, 100, decimal.NewFromFloat(12.50))
	assert.Nil(t, result)
	assert.True(t, types.IsTransportError(err))
}

func TestCancelOrderSuccess(t *testing.T) {
	mock := NewMockTransport()
	mock.SetJSONResponse(EndpointRevokeOrders, `{"Status":0,"Message":""}`)
	api := NewAPIClient(mock, mock)

	result, err := api.CancelOrder(context.Background(), liveSession(), "20260830_1001")
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Equal(t, "20260830_1001", mock.LastForm(EndpointRevokeOrders).Get("revokes"))
}

// 撤单撞上成交：返回不可撤结果，不是错误
func TestCancelOrderNotCancellable(t *testing.T) {
	for _, message := range []string{
		"该委托已成交，不允许撤单",
		"委托已撤销",
		"当前状态无法撤单",
	} {
		mock := NewMockTransport()
		mock.SetJSONResponse(EndpointRevokeOrders, `{"Status":-1,"Message":"`+message+`"}`)
		api := NewAPIClient(mock, mock)

		result, err := api.CancelOrder(context.Background(), liveSession(), "20260830_1001")
		require.NoError(t, err, "message %q", message)
		assert.False(t, result.Cancelled)
		assert.Equal(t, message, result.Reason)
	}
}

func TestCancelOrderPlatformFailure(t *testing.T) {
	mock := NewMockTransport()
	mock.SetJSONResponse(EndpointRevokeOrders, `{"Status":-1,"Message":"系统繁忙"}`)
	api := NewAPIClient(mock, mock)

	result, err := api.CancelOrder(context.Background(), liveSession(), "20260830_1001")
	assert.Nil(t, result)
	assert.True(t, types.IsPlatformError(err))
}

func TestCancelOrderBadID(t *testing.T) {
	mock := NewMockTransport()
	api := NewAPIClient(mock, mock)

	for _, id := range []string{"", "1001", "2026-08-30_1001", "20260830_", "20260830_abc"} {
		result, err := api.CancelOrder(context.Background(), liveSession(), id)
		assert.Nil(t, result)
		assert.True(t, types.IsValidationError(err), "id %q", id)
	}
	assert.Equal(t, 0, mock.TotalCalls)
}

func TestQueryOrders(t *testing.T) {
	mock := NewMockTransport()
	mock.SetJSONResponse(EndpointGetOrders, `{"Status":0,"Message":"","Data":[
		{"Wtrq":"20260830","Wtsj":"093012","Wtbh":"1002","Zqdm":"000001","Zqmc":"平安银行","Mmsm":"证券卖出","Wtjg":"10.880","Wtsl":"200","Cjsl":"200","Wtzt":"已成"},
		{"Wtrq":"20260830","Wtsj":"093001","Wtbh":"1001","Zqdm":"600000","Zqmc":"浦发银行","Mmsm":"证券买入","Wtjg":12.5,"Wtsl":100,"Cjsl":0,"Wtzt":"已报"}
	]}`)
	api := NewAPIClient(mock, mock)

	records, err := api.QueryOrders(context.Background(), liveSession())
	require.NoError(t, err)
	require.Len(t, records, 2)

	// 保持平台返回顺序
	first := records[0]
	assert.Equal(t, "20260830_1002", first.OrderID)
	assert.Equal(t, "000001", first.Code)
	assert.Equal(t, types.SideSell, first.Side)
	assert.Equal(t, types.OrderStatusFilled, first.Status)
	assert.Equal(t, 200, first.Quantity)
	assert.Equal(t, 200, first.FilledQuantity)
	assert.True(t, first.Price.Equal(decimal.RequireFromString("10.88")))

	second := records[1]
	assert.Equal(t, "20260830_1001", second.OrderID)
	assert.Equal(t, types.SideBuy, second.Side)
	assert.Equal(t, types.OrderStatusSubmitted, second.Status)
	assert.Equal(t, "已报", second.StatusText)
	assert.Equal(t, 0, second.FilledQuantity)
	assert.Equal(t, "20260830 093001", second.SubmittedAt)
}

func TestQueryOrdersEmpty(t *testing.T) {
	mock := NewMockTransport()
	api := NewAPIClient(mock, mock)

	records, err := api.QueryOrders(context.Background(), liveSession())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestOrderStatusFromText(t *testing.T) {
	tests := []struct {
		text string
		want types.OrderStatus
	}{
		{"已报", types.OrderStatusSubmitted},
		{"已申报", types.OrderStatusSubmitted},
		{"部成", types.OrderStatusPartiallyFilled},
		{"部分成交", types.OrderStatusPartiallyFilled},
		{"已成", types.OrderStatusFilled},
		{"已撤", types.OrderStatusCancelled},
		{"部撤", types.OrderStatusCancelled},
		{"废单", types.OrderStatusRejected},
		{"拒绝", types.OrderStatusRejected},
		{"未报", types.OrderStatusPending},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, orderStatusFromText(tt.text), "text %q", tt.text)
	}
}

func TestGetAccountInfo(t *testing.T) {
	mock := NewMockTransport()
	mock.SetJSONResponse(EndpointAssetAndPosition,
		`{"Status":0,"Message":"","Data":[{"Zzc":"100000.00","Zjye":"20000.00","Kyzj":"15000.00","Djzj":"5000.00","Zxsz":"80000.00"}]}`)
	mock.SetJSONResponse(EndpointStockList,
		`{"Status":0,"Message":"","Data":[{"Zqdm":"600000","Zqmc":"浦发银行","Zqsl":"1000","Kysl":"800","Cbjg":"11.50","Zxjg":"12.50","Zxsz":"12500.00"}]}`)
	api := NewAPIClient(mock, mock)

	info, err := api.GetAccountInfo(context.Background(), liveSession())
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.True(t, info.Overview.TotalAssets.Equal(decimal.RequireFromString("100000")))
	assert.True(t, info.Overview.AvailableCash.Equal(decimal.RequireFromString("15000")))
	assert.True(t, info.Overview.FrozenCash.Equal(decimal.RequireFromString("5000")))

	require.Len(t, info.Positions, 1)
	pos := info.Positions[0]
	assert.Equal(t, "600000", pos.Code)
	assert.Equal(t, 1000, pos.Quantity)
	assert.Equal(t, 800, pos.AvailableQuantity)
	assert.True(t, pos.CostPrice.Equal(decimal.RequireFromString("11.5")))
	assert.False(t, info.FetchedAt.IsZero())
}

// 资金和持仓任何一边失败，整个查询失败，不返回半份数据
func TestGetAccountInfoAtomic(t *testing.T) {
	mock := NewMockTransport()
	mock.SetJSONResponse(EndpointAssetAndPosition,
		`{"Status":0,"Message":"","Data":[{"Zzc":"100000.00","Zjye":"20000.00","Kyzj":"15000.00","Djzj":"5000.00","Zxsz":"80000.00"}]}`)
	mock.ErrorOnNext[EndpointStockList] = &types.TransportError{Op: "POST /Search/GetStockList", Err: context.DeadlineExceeded}
	api := NewAPIClient(mock, mock)

	info, err := api.GetAccountInfo(context.Background(), liveSession())
	assert.Nil(t, info)
	assert.True(t, types.IsTransportError(err))
	assert.Equal(t, 1, mock.CallCount(EndpointAssetAndPosition))
}

func TestGetMarketData(t *testing.T) {
	mock := NewMockTransport()
	mock.SetJSONResponse(EndpointQuote,
		`{"data":{"f57":"600000","f58":"浦发银行","f43":12.5,"f19":12.49,"f39":12.51,"f47":123456}}`)
	api := NewAPIClient(NewMockTransport(), mock)

	md, err := api.GetMarketData(context.Background(), liveSession(), "600000")
	require.NoError(t, err)
	assert.Equal(t, "600000", md.Code)
	assert.Equal(t, "浦发银行", md.Name)
	assert.True(t, md.LastPrice.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, md.BidPrice.Equal(decimal.RequireFromString("12.49")))
	assert.True(t, md.AskPrice.Equal(decimal.RequireFromString("12.51")))
	assert.Equal(t, int64(123456), md.Volume)

	query := mock.Queries[EndpointQuote]
	require.NotNil(t, query)
	assert.Equal(t, "1.600000", query.Get("secid"))
	assert.Equal(t, "2", query.Get("fltt"))
}

func TestGetMarketDataNoData(t *testing.T) {
	mock := NewMockTransport()
	mock.SetJSONResponse(EndpointQuote, `{"data":null}`)
	api := NewAPIClient(NewMockTransport(), mock)

	md, err := api.GetMarketData(context.Background(), liveSession(), "600000")
	assert.Nil(t, md)
	assert.True(t, types.IsPlatformError(err))
}

func TestGetMarketDataBadCode(t *testing.T) {
	mock := NewMockTransport()
	api := NewAPIClient(mock, mock)

	_, err := api.GetMarketData(context.Background(), liveSession(), "not-a-code")
	assert.True(t, types.IsValidationError(err))
	assert.Equal(t, 0, mock.TotalCalls)
}
