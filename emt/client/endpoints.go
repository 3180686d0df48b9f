package client

// 默认主机
const (
	// DefaultHost 交易主机
	DefaultHost = "https://jywg.18.cn"
	// DefaultQuoteHost 行情主机
	DefaultQuoteHost = "https://push2.eastmoney.com"
)

// 交易接口端点
const (
	// 登录
	EndpointCaptcha         = "/Login/YZM"            // 验证码图片，带 randNum 参数
	EndpointLogin           = "/Login/Authentication" // 提交登录表单
	EndpointLogout          = "/Login/ExitLogin"      // 退出登录
	EndpointValidateKeyPage = "/Trade/Buy"            // 登录后从该页面抓取 validate key

	// 交易
	EndpointSubmitTrade  = "/Trade/SubmitTradeV2" // 下单
	EndpointRevokeOrders = "/Trade/RevokeOrders"  // 撤单

	// 查询
	EndpointGetOrders        = "/Search/GetOrdersData"        // 当日委托
	EndpointAssetAndPosition = "/Com/queryAssetAndPositionV1" // 资金概览
	EndpointStockList        = "/Search/GetStockList"         // 持仓列表

	// 行情（push2 主机）
	EndpointQuote = "/api/qt/stock/get"
)

// loginReferer 登录请求的 Referer，与网页端保持一致
const loginReferer = "https://jywg.18.cn/Login?el=1&clear=&returl=%2fTrade%2fBuy"
