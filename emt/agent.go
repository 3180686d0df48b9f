// Package emt is a programmatic client for the Eastmoney web trading
// platform: automated login, order placement/cancellation and
// account/market snapshots without a browser.
package emt

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/riiy/EMTradingAgent/emt/captcha"
	"github.com/riiy/EMTradingAgent/emt/client"
	"github.com/riiy/EMTradingAgent/emt/types"
)

// Options configures a TradingAgent.
type Options struct {
	// Host is the trading host, defaults to the production platform.
	Host string

	// QuoteHost is the market-data host.
	QuoteHost string

	// Timeout applies to every outbound HTTP call.
	Timeout time.Duration

	// Solver decodes captcha images during login. Required.
	Solver captcha.Solver
}

// TradingAgent composes the auth and API clients behind one surface.
// It holds no protocol logic of its own: lifecycle, delegation and
// the not-logged-in guard only. One agent owns one logical session;
// for concurrent sessions run separate agent instances.
type TradingAgent struct {
	auth    *client.AuthClient
	api     *client.APIClient
	session *types.Session
	lastErr error
	log     *logrus.Entry
}

// New creates an agent wired to the real HTTP transports.
func New(opts Options) *TradingAgent {
	host := opts.Host
	if host == "" {
		host = client.DefaultHost
	}
	quoteHost := opts.QuoteHost
	if quoteHost == "" {
		quoteHost = client.DefaultQuoteHost
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	trade := client.NewTransport(host, timeout)
	quote := client.NewTransport(quoteHost, timeout)
	return NewWithClients(
		client.NewAuthClient(trade, opts.Solver),
		client.NewAPIClient(trade, quote),
	)
}

// NewWithClients creates an agent from pre-built clients. Tests use
// this to inject stub transports.
func NewWithClients(auth *client.AuthClient, api *client.APIClient) *TradingAgent {
	return &TradingAgent{
		auth: auth,
		api:  api,
		log:  logrus.WithField("component", "agent"),
	}
}

// Login performs the full handshake and reports success as a boolean
// for simple call sites. When it returns false the typed error stays
// retrievable through LastError.
func (t *TradingAgent) Login(ctx context.Context, username, password string, durationMinutes int) bool {
	session, err := t.auth.Login(ctx, username, password, durationMinutes)
	if err != nil {
		t.lastErr = err
		t.session = nil
		t.log.Warnf("login failed: %v", err)
		return false
	}
	t.lastErr = nil
	t.session = session
	return true
}

// LastError returns the typed error behind the most recent failed
// Login, nil after a successful one.
func (t *TradingAgent) LastError() error {
	return t.lastErr
}

// IsLoggedIn reports whether the agent holds a currently valid session.
func (t *TradingAgent) IsLoggedIn() bool {
	return t.session.Valid()
}

// Logout invalidates the session. Safe to call repeatedly.
func (t *TradingAgent) Logout(ctx context.Context) {
	t.auth.Logout(ctx)
	t.session = nil
}

// requireLogin distinguishes "never logged in" from an expired session.
func (t *TradingAgent) requireLogin() error {
	if t.session == nil {
		return &types.SessionExpiredError{Reason: "not logged in"}
	}
	return nil
}

// PlaceOrder submits an order through the API client.
func (t *TradingAgent) PlaceOrder(ctx context.Context, code string, side types.TradeSide, quantity int, price decimal.Decimal) (*types.PlaceOrderResult, error) {
	if err := t.requireLogin(); err != nil {
		return nil, err
	}
	return t.api.PlaceOrder(ctx, t.session, code, side, quantity, price)
}

// Submit places a caller-built Order and writes the outcome back into
// it: OrderID and a submitted status on acceptance, a rejected status
// on a platform rejection. Hard failures leave the order untouched.
func (t *TradingAgent) Submit(ctx context.Context, order *types.Order) (*types.PlaceOrderResult, error) {
	result, err := t.PlaceOrder(ctx, order.Code, order.Side, order.Quantity, order.Price)
	if err != nil {
		return nil, err
	}
	if result.Rejected {
		order.Status = types.OrderStatusRejected
		return result, nil
	}
	order.OrderID = result.OrderID()
	order.Status = types.OrderStatusSubmitted
	return result, nil
}

// CancelOrder cancels an order by its YYYYMMDD_number identifier.
func (t *TradingAgent) CancelOrder(ctx context.Context, orderID string) (*types.CancelOrderResult, error) {
	if err := t.requireLogin(); err != nil {
		return nil, err
	}
	return t.api.CancelOrder(ctx, t.session, orderID)
}

// QueryOrders returns today's orders in the platform's own ordering.
func (t *TradingAgent) QueryOrders(ctx context.Context) ([]types.OrderRecord, error) {
	if err := t.requireLogin(); err != nil {
		return nil, err
	}
	return t.api.QueryOrders(ctx, t.session)
}

// GetAccountInfo returns a fresh balance+positions snapshot.
func (t *TradingAgent) GetAccountInfo(ctx context.Context) (*types.AccountInfo, error) {
	if err := t.requireLogin(); err != nil {
		return nil, err
	}
	return t.api.GetAccountInfo(ctx, t.session)
}

// GetMarketData returns a point-in-time quote for one stock code.
func (t *TradingAgent) GetMarketData(ctx context.Context, code string) (*types.MarketData, error) {
	if err := t.requireLogin(); err != nil {
		return nil, err
	}
	return t.api.GetMarketData(ctx, t.session, code)
}
