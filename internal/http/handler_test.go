package http

import (
	"context"
	"encoding/json"
	"fmt"
	gohttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/pair-router/internal/config"
	"github.com/hxuan190/pair-router/internal/domain"
	"github.com/hxuan190/pair-router/internal/services/market"
	"github.com/hxuan190/pair-router/internal/services/router"
)

var (
	weth = domain.Token{Address: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18}
	dai  = domain.Token{Address: "0x6b175474e89094c44da98b954eedeac495271d0f", Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18}
	usdc = domain.Token{Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Symbol: "USDC", Name: "USD Coin", Decimals: 6}
	wbtc = domain.Token{Address: "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599", Symbol: "WBTC", Name: "Wrapped BTC", Decimals: 8}
	link = domain.Token{Address: "0x514910771af9ca656af840dff83e8264ecf986ca", Symbol: "LINK", Name: "ChainLink Token", Decimals: 18}
)

func pairAddress(i int) string {
	return fmt.Sprintf("0x%040x", i)
}

func testMarkets() []domain.Market {
	mk := func(i int, t0, t1 domain.Token, r0, r1 string) domain.Market {
		return domain.Market{
			Address:  pairAddress(i),
			Token0:   t0,
			Token1:   t1,
			Reserve0: decimal.RequireFromString(r0),
			Reserve1: decimal.RequireFromString(r1),
			FeeBps:   30,
		}
	}
	return []domain.Market{
		mk(1, weth, dai, "10", "20000"),
		mk(2, weth, usdc, "10", "20100"),
		mk(3, usdc, dai, "1000000", "1000000"),
		mk(4, wbtc, link, "5", "100000"),
	}
}

type fakeMonitor struct {
	status market.Status
	check  *market.OnchainCheck
	err    error
}

func (f *fakeMonitor) Status() market.Status { return f.status }

func (f *fakeMonitor) CheckOnchain(ctx context.Context, address string) (*market.OnchainCheck, error) {
	return f.check, f.err
}

type fakeRefresher struct {
	result *market.RefreshResult
	err    error
	calls  int
}

func (f *fakeRefresher) Refresh(ctx context.Context, trigger string) (*market.RefreshResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	r.Trigger = trigger
	return &r, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	engine    *gin.Engine
	graph     *router.Graph
	monitor   *fakeMonitor
	refresher *fakeRefresher
}

func newTestServer(t *testing.T, markets []domain.Market) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	graph := router.NewGraph()
	if len(markets) > 0 {
		require.NoError(t, graph.Replace(markets))
	}
	rt := router.NewRouter(graph, router.LogStrategy{}, 4)
	monitor := &fakeMonitor{status: market.Status{Refreshes: 1}}
	refresher := &fakeRefresher{result: &market.RefreshResult{Markets: len(markets)}}

	svc := NewHTTPService(
		&config.GeneralConfig{Env: config.DevEnv, HTTPHost: "localhost", HTTPPort: "0", RateLimitRPS: 1000, RateLimitBurst: 1000},
		NewRouteHandler(rt),
		NewMarketHandler(graph, monitor),
		NewTokenHandler(graph),
		NewAdminHandler(refresher),
	)
	return &testServer{engine: svc.Engine(), graph: graph, monitor: monitor, refresher: refresher}
}

func (s *testServer) do(t *testing.T, method, target string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func TestRouteEndpoint(t *testing.T) {
	s := newTestServer(t, testMarkets())

	code, env := s.do(t, gohttp.MethodGet, "/api/v1/route?inputToken="+weth.Address+"&outputToken="+dai.Address)
	require.Equal(t, gohttp.StatusOK, code)
	require.True(t, env.Success)

	var resp RouteResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, []string{"WETH", "USDC", "DAI"}, resp.BestPath)
	assert.Equal(t, []string{weth.Address, usdc.Address, dai.Address}, resp.Route)
	assert.InEpsilon(t, 2010.0, resp.Rate, 1e-9)
	assert.Equal(t, 2, resp.Hops)
	assert.Equal(t, 2, resp.Candidates)
	_, err := time.Parse(time.RFC3339, resp.Time)
	assert.NoError(t, err)

	// direct market only
	code, env = s.do(t, gohttp.MethodGet, "/api/v1/route?inputToken="+weth.Address+"&outputToken="+dai.Address+"&maxHops=0")
	require.Equal(t, gohttp.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, []string{"WETH", "DAI"}, resp.BestPath)
	assert.InEpsilon(t, 2000.0, resp.Rate, 1e-9)
}

func TestRouteEndpointErrors(t *testing.T) {
	s := newTestServer(t, testMarkets())

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"missing params", "/api/v1/route?inputToken=" + weth.Address, gohttp.StatusBadRequest, ""},
		{"non-numeric maxHops", "/api/v1/route?inputToken=" + weth.Address + "&outputToken=" + dai.Address + "&maxHops=two", gohttp.StatusBadRequest, "BAD_REQUEST"},
		{"negative maxHops", "/api/v1/route?inputToken=" + weth.Address + "&outputToken=" + dai.Address + "&maxHops=-1", gohttp.StatusBadRequest, "BAD_REQUEST"},
		{"maxHops above limit", "/api/v1/route?inputToken=" + weth.Address + "&outputToken=" + dai.Address + "&maxHops=9", gohttp.StatusBadRequest, "BAD_REQUEST"},
		{"unknown token", "/api/v1/route?inputToken=0xdeadbeef&outputToken=" + dai.Address, gohttp.StatusBadRequest, "BAD_REQUEST"},
		{"disconnected tokens", "/api/v1/route?inputToken=" + weth.Address + "&outputToken=" + wbtc.Address, gohttp.StatusNotFound, "NOT_FOUND"},
		{"same token", "/api/v1/route?inputToken=" + weth.Address + "&outputToken=" + weth.Address, gohttp.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, gohttp.MethodGet, tt.target)
			assert.Equal(t, tt.status, code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
			if tt.code != "" {
				assert.Equal(t, tt.code, env.Code)
			}
		})
	}
}

func TestRouteEndpointBeforeFirstSnapshot(t *testing.T) {
	s := newTestServer(t, nil)

	code, env := s.do(t, gohttp.MethodGet, "/api/v1/route?inputToken="+weth.Address+"&outputToken="+dai.Address)
	assert.Equal(t, gohttp.StatusServiceUnavailable, code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Code)
}

func TestAllPathsEndpoint(t *testing.T) {
	s := newTestServer(t, testMarkets())

	code, env := s.do(t, gohttp.MethodGet, "/api/v1/route/all?inputToken="+weth.Address+"&outputToken="+dai.Address)
	require.Equal(t, gohttp.StatusOK, code)

	var resp domain.AllPathsResult
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp.Paths, 2)
	assert.Equal(t, []string{"WETH", "DAI"}, resp.Paths[0].Path)
	assert.Equal(t, []string{"WETH", "USDC", "DAI"}, resp.Paths[1].Path)
}

func TestMarketEndpoints(t *testing.T) {
	s := newTestServer(t, testMarkets())

	t.Run("stats", func(t *testing.T) {
		code, env := s.do(t, gohttp.MethodGet, "/api/v1/markets/stats")
		require.Equal(t, gohttp.StatusOK, code)
		var resp MarketStatsResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, 5, resp.TokenCount)
		assert.Equal(t, 4, resp.MarketCount)
		assert.False(t, resp.UpdatedAt.IsZero())
		assert.Equal(t, uint64(1), resp.Refresh.Refreshes)
	})

	t.Run("list paging", func(t *testing.T) {
		code, env := s.do(t, gohttp.MethodGet, "/api/v1/markets/list?page=2&limit=3")
		require.Equal(t, gohttp.StatusOK, code)
		var resp MarketListResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, 4, resp.Total)
		assert.Equal(t, 2, resp.Pages)
		require.Len(t, resp.Markets, 1)
		assert.Equal(t, pairAddress(4), resp.Markets[0].Address)
	})

	t.Run("detail is case-insensitive", func(t *testing.T) {
		code, env := s.do(t, gohttp.MethodGet, "/api/v1/markets/"+strings.ToUpper(pairAddress(1)))
		require.Equal(t, gohttp.StatusOK, code)
		var resp MarketInfo
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, "WETH", resp.Token0.Symbol)
		assert.InEpsilon(t, 2000.0, resp.Price0, 1e-9)
		assert.InEpsilon(t, 0.0005, resp.Price1, 1e-9)
	})

	t.Run("detail not found", func(t *testing.T) {
		code, env := s.do(t, gohttp.MethodGet, "/api/v1/markets/"+pairAddress(99))
		assert.Equal(t, gohttp.StatusNotFound, code)
		assert.Equal(t, "NOT_FOUND", env.Code)
	})
}

func TestMarketQuoteEndpoint(t *testing.T) {
	s := newTestServer(t, testMarkets())

	code, env := s.do(t, gohttp.MethodGet, "/api/v1/markets/"+pairAddress(1)+"/quote?amountIn=1")
	require.Equal(t, gohttp.StatusOK, code)
	var q router.MarketQuote
	require.NoError(t, json.Unmarshal(env.Data, &q))
	assert.Equal(t, "DAI", q.TokenOut.Symbol)
	// 1 WETH into 10/20000 at 30 bps: 19940/10.997
	assert.InDelta(t, 1813.22, q.AmountOut.InexactFloat64(), 0.01)
	assert.Less(t, q.ExecutionRate, q.SpotRate)

	code, env = s.do(t, gohttp.MethodGet, "/api/v1/markets/"+pairAddress(1)+"/quote?amountIn=100&tokenIn="+dai.Address)
	require.Equal(t, gohttp.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &q))
	assert.Equal(t, "WETH", q.TokenOut.Symbol)

	code, _ = s.do(t, gohttp.MethodGet, "/api/v1/markets/"+pairAddress(1)+"/quote?amountIn=abc")
	assert.Equal(t, gohttp.StatusBadRequest, code)

	code, _ = s.do(t, gohttp.MethodGet, "/api/v1/markets/"+pairAddress(1)+"/quote?amountIn=0")
	assert.Equal(t, gohttp.StatusBadRequest, code)

	code, _ = s.do(t, gohttp.MethodGet, "/api/v1/markets/"+pairAddress(1)+"/quote?amountIn=1&tokenIn="+usdc.Address)
	assert.Equal(t, gohttp.StatusBadRequest, code)
}

func TestMarketOnchainEndpoint(t *testing.T) {
	s := newTestServer(t, testMarkets())

	s.monitor.err = market.ErrChainDisabled
	code, env := s.do(t, gohttp.MethodGet, "/api/v1/markets/"+pairAddress(1)+"/onchain")
	assert.Equal(t, gohttp.StatusServiceUnavailable, code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Code)

	s.monitor.err = fmt.Errorf("%w: %s", market.ErrUnknownMarket, pairAddress(99))
	code, _ = s.do(t, gohttp.MethodGet, "/api/v1/markets/"+pairAddress(99)+"/onchain")
	assert.Equal(t, gohttp.StatusNotFound, code)

	s.monitor.err = nil
	s.monitor.check = &market.OnchainCheck{Market: pairAddress(1), SnapshotRate: 2000, ChainRate: 2010, RelativeDiff: 0.005}
	code, env = s.do(t, gohttp.MethodGet, "/api/v1/markets/"+pairAddress(1)+"/onchain")
	require.Equal(t, gohttp.StatusOK, code)
	var check market.OnchainCheck
	require.NoError(t, json.Unmarshal(env.Data, &check))
	assert.InDelta(t, 0.005, check.RelativeDiff, 1e-12)

	s.monitor.err = fmt.Errorf("dial tcp: connection refused")
	code, env = s.do(t, gohttp.MethodGet, "/api/v1/markets/"+pairAddress(1)+"/onchain")
	assert.Equal(t, gohttp.StatusInternalServerError, code)
	assert.NotContains(t, env.Error, "connection refused")
}

func TestTokenEndpoints(t *testing.T) {
	s := newTestServer(t, testMarkets())

	code, env := s.do(t, gohttp.MethodGet, "/api/v1/tokens/search?q=usd")
	require.Equal(t, gohttp.StatusOK, code)
	var resp TokenSearchResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "USDC", resp.Tokens[0].Symbol)

	code, env = s.do(t, gohttp.MethodGet, "/api/v1/tokens/search?q=nothing-matches")
	require.Equal(t, gohttp.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Tokens)

	code, _ = s.do(t, gohttp.MethodGet, "/api/v1/tokens/search")
	assert.Equal(t, gohttp.StatusBadRequest, code)

	code, env = s.do(t, gohttp.MethodGet, "/api/v1/tokens/"+wbtc.Address)
	require.Equal(t, gohttp.StatusOK, code)
	var token domain.Token
	require.NoError(t, json.Unmarshal(env.Data, &token))
	assert.Equal(t, uint8(8), token.Decimals)

	code, _ = s.do(t, gohttp.MethodGet, "/api/v1/tokens/0xdeadbeef")
	assert.Equal(t, gohttp.StatusNotFound, code)
}

func TestAdminRefreshEndpoint(t *testing.T) {
	s := newTestServer(t, testMarkets())

	code, env := s.do(t, gohttp.MethodPost, "/api/v1/admin/refresh")
	require.Equal(t, gohttp.StatusOK, code)
	var result market.RefreshResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, market.TriggerAdmin, result.Trigger)
	assert.Equal(t, 4, result.Markets)

	s.refresher.err = market.ErrRefreshThrottled
	code, env = s.do(t, gohttp.MethodPost, "/api/v1/admin/refresh")
	assert.Equal(t, gohttp.StatusTooManyRequests, code)
	assert.Equal(t, "TOO_MANY_REQUESTS", env.Code)

	s.refresher.err = fmt.Errorf("%w: upstream 502", market.ErrRefreshFailed)
	code, _ = s.do(t, gohttp.MethodPost, "/api/v1/admin/refresh")
	assert.Equal(t, gohttp.StatusInternalServerError, code)
	assert.Equal(t, 3, s.refresher.calls)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, testMarkets())

	req := httptest.NewRequest(gohttp.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, gohttp.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	req = httptest.NewRequest(gohttp.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, gohttp.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pair_router_")
}
