package http

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/pair-router/internal/common"
	"github.com/hxuan190/pair-router/internal/domain"
	"github.com/hxuan190/pair-router/internal/http/httputil"
	"github.com/hxuan190/pair-router/internal/services/market"
	"github.com/hxuan190/pair-router/internal/services/router"
)

const onchainTimeout = 10 * time.Second

// MarketGraph is the read side of the live market snapshot.
type MarketGraph interface {
	GetTokenCount() int
	GetMarketCount() int
	UpdatedAt() time.Time
	GetMarket(address string) *domain.Market
	GetAllMarkets() []*domain.Market
	GetToken(address string) (domain.Token, bool)
	SearchTokens(query string, limit int) []domain.Token
}

// MarketMonitor exposes refresh status and live on-chain checks.
type MarketMonitor interface {
	Status() market.Status
	CheckOnchain(ctx context.Context, address string) (*market.OnchainCheck, error)
}

type MarketHandler struct {
	graph   MarketGraph
	monitor MarketMonitor
}

func NewMarketHandler(graph MarketGraph, monitor MarketMonitor) *MarketHandler {
	return &MarketHandler{graph: graph, monitor: monitor}
}

func (h *MarketHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/stats", h.getStats)
	pub.GET("/list", h.listMarkets)
	pub.GET("/:address", h.getMarket)
	pub.GET("/:address/quote", h.quote)
	pub.GET("/:address/onchain", h.onchain)
}

func (h *MarketHandler) Root() string {
	return "/markets"
}

// MarketStatsResponse summarises the live snapshot and the refresh loop
type MarketStatsResponse struct {
	// Distinct tokens in the routing graph
	TokenCount int `json:"token_count" example:"812"`

	// Markets wired into the routing graph (one per token pair)
	MarketCount int `json:"market_count" example:"1033"`

	// When the live snapshot was built; zero before the first successful refresh
	UpdatedAt time.Time `json:"updated_at"`

	// Reference data refresh status
	Refresh market.Status `json:"refresh"`
}

// getStats godoc
// @Summary Snapshot statistics
// @Tags markets
// @Produce json
// @Success 200 {object} httputil.Response{data=MarketStatsResponse}
// @Router /api/v1/markets/stats [get]
func (h *MarketHandler) getStats(c *gin.Context) {
	resp := MarketStatsResponse{
		TokenCount:  h.graph.GetTokenCount(),
		MarketCount: h.graph.GetMarketCount(),
		UpdatedAt:   h.graph.UpdatedAt(),
	}
	if h.monitor != nil {
		resp.Refresh = h.monitor.Status()
	}
	httputil.HandleSuccess(c, resp)
}

// MarketInfo is one constant-product market of the snapshot
type MarketInfo struct {
	// Pair contract address
	Address string `json:"address" example:"0xa478c2975ab1ea89e8196811f51a7b7ade33eb11"`

	Token0 domain.Token `json:"token0"`
	Token1 domain.Token `json:"token1"`

	// Reserve of token0, already scaled by its decimals
	Reserve0 string `json:"reserve0" example:"5321.004"`

	// Reserve of token1, already scaled by its decimals
	Reserve1 string `json:"reserve1" example:"10642008.5"`

	// Spot price of token0 in units of token1
	Price0 float64 `json:"price0" example:"2000.0"`

	// Spot price of token1 in units of token0
	Price1 float64 `json:"price1" example:"0.0005"`

	// Swap fee in basis points
	FeeBps uint16 `json:"fee_bps" example:"30"`
}

func toMarketInfo(m *domain.Market) MarketInfo {
	p0, _ := m.SpotRate(m.Token0.Address)
	p1, _ := m.SpotRate(m.Token1.Address)
	return MarketInfo{
		Address:  m.Address,
		Token0:   m.Token0,
		Token1:   m.Token1,
		Reserve0: m.Reserve0.String(),
		Reserve1: m.Reserve1.String(),
		Price0:   p0,
		Price1:   p1,
		FeeBps:   m.FeeBps,
	}
}

// MarketListResponse contains a page of markets in ingestion order
type MarketListResponse struct {
	Markets []MarketInfo `json:"markets"`

	// Total number of markets across all pages
	Total int `json:"total" example:"1033"`

	// Current page number (1-indexed)
	Page int `json:"page" example:"1"`

	// Markets per page (max 500)
	Limit int `json:"limit" example:"100"`

	// Total number of pages available
	Pages int `json:"pages" example:"11"`
}

// listMarkets godoc
// @Summary List markets
// @Tags markets
// @Produce json
// @Param page query int false "Page number (1-indexed)" default(1)
// @Param limit query int false "Markets per page, max 500" default(100)
// @Success 200 {object} httputil.Response{data=MarketListResponse}
// @Router /api/v1/markets/list [get]
func (h *MarketHandler) listMarkets(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	all := h.graph.GetAllMarkets()
	total := len(all)

	pages := (total + limit - 1) / limit
	offset := (page - 1) * limit
	end := offset + limit
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}

	markets := make([]MarketInfo, 0, end-offset)
	for _, m := range all[offset:end] {
		markets = append(markets, toMarketInfo(m))
	}

	httputil.HandleSuccess(c, MarketListResponse{
		Markets: markets,
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
	})
}

// getMarket godoc
// @Summary Market detail
// @Tags markets
// @Produce json
// @Param address path string true "Pair contract address"
// @Success 200 {object} httputil.Response{data=MarketInfo}
// @Failure 404 {object} httputil.Response
// @Router /api/v1/markets/{address} [get]
func (h *MarketHandler) getMarket(c *gin.Context) {
	m := h.graph.GetMarket(c.Param("address"))
	if m == nil {
		httputil.HandleError(c, common.HTTPErrorNotFound("market not found"))
		return
	}
	httputil.HandleSuccess(c, toMarketInfo(m))
}

// quote godoc
// @Summary Quote a sized swap through one market
// @Description Constant-product output for amountIn of tokenIn, fee included, using snapshot reserves.
// @Description Amounts are decimal token units (1.5 WETH is "1.5"). Routing never uses this number.
// @Tags markets
// @Produce json
// @Param address path string true "Pair contract address"
// @Param amountIn query string true "Amount of tokenIn in token units" example("1.5")
// @Param tokenIn query string false "Token being sold, defaults to token0"
// @Success 200 {object} httputil.Response{data=router.MarketQuote}
// @Failure 400 {object} httputil.Response
// @Failure 404 {object} httputil.Response
// @Router /api/v1/markets/{address}/quote [get]
func (h *MarketHandler) quote(c *gin.Context) {
	m := h.graph.GetMarket(c.Param("address"))
	if m == nil {
		httputil.HandleError(c, common.HTTPErrorNotFound("market not found"))
		return
	}

	amountIn, err := decimal.NewFromString(strings.TrimSpace(c.Query("amountIn")))
	if err != nil {
		httputil.HandleError(c, common.HTTPErrorBadRequest("amountIn must be a decimal number"))
		return
	}
	tokenIn := c.DefaultQuery("tokenIn", m.Token0.Address)

	q, err := router.QuoteMarket(m, tokenIn, amountIn)
	if err != nil {
		httputil.HandleError(c, toHttpError(err))
		return
	}
	httputil.HandleSuccess(c, q)
}

// onchain godoc
// @Summary Compare a market with its live on-chain reserves
// @Description Reads getReserves() of the pair and reports the drift between the snapshot and chain spot prices.
// @Tags markets
// @Produce json
// @Param address path string true "Pair contract address"
// @Success 200 {object} httputil.Response{data=market.OnchainCheck}
// @Failure 404 {object} httputil.Response
// @Failure 503 {object} httputil.Response "RPC not configured"
// @Router /api/v1/markets/{address}/onchain [get]
func (h *MarketHandler) onchain(c *gin.Context) {
	if h.monitor == nil {
		httputil.HandleError(c, toHttpError(market.ErrChainDisabled))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), onchainTimeout)
	defer cancel()

	check, err := h.monitor.CheckOnchain(ctx, c.Param("address"))
	if err != nil {
		httputil.HandleError(c, toHttpError(err))
		return
	}
	httputil.HandleSuccess(c, check)
}
