package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/pair-router/internal/common"
	"github.com/hxuan190/pair-router/internal/domain"
	"github.com/hxuan190/pair-router/internal/http/httputil"
)

// PathRouter is the routing surface the handler needs.
type PathRouter interface {
	GetBestPathAndRate(src, dst string, maxHops int) (*domain.BestPathResult, error)
	GetAllPaths(src, dst string, maxHops int) (*domain.AllPathsResult, error)
	DefaultMaxHops() int
}

type RouteHandler struct {
	router PathRouter
}

func NewRouteHandler(router PathRouter) *RouteHandler {
	return &RouteHandler{router: router}
}

func (h *RouteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getRoute)
	pub.GET("/all", h.getAllPaths)
}

func (h *RouteHandler) Root() string {
	return "/route"
}

// RouteRequest holds the query parameters of a routing request
type RouteRequest struct {
	// Address of the token being sold
	InputToken string `form:"inputToken" binding:"required" example:"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"`

	// Address of the token being bought
	OutputToken string `form:"outputToken" binding:"required" example:"0x6b175474e89094c44da98b954eedeac495271d0f"`
}

// RouteResponse is the best conversion path between two tokens
type RouteResponse struct {
	// Product of the spot rates along the best path: units of outputToken per unit of inputToken
	Rate float64 `json:"rate" example:"1998.42"`

	// Token symbols along the path, inputToken first
	BestPath []string `json:"bestPath" example:"WETH,USDC,DAI"`

	// Token addresses along the path, inputToken first
	Route []string `json:"route"`

	// Number of markets crossed
	Hops int `json:"hops" example:"2"`

	// Number of simple paths that were scored
	Candidates int `json:"candidates" example:"3"`

	// Server time at which the rate was computed (RFC3339)
	Time string `json:"time" example:"2026-01-02T15:04:05Z"`
}

func (h *RouteHandler) parse(c *gin.Context) (*RouteRequest, int, bool) {
	var req RouteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.HandleBadRequest(c, "inputToken and outputToken are required")
		return nil, 0, false
	}

	maxHops, err := strconv.Atoi(c.DefaultQuery("maxHops", strconv.Itoa(h.router.DefaultMaxHops())))
	if err != nil {
		httputil.HandleError(c, common.HTTPErrorBadRequest("maxHops must be an integer"))
		return nil, 0, false
	}
	return &req, maxHops, true
}

// getRoute godoc
// @Summary Best conversion rate between two tokens
// @Description Searches every simple path of at most maxHops intermediate tokens through the
// @Description current market snapshot and returns the one with the highest product of spot rates.
// @Description Rates ignore fees and price impact; use the market quote endpoint for sized amounts.
// @Tags route
// @Produce json
// @Param inputToken query string true "Input token address" example("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
// @Param outputToken query string true "Output token address" example("0x6b175474e89094c44da98b954eedeac495271d0f")
// @Param maxHops query int false "Maximum number of intermediate tokens (0 = direct market only)" example(2)
// @Success 200 {object} httputil.Response{data=RouteResponse}
// @Failure 400 {object} httputil.Response "Unknown token or invalid maxHops"
// @Failure 404 {object} httputil.Response "No path between the tokens"
// @Failure 503 {object} httputil.Response "Market snapshot not loaded yet"
// @Router /api/v1/route [get]
func (h *RouteHandler) getRoute(c *gin.Context) {
	req, maxHops, ok := h.parse(c)
	if !ok {
		return
	}

	result, err := h.router.GetBestPathAndRate(req.InputToken, req.OutputToken, maxHops)
	if err != nil {
		httputil.HandleError(c, toHttpError(err))
		return
	}

	httputil.HandleSuccess(c, RouteResponse{
		Rate:       result.Rate,
		BestPath:   result.BestPath,
		Route:      result.Route,
		Hops:       result.Hops,
		Candidates: result.Candidates,
		Time:       result.Time.UTC().Format(time.RFC3339),
	})
}

// getAllPaths godoc
// @Summary Every candidate path between two tokens
// @Description Debug view of the search: all simple paths within maxHops, each with its spot rate, in discovery order.
// @Tags route
// @Produce json
// @Param inputToken query string true "Input token address"
// @Param outputToken query string true "Output token address"
// @Param maxHops query int false "Maximum number of intermediate tokens"
// @Success 200 {object} httputil.Response{data=domain.AllPathsResult}
// @Failure 400 {object} httputil.Response
// @Failure 503 {object} httputil.Response
// @Router /api/v1/route/all [get]
func (h *RouteHandler) getAllPaths(c *gin.Context) {
	req, maxHops, ok := h.parse(c)
	if !ok {
		return
	}

	result, err := h.router.GetAllPaths(req.InputToken, req.OutputToken, maxHops)
	if err != nil {
		httputil.HandleError(c, toHttpError(err))
		return
	}
	httputil.HandleSuccess(c, result)
}
