package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/pair-router/internal/common"
	"github.com/hxuan190/pair-router/internal/domain"
	"github.com/hxuan190/pair-router/internal/http/httputil"
)

type TokenHandler struct {
	graph MarketGraph
}

func NewTokenHandler(graph MarketGraph) *TokenHandler {
	return &TokenHandler{graph: graph}
}

func (h *TokenHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/search", h.search)
	pub.GET("/:address", h.getToken)
}

func (h *TokenHandler) Root() string {
	return "/tokens"
}

// TokenSearchResponse lists tokens of the live snapshot matching a query
type TokenSearchResponse struct {
	Tokens []domain.Token `json:"tokens"`

	// Number of tokens returned
	Count int `json:"count" example:"3"`
}

// search godoc
// @Summary Search tokens
// @Description Case-insensitive match on symbol, name or address prefix. Exact symbol matches come first.
// @Tags tokens
// @Produce json
// @Param q query string true "Symbol, name or address prefix" example("usd")
// @Param limit query int false "Maximum results, capped at 50" default(20)
// @Success 200 {object} httputil.Response{data=TokenSearchResponse}
// @Failure 400 {object} httputil.Response
// @Router /api/v1/tokens/search [get]
func (h *TokenHandler) search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		httputil.HandleError(c, common.HTTPErrorBadRequest("q is required"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > common.MaxSearchResults {
		limit = common.MaxSearchResults
	}

	tokens := h.graph.SearchTokens(q, limit)
	if tokens == nil {
		tokens = []domain.Token{}
	}
	httputil.HandleSuccess(c, TokenSearchResponse{Tokens: tokens, Count: len(tokens)})
}

// getToken godoc
// @Summary Token detail
// @Tags tokens
// @Produce json
// @Param address path string true "Token address"
// @Success 200 {object} httputil.Response{data=domain.Token}
// @Failure 404 {object} httputil.Response
// @Router /api/v1/tokens/{address} [get]
func (h *TokenHandler) getToken(c *gin.Context) {
	token, ok := h.graph.GetToken(c.Param("address"))
	if !ok {
		httputil.HandleError(c, common.HTTPErrorNotFound("token not found"))
		return
	}
	httputil.HandleSuccess(c, token)
}
