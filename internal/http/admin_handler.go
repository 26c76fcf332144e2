package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/pair-router/internal/http/httputil"
	"github.com/hxuan190/pair-router/internal/services/market"
)

type Refresher interface {
	Refresh(ctx context.Context, trigger string) (*market.RefreshResult, error)
}

type AdminHandler struct {
	refresher Refresher
}

func NewAdminHandler(refresher Refresher) *AdminHandler {
	return &AdminHandler{refresher: refresher}
}

func (h *AdminHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	admin.POST("/refresh", h.refresh)
}

func (h *AdminHandler) Root() string {
	return ""
}

// refresh godoc
// @Summary Force a reference data refresh
// @Description Fetches a full snapshot and swaps it in. Joins a refresh already in flight;
// @Description returns 429 when called again within the minimum refresh gap.
// @Tags admin
// @Produce json
// @Success 200 {object} httputil.Response{data=market.RefreshResult}
// @Failure 429 {object} httputil.Response
// @Failure 500 {object} httputil.Response
// @Router /api/v1/admin/refresh [post]
func (h *AdminHandler) refresh(c *gin.Context) {
	result, err := h.refresher.Refresh(c.Request.Context(), market.TriggerAdmin)
	if err != nil {
		httputil.HandleError(c, toHttpError(err))
		return
	}
	httputil.HandleSuccess(c, result)
}
