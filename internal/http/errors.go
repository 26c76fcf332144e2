package http

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/hxuan190/pair-router/internal/common"
	"github.com/hxuan190/pair-router/internal/services/market"
	"github.com/hxuan190/pair-router/internal/services/router"
)

// toHttpError maps service errors onto the public error surface. Anything not recognised is
// logged and reported as a bare 500 so internal details never reach the client.
func toHttpError(err error) *common.HttpError {
	var httpErr *common.HttpError
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, router.ErrUnknownToken),
		errors.Is(err, router.ErrInvalidMaxHops),
		errors.Is(err, router.ErrInvalidAmount),
		errors.Is(err, router.ErrInvalidFee),
		errors.Is(err, router.ErrAmountOverflow),
		errors.Is(err, router.ErrInsufficientLiquidity):
		return common.HTTPErrorBadRequest(err.Error())
	case errors.Is(err, router.ErrNoPathFound),
		errors.Is(err, market.ErrUnknownMarket):
		return common.HTTPErrorNotFound(err.Error())
	case errors.Is(err, market.ErrRefreshThrottled):
		return common.HTTPErrorTooManyRequests(err.Error())
	case errors.Is(err, router.ErrNoSnapshot),
		errors.Is(err, market.ErrChainDisabled):
		return common.HTTPErrorServiceUnavailable(err.Error())
	case errors.Is(err, market.ErrRefreshFailed):
		return common.HTTPErrorInternalError(err.Error())
	default:
		log.Error().Err(err).Msg("[HTTP] unhandled error")
		return common.HTTPErrorInternalError("")
	}
}
