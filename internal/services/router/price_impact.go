package router

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Price impact thresholds in basis points (bps)
const (
	PriceImpactLow      uint16 = 100  // 1%
	PriceImpactModerate uint16 = 300  // 3%
	PriceImpactHigh     uint16 = 500  // 5%
	PriceImpactExtreme  uint16 = 1000 // 10%
)

type PriceImpactSeverity string

const (
	SeverityNone     PriceImpactSeverity = "none"     // < 1%
	SeverityLow      PriceImpactSeverity = "low"      // 1-3%
	SeverityModerate PriceImpactSeverity = "moderate" // 3-5%
	SeverityHigh     PriceImpactSeverity = "high"     // 5-10%
	SeverityExtreme  PriceImpactSeverity = "extreme"  // > 10%
)

func GetPriceImpactSeverity(priceImpactBps uint16) PriceImpactSeverity {
	switch {
	case priceImpactBps < PriceImpactLow:
		return SeverityNone
	case priceImpactBps < PriceImpactModerate:
		return SeverityLow
	case priceImpactBps < PriceImpactHigh:
		return SeverityModerate
	case priceImpactBps < PriceImpactExtreme:
		return SeverityHigh
	default:
		return SeverityExtreme
	}
}

// CalculatePriceImpact compares the execution price of a constant-product swap with the
// pre-trade spot price, fee included:
//
//	impact = (1 - (amountOut/amountIn) / (reserveOut/reserveIn)) * 10000
//	       = 10000 - amountOut*reserveIn*10000 / (amountIn*reserveOut)
//
// Products are taken in big.Int since amountOut*reserveIn*10000 can exceed 256 bits for 18 decimal tokens.
func CalculatePriceImpact(amountIn, amountOut, reserveIn, reserveOut *uint256.Int) uint16 {
	if amountIn == nil || amountOut == nil || reserveIn == nil || reserveOut == nil {
		return 0
	}
	if amountIn.IsZero() || reserveOut.IsZero() {
		return 0
	}

	num := new(big.Int).Mul(amountOut.ToBig(), reserveIn.ToBig())
	num.Mul(num, big.NewInt(10000))
	den := new(big.Int).Mul(amountIn.ToBig(), reserveOut.ToBig())
	ratio := num.Div(num, den)

	if ratio.Cmp(big.NewInt(10000)) >= 0 {
		return 0
	}
	return uint16(10000 - ratio.Int64())
}

// GetPriceImpactWarning returns a user-facing warning, empty below 1%
func GetPriceImpactWarning(priceImpactBps uint16) string {
	switch GetPriceImpactSeverity(priceImpactBps) {
	case SeverityLow:
		return "Low price impact"
	case SeverityModerate:
		return "Moderate price impact - consider reducing trade size"
	case SeverityHigh:
		return "High price impact - you may receive significantly less tokens"
	case SeverityExtreme:
		return "EXTREME price impact - this trade will severely move the market price"
	default:
		return ""
	}
}
