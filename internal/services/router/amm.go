package router

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/pair-router/internal/domain"
)

// BPS_DENOM = 10000 for basis points
var u256BpsDenom = uint256.NewInt(10000)

// GetAmountOut is the constant-product output for an exact input, in raw token units:
//
//	amountOut = amountIn*(10000-fee)*reserveOut / (reserveIn*10000 + amountIn*(10000-fee))
func GetAmountOut(amountIn, reserveIn, reserveOut *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrInvalidAmount
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	if feeBps >= 10000 {
		return nil, fmt.Errorf("%w: %d bps", ErrInvalidFee, feeBps)
	}

	feeMul := uint256.NewInt(uint64(10000 - feeBps))
	amountInWithFee, overflow := new(uint256.Int).MulOverflow(amountIn, feeMul)
	if overflow {
		return nil, ErrAmountOverflow
	}
	numerator, overflow := new(uint256.Int).MulOverflow(amountInWithFee, reserveOut)
	if overflow {
		return nil, ErrAmountOverflow
	}
	denominator, overflow := new(uint256.Int).MulOverflow(reserveIn, u256BpsDenom)
	if overflow {
		return nil, ErrAmountOverflow
	}
	if _, overflow = denominator.AddOverflow(denominator, amountInWithFee); overflow {
		return nil, ErrAmountOverflow
	}

	return new(uint256.Int).Div(numerator, denominator), nil
}

// GetAmountIn is the minimum input that yields amountOut, rounded up:
//
//	amountIn = reserveIn*amountOut*10000 / ((reserveOut-amountOut)*(10000-fee)) + 1
func GetAmountIn(amountOut, reserveIn, reserveOut *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	if amountOut == nil || amountOut.IsZero() {
		return nil, ErrInvalidAmount
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	if !amountOut.Lt(reserveOut) {
		return nil, fmt.Errorf("%w: amountOut %s >= reserveOut %s", ErrInsufficientLiquidity, amountOut.Dec(), reserveOut.Dec())
	}
	if feeBps >= 10000 {
		return nil, fmt.Errorf("%w: %d bps", ErrInvalidFee, feeBps)
	}

	numerator, overflow := new(uint256.Int).MulOverflow(reserveIn, amountOut)
	if overflow {
		return nil, ErrAmountOverflow
	}
	if _, overflow = numerator.MulOverflow(numerator, u256BpsDenom); overflow {
		return nil, ErrAmountOverflow
	}
	remaining := new(uint256.Int).Sub(reserveOut, amountOut)
	denominator, overflow := new(uint256.Int).MulOverflow(remaining, uint256.NewInt(uint64(10000-feeBps)))
	if overflow {
		return nil, ErrAmountOverflow
	}

	result := new(uint256.Int).Div(numerator, denominator)
	return result.AddUint64(result, 1), nil
}

// MarketQuote is an exact-input quote through one market, in human (decimal-scaled) units.
type MarketQuote struct {
	Market    string          `json:"market"`
	TokenIn   domain.Token    `json:"tokenIn"`
	TokenOut  domain.Token    `json:"tokenOut"`
	AmountIn  decimal.Decimal `json:"amountIn"`
	AmountOut decimal.Decimal `json:"amountOut"`
	SpotRate  float64         `json:"spotRate"`
	// ExecutionRate is AmountOut/AmountIn; below SpotRate by fee and price impact.
	ExecutionRate float64 `json:"executionRate"`
	FeeBps        uint16  `json:"feeBps"`

	PriceImpactBps uint16              `json:"priceImpactBps"`
	Severity       PriceImpactSeverity `json:"severity"`
	Warning        string              `json:"warning,omitempty"`
}

// QuoteMarket prices amountIn of tokenIn through m using its snapshot reserves.
func QuoteMarket(m *domain.Market, tokenIn string, amountIn decimal.Decimal) (*MarketQuote, error) {
	tokenIn = strings.ToLower(tokenIn)
	reserveIn, reserveOut, ok := m.Reserves(tokenIn)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not traded by market %s", ErrUnknownToken, tokenIn, m.Address)
	}
	if !amountIn.IsPositive() {
		return nil, ErrInvalidAmount
	}

	in := m.Token0
	if tokenIn != m.Token0.Address {
		in = m.Token1
	}
	out := m.Other(tokenIn)

	rawIn, err := toRaw(amountIn, in.Decimals)
	if err != nil {
		return nil, err
	}
	rawReserveIn, err := toRaw(reserveIn, in.Decimals)
	if err != nil {
		return nil, err
	}
	rawReserveOut, err := toRaw(reserveOut, out.Decimals)
	if err != nil {
		return nil, err
	}

	rawOut, err := GetAmountOut(rawIn, rawReserveIn, rawReserveOut, m.FeeBps)
	if err != nil {
		return nil, err
	}

	amountOut := decimal.NewFromBigInt(rawOut.ToBig(), -int32(out.Decimals))
	spot, _ := m.SpotRate(tokenIn)
	impact := CalculatePriceImpact(rawIn, rawOut, rawReserveIn, rawReserveOut)
	return &MarketQuote{
		Market:        m.Address,
		TokenIn:       in,
		TokenOut:      out,
		AmountIn:      amountIn,
		AmountOut:     amountOut,
		SpotRate:      spot,
		ExecutionRate: amountOut.InexactFloat64() / amountIn.InexactFloat64(),
		FeeBps:        m.FeeBps,

		PriceImpactBps: impact,
		Severity:       GetPriceImpactSeverity(impact),
		Warning:        GetPriceImpactWarning(impact),
	}, nil
}

func toRaw(amount decimal.Decimal, decimals uint8) (*uint256.Int, error) {
	raw := amount.Shift(int32(decimals)).Truncate(0)
	if raw.IsNegative() {
		return nil, ErrInvalidAmount
	}
	v, overflow := uint256.FromBig(raw.BigInt())
	if overflow {
		return nil, ErrAmountOverflow
	}
	return v, nil
}
