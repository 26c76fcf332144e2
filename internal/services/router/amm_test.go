package router

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/pair-router/internal/domain"
)

func TestGetAmountOut(t *testing.T) {
	// 1000 in against a 1e6/1e6 pool with 30 bps fee: 9_970_000*1e6/(1e10+9_970_000) -> 996
	out, err := GetAmountOut(uint256.NewInt(1000), uint256.NewInt(1_000_000), uint256.NewInt(1_000_000), 30)
	require.NoError(t, err)
	assert.Equal(t, uint64(996), out.Uint64())

	noFee, err := GetAmountOut(uint256.NewInt(1000), uint256.NewInt(1_000_000), uint256.NewInt(1_000_000), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(999), noFee.Uint64())
}

func TestGetAmountInRoundTrip(t *testing.T) {
	reserveIn := uint256.NewInt(5_000_000_000)
	reserveOut := uint256.NewInt(12_345_678_901)
	want := uint256.NewInt(7_777_777)

	in, err := GetAmountIn(want, reserveIn, reserveOut, 30)
	require.NoError(t, err)

	out, err := GetAmountOut(in, reserveIn, reserveOut, 30)
	require.NoError(t, err)
	assert.False(t, out.Lt(want), "amountIn must buy at least the requested output")

	less := new(uint256.Int).SubUint64(in, 1)
	out, err = GetAmountOut(less, reserveIn, reserveOut, 30)
	require.NoError(t, err)
	assert.True(t, out.Lt(want) || out.Eq(want))
}

func TestAMMErrors(t *testing.T) {
	one := uint256.NewInt(1)
	zero := uint256.NewInt(0)

	_, err := GetAmountOut(zero, one, one, 30)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = GetAmountOut(one, zero, one, 30)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
	_, err = GetAmountOut(one, one, one, 10000)
	assert.ErrorIs(t, err, ErrInvalidFee)
	_, err = GetAmountIn(uint256.NewInt(10), uint256.NewInt(100), uint256.NewInt(10), 30)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	max := new(uint256.Int).SetAllOne()
	_, err = GetAmountOut(max, max, max, 30)
	assert.ErrorIs(t, err, ErrAmountOverflow)
}

func TestQuoteMarket(t *testing.T) {
	m := newMarket("0xpool", weth, usdc, "100", "200000")
	m.Normalize()

	q, err := QuoteMarket(&m, m.Token0.Address, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "USDC", q.TokenOut.Symbol)
	assert.InDelta(t, 2000.0, q.SpotRate, 1e-9)
	// 0.997*200000/(100+0.997) = 1974.3...
	assert.InDelta(t, 1974.32, q.AmountOut.InexactFloat64(), 0.01)
	assert.Less(t, q.ExecutionRate, q.SpotRate)
	assert.True(t, q.AmountOut.Exponent() >= -6)
	// 1% of the pool plus the fee moves the price by ~1.29%
	assert.InDelta(t, 129, float64(q.PriceImpactBps), 1)
	assert.Equal(t, SeverityLow, q.Severity)
	assert.NotEmpty(t, q.Warning)

	_, err = QuoteMarket(&m, dai.Address, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrUnknownToken)
	_, err = QuoteMarket(&m, m.Token0.Address, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestQuoteMarketSmallDecimals(t *testing.T) {
	m := domain.Market{
		Address:  "0xpool",
		Token0:   domain.Token{Address: "0xa", Decimals: 0},
		Token1:   domain.Token{Address: "0xb", Decimals: 0},
		Reserve0: decimal.NewFromInt(1_000_000),
		Reserve1: decimal.NewFromInt(1_000_000),
		FeeBps:   30,
	}
	q, err := QuoteMarket(&m, "0xa", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, q.AmountOut.Equal(decimal.NewFromInt(996)))
	assert.Equal(t, uint16(40), q.PriceImpactBps)
	assert.Equal(t, SeverityNone, q.Severity)
	assert.Empty(t, q.Warning)
}

func TestCalculatePriceImpact(t *testing.T) {
	reserveIn := uint256.MustFromDecimal("10000000000000000000")
	reserveOut := uint256.MustFromDecimal("20000000000000000000000")
	amountIn := uint256.MustFromDecimal("1000000000000000000")
	amountOut, err := GetAmountOut(amountIn, reserveIn, reserveOut, 30)
	require.NoError(t, err)

	// 1813.22/2000 = 0.90661
	impact := CalculatePriceImpact(amountIn, amountOut, reserveIn, reserveOut)
	assert.Equal(t, uint16(934), impact)
	assert.Equal(t, SeverityHigh, GetPriceImpactSeverity(impact))

	assert.Equal(t, uint16(0), CalculatePriceImpact(nil, amountOut, reserveIn, reserveOut))
	assert.Equal(t, uint16(0), CalculatePriceImpact(uint256.NewInt(0), amountOut, reserveIn, reserveOut))
}

func TestPriceImpactSeverity(t *testing.T) {
	tests := []struct {
		bps  uint16
		want PriceImpactSeverity
	}{
		{0, SeverityNone},
		{99, SeverityNone},
		{100, SeverityLow},
		{300, SeverityModerate},
		{500, SeverityHigh},
		{999, SeverityHigh},
		{1000, SeverityExtreme},
		{10000, SeverityExtreme},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetPriceImpactSeverity(tt.bps), "bps=%d", tt.bps)
	}
	assert.Empty(t, GetPriceImpactWarning(50))
	assert.Contains(t, GetPriceImpactWarning(2000), "EXTREME")
}
