package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketSpotRate(t *testing.T) {
	m := Market{
		Address:  "0xPool",
		Token0:   Token{Address: "0xWETH", Symbol: "WETH", Decimals: 18},
		Token1:   Token{Address: "0xDAI", Symbol: "DAI", Decimals: 18},
		Reserve0: decimal.NewFromInt(10),
		Reserve1: decimal.NewFromInt(20000),
	}
	m.Normalize()
	assert.Equal(t, "0xpool", m.Address)
	assert.Equal(t, "0xweth", m.Token0.Address)

	rate, ok := m.SpotRate("0xweth")
	require.True(t, ok)
	assert.InDelta(t, 2000.0, rate, 1e-9)

	rate, ok = m.SpotRate("0xdai")
	require.True(t, ok)
	assert.InDelta(t, 0.0005, rate, 1e-12)

	_, ok = m.SpotRate("0xusdc")
	assert.False(t, ok)

	assert.Equal(t, "DAI", m.Other("0xweth").Symbol)
	assert.True(t, m.HasToken("0xdai"))
}

func TestMarketSpotRateTinyRatio(t *testing.T) {
	m := Market{
		Token0:   Token{Address: "a"},
		Token1:   Token{Address: "b"},
		Reserve0: decimal.RequireFromString("1000000000000"),
		Reserve1: decimal.RequireFromString("0.000000001"),
	}
	rate, ok := m.SpotRate("a")
	require.True(t, ok)
	assert.Greater(t, rate, 0.0)
	assert.InEpsilon(t, 1e-21, rate, 1e-9)
}
