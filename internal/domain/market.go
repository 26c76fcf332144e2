package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

// Market is a constant-product trading pair as delivered by the reference data source.
// Reserves are already scaled by token decimals.
type Market struct {
	Address   string          `json:"address"`
	Token0    Token           `json:"token0"`
	Token1    Token           `json:"token1"`
	Reserve0  decimal.Decimal `json:"reserve0"`
	Reserve1  decimal.Decimal `json:"reserve1"`
	FeeBps    uint16          `json:"feeBps"`
	CreatedAt int64           `json:"createdAt"`
}

type MarketRegistry map[string]*Market

// Normalize lowercases every address on the market so lookups are case-insensitive.
func (m *Market) Normalize() {
	m.Address = strings.ToLower(m.Address)
	m.Token0.Address = strings.ToLower(m.Token0.Address)
	m.Token1.Address = strings.ToLower(m.Token1.Address)
}

func (m *Market) HasToken(address string) bool {
	return m.Token0.Address == address || m.Token1.Address == address
}

// Reserves returns (reserveIn, reserveOut) for a swap that sells tokenIn.
func (m *Market) Reserves(tokenIn string) (decimal.Decimal, decimal.Decimal, bool) {
	switch tokenIn {
	case m.Token0.Address:
		return m.Reserve0, m.Reserve1, true
	case m.Token1.Address:
		return m.Reserve1, m.Reserve0, true
	default:
		return decimal.Zero, decimal.Zero, false
	}
}

// SpotRate is the marginal price of tokenIn expressed in the other token: reserveOut / reserveIn.
// The division is done in float64 so tiny ratios are not truncated by decimal division precision.
func (m *Market) SpotRate(tokenIn string) (float64, bool) {
	in, out, ok := m.Reserves(tokenIn)
	if !ok {
		return 0, false
	}
	return out.InexactFloat64() / in.InexactFloat64(), true
}

func (m *Market) Other(tokenIn string) Token {
	if tokenIn == m.Token0.Address {
		return m.Token1
	}
	return m.Token0
}
