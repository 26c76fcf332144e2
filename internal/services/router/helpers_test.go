package router

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/pair-router/internal/domain"
)

var (
	weth = domain.Token{Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Symbol: "WETH", Decimals: 18}
	dai  = domain.Token{Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Symbol: "DAI", Decimals: 18}
	usdc = domain.Token{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6}
	wbtc = domain.Token{Address: "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599", Symbol: "WBTC", Decimals: 8}
)

func newMarket(address string, t0, t1 domain.Token, r0, r1 string) domain.Market {
	return domain.Market{
		Address:  address,
		Token0:   t0,
		Token1:   t1,
		Reserve0: decimal.RequireFromString(r0),
		Reserve1: decimal.RequireFromString(r1),
		FeeBps:   30,
	}
}

func mustGraph(t testing.TB, markets ...domain.Market) *Graph {
	t.Helper()
	g := NewGraph()
	require.NoError(t, g.Replace(markets))
	return g
}

func isSymmetric(s *graphSnapshot) bool {
	for u, neighbors := range s.adj {
		for _, v := range neighbors {
			if !s.hasEdge(v, TokenID(u)) {
				return false
			}
		}
	}
	return len(s.edges)%2 == 0
}

func isSimple(path []TokenID) bool {
	seen := make(map[TokenID]struct{}, len(path))
	for _, id := range path {
		if _, ok := seen[id]; ok {
			return false
		}
		seen[id] = struct{}{}
	}
	return true
}

// gridMarkets connects n synthetic tokens with every market (i, j) where j-i <= span.
func gridMarkets(n, span int) []domain.Market {
	tokens := make([]domain.Token, n)
	for i := range tokens {
		tokens[i] = domain.Token{Address: fmt.Sprintf("0x%040x", i+1), Symbol: fmt.Sprintf("T%d", i)}
	}
	var markets []domain.Market
	for i := 0; i < n; i++ {
		for j := i + 1; j < n && j-i <= span; j++ {
			markets = append(markets, newMarket(
				fmt.Sprintf("0xpool%d_%d", i, j), tokens[i], tokens[j],
				fmt.Sprintf("%d", 1000+i*37), fmt.Sprintf("%d", 1000+j*53),
			))
		}
	}
	return markets
}
