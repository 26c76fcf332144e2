package router

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/pair-router/internal/domain"
	"github.com/hxuan190/pair-router/internal/metrics"
)

const (
	ROUTER_SERVICE = "router.Graph"
)

type edgeKey struct {
	from TokenID
	to   TokenID
}

// directedEdge is one orientation of a market. rate is the spot price of `from` in units of `to`.
type directedEdge struct {
	market *domain.Market
	rate   float64
}

// graphSnapshot holds one immutable token index + market graph.
// Readers keep the pointer they loaded for the whole query.
type graphSnapshot struct {
	registry *TokenRegistry
	adj      [][]TokenID
	edges    map[edgeKey]directedEdge

	markets    map[string]*domain.Market
	marketList []*domain.Market

	duplicates int
	builtAt    time.Time
}

func emptySnapshot() *graphSnapshot {
	return &graphSnapshot{
		registry: NewTokenRegistry(nil),
		edges:    make(map[edgeKey]directedEdge),
		markets:  make(map[string]*domain.Market),
	}
}

// BuildSnapshot builds the token index and the symmetric market graph from one full
// reference-data snapshot. Any market that references a token outside the index, or that
// yields a non-positive or non-finite rate, fails the whole build; every offender is reported.
func BuildSnapshot(markets []domain.Market) (*graphSnapshot, error) {
	owned := make([]domain.Market, len(markets))
	copy(owned, markets)
	for i := range owned {
		owned[i].Normalize()
	}

	registry := NewTokenRegistry(owned)
	snap := &graphSnapshot{
		registry:   registry,
		adj:        make([][]TokenID, registry.Size()),
		edges:      make(map[edgeKey]directedEdge, 2*len(owned)),
		markets:    make(map[string]*domain.Market, len(owned)),
		marketList: make([]*domain.Market, 0, len(owned)),
		builtAt:    time.Now(),
	}

	var errs []error
	for i := range owned {
		m := &owned[i]
		u, okU := registry.GetID(m.Token0.Address)
		v, okV := registry.GetID(m.Token1.Address)
		if !okU || !okV {
			errs = append(errs, fmt.Errorf("%w: market %s references a token outside its own build set", ErrDataIntegrity, m.Address))
			continue
		}
		if u == v {
			errs = append(errs, fmt.Errorf("%w: market %s pairs token %s with itself", ErrDataIntegrity, m.Address, m.Token0.Address))
			continue
		}

		forward, _ := m.SpotRate(m.Token0.Address)
		backward, _ := m.SpotRate(m.Token1.Address)
		if !validRate(forward) || !validRate(backward) {
			errs = append(errs, fmt.Errorf("%w: market %s has non-positive rate (reserve0=%s reserve1=%s)",
				ErrDataIntegrity, m.Address, m.Reserve0.String(), m.Reserve1.String()))
			continue
		}

		if _, exists := snap.edges[edgeKey{u, v}]; exists {
			// At most one pool per pair is expected; keep the first registered one.
			snap.duplicates++
			log.Warn().
				Str("market", m.Address).
				Str("token0", m.Token0.Address).
				Str("token1", m.Token1.Address).
				Msg("[Graph] duplicate market for token pair, keeping first registered")
			continue
		}

		snap.addEdge(u, v, m, forward)
		snap.addEdge(v, u, m, backward)
		snap.markets[m.Address] = m
		snap.marketList = append(snap.marketList, m)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return snap, nil
}

func validRate(rate float64) bool {
	return rate > 0 && !math.IsInf(rate, 0) && !math.IsNaN(rate)
}

func (s *graphSnapshot) addEdge(from, to TokenID, m *domain.Market, rate float64) {
	s.adj[from] = append(s.adj[from], to)
	s.edges[edgeKey{from, to}] = directedEdge{market: m, rate: rate}
}

func (s *graphSnapshot) hasEdge(from, to TokenID) bool {
	_, ok := s.edges[edgeKey{from, to}]
	return ok
}

// rate returns the spot rate for an adjacency-confirmed edge. Asking for an edge that does
// not exist is a programming error.
func (s *graphSnapshot) rate(from, to TokenID) float64 {
	e, ok := s.edges[edgeKey{from, to}]
	if !ok {
		panic(fmt.Sprintf("router: rate requested for missing edge %d->%d", from, to))
	}
	return e.rate
}

func (s *graphSnapshot) symbols(path []TokenID) []string {
	out := make([]string, len(path))
	for i, id := range path {
		out[i] = s.registry.Symbol(id)
	}
	return out
}

func (s *graphSnapshot) addresses(path []TokenID) []string {
	out := make([]string, len(path))
	for i, id := range path {
		out[i] = s.registry.GetToken(id).Address
	}
	return out
}

// Graph owns the live snapshot. Reads are lock-free; writers build a fresh snapshot off to
// the side and swap the pointer.
type Graph struct {
	mu sync.Mutex // Only for writes

	snapshot atomic.Pointer[graphSnapshot]
}

func NewGraph() *Graph {
	g := &Graph{}
	g.snapshot.Store(emptySnapshot())
	return g
}

func (g *Graph) ID() string {
	return ROUTER_SERVICE
}

func (g *Graph) Configure(c container.IContainer) error {
	g.snapshot.Store(emptySnapshot())
	return nil
}

func (g *Graph) Start() error {
	return nil
}

func (g *Graph) Stop() error {
	return nil
}

// Replace rebuilds the graph from a full market snapshot and swaps it in atomically.
// On error the previously served snapshot is left untouched.
func (g *Graph) Replace(markets []domain.Market) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	start := time.Now()
	snap, err := BuildSnapshot(markets)
	if err != nil {
		metrics.GraphBuildFailures.Inc()
		return err
	}

	g.snapshot.Store(snap)

	metrics.GraphSnapshotRebuilds.Inc()
	metrics.GraphBuildDuration.Observe(time.Since(start).Seconds())
	metrics.TokenCount.Set(float64(snap.registry.Size()))
	metrics.MarketCount.Set(float64(len(snap.marketList)))
	metrics.DuplicateMarkets.Set(float64(snap.duplicates))

	log.Info().
		Int("tokens", snap.registry.Size()).
		Int("markets", len(snap.marketList)).
		Int("duplicates", snap.duplicates).
		Dur("took", time.Since(start)).
		Msg("[Graph] snapshot replaced")
	return nil
}

func (g *Graph) getSnapshot() *graphSnapshot {
	return g.snapshot.Load()
}

// GetTokenCount returns the number of tokens in the live snapshot (lock-free)
func (g *Graph) GetTokenCount() int {
	return g.getSnapshot().registry.Size()
}

// GetMarketCount returns the number of markets wired into the live snapshot (lock-free)
func (g *Graph) GetMarketCount() int {
	return len(g.getSnapshot().marketList)
}

func (g *Graph) UpdatedAt() time.Time {
	return g.getSnapshot().builtAt
}

// GetMarket returns a market by pool address (lock-free read from snapshot)
func (g *Graph) GetMarket(address string) *domain.Market {
	return g.getSnapshot().markets[strings.ToLower(address)]
}

// GetAllMarkets returns the markets of the live snapshot in ingestion order
func (g *Graph) GetAllMarkets() []*domain.Market {
	snap := g.getSnapshot()
	out := make([]*domain.Market, len(snap.marketList))
	copy(out, snap.marketList)
	return out
}

// GetToken resolves an address against the live token index
func (g *Graph) GetToken(address string) (domain.Token, bool) {
	snap := g.getSnapshot()
	id, ok := snap.registry.GetID(address)
	if !ok {
		return domain.Token{}, false
	}
	return snap.registry.GetToken(id), true
}

// SearchTokens matches query against symbol, name and address (case-insensitive).
// Exact symbol matches sort first.
func (g *Graph) SearchTokens(query string, limit int) []domain.Token {
	snap := g.getSnapshot()
	q := strings.ToLower(strings.TrimSpace(query))

	var out []domain.Token
	for _, t := range snap.registry.toToken {
		if q == "" ||
			strings.Contains(strings.ToLower(t.Symbol), q) ||
			strings.Contains(strings.ToLower(t.Name), q) ||
			strings.HasPrefix(t.Address, q) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.EqualFold(out[i].Symbol, q) && !strings.EqualFold(out[j].Symbol, q)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
