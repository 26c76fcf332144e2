package router

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/pair-router/internal/config"
	"github.com/hxuan190/pair-router/internal/domain"
	"github.com/hxuan190/pair-router/internal/metrics"
	"github.com/hxuan190/pair-router/internal/services"
)

const (
	ROUTER_FACADE = "router.Router"

	defaultRouteCacheSize = 1024

	// NoHopsLimit lets callers ask for any maxHops; the search itself stops at simple paths.
	NoHopsLimit = -1
)

var ErrNoSnapshot = errors.New("market graph not loaded yet")

// Router answers best-rate queries against whatever snapshot is live when the query starts.
type Router struct {
	container.BaseDIInstance

	graph          *Graph
	strategy       RateStrategy
	defaultMaxHops int
	maxHopsLimit   int

	cacheSize int
	cache     atomic.Pointer[routeCache]

	logger *services.ServiceLogger
}

// NewRouter builds a router outside the DI container. A maxHopsLimit of 0 allows direct markets
// only; pass NoHopsLimit to accept any maxHops.
func NewRouter(graph *Graph, strategy RateStrategy, maxHopsLimit int) *Router {
	if strategy == nil {
		strategy = LogStrategy{}
	}
	r := &Router{
		graph:          graph,
		strategy:       strategy,
		defaultMaxHops: 2,
		maxHopsLimit:   maxHopsLimit,
		cacheSize:      defaultRouteCacheSize,
	}
	r.logger = services.NewServiceLogger(r)
	return r
}

func (r *Router) ID() string {
	return ROUTER_FACADE
}

func (r *Router) Configure(c container.IContainer) error {
	cfg := c.GetConfig(config.ROUTER_CONFIG_KEY).(*config.RouterConfig)
	strategy, err := StrategyByName(cfg.RateStrategy)
	if err != nil {
		return err
	}

	r.graph = c.Instance(ROUTER_SERVICE).(*Graph)
	r.strategy = strategy
	r.defaultMaxHops = cfg.DefaultMaxHops
	r.maxHopsLimit = cfg.MaxHopsLimit
	r.cacheSize = cfg.RouteCacheSize
	r.logger = services.NewServiceLogger(r)
	return nil
}

func (r *Router) Start() error {
	r.logger.Info().
		Str("strategy", r.strategy.Name()).
		Int("default_max_hops", r.defaultMaxHops).
		Int("max_hops_limit", r.maxHopsLimit).
		Int("route_cache_size", r.cacheSize).
		Msg("[Router] ready")
	return nil
}

func (r *Router) Stop() error {
	return nil
}

func (r *Router) DefaultMaxHops() int {
	return r.defaultMaxHops
}

func (r *Router) Strategy() RateStrategy {
	return r.strategy
}

// GetBestPathAndRate returns the highest spot-rate simple path from src to dst.
// maxHops counts intermediate tokens: 0 means a direct market only.
func (r *Router) GetBestPathAndRate(src, dst string, maxHops int) (*domain.BestPathResult, error) {
	start := time.Now()
	result, err := r.getBestPathAndRate(src, dst, maxHops)

	metrics.RouteRequests.WithLabelValues(routeStatus(err)).Inc()
	metrics.RouteDuration.Observe(time.Since(start).Seconds())
	if result != nil {
		metrics.RouteCandidates.Observe(float64(result.Candidates))
	}
	return result, err
}

func (r *Router) getBestPathAndRate(src, dst string, maxHops int) (*domain.BestPathResult, error) {
	snap, s, d, err := r.resolve(src, dst, maxHops)
	if err != nil {
		return nil, err
	}

	key := routeKey{src: s, dst: d, maxHops: maxHops}
	cache := r.cacheFor(snap)
	if cache != nil {
		if cached, hit := cache.get(key); hit {
			metrics.RouteCacheHits.Inc()
			if cached == nil {
				return nil, fmt.Errorf("%w: %s -> %s within %d hops", ErrNoPathFound, src, dst, maxHops)
			}
			result := cloneResult(cached)
			result.Time = time.Now().UTC()
			return result, nil
		}
		metrics.RouteCacheMisses.Inc()
	}

	candidates := snap.findPaths(s, d, maxHops)
	best, score, ok := selectBest(candidates, func(path []TokenID) float64 {
		return r.strategy.Score(path, snap.rate)
	})
	if !ok {
		if cache != nil {
			cache.set(key, nil)
		}
		return nil, fmt.Errorf("%w: %s -> %s within %d hops", ErrNoPathFound, src, dst, maxHops)
	}

	r.logger.Debug().
		Int("candidates", len(candidates)).
		Strs("path", snap.symbols(best)).
		Msg("[Router] best path selected")

	result := &domain.BestPathResult{
		Rate:       r.strategy.Rate(score),
		BestPath:   snap.symbols(best),
		Route:      snap.addresses(best),
		Hops:       len(best) - 1,
		Candidates: len(candidates),
		Time:       time.Now().UTC(),
	}
	if cache != nil {
		cache.set(key, cloneResult(result))
	}
	return result, nil
}

// cloneResult copies the path slices so callers never share memory with a cache entry.
func cloneResult(res *domain.BestPathResult) *domain.BestPathResult {
	out := *res
	out.BestPath = slices.Clone(res.BestPath)
	out.Route = slices.Clone(res.Route)
	return &out
}

// cacheFor returns the route cache bound to snap, replacing one left over from an older snapshot.
func (r *Router) cacheFor(snap *graphSnapshot) *routeCache {
	if r.cacheSize <= 0 {
		return nil
	}
	for {
		cur := r.cache.Load()
		if cur != nil && cur.snap == snap {
			return cur
		}
		next := newRouteCache(snap, r.cacheSize)
		if r.cache.CompareAndSwap(cur, next) {
			return next
		}
	}
}

// GetAllPaths returns every candidate path with its end-to-end rate in enumeration order.
func (r *Router) GetAllPaths(src, dst string, maxHops int) (*domain.AllPathsResult, error) {
	snap, s, d, err := r.resolve(src, dst, maxHops)
	if err != nil {
		return nil, err
	}

	candidates := snap.findPaths(s, d, maxHops)
	paths := make([]domain.PathCandidate, 0, len(candidates))
	for _, path := range candidates {
		if len(path) < 2 {
			continue
		}
		paths = append(paths, domain.PathCandidate{
			Path:  snap.symbols(path),
			Route: snap.addresses(path),
			Rate:  r.strategy.Rate(r.strategy.Score(path, snap.rate)),
		})
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s -> %s within %d hops", ErrNoPathFound, src, dst, maxHops)
	}
	return &domain.AllPathsResult{Paths: paths, Time: time.Now().UTC()}, nil
}

// resolve pins one snapshot for the whole query and maps both addresses into it.
func (r *Router) resolve(src, dst string, maxHops int) (*graphSnapshot, TokenID, TokenID, error) {
	if maxHops < 0 {
		return nil, 0, 0, fmt.Errorf("%w: %d", ErrInvalidMaxHops, maxHops)
	}
	if r.maxHopsLimit >= 0 && maxHops > r.maxHopsLimit {
		return nil, 0, 0, fmt.Errorf("%w: %d (allowed 0..%d)", ErrInvalidMaxHops, maxHops, r.maxHopsLimit)
	}

	snap := r.graph.getSnapshot()
	if snap.registry.Size() == 0 {
		return nil, 0, 0, ErrNoSnapshot
	}

	s, ok := snap.registry.GetID(src)
	if !ok {
		return nil, 0, 0, fmt.Errorf("%w: %s", ErrUnknownToken, src)
	}
	d, ok := snap.registry.GetID(dst)
	if !ok {
		return nil, 0, 0, fmt.Errorf("%w: %s", ErrUnknownToken, dst)
	}
	if s == d {
		return nil, 0, 0, fmt.Errorf("%w: source and destination are the same token", ErrNoPathFound)
	}
	return snap, s, d, nil
}

func routeStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnknownToken):
		return "unknown_token"
	case errors.Is(err, ErrNoPathFound):
		return "no_path"
	case errors.Is(err, ErrInvalidMaxHops):
		return "invalid_max_hops"
	case errors.Is(err, ErrNoSnapshot):
		return "no_snapshot"
	default:
		return "error"
	}
}
