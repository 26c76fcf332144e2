package market

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	container "github.com/thehyperflames/dicontainer-go"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/hxuan190/pair-router/internal/adapters/blockchain"
	"github.com/hxuan190/pair-router/internal/adapters/persistence"
	"github.com/hxuan190/pair-router/internal/adapters/subgraph"
	"github.com/hxuan190/pair-router/internal/config"
	"github.com/hxuan190/pair-router/internal/domain"
	"github.com/hxuan190/pair-router/internal/metrics"
	"github.com/hxuan190/pair-router/internal/services"
	"github.com/hxuan190/pair-router/internal/services/router"
)

const (
	MARKET_SERVICE = "market.Service"

	TriggerStartup = "startup"
	TriggerTicker  = "ticker"
	TriggerBlock   = "block"
	TriggerAdmin   = "admin"

	refreshTimeout = 5 * time.Minute

	reserveCacheSize = 1024
	reserveCacheTTL  = 15 * time.Second
)

var (
	ErrRefreshFailed    = errors.New("reference data refresh failed")
	ErrRefreshThrottled = errors.New("refresh throttled")
	ErrChainDisabled    = errors.New("on-chain reads disabled")
	ErrUnknownMarket    = errors.New("unknown market")
)

// MarketSource returns one full reference-data snapshot.
type MarketSource interface {
	FetchMarkets(ctx context.Context, minReserveUSD decimal.Decimal, fromTimestamp int64) ([]domain.Market, error)
}

type SnapshotStore interface {
	SaveSnapshot(markets []domain.Market) error
	LoadSnapshot() ([]domain.Market, *persistence.StoredMeta, error)
	Close() error
}

type ReservesFetcher interface {
	FetchReserves(ctx context.Context, pair string) (*blockchain.PairReserves, error)
}

type RefreshResult struct {
	Trigger    string        `json:"trigger"`
	Markets    int           `json:"markets"`
	Tokens     int           `json:"tokens"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finishedAt"`
}

type Status struct {
	LastRefresh *RefreshResult `json:"lastRefresh,omitempty"`
	LastError   string         `json:"lastError,omitempty"`
	LastErrorAt *time.Time     `json:"lastErrorAt,omitempty"`
	Refreshes   uint64         `json:"refreshes"`
	Failures    uint64         `json:"failures"`
	InFlight    bool           `json:"inFlight"`
	LastBlock   uint64         `json:"lastBlock,omitempty"`
}

// OnchainCheck compares the snapshot spot rate of a market with the rate implied by live reserves.
type OnchainCheck struct {
	Market       string          `json:"market"`
	SnapshotRate float64         `json:"snapshotRate"`
	ChainRate    float64         `json:"chainRate"`
	RelativeDiff float64         `json:"relativeDiff"`
	Reserve0     decimal.Decimal `json:"reserve0"`
	Reserve1     decimal.Decimal `json:"reserve1"`
	CheckedAt    time.Time       `json:"checkedAt"`
}

// Service keeps the routing graph fed with reference data. Refreshes are coalesced into a
// single in-flight fetch and spaced by a minimum gap; a failed refresh never touches the live graph.
type Service struct {
	container.BaseDIInstance

	graph   *router.Graph
	source  MarketSource
	store   SnapshotStore
	chain   ReservesFetcher
	watcher *blockchain.BlockWatcher

	cfg                *config.RefdataConfig
	seedPath           string
	refreshEveryBlocks uint64

	sf        singleflight.Group
	limiter   *rate.Limiter
	inFlight  atomic.Bool
	refreshMu sync.Mutex // held while a refresh touches the graph or the store

	mu         sync.RWMutex
	lastResult *RefreshResult
	lastErr    error
	lastErrAt  time.Time
	refreshes  atomic.Uint64
	failures   atomic.Uint64
	blocksSeen atomic.Uint64

	reserveCache *ExpiringLRUCache[string, *OnchainCheck]
	blockCh      chan uint64

	// ctx bounds every refresh; Stop cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *services.ServiceLogger
}

// NewService wires a service without the DI container. store and chain may be nil.
func NewService(graph *router.Graph, source MarketSource, store SnapshotStore, chain ReservesFetcher, cfg *config.RefdataConfig) *Service {
	svc := &Service{}
	svc.init(graph, source, store, chain, cfg)
	return svc
}

func (svc *Service) init(graph *router.Graph, source MarketSource, store SnapshotStore, chain ReservesFetcher, cfg *config.RefdataConfig) {
	svc.graph = graph
	svc.source = source
	svc.store = store
	svc.chain = chain
	svc.cfg = cfg

	limit := rate.Inf
	if cfg.MinRefreshGap > 0 {
		limit = rate.Every(cfg.MinRefreshGap)
	}
	svc.limiter = rate.NewLimiter(limit, 1)
	svc.reserveCache = NewExpiringLRUCache[string, *OnchainCheck](reserveCacheSize, reserveCacheTTL)
	svc.blockCh = make(chan uint64, 1)
	svc.ctx, svc.cancel = context.WithCancel(context.Background())
	svc.logger = services.NewServiceLogger(svc)
}

func (svc *Service) ID() string {
	return MARKET_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	cfg := c.GetConfig(config.REFDATA_CONFIG_KEY).(*config.RefdataConfig)
	storageCfg := c.GetConfig(config.STORAGE_CONFIG_KEY).(*config.StorageConfig)
	rpcCfg := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	graph := c.Instance(router.ROUTER_SERVICE).(*router.Graph)
	chainSvc := c.Instance(blockchain.CHAIN_SERVICE).(*blockchain.ChainService)

	var store SnapshotStore
	if storageCfg.PersistenceEnabled {
		s, err := persistence.NewStorage(storageCfg.DBPath)
		if err != nil {
			return err
		}
		store = s
	}

	var chain ReservesFetcher
	if reader := chainSvc.Reserves(); reader != nil {
		chain = reader
	}

	svc.init(graph, subgraph.NewClient(cfg, nil), store, chain, cfg)
	svc.seedPath = storageCfg.SeedPath

	if w := chainSvc.Watcher(); w != nil && rpcCfg.RefreshEveryBlocks > 0 {
		svc.watcher = w
		svc.refreshEveryBlocks = uint64(rpcCfg.RefreshEveryBlocks)
		w.Subscribe(svc.onBlock)
	}
	return nil
}

func (svc *Service) Start() error {
	svc.bootstrap()

	svc.wg.Add(1)
	go func() {
		defer svc.wg.Done()
		svc.run(svc.ctx)
	}()
	return nil
}

func (svc *Service) Stop() error {
	if svc.cancel != nil {
		svc.cancel()
		svc.wg.Wait()
	}

	svc.refreshMu.Lock()
	defer svc.refreshMu.Unlock()
	if svc.store != nil {
		if err := svc.store.Close(); err != nil {
			log.Error().Err(err).Msg("[MarketService] failed to close storage")
		}
	}
	return nil
}

// bootstrap serves the last persisted snapshot, or the seed file, before the first remote refresh.
func (svc *Service) bootstrap() {
	if svc.store != nil {
		markets, meta, err := svc.store.LoadSnapshot()
		switch {
		case err != nil:
			log.Info().Err(err).Msg("[MarketService] no persisted snapshot loaded")
		case len(markets) > 0:
			if err := svc.graph.Replace(markets); err != nil {
				log.Error().Err(err).Msg("[MarketService] persisted snapshot rejected")
			} else {
				log.Info().Int("markets", len(markets)).Time("saved_at", meta.SavedAt).Msg("[MarketService] serving persisted snapshot")
				return
			}
		}
	}

	if svc.seedPath == "" {
		return
	}
	markets, err := persistence.LoadSeedFile(svc.seedPath)
	if err != nil {
		log.Error().Err(err).Msg("[MarketService] failed to load seed file")
		return
	}
	if err := svc.graph.Replace(markets); err != nil {
		log.Error().Err(err).Msg("[MarketService] seed snapshot rejected")
		return
	}
	log.Info().Int("markets", len(markets)).Str("path", svc.seedPath).Msg("[MarketService] serving seed snapshot")
}

func (svc *Service) run(ctx context.Context) {
	svc.trigger(ctx, TriggerStartup)

	var tick <-chan time.Time
	if svc.cfg.RefreshInterval > 0 {
		ticker := time.NewTicker(svc.cfg.RefreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			svc.trigger(ctx, TriggerTicker)
		case block := <-svc.blockCh:
			svc.logger.Debug().Uint64("block", block).Msg("[MarketService] block trigger")
			svc.trigger(ctx, TriggerBlock)
		}
	}
}

func (svc *Service) trigger(ctx context.Context, trigger string) {
	_, err := svc.Refresh(ctx, trigger)
	if err == nil || errors.Is(err, ErrRefreshThrottled) || errors.Is(err, context.Canceled) {
		return
	}
	log.Error().Err(err).Str("trigger", trigger).Msg("[MarketService] refresh failed, keeping last good snapshot")
}

func (svc *Service) onBlock(block uint64) {
	if svc.blocksSeen.Add(1)%svc.refreshEveryBlocks != 0 {
		return
	}
	select {
	case svc.blockCh <- block:
	default:
	}
}

// Refresh fetches a full snapshot and swaps it into the graph. Concurrent callers share the
// in-flight refresh and its result; a trigger within the minimum gap returns ErrRefreshThrottled.
// The fetch runs under the service lifetime, so Stop aborts it; ctx only bounds how long this
// caller waits for the shared result.
func (svc *Service) Refresh(ctx context.Context, trigger string) (*RefreshResult, error) {
	if svc.inFlight.Load() {
		metrics.RefreshCoalesced.Inc()
	}

	ch := svc.sf.DoChan("refresh", func() (interface{}, error) {
		if !svc.limiter.Allow() {
			metrics.RefreshThrottled.Inc()
			return nil, ErrRefreshThrottled
		}
		svc.inFlight.Store(true)
		defer svc.inFlight.Store(false)
		return svc.refresh(svc.ctx, trigger)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*RefreshResult), nil
	}
}

func (svc *Service) refresh(ctx context.Context, trigger string) (*RefreshResult, error) {
	svc.refreshMu.Lock()
	defer svc.refreshMu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	start := time.Now()
	markets, err := svc.source.FetchMarkets(ctx, svc.cfg.MinimumReserveUSD, svc.cfg.MinimumTimestamp)
	if err == nil && len(markets) == 0 {
		err = errors.New("source returned no markets")
	}
	if err == nil {
		for i := range markets {
			if markets[i].FeeBps == 0 {
				markets[i].FeeBps = svc.cfg.FeeBps
			}
		}
		err = svc.graph.Replace(markets)
	}
	if err != nil {
		svc.recordFailure(trigger, err)
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	svc.reserveCache.Clear()

	if svc.store != nil {
		if err := svc.store.SaveSnapshot(markets); err != nil {
			log.Error().Err(err).Msg("[MarketService] failed to persist snapshot")
		}
	}

	result := &RefreshResult{
		Trigger:    trigger,
		Markets:    svc.graph.GetMarketCount(),
		Tokens:     svc.graph.GetTokenCount(),
		Duration:   time.Since(start),
		FinishedAt: time.Now().UTC(),
	}
	svc.recordSuccess(result)
	return result, nil
}

func (svc *Service) recordSuccess(result *RefreshResult) {
	svc.refreshes.Add(1)
	metrics.RefreshRuns.WithLabelValues(result.Trigger, "ok").Inc()
	metrics.RefreshDuration.Set(result.Duration.Seconds())

	svc.mu.Lock()
	svc.lastResult = result
	svc.mu.Unlock()

	log.Info().
		Str("trigger", result.Trigger).
		Int("markets", result.Markets).
		Int("tokens", result.Tokens).
		Dur("took", result.Duration).
		Msg("[MarketService] refresh complete")
}

func (svc *Service) recordFailure(trigger string, err error) {
	svc.failures.Add(1)
	metrics.RefreshRuns.WithLabelValues(trigger, "failed").Inc()

	svc.mu.Lock()
	svc.lastErr = err
	svc.lastErrAt = time.Now().UTC()
	svc.mu.Unlock()
}

func (svc *Service) Status() Status {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	st := Status{
		LastRefresh: svc.lastResult,
		Refreshes:   svc.refreshes.Load(),
		Failures:    svc.failures.Load(),
		InFlight:    svc.inFlight.Load(),
	}
	if svc.lastErr != nil {
		st.LastError = svc.lastErr.Error()
		at := svc.lastErrAt
		st.LastErrorAt = &at
	}
	if svc.watcher != nil {
		st.LastBlock = svc.watcher.LastBlock()
	}
	return st
}

// CheckOnchain reads live reserves of a snapshot market and reports how far its spot rate drifted.
func (svc *Service) CheckOnchain(ctx context.Context, address string) (*OnchainCheck, error) {
	m := svc.graph.GetMarket(address)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMarket, address)
	}
	if svc.chain == nil {
		return nil, ErrChainDisabled
	}
	if cached, ok := svc.reserveCache.Get(m.Address); ok {
		return cached, nil
	}

	reserves, err := svc.chain.FetchReserves(ctx, m.Address)
	if err != nil {
		return nil, err
	}
	r0, r1 := reserves.Scaled(m)
	snapshotRate, _ := m.SpotRate(m.Token0.Address)

	check := &OnchainCheck{
		Market:       m.Address,
		SnapshotRate: snapshotRate,
		Reserve0:     r0,
		Reserve1:     r1,
		CheckedAt:    time.Now().UTC(),
	}
	if r0.IsPositive() {
		check.ChainRate = r1.InexactFloat64() / r0.InexactFloat64()
		check.RelativeDiff = math.Abs(check.ChainRate-snapshotRate) / snapshotRate
	}

	svc.reserveCache.Set(m.Address, check)
	return check, nil
}
