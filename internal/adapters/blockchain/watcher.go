package blockchain

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hxuan190/pair-router/internal/metrics"
)

// BlockNumberReader is the subset of ethclient.Client used to follow the chain head.
type BlockNumberReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

type BlockHandler func(block uint64)

// BlockWatcher polls the chain head and notifies subscribers once per new block number.
type BlockWatcher struct {
	reader   BlockNumberReader
	interval time.Duration

	mu       sync.RWMutex
	last     uint64
	handlers []BlockHandler
}

func NewBlockWatcher(reader BlockNumberReader, interval time.Duration) *BlockWatcher {
	return &BlockWatcher{reader: reader, interval: interval}
}

func (w *BlockWatcher) Subscribe(h BlockHandler) {
	w.mu.Lock()
	w.handlers = append(w.handlers, h)
	w.mu.Unlock()
}

// LastBlock returns the latest block number seen (0 before the first successful poll).
func (w *BlockWatcher) LastBlock() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

// Run polls until ctx is cancelled.
func (w *BlockWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *BlockWatcher) poll(ctx context.Context) {
	block, err := w.reader.BlockNumber(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Msg("[BlockWatcher] failed to fetch block number")
		}
		return
	}

	w.mu.Lock()
	if block <= w.last {
		w.mu.Unlock()
		return
	}
	w.last = block
	handlers := make([]BlockHandler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	metrics.LastBlockSeen.Set(float64(block))
	for _, h := range handlers {
		h(block)
	}
}
