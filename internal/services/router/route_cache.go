package router

import (
	"sync"
	"sync/atomic"

	"github.com/hxuan190/pair-router/internal/domain"
)

const routeCacheShards = 16 // Number of shards for reduced lock contention

// FNV-1a constants for zero-allocation hashing
const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

type routeKey struct {
	src     TokenID
	dst     TokenID
	maxHops int
}

// cacheEntry holds one answered query. A nil result records that no path exists.
type cacheEntry struct {
	key    routeKey
	result *domain.BestPathResult
	used   uint32 // Clock bit for eviction
}

type cacheShard struct {
	mu      sync.RWMutex
	entries []cacheEntry
	size    int
	hand    int // Clock hand for eviction
}

// routeCache memoizes best-path answers for exactly one snapshot. Snapshots are immutable, so
// entries never go stale; the whole cache is dropped when the snapshot is replaced.
type routeCache struct {
	snap   *graphSnapshot
	shards [routeCacheShards]cacheShard
}

func newRouteCache(snap *graphSnapshot, capacity int) *routeCache {
	rc := &routeCache{snap: snap}
	perShard := capacity / routeCacheShards
	if perShard < 1 {
		perShard = 1
	}
	for i := range rc.shards {
		rc.shards[i].entries = make([]cacheEntry, perShard)
	}
	return rc
}

func (k routeKey) hash() uint64 {
	h := uint64(fnvOffset64)
	for _, v := range [3]uint64{uint64(k.src), uint64(k.dst), uint64(k.maxHops)} {
		for i := 0; i < 8; i++ {
			h ^= (v >> (i * 8)) & 0xFF
			h *= fnvPrime64
		}
	}
	return h
}

func (rc *routeCache) getShard(key routeKey) *cacheShard {
	return &rc.shards[key.hash()%routeCacheShards]
}

func (rc *routeCache) get(key routeKey) (*domain.BestPathResult, bool) {
	shard := rc.getShard(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	for i := 0; i < shard.size; i++ {
		entry := &shard.entries[i]
		if entry.key == key {
			atomic.StoreUint32(&entry.used, 1)
			return entry.result, true
		}
	}
	return nil, false
}

func (rc *routeCache) set(key routeKey, result *domain.BestPathResult) {
	shard := rc.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	for i := 0; i < shard.size; i++ {
		if shard.entries[i].key == key {
			shard.entries[i].result = result
			atomic.StoreUint32(&shard.entries[i].used, 1)
			return
		}
	}

	n := len(shard.entries)
	if shard.size < n {
		shard.entries[shard.size] = cacheEntry{key: key, result: result, used: 1}
		shard.size++
		return
	}

	// Clock eviction: second chance for recently used entries
	for attempts := 0; attempts < n*2; attempts++ {
		entry := &shard.entries[shard.hand]
		shard.hand = (shard.hand + 1) % n
		if atomic.LoadUint32(&entry.used) == 0 {
			*entry = cacheEntry{key: key, result: result, used: 1}
			return
		}
		atomic.StoreUint32(&entry.used, 0)
	}

	shard.entries[shard.hand] = cacheEntry{key: key, result: result, used: 1}
	shard.hand = (shard.hand + 1) % n
}

func (rc *routeCache) count() int {
	total := 0
	for i := range rc.shards {
		shard := &rc.shards[i]
		shard.mu.RLock()
		total += shard.size
		shard.mu.RUnlock()
	}
	return total
}
