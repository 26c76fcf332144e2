package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/pair-router/internal/domain"
)

const (
	SnapshotBucket = "snapshots"

	marketsKey = "markets"
	metaKey    = "meta"

	DefaultDBPath = "./data/markets.db"
)

var ErrNoSnapshot = errors.New("no persisted snapshot")

// StoredMeta describes the persisted market list.
type StoredMeta struct {
	SavedAt time.Time `json:"savedAt"`
	Markets int       `json:"markets"`
}

// Storage keeps the last good reference-data snapshot. The market list is written as one value
// so a reader never sees markets from two different refreshes.
type Storage struct {
	db     *boltdb.BoltDatabase
	dbPath string
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	log.Info().Str("path", dbPath).Msg("[Storage] opened database")

	return &Storage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveSnapshot replaces the persisted snapshot with markets in a single batch.
func (s *Storage) SaveSnapshot(markets []domain.Market) error {
	data, err := sonic.Marshal(markets)
	if err != nil {
		return fmt.Errorf("failed to marshal markets: %w", err)
	}
	meta, err := sonic.Marshal(StoredMeta{SavedAt: time.Now().UTC(), Markets: len(markets)})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot meta: %w", err)
	}

	batch := s.db.NewBatch()
	for key, value := range map[string][]byte{marketsKey: data, metaKey: meta} {
		value := value
		op := &boltdb.WriteOperation{
			Bucket: []byte(SnapshotBucket),
			Key:    []byte(key),
			Value:  &value,
			Op:     boltdb.OpSet,
		}
		if err := batch.Add(op); err != nil {
			return fmt.Errorf("failed to add %s to batch: %w", key, err)
		}
	}

	if err := batch.Execute(); err != nil {
		log.Error().Err(err).Int("count", len(markets)).Msg("[Storage] FAILED to execute batch")
		return err
	}

	log.Info().Int("count", len(markets)).Msg("[Storage] saved market snapshot")
	return nil
}

// LoadSnapshot returns the persisted markets, or ErrNoSnapshot when nothing was saved yet.
func (s *Storage) LoadSnapshot() ([]domain.Market, *StoredMeta, error) {
	data, err := s.db.List(SnapshotBucket)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoSnapshot, err)
	}

	raw, ok := data[marketsKey]
	if !ok {
		return nil, nil, ErrNoSnapshot
	}

	var markets []domain.Market
	if err := sonic.Unmarshal(raw, &markets); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal markets: %w", err)
	}

	meta := &StoredMeta{Markets: len(markets)}
	if rawMeta, ok := data[metaKey]; ok {
		if err := sonic.Unmarshal(rawMeta, meta); err != nil {
			log.Warn().Err(err).Msg("[Storage] failed to unmarshal snapshot meta, ignoring")
		}
	}

	log.Info().
		Int("loaded", len(markets)).
		Time("saved_at", meta.SavedAt).
		Msg("[Storage] market snapshot loaded")
	return markets, meta, nil
}

// LoadSeedFile reads a JSON array of markets in the same shape the store and the API use.
func LoadSeedFile(path string) ([]domain.Market, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var markets []domain.Market
	if err := sonic.Unmarshal(raw, &markets); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	for i := range markets {
		markets[i].Normalize()
	}
	return markets, nil
}
