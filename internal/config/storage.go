package config

import (
	"os"

	"github.com/andrew-solarstorm/go-packages/common"
)

type StorageConfig struct {
	// DBPath is the path to the BoltDB file holding the last good market snapshot.
	// Default: "./data/markets.db"
	DBPath string

	// PersistenceEnabled controls whether snapshots are persisted to disk.
	// Default: true
	PersistenceEnabled bool

	// SeedPath is an optional JSON market list used when the store is empty.
	SeedPath string
}

func (c *StorageConfig) Key() string {
	return STORAGE_CONFIG_KEY
}

func (c *StorageConfig) Load() error {
	c.DBPath = common.GetEnvOrDefault("STORAGE_DB_PATH", "./data/markets.db")
	c.PersistenceEnabled = common.GetEnvOrDefault("PERSISTENCE_ENABLED", "true") == "true"
	c.SeedPath = os.Getenv("SEED_MARKETS_PATH")
	return nil
}

func (c *StorageConfig) Validate() error {
	return nil
}
