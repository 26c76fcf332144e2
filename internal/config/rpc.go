package config

import (
	"errors"
	"os"

	"github.com/andrew-solarstorm/go-packages/common"
)

type RPCConfig struct {
	// RPCUrl is an Ethereum JSON-RPC endpoint. Empty disables on-chain reads and the block watcher.
	RPCUrl string
	// BlockPollInterval is how often the latest block number is polled (in seconds).
	// Default: 12
	BlockPollInterval int
	// RefreshEveryBlocks triggers a reference data refresh every N new blocks. 0 disables block triggers.
	RefreshEveryBlocks int
}

func (r *RPCConfig) Key() string {
	return RPC_CONFIG_KEY
}

func (r *RPCConfig) Load() error {
	r.RPCUrl = os.Getenv("RPC_URL")
	r.BlockPollInterval = common.GetEnvOrDefaultInt("BLOCK_POLL_INTERVAL_SEC", 12)
	r.RefreshEveryBlocks = common.GetEnvOrDefaultInt("REFRESH_EVERY_BLOCKS", 0)
	return r.Validate()
}

func (r *RPCConfig) Validate() error {
	if r.BlockPollInterval <= 0 || r.RefreshEveryBlocks < 0 {
		return errors.New("invalid rpc config")
	}
	return nil
}

func (r *RPCConfig) Enabled() bool {
	return r.RPCUrl != ""
}
