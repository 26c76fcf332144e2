package config

import (
	"errors"
	"os"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
	"github.com/shopspring/decimal"
)

const DefaultSubgraphURL = "https://api.thegraph.com/subgraphs/name/uniswap/uniswap-v2"

type RefdataConfig struct {
	// URL is the subgraph GraphQL endpoint serving `pairs`.
	URL string
	// QueryOverride replaces the built-in query. %reserveUSD and %timestamp are substituted.
	QueryOverride string
	// MinimumReserveUSD filters out thin pairs.
	// Default: 100000
	MinimumReserveUSD decimal.Decimal
	// MinimumTimestamp is the createdAtTimestamp the first page starts from.
	MinimumTimestamp int64
	// PageSize is the `first:` argument per page. The subgraph caps it at 1000.
	PageSize int
	// MaxAttempts per page before the refresh is abandoned.
	MaxAttempts int
	RetryDelay  time.Duration
	// RefreshInterval drives the periodic refresh. 0 disables it.
	RefreshInterval time.Duration
	// MinRefreshGap drops triggers that arrive sooner than this after the previous refresh.
	MinRefreshGap time.Duration
	// FeeBps is applied to every market; the subgraph does not report fees.
	FeeBps uint16
}

func (c *RefdataConfig) Key() string {
	return REFDATA_CONFIG_KEY
}

func (c *RefdataConfig) Load() error {
	c.URL = common.GetEnvOrDefault("REFDATA_URL", DefaultSubgraphURL)
	c.QueryOverride = os.Getenv("REFDATA_QUERY_OVERRIDE")

	minReserve, err := decimal.NewFromString(common.GetEnvOrDefault("MINIMUM_RESERVEUSD", "100000"))
	if err != nil {
		return errors.New("invalid MINIMUM_RESERVEUSD")
	}
	c.MinimumReserveUSD = minReserve
	c.MinimumTimestamp = int64(common.GetEnvOrDefaultInt("MINIMUM_TIMESTAMP", 0))
	c.PageSize = common.GetEnvOrDefaultInt("REFDATA_PAGE_SIZE", 1000)
	c.MaxAttempts = common.GetEnvOrDefaultInt("REFDATA_MAX_ATTEMPTS", 5)
	c.RetryDelay = time.Duration(common.GetEnvOrDefaultInt("REFDATA_RETRY_DELAY_MS", 500)) * time.Millisecond
	c.RefreshInterval = time.Duration(common.GetEnvOrDefaultInt("REFRESH_INTERVAL_SEC", 300)) * time.Second
	c.MinRefreshGap = time.Duration(common.GetEnvOrDefaultInt("REFRESH_MIN_GAP_SEC", 30)) * time.Second

	fee := common.GetEnvOrDefaultInt("FEE_BPS", 30)
	if fee < 0 || fee >= 10000 {
		return errors.New("invalid refdata config: FEE_BPS must be in 0..9999")
	}
	c.FeeBps = uint16(fee)
	return c.Validate()
}

func (c *RefdataConfig) Validate() error {
	if c.URL == "" {
		return errors.New("invalid refdata config: empty url")
	}
	if c.PageSize <= 0 || c.PageSize > 1000 {
		return errors.New("invalid refdata config: page size must be in 1..1000")
	}
	if c.MaxAttempts <= 0 {
		return errors.New("invalid refdata config: max attempts must be positive")
	}
	if c.FeeBps >= 10000 {
		return errors.New("invalid refdata config: fee must be below 10000 bps")
	}
	if c.MinimumReserveUSD.IsNegative() || c.RefreshInterval < 0 || c.MinRefreshGap < 0 {
		return errors.New("invalid refdata config")
	}
	return nil
}
