package main

import (
	goCommon "github.com/andrew-solarstorm/go-packages/common"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/pair-router/internal/adapters/blockchain"
	"github.com/hxuan190/pair-router/internal/common"
	"github.com/hxuan190/pair-router/internal/config"
	"github.com/hxuan190/pair-router/internal/http"
	"github.com/hxuan190/pair-router/internal/services/market"
	"github.com/hxuan190/pair-router/internal/services/router"
)

// @title Pair Router API
// @version 1.0
// @description Best-rate token conversion paths over Uniswap V2 markets.
// @description
// @description ## - Features
// @description - **Best Path Search**: Every simple path within maxHops intermediate tokens, ranked by the product of spot rates
// @description - **Snapshot Refresh**: Reference data from the Uniswap V2 subgraph, swapped in atomically
// @description - **On-chain Checks**: Live getReserves() comparison for any market in the snapshot
// @description - **Market Quotes**: Constant-product output for a sized amount, fee included
// @description
// @description ## - Usage Tips
// @description - Token addresses are case-insensitive
// @description - maxHops counts intermediate tokens: 0 means a direct market only (default 2)
// @description - Rates are spot rates and ignore fees and price impact
// @description - Rate Limit: 10 requests/second per IP (burst: 20)
// @description
// @BasePath /
// @schemes https http
// @tag.name route
// @tag.description Best conversion path and rate between two tokens
// @tag.name markets
// @tag.description Markets of the live snapshot, quotes and on-chain checks
// @tag.name tokens
// @tag.description Search and discover token metadata
// @tag.name admin
// @tag.description Operational controls

func main() {
	// load env
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file, using process environment")
	}

	common.InitLogger(
		goCommon.GetEnvOrDefault("LOG_LEVEL", "INFO"),
		goCommon.GetEnvOrDefault("ENV", "dev"),
	)

	// di container config
	conf := container.NewConf(
		&config.GeneralConfig{},
		&config.RPCConfig{},
		&config.RefdataConfig{},
		&config.RouterConfig{},
		&config.StorageConfig{},
	)

	// di container
	dic, err := container.New(
		// config
		conf,

		// services
		&router.Graph{},
		&router.Router{},
		&blockchain.ChainService{},
		&market.Service{},

		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	// Run() waits for SIGINT/SIGTERM
	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	// Run() doesn't call Stop(), we must do it manually
	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
