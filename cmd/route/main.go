package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hxuan190/pair-router/internal/adapters/persistence"
	"github.com/hxuan190/pair-router/internal/adapters/subgraph"
	"github.com/hxuan190/pair-router/internal/config"
	"github.com/hxuan190/pair-router/internal/domain"
	"github.com/hxuan190/pair-router/internal/services/router"
)

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

func main() {
	from := flag.String("from", "", "input token address")
	to := flag.String("to", "", "output token address")
	maxHops := flag.Int("hops", 2, "maximum number of intermediate tokens")
	strategy := flag.String("strategy", router.StrategyLog, "rate strategy: log or linear")
	all := flag.Bool("all", false, "print every candidate path instead of the best one")
	dbPath := flag.String("db", "./data/markets.db", "bolt snapshot written by the server (server must be stopped)")
	seedPath := flag.String("seed", "", "JSON seed file; takes precedence over -db")
	fetch := flag.Bool("fetch", false, "fetch a fresh snapshot from the subgraph instead of reading a local one")
	flag.Parse()

	if *from == "" || *to == "" {
		flag.Usage()
		os.Exit(2)
	}
	_ = godotenv.Load()

	markets, err := loadMarkets(*fetch, *seedPath, *dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load markets")
	}

	rateStrategy, err := router.StrategyByName(*strategy)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid strategy")
	}

	graph := router.NewGraph()
	if err := graph.Replace(markets); err != nil {
		log.Fatal().Err(err).Msg("Failed to build market graph")
	}
	rt := router.NewRouter(graph, rateStrategy, router.NoHopsLimit)

	var out interface{}
	if *all {
		out, err = rt.GetAllPaths(*from, *to, *maxHops)
	} else {
		out, err = rt.GetBestPathAndRate(*from, *to, *maxHops)
	}
	if err != nil {
		log.Error().Err(err).Str("from", *from).Str("to", *to).Int("hops", *maxHops).Msg("No route")
		os.Exit(1)
	}

	b, err := sonic.ConfigStd.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode result")
	}
	fmt.Println(string(b))
}

func loadMarkets(fetch bool, seedPath, dbPath string) ([]domain.Market, error) {
	switch {
	case fetch:
		cfg := &config.RefdataConfig{}
		if err := cfg.Load(); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		log.Info().Str("url", cfg.URL).Msg("Fetching markets from subgraph")
		return subgraph.NewClient(cfg, nil).FetchMarkets(ctx, cfg.MinimumReserveUSD, cfg.MinimumTimestamp)

	case seedPath != "":
		return persistence.LoadSeedFile(seedPath)

	default:
		store, err := persistence.NewStorage(dbPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		markets, meta, err := store.LoadSnapshot()
		if err != nil {
			return nil, err
		}
		log.Info().Int("markets", len(markets)).Time("saved_at", meta.SavedAt).Msg("Loaded persisted snapshot")
		return markets, nil
	}
}
