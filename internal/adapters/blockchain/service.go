package blockchain

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/pair-router/internal/config"
)

const CHAIN_SERVICE = "blockchain.Chain"

// ChainService owns the JSON-RPC connection. Without RPC_URL it stays disabled and both
// Reserves and Watcher return nil.
type ChainService struct {
	container.BaseDIInstance

	conf    *config.RPCConfig
	client  *ethclient.Client
	reader  *ReserveReader
	watcher *BlockWatcher

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (svc *ChainService) ID() string {
	return CHAIN_SERVICE
}

func (svc *ChainService) Configure(c container.IContainer) error {
	svc.conf = c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	if !svc.conf.Enabled() {
		log.Warn().Msg("[ChainService] RPC_URL not set, on-chain reads and block triggers disabled")
		return nil
	}

	client, err := ethclient.Dial(svc.conf.RPCUrl)
	if err != nil {
		return err
	}
	svc.client = client
	svc.reader = NewReserveReader(client)
	svc.watcher = NewBlockWatcher(client, time.Duration(svc.conf.BlockPollInterval)*time.Second)
	return nil
}

func (svc *ChainService) Start() error {
	if svc.watcher == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc.cancel = cancel
	svc.wg.Add(1)
	go func() {
		defer svc.wg.Done()
		svc.watcher.Run(ctx)
	}()
	log.Info().Int("poll_interval_sec", svc.conf.BlockPollInterval).Msg("[ChainService] block watcher started")
	return nil
}

func (svc *ChainService) Stop() error {
	if svc.cancel != nil {
		svc.cancel()
		svc.wg.Wait()
	}
	if svc.client != nil {
		svc.client.Close()
	}
	return nil
}

func (svc *ChainService) Reserves() *ReserveReader {
	return svc.reader
}

func (svc *ChainService) Watcher() *BlockWatcher {
	return svc.watcher
}
