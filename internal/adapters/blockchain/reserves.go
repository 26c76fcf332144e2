package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/pair-router/internal/domain"
)

const pairABIJSON = `[{"constant":true,"inputs":[],"name":"getReserves","outputs":[` +
	`{"name":"reserve0","type":"uint112"},` +
	`{"name":"reserve1","type":"uint112"},` +
	`{"name":"blockTimestampLast","type":"uint32"}],` +
	`"payable":false,"stateMutability":"view","type":"function"}]`

var (
	ErrInvalidAddress   = errors.New("invalid pair address")
	ErrMalformedReserve = errors.New("malformed getReserves response")

	// PairABI is the UniswapV2Pair subset used for eth_call.
	PairABI = mustParseABI(pairABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("blockchain: parse pair abi: %v", err))
	}
	return parsed
}

// ContractCaller is the subset of ethclient.Client used for eth_call.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// PairReserves is the raw getReserves() result of a V2 pair.
type PairReserves struct {
	Reserve0           *big.Int
	Reserve1           *big.Int
	BlockTimestampLast uint32
}

// Scaled converts raw reserves into decimal units using the market's token decimals.
func (r *PairReserves) Scaled(m *domain.Market) (decimal.Decimal, decimal.Decimal) {
	return decimal.NewFromBigInt(r.Reserve0, -int32(m.Token0.Decimals)),
		decimal.NewFromBigInt(r.Reserve1, -int32(m.Token1.Decimals))
}

type ReserveReader struct {
	caller  ContractCaller
	timeout time.Duration
}

func NewReserveReader(caller ContractCaller) *ReserveReader {
	return &ReserveReader{caller: caller, timeout: 10 * time.Second}
}

// FetchReserves calls getReserves() on a pair at the latest block.
func (r *ReserveReader) FetchReserves(ctx context.Context, pair string) (*PairReserves, error) {
	if !ethcommon.IsHexAddress(pair) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, pair)
	}
	to := ethcommon.HexToAddress(pair)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := PairABI.Pack("getReserves")
	if err != nil {
		return nil, err
	}
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("getReserves %s: %w", pair, err)
	}

	var res PairReserves
	if err := PairABI.UnpackIntoInterface(&res, "getReserves", out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedReserve, err)
	}
	return &res, nil
}
