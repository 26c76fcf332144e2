package blockchain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/pair-router/internal/domain"
)

type fakeCaller struct {
	out []byte
	err error
	msg ethereum.CallMsg
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.msg = msg
	return f.out, f.err
}

func encodeReserves(t *testing.T, r0, r1 *big.Int, ts uint32) []byte {
	t.Helper()
	out, err := PairABI.Methods["getReserves"].Outputs.Pack(r0, r1, ts)
	require.NoError(t, err)
	return out
}

func TestFetchReserves(t *testing.T) {
	r0, _ := new(big.Int).SetString("10000000000000000000", 10)
	r1, _ := new(big.Int).SetString("20000000000000000000000", 10)
	caller := &fakeCaller{out: encodeReserves(t, r0, r1, 1700000000)}

	reader := NewReserveReader(caller)
	res, err := reader.FetchReserves(context.Background(), "0xA478c2975Ab1Ea89e8196811F51A7B7Ade33eB11")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Reserve0.Cmp(r0))
	assert.Equal(t, 0, res.Reserve1.Cmp(r1))
	assert.Equal(t, uint32(1700000000), res.BlockTimestampLast)
	assert.Equal(t, "0x0902f1ac", hexutil.Encode(caller.msg.Data))
	require.NotNil(t, caller.msg.To)

	m := &domain.Market{
		Token0: domain.Token{Decimals: 18},
		Token1: domain.Token{Decimals: 18},
	}
	s0, s1 := res.Scaled(m)
	assert.True(t, s0.Equal(decimal.NewFromInt(10)))
	assert.True(t, s1.Equal(decimal.NewFromInt(20000)))
}

func TestFetchReservesErrors(t *testing.T) {
	reader := NewReserveReader(&fakeCaller{out: []byte{1, 2, 3}})
	_, err := reader.FetchReserves(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = reader.FetchReserves(context.Background(), "0xA478c2975Ab1Ea89e8196811F51A7B7Ade33eB11")
	assert.ErrorIs(t, err, ErrMalformedReserve)

	// a timestamp word that does not fit uint32
	bad := encodeReserves(t, big.NewInt(1), big.NewInt(2), 0)
	copy(bad[64:96], math.U256Bytes(new(big.Int).Lsh(big.NewInt(1), 40)))
	reader = NewReserveReader(&fakeCaller{out: bad})
	_, err = reader.FetchReserves(context.Background(), "0xA478c2975Ab1Ea89e8196811F51A7B7Ade33eB11")
	assert.ErrorIs(t, err, ErrMalformedReserve)

	boom := errors.New("execution reverted")
	reader = NewReserveReader(&fakeCaller{err: boom})
	_, err = reader.FetchReserves(context.Background(), "0xA478c2975Ab1Ea89e8196811F51A7B7Ade33eB11")
	assert.ErrorIs(t, err, boom)
}

type fakeHead struct {
	mu     sync.Mutex
	blocks []uint64
}

func (f *fakeHead) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.blocks) == 0 {
		return 0, errors.New("no more blocks")
	}
	b := f.blocks[0]
	f.blocks = f.blocks[1:]
	return b, nil
}

func TestBlockWatcherNotifiesOncePerNewBlock(t *testing.T) {
	head := &fakeHead{blocks: []uint64{100, 100, 101, 99, 103}}
	w := NewBlockWatcher(head, time.Hour)

	var seen []uint64
	w.Subscribe(func(block uint64) { seen = append(seen, block) })

	for i := 0; i < 6; i++ {
		w.poll(context.Background())
	}
	assert.Equal(t, []uint64{100, 101, 103}, seen)
	assert.Equal(t, uint64(103), w.LastBlock())
}

func TestBlockWatcherRunStopsOnCancel(t *testing.T) {
	w := NewBlockWatcher(&fakeHead{blocks: []uint64{1}}, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
