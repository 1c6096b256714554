package poller

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cfgTypes "github.com/lumelink/lumelink/config/types"
)

var operatorAddr = common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")

type ethClientMock struct {
	mock.Mock
}

func (m *ethClientMock) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Log), args.Error(1)
}

func (m *ethClientMock) SubscribeFilterLogs(
	ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log,
) (ethereum.Subscription, error) {
	args := m.Called(ctx, q, ch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ethereum.Subscription), args.Error(1)
}

func (m *ethClientMock) BlockNumber(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func testConfig() Config {
	return Config{
		PollInterval:               cfgTypes.NewDuration(20 * time.Millisecond),
		BlockChunkSize:             100,
		RetryAfterErrorPeriod:      cfgTypes.NewDuration(10 * time.Millisecond),
		MaxRetryAttemptsAfterError: 3,
	}
}

func bridgedLog(t *testing.T, block uint64, cid string, account common.Address, amount *big.Int) types.Log {
	t.Helper()
	data, err := bridgedEventArgs.Pack(amount, cid)
	require.NoError(t, err)
	return types.Log{
		Address:     operatorAddr,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
		Topics: []common.Hash{
			bridgedEventSignature,
			common.BytesToHash(account.Bytes()),
		},
		Data: data,
	}
}

func TestFindMatchesCaseInsensitive(t *testing.T) {
	client := &ethClientMock{}
	account := common.HexToAddress("0xfa3b44587990f97ba8b6ba7e230a5f0e95d14b3d")
	decoy := bridgedLog(t, 12, "deadbeef", account, big.NewInt(5))
	match := bridgedLog(t, 14, "abc123", account, big.NewInt(7))

	client.On("BlockNumber", mock.Anything).Return(uint64(20), nil)
	client.On("FilterLogs", mock.Anything, mock.Anything).
		Return([]types.Log{decoy, match}, nil)

	p := New(client, operatorAddr, DefaultDecoders(), testConfig())
	// submitter reported the id upper case, event carries it lower case
	ev, err := p.Find(context.Background(), 1, "ABC123", time.Now().Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, "abc123", ev.CorrelationID)
	require.Equal(t, uint64(14), ev.BlockPosition)
	require.Equal(t, account, ev.Account)
	require.Equal(t, int64(7), ev.Amount.Int64())
}

func TestFindNeverMatchesDecoys(t *testing.T) {
	client := &ethClientMock{}
	account := common.HexToAddress("0xfa3b44587990f97ba8b6ba7e230a5f0e95d14b3d")
	// adversarial: same event shape, same account, wrong correlation ids
	decoys := []types.Log{
		bridgedLog(t, 5, "abc12", account, big.NewInt(1)),
		bridgedLog(t, 6, "abc1234", account, big.NewInt(1)),
		bridgedLog(t, 7, "xyz", account, big.NewInt(1)),
	}
	client.On("BlockNumber", mock.Anything).Return(uint64(10), nil)
	client.On("FilterLogs", mock.Anything, mock.Anything).Return(decoys, nil)

	p := New(client, operatorAddr, DefaultDecoders(), testConfig())
	_, err := p.Find(context.Background(), 1, "abc123", time.Now().Add(150*time.Millisecond))
	require.ErrorIs(t, err, ErrExhausted)
}

func TestFindStalledHeadTimesOut(t *testing.T) {
	client := &ethClientMock{}
	// head never reaches the starting position: no queries, only waiting
	client.On("BlockNumber", mock.Anything).Return(uint64(5), nil)

	p := New(client, operatorAddr, DefaultDecoders(), testConfig())
	deadline := time.Now().Add(150 * time.Millisecond)
	start := time.Now()
	_, err := p.Find(context.Background(), 6, "abc123", deadline)
	require.ErrorIs(t, err, ErrExhausted)
	// never hangs past the deadline by more than one polling interval (plus slack)
	require.Less(t, time.Since(start), 150*time.Millisecond+3*20*time.Millisecond)
	client.AssertNotCalled(t, "FilterLogs", mock.Anything, mock.Anything)
}

func TestFindCancelledWhileSuspended(t *testing.T) {
	client := &ethClientMock{}
	client.On("BlockNumber", mock.Anything).Return(uint64(5), nil)

	cfg := testConfig()
	cfg.PollInterval = cfgTypes.NewDuration(5 * time.Second) // park for a long time
	p := New(client, operatorAddr, DefaultDecoders(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := p.Find(ctx, 6, "abc123", time.Now().Add(time.Hour))
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
	client.AssertNotCalled(t, "FilterLogs", mock.Anything, mock.Anything)
}

func TestFindWindowsOnlyMoveForward(t *testing.T) {
	client := &ethClientMock{}
	client.On("BlockNumber", mock.Anything).Return(uint64(25), nil).Times(3)
	client.On("BlockNumber", mock.Anything).Return(uint64(40), nil)

	var (
		mu      sync.Mutex
		queries [][2]uint64
	)
	client.On("FilterLogs", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			q := args.Get(1).(ethereum.FilterQuery)
			mu.Lock()
			queries = append(queries, [2]uint64{q.FromBlock.Uint64(), q.ToBlock.Uint64()})
			mu.Unlock()
		}).
		Return([]types.Log{}, nil)

	cfg := testConfig()
	cfg.BlockChunkSize = 10
	p := New(client, operatorAddr, DefaultDecoders(), cfg)
	_, err := p.Find(context.Background(), 1, "abc123", time.Now().Add(200*time.Millisecond))
	require.ErrorIs(t, err, ErrExhausted)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, queries)
	for i, q := range queries {
		require.LessOrEqual(t, q[0], q[1], "fromBlock > toBlock in query %d", i)
		if i > 0 {
			// strictly after the previous window: no position rescanned
			require.Equal(t, queries[i-1][1]+1, q[0], "query %d rescans positions", i)
		}
	}
}

func TestFindPacesCatchUpQueries(t *testing.T) {
	client := &ethClientMock{}
	// deep backlog: 20 chunks behind head
	client.On("BlockNumber", mock.Anything).Return(uint64(100), nil)

	var (
		mu      sync.Mutex
		queried int
	)
	client.On("FilterLogs", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			mu.Lock()
			queried++
			mu.Unlock()
		}).
		Return([]types.Log{}, nil)

	cfg := testConfig()
	cfg.PollInterval = cfgTypes.NewDuration(30 * time.Millisecond)
	cfg.BlockChunkSize = 5
	p := New(client, operatorAddr, DefaultDecoders(), cfg)
	_, err := p.Find(context.Background(), 1, "abc123", time.Now().Add(100*time.Millisecond))
	require.ErrorIs(t, err, ErrExhausted)

	mu.Lock()
	defer mu.Unlock()
	// query rate bounded by the poll interval: one leading query plus one per
	// elapsed interval, never one per pending chunk
	require.LessOrEqual(t, queried, 6)
	require.Positive(t, queried)
}

func TestFindHeadErrorGivesUpAfterRetries(t *testing.T) {
	client := &ethClientMock{}
	client.On("BlockNumber", mock.Anything).Return(uint64(0), ethereum.NotFound)

	p := New(client, operatorAddr, DefaultDecoders(), testConfig())
	_, err := p.Find(context.Background(), 1, "abc123", time.Now().Add(time.Hour))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrExhausted)
}
