package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type fakePortfolio struct {
	calls   atomic.Int32
	payload string
	err     error
	release chan struct{}
}

func (f *fakePortfolio) FetchPortfolio(ctx context.Context, addresses []string) (json.RawMessage, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.payload), nil
}

func TestBalance_CachesWithinTTL(t *testing.T) {
	f := &fakePortfolio{payload: `[{"walletAddress":"0xABC","tokensBalance":12.5}]`}
	s := NewBalanceService(f, 30*time.Second)

	b := s.FetchUSDBalance(context.Background(), "0xabc")
	assert.True(t, b.TotalUSD.Equal(decimal.RequireFromString("12.5")))

	b = s.FetchUSDBalance(context.Background(), "0xABC")
	assert.True(t, b.TotalUSD.Equal(decimal.RequireFromString("12.5")))
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestBalance_DeduplicatesConcurrentCalls(t *testing.T) {
	f := &fakePortfolio{payload: `[{"walletAddress":"0xabc","tokensBalance":3}]`, release: make(chan struct{})}
	s := NewBalanceService(f, 30*time.Second)

	var wg sync.WaitGroup
	results := make([]Balance, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.FetchUSDBalance(context.Background(), "0xabc")
		}(i)
	}
	assert.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.release)
	wg.Wait()

	assert.EqualValues(t, 1, f.calls.Load())
	for _, r := range results {
		assert.True(t, r.TotalUSD.Equal(decimal.NewFromInt(3)))
	}
}

func TestBalance_UpstreamFailureIsZeroAndNotCached(t *testing.T) {
	f := &fakePortfolio{err: errors.New("boom")}
	s := NewBalanceService(f, 30*time.Second)

	assert.True(t, s.FetchUSDBalance(context.Background(), "0xabc").TotalUSD.IsZero())
	assert.True(t, s.FetchUSDBalance(context.Background(), "0xabc").TotalUSD.IsZero())
	assert.EqualValues(t, 2, f.calls.Load())
}

func TestParsePortfolio(t *testing.T) {
	assert.True(t, parsePortfolio(json.RawMessage(`{"total_usd_value": 41.2}`), "0xabc").Equal(decimal.RequireFromString("41.2")))
	assert.True(t, parsePortfolio(json.RawMessage(`[{"walletAddress":"0xdef","tokensBalance":9}]`), "0xabc").IsZero())
	assert.True(t, parsePortfolio(json.RawMessage(`"nope"`), "0xabc").IsZero())
}
