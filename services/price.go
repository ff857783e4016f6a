package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"bnpl-checkout/logger"
)

// PriceMap maps a symbol to its USD spot price.
type PriceMap map[string]decimal.Decimal

const (
	priceLimitCalls  = 20
	priceLimitWindow = 60 * time.Second
	priceMaxRetries  = 2
	pricesKey        = "prices"
)

// FallbackPrices is served when no price has ever been fetched.
func FallbackPrices() PriceMap {
	return PriceMap{"ETH": decimal.Zero, "USDC": decimal.NewFromInt(1)}
}

// PriceService fetches the ETH/USD spot price. Calls are rate limited and
// retried with exponential backoff on 429 only.
type PriceService struct {
	url        string
	httpClient *http.Client
	cache      *cache.Cache
	ttl        time.Duration
	limiter    *rate.Limiter
	inflight   singleflight.Group
	baseDelay  time.Duration

	mu   sync.Mutex
	last PriceMap
}

func NewPriceService(spotURL string, ttl time.Duration, httpClient *http.Client) *PriceService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &PriceService{
		url:        spotURL,
		httpClient: httpClient,
		cache:      cache.New(ttl, 2*ttl),
		ttl:        ttl,
		// Burst 1 spaces calls evenly, so any 60s window sees at most 20.
		limiter:   rate.NewLimiter(rate.Every(priceLimitWindow/priceLimitCalls), 1),
		baseDelay: 500 * time.Millisecond,
	}
}

// FetchUSDPrices never fails: on error it serves the last good prices or the
// fallback map.
func (s *PriceService) FetchUSDPrices(ctx context.Context) PriceMap {
	if v, ok := s.cache.Get(pricesKey); ok {
		return v.(PriceMap)
	}

	v, _, _ := s.inflight.Do(pricesKey, func() (any, error) {
		prices, err := s.fetchWithRetry(ctx)
		if err != nil {
			logger.FromContext(ctx).Warn("Spot price lookup failed", "error", err)
			return s.lastOrFallback(), nil
		}
		s.cache.Set(pricesKey, prices, s.ttl)
		s.mu.Lock()
		s.last = prices
		s.mu.Unlock()
		return prices, nil
	})
	return v.(PriceMap)
}

func (s *PriceService) lastOrFallback() PriceMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil {
		return s.last
	}
	return FallbackPrices()
}

func (s *PriceService) fetchWithRetry(ctx context.Context) (PriceMap, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0.2

	var prices PriceMap
	op := func() error {
		p, err := s.fetchOnce(ctx)
		if err != nil {
			if IsStatus(err, http.StatusTooManyRequests) {
				return err
			}
			return backoff.Permanent(err)
		}
		prices = p
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, priceMaxRetries), ctx)); err != nil {
		return nil, err
	}
	return prices, nil
}

func (s *PriceService) fetchOnce(ctx context.Context) (PriceMap, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spot price: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Method: http.MethodGet, URL: s.url, Code: resp.StatusCode}
	}

	var body struct {
		Data struct {
			Amount decimal.Decimal `json:"amount"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode spot price: %w", err)
	}
	return PriceMap{"ETH": body.Data.Amount, "USDC": decimal.NewFromInt(1)}, nil
}
