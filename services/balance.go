package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"bnpl-checkout/logger"
)

// PortfolioFetcher returns the raw portfolio payload for wallet addresses.
type PortfolioFetcher interface {
	FetchPortfolio(ctx context.Context, addresses []string) (json.RawMessage, error)
}

// Balance is a wallet's USD valuation.
type Balance struct {
	EthUSD   decimal.Decimal `json:"ethUsd"`
	USDCUSD  decimal.Decimal `json:"usdcUsd"`
	TotalUSD decimal.Decimal `json:"totalUsd"`
}

// BalanceService looks up wallet balances. Results are cached per address and
// concurrent lookups for the same address share one upstream call.
type BalanceService struct {
	portfolio PortfolioFetcher
	cache     *cache.Cache
	ttl       time.Duration
	inflight  singleflight.Group
}

func NewBalanceService(p PortfolioFetcher, ttl time.Duration) *BalanceService {
	return &BalanceService{
		portfolio: p,
		cache:     cache.New(ttl, 2*ttl),
		ttl:       ttl,
	}
}

// FetchUSDBalance never fails: an upstream error yields a zero balance.
func (s *BalanceService) FetchUSDBalance(ctx context.Context, address string) Balance {
	key := strings.ToLower(address)
	if v, ok := s.cache.Get(key); ok {
		return v.(Balance)
	}

	v, _, _ := s.inflight.Do(key, func() (any, error) {
		raw, err := s.portfolio.FetchPortfolio(ctx, []string{address})
		if err != nil {
			logger.FromContext(ctx).Warn("Portfolio lookup failed", "address", address, "error", err)
			return Balance{}, nil
		}
		b := Balance{TotalUSD: parsePortfolio(raw, key)}
		s.cache.Set(key, b, s.ttl)
		return b, nil
	})
	return v.(Balance)
}

type portfolioEntry struct {
	WalletAddress string          `json:"walletAddress"`
	TokensBalance decimal.Decimal `json:"tokensBalance"`
}

// parsePortfolio reads tokensBalance for the matching wallet, falling back to
// the older {total_usd_value} shape.
func parsePortfolio(raw json.RawMessage, lowerAddress string) decimal.Decimal {
	var entries []portfolioEntry
	if err := json.Unmarshal(raw, &entries); err == nil {
		for _, e := range entries {
			if strings.ToLower(e.WalletAddress) == lowerAddress {
				return e.TokensBalance
			}
		}
		return decimal.Zero
	}
	var legacy struct {
		TotalUSDValue decimal.Decimal `json:"total_usd_value"`
	}
	if err := json.Unmarshal(raw, &legacy); err == nil {
		return legacy.TotalUSDValue
	}
	return decimal.Zero
}
