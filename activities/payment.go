package activities

import (
	"context"
	"maps"

	"go.temporal.io/sdk/activity"

	"bnpl-checkout/shared"
)

// QuotePayment attaches spot prices to the payment screen. The price service
// never fails, so neither does this activity.
func (a *Activities) QuotePayment(ctx context.Context) (shared.PaymentQuote, error) {
	prices := a.Prices.FetchUSDPrices(ctx)
	activity.GetLogger(ctx).Info("Payment quote ready", "symbols", len(prices))
	return shared.PaymentQuote{Prices: maps.Clone(prices)}, nil
}

// FetchWalletBalances looks up the USD balance of each address. Lookup
// failures yield zero balances, which keeps the funded-wallet guard closed.
func (a *Activities) FetchWalletBalances(ctx context.Context, addresses []string) ([]shared.WalletBalance, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Fetching wallet balances", "wallets", len(addresses))

	out := make([]shared.WalletBalance, 0, len(addresses))
	for _, addr := range addresses {
		b := a.Balances.FetchUSDBalance(ctx, addr)
		out = append(out, shared.WalletBalance{Address: addr, TotalUSD: b.TotalUSD})
	}
	return out, nil
}
