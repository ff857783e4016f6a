package activities

import (
	"context"

	"go.temporal.io/sdk/activity"
)

// CreateLinkToken asks the backend for a bank-link widget token.
func (a *Activities) CreateLinkToken(ctx context.Context) (string, error) {
	logger := activity.GetLogger(ctx)

	token, err := a.Backend.CreateLinkToken(ctx)
	if err != nil {
		logger.Error("Failed to create link token", "error", err)
		return "", rejectOr(err, "bank linking is unavailable right now")
	}
	logger.Info("Link token created")
	return token, nil
}

// ExchangePublicToken hands the widget's public token to the backend.
// Best effort: a failure is logged and the shopper still proceeds.
func (a *Activities) ExchangePublicToken(ctx context.Context, publicToken string) error {
	logger := activity.GetLogger(ctx)
	if publicToken == "" {
		logger.Warn("No public token to exchange")
		return nil
	}
	if err := a.Backend.SetAccessToken(ctx, publicToken); err != nil {
		logger.Error("Failed to exchange public token", "error", err)
		return nil
	}
	logger.Info("Public token exchanged")
	return nil
}
