package activities

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"bnpl-checkout/resume"
	"bnpl-checkout/services"
	"bnpl-checkout/shared"
)

// RedirectResult is the partner URL plus the request it was built for.
type RedirectResult struct {
	URL     string                     `json:"url"`
	Request shared.VerificationRequest `json:"request"`
}

// CreateVerificationURL prepares a partner verification request and builds
// the URL the shopper is sent to. The redirect-back URL carries a signed
// resume token bound to the workflow and request id.
// Idempotency: pure; the request id comes from the workflow.
func (a *Activities) CreateVerificationURL(ctx context.Context, req shared.RedirectRequest) (RedirectResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Creating verification redirect",
		"workflowId", req.WorkflowID,
		"requestId", req.Request.RequestID,
		"source", req.Request.Source,
	)

	prepared := a.Launcher.Prepare(ctx, req.Request.RequestID, req.Request.Source)

	token, err := a.Signer.Issue(req.WorkflowID, prepared.RequestID, prepared.Source, a.ResumeTTL)
	if err != nil {
		logger.Error("Failed to sign resume token", "error", err)
		return RedirectResult{}, temporal.NewNonRetryableApplicationError(
			"verification is unavailable right now",
			shared.ErrTypeCollaboratorRejected,
			err,
		)
	}

	startURL, err := a.Launcher.StartURL(prepared, req.UserID, resume.ReturnURL(req.ReturnBaseURL, req.SessionID, token))
	if err != nil {
		logger.Error("Failed to build verification url", "error", err)
		return RedirectResult{}, temporal.NewNonRetryableApplicationError(
			"verification is unavailable right now",
			shared.ErrTypeCollaboratorRejected,
			err,
		)
	}

	logger.Info("Verification redirect ready", "requestId", prepared.RequestID, "datasourceId", prepared.DatasourceID)
	return RedirectResult{URL: startURL, Request: prepared}, nil
}

// FetchVerificationResult polls the partner status endpoint once. An empty
// payload is not an error; the workflow keeps polling.
func (a *Activities) FetchVerificationResult(ctx context.Context, source shared.Source, userID string) (shared.VerificationStatus, error) {
	logger := activity.GetLogger(ctx)
	logger.Debug("Polling verification status", "source", source, "userId", userID)

	raw, hasData, err := a.Backend.FetchVerificationStatus(ctx, source, userID)
	if err != nil {
		if errors.Is(err, services.ErrNotConfigured) {
			return shared.VerificationStatus{}, temporal.NewNonRetryableApplicationError(
				"verification backend is not configured",
				shared.ErrTypeCollaboratorRejected,
				err,
			)
		}
		return shared.VerificationStatus{}, fmt.Errorf("fetch verification status: %w", err)
	}
	if !hasData {
		return shared.VerificationStatus{}, nil
	}

	logger.Info("Verification data received", "source", source, "userId", userID)
	return shared.VerificationStatus{
		HasData: true,
		Details: services.ExtractDetails(raw, source),
		Raw:     raw,
	}, nil
}

// FetchIdentityScanToken issues an access token for the passport scan widget.
func (a *Activities) FetchIdentityScanToken(ctx context.Context) (string, error) {
	logger := activity.GetLogger(ctx)

	token, err := a.Backend.FetchScanAccessToken(ctx)
	if err != nil {
		logger.Error("Failed to fetch passport scan token", "error", err)
		return "", rejectOr(err, "passport scan is unavailable right now")
	}
	return token, nil
}

// rejectOr turns configuration and 4xx failures into non-retryable errors;
// anything else is returned for Temporal to retry.
func rejectOr(err error, msg string) error {
	var se *services.StatusError
	if errors.Is(err, services.ErrNotConfigured) || (errors.As(err, &se) && se.Code >= 400 && se.Code < 500) {
		return temporal.NewNonRetryableApplicationError(msg, shared.ErrTypeCollaboratorRejected, err)
	}
	return err
}
