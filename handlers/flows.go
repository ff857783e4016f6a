package handlers

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"bnpl-checkout/shared"
	"bnpl-checkout/workflows"
)

var ErrSessionNotFound = errors.New("checkout session not found")

// RejectedError is an action the checkout flow refused, with the message
// the shopper should see.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string { return e.Message }

// Flows drives the per-session checkout workflows.
type Flows interface {
	Start(ctx context.Context, req shared.CheckoutFlowRequest) (started bool, err error)
	View(ctx context.Context, sessionID string) (shared.Snapshot, error)
	Act(ctx context.Context, sessionID string, act shared.Action) (shared.ActionResult, error)
	Authenticate(ctx context.Context, sessionID string, u shared.User) error
	Resume(ctx context.Context, sessionID string, r shared.ResumeRequest) error
}

// TemporalFlows implements Flows with a Temporal client.
type TemporalFlows struct {
	client client.Client
}

func NewTemporalFlows(c client.Client) *TemporalFlows {
	return &TemporalFlows{client: c}
}

// Start launches the session's workflow. It reports false when the session
// already has a running flow.
func (f *TemporalFlows) Start(ctx context.Context, req shared.CheckoutFlowRequest) (bool, error) {
	opts := client.StartWorkflowOptions{
		ID:        shared.CheckoutWorkflowID(req.SessionID),
		TaskQueue: shared.CheckoutFlowTaskQueue,
	}
	_, err := f.client.ExecuteWorkflow(ctx, opts, workflows.CheckoutFlowWorkflow, req)
	if err != nil {
		if temporal.IsWorkflowExecutionAlreadyStartedError(err) {
			return false, nil
		}
		return false, fmt.Errorf("start checkout flow: %w", err)
	}
	return true, nil
}

func (f *TemporalFlows) View(ctx context.Context, sessionID string) (shared.Snapshot, error) {
	resp, err := f.client.QueryWorkflow(ctx, shared.CheckoutWorkflowID(sessionID), "", shared.QueryCheckoutView)
	if err != nil {
		return shared.Snapshot{}, translate(err)
	}
	var s shared.Snapshot
	if err := resp.Get(&s); err != nil {
		return shared.Snapshot{}, fmt.Errorf("decode checkout view: %w", err)
	}
	return s, nil
}

func (f *TemporalFlows) Act(ctx context.Context, sessionID string, act shared.Action) (shared.ActionResult, error) {
	handle, err := f.client.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   shared.CheckoutWorkflowID(sessionID),
		UpdateName:   shared.UpdateCheckoutAction,
		Args:         []interface{}{act},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		return shared.ActionResult{}, translate(err)
	}
	var res shared.ActionResult
	if err := handle.Get(ctx, &res); err != nil {
		return shared.ActionResult{}, translate(err)
	}
	return res, nil
}

func (f *TemporalFlows) Authenticate(ctx context.Context, sessionID string, u shared.User) error {
	return translate(f.client.SignalWorkflow(ctx, shared.CheckoutWorkflowID(sessionID), "", shared.SignalAuthenticated, u))
}

func (f *TemporalFlows) Resume(ctx context.Context, sessionID string, r shared.ResumeRequest) error {
	return translate(f.client.SignalWorkflow(ctx, shared.CheckoutWorkflowID(sessionID), "", shared.SignalResume, r))
}

// translate maps Temporal errors onto the handler's error kinds.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		return ErrSessionNotFound
	}
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return &RejectedError{Message: appErr.Message()}
	}
	return err
}
