package workflows

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"bnpl-checkout/activities"
	"bnpl-checkout/flow"
	"bnpl-checkout/shared"
)

// checkoutFlow holds workflow state: the view-state machine plus the
// bookkeeping that drives its timers.
type checkoutFlow struct {
	m *flow.Machine

	// epoch counts transitions; a step scheduled for an older epoch is stale.
	epoch      int
	scheduled  int
	stepCancel workflow.CancelFunc
	lastActive time.Time

	// Workflow context
	req      shared.CheckoutFlowRequest
	logger   log.Logger
	actCtx   workflow.Context
	pollCtx  workflow.Context
	authCh   workflow.ReceiveChannel
	resumeCh workflow.ReceiveChannel
	wake     workflow.Channel
}

// newCheckoutFlow initializes the workflow struct and registers the query and
// update handlers.
func newCheckoutFlow(ctx workflow.Context, req shared.CheckoutFlowRequest) (*checkoutFlow, error) {
	w := &checkoutFlow{
		m:          flow.NewMachine(req.TotalAmount),
		scheduled:  -1,
		lastActive: workflow.Now(ctx),
		req:        req,
		logger:     workflow.GetLogger(ctx),
		authCh:     workflow.GetSignalChannel(ctx, shared.SignalAuthenticated),
		resumeCh:   workflow.GetSignalChannel(ctx, shared.SignalResume),
		wake:       workflow.NewBufferedChannel(ctx, 1),
	}

	err := workflow.SetQueryHandler(ctx, shared.QueryCheckoutView, func() (shared.Snapshot, error) {
		return w.m.Snapshot(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set query handler: %w", err)
	}

	err = workflow.SetUpdateHandlerWithOptions(ctx, shared.UpdateCheckoutAction, w.handleAction,
		workflow.UpdateHandlerOptions{
			Validator: func(ctx workflow.Context, act shared.Action) error {
				return w.m.Can(act)
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set update handler: %w", err)
	}

	w.actCtx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		TaskQueue:           shared.ActivityTaskQueue,
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{shared.ErrTypeCollaboratorRejected},
		},
	})
	// The poll loop is its own retry.
	w.pollCtx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		TaskQueue:           shared.ActivityTaskQueue,
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	return w, nil
}

// touched records a transition. Shopper-driven transitions also reset the
// idle deadline.
func (w *checkoutFlow) touched(ctx workflow.Context, byShopper bool) {
	w.epoch++
	if byShopper {
		w.lastActive = workflow.Now(ctx)
	}
	w.wake.SendAsync(struct{}{})
}

// handleAction runs one shopper action. Actions that need a collaborator
// call it first, so a failed call leaves the view unchanged.
func (w *checkoutFlow) handleAction(ctx workflow.Context, act shared.Action) (shared.ActionResult, error) {
	w.logger.Info("Checkout action received", "sessionId", w.req.SessionID, "kind", act.Kind, "view", w.m.View().Name())

	var redirectURL string
	var err error

	switch act.Kind {
	case shared.ActionSelectBank, shared.ActionSelectCard, shared.ActionSelectExchange:
		redirectURL, err = w.selectSource(ctx, act)
	case shared.ActionPlaidLinked:
		if err = w.m.Can(act); err == nil {
			if exErr := workflow.ExecuteActivity(w.actCtx, a.ExchangePublicToken, act.PublicToken).Get(ctx, nil); exErr != nil {
				w.logger.Warn("Failed to exchange bank public token", "sessionId", w.req.SessionID, "error", exErr)
			}
			err = w.m.PlaidLinked()
		}
	case shared.ActionOpenPassportScan:
		var token string
		if err = workflow.ExecuteActivity(w.actCtx, a.FetchIdentityScanToken).Get(ctx, &token); err != nil {
			err = userFacing(err)
			break
		}
		err = w.m.OpenPassportScan(token)
	case shared.ActionConfirmPayment:
		var receipt shared.PaymentReceipt
		receipt, err = w.m.ConfirmPayment(act.PlanID, act.Method, act.TxHash)
		if err == nil {
			w.logger.Info("Payment confirmed", "sessionId", w.req.SessionID, "planId", receipt.PlanID, "txHash", receipt.TxHash)
		}
	default:
		err = w.m.Apply(act)
	}
	if err != nil {
		w.logger.Info("Checkout action rejected", "kind", act.Kind, "error", err)
		return shared.ActionResult{}, err
	}

	w.refreshBalances(ctx)
	w.touched(ctx, true)
	return shared.ActionResult{View: w.m.Snapshot(), RedirectURL: redirectURL}, nil
}

// selectSource handles the three search screens. A redirect source launches
// the partner flow; a US bank needs a link token before the widget opens.
func (w *checkoutFlow) selectSource(ctx workflow.Context, act shared.Action) (string, error) {
	if act.Kind == shared.ActionSelectBank && flow.IsUSBank(act.Name) {
		if err := w.m.Can(act); err != nil {
			return "", err
		}
		var token string
		if err := workflow.ExecuteActivity(w.actCtx, a.CreateLinkToken).Get(ctx, &token); err != nil {
			return "", userFacing(err)
		}
		if _, err := w.m.SelectBank(act.Name); err != nil {
			return "", err
		}
		return "", w.m.SetLinkToken(token)
	}

	var src shared.Source
	var err error
	switch act.Kind {
	case shared.ActionSelectBank:
		src, err = w.m.SelectBank(act.Name)
	case shared.ActionSelectCard:
		src, err = w.m.SelectCard(act.Name)
	default:
		src, err = w.m.SelectExchange(act.Name)
	}
	if err != nil || src == "" {
		return "", err
	}

	var requestID string
	encoded := workflow.SideEffect(ctx, func(ctx workflow.Context) interface{} {
		return uuid.NewString()
	})
	if err := encoded.Get(&requestID); err != nil {
		return "", fmt.Errorf("failed to generate request id: %w", err)
	}

	redirect := shared.RedirectRequest{
		WorkflowID:    workflow.GetInfo(ctx).WorkflowExecution.ID,
		SessionID:     w.req.SessionID,
		UserID:        w.m.UserID(),
		ReturnBaseURL: w.req.ReturnBaseURL,
		Request:       shared.VerificationRequest{RequestID: requestID, Source: src},
	}
	var res activities.RedirectResult
	if err := workflow.ExecuteActivity(w.actCtx, a.CreateVerificationURL, redirect).Get(ctx, &res); err != nil {
		w.logger.Error("Failed to create verification redirect", "source", src, "error", err)
		return "", userFacing(err)
	}
	if err := w.m.BeginRedirect(res.Request); err != nil {
		return "", err
	}

	w.logger.Info("Shopper leaving for partner verification", "source", src, "requestId", requestID)
	return res.URL, nil
}

// refreshBalances reloads wallet balances while a wallet screen is showing.
// Lookups never fail the action.
func (w *checkoutFlow) refreshBalances(ctx workflow.Context) {
	switch w.m.View().(type) {
	case flow.WalletsStep, flow.WalletVerifyDetails:
	default:
		return
	}
	var balances []shared.WalletBalance
	err := workflow.ExecuteActivity(w.actCtx, a.FetchWalletBalances, w.m.WalletAddresses()).Get(ctx, &balances)
	if err != nil {
		w.logger.Warn("Failed to refresh wallet balances", "error", err)
		return
	}
	w.m.SetWalletBalances(balances)
}

// stepDelay is how long the current view waits before its automatic step.
// The first verification poll runs immediately.
func (w *checkoutFlow) stepDelay() (time.Duration, bool) {
	switch v := w.m.View().(type) {
	case flow.VerificationLoading:
		return shared.VerificationLoadingDuration, true
	case flow.AllSet:
		return shared.AllSetDuration, true
	case flow.VouchVerification:
		if !v.Loading {
			return 0, false
		}
		if v.Attempts == 0 {
			return 0, true
		}
		return shared.VerificationPollInterval, true
	}
	return 0, false
}

// schedule cancels the previous view's step and arms the current one.
func (w *checkoutFlow) schedule(ctx workflow.Context) {
	w.scheduled = w.epoch
	if w.stepCancel != nil {
		w.stepCancel()
		w.stepCancel = nil
	}
	d, ok := w.stepDelay()
	if !ok {
		return
	}

	stepCtx, cancel := workflow.WithCancel(ctx)
	w.stepCancel = cancel
	epoch := w.epoch
	workflow.Go(stepCtx, func(ctx workflow.Context) {
		if d > 0 {
			if err := workflow.Sleep(ctx, d); err != nil {
				return
			}
		}
		if epoch != w.epoch {
			return
		}
		w.step(ctx, epoch)
	})
}

// step performs the automatic transition of the current view.
func (w *checkoutFlow) step(ctx workflow.Context, epoch int) {
	switch v := w.m.View().(type) {
	case flow.VerificationLoading:
		if err := w.m.VerificationLoadingDone(); err != nil {
			w.logger.Error("Verification loading step failed", "error", err)
			return
		}
	case flow.AllSet:
		if err := w.m.AllSetDone(); err != nil {
			w.logger.Error("All-set step failed", "error", err)
			return
		}
		w.quote(ctx)
	case flow.VouchVerification:
		var source shared.Source
		if v.Request != nil {
			source = v.Request.Source
		}
		var status shared.VerificationStatus
		err := workflow.ExecuteActivity(w.pollCtx, a.FetchVerificationResult, source, w.m.UserID()).Get(ctx, &status)
		if err != nil {
			w.logger.Warn("Verification poll failed", "attempt", v.Attempts+1, "error", err)
			status = shared.VerificationStatus{}
		}
		if epoch != w.epoch {
			return
		}
		more, err := w.m.RecordPollAttempt(status)
		if err != nil {
			w.logger.Error("Failed to record verification poll", "error", err)
			return
		}
		if !more && !status.HasData {
			w.logger.Info("Verification polling gave up", "sessionId", w.req.SessionID, "attempts", shared.VerificationPollMaxAttempts)
		}
	default:
		return
	}
	w.touched(ctx, false)
}

// quote attaches spot prices to the payment screen.
func (w *checkoutFlow) quote(ctx workflow.Context) {
	var q shared.PaymentQuote
	if err := workflow.ExecuteActivity(w.actCtx, a.QuotePayment).Get(ctx, &q); err != nil {
		w.logger.Warn("Failed to quote payment", "error", err)
		return
	}
	if err := w.m.SetQuote(q); err != nil {
		w.logger.Warn("Payment screen closed before quote arrived", "error", err)
	}
}

func (w *checkoutFlow) onAuthenticated(ctx workflow.Context, u shared.User) {
	if err := w.m.Authenticate(u); err != nil {
		w.logger.Warn("Ignoring authentication", "userId", u.ID, "error", err)
		return
	}
	w.logger.Info("Shopper authenticated", "sessionId", w.req.SessionID, "userId", u.ID, "view", w.m.View().Name())
	w.touched(ctx, true)
}

func (w *checkoutFlow) onResume(ctx workflow.Context, r shared.ResumeRequest) {
	if err := w.m.Resume(r); err != nil {
		w.logger.Warn("Ignoring resume", "requestId", r.RequestID, "error", err)
		return
	}
	w.logger.Info("Shopper returned from partner", "sessionId", w.req.SessionID, "requestId", r.RequestID, "view", w.m.View().Name())
	w.touched(ctx, true)
}

// CheckoutFlowWorkflow drives one shopper session from sign-in to the first
// installment payment.
//
// Timeline:
//
//	sign-in → options → (wallet | bank | card | exchange branch)
//	        → identity details → data sources → all set → payment
//
// Actions arrive through the checkout action update and are validated
// against the view-state machine before they are accepted. The auth provider
// and redirect returns arrive as signals. The workflow owns the verification
// poll loop and the animation timers, and completes when the first
// installment is paid or after a day without shopper activity.
func CheckoutFlowWorkflow(ctx workflow.Context, req shared.CheckoutFlowRequest) (string, error) {
	w, err := newCheckoutFlow(ctx, req)
	if err != nil {
		return "", err
	}

	w.logger.Info("Checkout flow started",
		"sessionId", req.SessionID,
		"cartId", req.CartID,
		"total", req.TotalAmount.StringFixed(2),
	)

	for {
		if w.scheduled != w.epoch {
			w.schedule(ctx)
		}
		if w.m.Receipt() != nil {
			return w.complete(ctx, "PAID")
		}
		idle := w.lastActive.Add(shared.SessionIdleTimeout).Sub(workflow.Now(ctx))
		if idle <= 0 {
			w.logger.Info("Checkout session expired", "sessionId", req.SessionID, "view", w.m.View().Name())
			return w.complete(ctx, "EXPIRED")
		}

		timerCtx, timerCancel := workflow.WithCancel(ctx)
		selector := workflow.NewSelector(ctx)
		selector.AddFuture(workflow.NewTimer(timerCtx, idle), func(f workflow.Future) {
			_ = f.Get(ctx, nil)
		})
		selector.AddReceive(w.authCh, func(ch workflow.ReceiveChannel, more bool) {
			var u shared.User
			ch.Receive(ctx, &u)
			w.onAuthenticated(ctx, u)
		})
		selector.AddReceive(w.resumeCh, func(ch workflow.ReceiveChannel, more bool) {
			var r shared.ResumeRequest
			ch.Receive(ctx, &r)
			w.onResume(ctx, r)
		})
		selector.AddReceive(w.wake, func(ch workflow.ReceiveChannel, more bool) {
			ch.Receive(ctx, nil)
		})
		selector.Select(ctx)
		timerCancel()
	}
}

// complete stops the step timers and waits for in-flight actions before
// returning the outcome.
func (w *checkoutFlow) complete(ctx workflow.Context, outcome string) (string, error) {
	if w.stepCancel != nil {
		w.stepCancel()
	}
	if err := workflow.Await(ctx, func() bool { return workflow.AllHandlersFinished(ctx) }); err != nil {
		return "", err
	}
	return fmt.Sprintf("CHECKOUT-%s-%s", w.req.SessionID, outcome), nil
}

// userFacing strips activity wrapping so the shopper sees the collaborator's
// message.
func userFacing(err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return temporal.NewApplicationError(appErr.Message(), shared.ErrTypeCollaboratorRejected)
	}
	return err
}
