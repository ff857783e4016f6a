package workflows_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"bnpl-checkout/activities"
	"bnpl-checkout/flow"
	"bnpl-checkout/shared"
	"bnpl-checkout/workflows"
)

const testUserID = "did:privy:1"

func defaultCheckoutRequest() shared.CheckoutFlowRequest {
	return shared.CheckoutFlowRequest{
		SessionID:     "sess-1",
		CartID:        "cart-1",
		TotalAmount:   decimal.RequireFromString("599.98"),
		ReturnBaseURL: "http://localhost:8080",
	}
}

func registerMockActivities(env *testsuite.TestWorkflowEnvironment) *activities.Activities {
	a := &activities.Activities{}
	env.RegisterActivity(a)
	return a
}

// sendAction schedules an update that is expected to be accepted and to
// complete without error.
func sendAction(t *testing.T, env *testsuite.TestWorkflowEnvironment, at time.Duration, act shared.Action) {
	t.Helper()
	env.RegisterDelayedCallback(func() {
		env.UpdateWorkflow(shared.UpdateCheckoutAction, act.Kind+"-"+at.String(), &testsuite.TestUpdateCallback{
			OnAccept: func() {},
			OnReject: func(err error) {
				assert.Fail(t, "action rejected", "%s: %v", act.Kind, err)
			},
			OnComplete: func(_ interface{}, err error) {
				assert.NoError(t, err, act.Kind)
			},
		}, act)
	}, at)
}

// sendRejected schedules an update that the validator must reject. The
// returned flag is set once the rejection is observed.
func sendRejected(t *testing.T, env *testsuite.TestWorkflowEnvironment, at time.Duration, act shared.Action, wantMsg string) *bool {
	t.Helper()
	rejected := new(bool)
	env.RegisterDelayedCallback(func() {
		env.UpdateWorkflow(shared.UpdateCheckoutAction, act.Kind+"-"+at.String(), &testsuite.TestUpdateCallback{
			OnAccept: func() {},
			OnReject: func(err error) {
				*rejected = true
				assert.ErrorContains(t, err, wantMsg)
			},
			OnComplete: func(interface{}, error) {},
		}, act)
	}, at)
	return rejected
}

func expectView(t *testing.T, env *testsuite.TestWorkflowEnvironment, at time.Duration, check func(s shared.Snapshot)) {
	t.Helper()
	env.RegisterDelayedCallback(func() {
		result, err := env.QueryWorkflow(shared.QueryCheckoutView)
		if !assert.NoError(t, err) {
			return
		}
		var s shared.Snapshot
		if assert.NoError(t, result.Get(&s)) {
			check(s)
		}
	}, at)
}

func signal(env *testsuite.TestWorkflowEnvironment, at time.Duration, name string, arg interface{}) {
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(name, arg)
	}, at)
}

func TestCheckoutFlow_WalletPathToPayment(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	a := registerMockActivities(env)

	env.OnActivity(a.FetchWalletBalances, mock.Anything, mock.Anything).Return(
		[]shared.WalletBalance{{Address: "0xabc", TotalUSD: decimal.NewFromInt(250)}}, nil,
	)
	env.OnActivity(a.FetchIdentityScanToken, mock.Anything).Return("zk-1", nil)
	env.OnActivity(a.QuotePayment, mock.Anything).Return(
		shared.PaymentQuote{Prices: map[string]decimal.Decimal{"ETH": decimal.NewFromInt(3000), "USDC": decimal.NewFromInt(1)}}, nil,
	)

	expectView(t, env, 500*time.Millisecond, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewSignIn), s.View)
		assert.True(t, s.LoginRequired)
	})
	signal(env, time.Second, shared.SignalAuthenticated, shared.User{ID: testUserID})
	sendAction(t, env, 2*time.Second, shared.Action{Kind: shared.ActionPickOption, Option: flow.OptionCryptoWallet, Address: "0xabc"})
	expectView(t, env, 3*time.Second, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewWalletVerifyDetails), s.View)
		assert.Equal(t, "0xabc", s.WalletAddress)
		assert.True(t, s.ContinueEnabled)
	})
	sendAction(t, env, 4*time.Second, shared.Action{Kind: shared.ActionContinueWallets})
	sendAction(t, env, 5*time.Second, shared.Action{Kind: shared.ActionOpenPassportScan})
	expectView(t, env, 6*time.Second, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewVerifyIdentity), s.View)
		assert.True(t, s.ScanOpen)
		assert.Equal(t, "zk-1", s.ScanToken)
	})
	sendAction(t, env, 7*time.Second, shared.Action{Kind: shared.ActionPassportScanCompleted, Granted: true})
	expectView(t, env, 8*time.Second, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewAddDataSources), s.View)
		assert.True(t, s.IdentityVerified)
		assert.True(t, s.SkipEnabled)
	})
	sendAction(t, env, 9*time.Second, shared.Action{Kind: shared.ActionSkipSources})
	expectView(t, env, 10*time.Second, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewAllSet), s.View)
	})
	expectView(t, env, 13*time.Second, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewPayment), s.View)
		assert.Len(t, s.Plans, 2)
		if assert.NotNil(t, s.Quote) {
			assert.True(t, s.Quote.Prices["ETH"].Equal(decimal.NewFromInt(3000)))
		}
	})
	bankRejected := sendRejected(t, env, 14*time.Second, shared.Action{
		Kind: shared.ActionConfirmPayment, PlanID: "pay-in-4", Method: shared.PaymentMethodBank,
	}, "coming soon")
	sendAction(t, env, 15*time.Second, shared.Action{
		Kind: shared.ActionConfirmPayment, PlanID: "pay-in-4", Method: shared.PaymentMethodCrypto, TxHash: "0xdeadbeef",
	})

	env.ExecuteWorkflow(workflows.CheckoutFlowWorkflow, defaultCheckoutRequest())

	assert.True(t, env.IsWorkflowCompleted())
	assert.NoError(t, env.GetWorkflowError())

	var result string
	assert.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, "CHECKOUT-sess-1-PAID", result)
	assert.True(t, *bankRejected, "bank payment should be rejected")
}

func TestCheckoutFlow_RedirectResumeAndPoll(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	a := registerMockActivities(env)

	env.OnActivity(a.CreateVerificationURL, mock.Anything, mock.MatchedBy(func(r shared.RedirectRequest) bool {
		return r.Request.Source == shared.SourceBinance && r.SessionID == "sess-1" && r.UserID == testUserID
	})).Return(activities.RedirectResult{
		URL:     "https://vouch.example/start?requestId=req-1",
		Request: shared.VerificationRequest{RequestID: "req-1", Source: shared.SourceBinance, DatasourceID: "ds-binance"},
	}, nil)
	env.OnActivity(a.FetchVerificationResult, mock.Anything, shared.SourceBinance, testUserID).
		Return(shared.VerificationStatus{}, nil).Once()
	env.OnActivity(a.FetchVerificationResult, mock.Anything, shared.SourceBinance, testUserID).
		Return(shared.VerificationStatus{HasData: true, Details: shared.IdentityDetails{FirstName: "Ada", LastName: "Lovelace"}}, nil)

	signal(env, time.Second, shared.SignalAuthenticated, shared.User{ID: testUserID})
	sendAction(t, env, 2*time.Second, shared.Action{Kind: shared.ActionPickOption, Option: flow.OptionCEX})
	sendAction(t, env, 3*time.Second, shared.Action{Kind: shared.ActionSelectExchange, Name: "Binance"})
	expectView(t, env, 4*time.Second, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewCEXSearch), s.View)
	})
	signal(env, 5*time.Second, shared.SignalResume, shared.ResumeRequest{QueryParam: true, RequestID: "req-other"})
	expectView(t, env, 6*time.Second, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewCEXSearch), s.View)
	})
	signal(env, 7*time.Second, shared.SignalResume, shared.ResumeRequest{QueryParam: true, RequestID: "req-1"})
	// The first poll runs on arrival, the second two seconds later.
	expectView(t, env, 8*time.Second, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewVouchVerification), s.View)
		assert.True(t, s.Loading)
		assert.Equal(t, 1, s.PollAttempts)
		if assert.NotNil(t, s.Request) {
			assert.Equal(t, "req-1", s.Request.RequestID)
		}
	})
	expectView(t, env, 10*time.Second, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewVerifyDetails), s.View)
		assert.True(t, s.IdentityVerified)
		if assert.NotNil(t, s.Details) {
			assert.Equal(t, "Ada", s.Details.FirstName)
		}
	})

	env.ExecuteWorkflow(workflows.CheckoutFlowWorkflow, defaultCheckoutRequest())

	assert.True(t, env.IsWorkflowCompleted())
	var result string
	assert.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, "CHECKOUT-sess-1-EXPIRED", result)
	env.AssertExpectations(t)
}

func TestCheckoutFlow_PollingStopsAfterThirtyAttempts(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	a := registerMockActivities(env)

	var polledAt []time.Time
	env.OnActivity(a.FetchVerificationResult, mock.Anything, mock.Anything, testUserID).Return(
		func(ctx context.Context, source shared.Source, userID string) (shared.VerificationStatus, error) {
			polledAt = append(polledAt, env.Now())
			return shared.VerificationStatus{}, nil
		},
	)

	signal(env, time.Second, shared.SignalAuthenticated, shared.User{ID: testUserID})
	signal(env, 2*time.Second, shared.SignalResume, shared.ResumeRequest{QueryParam: true})
	expectView(t, env, 90*time.Second, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewVouchVerification), s.View)
		assert.False(t, s.Loading)
		assert.Equal(t, shared.VerificationPollMaxAttempts, s.PollAttempts)
	})

	env.ExecuteWorkflow(workflows.CheckoutFlowWorkflow, defaultCheckoutRequest())

	assert.True(t, env.IsWorkflowCompleted())
	assert.NoError(t, env.GetWorkflowError())
	if assert.Len(t, polledAt, shared.VerificationPollMaxAttempts) {
		for i := 1; i < len(polledAt); i++ {
			assert.Equal(t, shared.VerificationPollInterval, polledAt[i].Sub(polledAt[i-1]), "gap before poll %d", i+1)
		}
		assert.Equal(t, 58*time.Second, polledAt[len(polledAt)-1].Sub(polledAt[0]))
	}
}

func TestCheckoutFlow_USBankLinksThroughPlaid(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	a := registerMockActivities(env)

	env.OnActivity(a.CreateLinkToken, mock.Anything).Return("link-1", nil)
	env.OnActivity(a.ExchangePublicToken, mock.Anything, "public-1").Return(nil)

	signal(env, time.Second, shared.SignalAuthenticated, shared.User{ID: testUserID})
	sendAction(t, env, 2*time.Second, shared.Action{Kind: shared.ActionPickOption, Option: flow.OptionBank})
	sendAction(t, env, 3*time.Second, shared.Action{Kind: shared.ActionSelectBank, Name: "Chase"})
	expectView(t, env, 4*time.Second, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewPlaidLink), s.View)
		assert.Equal(t, "Chase", s.BankName)
		assert.Equal(t, "link-1", s.LinkToken)
	})
	sendAction(t, env, 5*time.Second, shared.Action{Kind: shared.ActionPlaidLinked, PublicToken: "public-1"})
	expectView(t, env, 6*time.Second, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewAddDataSources), s.View)
		assert.True(t, s.IdentityVerified)
		assert.NotContains(t, s.DataSources, flow.SourceBank)
	})

	env.ExecuteWorkflow(workflows.CheckoutFlowWorkflow, defaultCheckoutRequest())

	assert.True(t, env.IsWorkflowCompleted())
	env.AssertExpectations(t)
}

func TestCheckoutFlow_PlaidLinkedSurvivesTokenExchangeFailure(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	a := registerMockActivities(env)

	env.OnActivity(a.CreateLinkToken, mock.Anything).Return("link-1", nil)
	env.OnActivity(a.ExchangePublicToken, mock.Anything, "public-1").Return(
		temporal.NewNonRetryableApplicationError("backend down", shared.ErrTypeCollaboratorRejected, nil),
	)

	signal(env, time.Second, shared.SignalAuthenticated, shared.User{ID: testUserID})
	sendAction(t, env, 2*time.Second, shared.Action{Kind: shared.ActionPickOption, Option: flow.OptionBank})
	sendAction(t, env, 3*time.Second, shared.Action{Kind: shared.ActionSelectBank, Name: "Chase"})
	sendAction(t, env, 4*time.Second, shared.Action{Kind: shared.ActionPlaidLinked, PublicToken: "public-1"})
	expectView(t, env, 5*time.Second, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewAddDataSources), s.View)
		assert.True(t, s.IdentityVerified)
	})

	env.ExecuteWorkflow(workflows.CheckoutFlowWorkflow, defaultCheckoutRequest())

	assert.True(t, env.IsWorkflowCompleted())
	assert.NoError(t, env.GetWorkflowError())
	env.AssertExpectations(t)
}

func TestCheckoutFlow_CollaboratorFailureKeepsView(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	a := registerMockActivities(env)

	env.OnActivity(a.CreateLinkToken, mock.Anything).Return("", temporal.NewNonRetryableApplicationError(
		"bank linking is unavailable right now", shared.ErrTypeCollaboratorRejected, nil,
	))

	signal(env, time.Second, shared.SignalAuthenticated, shared.User{ID: testUserID})
	sendAction(t, env, 2*time.Second, shared.Action{Kind: shared.ActionPickOption, Option: flow.OptionBank})
	env.RegisterDelayedCallback(func() {
		env.UpdateWorkflow(shared.UpdateCheckoutAction, "select-chase", &testsuite.TestUpdateCallback{
			OnAccept: func() {},
			OnReject: func(err error) {
				assert.Fail(t, "select-bank should pass validation", err.Error())
			},
			OnComplete: func(_ interface{}, err error) {
				assert.ErrorContains(t, err, "bank linking is unavailable right now")
			},
		}, shared.Action{Kind: shared.ActionSelectBank, Name: "Chase"})
	}, 3*time.Second)
	expectView(t, env, 4*time.Second, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewBankSearch), s.View)
	})

	env.ExecuteWorkflow(workflows.CheckoutFlowWorkflow, defaultCheckoutRequest())

	assert.True(t, env.IsWorkflowCompleted())
	assert.NoError(t, env.GetWorkflowError())
}

func TestCheckoutFlow_UnfundedWalletBlocksContinue(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	a := registerMockActivities(env)

	env.OnActivity(a.FetchWalletBalances, mock.Anything, mock.Anything).Return(
		[]shared.WalletBalance{{Address: "0xabc", TotalUSD: decimal.Zero}}, nil,
	)

	signal(env, time.Second, shared.SignalAuthenticated, shared.User{ID: testUserID})
	unknownRejected := sendRejected(t, env, 1500*time.Millisecond, shared.Action{Kind: "teleport"}, "unknown action")
	sendAction(t, env, 2*time.Second, shared.Action{Kind: shared.ActionPickOption, Option: flow.OptionCryptoWallet, Address: "0xabc"})
	continueRejected := sendRejected(t, env, 3*time.Second, shared.Action{Kind: shared.ActionContinueWallets}, flow.LabelFundWallet)
	expectView(t, env, 4*time.Second, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewWalletVerifyDetails), s.View)
		assert.False(t, s.ContinueEnabled)
		assert.Equal(t, flow.LabelFundWallet, s.DisabledReason)
	})
	sendAction(t, env, 5*time.Second, shared.Action{Kind: shared.ActionBack})
	expectView(t, env, 6*time.Second, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewOptions), s.View)
	})

	env.ExecuteWorkflow(workflows.CheckoutFlowWorkflow, defaultCheckoutRequest())

	assert.True(t, env.IsWorkflowCompleted())
	assert.True(t, *unknownRejected)
	assert.True(t, *continueRejected)
}

func TestCheckoutFlow_IdleSessionExpires(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	registerMockActivities(env)

	// Activity at 23h pushes the deadline out; the run is still open at 25h.
	signal(env, 23*time.Hour, shared.SignalAuthenticated, shared.User{ID: testUserID})
	expectView(t, env, 25*time.Hour, func(s shared.Snapshot) {
		assert.Equal(t, string(flow.ViewOptions), s.View)
	})

	env.ExecuteWorkflow(workflows.CheckoutFlowWorkflow, defaultCheckoutRequest())

	assert.True(t, env.IsWorkflowCompleted())
	assert.NoError(t, env.GetWorkflowError())

	var result string
	assert.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, "CHECKOUT-sess-1-EXPIRED", result)
}
