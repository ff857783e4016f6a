package shared

import "time"

// Task queue names.
const (
	CheckoutFlowTaskQueue = "checkout-flow-tq"
	ActivityTaskQueue     = "activity-tq"
)

// Signal, query and update names.
const (
	SignalAuthenticated  = "signal-authenticated"
	SignalResume         = "signal-resume"
	QueryCheckoutView    = "query-checkout-view"
	UpdateCheckoutAction = "update-checkout-action"
)

// Checkout flow timeline constants.
const (
	VerificationPollInterval    = 2 * time.Second
	VerificationPollMaxAttempts = 30
	VerificationLoadingDuration = 5 * time.Second
	AllSetDuration              = 3 * time.Second
	SessionIdleTimeout          = 24 * time.Hour
)

// Redirect return contract.
const (
	ReturnQueryParam = "vouch_return"
	ResumeTokenParam = "resume"
	SessionParam     = "session"
	ReturnPath       = "/auth/return"
	AppPath          = "/auth"
)

// Error types for non-retryable failures.
const (
	ErrTypeCollaboratorRejected = "CollaboratorRejected"
	ErrTypeInvalidInput         = "InvalidInput"
)

// Checkout action kinds carried by the action update.
const (
	ActionPickOption            = "pick-option"
	ActionConnectWallet         = "connect-wallet"
	ActionLinkWallet            = "link-wallet"
	ActionSelectBank            = "select-bank"
	ActionSelectCard            = "select-card"
	ActionSelectExchange        = "select-exchange"
	ActionPlaidLinked           = "plaid-linked"
	ActionPlaidExited           = "plaid-exited"
	ActionAddPasskey            = "add-passkey"
	ActionOpenPassportScan      = "open-passport-scan"
	ActionClosePassportScan     = "close-passport-scan"
	ActionPassportScanCompleted = "passport-scan-completed"
	ActionIdentityLinkBank      = "identity-link-bank"
	ActionIdentityLinkExchange  = "identity-link-exchange"
	ActionAddSource             = "add-source"
	ActionSkipSources           = "skip-sources"
	ActionContinueWallets       = "continue-wallets"
	ActionBack                  = "back"
	ActionConfirmPayment        = "confirm-payment"
)

// Payment network used for client-signed transfers.
const (
	PaymentChainID     = 296
	PaymentExplorerURL = "https://hashscan.io/testnet/tx/"
)

// CheckoutWorkflowID is the workflow id of a shopper session's checkout flow.
func CheckoutWorkflowID(sessionID string) string {
	return "checkout-" + sessionID
}
