package shared

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"bnpl-checkout/plans"
)

// Source identifies a redirect-based verification partner flow.
type Source string

const (
	SourceRevolut Source = "revolut"
	SourceBinance Source = "binance"
	SourceEtherfi Source = "etherfi"
)

// CheckoutFlowRequest is the input to the CheckoutFlowWorkflow.
type CheckoutFlowRequest struct {
	SessionID     string          `json:"sessionId"`
	CartID        string          `json:"cartId"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	ReturnBaseURL string          `json:"returnBaseUrl"`
}

// User is what the auth/wallet provider reports once the shopper is authenticated.
type User struct {
	ID            string         `json:"id"`
	HasBank       bool           `json:"hasBank"`
	LinkedWallets []LinkedWallet `json:"linkedWallets"`
}

// LinkedWallet is an external wallet attached to the user's account.
type LinkedWallet struct {
	Address          string `json:"address"`
	ChainType        string `json:"chainType"` // "ethereum", "solana"
	WalletClientType string `json:"walletClientType"`
}

// WalletBalance is a linked wallet with its fetched USD balance.
type WalletBalance struct {
	Address  string          `json:"address"`
	TotalUSD decimal.Decimal `json:"totalUsd"`
}

// VerificationRequest is created when the shopper leaves for a partner verification.
type VerificationRequest struct {
	RequestID    string         `json:"requestId"`
	Source       Source         `json:"source"`
	CustomerID   string         `json:"customerId"`
	DatasourceID string         `json:"datasourceId"`
	Inputs       map[string]any `json:"inputs,omitempty"`
}

// RedirectRequest is the input to the CreateVerificationURL activity.
type RedirectRequest struct {
	WorkflowID    string              `json:"workflowId"`
	SessionID     string              `json:"sessionId"`
	UserID        string              `json:"userId"`
	ReturnBaseURL string              `json:"returnBaseUrl"`
	Request       VerificationRequest `json:"request"`
}

// ResumeRequest is the payload of the resume signal sent when the app loads.
// QueryParam reports whether the return query parameter was on the URL; RequestID
// comes from a verified resume token and is empty when no token was presented.
type ResumeRequest struct {
	QueryParam bool   `json:"queryParam"`
	RequestID  string `json:"requestId,omitempty"`
}

// IdentityDetails are the identity fields shown on the detail review screen.
type IdentityDetails struct {
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	Address      string `json:"address,omitempty"`
	TotalBalance string `json:"totalBalance,omitempty"`
}

// VerificationStatus is one poll of the partner status endpoint.
type VerificationStatus struct {
	HasData bool            `json:"hasData"`
	Details IdentityDetails `json:"details"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

// PaymentQuote carries spot prices shown next to the payment plans.
type PaymentQuote struct {
	Prices map[string]decimal.Decimal `json:"prices"`
}

// PaymentMethod is how the shopper settles the first installment.
type PaymentMethod string

const (
	PaymentMethodBank   PaymentMethod = "bank"
	PaymentMethodCrypto PaymentMethod = "crypto"
)

// PaymentReceipt records a confirmed client-signed transfer.
type PaymentReceipt struct {
	PlanID   string          `json:"planId"`
	Method   PaymentMethod   `json:"method"`
	TxHash   string          `json:"txHash"`
	Amount   decimal.Decimal `json:"amount"`
	ChainID  int             `json:"chainId"`
	Explorer string          `json:"explorer,omitempty"`
}

// Action is the payload of the checkout action update. Kind selects the
// transition; the remaining fields are read only by the kinds that need them.
type Action struct {
	Kind        string        `json:"kind"`
	Option      string        `json:"option,omitempty"`
	Name        string        `json:"name,omitempty"`
	Address     string        `json:"address,omitempty"`
	PublicToken string        `json:"publicToken,omitempty"`
	Succeeded   bool          `json:"succeeded,omitempty"`
	Granted     bool          `json:"granted,omitempty"`
	SourceID    string        `json:"sourceId,omitempty"`
	PlanID      string        `json:"planId,omitempty"`
	Method      PaymentMethod `json:"method,omitempty"`
	TxHash      string        `json:"txHash,omitempty"`
}

// ActionResult is returned by the checkout action update.
type ActionResult struct {
	View        Snapshot `json:"view"`
	RedirectURL string   `json:"redirectUrl,omitempty"`
}

// Snapshot is the renderable projection of the checkout flow: the current view
// plus the context values that screen needs.
type Snapshot struct {
	View             string               `json:"view"`
	LoginRequired    bool                 `json:"loginRequired,omitempty"`
	IdentityVerified bool                 `json:"identityVerified"`
	EnforceSources   bool                 `json:"enforceSources"`
	SkipEnabled      bool                 `json:"skipEnabled"`
	ContinueEnabled  bool                 `json:"continueEnabled"`
	DisabledReason   string               `json:"disabledReason,omitempty"`
	BankName         string               `json:"bankName,omitempty"`
	LinkToken        string               `json:"linkToken,omitempty"`
	WalletAddress    string               `json:"walletAddress,omitempty"`
	Wallets          []WalletBalance      `json:"wallets,omitempty"`
	DataSources      []string             `json:"dataSources,omitempty"`
	ScanOpen         bool                 `json:"scanOpen,omitempty"`
	ScanToken        string               `json:"scanToken,omitempty"`
	Details          *IdentityDetails     `json:"details,omitempty"`
	Request          *VerificationRequest `json:"request,omitempty"`
	PollAttempts     int                  `json:"pollAttempts,omitempty"`
	Loading          bool                 `json:"loading,omitempty"`
	Plans            []plans.Option       `json:"plans,omitempty"`
	Quote            *PaymentQuote        `json:"quote,omitempty"`
	Receipt          *PaymentReceipt      `json:"receipt,omitempty"`
}
