package flow

import (
	"bnpl-checkout/plans"
	"bnpl-checkout/shared"
)

// ViewName identifies the screen the shopper is on.
type ViewName string

const (
	ViewSignIn              ViewName = "sign-in"
	ViewOptions             ViewName = "options"
	ViewOtherOptions        ViewName = "other-options"
	ViewBankSearch          ViewName = "bank-search"
	ViewCardSearch          ViewName = "card-search"
	ViewCEXSearch           ViewName = "cex-search"
	ViewWalletsStep         ViewName = "wallets-step"
	ViewWalletVerifyDetails ViewName = "wallet-verify-details"
	ViewVerificationLoading ViewName = "verification-loading"
	ViewVerifyDetails       ViewName = "verify-details"
	ViewVerifyIdentity      ViewName = "verify-identity"
	ViewAddDataSources      ViewName = "add-data-sources"
	ViewAllSet              ViewName = "all-set"
	ViewPayment             ViewName = "payment"
	ViewPlaidLink           ViewName = "plaid-link"
	ViewVouchVerification   ViewName = "vouch-verification"
)

// View is the active screen together with the data only that screen needs.
// Exactly one View is active at a time.
type View interface {
	Name() ViewName
	isView()
}

// SignIn is the placeholder rendered until the auth provider reports a user.
type SignIn struct{}

type Options struct{}

type OtherOptions struct{}

type BankSearch struct{}

type CardSearch struct{}

type CEXSearch struct{}

type WalletsStep struct{}

// WalletVerifyDetails shows the wallet that was just connected.
type WalletVerifyDetails struct {
	Address string
}

type VerificationLoading struct{}

// VerifyDetails shows the identity fields returned by a verification, if any.
type VerifyDetails struct {
	Details *shared.IdentityDetails
}

// VerifyIdentity offers passport scan or an account link. While the scan
// widget is open it carries the access token the widget was launched with.
type VerifyIdentity struct {
	ScanOpen  bool
	ScanToken string
}

type AddDataSources struct{}

type AllSet struct{}

// Payment is the terminal screen listing the installment plans for the order.
type Payment struct {
	Plans []plans.Option
	Quote *shared.PaymentQuote
}

// PlaidLink is the bank-link widget for an allow-listed bank.
type PlaidLink struct {
	BankName     string
	PreviousView ViewName
	LinkToken    string
}

// VouchVerification polls the partner status endpoint after a redirect return.
// Request is nil when the shopper returned without a recorded request.
type VouchVerification struct {
	Request  *shared.VerificationRequest
	Attempts int
	Loading  bool
}

func (SignIn) Name() ViewName              { return ViewSignIn }
func (Options) Name() ViewName             { return ViewOptions }
func (OtherOptions) Name() ViewName        { return ViewOtherOptions }
func (BankSearch) Name() ViewName          { return ViewBankSearch }
func (CardSearch) Name() ViewName          { return ViewCardSearch }
func (CEXSearch) Name() ViewName           { return ViewCEXSearch }
func (WalletsStep) Name() ViewName         { return ViewWalletsStep }
func (WalletVerifyDetails) Name() ViewName { return ViewWalletVerifyDetails }
func (VerificationLoading) Name() ViewName { return ViewVerificationLoading }
func (VerifyDetails) Name() ViewName       { return ViewVerifyDetails }
func (VerifyIdentity) Name() ViewName      { return ViewVerifyIdentity }
func (AddDataSources) Name() ViewName      { return ViewAddDataSources }
func (AllSet) Name() ViewName              { return ViewAllSet }
func (Payment) Name() ViewName             { return ViewPayment }
func (PlaidLink) Name() ViewName           { return ViewPlaidLink }
func (VouchVerification) Name() ViewName   { return ViewVouchVerification }

func (SignIn) isView()              {}
func (Options) isView()             {}
func (OtherOptions) isView()        {}
func (BankSearch) isView()          {}
func (CardSearch) isView()          {}
func (CEXSearch) isView()           {}
func (WalletsStep) isView()         {}
func (WalletVerifyDetails) isView() {}
func (VerificationLoading) isView() {}
func (VerifyDetails) isView()       {}
func (VerifyIdentity) isView()      {}
func (AddDataSources) isView()      {}
func (AllSet) isView()              {}
func (Payment) isView()             {}
func (PlaidLink) isView()           {}
func (VouchVerification) isView()   {}
