package flow

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bnpl-checkout/plans"
	"bnpl-checkout/shared"
)

// Machine is the checkout view-state machine. Every exported method is one
// transition: it either applies completely or returns an error and leaves the
// machine untouched. Machine is not safe for concurrent use; the checkout
// workflow is its only owner.
type Machine struct {
	view    View
	returns map[Branch]ViewName

	identityVerified bool
	enforceSources   bool
	sourceChosen     bool

	user       *shared.User
	lastWallet string
	wallets    []shared.WalletBalance

	pending  *shared.VerificationRequest
	deferred *shared.ResumeRequest
	details  *shared.IdentityDetails

	total   decimal.Decimal
	receipt *shared.PaymentReceipt
}

// NewMachine returns a machine waiting for authentication, pricing plans
// against total.
func NewMachine(total decimal.Decimal) *Machine {
	return &Machine{
		view:    SignIn{},
		returns: make(map[Branch]ViewName),
		total:   total,
	}
}

func (m *Machine) View() View { return m.view }

func (m *Machine) IdentityVerified() bool { return m.identityVerified }

func (m *Machine) EnforceSources() bool { return m.enforceSources }

// Pending returns the verification request recorded before the last redirect.
func (m *Machine) Pending() *shared.VerificationRequest { return m.pending }

func (m *Machine) Details() *shared.IdentityDetails { return m.details }

func (m *Machine) Receipt() *shared.PaymentReceipt { return m.receipt }

func (m *Machine) Total() decimal.Decimal { return m.total }

func (m *Machine) LastConnectedWallet() string { return m.lastWallet }

func (m *Machine) WalletBalances() []shared.WalletBalance { return m.wallets }

// ReturnView returns the view recorded when branch b was last entered.
func (m *Machine) ReturnView(b Branch) (ViewName, bool) {
	v, ok := m.returns[b]
	return v, ok
}

// UserID returns the stable identity key of the authenticated user.
func (m *Machine) UserID() string {
	if m.user == nil {
		return ""
	}
	return m.user.ID
}

// WalletAddresses lists the externally linked wallets whose balances are shown,
// followed by the last connected wallet when it is not linked yet.
func (m *Machine) WalletAddresses() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(addr string) {
		key := strings.ToLower(addr)
		if addr == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, addr)
	}
	if m.user != nil {
		for _, w := range m.user.LinkedWallets {
			if w.WalletClientType == "privy" {
				continue
			}
			add(w.Address)
		}
	}
	add(m.lastWallet)
	return out
}

func (m *Machine) invalid(action string) error {
	return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, action, m.view.Name())
}

func (m *Machine) at(action string, names ...ViewName) error {
	for _, n := range names {
		if m.view.Name() == n {
			return nil
		}
	}
	return m.invalid(action)
}

func (m *Machine) enter(b Branch, to View) {
	m.returns[b] = m.view.Name()
	m.view = to
}

func (m *Machine) returnTo(b Branch) ViewName {
	if v, ok := m.returns[b]; ok {
		return v
	}
	return ViewOptions
}

// restore rebuilds a view that was recorded by name as a return target.
func (m *Machine) restore(name ViewName) View {
	switch name {
	case ViewOtherOptions:
		return OtherOptions{}
	case ViewBankSearch:
		return BankSearch{}
	case ViewCardSearch:
		return CardSearch{}
	case ViewCEXSearch:
		return CEXSearch{}
	case ViewWalletsStep:
		return WalletsStep{}
	case ViewWalletVerifyDetails:
		return WalletVerifyDetails{Address: m.lastWallet}
	case ViewVerifyDetails:
		return VerifyDetails{Details: m.details}
	case ViewVerifyIdentity:
		return VerifyIdentity{}
	case ViewAddDataSources:
		return AddDataSources{}
	default:
		return Options{}
	}
}

// enterSources moves to add-data-sources as a fresh visit.
func (m *Machine) enterSources() {
	m.sourceChosen = false
	m.view = AddDataSources{}
}

func (m *Machine) markVerified() {
	m.identityVerified = true
	m.enforceSources = false
}

// Authenticate is reported by the auth provider once a user is signed in.
// A pending verification, or a resume that arrived before sign-in finished,
// sends the shopper straight to vouch-verification.
func (m *Machine) Authenticate(u shared.User) error {
	if err := m.at("authenticate", ViewSignIn); err != nil {
		return err
	}
	m.user = &u
	if len(u.LinkedWallets) > 0 {
		m.enforceSources = !m.identityVerified
	}
	m.view = Options{}

	if d := m.deferred; d != nil {
		m.deferred = nil
		if err := m.resume(*d); err == nil {
			return nil
		}
	}
	if m.pending != nil {
		m.view = VouchVerification{Request: m.pending, Loading: true}
	}
	return nil
}

// PickOption handles a sign-in option that needs no collaborator.
func (m *Machine) PickOption(option string) error {
	if err := m.at(shared.ActionPickOption, ViewOptions, ViewOtherOptions); err != nil {
		return err
	}
	switch option {
	case OptionBank:
		m.enter(BranchBank, BankSearch{})
	case OptionCryptoCard:
		m.enter(BranchCard, CardSearch{})
	case OptionCEX:
		m.enter(BranchCEX, CEXSearch{})
	case OptionOtherOptions:
		if m.view.Name() != ViewOptions {
			return m.invalid(shared.ActionPickOption)
		}
		m.view = OtherOptions{}
	case OptionCryptoWallet:
		return fmt.Errorf("%w: %s needs a connected wallet", ErrInvalidInput, option)
	default:
		return fmt.Errorf("%w: unknown option %q", ErrInvalidInput, option)
	}
	return nil
}

// ConnectWallet records the wallet returned by the wallet-connect collaborator.
// An empty address means the collaborator was cancelled or rejected.
func (m *Machine) ConnectWallet(address string) error {
	if err := m.at(shared.ActionConnectWallet, ViewOptions, ViewOtherOptions); err != nil {
		return err
	}
	if address == "" {
		return fmt.Errorf("%w: wallet connect returned no address", ErrCollaborator)
	}
	m.lastWallet = address
	m.enforceSources = !m.identityVerified
	m.returns[BranchWallets] = ViewOptions
	m.view = WalletVerifyDetails{Address: address}
	return nil
}

// LinkWallet attaches another external wallet on the wallets step.
func (m *Machine) LinkWallet(address string) error {
	if err := m.at(shared.ActionLinkWallet, ViewWalletsStep); err != nil {
		return err
	}
	if address == "" {
		return fmt.Errorf("%w: wallet link returned no address", ErrCollaborator)
	}
	if m.user == nil {
		m.user = &shared.User{}
	}
	for _, w := range m.user.LinkedWallets {
		if strings.EqualFold(w.Address, address) {
			return nil
		}
	}
	chain := "ethereum"
	if !strings.HasPrefix(address, "0x") {
		chain = "solana"
	}
	wallets := make([]shared.LinkedWallet, 0, len(m.user.LinkedWallets)+1)
	wallets = append(wallets, m.user.LinkedWallets...)
	m.user.LinkedWallets = append(wallets, shared.LinkedWallet{Address: address, ChainType: chain})
	return nil
}

// SetWalletBalances replaces the fetched wallet balances.
func (m *Machine) SetWalletBalances(wallets []shared.WalletBalance) {
	m.wallets = wallets
}

func (m *Machine) hasFundedWallet() bool {
	for _, w := range m.wallets {
		if w.TotalUSD.IsPositive() {
			return true
		}
	}
	return false
}

// ContinueWallets leaves a wallet screen once some wallet holds funds.
func (m *Machine) ContinueWallets() error {
	if err := m.at(shared.ActionContinueWallets, ViewWalletsStep, ViewWalletVerifyDetails); err != nil {
		return err
	}
	if !m.hasFundedWallet() {
		return fmt.Errorf("%w: %s", ErrGuardBlocked, LabelFundWallet)
	}
	if m.view.Name() == ViewWalletsStep {
		m.enforceSources = true
		m.view = AddDataSources{}
		return nil
	}
	if m.identityVerified {
		m.enterSources()
		return nil
	}
	m.enter(BranchIdentity, VerifyIdentity{})
	return nil
}

// SelectBank picks a bank on bank-search. When the bank verifies through a
// partner redirect it returns that source and leaves the view unchanged;
// the caller launches the redirect and then calls BeginRedirect.
func (m *Machine) SelectBank(name string) (shared.Source, error) {
	if err := m.at(shared.ActionSelectBank, ViewBankSearch); err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("%w: bank name is required", ErrInvalidInput)
	}
	if src, ok := BankSource(name); ok {
		return src, nil
	}
	if IsUSBank(name) {
		m.view = PlaidLink{BankName: name, PreviousView: ViewBankSearch}
		return "", nil
	}
	m.view = VerificationLoading{}
	return "", nil
}

// SelectCard picks a crypto card on card-search.
func (m *Machine) SelectCard(name string) (shared.Source, error) {
	if err := m.at(shared.ActionSelectCard, ViewCardSearch); err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("%w: card name is required", ErrInvalidInput)
	}
	if src, ok := CardSource(name); ok {
		return src, nil
	}
	m.view = VerificationLoading{}
	return "", nil
}

// SelectExchange picks an exchange on cex-search.
func (m *Machine) SelectExchange(name string) (shared.Source, error) {
	if err := m.at(shared.ActionSelectExchange, ViewCEXSearch); err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("%w: exchange name is required", ErrInvalidInput)
	}
	if src, ok := ExchangeSource(name); ok {
		return src, nil
	}
	m.view = VerificationLoading{}
	return "", nil
}

// BeginRedirect records the verification request before the shopper leaves
// for the partner. The view does not change.
func (m *Machine) BeginRedirect(req shared.VerificationRequest) error {
	if err := m.at("begin-redirect", searchView(BranchOf(req.Source))); err != nil {
		return err
	}
	if req.RequestID == "" {
		return fmt.Errorf("%w: request id is required", ErrInvalidInput)
	}
	m.pending = &req
	return nil
}

// SetLinkToken fills in the bank-link token once it has been created.
func (m *Machine) SetLinkToken(token string) error {
	v, ok := m.view.(PlaidLink)
	if !ok {
		return m.invalid("set-link-token")
	}
	v.LinkToken = token
	m.view = v
	return nil
}

// PlaidLinked is reported when the bank-link widget succeeds.
func (m *Machine) PlaidLinked() error {
	if err := m.at(shared.ActionPlaidLinked, ViewPlaidLink); err != nil {
		return err
	}
	m.markVerified()
	if m.user != nil {
		m.user.HasBank = true
	}
	m.view = AddDataSources{}
	return nil
}

// PlaidExited is reported when the bank-link widget is closed without linking.
func (m *Machine) PlaidExited() error {
	v, ok := m.view.(PlaidLink)
	if !ok {
		return m.invalid(shared.ActionPlaidExited)
	}
	if v.PreviousView == "" {
		m.view = BankSearch{}
		return nil
	}
	m.view = m.restore(v.PreviousView)
	return nil
}

// Resume handles the shopper coming back from a partner redirect. The pending
// request is the source of truth: a token for any other request is rejected.
// Without the return parameter the pending request alone decides.
func (m *Machine) Resume(req shared.ResumeRequest) error {
	if m.view.Name() == ViewSignIn {
		m.deferred = &req
		return nil
	}
	return m.resume(req)
}

func (m *Machine) resume(req shared.ResumeRequest) error {
	if req.RequestID != "" && m.pending != nil && req.RequestID != m.pending.RequestID {
		return fmt.Errorf("%w: got %s, want %s", ErrResumeMismatch, req.RequestID, m.pending.RequestID)
	}
	if !req.QueryParam && m.pending == nil {
		return ErrNothingToResume
	}
	m.view = VouchVerification{Request: m.pending, Loading: true}
	return nil
}

// RecordPollAttempt applies one status poll. It reports whether polling
// should continue.
func (m *Machine) RecordPollAttempt(status shared.VerificationStatus) (bool, error) {
	v, ok := m.view.(VouchVerification)
	if !ok || !v.Loading {
		return false, m.invalid("poll")
	}
	v.Attempts++
	if status.HasData {
		details := status.Details
		m.details = &details
		m.pending = nil
		m.markVerified()
		m.view = VerifyDetails{Details: m.details}
		return false, nil
	}
	if v.Attempts >= shared.VerificationPollMaxAttempts {
		v.Loading = false
	}
	m.view = v
	return v.Loading, nil
}

// VerificationLoadingDone fires when the loading animation completes.
func (m *Machine) VerificationLoadingDone() error {
	if err := m.at("verification-loading-done", ViewVerificationLoading); err != nil {
		return err
	}
	m.view = VerifyDetails{Details: m.details}
	return nil
}

// AddPasskey proceeds whether or not the passkey was created.
func (m *Machine) AddPasskey(succeeded bool) error {
	if err := m.at(shared.ActionAddPasskey, ViewVerifyDetails); err != nil {
		return err
	}
	m.enterSources()
	return nil
}

// OpenPassportScan opens the identity widget with a freshly issued token.
func (m *Machine) OpenPassportScan(token string) error {
	v, ok := m.view.(VerifyIdentity)
	if !ok || v.ScanOpen {
		return m.invalid(shared.ActionOpenPassportScan)
	}
	if token == "" {
		return fmt.Errorf("%w: no identity scan token", ErrCollaborator)
	}
	m.view = VerifyIdentity{ScanOpen: true, ScanToken: token}
	return nil
}

func (m *Machine) ClosePassportScan() error {
	v, ok := m.view.(VerifyIdentity)
	if !ok || !v.ScanOpen {
		return m.invalid(shared.ActionClosePassportScan)
	}
	m.view = VerifyIdentity{}
	return nil
}

// PassportScanCompleted applies the widget result. A denied scan closes the
// widget and keeps the shopper on verify-identity.
func (m *Machine) PassportScanCompleted(granted bool) error {
	v, ok := m.view.(VerifyIdentity)
	if !ok || !v.ScanOpen {
		return m.invalid(shared.ActionPassportScanCompleted)
	}
	if !granted {
		m.view = VerifyIdentity{}
		return nil
	}
	m.markVerified()
	m.enterSources()
	return nil
}

func (m *Machine) LinkBankForIdentity() error {
	v, ok := m.view.(VerifyIdentity)
	if !ok || v.ScanOpen {
		return m.invalid(shared.ActionIdentityLinkBank)
	}
	m.enter(BranchBank, BankSearch{})
	return nil
}

func (m *Machine) LinkExchangeForIdentity() error {
	v, ok := m.view.(VerifyIdentity)
	if !ok || v.ScanOpen {
		return m.invalid(shared.ActionIdentityLinkExchange)
	}
	m.enter(BranchCEX, CEXSearch{})
	return nil
}

// DataSources lists the sources offered on add-data-sources. A linked bank
// hides the bank source.
func (m *Machine) DataSources() []string {
	out := []string{SourceCryptoWallet, SourceSocials}
	if m.user == nil || !m.user.HasBank {
		out = append(out, SourceBank)
	}
	return append(out, SourceCEX)
}

// AddSource enters the branch for a data source and marks this visit as
// having chosen one.
func (m *Machine) AddSource(id string) error {
	if err := m.at(shared.ActionAddSource, ViewAddDataSources); err != nil {
		return err
	}
	switch id {
	case SourceCryptoWallet:
		m.enter(BranchWallets, WalletsStep{})
	case SourceBank:
		if m.user != nil && m.user.HasBank {
			return fmt.Errorf("%w: bank already linked", ErrInvalidInput)
		}
		m.enter(BranchBank, BankSearch{})
	case SourceCEX:
		m.enter(BranchCEX, CEXSearch{})
	case SourceSocials:
		m.view = AllSet{}
	default:
		return fmt.Errorf("%w: unknown data source %q", ErrInvalidInput, id)
	}
	m.sourceChosen = true
	return nil
}

// SkipAllowed reports whether add-data-sources may be skipped.
func (m *Machine) SkipAllowed() bool {
	return !(m.enforceSources && !m.sourceChosen)
}

func (m *Machine) Skip() error {
	if err := m.at(shared.ActionSkipSources, ViewAddDataSources); err != nil {
		return err
	}
	if !m.SkipAllowed() {
		return fmt.Errorf("%w: %s", ErrGuardBlocked, LabelChooseSource)
	}
	m.view = AllSet{}
	return nil
}

// AllSetDone fires when the all-set animation completes.
func (m *Machine) AllSetDone() error {
	if err := m.at("all-set-done", ViewAllSet); err != nil {
		return err
	}
	m.view = Payment{Plans: plans.ForTotal(m.total)}
	return nil
}

// SetQuote attaches spot prices to the payment screen.
func (m *Machine) SetQuote(q shared.PaymentQuote) error {
	v, ok := m.view.(Payment)
	if !ok {
		return m.invalid("set-quote")
	}
	v.Quote = &q
	m.view = v
	return nil
}

// ConfirmPayment records the client-signed transfer for the first
// installment of the chosen plan.
func (m *Machine) ConfirmPayment(planID string, method shared.PaymentMethod, txHash string) (shared.PaymentReceipt, error) {
	v, ok := m.view.(Payment)
	if !ok || m.receipt != nil {
		return shared.PaymentReceipt{}, m.invalid(shared.ActionConfirmPayment)
	}
	plan, ok := plans.Find(v.Plans, planID)
	if !ok {
		return shared.PaymentReceipt{}, fmt.Errorf("%w: unknown plan %q", ErrInvalidInput, planID)
	}
	switch method {
	case shared.PaymentMethodCrypto:
	case shared.PaymentMethodBank:
		return shared.PaymentReceipt{}, fmt.Errorf("%w: bank payments coming soon", ErrPaymentUnavailable)
	default:
		return shared.PaymentReceipt{}, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, method)
	}
	if txHash == "" {
		return shared.PaymentReceipt{}, fmt.Errorf("%w: transaction hash is required", ErrInvalidInput)
	}
	m.receipt = &shared.PaymentReceipt{
		PlanID:   plan.ID,
		Method:   method,
		TxHash:   txHash,
		Amount:   plan.AmountPerInstallment,
		ChainID:  shared.PaymentChainID,
		Explorer: shared.PaymentExplorerURL + txHash,
	}
	return *m.receipt, nil
}

// Back applies the back affordance of the current view. Every branch returns
// to the view recorded when it was entered.
func (m *Machine) Back() error {
	switch v := m.view.(type) {
	case OtherOptions:
		m.view = Options{}
	case BankSearch:
		m.view = m.restore(m.returnTo(BranchBank))
	case CardSearch:
		m.view = m.restore(m.returnTo(BranchCard))
	case CEXSearch:
		m.view = m.restore(m.returnTo(BranchCEX))
	case WalletsStep:
		m.view = m.restore(m.returnTo(BranchWallets))
	case WalletVerifyDetails:
		m.view = Options{}
	case VerifyIdentity:
		if v.ScanOpen {
			m.view = VerifyIdentity{}
			return nil
		}
		m.view = m.restore(m.returnTo(BranchIdentity))
	case AddDataSources:
		if m.identityVerified {
			m.view = VerifyIdentity{}
		} else {
			m.view = VerifyDetails{Details: m.details}
		}
	case PlaidLink:
		return m.PlaidExited()
	case VouchVerification:
		b := BranchBank
		if v.Request != nil {
			b = BranchOf(v.Request.Source)
		}
		if name, ok := m.ReturnView(b); ok {
			m.view = m.restore(name)
		} else {
			m.view = m.restore(searchView(b))
		}
	default:
		return m.invalid(shared.ActionBack)
	}
	return nil
}

// Apply runs an action that needs no collaborator result.
func (m *Machine) Apply(a shared.Action) error {
	switch a.Kind {
	case shared.ActionPickOption:
		if a.Option == OptionCryptoWallet {
			return m.ConnectWallet(a.Address)
		}
		return m.PickOption(a.Option)
	case shared.ActionConnectWallet:
		return m.ConnectWallet(a.Address)
	case shared.ActionLinkWallet:
		return m.LinkWallet(a.Address)
	case shared.ActionSelectBank:
		_, err := m.SelectBank(a.Name)
		return err
	case shared.ActionSelectCard:
		_, err := m.SelectCard(a.Name)
		return err
	case shared.ActionSelectExchange:
		_, err := m.SelectExchange(a.Name)
		return err
	case shared.ActionPlaidLinked:
		return m.PlaidLinked()
	case shared.ActionPlaidExited:
		return m.PlaidExited()
	case shared.ActionAddPasskey:
		return m.AddPasskey(a.Succeeded)
	case shared.ActionClosePassportScan:
		return m.ClosePassportScan()
	case shared.ActionPassportScanCompleted:
		return m.PassportScanCompleted(a.Granted)
	case shared.ActionIdentityLinkBank:
		return m.LinkBankForIdentity()
	case shared.ActionIdentityLinkExchange:
		return m.LinkExchangeForIdentity()
	case shared.ActionAddSource:
		return m.AddSource(a.SourceID)
	case shared.ActionSkipSources:
		return m.Skip()
	case shared.ActionContinueWallets:
		return m.ContinueWallets()
	case shared.ActionBack:
		return m.Back()
	case shared.ActionOpenPassportScan, shared.ActionConfirmPayment:
		return fmt.Errorf("%w: %s needs a collaborator result", ErrInvalidInput, a.Kind)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}
}

// Can reports whether a would be accepted, by applying it to a copy.
func (m *Machine) Can(a shared.Action) error {
	c := m.clone()
	switch a.Kind {
	case shared.ActionOpenPassportScan:
		return c.OpenPassportScan("validate")
	case shared.ActionConfirmPayment:
		_, err := c.ConfirmPayment(a.PlanID, a.Method, a.TxHash)
		return err
	default:
		return c.Apply(a)
	}
}

// clone copies everything a transition may mutate. Views and pointed-to
// requests are replaced, never mutated, so they are shared.
func (m *Machine) clone() *Machine {
	c := *m
	c.returns = make(map[Branch]ViewName, len(m.returns))
	for k, v := range m.returns {
		c.returns[k] = v
	}
	if m.user != nil {
		u := *m.user
		u.LinkedWallets = append([]shared.LinkedWallet(nil), m.user.LinkedWallets...)
		c.user = &u
	}
	return &c
}
