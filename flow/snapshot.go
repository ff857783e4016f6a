package flow

import "bnpl-checkout/shared"

// Snapshot projects the machine onto what the current screen renders.
func (m *Machine) Snapshot() shared.Snapshot {
	s := shared.Snapshot{
		View:             string(m.view.Name()),
		IdentityVerified: m.identityVerified,
		EnforceSources:   m.enforceSources,
		Receipt:          m.receipt,
	}

	switch v := m.view.(type) {
	case SignIn:
		s.LoginRequired = true
	case WalletsStep:
		s.Wallets = m.wallets
		m.continueState(&s)
	case WalletVerifyDetails:
		s.WalletAddress = v.Address
		s.Wallets = m.wallets
		m.continueState(&s)
	case VerifyDetails:
		s.Details = v.Details
	case VerifyIdentity:
		s.ScanOpen = v.ScanOpen
		s.ScanToken = v.ScanToken
	case AddDataSources:
		s.DataSources = m.DataSources()
		s.SkipEnabled = m.SkipAllowed()
		if !s.SkipEnabled {
			s.DisabledReason = LabelChooseSource
		}
	case PlaidLink:
		s.BankName = v.BankName
		s.LinkToken = v.LinkToken
	case VouchVerification:
		s.Request = v.Request
		s.PollAttempts = v.Attempts
		s.Loading = v.Loading
	case Payment:
		s.Plans = v.Plans
		s.Quote = v.Quote
	}
	return s
}

func (m *Machine) continueState(s *shared.Snapshot) {
	s.ContinueEnabled = m.hasFundedWallet()
	if !s.ContinueEnabled {
		s.DisabledReason = LabelFundWallet
	}
}
