package flow

import (
	"strings"

	"bnpl-checkout/shared"
)

// Branch is a sub-flow that can be entered from more than one screen.
type Branch string

const (
	BranchWallets  Branch = "wallets"
	BranchBank     Branch = "bank"
	BranchCard     Branch = "card"
	BranchCEX      Branch = "cex"
	BranchIdentity Branch = "identity"
)

// Sign-in options offered on the options screens.
const (
	OptionBank         = "bank"
	OptionCryptoCard   = "crypto-card"
	OptionCEX          = "cex"
	OptionCryptoWallet = "crypto-wallet"
	OptionOtherOptions = "other-options"
)

// Data sources offered on the add-data-sources screen.
const (
	SourceCryptoWallet = "crypto-wallet"
	SourceSocials      = "socials"
	SourceBank         = "bank"
	SourceCEX          = "cex"
)

// Labels rendered next to a disabled control.
const (
	LabelChooseSource = "Choose at least one source"
	LabelFundWallet   = "Fund a wallet to continue"
)

// usBanks are linked through Plaid rather than through a partner redirect.
var usBanks = map[string]struct{}{
	"Chase":                   {},
	"Bank of America":         {},
	"Wells Fargo":             {},
	"Citibank":                {},
	"US Bank":                 {},
	"PNC Bank":                {},
	"Capital One":             {},
	"TD Bank":                 {},
	"Truist Bank":             {},
	"Goldman Sachs":           {},
	"Charles Schwab":          {},
	"American Express":        {},
	"Ally Bank":               {},
	"Discover Bank":           {},
	"Marcus by Goldman Sachs": {},
	"Chime":                   {},
	"SoFi":                    {},
}

// IsUSBank reports whether name is on the Plaid allow-list.
func IsUSBank(name string) bool {
	_, ok := usBanks[name]
	return ok
}

// BankSource returns the redirect source for a bank, if it has one.
func BankSource(name string) (shared.Source, bool) {
	if name == "Revolut" {
		return shared.SourceRevolut, true
	}
	return "", false
}

// CardSource returns the redirect source for a crypto card, if it has one.
func CardSource(name string) (shared.Source, bool) {
	if strings.Contains(strings.ToLower(name), "ether") {
		return shared.SourceEtherfi, true
	}
	return "", false
}

// ExchangeSource returns the redirect source for an exchange, if it has one.
func ExchangeSource(name string) (shared.Source, bool) {
	if name == "Binance" {
		return shared.SourceBinance, true
	}
	return "", false
}

// BranchOf maps a redirect source to the branch it is launched from.
func BranchOf(s shared.Source) Branch {
	switch s {
	case shared.SourceBinance:
		return BranchCEX
	case shared.SourceEtherfi:
		return BranchCard
	default:
		return BranchBank
	}
}

func searchView(b Branch) ViewName {
	switch b {
	case BranchCard:
		return ViewCardSearch
	case BranchCEX:
		return ViewCEXSearch
	default:
		return ViewBankSearch
	}
}
