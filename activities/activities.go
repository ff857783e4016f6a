package activities

import (
	"time"

	"bnpl-checkout/resume"
	"bnpl-checkout/services"
)

// Activities is the receiver for all activity methods. Temporal registers
// every exported method via RegisterActivity(a), and each method reaches its
// collaborator through the receiver. Tests point the clients at httptest
// servers.
type Activities struct {
	Backend   *services.BackendClient
	Launcher  *services.VerificationLauncher
	Balances  *services.BalanceService
	Prices    *services.PriceService
	Signer    *resume.Signer
	ResumeTTL time.Duration
}
