package plans

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Plan identifiers offered on the payment screen.
const (
	PayIn4ID         = "pay-in-4"
	PayOver3MonthsID = "pay-over-3-months"
)

// InterestAPRBps is the fixed APR applied to the interest-bearing plan, in basis points.
const InterestAPRBps = 1400

const installmentCount = 4

// Frequency is the spacing between two installments.
type Frequency string

const (
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
)

// Option is one installment plan derived from an order total.
type Option struct {
	ID                   string          `json:"id"`
	Label                string          `json:"label"`
	Description          string          `json:"description"`
	InstallmentCount     int             `json:"installmentCount"`
	AmountPerInstallment decimal.Decimal `json:"amountPerInstallment"`
	FrequencyUnit        Frequency       `json:"frequencyUnit"`
	APRBps               int             `json:"aprBps"`
	TotalAmount          decimal.Decimal `json:"totalAmount"`
}

// Installment is a single scheduled payment of a plan.
type Installment struct {
	Index  int             `json:"index"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// ForTotal returns the two canonical plans for an order total.
// Nothing is persisted; callers recompute whenever the total changes.
func ForTotal(total decimal.Decimal) []Option {
	total = total.Round(2)
	n := decimal.NewFromInt(installmentCount)

	interest := decimal.NewFromInt(InterestAPRBps).Div(decimal.NewFromInt(10000))
	withInterest := total.Mul(decimal.NewFromInt(1).Add(interest)).Round(2)

	return []Option{
		{
			ID:                   PayIn4ID,
			Label:                "Pay in 4",
			Description:          "4 interest-free payments",
			InstallmentCount:     installmentCount,
			AmountPerInstallment: total.Div(n).Round(2),
			FrequencyUnit:        Biweekly,
			APRBps:               0,
			TotalAmount:          total,
		},
		{
			ID:                   PayOver3MonthsID,
			Label:                "Pay over 3 months",
			Description:          "Monthly payments with interest",
			InstallmentCount:     installmentCount,
			AmountPerInstallment: withInterest.Div(n).Round(2),
			FrequencyUnit:        Monthly,
			APRBps:               InterestAPRBps,
			TotalAmount:          withInterest,
		},
	}
}

// Find looks up a plan by id.
func Find(options []Option, id string) (Option, bool) {
	for _, o := range options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Schedule lays out the installments of a plan with display labels.
func Schedule(o Option) []Installment {
	out := make([]Installment, 0, o.InstallmentCount)
	for i := 0; i < o.InstallmentCount; i++ {
		out = append(out, Installment{
			Index:  i,
			Label:  dueLabel(o.FrequencyUnit, i),
			Amount: o.AmountPerInstallment,
		})
	}
	return out
}

func dueLabel(f Frequency, i int) string {
	if i == 0 {
		return "Due today"
	}
	switch f {
	case Monthly:
		if i == 1 {
			return "In 1 month"
		}
		return fmt.Sprintf("In %d months", i)
	default:
		return fmt.Sprintf("In %d weeks", i*2)
	}
}

// APRPercent renders an APR in basis points as a whole-percent label.
func APRPercent(bps int) string {
	return fmt.Sprintf("%d%%", bps/100)
}
