package order

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bnpl-checkout/cart"
)

// PaymentMethod is how an order was paid.
type PaymentMethod string

const (
	PaymentCredit PaymentMethod = "credit"
	PaymentBNPL   PaymentMethod = "bnpl"
)

var (
	Shipping = decimal.RequireFromString("15.00")
	TaxRate  = decimal.RequireFromString("0.08")
)

var ErrEmptyCart = errors.New("cart is empty")

// Line is an item as shown on the confirmation screen.
type Line struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image"`
}

// Summary is the completed order read by the confirmation screen.
type Summary struct {
	OrderNumber   string          `json:"orderNumber"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Shipping      decimal.Decimal `json:"shipping"`
	Tax           decimal.Decimal `json:"tax"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Items         []Line          `json:"items"`
}

// Place prices a cart into an order summary.
func Place(st cart.State, method PaymentMethod) (Summary, error) {
	if len(st.Items) == 0 {
		return Summary{}, ErrEmptyCart
	}
	switch method {
	case PaymentCredit, PaymentBNPL:
	default:
		return Summary{}, fmt.Errorf("unknown payment method %q", method)
	}

	lines := make([]Line, 0, len(st.Items))
	for _, it := range st.Items {
		lines = append(lines, Line{
			ID:       it.ID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
			Image:    it.Image,
		})
	}
	return Summary{
		OrderNumber:   NewOrderNumber(),
		Subtotal:      st.Total,
		Shipping:      Shipping,
		Tax:           taxOn(st.Total),
		TotalAmount:   Total(st.Total),
		PaymentMethod: method,
		Items:         lines,
	}, nil
}

// Total is what the shopper pays for a cart subtotal.
func Total(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Add(Shipping).Add(taxOn(subtotal))
}

func taxOn(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(TaxRate).Round(2)
}

// NewOrderNumber returns a random 9-character upper-case base-36 string.
func NewOrderNumber() string {
	id := uuid.New()
	s := strings.ToUpper(new(big.Int).SetBytes(id[:]).Text(36))
	for len(s) < 9 {
		s = "0" + s
	}
	return s[len(s)-9:]
}
