package cart

import "github.com/shopspring/decimal"

// Item is a cart line.
type Item struct {
	Product
	Quantity int `json:"quantity"`
}

// State is a cart. Total and ItemCount are always derived from Items.
type State struct {
	Items     []Item          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

// NewState builds a state from items, dropping lines with no quantity.
func NewState(items []Item) State {
	kept := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Quantity > 0 {
			kept = append(kept, it)
		}
	}
	return recompute(kept)
}

func recompute(items []Item) State {
	total := decimal.Zero
	count := 0
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		count += it.Quantity
	}
	return State{Items: items, Total: total, ItemCount: count}
}

func (s State) clone() []Item {
	return append(make([]Item, 0, len(s.Items)+1), s.Items...)
}

// Add increments the product's quantity, or inserts it with quantity 1.
func Add(s State, p Product) State {
	items := s.clone()
	for i := range items {
		if items[i].ID == p.ID {
			items[i].Quantity++
			return recompute(items)
		}
	}
	return recompute(append(items, Item{Product: p, Quantity: 1}))
}

// Remove drops the line with id. Unknown ids leave the cart unchanged.
func Remove(s State, id string) State {
	items := make([]Item, 0, len(s.Items))
	for _, it := range s.Items {
		if it.ID != id {
			items = append(items, it)
		}
	}
	return recompute(items)
}

// SetQuantity sets a line's quantity; n <= 0 removes the line.
func SetQuantity(s State, id string, n int) State {
	if n <= 0 {
		return Remove(s, id)
	}
	items := s.clone()
	for i := range items {
		if items[i].ID == id {
			items[i].Quantity = n
		}
	}
	return recompute(items)
}

// Clear empties the cart.
func Clear(State) State {
	return recompute([]Item{})
}
