package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"bnpl-checkout/cart"
)

const cartFormat = "cart_state_v1"

type cartSnapshot struct {
	Items []cart.Item `json:"items"`
}

// CartRepository persists cart item lists as cart_state_v1 JSON snapshots.
type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

// Load returns nil items for an unknown cart.
func (r *CartRepository) Load(ctx context.Context, cartID string) ([]cart.Item, error) {
	var format, payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT format, payload FROM cart_snapshots WHERE cart_id = ?`, cartID,
	).Scan(&format, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", cartID, err)
	}
	if format != cartFormat {
		return nil, fmt.Errorf("load cart %s: unsupported snapshot format %q", cartID, format)
	}

	var snap cartSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", cartID, err)
	}
	return snap.Items, nil
}

func (r *CartRepository) Save(ctx context.Context, cartID string, items []cart.Item) error {
	if items == nil {
		items = []cart.Item{}
	}
	payload, err := json.Marshal(cartSnapshot{Items: items})
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", cartID, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO cart_snapshots (cart_id, format, payload, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(cart_id) DO UPDATE SET
			format = excluded.format,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		cartID, cartFormat, string(payload))
	if err != nil {
		return fmt.Errorf("save cart %s: %w", cartID, err)
	}
	return nil
}
