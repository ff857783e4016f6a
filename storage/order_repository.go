package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"bnpl-checkout/order"
)

// OrderRepository keeps a durable history of placed orders.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Record(ctx context.Context, sessionID string, o order.Summary) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", o.OrderNumber, err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO orders (order_number, session_id, payment_method, total_amount, payload) VALUES (?, ?, ?, ?, ?)`,
		o.OrderNumber, sessionID, string(o.PaymentMethod), o.TotalAmount.String(), string(payload))
	if err != nil {
		return fmt.Errorf("record order %s: %w", o.OrderNumber, err)
	}
	return nil
}

// ListBySession returns a session's orders, newest first.
func (r *OrderRepository) ListBySession(ctx context.Context, sessionID string) ([]order.Summary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload FROM orders WHERE session_id = ? ORDER BY created_at DESC, rowid DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []order.Summary
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		var o order.Summary
		if err := json.Unmarshal([]byte(payload), &o); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
