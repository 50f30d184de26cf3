package service

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/punchamoorthee/walletops/internal/models"
)

// CreateOrder reserves a PENDING top-up order ahead of the gateway redirect.
// It writes no ledger entry; the order id is the idempotency key the later
// callback reconciles against.
func (w *Wallet) CreateOrder(ctx context.Context, accountID string, amount float64) (*models.Order, error) {
	if accountID == "" {
		return nil, errf(KindInvalidArgument, "account id required")
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, errf(KindInvalidArgument, "amount must be a positive number")
	}

	exists, err := accountExists(ctx, w.db, accountID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrAccountNotFound
	}

	orderID := newOrderID(time.Now().UTC())

	resume, err := json.Marshal(map[string]string{
		"gateway":     w.gateway.ID,
		"mode":        w.gateway.Mode,
		"merchant_id": w.gateway.MerchantID,
		"return_url":  w.gateway.ReturnURL,
		"order_id":    orderID,
	})
	if err != nil {
		return nil, wrap(KindInternal, "resume payload marshal failed", err)
	}

	var order models.Order
	err = w.db.QueryRow(ctx, `
		INSERT INTO orders (id, account_id, amount, status, gateway, mode, resume_payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, account_id, amount, status, gateway, mode, resume_payload, created_at, updated_at`,
		orderID, accountID, amount, models.OrderStatusPending,
		w.gateway.ID, w.gateway.Mode, resume,
	).Scan(
		&order.ID,
		&order.AccountID,
		&order.Amount,
		&order.Status,
		&order.Gateway,
		&order.Mode,
		&order.ResumePayload,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, wrap(KindInternal, "order insert failed", err)
	}
	return &order, nil
}

// GetOrder loads an order for status polling after the redirect returns.
func (w *Wallet) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := w.db.QueryRow(ctx, `
		SELECT id, account_id, amount, status, gateway, mode, resume_payload, gateway_response, created_at, updated_at
		FROM orders WHERE id = $1`, orderID,
	).Scan(
		&order.ID,
		&order.AccountID,
		&order.Amount,
		&order.Status,
		&order.Gateway,
		&order.Mode,
		&order.ResumePayload,
		&order.GatewayResponse,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, wrap(KindInternal, "order load failed", err)
	}
	return &order, nil
}

// newOrderID builds a unique, timestamp-prefixed order id. The prefix keeps
// ids roughly monotonic for operators scanning logs; the uuid-derived suffix
// makes collisions negligible.
func newOrderID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return "ORD" + now.Format("20060102150405") + suffix
}
