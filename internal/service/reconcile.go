package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/punchamoorthee/walletops/internal/models"
)

const topupDescription = "Wallet top-up via payment gateway"

// Gateways are inconsistent about field names across versions and modes, so
// each value is extracted by trying known spellings in priority order.
var (
	orderIDFields  = []string{"ORDERID", "orderId", "order_id", "txnid", "merchantTxnNo"}
	respCodeFields = []string{"RESPCODE", "respCode", "response_code", "status_code"}
	respMsgFields  = []string{"RESPMSG", "respMsg", "message"}
)

func firstField(payload map[string]string, names []string) string {
	for _, name := range names {
		if v, ok := payload[name]; ok && v != "" {
			return v
		}
	}
	return ""
}

// ReconcileCallback maps one gateway callback delivery onto its pending order
// and, for approved payments, credits the target account exactly once. The
// gateway redelivers callbacks, so this function is safe to invoke any number
// of times with the same payload: the order status is read and settled inside
// the same transaction as the credit.
func (w *Wallet) ReconcileCallback(ctx context.Context, payload map[string]string) (*models.ReconcileResult, error) {
	orderID := firstField(payload, orderIDFields)
	if orderID == "" {
		reconcileTotal.WithLabelValues("missing_order_id").Inc()
		return nil, ErrMissingOrderID
	}

	rawResponse, err := json.Marshal(payload)
	if err != nil {
		return nil, wrap(KindInternal, "payload marshal failed", err)
	}

	var result *models.ReconcileResult
	err = w.withRetry(ctx, func(tx pgx.Tx) error {
		res, txErr := w.reconcileTx(ctx, tx, orderID, payload, rawResponse)
		if txErr != nil {
			return txErr
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	reconcileTotal.WithLabelValues(reconcileOutcome(result)).Inc()
	return result, nil
}

func reconcileOutcome(res *models.ReconcileResult) string {
	switch {
	case res.Replayed:
		return "replayed"
	case res.Status == models.OrderStatusCompleted:
		return "completed"
	default:
		return "failed"
	}
}

func (w *Wallet) reconcileTx(ctx context.Context, tx pgx.Tx, orderID string, payload map[string]string, rawResponse []byte) (*models.ReconcileResult, error) {
	var (
		accountID string
		amount    float64
		status    string
	)
	err := tx.QueryRow(ctx,
		"SELECT account_id, amount, status FROM orders WHERE id = $1 FOR UPDATE", orderID,
	).Scan(&accountID, &amount, &status)
	if err == pgx.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, wrap(KindInternal, "order load failed", err)
	}

	// Idempotency gate. Terminal states are sticky: a repeat delivery replays
	// the stored outcome without touching the ledger. This check shares the
	// transaction with the credit below, closing the check-then-credit race.
	if status != models.OrderStatusPending {
		return &models.ReconcileResult{
			OrderID:  orderID,
			Status:   status,
			Credited: amount,
			Replayed: true,
		}, nil
	}

	code := firstField(payload, respCodeFields)
	msg := firstField(payload, respMsgFields)

	if !w.approvedCodes[code] {
		if err := w.settleOrder(ctx, tx, orderID, models.OrderStatusFailed, rawResponse); err != nil {
			return nil, err
		}
		return &models.ReconcileResult{
			OrderID: orderID,
			Status:  models.OrderStatusFailed,
			Code:    code,
			Message: msg,
		}, nil
	}

	ref, err := LocateAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	row, err := lockAccountRow(ctx, tx, ref)
	if err != nil {
		return nil, wrap(KindInternal, "lock acquisition failed", err)
	}
	balance := row.balance(ref.Table)
	if !row.exists {
		if err := materializeAccount(ctx, tx, ref, "user"); err != nil {
			return nil, err
		}
	}

	newBalance := balance + amount
	if err := writeBalance(ctx, tx, ref, newBalance); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO wallet_transactions (id, type, from_account, to_account, amount, description, balance_before, balance_after, order_id, status)
		VALUES ($1, $2, NULL, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.NewString(), models.TxTypeCredit, ref.ID, amount, topupDescription,
		balance, newBalance, orderID, models.TxStatusCompleted,
	)
	if err != nil {
		return nil, wrap(KindInternal, "ledger entry insert failed", err)
	}

	if err := w.settleOrder(ctx, tx, orderID, models.OrderStatusCompleted, rawResponse); err != nil {
		return nil, err
	}

	return &models.ReconcileResult{
		OrderID:    orderID,
		Status:     models.OrderStatusCompleted,
		Credited:   amount,
		NewBalance: newBalance,
		Code:       code,
		Message:    msg,
	}, nil
}

func (w *Wallet) settleOrder(ctx context.Context, tx pgx.Tx, orderID, status string, rawResponse []byte) error {
	_, err := tx.Exec(ctx,
		"UPDATE orders SET status = $1, gateway_response = $2, updated_at = now() WHERE id = $3",
		status, rawResponse, orderID,
	)
	if err != nil {
		return wrap(KindInternal, "order settle failed", err)
	}
	return nil
}
