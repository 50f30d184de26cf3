package models

import (
	"encoding/json"
	"time"
)

// Ledger entry types.
const (
	TxTypeTransfer = "transfer"
	TxTypeCredit   = "credit"
	TxTypeDebit    = "debit"
)

// Ledger entry statuses.
const (
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// Order statuses. PENDING may move to COMPLETED or FAILED; terminal states
// are sticky and never reversed.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusFailed    = "FAILED"
)

// AccountRef names the table currently holding an account's balance row.
// Balances migrated from older deployments may live in any of three tables;
// see service.LocateAccount.
type AccountRef struct {
	Table string `json:"table"`
	ID    string `json:"id"`
}

// Account is the normalized view of a balance row regardless of which table
// it was resolved from.
type Account struct {
	Ref       AccountRef `json:"ref"`
	OwnerID   string     `json:"owner_id"`
	Role      string     `json:"role"`
	Balance   float64    `json:"balance"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TransferRequest is the payload from the client.
type TransferRequest struct {
	ToUserID   string  `json:"to_user_id"`
	ToUserName string  `json:"to_user_name,omitempty"`
	Amount     float64 `json:"amount"`
}

// TransferResult reports a committed transfer.
type TransferResult struct {
	LedgerEntryID      string  `json:"ledger_entry_id"`
	FromAccountID      string  `json:"from_account_id"`
	ToAccountID        string  `json:"to_account_id"`
	Amount             float64 `json:"amount"`
	NewSenderBalance   float64 `json:"new_sender_balance"`
	NewReceiverBalance float64 `json:"new_receiver_balance"`
}

// WalletTransaction is one immutable row of the transaction log.
// BalanceBefore/After are recorded for reconciliation-style credits only.
type WalletTransaction struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	FromAccount   string    `json:"from_account,omitempty"`
	ToAccount     string    `json:"to_account"`
	Amount        float64   `json:"amount"`
	Description   string    `json:"description"`
	BalanceBefore *float64  `json:"balance_before,omitempty"`
	BalanceAfter  *float64  `json:"balance_after,omitempty"`
	OrderID       string    `json:"order_id,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Order is a tracked external top-up attempt awaiting gateway confirmation.
type Order struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"account_id"`
	Amount          float64         `json:"amount"`
	Status          string          `json:"status"`
	Gateway         string          `json:"gateway"`
	Mode            string          `json:"mode"`
	ResumePayload   json.RawMessage `json:"resume_payload"`
	GatewayResponse json.RawMessage `json:"gateway_response,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CreateOrderRequest is the payload for reserving a top-up order.
type CreateOrderRequest struct {
	Amount float64 `json:"amount"`
}

// ReconcileResult reports the outcome of one gateway callback delivery.
// Replayed is true when the order was already terminal and no ledger write
// happened on this delivery.
type ReconcileResult struct {
	OrderID    string  `json:"order_id"`
	Status     string  `json:"status"`
	Credited   float64 `json:"credited,omitempty"`
	NewBalance float64 `json:"new_balance,omitempty"`
	Replayed   bool    `json:"replayed"`
	Code       string  `json:"gateway_code,omitempty"`
	Message    string  `json:"gateway_message,omitempty"`
}
