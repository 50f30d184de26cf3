package service

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/punchamoorthee/walletops/internal/models"
)

const transferDescription = "Distributor recharge for user"

// maxTxAttempts bounds internal retries on serialization failures before the
// error is surfaced as retryable to the caller.
const maxTxAttempts = 3

// DistributorIndex is the membership set of accounts authorized to fund
// other accounts. Authentication itself happens upstream; this is only the
// role check.
type DistributorIndex interface {
	IsDistributor(ctx context.Context, uid string) (bool, error)
}

// GatewayOptions identifies the external payment gateway an order resumes
// against. Secrets come from configuration at startup.
type GatewayOptions struct {
	ID         string
	Mode       string
	MerchantID string
	ReturnURL  string
}

// Options are the policy knobs of the wallet engine.
type Options struct {
	MinTransfer   float64
	ApprovedCodes map[string]bool
	Gateway       GatewayOptions
}

// Wallet executes all balance-affecting operations against the ledger store.
type Wallet struct {
	db            *pgxpool.Pool
	distributors  DistributorIndex
	minTransfer   float64
	approvedCodes map[string]bool
	gateway       GatewayOptions
}

func NewWallet(db *pgxpool.Pool, distributors DistributorIndex, opts Options) *Wallet {
	return &Wallet{
		db:            db,
		distributors:  distributors,
		minTransfer:   opts.MinTransfer,
		approvedCodes: opts.ApprovedCodes,
		gateway:       opts.Gateway,
	}
}

// Transfer atomically debits the caller and credits the destination account,
// recording one wallet transaction and one distributor payment. All checks
// run before any write; on any failure inside the transaction nothing is
// committed.
func (w *Wallet) Transfer(ctx context.Context, callerID string, req models.TransferRequest) (*models.TransferResult, error) {
	if callerID == "" {
		return nil, errf(KindPermissionDenied, "caller identity required")
	}
	if req.ToUserID == "" {
		return nil, errf(KindInvalidArgument, "destination account required")
	}
	if req.ToUserID == callerID {
		return nil, errf(KindInvalidArgument, "self-transfer not allowed")
	}
	amount := req.Amount
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, errf(KindInvalidArgument, "amount must be a positive number")
	}
	if amount < w.minTransfer {
		return nil, errf(KindFailedPrecondition,
			fmt.Sprintf("minimum transfer is %s", formatBalance(w.minTransfer)))
	}

	isDist, err := w.distributors.IsDistributor(ctx, callerID)
	if err != nil {
		return nil, wrap(KindInternal, "distributor index check failed", err)
	}
	if !isDist {
		return nil, ErrNotDistributor
	}

	// Resolution outside the transaction only picks the table; balances are
	// re-read under lock inside it.
	senderRef, err := LocateAccount(ctx, w.db, callerID)
	if err != nil {
		return nil, err
	}
	receiverRef, err := LocateAccount(ctx, w.db, req.ToUserID)
	if err != nil {
		return nil, err
	}

	var result *models.TransferResult
	err = w.withRetry(ctx, func(tx pgx.Tx) error {
		res, txErr := w.transferTx(ctx, tx, senderRef, receiverRef, req)
		if txErr != nil {
			return txErr
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (w *Wallet) transferTx(ctx context.Context, tx pgx.Tx, senderRef, receiverRef models.AccountRef, req models.TransferRequest) (*models.TransferResult, error) {
	// Row locks are always taken in (table, id) order so two transfers
	// touching the same pair cannot deadlock.
	first, second := senderRef, receiverRef
	if second.Table < first.Table || (second.Table == first.Table && second.ID < first.ID) {
		first, second = second, first
	}

	firstRow, err := lockAccountRow(ctx, tx, first)
	if err != nil {
		return nil, wrap(KindInternal, "lock acquisition failed", err)
	}
	secondRow, err := lockAccountRow(ctx, tx, second)
	if err != nil {
		return nil, wrap(KindInternal, "lock acquisition failed", err)
	}

	senderRow, receiverRow := firstRow, secondRow
	if first != senderRef {
		senderRow, receiverRow = secondRow, firstRow
	}

	senderBal := senderRow.balance(senderRef.Table)
	receiverBal := receiverRow.balance(receiverRef.Table)

	if senderBal < req.Amount {
		return nil, ErrInsufficientFunds
	}

	// Lazy materialization: absent rows start at zero before the delta.
	if !senderRow.exists {
		if err := materializeAccount(ctx, tx, senderRef, "distributor"); err != nil {
			return nil, err
		}
	}
	if !receiverRow.exists {
		if err := materializeAccount(ctx, tx, receiverRef, "user"); err != nil {
			return nil, err
		}
	}

	newSender := senderBal - req.Amount
	newReceiver := receiverBal + req.Amount

	if err := writeBalance(ctx, tx, senderRef, newSender); err != nil {
		return nil, err
	}
	if err := writeBalance(ctx, tx, receiverRef, newReceiver); err != nil {
		return nil, err
	}

	entryID := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO wallet_transactions (id, type, from_account, to_account, amount, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entryID, models.TxTypeTransfer, senderRef.ID, receiverRef.ID, req.Amount,
		transferDescription, models.TxStatusCompleted,
	)
	if err != nil {
		return nil, wrap(KindInternal, "ledger entry insert failed", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO distributor_payments (id, user_id, user_name, amount, distributor_id, type, status)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, 'wallet_transfer', $6)`,
		uuid.NewString(), receiverRef.ID, req.ToUserName, req.Amount, senderRef.ID,
		models.TxStatusCompleted,
	)
	if err != nil {
		return nil, wrap(KindInternal, "distributor payment insert failed", err)
	}

	return &models.TransferResult{
		LedgerEntryID:      entryID,
		FromAccountID:      senderRef.ID,
		ToAccountID:        receiverRef.ID,
		Amount:             req.Amount,
		NewSenderBalance:   newSender,
		NewReceiverBalance: newReceiver,
	}, nil
}

func materializeAccount(ctx context.Context, tx pgx.Tx, ref models.AccountRef, role string) error {
	_, err := tx.Exec(ctx,
		fmt.Sprintf("INSERT INTO %s (id, owner_id, role, wallet_balance) VALUES ($1, $1, $2, '0.00')", ref.Table),
		ref.ID, role,
	)
	if err != nil {
		return wrap(KindInternal, "account materialization failed", err)
	}
	return nil
}

func writeBalance(ctx context.Context, tx pgx.Tx, ref models.AccountRef, balance float64) error {
	_, err := tx.Exec(ctx,
		fmt.Sprintf("UPDATE %s SET wallet_balance = $1, updated_at = now() WHERE id = $2", ref.Table),
		formatBalance(balance), ref.ID,
	)
	if err != nil {
		return wrap(KindInternal, "balance update failed", err)
	}
	return nil
}

// withRetry runs fn inside a RepeatableRead transaction, retrying on
// serialization failures and on the insert race of two transactions lazily
// materializing the same account row. Anything else aborts cleanly with no
// partial writes.
func (w *Wallet) withRetry(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if attempt > 0 {
			txRetries.Inc()
		}
		tx, err := w.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
		if err != nil {
			return wrap(KindInternal, "tx begin failed", err)
		}

		err = fn(tx)
		if err == nil {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				if isSerializationFailure(commitErr) {
					lastErr = commitErr
					continue
				}
				return wrap(KindInternal, "tx commit failed", commitErr)
			}
			return nil
		}

		_ = tx.Rollback(ctx)
		if isSerializationFailure(err) || isUniqueViolation(err) {
			lastErr = err
			continue
		}
		return err
	}
	return wrap(KindConflict, "transaction aborted by concurrent update, retries exhausted", lastErr)
}
