package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"regexp"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/punchamoorthee/walletops/internal/models"
)

// Candidate balance locations, probed in order. Historical migrations left
// account rows in any of these three tables; the first existing row is
// authoritative. This is a compatibility shim, not multi-tenancy.
var accountTables = []string{"users", "wallets", "distributors"}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so resolution can run
// against the pool for probes and against the open transaction for re-reads.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// LocateAccount returns a reference to the table currently holding the
// account's balance row. When no row exists anywhere it returns a reference
// to the default (users) location without creating it.
func LocateAccount(ctx context.Context, q querier, id string) (models.AccountRef, error) {
	for _, table := range accountTables {
		var exists bool
		err := q.QueryRow(ctx,
			fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)", table), id,
		).Scan(&exists)
		if err != nil {
			return models.AccountRef{}, wrap(KindInternal, "account probe failed", err)
		}
		if exists {
			return models.AccountRef{Table: table, ID: id}, nil
		}
	}
	return models.AccountRef{Table: accountTables[0], ID: id}, nil
}

// accountExists reports whether any candidate location holds a row for id.
func accountExists(ctx context.Context, q querier, id string) (bool, error) {
	for _, table := range accountTables {
		var exists bool
		err := q.QueryRow(ctx,
			fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)", table), id,
		).Scan(&exists)
		if err != nil {
			return false, wrap(KindInternal, "account probe failed", err)
		}
		if exists {
			return true, nil
		}
	}
	return false, nil
}

// accountRow is a balance row read under FOR UPDATE inside a transaction.
type accountRow struct {
	exists  bool
	primary *string // wallet_balance column
	legacy  *string // balance column, pre-migration rows
}

// lockAccountRow re-reads the resolved row inside the transaction with a row
// lock. Balances resolved outside the transaction are never used for money
// math; only this read is.
func lockAccountRow(ctx context.Context, tx querier, ref models.AccountRef) (accountRow, error) {
	var row accountRow
	err := tx.QueryRow(ctx,
		fmt.Sprintf("SELECT wallet_balance, balance FROM %s WHERE id = $1 FOR UPDATE", ref.Table), ref.ID,
	).Scan(&row.primary, &row.legacy)
	if errors.Is(err, pgx.ErrNoRows) {
		return accountRow{}, nil
	}
	if err != nil {
		return accountRow{}, err
	}
	row.exists = true
	return row, nil
}

// balance normalizes the row's stored value, counting unparseable input so
// silent data corruption shows up on a dashboard instead of nowhere.
func (r accountRow) balance(table string) float64 {
	n, ok := NormalizeBalance(r.primary, r.legacy)
	if !ok {
		balanceParseFailures.WithLabelValues(table).Inc()
		raw := r.primary
		if raw == nil {
			raw = r.legacy
		}
		log.Printf("warn: unparseable balance in %s treated as zero: %q", table, *raw)
	}
	return n
}

// AccountBalance resolves an account and returns its normalized balance.
func (w *Wallet) AccountBalance(ctx context.Context, id string) (*models.Account, error) {
	if id == "" {
		return nil, errf(KindInvalidArgument, "account id required")
	}
	ref, err := LocateAccount(ctx, w.db, id)
	if err != nil {
		return nil, err
	}

	acct := models.Account{Ref: ref}
	var primary, legacy *string
	err = w.db.QueryRow(ctx,
		fmt.Sprintf("SELECT owner_id, role, wallet_balance, balance, created_at, updated_at FROM %s WHERE id = $1", ref.Table), ref.ID,
	).Scan(&acct.OwnerID, &acct.Role, &primary, &legacy, &acct.CreatedAt, &acct.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, wrap(KindInternal, "account load failed", err)
	}

	acct.Balance = accountRow{exists: true, primary: primary, legacy: legacy}.balance(ref.Table)
	return &acct, nil
}

var balanceCleanup = regexp.MustCompile(`[^0-9.\-]+`)

// NormalizeBalance coerces a stored balance into a number. The primary column
// wins over the legacy one. Currency-formatted strings ("₹1,234.50") are
// stripped down to digits, decimal point and minus sign before parsing.
// Missing or unparseable values normalize to zero; the second return is false
// only when a value was present but could not be parsed.
func NormalizeBalance(primary, legacy *string) (float64, bool) {
	raw := primary
	if raw == nil {
		raw = legacy
	}
	if raw == nil {
		return 0, true
	}
	cleaned := balanceCleanup.ReplaceAllString(*raw, "")
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// formatBalance is the canonical on-disk representation for balances this
// service writes. Reads still go through NormalizeBalance.
func formatBalance(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
}
