package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/punchamoorthee/walletops/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

// TransactionsByAccount returns ledger entries touching the account, newest
// first. The log is append-only; this is a read-only view.
func (s *Store) TransactionsByAccount(ctx context.Context, accountID string, limit int) ([]models.WalletTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, type, COALESCE(from_account, ''), to_account, amount, description,
		       balance_before, balance_after, COALESCE(order_id, ''), status, created_at
		FROM wallet_transactions
		WHERE to_account = $1 OR from_account = $1
		ORDER BY created_at DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.WalletTransaction
	for rows.Next() {
		var entry models.WalletTransaction
		if err := rows.Scan(
			&entry.ID,
			&entry.Type,
			&entry.FromAccount,
			&entry.ToAccount,
			&entry.Amount,
			&entry.Description,
			&entry.BalanceBefore,
			&entry.BalanceAfter,
			&entry.OrderID,
			&entry.Status,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
