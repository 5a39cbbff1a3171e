// Package ledger records round winnings against user balances.
package ledger

import (
	"context"
	"fmt"

	"github.com/torisu27/jeobot/internal/db"
)

type Service struct {
	db *db.DB
}

func NewService(database *db.DB) *Service {
	return &Service{db: database}
}

// Settle applies a signed amount to the user's balance and records the
// transaction. Best effort by contract: callers log failures, they do not
// retry or roll back announced results.
func (s *Service) Settle(ctx context.Context, userID, reason string, amount int64, contextIDs ...string) error {
	tx, err := s.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (user_id, amount, reason, context_ids)
		VALUES ($1, $2, $3, $4)
	`, userID, amount, reason, contextIDs)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO balances (user_id, amount) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET amount = balances.amount + $2, updated_at = CURRENT_TIMESTAMP
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	return tx.Commit(ctx)
}

// Balance returns the user's current balance, zero if they have none.
func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	var amount int64
	err := s.db.Pool().QueryRow(ctx,
		"SELECT COALESCE((SELECT amount FROM balances WHERE user_id = $1), 0)",
		userID,
	).Scan(&amount)
	return amount, err
}

type Entry struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
}

// Top returns the highest balances, richest first.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.Pool().Query(ctx, `
		SELECT user_id, amount FROM balances
		ORDER BY amount DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.Amount); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type Transaction struct {
	ID         int64    `json:"id"`
	Amount     int64    `json:"amount"`
	Reason     string   `json:"reason"`
	ContextIDs []string `json:"context_ids"`
}

// Transactions returns the user's most recent transactions.
func (s *Service) Transactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	rows, err := s.db.Pool().Query(ctx, `
		SELECT id, amount, reason, context_ids FROM transactions
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.Amount, &t.Reason, &t.ContextIDs); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
