package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/blog-content-api/internal/database"
	"github.com/blog-content-api/internal/models"
	"github.com/google/uuid"
)

const ledgerColumns = `id, user_id, kind, money_amount, change, bonus, balance_after, created_at`

// walletRepo is the concrete implementation of WalletRepository
type walletRepo struct {
	db *database.DB
}

// NewWalletRepo creates a new wallet repository
func NewWalletRepo(db *database.DB) WalletRepository {
	return &walletRepo{db: db}
}

// Apply locks the user row, hands the account to fn and writes back the
// result together with the ledger entry fn returns.
func (r *walletRepo) Apply(ctx context.Context, userID string, fn LedgerFunc) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		acct := &models.Account{UserID: userID}
		err := tx.QueryRowContext(ctx,
			`SELECT wallet_balance, is_vip FROM users WHERE id = $1 FOR UPDATE`,
			userID,
		).Scan(&acct.Balance, &acct.IsVIP)
		if err == sql.ErrNoRows {
			return models.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		// Runs after the lock is held so it sees entries committed by the
		// previous holder.
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM wallet_ledger WHERE user_id = $1 AND bonus > 0)`,
			userID,
		).Scan(&acct.BonusGranted)
		if err != nil {
			return err
		}

		entry, err = fn(acct)
		if err != nil {
			return err
		}
		if acct.Balance < 0 {
			return models.ErrInsufficientBalance
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET wallet_balance = $2, is_vip = $3, updated_at = NOW() WHERE id = $1`,
			userID, acct.Balance, acct.IsVIP,
		); err != nil {
			return err
		}

		if entry.ID == "" {
			entry.ID = uuid.New().String()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now()
		}
		entry.UserID = userID
		entry.BalanceAfter = acct.Balance

		_, err = tx.ExecContext(ctx, `
			INSERT INTO wallet_ledger (`+ledgerColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, entry.ID, entry.UserID, entry.Kind, entry.MoneyAmount, entry.Change, entry.Bonus,
			entry.BalanceAfter, entry.CreatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListEntries returns the user's most recent ledger entries
func (r *walletRepo) ListEntries(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ledgerColumns+` FROM wallet_ledger
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*models.LedgerEntry{}
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// StreamEntries streams the user's full ledger in chronological order
func (r *walletRepo) StreamEntries(ctx context.Context, userID string, callback func(*models.LedgerEntry) error) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ledgerColumns+` FROM wallet_ledger
		WHERE user_id = $1 ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return err
		}
		if err := callback(entry); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanLedgerEntry(row rowScanner) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := row.Scan(
		&entry.ID, &entry.UserID, &entry.Kind, &entry.MoneyAmount, &entry.Change,
		&entry.Bonus, &entry.BalanceAfter, &entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
