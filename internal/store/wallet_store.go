package store

import (
	"context"

	"cryptoexchange/internal/models"

	"github.com/shopspring/decimal"
)

type WalletStore struct {
	db DB
}

func NewWalletStore(db DB) *WalletStore {
	return &WalletStore{db: db}
}

func (s *WalletStore) Create(ctx context.Context, tx Execer, id, userID, currency string, balance decimal.Decimal) error {
	query := `
		INSERT INTO wallets (id, user_id, currency, balance)
		VALUES ($1, $2, $3, $4)
	`
	_, err := tx.ExecContext(ctx, query, id, userID, currency, balance)
	return err
}

func (s *WalletStore) ListByUser(ctx context.Context, userID string) ([]models.Wallet, error) {
	var rows []models.Wallet
	err := s.db.SelectContext(ctx, &rows, `
		SELECT w.id, w.user_id, w.currency, COALESCE(c.name, w.currency) AS currency_name,
		       w.balance, w.created_at, w.updated_at
		FROM wallets w
		LEFT JOIN cryptocurrencies c ON c.symbol = w.currency
		WHERE w.user_id = $1
		ORDER BY w.currency
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *WalletStore) GetByUserAndCurrency(ctx context.Context, userID, currency string) (models.Wallet, error) {
	return s.Find(ctx, s.db, userID, currency)
}

// Find reads a wallet through q, which may be the pool or an open transaction.
func (s *WalletStore) Find(ctx context.Context, q Getter, userID, currency string) (models.Wallet, error) {
	var row models.Wallet
	err := q.GetContext(ctx, &row, `
		SELECT w.id, w.user_id, w.currency, COALESCE(c.name, w.currency) AS currency_name,
		       w.balance, w.created_at, w.updated_at
		FROM wallets w
		LEFT JOIN cryptocurrencies c ON c.symbol = w.currency
		WHERE w.user_id = $1 AND w.currency = $2
	`, userID, currency)
	if err != nil {
		return models.Wallet{}, err
	}
	return row, nil
}

func (s *WalletStore) GetForUpdate(ctx context.Context, tx Getter, userID, currency string) (models.Wallet, error) {
	var row models.Wallet
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, currency, balance, created_at, updated_at
		FROM wallets
		WHERE user_id = $1 AND currency = $2
		FOR UPDATE
	`, userID, currency)
	if err != nil {
		return models.Wallet{}, err
	}
	return row, nil
}

// Debit subtracts amount and returns the updated row. The balance guard makes
// the statement match no row, and so return sql.ErrNoRows, rather than go negative.
func (s *WalletStore) Debit(ctx context.Context, tx Getter, userID, currency string, amount decimal.Decimal) (models.Wallet, error) {
	var row models.Wallet
	err := tx.GetContext(ctx, &row, `
		UPDATE wallets
		SET balance = balance - $1, updated_at = NOW()
		WHERE user_id = $2 AND currency = $3 AND balance >= $1
		RETURNING id, user_id, currency, balance, created_at, updated_at
	`, amount, userID, currency)
	if err != nil {
		return models.Wallet{}, err
	}
	return row, nil
}

// Credit adds amount to the (user, currency) wallet, creating it with id when
// it does not exist yet.
func (s *WalletStore) Credit(ctx context.Context, tx Getter, id, userID, currency string, amount decimal.Decimal) (models.Wallet, error) {
	var row models.Wallet
	err := tx.GetContext(ctx, &row, `
		INSERT INTO wallets (id, user_id, currency, balance)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, currency)
		DO UPDATE SET balance = wallets.balance + EXCLUDED.balance, updated_at = NOW()
		RETURNING id, user_id, currency, balance, created_at, updated_at
	`, id, userID, currency, amount)
	if err != nil {
		return models.Wallet{}, err
	}
	return row, nil
}

func (s *WalletStore) Exists(ctx context.Context, tx Getter, userID, currency string) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM wallets WHERE user_id = $1 AND currency = $2)
	`, userID, currency)
	return exists, err
}
