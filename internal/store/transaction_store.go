package store

import (
	"context"
	"time"

	"cryptoexchange/internal/models"

	"github.com/shopspring/decimal"
)

type TransactionStore struct {
	db DB
}

type TransactionInput struct {
	ID           string
	UserID       string
	Type         string
	FromCurrency string
	ToCurrency   string
	FromAmount   decimal.Decimal
	ToAmount     decimal.Decimal
	Fee          decimal.Decimal
	ExchangeRate decimal.Decimal
}

type insertedTransaction struct {
	ID        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// Create appends a transaction row and returns the identifier and timestamp
// assigned by the database.
func (s *TransactionStore) Create(ctx context.Context, tx Getter, input TransactionInput) (string, time.Time, error) {
	var row insertedTransaction
	err := tx.GetContext(ctx, &row, `
		INSERT INTO transactions (id, user_id, transaction_type, from_currency, to_currency, from_amount, to_amount, fee, exchange_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`,
		input.ID, input.UserID, input.Type, input.FromCurrency, input.ToCurrency,
		input.FromAmount, input.ToAmount, input.Fee, input.ExchangeRate,
	)
	if err != nil {
		return "", time.Time{}, err
	}
	return row.ID, row.CreatedAt, nil
}

func (s *TransactionStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, transaction_type, from_currency, to_currency, from_amount, to_amount, fee, exchange_rate, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM transactions WHERE user_id = $1`, userID)
	return count, err
}

func (s *TransactionStore) GetByID(ctx context.Context, userID, transactionID string) (models.Transaction, error) {
	var row models.Transaction
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, transaction_type, from_currency, to_currency, from_amount, to_amount, fee, exchange_rate, created_at
		FROM transactions
		WHERE id = $1 AND user_id = $2
	`, transactionID, userID)
	if err != nil {
		return models.Transaction{}, err
	}
	return row, nil
}

func (s *TransactionStore) ListAll(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, transaction_type, from_currency, to_currency, from_amount, to_amount, fee, exchange_rate, created_at
		FROM transactions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
