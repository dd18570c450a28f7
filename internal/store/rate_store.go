package store

import (
	"context"

	"cryptoexchange/internal/models"

	"github.com/shopspring/decimal"
)

type RateStore struct {
	db DB
}

func NewRateStore(db DB) *RateStore {
	return &RateStore{db: db}
}

func (s *RateStore) Get(ctx context.Context, from, to string) (models.ExchangeRate, error) {
	var row models.ExchangeRate
	err := s.db.GetContext(ctx, &row, `
		SELECT from_currency, to_currency, rate, last_updated
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2
	`, from, to)
	if err != nil {
		return models.ExchangeRate{}, err
	}
	return row, nil
}

// Upsert is a single statement; concurrent refreshes of one pair leave the
// last writer's rate.
func (s *RateStore) Upsert(ctx context.Context, from, to string, rate decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exchange_rates (from_currency, to_currency, rate, last_updated)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (from_currency, to_currency)
		DO UPDATE SET rate = EXCLUDED.rate, last_updated = NOW()
	`, from, to, rate)
	return err
}

func (s *RateStore) List(ctx context.Context) ([]models.ExchangeRate, error) {
	var rows []models.ExchangeRate
	err := s.db.SelectContext(ctx, &rows, `
		SELECT from_currency, to_currency, rate, last_updated
		FROM exchange_rates
		ORDER BY from_currency, to_currency
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
