package store

import (
	"context"

	"cryptoexchange/internal/models"
)

type CurrencyStore struct {
	db DB
}

func NewCurrencyStore(db DB) *CurrencyStore {
	return &CurrencyStore{db: db}
}

func (s *CurrencyStore) IsActive(ctx context.Context, q Getter, symbol string) (bool, error) {
	var active bool
	err := q.GetContext(ctx, &active, `
		SELECT EXISTS(SELECT 1 FROM cryptocurrencies WHERE symbol = $1 AND is_active = TRUE)
	`, symbol)
	return active, err
}

func (s *CurrencyStore) ListActive(ctx context.Context) ([]models.Currency, error) {
	var rows []models.Currency
	err := s.db.SelectContext(ctx, &rows, `
		SELECT symbol, name, decimal_places, is_active
		FROM cryptocurrencies
		WHERE is_active = TRUE
		ORDER BY symbol
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
