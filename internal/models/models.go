package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	TransactionTypeExchange = "exchange"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Role         string    `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type Session struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Token     string    `db:"token" json:"-"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Currency struct {
	Symbol        string `db:"symbol" json:"symbol"`
	Name          string `db:"name" json:"name"`
	DecimalPlaces int    `db:"decimal_places" json:"decimal_places"`
	IsActive      bool   `db:"is_active" json:"is_active"`
}

type Wallet struct {
	ID           string          `db:"id" json:"id"`
	UserID       string          `db:"user_id" json:"user_id"`
	Currency     string          `db:"currency" json:"currency"`
	CurrencyName string          `db:"currency_name" json:"currency_name,omitempty"`
	Balance      decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

type ExchangeRate struct {
	FromCurrency string          `db:"from_currency" json:"from_currency"`
	ToCurrency   string          `db:"to_currency" json:"to_currency"`
	Rate         decimal.Decimal `db:"rate" json:"rate"`
	LastUpdated  time.Time       `db:"last_updated" json:"last_updated"`
}

type Transaction struct {
	ID           string          `db:"id" json:"id"`
	UserID       string          `db:"user_id" json:"user_id"`
	Type         string          `db:"transaction_type" json:"transaction_type"`
	FromCurrency string          `db:"from_currency" json:"from_currency"`
	ToCurrency   string          `db:"to_currency" json:"to_currency"`
	FromAmount   decimal.Decimal `db:"from_amount" json:"from_amount"`
	ToAmount     decimal.Decimal `db:"to_amount" json:"to_amount"`
	Fee          decimal.Decimal `db:"fee" json:"fee"`
	ExchangeRate decimal.Decimal `db:"exchange_rate" json:"exchange_rate"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   string    `db:"entity_id" json:"entity_id"`
	NewValues  string    `db:"new_values" json:"new_values"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
