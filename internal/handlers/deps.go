package handlers

import (
	"context"

	"cryptoexchange/internal/models"
	"cryptoexchange/internal/services"
	"cryptoexchange/internal/store"

	"github.com/shopspring/decimal"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, input store.UserInput) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	UpdateProfile(ctx context.Context, userID string, update store.ProfileUpdate) (models.User, error)
	HasAnyAdmin(ctx context.Context, q store.Getter) (bool, error)
}

type SessionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.SessionInput) error
	IsActive(ctx context.Context, userID, token string) (bool, error)
	Expire(ctx context.Context, userID, token string) (int64, error)
}

type CurrencyStore interface {
	ListActive(ctx context.Context) ([]models.Currency, error)
}

type TransactionStore interface {
	ListAll(ctx context.Context, limit, offset int) ([]models.Transaction, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, userID, action, entityType, entityID, data string) error
	List(ctx context.Context, limit, offset int) ([]models.AuditLog, error)
}

type TradingService interface {
	ExecuteTrade(ctx context.Context, req services.TradeRequest) (services.TradeResult, error)
	GetTransactionHistory(ctx context.Context, userID string, limit, offset int) (services.TransactionHistory, error)
	GetTransaction(ctx context.Context, userID, transactionID string) (models.Transaction, error)
}

type WalletService interface {
	GetWallets(ctx context.Context, userID string) ([]models.Wallet, error)
	GetWallet(ctx context.Context, userID, currency string) (models.Wallet, error)
	CreateWallet(ctx context.Context, userID, currency string) (models.Wallet, error)
	GetTotalBalanceInUSD(ctx context.Context, userID string) (services.TotalBalance, error)
	SeedDefaultWallets(ctx context.Context, tx store.Execer, userID string) error
}

type RateService interface {
	GetRate(ctx context.Context, from, to string) (decimal.Decimal, error)
	ListRates(ctx context.Context) ([]models.ExchangeRate, error)
	StoredRate(ctx context.Context, from, to string) (models.ExchangeRate, error)
}

type Stores struct {
	Users        UserStore
	Sessions     SessionStore
	Currencies   CurrencyStore
	Transactions TransactionStore
	Audit        AuditStore
}

type Services struct {
	Trading TradingService
	Wallets WalletService
	Rates   RateService
}
