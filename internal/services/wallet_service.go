package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"cryptoexchange/internal/apperr"
	"cryptoexchange/internal/db"
	"cryptoexchange/internal/models"
	"cryptoexchange/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var DefaultWalletCurrencies = []string{"BTC", "ETH", "USDT"}

var usdPegged = map[string]struct{}{
	"USD":  {},
	"USDT": {},
	"USDC": {},
}

type WalletStore interface {
	ListByUser(ctx context.Context, userID string) ([]models.Wallet, error)
	GetByUserAndCurrency(ctx context.Context, userID, currency string) (models.Wallet, error)
	Exists(ctx context.Context, tx store.Getter, userID, currency string) (bool, error)
	Create(ctx context.Context, tx store.Execer, id, userID, currency string, balance decimal.Decimal) error
}

type CurrencyStore interface {
	IsActive(ctx context.Context, q store.Getter, symbol string) (bool, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, userID, action, entityType, entityID, data string) error
}

// TotalBalance is the USD value of every wallet that could be priced.
// Unpriced lists the currencies left out because no USD rate was available.
type TotalBalance struct {
	USD      decimal.Decimal `json:"total_usd"`
	Unpriced []string        `json:"unpriced"`
}

type WalletService struct {
	txRunner   db.TxRunner
	wallets    WalletStore
	currencies CurrencyStore
	audit      AuditStore
	rates      RateProvider
	logger     *zap.Logger
}

func NewWalletService(txRunner db.TxRunner, wallets WalletStore, currencies CurrencyStore, audit AuditStore, rates RateProvider, logger *zap.Logger) *WalletService {
	return &WalletService{
		txRunner:   txRunner,
		wallets:    wallets,
		currencies: currencies,
		audit:      audit,
		rates:      rates,
		logger:     logger,
	}
}

func (s *WalletService) GetWallets(ctx context.Context, userID string) ([]models.Wallet, error) {
	wallets, err := s.wallets.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallets == nil {
		wallets = []models.Wallet{}
	}
	return wallets, nil
}

func (s *WalletService) GetWallet(ctx context.Context, userID, currency string) (models.Wallet, error) {
	code := normalizeCurrency(currency)
	wallet, err := s.wallets.GetByUserAndCurrency(ctx, userID, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Wallet{}, apperr.New(apperr.WalletNotFound, code+" wallet not found")
		}
		return models.Wallet{}, err
	}
	return wallet, nil
}

func (s *WalletService) GetWalletBalance(ctx context.Context, userID, currency string) (decimal.Decimal, error) {
	wallet, err := s.GetWallet(ctx, userID, currency)
	if err != nil {
		return decimal.Zero, err
	}
	return wallet.Balance, nil
}

// CreateWallet opens an empty wallet and its audit entry in one transaction.
func (s *WalletService) CreateWallet(ctx context.Context, userID, currency string) (models.Wallet, error) {
	code := normalizeCurrency(currency)
	walletID := uuid.NewString()
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		active, err := s.currencies.IsActive(ctx, tx, code)
		if err != nil {
			return err
		}
		if !active {
			return apperr.New(apperr.UnsupportedCurrency, "currency "+code+" is not supported")
		}
		exists, err := s.wallets.Exists(ctx, tx, userID, code)
		if err != nil {
			return err
		}
		if exists {
			return apperr.New(apperr.WalletAlreadyExists, code+" wallet already exists")
		}
		if err := s.wallets.Create(ctx, tx, walletID, userID, code, decimal.Zero); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"currency": code, "balance": "0"})
		return s.audit.Log(ctx, tx, userID, "wallet_created", "wallet", walletID, string(data))
	})
	if err != nil {
		if _, ok := apperr.KindOf(err); ok {
			return models.Wallet{}, err
		}
		if db.IsUniqueViolation(err) {
			return models.Wallet{}, apperr.Wrap(apperr.WalletAlreadyExists, code+" wallet already exists", err)
		}
		s.logger.Error("create wallet", zap.String("user_id", userID), zap.String("currency", code), zap.Error(err))
		return models.Wallet{}, fmt.Errorf("create %s wallet: %w", code, err)
	}
	return s.GetWallet(ctx, userID, code)
}

// SeedDefaultWallets runs inside the caller's registration transaction.
func (s *WalletService) SeedDefaultWallets(ctx context.Context, tx store.Execer, userID string) error {
	for _, currency := range DefaultWalletCurrencies {
		if err := s.wallets.Create(ctx, tx, uuid.NewString(), userID, currency, decimal.Zero); err != nil {
			return fmt.Errorf("seed %s wallet: %w", currency, err)
		}
	}
	return nil
}

// GetTotalBalanceInUSD values USD-pegged currencies at face value and prices
// the rest through the rate provider. A wallet without a rate is skipped and
// reported in Unpriced instead of failing the whole sum.
func (s *WalletService) GetTotalBalanceInUSD(ctx context.Context, userID string) (TotalBalance, error) {
	wallets, err := s.wallets.ListByUser(ctx, userID)
	if err != nil {
		return TotalBalance{}, err
	}
	total := TotalBalance{USD: decimal.Zero, Unpriced: []string{}}
	for _, wallet := range wallets {
		if wallet.Balance.IsZero() {
			continue
		}
		if _, ok := usdPegged[wallet.Currency]; ok {
			total.USD = total.USD.Add(wallet.Balance)
			continue
		}
		rate, err := s.rates.GetRate(ctx, wallet.Currency, "USD")
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return TotalBalance{}, ctxErr
			}
			s.logger.Warn("no usd rate for wallet",
				zap.String("user_id", userID),
				zap.String("currency", wallet.Currency),
				zap.Error(err),
			)
			total.Unpriced = append(total.Unpriced, wallet.Currency)
			continue
		}
		total.USD = total.USD.Add(wallet.Balance.Mul(rate))
	}
	return total, nil
}
