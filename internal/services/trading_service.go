package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"cryptoexchange/internal/apperr"
	"cryptoexchange/internal/db"
	"cryptoexchange/internal/events"
	"cryptoexchange/internal/models"
	"cryptoexchange/internal/money"
	"cryptoexchange/internal/store"
	"cryptoexchange/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const publishTimeout = 3 * time.Second

const (
	ReasonLockTimeout = "lock_timeout"
	ReasonRateTimeout = "rate_timeout"
)

type TradeWalletStore interface {
	GetForUpdate(ctx context.Context, tx store.Getter, userID, currency string) (models.Wallet, error)
	Debit(ctx context.Context, tx store.Getter, userID, currency string, amount decimal.Decimal) (models.Wallet, error)
	Credit(ctx context.Context, tx store.Getter, id, userID, currency string, amount decimal.Decimal) (models.Wallet, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Getter, input store.TransactionInput) (string, time.Time, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	GetByID(ctx context.Context, userID, transactionID string) (models.Transaction, error)
}

type RateProvider interface {
	GetRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

type TradeRecorder interface {
	TradeSucceeded(currency string, amount float64, seconds float64)
	TradeFailed(reason string, seconds float64)
	EventPublishFailed()
}

type TradeRequest struct {
	UserID       string
	FromCurrency string
	ToCurrency   string
	Amount       decimal.Decimal
}

type TradeResult struct {
	TransactionID string          `json:"transaction_id"`
	FromCurrency  string          `json:"from_currency"`
	ToCurrency    string          `json:"to_currency"`
	FromAmount    decimal.Decimal `json:"from_amount"`
	ToAmount      decimal.Decimal `json:"to_amount"`
	Fee           decimal.Decimal `json:"fee"`
	ExchangeRate  decimal.Decimal `json:"exchange_rate"`
	Timestamp     time.Time       `json:"timestamp"`
}

type TransactionHistory struct {
	Transactions []models.Transaction `json:"transactions"`
	Total        int                  `json:"total"`
}

type TradingService struct {
	txRunner     db.TxRunner
	wallets      TradeWalletStore
	transactions TransactionStore
	rates        RateProvider
	hub          BalanceHub
	publisher    events.Publisher
	metrics      TradeRecorder
	feeRate      decimal.Decimal
	rateTimeout  time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewTradingService(txRunner db.TxRunner, wallets TradeWalletStore, transactions TransactionStore, rates RateProvider, hub BalanceHub, publisher events.Publisher, metrics TradeRecorder, feeRate decimal.Decimal, rateTimeout time.Duration, logger *zap.Logger) *TradingService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &TradingService{
		txRunner:     txRunner,
		wallets:      wallets,
		transactions: transactions,
		rates:        rates,
		hub:          hub,
		publisher:    publisher,
		metrics:      metrics,
		feeRate:      feeRate,
		rateTimeout:  rateTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// ExecuteTrade converts req.Amount of FromCurrency into ToCurrency for one
// user. The source wallet stays locked from the balance check until commit,
// so concurrent trades on it run one after another.
func (s *TradingService) ExecuteTrade(ctx context.Context, req TradeRequest) (TradeResult, error) {
	start := s.now()
	from := normalizeCurrency(req.FromCurrency)
	to := normalizeCurrency(req.ToCurrency)
	log := s.logger.With(
		zap.String("user_id", req.UserID),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("amount", req.Amount.String()),
	)

	result, err := s.executeTrade(ctx, req.UserID, from, to, req.Amount)
	elapsed := s.now().Sub(start).Seconds()
	if err != nil {
		kind, ok := apperr.KindOf(err)
		if !ok {
			err = apperr.Wrap(apperr.TradeFailed, "trade failed", err)
			kind = apperr.TradeFailed
		}
		reason := failureReason(kind, err)
		if kind.Internal() {
			log.Error("trade failed", zap.String("reason", reason), zap.Error(err))
		} else {
			log.Info("trade rejected", zap.String("reason", reason))
		}
		s.recordFailure(reason, elapsed)
		return TradeResult{}, err
	}

	log.Info("trade executed",
		zap.String("transaction_id", result.TransactionID),
		zap.String("to_amount", result.ToAmount.String()),
		zap.String("rate", result.ExchangeRate.String()),
	)
	if s.metrics != nil {
		s.metrics.TradeSucceeded(from, result.FromAmount.InexactFloat64(), elapsed)
	}
	s.publish(ctx, req.UserID, result, log)
	return result, nil
}

type tradeOutcome struct {
	result   TradeResult
	debited  models.Wallet
	credited models.Wallet
}

func (s *TradingService) executeTrade(ctx context.Context, userID, from, to string, amount decimal.Decimal) (TradeResult, error) {
	if !amount.IsPositive() {
		return TradeResult{}, apperr.New(apperr.InvalidAmount, "amount must be greater than zero")
	}
	if amount.Exponent() < -money.MaxScale {
		return TradeResult{}, apperr.New(apperr.InvalidAmount, "amount has too many decimal places")
	}
	if from == to {
		return TradeResult{}, apperr.New(apperr.SameCurrency, "cannot trade a currency for itself")
	}

	var outcome tradeOutcome
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		source, err := s.wallets.GetForUpdate(ctx, tx, userID, from)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.New(apperr.InsufficientFunds, "no "+from+" wallet to trade from")
			}
			return err
		}
		if source.Balance.LessThan(amount) {
			return apperr.New(apperr.InsufficientFunds, "insufficient "+from+" balance")
		}

		rate, err := s.lookupRate(ctx, from, to)
		if err != nil {
			return err
		}
		amounts := money.ComputeTrade(amount, rate, s.feeRate)

		debited, err := s.wallets.Debit(ctx, tx, userID, from, amount)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.New(apperr.InsufficientFunds, "insufficient "+from+" balance")
			}
			return err
		}
		credited, err := s.wallets.Credit(ctx, tx, uuid.NewString(), userID, to, amounts.ToAmount)
		if err != nil {
			return err
		}
		transactionID, createdAt, err := s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:           uuid.NewString(),
			UserID:       userID,
			Type:         models.TransactionTypeExchange,
			FromCurrency: from,
			ToCurrency:   to,
			FromAmount:   amount,
			ToAmount:     amounts.ToAmount,
			Fee:          amounts.Fee,
			ExchangeRate: rate,
		})
		if err != nil {
			return err
		}
		outcome = tradeOutcome{
			result: TradeResult{
				TransactionID: transactionID,
				FromCurrency:  from,
				ToCurrency:    to,
				FromAmount:    amount,
				ToAmount:      amounts.ToAmount,
				Fee:           amounts.Fee,
				ExchangeRate:  rate,
				Timestamp:     createdAt,
			},
			debited:  debited,
			credited: credited,
		}
		return nil
	})
	if err != nil {
		return TradeResult{}, err
	}
	s.broadcast(userID, outcome.debited, outcome.credited)
	return outcome.result, nil
}

func (s *TradingService) broadcast(userID string, wallets ...models.Wallet) {
	if s.hub == nil {
		return
	}
	for _, wallet := range wallets {
		s.hub.BroadcastBalance(userID, websocket.BalanceUpdate{
			WalletID: wallet.ID,
			Currency: wallet.Currency,
			Balance:  wallet.Balance,
		})
	}
}

func (s *TradingService) publish(ctx context.Context, userID string, result TradeResult, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	err := s.publisher.PublishTrade(ctx, events.TradeExecuted{
		TransactionID: result.TransactionID,
		UserID:        userID,
		FromCurrency:  result.FromCurrency,
		ToCurrency:    result.ToCurrency,
		FromAmount:    result.FromAmount,
		ToAmount:      result.ToAmount,
		Fee:           result.Fee,
		Rate:          result.ExchangeRate,
		ExecutedAt:    result.Timestamp,
	})
	if err != nil {
		log.Warn("publish trade event", zap.Error(err))
		if s.metrics != nil {
			s.metrics.EventPublishFailed()
		}
	}
}

// lookupRate bounds the rate lookup made while the source wallet is locked.
// The provider may need a second pooled connection, and waiting for one does
// not honour lock_timeout.
func (s *TradingService) lookupRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if s.rateTimeout <= 0 {
		return s.rates.GetRate(ctx, from, to)
	}
	rateCtx, cancel := context.WithTimeout(ctx, s.rateTimeout)
	defer cancel()
	rate, err := s.rates.GetRate(rateCtx, from, to)
	if err != nil && ctx.Err() == nil && errors.Is(rateCtx.Err(), context.DeadlineExceeded) {
		return decimal.Zero, apperr.Wrap(apperr.TradeFailed, "rate lookup timed out", errors.Join(context.DeadlineExceeded, err))
	}
	return rate, err
}

func failureReason(kind apperr.Kind, err error) string {
	switch {
	case db.IsLockFailure(err):
		return ReasonLockTimeout
	case errors.Is(err, context.DeadlineExceeded) && kind == apperr.TradeFailed:
		return ReasonRateTimeout
	default:
		return kind.Code()
	}
}

func (s *TradingService) recordFailure(reason string, seconds float64) {
	if s.metrics != nil {
		s.metrics.TradeFailed(reason, seconds)
	}
}

// GetTransactionHistory returns one page of the user's trades, newest first.
func (s *TradingService) GetTransactionHistory(ctx context.Context, userID string, limit, offset int) (TransactionHistory, error) {
	transactions, err := s.transactions.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return TransactionHistory{}, err
	}
	total, err := s.transactions.CountByUser(ctx, userID)
	if err != nil {
		return TransactionHistory{}, err
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	return TransactionHistory{Transactions: transactions, Total: total}, nil
}

func (s *TradingService) GetTransaction(ctx context.Context, userID, transactionID string) (models.Transaction, error) {
	transaction, err := s.transactions.GetByID(ctx, userID, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Transaction{}, apperr.New(apperr.TransactionNotFound, "transaction not found")
		}
		return models.Transaction{}, err
	}
	return transaction, nil
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
