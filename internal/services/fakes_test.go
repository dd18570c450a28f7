package services

import (
	"context"
	"database/sql"
	"maps"
	"sync"
	"time"

	"cryptoexchange/internal/events"
	"cryptoexchange/internal/models"
	"cryptoexchange/internal/store"
	"cryptoexchange/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

var tradeTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// memLedger holds wallets and transactions in memory. WithTx runs one unit
// of work at a time and restores the previous state when fn fails.
type memLedger struct {
	mu           sync.Mutex
	wallets      map[string]models.Wallet
	transactions []store.TransactionInput
	txCalls      int
	beginErr     error
	createErr    error
}

func newMemLedger() *memLedger {
	return &memLedger{wallets: make(map[string]models.Wallet)}
}

func walletKey(userID, currency string) string {
	return userID + "|" + currency
}

func (l *memLedger) seed(userID, currency, balance string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wallets[walletKey(userID, currency)] = models.Wallet{
		ID:       "seed-" + currency,
		UserID:   userID,
		Currency: currency,
		Balance:  decimal.RequireFromString(balance),
	}
}

func (l *memLedger) balance(userID, currency string) (decimal.Decimal, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	wallet, ok := l.wallets[walletKey(userID, currency)]
	return wallet.Balance, ok
}

func (l *memLedger) transactionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.transactions)
}

func (l *memLedger) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.txCalls
}

func (l *memLedger) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txCalls++
	if l.beginErr != nil {
		return l.beginErr
	}
	wallets := maps.Clone(l.wallets)
	transactions := len(l.transactions)
	if err := fn(nil); err != nil {
		l.wallets = wallets
		l.transactions = l.transactions[:transactions]
		return err
	}
	return nil
}

type memWalletStore struct {
	ledger *memLedger
}

func (s memWalletStore) GetForUpdate(_ context.Context, _ store.Getter, userID, currency string) (models.Wallet, error) {
	wallet, ok := s.ledger.wallets[walletKey(userID, currency)]
	if !ok {
		return models.Wallet{}, sql.ErrNoRows
	}
	return wallet, nil
}

func (s memWalletStore) Debit(_ context.Context, _ store.Getter, userID, currency string, amount decimal.Decimal) (models.Wallet, error) {
	key := walletKey(userID, currency)
	wallet, ok := s.ledger.wallets[key]
	if !ok || wallet.Balance.LessThan(amount) {
		return models.Wallet{}, sql.ErrNoRows
	}
	wallet.Balance = wallet.Balance.Sub(amount)
	s.ledger.wallets[key] = wallet
	return wallet, nil
}

func (s memWalletStore) Credit(_ context.Context, _ store.Getter, id, userID, currency string, amount decimal.Decimal) (models.Wallet, error) {
	key := walletKey(userID, currency)
	wallet, ok := s.ledger.wallets[key]
	if !ok {
		wallet = models.Wallet{ID: id, UserID: userID, Currency: currency, Balance: decimal.Zero}
	}
	wallet.Balance = wallet.Balance.Add(amount)
	s.ledger.wallets[key] = wallet
	return wallet, nil
}

type memTransactionStore struct {
	ledger *memLedger
}

func (s memTransactionStore) Create(_ context.Context, _ store.Getter, input store.TransactionInput) (string, time.Time, error) {
	if s.ledger.createErr != nil {
		return "", time.Time{}, s.ledger.createErr
	}
	s.ledger.transactions = append(s.ledger.transactions, input)
	return input.ID, tradeTime, nil
}

func (s memTransactionStore) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	var rows []models.Transaction
	for i := len(s.ledger.transactions) - 1; i >= 0; i-- {
		input := s.ledger.transactions[i]
		if input.UserID != userID {
			continue
		}
		rows = append(rows, models.Transaction{ID: input.ID, UserID: input.UserID, FromCurrency: input.FromCurrency, ToCurrency: input.ToCurrency})
	}
	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s memTransactionStore) CountByUser(_ context.Context, userID string) (int, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	count := 0
	for _, input := range s.ledger.transactions {
		if input.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s memTransactionStore) GetByID(_ context.Context, userID, transactionID string) (models.Transaction, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	for _, input := range s.ledger.transactions {
		if input.ID == transactionID && input.UserID == userID {
			return models.Transaction{ID: input.ID, UserID: input.UserID, FromAmount: input.FromAmount}, nil
		}
	}
	return models.Transaction{}, sql.ErrNoRows
}

type stubRates struct {
	getRateFn func(ctx context.Context, from, to string) (decimal.Decimal, error)
}

func (s stubRates) GetRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	return s.getRateFn(ctx, from, to)
}

func fixedRate(rate string) stubRates {
	return stubRates{getRateFn: func(context.Context, string, string) (decimal.Decimal, error) {
		return decimal.RequireFromString(rate), nil
	}}
}

type recordingHub struct {
	mu      sync.Mutex
	updates []websocket.BalanceUpdate
}

func (h *recordingHub) BroadcastBalance(_ string, update websocket.BalanceUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, update)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.TradeExecuted
	err    error
}

func (p *recordingPublisher) PublishTrade(_ context.Context, event events.TradeExecuted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error {
	return nil
}

type recordingMetrics struct {
	mu              sync.Mutex
	succeeded       int
	failed          map[string]int
	publishFailures int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{failed: make(map[string]int)}
}

func (m *recordingMetrics) TradeSucceeded(string, float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.succeeded++
}

func (m *recordingMetrics) TradeFailed(reason string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[reason]++
}

func (m *recordingMetrics) EventPublishFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishFailures++
}
