package handlers

import (
	"context"
	"database/sql"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cryptoexchange/internal/auth"
	"cryptoexchange/internal/config"
	"cryptoexchange/internal/models"
	"cryptoexchange/internal/services"
	"cryptoexchange/internal/store"
	"cryptoexchange/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn        func(ctx context.Context, tx store.Execer, input store.UserInput) error
	getByEmailFn    func(ctx context.Context, email string) (models.User, error)
	getByIDFn       func(ctx context.Context, userID string) (models.User, error)
	emailTakenFn    func(ctx context.Context, email, excludeID string) (bool, error)
	updateProfileFn func(ctx context.Context, userID string, update store.ProfileUpdate) (models.User, error)
	hasAnyAdminFn   func(ctx context.Context, q store.Getter) (bool, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, input store.UserInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID, Role: models.RoleUser, IsActive: true}, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	if s.emailTakenFn == nil {
		return false, nil
	}
	return s.emailTakenFn(ctx, email, excludeID)
}

func (s stubUserStore) UpdateProfile(ctx context.Context, userID string, update store.ProfileUpdate) (models.User, error) {
	if s.updateProfileFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.updateProfileFn(ctx, userID, update)
}

func (s stubUserStore) HasAnyAdmin(ctx context.Context, q store.Getter) (bool, error) {
	if s.hasAnyAdminFn == nil {
		return true, nil
	}
	return s.hasAnyAdminFn(ctx, q)
}

type stubSessionStore struct {
	createFn   func(ctx context.Context, tx store.Execer, input store.SessionInput) error
	isActiveFn func(ctx context.Context, userID, token string) (bool, error)
	expireFn   func(ctx context.Context, userID, token string) (int64, error)
}

func (s stubSessionStore) Create(ctx context.Context, tx store.Execer, input store.SessionInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubSessionStore) IsActive(ctx context.Context, userID, token string) (bool, error) {
	if s.isActiveFn == nil {
		return true, nil
	}
	return s.isActiveFn(ctx, userID, token)
}

func (s stubSessionStore) Expire(ctx context.Context, userID, token string) (int64, error) {
	if s.expireFn == nil {
		return 1, nil
	}
	return s.expireFn(ctx, userID, token)
}

type stubCurrencyStore struct {
	listActiveFn func(ctx context.Context) ([]models.Currency, error)
}

func (s stubCurrencyStore) ListActive(ctx context.Context) ([]models.Currency, error) {
	if s.listActiveFn == nil {
		return nil, nil
	}
	return s.listActiveFn(ctx)
}

type stubTransactionStore struct {
	listAllFn func(ctx context.Context, limit, offset int) ([]models.Transaction, error)
}

func (s stubTransactionStore) ListAll(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	if s.listAllFn == nil {
		return nil, nil
	}
	return s.listAllFn(ctx, limit, offset)
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, userID, action, entityType, entityID, data string) error
	listFn func(ctx context.Context, limit, offset int) ([]models.AuditLog, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, userID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, userID, action, entityType, entityID, data)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]models.AuditLog, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubTradingService struct {
	executeFn func(ctx context.Context, req services.TradeRequest) (services.TradeResult, error)
	historyFn func(ctx context.Context, userID string, limit, offset int) (services.TransactionHistory, error)
	getFn     func(ctx context.Context, userID, transactionID string) (models.Transaction, error)
}

func (s stubTradingService) ExecuteTrade(ctx context.Context, req services.TradeRequest) (services.TradeResult, error) {
	if s.executeFn == nil {
		return services.TradeResult{}, nil
	}
	return s.executeFn(ctx, req)
}

func (s stubTradingService) GetTransactionHistory(ctx context.Context, userID string, limit, offset int) (services.TransactionHistory, error) {
	if s.historyFn == nil {
		return services.TransactionHistory{}, nil
	}
	return s.historyFn(ctx, userID, limit, offset)
}

func (s stubTradingService) GetTransaction(ctx context.Context, userID, transactionID string) (models.Transaction, error) {
	if s.getFn == nil {
		return models.Transaction{}, nil
	}
	return s.getFn(ctx, userID, transactionID)
}

type stubWalletService struct {
	listFn   func(ctx context.Context, userID string) ([]models.Wallet, error)
	getFn    func(ctx context.Context, userID, currency string) (models.Wallet, error)
	createFn func(ctx context.Context, userID, currency string) (models.Wallet, error)
	totalFn  func(ctx context.Context, userID string) (services.TotalBalance, error)
	seedFn   func(ctx context.Context, tx store.Execer, userID string) error
}

func (s stubWalletService) GetWallets(ctx context.Context, userID string) ([]models.Wallet, error) {
	if s.listFn == nil {
		return []models.Wallet{}, nil
	}
	return s.listFn(ctx, userID)
}

func (s stubWalletService) GetWallet(ctx context.Context, userID, currency string) (models.Wallet, error) {
	if s.getFn == nil {
		return models.Wallet{}, nil
	}
	return s.getFn(ctx, userID, currency)
}

func (s stubWalletService) CreateWallet(ctx context.Context, userID, currency string) (models.Wallet, error) {
	if s.createFn == nil {
		return models.Wallet{}, nil
	}
	return s.createFn(ctx, userID, currency)
}

func (s stubWalletService) GetTotalBalanceInUSD(ctx context.Context, userID string) (services.TotalBalance, error) {
	if s.totalFn == nil {
		return services.TotalBalance{}, nil
	}
	return s.totalFn(ctx, userID)
}

func (s stubWalletService) SeedDefaultWallets(ctx context.Context, tx store.Execer, userID string) error {
	if s.seedFn == nil {
		return nil
	}
	return s.seedFn(ctx, tx, userID)
}

type stubRateService struct {
	getRateFn    func(ctx context.Context, from, to string) (decimal.Decimal, error)
	listRatesFn  func(ctx context.Context) ([]models.ExchangeRate, error)
	storedRateFn func(ctx context.Context, from, to string) (models.ExchangeRate, error)
}

func (s stubRateService) GetRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if s.getRateFn == nil {
		return decimal.NewFromInt(1), nil
	}
	return s.getRateFn(ctx, from, to)
}

func (s stubRateService) ListRates(ctx context.Context) ([]models.ExchangeRate, error) {
	if s.listRatesFn == nil {
		return nil, nil
	}
	return s.listRatesFn(ctx)
}

func (s stubRateService) StoredRate(ctx context.Context, from, to string) (models.ExchangeRate, error) {
	if s.storedRateFn == nil {
		return models.ExchangeRate{}, sql.ErrNoRows
	}
	return s.storedRateFn(ctx, from, to)
}

type testDeps struct {
	txRunner fakeTxRunner
	stores   Stores
	services Services
}

func defaultDeps() testDeps {
	return testDeps{
		stores: Stores{
			Users:        stubUserStore{},
			Sessions:     stubSessionStore{},
			Currencies:   stubCurrencyStore{},
			Transactions: stubTransactionStore{},
			Audit:        stubAuditStore{},
		},
		services: Services{
			Trading: stubTradingService{},
			Wallets: stubWalletService{},
			Rates:   stubRateService{},
		},
	}
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: []string{"*"},
	}
}

func newTestHandler(deps testDeps) *Handler {
	return New(testConfig(), zap.NewNop(), deps.txRunner, deps.stores, deps.services, websocket.NewHub(), nil)
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken("secret", userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return "Bearer " + token
}

// serve sends a request through the full router; an empty userID sends it
// without credentials.
func serve(t *testing.T, handler *Handler, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", bearer(t, userID))
	}
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	return rr
}

func stringPtr(value string) *string {
	return &value
}
