package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cryptoexchange/internal/cache"
	"cryptoexchange/internal/config"
	"cryptoexchange/internal/db"
	"cryptoexchange/internal/events"
	"cryptoexchange/internal/handlers"
	"cryptoexchange/internal/metrics"
	"cryptoexchange/internal/rates"
	"cryptoexchange/internal/services"
	"cryptoexchange/internal/store"
	"cryptoexchange/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App owns every process-wide resource.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	DB        *sqlx.DB
	Cache     *cache.Cache
	Publisher events.Publisher
	Hub       *websocket.Hub
	Registry  *prometheus.Registry
	Metrics   *metrics.ExchangeMetrics
	Rates     *rates.Provider
	Trading   *services.TradingService
	Wallets   *services.WalletService

	handler *handlers.Handler
}

func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	database, err := db.Connect(cfg.DatabaseURL, cfg.DBPoolSize)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	rateCache := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := rateCache.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable, rate lookups will skip the cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	exchangeMetrics := metrics.New(registry)

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("no kafka brokers configured, trade events disabled")
	}

	txRunner := db.NewTxRunner(database, cfg.DBLockTimeout)
	users := store.NewUserStore(database)
	sessions := store.NewSessionStore(database)
	wallets := store.NewWalletStore(database)
	currencies := store.NewCurrencyStore(database)
	rateStore := store.NewRateStore(database)
	transactions := store.NewTransactionStore(database)
	audit := store.NewAuditStore(database)

	hub := websocket.NewHub()
	source := rates.NewCoinGeckoClient(cfg.CryptoAPIURL, cfg.CryptoAPIKey, cfg.CryptoTimeout)
	provider := rates.NewProvider(rateCache, rateStore, source, exchangeMetrics, cfg.RateCacheTTL, cfg.RateFreshness, logger.Named("rates"))

	trading := services.NewTradingService(txRunner, wallets, transactions, provider, hub, publisher, exchangeMetrics, cfg.TradingFee, cfg.DBLockTimeout, logger.Named("trading"))
	walletService := services.NewWalletService(txRunner, wallets, currencies, audit, provider, logger.Named("wallets"))

	handler := handlers.New(cfg, logger.Named("http"), txRunner,
		handlers.Stores{
			Users:        users,
			Sessions:     sessions,
			Currencies:   currencies,
			Transactions: transactions,
			Audit:        audit,
		},
		handlers.Services{
			Trading: trading,
			Wallets: walletService,
			Rates:   provider,
		},
		hub,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		DB:        database,
		Cache:     rateCache,
		Publisher: publisher,
		Hub:       hub,
		Registry:  registry,
		Metrics:   exchangeMetrics,
		Rates:     provider,
		Trading:   trading,
		Wallets:   walletService,
		handler:   handler,
	}, nil
}

func (a *App) Handler() http.Handler {
	return a.handler.Routes()
}

// Close releases resources in reverse order of acquisition and reports every
// failure.
func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
