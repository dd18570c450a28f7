package handlers

import (
	"net/http"
	"time"

	"cryptoexchange/internal/config"
	"cryptoexchange/internal/db"
	"cryptoexchange/internal/middleware"
	"cryptoexchange/internal/models"
	"cryptoexchange/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	gorillaws "github.com/gorilla/websocket"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

type Handler struct {
	txRunner     db.TxRunner
	cfg          config.Config
	logger       *zap.Logger
	users        UserStore
	sessions     SessionStore
	currencies   CurrencyStore
	transactions TransactionStore
	audit        AuditStore
	trading      TradingService
	wallets      WalletService
	rates        RateService
	hub          *websocket.Hub
	upgrader     gorillaws.Upgrader
	limiter      *limiter.Limiter
	metrics      http.Handler
	now          func() time.Time
}

// New wires the HTTP surface. metrics may be nil to leave /metrics unrouted.
func New(cfg config.Config, logger *zap.Logger, txRunner db.TxRunner, stores Stores, svc Services, hub *websocket.Hub, metrics http.Handler) *Handler {
	h := &Handler{
		txRunner:     txRunner,
		cfg:          cfg,
		logger:       logger,
		users:        stores.Users,
		sessions:     stores.Sessions,
		currencies:   stores.Currencies,
		transactions: stores.Transactions,
		audit:        stores.Audit,
		trading:      svc.Trading,
		wallets:      svc.Wallets,
		rates:        svc.Rates,
		hub:          hub,
		upgrader:     websocket.Upgrader(cfg.AllowedOrigins),
		metrics:      metrics,
		now:          time.Now,
	}
	if cfg.RateLimitMax > 0 && cfg.RateLimitSpan > 0 {
		h.limiter = middleware.NewLimiter(cfg.RateLimitSpan, cfg.RateLimitMax)
	}
	return h
}

func (h *Handler) authenticate(allowQueryToken bool) func(http.Handler) http.Handler {
	return middleware.Auth(middleware.AuthConfig{
		Secret:          h.cfg.JWTSecret,
		Users:           h.users,
		Sessions:        h.sessions,
		Logger:          h.logger,
		DemoUserEmail:   h.cfg.DemoUserEmail,
		AllowQueryToken: allowQueryToken,
	})
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.RequestLogger(h.logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", h.Health)
	if h.metrics != nil {
		router.Handle("/metrics", h.metrics)
	}
	router.With(h.authenticate(true)).Get("/ws/balances", h.WSBalances)

	router.Route("/api", func(api chi.Router) {
		if h.limiter != nil {
			api.Use(middleware.RateLimit(h.limiter, h.logger))
		}
		api.Get("/", h.Info)

		api.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.With(h.authenticate(false)).Post("/logout", h.Logout)
			r.With(h.authenticate(false)).Get("/me", h.Me)
		})

		api.Route("/users", func(r chi.Router) {
			r.Use(h.authenticate(false))
			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
		})

		api.Route("/wallets", func(r chi.Router) {
			r.Use(h.authenticate(false))
			r.Get("/", h.ListWallets)
			r.Post("/", h.CreateWallet)
			r.Get("/balance/total", h.TotalBalance)
			r.Get("/{currency}", h.GetWallet)
		})

		api.Route("/trading", func(r chi.Router) {
			r.Use(h.authenticate(false))
			r.Get("/rate/{from}/{to}", h.GetRate)
			r.Post("/exchange", h.Exchange)
			r.Get("/transactions", h.ListTransactions)
			r.Get("/transactions/{id}", h.GetTransaction)
		})

		api.Route("/market", func(r chi.Router) {
			r.Get("/currencies", h.ListCurrencies)
			r.Get("/exchange-rates", h.ListExchangeRates)
			r.Get("/exchange-rates/{from}/{to}", h.GetExchangeRate)
		})

		api.Route("/admin", func(r chi.Router) {
			r.Use(h.authenticate(false))
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Get("/audit-logs", h.AdminListAuditLogs)
			r.Get("/transactions", h.AdminListTransactions)
		})
	})
	return router
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"timestamp":   h.now().UTC(),
		"environment": h.cfg.AppEnv,
	})
}

func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]any{
		"name": "cryptoexchange",
		"endpoints": []string{
			"/api/auth",
			"/api/users",
			"/api/wallets",
			"/api/trading",
			"/api/market",
			"/api/admin",
			"/ws/balances",
		},
	})
}

func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	websocket.ServeWS(w, r, h.upgrader, h.hub, userID)
}
