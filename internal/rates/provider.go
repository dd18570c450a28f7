package rates

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"cryptoexchange/internal/apperr"
	"cryptoexchange/internal/cache"
	"cryptoexchange/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	SourceCache    = "cache"
	SourceStore    = "store"
	SourceExternal = "external"
	SourceIdentity = "identity"
)

type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type Store interface {
	Get(ctx context.Context, from, to string) (models.ExchangeRate, error)
	Upsert(ctx context.Context, from, to string, rate decimal.Decimal) error
	List(ctx context.Context) ([]models.ExchangeRate, error)
}

type Source interface {
	Quote(ctx context.Context, fromID, toID string) (decimal.Decimal, error)
}

type LookupRecorder interface {
	RateLookup(source string)
}

type Provider struct {
	cache     Cache
	store     Store
	source    Source
	recorder  LookupRecorder
	ttl       time.Duration
	freshness time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewProvider(cache Cache, store Store, source Source, recorder LookupRecorder, ttl, freshness time.Duration, logger *zap.Logger) *Provider {
	return &Provider{
		cache:     cache,
		store:     store,
		source:    source,
		recorder:  recorder,
		ttl:       ttl,
		freshness: freshness,
		logger:    logger,
		now:       time.Now,
	}
}

// GetRate resolves how many units of to one unit of from buys. It tries the
// cache, then a persisted rate younger than the freshness window, then the
// external source, whose answer is persisted and cached.
func (p *Provider) GetRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		p.record(SourceIdentity)
		return decimal.NewFromInt(1), nil
	}
	key := cache.RateKey(from, to)
	log := p.logger.With(zap.String("from", from), zap.String("to", to))

	if rate, ok := p.fromCache(ctx, key, log); ok {
		p.record(SourceCache)
		return rate, nil
	}

	stored, err := p.store.Get(ctx, from, to)
	switch {
	case err == nil:
		if p.now().Sub(stored.LastUpdated) < p.freshness && stored.Rate.IsPositive() {
			p.setCache(ctx, key, stored.Rate, log)
			p.record(SourceStore)
			return stored.Rate, nil
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		log.Warn("persisted rate lookup failed", zap.Error(err))
	}

	rate, err := p.source.Quote(ctx, MapCurrencyID(from), MapCurrencyID(to))
	if err != nil {
		log.Error("external rate fetch failed", zap.Error(err))
		return decimal.Zero, apperr.Wrap(apperr.RateUnavailable, "could not fetch current exchange rate", err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, apperr.New(apperr.RateUnavailable, "external source returned a non-positive rate")
	}
	if err := p.store.Upsert(ctx, from, to, rate); err != nil {
		log.Error("persist rate failed", zap.Error(err))
		return decimal.Zero, apperr.Wrap(apperr.RateUnavailable, "failed to store exchange rate", err)
	}
	p.setCache(ctx, key, rate, log)
	p.record(SourceExternal)
	return rate, nil
}

func (p *Provider) ListRates(ctx context.Context) ([]models.ExchangeRate, error) {
	return p.store.List(ctx)
}

// StoredRate returns the persisted row for a pair without refreshing it.
func (p *Provider) StoredRate(ctx context.Context, from, to string) (models.ExchangeRate, error) {
	return p.store.Get(ctx, strings.ToUpper(from), strings.ToUpper(to))
}

func (p *Provider) fromCache(ctx context.Context, key string, log *zap.Logger) (decimal.Decimal, bool) {
	if p.cache == nil {
		return decimal.Zero, false
	}
	raw, found, err := p.cache.Get(ctx, key)
	if err != nil {
		log.Warn("rate cache read failed", zap.Error(err))
		return decimal.Zero, false
	}
	if !found {
		return decimal.Zero, false
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil || !rate.IsPositive() {
		log.Warn("ignoring malformed cached rate", zap.String("value", raw))
		return decimal.Zero, false
	}
	return rate, true
}

func (p *Provider) setCache(ctx context.Context, key string, rate decimal.Decimal, log *zap.Logger) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, key, rate.String(), p.ttl); err != nil {
		log.Warn("rate cache write failed", zap.Error(err))
	}
}

func (p *Provider) record(source string) {
	if p.recorder != nil {
		p.recorder.RateLookup(source)
	}
}
