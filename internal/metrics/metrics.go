package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type ExchangeMetrics struct {
	TradesTotal       *prometheus.CounterVec
	TradeDuration     prometheus.Histogram
	TradeVolumeTotal  *prometheus.CounterVec
	RateLookupsTotal  *prometheus.CounterVec
	EventPublishFails prometheus.Counter
}

// New registers the exchange collectors on reg.
func New(reg prometheus.Registerer) *ExchangeMetrics {
	factory := promauto.With(reg)
	return &ExchangeMetrics{
		TradesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_trades_total",
				Help: "Executed trades by outcome",
			},
			[]string{"result", "reason"},
		),
		TradeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "exchange_trade_duration_seconds",
				Help:    "Time spent executing a trade, including the rate lookup",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
			},
		),
		TradeVolumeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_trade_volume_total",
				Help: "Debited amount of committed trades per source currency",
			},
			[]string{"currency"},
		),
		RateLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_rate_lookups_total",
				Help: "Resolved exchange rates by the layer that answered",
			},
			[]string{"source"},
		),
		EventPublishFails: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "exchange_event_publish_failures_total",
				Help: "Trade events that could not be published",
			},
		),
	}
}

func (m *ExchangeMetrics) RateLookup(source string) {
	m.RateLookupsTotal.WithLabelValues(source).Inc()
}

func (m *ExchangeMetrics) TradeSucceeded(currency string, amount float64, seconds float64) {
	m.TradesTotal.WithLabelValues(ResultSuccess, "").Inc()
	m.TradeVolumeTotal.WithLabelValues(currency).Add(amount)
	m.TradeDuration.Observe(seconds)
}

func (m *ExchangeMetrics) TradeFailed(reason string, seconds float64) {
	m.TradesTotal.WithLabelValues(ResultFailure, reason).Inc()
	m.TradeDuration.Observe(seconds)
}

func (m *ExchangeMetrics) EventPublishFailed() {
	m.EventPublishFails.Inc()
}
