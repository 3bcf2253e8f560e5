package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	validationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantgate_validations_total",
			Help: "Total number of signal validations by outcome",
		},
		[]string{"ticker", "decision", "outcome"},
	)

	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantgate_orders_total",
			Help: "Total number of orders produced by the pipeline",
		},
		[]string{"ticker", "side"},
	)

	orderQuantity = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quantgate_order_investment",
			Help:    "Distribution of order investment amounts",
			Buckets: prometheus.ExponentialBuckets(100, 4, 8),
		},
		[]string{"ticker"},
	)

	// Portfolio metrics
	portfolioValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quantgate_portfolio_value",
			Help: "Current portfolio value",
		},
	)

	portfolioDrawdown = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quantgate_portfolio_drawdown_pct",
			Help: "Current drawdown from peak value in percent",
		},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quantgate_open_positions",
			Help: "Number of open positions",
		},
	)

	killSwitchActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quantgate_kill_switch_active",
			Help: "1 when the drawdown kill switch is active",
		},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantgate_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(validationsTotal)
	prometheus.MustRegister(ordersTotal)
	prometheus.MustRegister(orderQuantity)
	prometheus.MustRegister(portfolioValue)
	prometheus.MustRegister(portfolioDrawdown)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(killSwitchActive)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles the Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordValidation records the outcome of one validation call
func RecordValidation(ticker, decision string, approved bool) {
	outcome := "rejected"
	if approved {
		outcome = "approved"
	}
	validationsTotal.WithLabelValues(ticker, decision, outcome).Inc()
}

// RecordOrder records an order produced by the pipeline
func RecordOrder(ticker, side string, investment float64) {
	ordersTotal.WithLabelValues(ticker, side).Inc()
	orderQuantity.WithLabelValues(ticker).Observe(investment)
}

// UpdatePortfolio updates the portfolio gauges from a summary snapshot
func UpdatePortfolio(value, drawdownPct float64, positions int, killSwitch bool) {
	portfolioValue.Set(value)
	portfolioDrawdown.Set(drawdownPct)
	openPositions.Set(float64(positions))
	if killSwitch {
		killSwitchActive.Set(1)
	} else {
		killSwitchActive.Set(0)
	}
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
