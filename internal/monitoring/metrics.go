package monitoring

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Classifier metrics
	classificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pattern_bot_classifications_total",
			Help: "Total number of pattern classifications by cluster",
		},
		[]string{"cluster", "signal"},
	)

	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pattern_bot_trades_total",
			Help: "Total number of closed trades by exit reason",
		},
		[]string{"instrument", "reason"},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pattern_bot_open_positions",
			Help: "Number of currently open positions",
		},
	)

	signalConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pattern_bot_signal_confidence",
			Help: "Confidence of the most recent cluster signal",
		},
		[]string{"instrument"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pattern_bot_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(classificationsTotal)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(signalConfidence)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler serves the Prometheus metrics endpoint.
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP implements http.Handler.
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// ObserveClassification records a classification outcome.
func ObserveClassification(clusterID int, signal string) {
	classificationsTotal.WithLabelValues(strconv.Itoa(clusterID), signal).Inc()
}

// RecordTrade records a closed trade.
func RecordTrade(instrument, reason string) {
	tradesTotal.WithLabelValues(instrument, reason).Inc()
}

// SetOpenPositions updates the open position gauge.
func SetOpenPositions(n int) {
	openPositions.Set(float64(n))
}

// UpdateSignalConfidence updates the latest signal confidence.
func UpdateSignalConfidence(instrument string, confidence float64) {
	signalConfidence.WithLabelValues(instrument).Set(confidence)
}

// RecordError records an error metric.
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
