package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout attempt outcomes and the calls they make to external gateways.
type CheckoutMetrics struct {
	attempts      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	gateway       *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	live          prometheus.Gauge
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer. A nil registerer
// yields a recorder whose methods are no-ops.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by terminal outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_attempt_duration_seconds",
		Help:    "Time from intent request to terminal state.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
	}, []string{"outcome"})
	gateway := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Latency of calls to external gateways.",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway", "result"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Post-commit notifications by channel and result.",
	}, []string{"channel", "result"})
	live := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "checkout_live_attempts",
		Help: "Attempts currently waiting on the payment UI.",
	})
	reg.MustRegister(attempts, duration, gateway, notifications, live)
	return &CheckoutMetrics{
		attempts:      attempts,
		duration:      duration,
		gateway:       gateway,
		notifications: notifications,
		live:          live,
	}
}

// ObserveAttempt records a finished attempt.
func (c *CheckoutMetrics) ObserveAttempt(outcome string, elapsed time.Duration) {
	if c == nil || c.attempts == nil {
		return
	}
	label := normalizeLabel(outcome)
	c.attempts.WithLabelValues(label).Inc()
	c.duration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// ObserveGateway records one outbound gateway call.
func (c *CheckoutMetrics) ObserveGateway(gateway string, err error, elapsed time.Duration) {
	if c == nil || c.gateway == nil {
		return
	}
	c.gateway.WithLabelValues(normalizeLabel(gateway), resultLabel(err)).Observe(elapsed.Seconds())
}

// IncNotification counts one notification delivery attempt.
func (c *CheckoutMetrics) IncNotification(channel string, err error) {
	if c == nil || c.notifications == nil {
		return
	}
	c.notifications.WithLabelValues(normalizeLabel(channel), resultLabel(err)).Inc()
}

// AttemptStarted and AttemptEnded track attempts waiting on the payment UI.
func (c *CheckoutMetrics) AttemptStarted() {
	if c == nil || c.live == nil {
		return
	}
	c.live.Inc()
}

func (c *CheckoutMetrics) AttemptEnded() {
	if c == nil || c.live == nil {
		return
	}
	c.live.Dec()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
