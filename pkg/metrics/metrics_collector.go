package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
type MetricsCollector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 收费业务指标
	paymentTransitionsTotal *prometheus.CounterVec
	refundsTotal            *prometheus.CounterVec
	refundAmountTotal       *prometheus.CounterVec
	invoicesIssuedTotal     prometheus.Counter

	// 审计队列指标
	auditQueueDepth prometheus.Gauge
}

var (
	globalCollector *MetricsCollector
	once            sync.Once
)

// GetGlobalCollector 获取全局指标收集器
func GetGlobalCollector() *MetricsCollector {
	once.Do(func() {
		globalCollector = NewMetricsCollector()
	})
	return globalCollector
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		paymentTransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_transitions_total",
				Help: "Total number of payment status transitions",
			},
			[]string{"from", "to"},
		),

		refundsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_refunds_total",
				Help: "Total number of refund attempts by outcome",
			},
			[]string{"outcome"},
		),

		refundAmountTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_refund_amount_total",
				Help: "Cumulative refunded amount by currency",
			},
			[]string{"currency"},
		),

		invoicesIssuedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "payment_invoices_issued_total",
				Help: "Total number of invoices issued",
			},
		),

		auditQueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "audit_queue_depth",
				Help: "Number of audit log entries waiting to be written",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, status string, durationSeconds float64) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordTransition 记录状态流转
func (m *MetricsCollector) RecordTransition(from, to string) {
	m.paymentTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordRefund 记录退款结果
func (m *MetricsCollector) RecordRefund(outcome, currency string, amount float64) {
	m.refundsTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		m.refundAmountTotal.WithLabelValues(currency).Add(amount)
	}
}

// RecordInvoiceIssued 记录开票
func (m *MetricsCollector) RecordInvoiceIssued() {
	m.invoicesIssuedTotal.Inc()
}

// SetAuditQueueDepth 设置审计队列深度
func (m *MetricsCollector) SetAuditQueueDepth(depth int) {
	m.auditQueueDepth.Set(float64(depth))
}
