package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	saleLines       prometheus.Counter
	saleGrossCents  prometheus.Counter
	saleFailures    *prometheus.CounterVec
	settlements     prometheus.Counter
	settledCents    prometheus.Counter
	invoiceEmails   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		saleLines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consigna_sale_lines_recorded_total",
			Help: "Sale records committed to the ledger",
		}),
		saleGrossCents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consigna_sale_gross_cents_total",
			Help: "Gross amount of committed sales in minor units",
		}),
		saleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consigna_sale_submissions_failed_total",
			Help: "Rejected sale submissions by reason",
		}, []string{"reason"}),
		settlements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consigna_settlements_total",
			Help: "Committed settlement batches",
		}),
		settledCents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consigna_settled_payout_cents_total",
			Help: "Payout amount flipped to settled in minor units",
		}),
		invoiceEmails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consigna_invoice_emails_total",
			Help: "Invoice email attempts by outcome",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.saleLines,
		m.saleGrossCents,
		m.saleFailures,
		m.settlements,
		m.settledCents,
		m.invoiceEmails,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request count and latency keyed by the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) SaleRecorded(lines int, grossCents int64) {
	if m == nil {
		return
	}
	m.saleLines.Add(float64(lines))
	m.saleGrossCents.Add(float64(grossCents))
}

func (m *Metrics) SaleRejected(reason string) {
	if m == nil {
		return
	}
	m.saleFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) SettlementCommitted(payoutCents int64) {
	if m == nil {
		return
	}
	m.settlements.Inc()
	m.settledCents.Add(float64(payoutCents))
}

func (m *Metrics) InvoiceEmail(outcome string) {
	if m == nil {
		return
	}
	m.invoiceEmails.WithLabelValues(outcome).Inc()
}
