package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tutoring"

// Metrics набор prometheus-метрик сервиса
// Все методы безопасны для nil-получателя: при выключенных метриках передаётся nil
type Metrics struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	dbQueryDuration *prometheus.HistogramVec
	dbQueryErrors   *prometheus.CounterVec
	dbOpenConns     *prometheus.GaugeVec
	dbInUseConns    *prometheus.GaugeVec
	dbIdleConns     *prometheus.GaugeVec
	dbWaitCount     *prometheus.GaugeVec

	allocationOutcomes *prometheus.CounterVec
	commitResults      *prometheus.CounterVec
	claimResults       *prometheus.CounterVec
	notifications      *prometheus.CounterVec
	archivedBookings   prometheus.Counter
	rebroadcasts       prometheus.Counter
}

// New регистрирует метрики в prometheus.DefaultRegisterer
func New(serviceName string) *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer, serviceName)
}

// NewWithRegisterer регистрирует метрики в переданном регистре
func NewWithRegisterer(reg prometheus.Registerer, serviceName string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total HTTP requests by method, route and status.",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request latency in seconds.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),

		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "db",
			Name:        "query_duration_seconds",
			Help:        "Database query latency in seconds by operation.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		}, []string{"operation"}),
		dbQueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "db",
			Name:        "query_errors_total",
			Help:        "Total failed database operations.",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		dbOpenConns:  newPoolGauge(constLabels, "open_connections", "Open connections in the pool."),
		dbInUseConns: newPoolGauge(constLabels, "in_use_connections", "Connections currently in use."),
		dbIdleConns:  newPoolGauge(constLabels, "idle_connections", "Idle connections in the pool."),
		dbWaitCount:  newPoolGauge(constLabels, "wait_count", "Total connections waited for."),

		allocationOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "allocation",
			Name:        "outcomes_total",
			Help:        "Allocation outcomes (assigned, no_eligible_tutor, all_busy, conflicts_exhausted).",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		commitResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "allocation",
			Name:        "commits_total",
			Help:        "Commit attempts by mode and result (committed, conflict, closed, error).",
			ConstLabels: constLabels,
		}, []string{"mode", "result"}),
		claimResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "allocation",
			Name:        "claims_total",
			Help:        "Claim attempts by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "notifications",
			Name:        "sent_total",
			Help:        "Notifications by channel and result (sent, failed).",
			ConstLabels: constLabels,
		}, []string{"channel", "result"}),
		archivedBookings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "archived_bookings_total",
			Help:        "Bookings archived by the sweep.",
			ConstLabels: constLabels,
		}),
		rebroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "rebroadcast_bookings_total",
			Help:        "Open bookings re-announced to tutors.",
			ConstLabels: constLabels,
		}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.dbQueryDuration,
		m.dbQueryErrors,
		m.dbOpenConns,
		m.dbInUseConns,
		m.dbIdleConns,
		m.dbWaitCount,
		m.allocationOutcomes,
		m.commitResults,
		m.claimResults,
		m.notifications,
		m.archivedBookings,
		m.rebroadcasts,
	)

	return m
}

func newPoolGauge(constLabels prometheus.Labels, name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "db_pool",
		Name:        name,
		Help:        help,
		ConstLabels: constLabels,
	}, []string{"db"})
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) ObserveDBQuery(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.dbQueryErrors.WithLabelValues(operation).Inc()
	}
}

// SetPoolStats обновляет gauge'и пула соединений
func (m *Metrics) SetPoolStats(db string, open, inUse, idle int, waitCount int64) {
	if m == nil {
		return
	}
	m.dbOpenConns.WithLabelValues(db).Set(float64(open))
	m.dbInUseConns.WithLabelValues(db).Set(float64(inUse))
	m.dbIdleConns.WithLabelValues(db).Set(float64(idle))
	m.dbWaitCount.WithLabelValues(db).Set(float64(waitCount))
}

func (m *Metrics) IncAllocationOutcome(reason string) {
	if m == nil {
		return
	}
	m.allocationOutcomes.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncCommit(mode, result string) {
	if m == nil {
		return
	}
	m.commitResults.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) IncClaim(result string) {
	if m == nil {
		return
	}
	m.claimResults.WithLabelValues(result).Inc()
}

func (m *Metrics) IncNotification(channel, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) AddArchived(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.archivedBookings.Add(float64(n))
}

func (m *Metrics) IncRebroadcast() {
	if m == nil {
		return
	}
	m.rebroadcasts.Inc()
}
