package conn

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the optional Prometheus instrumentation for a Connection.
// It is nil-safe throughout: a zero-value *Metrics (or a nil Connection.
// Metrics field) simply means no metrics are recorded, so the facade never
// needs a build tag or interface to stay free of a hard Prometheus
// dependency for callers who don't register one.
type Metrics struct {
	Requests  *prometheus.CounterVec
	Retries   prometheus.Counter
	Timeouts  prometheus.Counter
	Resyncs   prometheus.Counter
	XferBytes *prometheus.CounterVec
}

// NewMetrics constructs a Metrics and registers every collector with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "badgelink",
			Name:      "requests_total",
			Help:      "Requests sent to the badge, by result.",
		}, []string{"result"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "badgelink",
			Name:      "request_retries_total",
			Help:      "Times a request was retried after a timeout.",
		}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "badgelink",
			Name:      "request_timeouts_total",
			Help:      "Times a request exhausted all retries without a response.",
		}),
		Resyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "badgelink",
			Name:      "resyncs_total",
			Help:      "Times the serial-number handshake was (re-)performed.",
		}),
		XferBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "badgelink",
			Name:      "transfer_bytes_total",
			Help:      "Bytes moved in chunked bulk transfers, by direction.",
		}, []string{"direction"}),
	}
	for _, c := range []prometheus.Collector{m.Requests, m.Retries, m.Timeouts, m.Resyncs, m.XferBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeRequest(result string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(result).Inc()
}

func (m *Metrics) observeRetry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}

func (m *Metrics) observeTimeout() {
	if m == nil {
		return
	}
	m.Timeouts.Inc()
}

func (m *Metrics) observeResync() {
	if m == nil {
		return
	}
	m.Resyncs.Inc()
}

// ObserveXfer counts n bytes moved in a bulk transfer in direction ("up" or
// "down").
func (m *Metrics) ObserveXfer(direction string, n int) {
	if m == nil {
		return
	}
	m.XferBytes.WithLabelValues(direction).Add(float64(n))
}
