package ipc

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the Prometheus collectors a single Node pushes into. It is
// always non-nil on a constructed Node. New registers the collectors
// against prometheus.DefaultRegisterer unless WithRegisterer supplies
// another one; with a nil registerer they are created unregistered, so
// they are still updated but never exposed to a scraper.
type metrics struct {
	messages    *prometheus.CounterVec
	sendBytes   prometheus.Counter
	recvBytes   prometheus.Counter
	queueDepth  prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer, name string, dir Direction) *metrics {
	labels := prometheus.Labels{"channel": name, "direction": dir.String()}

	m := &metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ipc_messages_total",
			Help:        "Messages handled by this channel, by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		sendBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ipc_send_bytes_total",
			Help:        "Payload bytes successfully sent on this channel.",
			ConstLabels: labels,
		}),
		recvBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ipc_receive_bytes_total",
			Help:        "Payload bytes successfully received on this channel.",
			ConstLabels: labels,
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ipc_np_recv_queue_depth",
			Help:        "Number of buffers waiting in the named-pipe receive queue.",
			ConstLabels: labels,
		}),
	}

	if reg != nil {
		// Registration failures (e.g. a second Node reusing the same
		// channel name against the same registry) are not fatal: the
		// collectors still work locally, they just won't be scraped
		// under this registry. Metrics are observability, not the
		// contract.
		_ = reg.Register(m.messages)
		_ = reg.Register(m.sendBytes)
		_ = reg.Register(m.recvBytes)
		_ = reg.Register(m.queueDepth)
	}

	return m
}

func (m *metrics) sendOK(n int) {
	m.messages.WithLabelValues("ok").Inc()
	m.sendBytes.Add(float64(n))
}

func (m *metrics) sendErr() {
	m.messages.WithLabelValues("error").Inc()
}

func (m *metrics) recvOK(n int) {
	m.messages.WithLabelValues("ok").Inc()
	m.recvBytes.Add(float64(n))
}

func (m *metrics) recvErr() {
	m.messages.WithLabelValues("error").Inc()
}

func (m *metrics) setQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}
