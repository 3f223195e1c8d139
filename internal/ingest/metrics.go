package ingest

import "github.com/prometheus/client_golang/prometheus"

// Metrics - метрики очереди приёма
type Metrics struct {
	Messages   *prometheus.CounterVec
	QueueDepth prometheus.Gauge
	Bytes      prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg (если reg != nil)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chunkstore",
			Subsystem: "ingest",
			Name:      "messages_total",
			Help:      "Сообщения очереди приёма по типу и результату.",
		}, []string{"kind", "result"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chunkstore",
			Subsystem: "ingest",
			Name:      "queue_depth",
			Help:      "Сообщения, ожидающие применения.",
		}),
		Bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chunkstore",
			Subsystem: "ingest",
			Name:      "payload_bytes_total",
			Help:      "Объём распакованных данных колонок.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Messages, m.QueueDepth, m.Bytes)
	}
	return m
}
