package mesher

import "github.com/prometheus/client_golang/prometheus"

// Metrics - метрики планировщика построения
type Metrics struct {
	Builds        *prometheus.CounterVec
	BuildDuration prometheus.Histogram
	InFlight      prometheus.Gauge
	Faces         prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg (если reg != nil)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chunkstore",
			Subsystem: "mesher",
			Name:      "builds_total",
			Help:      "Завершённые построения секций по результату.",
		}, []string{"result"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chunkstore",
			Subsystem: "mesher",
			Name:      "build_duration_seconds",
			Help:      "Время построения одной секции.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chunkstore",
			Subsystem: "mesher",
			Name:      "in_flight",
			Help:      "Секции, переданные воркерам и ещё не завершённые.",
		}),
		Faces: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chunkstore",
			Subsystem: "mesher",
			Name:      "faces_total",
			Help:      "Сумма видимых граней построенных секций.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Builds, m.BuildDuration, m.InFlight, m.Faces)
	}
	return m
}
