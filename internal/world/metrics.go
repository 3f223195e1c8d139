package world

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics содержит Prometheus-метрики хранилища.
// Метрики без регистратора работают, но не экспортируются.
type Metrics struct {
	ChunksLoaded     prometheus.Gauge
	ChunkLoads       *prometheus.CounterVec
	ChunkUnloads     prometheus.Counter
	DirtySections    prometheus.Gauge
	PaletteResizes   prometheus.Counter
	SnapshotCaptures prometheus.Counter
	SnapshotVolume   prometheus.Histogram
}

// NewMetrics создаёт метрики и регистрирует их в reg (если reg != nil)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChunksLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chunkstore",
			Name:      "chunks_loaded",
			Help:      "Количество колонок в памяти.",
		}),
		ChunkLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chunkstore",
			Name:      "chunk_loads_total",
			Help:      "Загрузки колонок из сетевого формата по результату.",
		}, []string{"result"}),
		ChunkUnloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chunkstore",
			Name:      "chunk_unloads_total",
			Help:      "Общее число выгруженных колонок.",
		}),
		DirtySections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chunkstore",
			Name:      "dirty_sections",
			Help:      "Грязные секции, найденные последним опросом.",
		}),
		PaletteResizes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chunkstore",
			Name:      "palette_resizes_total",
			Help:      "Сколько раз расширялся массив индексов палитры.",
		}),
		SnapshotCaptures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chunkstore",
			Name:      "snapshot_captures_total",
			Help:      "Общее число снятых снимков.",
		}),
		SnapshotVolume: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chunkstore",
			Name:      "snapshot_volume_cells",
			Help:      "Объём снимков в ячейках.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ChunksLoaded,
			m.ChunkLoads,
			m.ChunkUnloads,
			m.DirtySections,
			m.PaletteResizes,
			m.SnapshotCaptures,
			m.SnapshotVolume,
		)
	}
	return m
}
