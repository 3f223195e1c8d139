package node

import (
	"context"
	"time"

	"github.com/annel0/chunkstore/internal/debugapi"
	"github.com/annel0/chunkstore/internal/ingest"
	"github.com/annel0/chunkstore/internal/logging"
	"github.com/annel0/chunkstore/internal/mesher"
	"github.com/annel0/chunkstore/internal/world"
)

// Config - параметры цикла владельца
type Config struct {
	TickInterval time.Duration
	DrainPerTick int
}

// Node - горутина-владелец мира. Только она вызывает методы World:
// применяет очередь приёма, раздаёт секции на построение и публикует статистику.
type Node struct {
	world  *world.World
	queue  *ingest.Queue
	mesher *mesher.Scheduler
	stats  *debugapi.StatsBox
	cfg    Config
	tickID uint64
	log    *logging.Logger
}

// New создаёт владельца. stats может быть nil.
func New(w *world.World, q *ingest.Queue, m *mesher.Scheduler, stats *debugapi.StatsBox, cfg Config, log *logging.Logger) *Node {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 50 * time.Millisecond // 20 Hz
	}
	if stats == nil {
		stats = &debugapi.StatsBox{}
	}
	if log == nil {
		log = logging.GetWorldLogger()
	}
	return &Node{
		world:  w,
		queue:  q,
		mesher: m,
		stats:  stats,
		cfg:    cfg,
		log:    log,
	}
}

// Run крутит тики до отмены ctx. Перед выходом снимает флаги
// незавершённых построений; воркеры mesher к этому моменту должны быть остановлены
// или остановиться по тому же ctx.
func (n *Node) Run(ctx context.Context) error {
	ticker := time.NewTicker(n.cfg.TickInterval)
	defer ticker.Stop()

	n.log.Info("Owner loop started: tick=%v drain=%d", n.cfg.TickInterval, n.cfg.DrainPerTick)
	for {
		select {
		case <-ctx.Done():
			n.mesher.Shutdown()
			n.publish()
			n.log.Info("Owner loop stopped after %d ticks", n.tickID)
			return nil
		case <-ticker.C:
			n.processTick()
		}
	}
}

// processTick обрабатывает один тик
func (n *Node) processTick() {
	n.tickID++

	// 1. Применяем пришедшие колонки
	drained := n.queue.Drain(n.world, n.cfg.DrainPerTick)
	if drained.Failed > 0 {
		n.log.Warn("Tick %d: %d chunk payloads failed", n.tickID, drained.Failed)
	}

	// 2. Забираем готовые построения и раздаём новые
	built := n.mesher.Tick()
	if built.Submitted > 0 || built.Completed > 0 {
		n.log.Trace("Tick %d: loaded=%d unloaded=%d built=%d submitted=%d stale=%d",
			n.tickID, drained.Loaded, drained.Unloaded, built.Completed, built.Submitted, built.Stale)
	}

	// 3. Публикуем копию статистики для HTTP
	n.publish()
}

func (n *Node) publish() {
	n.stats.Publish(debugapi.Report{
		Tick:          n.tickID,
		World:         n.world.Stats(),
		Mesher:        n.mesher.Stats(),
		IngestPending: n.queue.Len(),
		UpdatedAt:     time.Now(),
	})
}
