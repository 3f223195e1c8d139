package mesher

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/chunkstore/internal/logging"
	"github.com/annel0/chunkstore/internal/vec"
	"github.com/annel0/chunkstore/internal/world"
)

// snapshotBorder - рамка вокруг секции, нужная для проверки соседей
const snapshotBorder = 1

// Job - задание на построение одной секции
type Job struct {
	ID  uuid.UUID
	Key world.SectionKey
	// Snapshot 18x18x18 в координатах секции: [0,16) - сама секция, -1 и 16 - рамка
	Snapshot *world.Snapshot
}

// Result - итог задания
type Result struct {
	JobID    uuid.UUID
	Key      world.SectionKey
	Mesh     Mesh
	Duration time.Duration
	Err      error
}

// Config - параметры планировщика
type Config struct {
	Workers     int
	MaxInFlight int
}

// TickStats - итог одного вызова Tick
type TickStats struct {
	Completed int `json:"completed"`
	Stale     int `json:"stale"`
	Failed    int `json:"failed"`
	Submitted int `json:"submitted"`
	InFlight  int `json:"in_flight"`
}

// Stats - накопленная статистика планировщика
type Stats struct {
	Completed int64 `json:"completed"`
	Stale     int64 `json:"stale"`
	Failed    int64 `json:"failed"`
	Submitted int64 `json:"submitted"`
	InFlight  int64 `json:"in_flight"`
}

// Scheduler раздаёт грязные секции воркерам.
//
// Tick и Shutdown вызываются владельцем World; Run работает в отдельных горутинах
// и видит только снимки.
type Scheduler struct {
	world       *world.World
	build       BuildFunc
	workers     int
	maxInFlight int

	jobs     chan Job
	results  chan Result
	inFlight map[world.SectionKey]uuid.UUID
	onBuilt  func(Result)

	completed atomic.Int64
	stale     atomic.Int64
	failed    atomic.Int64
	submitted atomic.Int64
	pending   atomic.Int64

	metrics *Metrics
	log     *logging.Logger
}

// Option настраивает Scheduler
type Option func(*Scheduler)

// WithBuildFunc заменяет функцию построения (по умолчанию CountFaces)
func WithBuildFunc(fn BuildFunc) Option {
	return func(s *Scheduler) { s.build = fn }
}

// WithResultHandler задаёт обработчик успешных результатов; вызывается из Tick
func WithResultHandler(fn func(Result)) Option {
	return func(s *Scheduler) { s.onBuilt = fn }
}

// WithMetrics подключает метрики
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithLogger задаёт логгер
func WithLogger(l *logging.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// NewScheduler создаёт планировщик для мира w
func NewScheduler(w *world.World, cfg Config, opts ...Option) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = cfg.Workers * 4
	}

	s := &Scheduler{
		world:       w,
		build:       CountFaces,
		workers:     cfg.Workers,
		maxInFlight: cfg.MaxInFlight,
		// Буферы на MaxInFlight: Tick никогда не блокируется на отправке,
		// воркеры никогда не блокируются на результате.
		jobs:     make(chan Job, cfg.MaxInFlight),
		results:  make(chan Result, cfg.MaxInFlight),
		inFlight: make(map[world.SectionKey]uuid.UUID),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	if s.log == nil {
		s.log = logging.GetMesherLogger()
	}
	return s
}

// Run запускает воркеров и ждёт отмены ctx.
// Возвращает nil при отмене контекста.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.workers; i++ {
		id := i
		g.Go(func() error {
			return s.worker(ctx, id)
		})
	}
	s.log.Info("Mesher started: workers=%d max_in_flight=%d", s.workers, s.maxInFlight)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	s.log.Info("Mesher stopped")
	return err
}

func (s *Scheduler) worker(ctx context.Context, id int) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-s.jobs:
			start := time.Now()
			mesh, err := s.safeBuild(ctx, job)
			res := Result{
				JobID:    job.ID,
				Key:      job.Key,
				Mesh:     mesh,
				Duration: time.Since(start),
				Err:      err,
			}
			s.metrics.BuildDuration.Observe(res.Duration.Seconds())
			s.log.Trace("Worker %d built %v in %v", id, job.Key.Pos, res.Duration)

			select {
			case s.results <- res:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// safeBuild не даёт панике в функции построения уронить пул
func (s *Scheduler) safeBuild(ctx context.Context, job Job) (mesh Mesh, err error) {
	ctx, span := otel.Tracer("chunkstore/mesher").Start(ctx, "mesher.build")
	span.SetAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.Int("section.x", job.Key.Pos.X),
		attribute.Int("section.y", job.Key.Pos.Y),
		attribute.Int("section.z", job.Key.Pos.Z),
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("build panicked: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("mesh.faces", mesh.Faces))
		}
		span.End()
	}()
	return s.build(ctx, job)
}

// Tick принимает готовые результаты и раздаёт новые задания.
// Вызывается только из горутины-владельца World.
func (s *Scheduler) Tick() TickStats {
	var st TickStats
	s.collect(&st)
	s.dispatch(&st)

	st.InFlight = len(s.inFlight)
	s.pending.Store(int64(len(s.inFlight)))
	s.metrics.InFlight.Set(float64(len(s.inFlight)))
	return st
}

func (s *Scheduler) collect(st *TickStats) {
	for {
		var res Result
		select {
		case res = <-s.results:
		default:
			return
		}

		if s.inFlight[res.Key] != res.JobID {
			// результат отменённого задания
			continue
		}
		delete(s.inFlight, res.Key)

		current, ok := s.world.SectionKeyAt(res.Key.Pos)
		if !ok || current != res.Key {
			st.Stale++
			s.stale.Add(1)
			s.metrics.Builds.WithLabelValues("stale").Inc()
			s.log.Debug("Discarding stale build of %v", res.Key.Pos)
			continue
		}
		s.world.ResetBuildingFlag(res.Key.Pos)

		if res.Err != nil {
			st.Failed++
			s.failed.Add(1)
			s.metrics.Builds.WithLabelValues("error").Inc()
			s.log.Warn("Build of %v failed: %v", res.Key.Pos, res.Err)
			continue
		}

		st.Completed++
		s.completed.Add(1)
		s.metrics.Builds.WithLabelValues("ok").Inc()
		s.metrics.Faces.Add(float64(res.Mesh.Faces))
		if s.onBuilt != nil {
			s.onBuilt(res)
		}
	}
}

func (s *Scheduler) dispatch(st *TickStats) {
	if len(s.inFlight) >= s.maxInFlight {
		return
	}

	for _, d := range s.world.GetDirtyChunkSections() {
		if len(s.inFlight) >= s.maxInFlight {
			return
		}
		if !s.world.SetBuildingFlag(d.Pos) {
			continue
		}

		job := Job{
			ID:       uuid.New(),
			Key:      d.Key,
			Snapshot: s.capture(d.Pos),
		}
		s.jobs <- job
		s.inFlight[d.Key] = job.ID
		st.Submitted++
		s.submitted.Add(1)
	}
}

// capture снимает секцию с рамкой и переводит снимок в координаты секции
func (s *Scheduler) capture(pos vec.Vec3) *world.Snapshot {
	size := world.SectionSize + 2*snapshotBorder
	snap := s.world.CaptureSnapshot(
		pos.X*world.SectionSize-snapshotBorder,
		pos.Y*world.SectionSize-snapshotBorder,
		pos.Z*world.SectionSize-snapshotBorder,
		size, size, size,
	)
	snap.MakeRelative(-snapshotBorder, -snapshotBorder, -snapshotBorder)
	return snap
}

// Shutdown снимает флаг перестройки со всех незавершённых секций.
// Вызывается владельцем после остановки Run; неразобранные задания отбрасываются.
func (s *Scheduler) Shutdown() {
drain:
	for {
		select {
		case <-s.jobs:
		case <-s.results:
		default:
			break drain
		}
	}

	for key := range s.inFlight {
		if current, ok := s.world.SectionKeyAt(key.Pos); ok && current == key {
			s.world.ResetBuildingFlag(key.Pos)
		}
		delete(s.inFlight, key)
	}
	s.pending.Store(0)
	s.metrics.InFlight.Set(0)
}

// Stats возвращает накопленную статистику; безопасно из любой горутины
func (s *Scheduler) Stats() Stats {
	return Stats{
		Completed: s.completed.Load(),
		Stale:     s.stale.Load(),
		Failed:    s.failed.Load(),
		Submitted: s.submitted.Load(),
		InFlight:  s.pending.Load(),
	}
}
