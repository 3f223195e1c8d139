package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/annel0/chunkstore/internal/logging"
	"github.com/annel0/chunkstore/internal/world"
)

// ErrQueueClosed возвращается при отправке в закрытую очередь
var ErrQueueClosed = errors.New("ingest queue closed")

// ErrQueueFull возвращается TrySubmit, когда буфер заполнен
var ErrQueueFull = errors.New("ingest queue full")

// ChunkData - сообщение с данными колонки, пришедшее из сети
type ChunkData struct {
	X, Z        int
	New         bool
	Mask        uint16
	Compression Compression
	Payload     []byte
	Source      string
}

type opKind int

const (
	opLoad opKind = iota
	opUnload
)

func (k opKind) String() string {
	if k == opUnload {
		return "unload"
	}
	return "load"
}

type op struct {
	kind   opKind
	x, z   int
	isNew  bool
	mask   uint16
	data   []byte
	source string
}

// DrainResult - итог одного вызова Drain
type DrainResult struct {
	Loaded   int
	Unloaded int
	Failed   int
}

// Queue передаёт изменения колонок от сетевых горутин владельцу мира.
//
// Submit и SubmitUnload безопасны для конкурентного вызова; распаковка
// выполняется на стороне отправителя. Drain вызывается только владельцем World.
type Queue struct {
	ops        chan op
	done       chan struct{}
	codec      *Codec
	maxPayload int
	metrics    *Metrics
	log        *logging.Logger
}

// Option настраивает Queue
type Option func(*Queue)

// WithMetrics подключает метрики
func WithMetrics(m *Metrics) Option {
	return func(q *Queue) { q.metrics = m }
}

// WithLogger задаёт логгер
func WithLogger(l *logging.Logger) Option {
	return func(q *Queue) { q.log = l }
}

// WithMaxPayload ограничивает размер распакованной колонки
func WithMaxPayload(n int) Option {
	return func(q *Queue) { q.maxPayload = n }
}

// NewQueue создаёт очередь на size сообщений
func NewQueue(size int, opts ...Option) (*Queue, error) {
	if size <= 0 {
		return nil, fmt.Errorf("queue size must be positive, got %d", size)
	}
	q := &Queue{
		ops:  make(chan op, size),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	codec, err := NewCodec(q.maxPayload)
	if err != nil {
		return nil, err
	}
	q.codec = codec
	if q.metrics == nil {
		q.metrics = NewMetrics(nil)
	}
	if q.log == nil {
		q.log = logging.GetIngestLogger()
	}
	return q, nil
}

// Codec возвращает кодек очереди
func (q *Queue) Codec() *Codec {
	return q.codec
}

// Close закрывает очередь для новых сообщений. Уже принятые можно применить через Drain.
func (q *Queue) Close() {
	select {
	case <-q.done:
	default:
		close(q.done)
		q.codec.Close()
	}
}

// Len возвращает число ожидающих сообщений
func (q *Queue) Len() int {
	return len(q.ops)
}

func (q *Queue) prepare(ctx context.Context, msg ChunkData) (op, error) {
	_, span := otel.Tracer("chunkstore/ingest").Start(ctx, "ingest.decompress")
	defer span.End()
	span.SetAttributes(
		attribute.Int("chunk.x", msg.X),
		attribute.Int("chunk.z", msg.Z),
		attribute.String("compression", string(msg.Compression)),
		attribute.Int("payload.bytes", len(msg.Payload)),
	)

	data, err := q.codec.Decompress(msg.Compression, msg.Payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		q.metrics.Messages.WithLabelValues(opLoad.String(), "rejected").Inc()
		q.log.LogPayloadError(msg.Source, err, msg.Payload)
		return op{}, fmt.Errorf("chunk %d,%d: %w", msg.X, msg.Z, err)
	}
	q.metrics.Bytes.Add(float64(len(data)))
	return op{
		kind:   opLoad,
		x:      msg.X,
		z:      msg.Z,
		isNew:  msg.New,
		mask:   msg.Mask,
		data:   data,
		source: msg.Source,
	}, nil
}

// Submit распаковывает сообщение и ставит его в очередь, ожидая места в буфере
func (q *Queue) Submit(ctx context.Context, msg ChunkData) error {
	o, err := q.prepare(ctx, msg)
	if err != nil {
		return err
	}
	return q.enqueue(ctx, o)
}

// TrySubmit как Submit, но не ждёт: при полном буфере возвращает ErrQueueFull
func (q *Queue) TrySubmit(msg ChunkData) error {
	o, err := q.prepare(context.Background(), msg)
	if err != nil {
		return err
	}
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ops <- o:
		q.metrics.QueueDepth.Set(float64(len(q.ops)))
		return nil
	default:
		q.metrics.Messages.WithLabelValues(o.kind.String(), "dropped").Inc()
		return ErrQueueFull
	}
}

// SubmitUnload ставит в очередь выгрузку колонки
func (q *Queue) SubmitUnload(ctx context.Context, x, z int) error {
	return q.enqueue(ctx, op{kind: opUnload, x: x, z: z})
}

func (q *Queue) enqueue(ctx context.Context, o op) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ops <- o:
		q.metrics.QueueDepth.Set(float64(len(q.ops)))
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain применяет к w не более limit ожидающих сообщений (limit <= 0 - все).
// Ошибки разбора логируются; частично загруженная колонка остаётся в мире.
func (q *Queue) Drain(w *world.World, limit int) DrainResult {
	var res DrainResult
	for limit <= 0 || res.Loaded+res.Unloaded+res.Failed < limit {
		var o op
		select {
		case o = <-q.ops:
		default:
			q.metrics.QueueDepth.Set(float64(len(q.ops)))
			return res
		}

		switch o.kind {
		case opUnload:
			w.UnloadChunk(o.x, o.z)
			res.Unloaded++
			q.metrics.Messages.WithLabelValues(o.kind.String(), "ok").Inc()
		case opLoad:
			if err := w.LoadChunk(o.x, o.z, o.isNew, o.mask, o.data); err != nil {
				res.Failed++
				q.metrics.Messages.WithLabelValues(o.kind.String(), "error").Inc()
				q.log.LogPayloadError(o.source, err, o.data)
				continue
			}
			res.Loaded++
			q.metrics.Messages.WithLabelValues(o.kind.String(), "ok").Inc()
		}
	}
	q.metrics.QueueDepth.Set(float64(len(q.ops)))
	return res
}
