package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/annel0/chunkstore/internal/logging"
)

// Заголовки NATS-сообщения с колонкой; тело сообщения - полезная нагрузка
const (
	HeaderOp          = "Chunk-Op"
	HeaderX           = "Chunk-X"
	HeaderZ           = "Chunk-Z"
	HeaderNew         = "Chunk-New"
	HeaderMask        = "Chunk-Mask"
	HeaderCompression = "Chunk-Compression"

	opNameUnload = "unload"
)

// ErrBadMessage возвращается для сообщения без обязательных заголовков
var ErrBadMessage = errors.New("bad chunk message")

// NATSConfig содержит конфигурацию NATS-источника
type NATSConfig struct {
	URL           string
	Subject       string
	QueueGroup    string
	MaxReconnects int
	ReconnectWait time.Duration
	SubmitTimeout time.Duration
}

// NATSSource принимает колонки из NATS и передаёт их в Queue
type NATSSource struct {
	conn   *nats.Conn
	config NATSConfig
	queue  *Queue
	log    *logging.Logger

	subscription *nats.Subscription
	wg           sync.WaitGroup

	receivedCount atomic.Int64
	errorsCount   atomic.Int64
}

// NewNATSSource подключается к NATS
func NewNATSSource(config NATSConfig, q *Queue, log *logging.Logger) (*NATSSource, error) {
	// Настройки по умолчанию
	if config.Subject == "" {
		config.Subject = "chunkstore.chunks"
	}
	if config.MaxReconnects == 0 {
		config.MaxReconnects = 10
	}
	if config.ReconnectWait == 0 {
		config.ReconnectWait = 2 * time.Second
	}
	if config.SubmitTimeout == 0 {
		config.SubmitTimeout = 5 * time.Second
	}
	if log == nil {
		log = logging.GetIngestLogger()
	}

	opts := []nats.Option{
		nats.Name("chunkstore-ingest"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info("NATS ingest connected: %s (subject: %s)", config.URL, config.Subject)
	return &NATSSource{conn: conn, config: config, queue: q, log: log}, nil
}

// Start подписывается на subject; подписка снимается при отмене ctx
func (s *NATSSource) Start(ctx context.Context) error {
	if s.subscription != nil {
		return fmt.Errorf("already subscribed to %s", s.config.Subject)
	}

	handler := func(msg *nats.Msg) { s.handleMessage(ctx, msg) }
	var (
		sub *nats.Subscription
		err error
	)
	if s.config.QueueGroup != "" {
		sub, err = s.conn.QueueSubscribe(s.config.Subject, s.config.QueueGroup, handler)
	} else {
		sub, err = s.conn.Subscribe(s.config.Subject, handler)
	}
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.config.Subject, err)
	}
	s.subscription = sub

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			s.log.Warn("NATS unsubscribe: %v", err)
		}
	}()
	return nil
}

func (s *NATSSource) handleMessage(ctx context.Context, msg *nats.Msg) {
	s.receivedCount.Add(1)

	ctx, cancel := context.WithTimeout(ctx, s.config.SubmitTimeout)
	defer cancel()

	var err error
	if msg.Header.Get(HeaderOp) == opNameUnload {
		var x, z int
		if x, z, err = decodeCoords(msg.Header); err == nil {
			err = s.queue.SubmitUnload(ctx, x, z)
		}
	} else {
		var data ChunkData
		if data, err = DecodeChunkMessage(msg); err == nil {
			err = s.queue.Submit(ctx, data)
		}
	}
	if err != nil {
		s.errorsCount.Add(1)
		s.log.Warn("NATS chunk message on %s rejected: %v", msg.Subject, err)
	}
}

// Stats возвращает число принятых сообщений и ошибок
func (s *NATSSource) Stats() (received, errs int64) {
	return s.receivedCount.Load(), s.errorsCount.Load()
}

// Close закрывает соединение
func (s *NATSSource) Close() {
	s.conn.Close()
	s.wg.Wait()
}

// EncodeChunkMessage собирает NATS-сообщение с колонкой
func EncodeChunkMessage(subject string, data ChunkData) *nats.Msg {
	msg := nats.NewMsg(subject)
	msg.Header.Set(HeaderX, strconv.Itoa(data.X))
	msg.Header.Set(HeaderZ, strconv.Itoa(data.Z))
	msg.Header.Set(HeaderNew, strconv.FormatBool(data.New))
	msg.Header.Set(HeaderMask, strconv.FormatUint(uint64(data.Mask), 10))
	if data.Compression != "" {
		msg.Header.Set(HeaderCompression, string(data.Compression))
	}
	msg.Data = data.Payload
	return msg
}

// EncodeUnloadMessage собирает NATS-сообщение о выгрузке колонки
func EncodeUnloadMessage(subject string, x, z int) *nats.Msg {
	msg := nats.NewMsg(subject)
	msg.Header.Set(HeaderOp, opNameUnload)
	msg.Header.Set(HeaderX, strconv.Itoa(x))
	msg.Header.Set(HeaderZ, strconv.Itoa(z))
	return msg
}

// DecodeChunkMessage разбирает NATS-сообщение с колонкой
func DecodeChunkMessage(msg *nats.Msg) (ChunkData, error) {
	x, z, err := decodeCoords(msg.Header)
	if err != nil {
		return ChunkData{}, err
	}

	isNew, err := strconv.ParseBool(msg.Header.Get(HeaderNew))
	if err != nil {
		return ChunkData{}, fmt.Errorf("%w: %s: %v", ErrBadMessage, HeaderNew, err)
	}
	mask, err := strconv.ParseUint(msg.Header.Get(HeaderMask), 10, 16)
	if err != nil {
		return ChunkData{}, fmt.Errorf("%w: %s: %v", ErrBadMessage, HeaderMask, err)
	}

	return ChunkData{
		X:           x,
		Z:           z,
		New:         isNew,
		Mask:        uint16(mask),
		Compression: Compression(msg.Header.Get(HeaderCompression)),
		Payload:     msg.Data,
		Source:      "nats:" + msg.Subject,
	}, nil
}

func decodeCoords(h nats.Header) (int, int, error) {
	x, err := strconv.Atoi(h.Get(HeaderX))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s: %v", ErrBadMessage, HeaderX, err)
	}
	z, err := strconv.Atoi(h.Get(HeaderZ))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s: %v", ErrBadMessage, HeaderZ, err)
	}
	return x, z, nil
}
