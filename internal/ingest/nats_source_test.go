package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkMessage_RoundTrip(t *testing.T) {
	in := ChunkData{
		X: -3, Z: 17, New: true, Mask: 0x8005,
		Compression: CompressionZstd,
		Payload:     []byte{1, 2, 3},
	}
	msg := EncodeChunkMessage("chunkstore.chunks", in)

	out, err := DecodeChunkMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, in.X, out.X)
	assert.Equal(t, in.Z, out.Z)
	assert.Equal(t, in.New, out.New)
	assert.Equal(t, in.Mask, out.Mask)
	assert.Equal(t, in.Compression, out.Compression)
	assert.Equal(t, in.Payload, out.Payload)
	assert.Equal(t, "nats:chunkstore.chunks", out.Source)
}

func TestDecodeChunkMessage_BadHeaders(t *testing.T) {
	cases := map[string]func(h nats.Header){
		"нет X":          func(h nats.Header) { h.Del(HeaderX) },
		"Z не число":     func(h nats.Header) { h.Set(HeaderZ, "north") },
		"New не bool":    func(h nats.Header) { h.Set(HeaderNew, "maybe") },
		"маска > 16 бит": func(h nats.Header) { h.Set(HeaderMask, "65536") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			msg := EncodeChunkMessage("s", ChunkData{X: 1, Z: 2, Mask: 1})
			mutate(msg.Header)
			_, err := DecodeChunkMessage(msg)
			assert.True(t, errors.Is(err, ErrBadMessage), "Ожидалась ErrBadMessage, получено %v", err)
		})
	}
}

func TestNATSSource_HandleMessage(t *testing.T) {
	q, _ := newTestQueue(t, 4)
	src := &NATSSource{queue: q, log: quietLogger(), config: NATSConfig{SubmitTimeout: time.Second}}
	w := newTestWorld()

	mask, data := encodedColumn(t, 4, 4)
	src.handleMessage(context.Background(), EncodeChunkMessage("s", ChunkData{X: 4, Z: 4, New: true, Mask: mask, Payload: data}))
	src.handleMessage(context.Background(), EncodeUnloadMessage("s", 4, 4))
	src.handleMessage(context.Background(), nats.NewMsg("s"))

	received, errs := src.Stats()
	assert.Equal(t, int64(3), received)
	assert.Equal(t, int64(1), errs, "Сообщение без заголовков отклонено")

	res := q.Drain(w, 0)
	assert.Equal(t, DrainResult{Loaded: 1, Unloaded: 1}, res)
	assert.False(t, w.IsChunkLoaded(4, 4))
}
