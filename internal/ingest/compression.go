package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Compression - способ сжатия полезной нагрузки колонки
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZlib Compression = "zlib"
	CompressionZstd Compression = "zstd"
)

// ErrUnknownCompression возвращается для неизвестного способа сжатия
var ErrUnknownCompression = errors.New("unknown compression")

// ErrPayloadTooLarge возвращается, если распакованные данные превышают предел кодека
var ErrPayloadTooLarge = errors.New("payload too large")

// DefaultMaxPayload - предел распакованной колонки по умолчанию.
// Колонка из 16 секций шириной 64 бита занимает около 600 КиБ.
const DefaultMaxPayload = 1 << 20

// ParseCompression разбирает название способа сжатия из конфигурации
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(s); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZlib, CompressionZstd:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCompression, s)
	}
}

// Codec сжимает и распаковывает полезную нагрузку.
// zstd кодер и декодер создаются один раз; EncodeAll/DecodeAll
// можно вызывать из нескольких горутин.
type Codec struct {
	encoder    *zstd.Encoder
	decoder    *zstd.Decoder
	maxPayload int
}

// NewCodec создаёт кодек, который отказывается распаковывать больше
// maxPayload байт. maxPayload <= 0 означает DefaultMaxPayload.
func NewCodec(maxPayload int) (*Codec, error) {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(maxPayload)))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Codec{encoder: enc, decoder: dec, maxPayload: maxPayload}, nil
}

// MaxPayload возвращает предел распакованных данных
func (c *Codec) MaxPayload() int {
	return c.maxPayload
}

func (c *Codec) tooLarge(n int) error {
	return fmt.Errorf("%w: more than %d bytes (got %d)", ErrPayloadTooLarge, c.maxPayload, n)
}

// Close освобождает ресурсы zstd
func (c *Codec) Close() {
	c.decoder.Close()
	_ = c.encoder.Close()
}

// Compress сжимает data
func (c *Codec) Compress(kind Compression, data []byte) ([]byte, error) {
	switch kind {
	case "", CompressionNone:
		return data, nil
	case CompressionZstd:
		return c.encoder.EncodeAll(data, nil), nil
	case CompressionZlib:
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, kind)
	}
}

// Decompress распаковывает data. Результат больше MaxPayload даёт ErrPayloadTooLarge.
func (c *Codec) Decompress(kind Compression, data []byte) ([]byte, error) {
	switch kind {
	case "", CompressionNone:
		if len(data) > c.maxPayload {
			return nil, c.tooLarge(len(data))
		}
		return data, nil
	case CompressionZstd:
		out, err := c.decoder.DecodeAll(data, nil)
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) {
			return nil, fmt.Errorf("zstd: %w: more than %d bytes", ErrPayloadTooLarge, c.maxPayload)
		}
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		if len(out) > c.maxPayload {
			return nil, c.tooLarge(len(out))
		}
		return out, nil
	case CompressionZlib:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		defer zr.Close()
		// лишний байт отличает ровно maxPayload от переполнения
		out, err := io.ReadAll(io.LimitReader(zr, int64(c.maxPayload)+1))
		if err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		if len(out) > c.maxPayload {
			return nil, fmt.Errorf("zlib: %w: more than %d bytes", ErrPayloadTooLarge, c.maxPayload)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, kind)
	}
}
