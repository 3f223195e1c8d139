package worldgen

import (
	"context"
	"fmt"
	"io"

	"github.com/annel0/chunkstore/internal/ingest"
	"github.com/annel0/chunkstore/internal/logging"
	"github.com/annel0/chunkstore/internal/vec"
	"github.com/annel0/chunkstore/internal/world"
	"github.com/annel0/chunkstore/internal/world/block"
)

// Stream генерирует колонки вокруг center и отправляет их в очередь q
// в сетевом формате, как это делал бы удалённый узел. Колонки строятся
// в собственном черновом мире, поэтому Stream можно вызывать из любой горутины.
func (g *Generator) Stream(ctx context.Context, q *ingest.Queue, resolver block.Resolver, center vec.Vec2, radius int, compression ingest.Compression) (int, error) {
	scratch := world.New(resolver, world.WithLogger(logging.NewWriterLogger("worldgen", io.Discard, logging.ERROR)))

	sent := 0
	for _, pos := range spiral(center, radius) {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		g.Populate(scratch, pos.X, pos.Y)
		mask, data, err := scratch.EncodeChunk(pos.X, pos.Y)
		scratch.UnloadChunk(pos.X, pos.Y)
		if err != nil {
			return sent, fmt.Errorf("encode chunk %d,%d: %w", pos.X, pos.Y, err)
		}

		payload, err := q.Codec().Compress(compression, data)
		if err != nil {
			return sent, err
		}
		err = q.Submit(ctx, ingest.ChunkData{
			X:           pos.X,
			Z:           pos.Y,
			New:         true,
			Mask:        mask,
			Compression: compression,
			Payload:     payload,
			Source:      "worldgen",
		})
		if err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// spiral возвращает колонки квадрата радиуса radius по кольцам от центра
func spiral(center vec.Vec2, radius int) []vec.Vec2 {
	out := []vec.Vec2{center}
	for r := 1; r <= radius; r++ {
		for dx := -r; dx <= r; dx++ {
			out = append(out, center.Add(vec.Vec2{X: dx, Y: -r}), center.Add(vec.Vec2{X: dx, Y: r}))
		}
		for dz := -r + 1; dz <= r-1; dz++ {
			out = append(out, center.Add(vec.Vec2{X: -r, Y: dz}), center.Add(vec.Vec2{X: r, Y: dz}))
		}
	}
	return out
}
