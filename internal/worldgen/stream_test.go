package worldgen

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/chunkstore/internal/ingest"
	"github.com/annel0/chunkstore/internal/logging"
	"github.com/annel0/chunkstore/internal/vec"
	"github.com/annel0/chunkstore/internal/world/block"
)

func TestSpiral_CoversSquareOnce(t *testing.T) {
	center := vec.Vec2{X: 3, Y: -2}
	cells := spiral(center, 2)
	require.Len(t, cells, 25)
	assert.Equal(t, center, cells[0], "Первой идёт центральная колонка")

	seen := make(map[vec.Vec2]bool)
	for _, c := range cells {
		assert.False(t, seen[c], "Колонка %v повторяется", c)
		seen[c] = true
		assert.LessOrEqual(t, abs(c.X-center.X), 2)
		assert.LessOrEqual(t, abs(c.Y-center.Y), 2)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestStream_FeedsQueue(t *testing.T) {
	q, err := ingest.NewQueue(16, ingest.WithLogger(logging.NewWriterLogger("ingest", io.Discard, logging.ERROR)))
	require.NoError(t, err)
	defer q.Close()

	g := New(31)
	sent, err := g.Stream(context.Background(), q, block.Default(), vec.Vec2{}, 1, ingest.CompressionZstd)
	require.NoError(t, err)
	assert.Equal(t, 9, sent)

	w := newTestWorld()
	res := q.Drain(w, 0)
	assert.Equal(t, 9, res.Loaded)
	assert.Equal(t, 0, res.Failed)

	direct := newTestWorld()
	g.Populate(direct, -1, 1)
	for z := 16; z < 32; z += 4 {
		for x := -16; x < 0; x += 4 {
			for y := 0; y < 128; y += 7 {
				require.Equal(t, direct.GetBlock(x, y, z), w.GetBlock(x, y, z), "Ячейка %d,%d,%d", x, y, z)
			}
			assert.Equal(t, direct.GetBiome(x, z), w.GetBiome(x, z))
		}
	}
}

func TestStream_Cancelled(t *testing.T) {
	q, err := ingest.NewQueue(4, ingest.WithLogger(logging.NewWriterLogger("ingest", io.Discard, logging.ERROR)))
	require.NoError(t, err)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sent, err := New(1).Stream(ctx, q, nil, vec.Vec2{}, 3, ingest.CompressionNone)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, sent)
}
