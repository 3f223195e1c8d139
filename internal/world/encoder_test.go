package world

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/chunkstore/internal/world/block"
)

func wideRegistry(t *testing.T) *block.Registry {
	t.Helper()
	reg := block.NewRegistry()
	require.NoError(t, reg.Register("air", block.Air, 0))
	for i := 1; i <= 400; i++ {
		require.NoError(t, reg.Register(fmt.Sprintf("b%d", i), block.Block{ID: block.BlockID(i)}, block.VanillaID(uint32(i), 0)))
	}
	return reg
}

func TestEncodeChunk_RoundTrip(t *testing.T) {
	reg := wideRegistry(t)
	src := New(reg, WithLogger(newTestWorld(t).log))

	// слот 0: 4 бита, слот 1: 8 бит, слот 3: больше 256 значений - без таблицы
	for i := 0; i < 10; i++ {
		src.SetBlock(i, 0, 0, block.Block{ID: block.BlockID(1 + i%3)})
	}
	for i := 0; i < 40; i++ {
		src.SetBlock(i%16, 16+i/16, 3, block.Block{ID: block.BlockID(1 + i)})
	}
	for i := 0; i < 300; i++ {
		src.SetBlock(i%16, 48+(i/16)%16, i/256, block.Block{ID: block.BlockID(1 + i)})
	}
	src.SetBlockLight(3, 49, 0, 11)
	src.SetSkyLight(4, 17, 3, 6)
	src.SetBiome(7, 8, 12)

	require.Equal(t, 4, src.Chunk(0, 0).Section(0).Bits())
	require.Equal(t, 8, src.Chunk(0, 0).Section(1).Bits())
	require.Equal(t, 16, src.Chunk(0, 0).Section(3).Bits())

	mask, data, err := src.EncodeChunk(0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0b1011), mask)

	dst := New(reg, WithLogger(newTestWorld(t).log))
	require.NoError(t, dst.LoadChunk(0, 0, true, mask, data))

	for y := 0; y < 64; y++ {
		for z := 0; z < 16; z++ {
			for x := 0; x < 16; x++ {
				require.Equal(t, src.GetBlock(x, y, z), dst.GetBlock(x, y, z), "%d,%d,%d", x, y, z)
				require.Equal(t, src.GetBlockLight(x, y, z), dst.GetBlockLight(x, y, z))
				require.Equal(t, src.GetSkyLight(x, y, z), dst.GetSkyLight(x, y, z))
			}
		}
	}
	assert.Equal(t, byte(12), dst.GetBiome(7, 8))
	assert.Nil(t, dst.Chunk(0, 0).Section(2))
}

func TestEncodeChunk_UnknownBlocksBecomeAir(t *testing.T) {
	src := newTestWorld(t)
	src.SetBlock(0, 0, 0, block.Block{ID: 4242})
	src.SetBlock(1, 0, 0, stone)

	mask, data, err := src.EncodeChunk(0, 0)
	require.NoError(t, err)

	dst := newTestWorld(t)
	require.NoError(t, dst.LoadChunk(0, 0, true, mask, data))
	assert.Equal(t, block.Air, dst.GetBlock(0, 0, 0))
	assert.Equal(t, stone, dst.GetBlock(1, 0, 0))
}

func TestEncodeChunk_NotLoaded(t *testing.T) {
	w := newTestWorld(t)
	_, _, err := w.EncodeChunk(3, 3)
	assert.True(t, errors.Is(err, ErrChunkNotLoaded))
}
