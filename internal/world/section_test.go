package world

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/chunkstore/internal/vec"
	"github.com/annel0/chunkstore/internal/world/block"
)

func testSection() *Section {
	a := &keyAllocator{}
	return newSection(a.allocate(vec.Vec3{X: 0, Y: 0, Z: 0}))
}

func TestSection_Defaults(t *testing.T) {
	s := testSection()

	assert.Equal(t, block.Air, s.GetBlock(3, 4, 5))
	assert.Equal(t, uint8(0), s.GetBlockLight(3, 4, 5))
	assert.Equal(t, uint8(MaxLight), s.GetSkyLight(3, 4, 5))
	assert.Equal(t, defaultPaletteBits, s.Bits())
	assert.False(t, s.IsDirty(), "Новая секция не должна быть грязной")
	assert.False(t, s.IsBuilding())
	requirePaletteInvariants(t, s)
}

func TestSection_SetGetRandomSequence(t *testing.T) {
	s := testSection()
	rng := rand.New(rand.NewSource(42))
	expected := make(map[int]block.Block)

	values := []block.Block{block.Air, stone, dirt, grass, sand}
	for i := 0; i < 40; i++ {
		values = append(values, block.Block{ID: block.BlockID(300 + i), Data: uint8(i % 16)})
	}

	for step := 0; step < 20000; step++ {
		x, y, z := rng.Intn(16), rng.Intn(16), rng.Intn(16)
		b := values[rng.Intn(len(values))]
		s.SetBlock(x, y, z, b)
		expected[sectionIndex(x, y, z)] = b
		assert.Equal(t, b, s.GetBlock(x, y, z))

		if step%1000 == 0 {
			requirePaletteInvariants(t, s)
		}
	}
	requirePaletteInvariants(t, s)

	for idx, b := range expected {
		assert.Equal(t, b, s.GetBlock(idx&0xF, idx>>8, (idx>>4)&0xF))
	}
}

func TestSection_SeventeenValuesDoubleWidthOnce(t *testing.T) {
	s := testSection()
	for i := 0; i < 17; i++ {
		s.SetBlock(i%16, i/16, 0, block.Block{ID: block.BlockID(100 + i)})
		if i < 15 {
			assert.Equal(t, 4, s.Bits(), "До заполнения палитры ширина остаётся 4")
		}
	}

	assert.Equal(t, 8, s.Bits(), "Ширина должна удвоиться ровно один раз")
	assert.Equal(t, 18, s.PaletteLen(), "Воздух + 17 значений")
	for i := 0; i < 17; i++ {
		assert.Equal(t, block.Block{ID: block.BlockID(100 + i)}, s.GetBlock(i%16, i/16, 0))
	}
	requirePaletteInvariants(t, s)
}

func TestSection_ReusesFreedPaletteSlot(t *testing.T) {
	s := testSection()
	s.SetBlock(0, 0, 0, stone)
	require.Equal(t, 2, s.PaletteLen())

	s.SetBlock(0, 0, 0, block.Air)
	requirePaletteInvariants(t, s)
	_, live := s.revPalette[stone]
	assert.False(t, live, "Освобождённый блок удаляется из обратной карты")

	s.SetBlock(1, 1, 1, dirt)
	assert.Equal(t, 2, s.PaletteLen(), "Свободный слот должен быть переиспользован")
	assert.Equal(t, dirt, s.GetBlock(1, 1, 1))
	assert.Equal(t, block.Air, s.GetBlock(0, 0, 0))
	requirePaletteInvariants(t, s)
}

func TestSection_ReplaceAllCells(t *testing.T) {
	s := testSection()
	for y := 0; y < 16; y++ {
		for z := 0; z < 16; z++ {
			for x := 0; x < 16; x++ {
				s.SetBlock(x, y, z, stone)
			}
		}
	}
	requirePaletteInvariants(t, s)
	assert.Equal(t, uint32(SectionVolume), s.palette[s.revPalette[stone]].refs)
	_, airLive := s.revPalette[block.Air]
	assert.False(t, airLive, "Воздух полностью вытеснен")
}

func TestSection_DirtyOnlyOnChange(t *testing.T) {
	s := testSection()
	s.SetBlock(1, 2, 3, block.Air)
	assert.False(t, s.IsDirty(), "Запись того же значения - не изменение")

	s.SetBlock(1, 2, 3, stone)
	assert.True(t, s.IsDirty())
}

func TestSection_BuildStateMachine(t *testing.T) {
	s := testSection()
	assert.False(t, s.enterBuild(), "Чистую секцию нельзя отправить в перестройку")

	s.SetBlock(0, 0, 0, stone)
	require.True(t, s.collectable())
	require.True(t, s.enterBuild())
	assert.False(t, s.IsDirty())
	assert.True(t, s.IsBuilding())
	assert.False(t, s.enterBuild(), "Повторный вход в перестройку запрещён")

	s.SetBlock(0, 0, 0, dirt)
	assert.True(t, s.IsDirty(), "Изменение во время перестройки взводит dirty")
	assert.True(t, s.IsBuilding())
	assert.False(t, s.collectable())

	s.exitBuild()
	assert.False(t, s.IsBuilding())
	assert.True(t, s.IsDirty(), "Выход из перестройки не трогает dirty")
	assert.True(t, s.collectable())
}

func TestSection_Light(t *testing.T) {
	s := testSection()
	s.SetBlockLight(15, 15, 15, 7)
	s.SetSkyLight(0, 0, 0, 3)

	assert.Equal(t, uint8(7), s.GetBlockLight(15, 15, 15))
	assert.Equal(t, uint8(3), s.GetSkyLight(0, 0, 0))
	assert.Equal(t, uint8(MaxLight), s.GetSkyLight(1, 0, 0))
}
