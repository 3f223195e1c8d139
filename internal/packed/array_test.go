package packed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArray_GetSetAcrossWidths(t *testing.T) {
	for _, bits := range []int{1, 4, 5, 8, 13, 16, 31, 64} {
		a := NewArray(4096, bits)
		require.Equal(t, 4096, a.Len())

		max := uint64(1)<<uint(bits) - 1
		for i := 0; i < a.Len(); i++ {
			a.Set(i, int(uint64(i*2654435761)&max))
		}
		for i := 0; i < a.Len(); i++ {
			assert.Equal(t, int(uint64(i*2654435761)&max), a.Get(i), "bits=%d index=%d", bits, i)
		}
	}
}

func TestArray_ValueSpansWordBoundary(t *testing.T) {
	// при ширине 5 значение с индексом 12 занимает биты 60..64
	a := NewArray(32, 5)
	a.Set(11, 0x1F)
	a.Set(12, 0x15)
	a.Set(13, 0x0A)

	assert.Equal(t, 0x1F, a.Get(11))
	assert.Equal(t, 0x15, a.Get(12))
	assert.Equal(t, 0x0A, a.Get(13))
	assert.Equal(t, 0, a.Get(10), "Соседние значения не должны затрагиваться")
	assert.Equal(t, 0, a.Get(14), "Соседние значения не должны затрагиваться")

	a.Set(12, 0)
	assert.Equal(t, 0x1F, a.Get(11))
	assert.Equal(t, 0, a.Get(12))
	assert.Equal(t, 0x0A, a.Get(13))
}

func TestArray_SetMasksOversizedValue(t *testing.T) {
	a := NewArray(16, 4)
	a.Set(1, 0x7)
	a.Set(0, 0xFF)

	assert.Equal(t, 0xF, a.Get(0))
	assert.Equal(t, 0x7, a.Get(1), "Лишние биты не должны перетекать в соседа")
}

func TestArray_ResizePreservesValues(t *testing.T) {
	a := NewArray(4096, 4)
	for i := 0; i < a.Len(); i++ {
		a.Set(i, i%16)
	}

	b := a.Resize(8)
	require.Equal(t, 8, b.Bits())
	require.Equal(t, a.Len(), b.Len())
	for i := 0; i < b.Len(); i++ {
		assert.Equal(t, i%16, b.Get(i))
	}

	b.Set(0, 200)
	assert.Equal(t, 200, b.Get(0))
	assert.Equal(t, 0, a.Get(0), "Исходный массив не должен меняться")
}

func TestFromRaw(t *testing.T) {
	words := make([]uint64, 256)
	words[0] = 0x21 // значения 1 и 2 в первых двух ячейках
	a, err := FromRaw(words, 4)
	require.NoError(t, err)

	assert.Equal(t, 4096, a.Len())
	assert.Equal(t, 1, a.Get(0))
	assert.Equal(t, 2, a.Get(1))
	assert.Equal(t, 0, a.Get(2))

	a.Set(2, 3)
	assert.Equal(t, uint64(0x321), words[0], "FromRaw не копирует слова")
}

func TestFromRaw_RejectsBadWidth(t *testing.T) {
	for _, bits := range []int{0, -1, 65} {
		a, err := FromRaw(make([]uint64, 8), bits)
		assert.Error(t, err, "Ширина %d должна отклоняться", bits)
		assert.Nil(t, a)
	}
}
