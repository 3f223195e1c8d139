package world

import (
	"bytes"
	"testing"

	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/stretchr/testify/require"

	"github.com/annel0/chunkstore/internal/logging"
	"github.com/annel0/chunkstore/internal/packed"
	"github.com/annel0/chunkstore/internal/world/block"
)

var (
	stone = block.Of(block.StoneBlockID)
	dirt  = block.Of(block.DirtBlockID)
	grass = block.Of(block.GrassBlockID)
	sand  = block.Of(block.SandBlockID)
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	return New(block.Default(), WithLogger(logging.NewWriterLogger("world", &bytes.Buffer{}, logging.TRACE)))
}

// requirePaletteInvariants проверяет сумму ссылок и уникальность живых записей
func requirePaletteInvariants(t *testing.T, s *Section) {
	t.Helper()

	var total uint32
	live := make(map[block.Block]int)
	for i, e := range s.palette {
		total += e.refs
		if e.refs == 0 {
			continue
		}
		prev, dup := live[e.block]
		require.False(t, dup, "Блок %v живёт в слотах %d и %d", e.block, prev, i)
		live[e.block] = i
		require.Equal(t, i, s.revPalette[e.block], "Обратная карта должна указывать на живой слот")
	}
	require.Equal(t, uint32(SectionVolume), total, "Сумма ссылок палитры должна быть 4096")
	require.Len(t, s.revPalette, len(live), "Обратная карта содержит только живые записи")
	require.LessOrEqual(t, len(s.palette), 1<<uint(s.Bits()), "Ширины должно хватать на все слоты")
}

// sectionPayload описывает одну секцию в сетевом формате
type sectionPayload struct {
	bits       int
	palette    []int32 // nil - таблица не пишется (нужно bits > 8)
	cells      map[int]int
	fill       int // значение для ячеек, не указанных в cells
	blockLight byte
	skyLight   byte
	words      int // если > 0, переопределяет количество слов
}

func writeSection(t *testing.T, buf *bytes.Buffer, sp sectionPayload) {
	t.Helper()

	_, err := pk.UnsignedByte(sp.bits).WriteTo(buf)
	require.NoError(t, err)
	if sp.bits <= 8 {
		_, err = pk.VarInt(len(sp.palette)).WriteTo(buf)
		require.NoError(t, err)
		for _, id := range sp.palette {
			_, err = pk.VarInt(id).WriteTo(buf)
			require.NoError(t, err)
		}
	}

	cells := packed.NewArray(SectionVolume, sp.bits)
	for i := 0; i < SectionVolume; i++ {
		cells.Set(i, sp.fill)
	}
	for i, v := range sp.cells {
		cells.Set(i, v)
	}
	words := cells.Words()
	if sp.words > 0 {
		words = words[:sp.words]
	}
	_, err = pk.VarInt(len(words)).WriteTo(buf)
	require.NoError(t, err)
	for _, w := range words {
		_, err = pk.Long(w).WriteTo(buf)
		require.NoError(t, err)
	}

	buf.Write(bytes.Repeat([]byte{sp.blockLight}, SectionVolume/2))
	buf.Write(bytes.Repeat([]byte{sp.skyLight}, SectionVolume/2))
}

func payload(t *testing.T, sections ...sectionPayload) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, sp := range sections {
		writeSection(t, &buf, sp)
	}
	return buf.Bytes()
}
