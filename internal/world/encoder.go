package world

import (
	"bytes"
	"errors"
	"io"
	"math/bits"

	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/annel0/chunkstore/internal/packed"
	"github.com/annel0/chunkstore/internal/vec"
	"github.com/annel0/chunkstore/internal/world/block"
)

// ErrChunkNotLoaded возвращается при попытке закодировать отсутствующую колонку
var ErrChunkNotLoaded = errors.New("chunk not loaded")

// EncodeChunk кодирует колонку в сетевой формат, который понимает LoadChunk.
// Возвращает маску записанных слотов и данные; слой биомов пишется всегда,
// поэтому результат рассчитан на загрузку с isNew = true.
func (w *World) EncodeChunk(x, z int) (uint16, []byte, error) {
	chunk, ok := w.chunks[vec.Vec2{X: x, Y: z}]
	if !ok {
		return 0, nil, ErrChunkNotLoaded
	}

	var buf bytes.Buffer
	var mask uint16
	for slot, s := range chunk.sections {
		if s == nil {
			continue
		}
		mask |= 1 << uint(slot)
		if err := encodeSection(&buf, s, w.resolver); err != nil {
			return 0, nil, err
		}
	}
	buf.Write(chunk.biomes[:])
	return mask, buf.Bytes(), nil
}

func encodeSection(w io.Writer, s *Section, resolver block.Resolver) error {
	globalID := func(b block.Block) uint32 {
		id, ok := resolver.GlobalID(b)
		if !ok {
			// блоки вне реестра передаются как воздух
			id, _ = resolver.GlobalID(block.Air)
		}
		return id
	}

	var cells *packed.Array
	if s.Bits() <= maxPalettedBits {
		cells = s.blocks
		if _, err := (pk.UnsignedByte(cells.Bits())).WriteTo(w); err != nil {
			return err
		}
		if _, err := pk.VarInt(len(s.palette)).WriteTo(w); err != nil {
			return err
		}
		for _, e := range s.palette {
			if _, err := pk.VarInt(globalID(e.block)).WriteTo(w); err != nil {
				return err
			}
		}
	} else {
		// Без таблицы в ячейках лежат глобальные ID
		var maxID uint32
		for _, e := range s.palette {
			if id := globalID(e.block); id > maxID {
				maxID = id
			}
		}
		width := bits.Len32(maxID)
		if width <= maxPalettedBits {
			width = maxPalettedBits + 1
		}
		cells = packed.NewArray(SectionVolume, width)
		for i := 0; i < SectionVolume; i++ {
			cells.Set(i, int(globalID(s.palette[s.blocks.Get(i)].block)))
		}
		if _, err := (pk.UnsignedByte(width)).WriteTo(w); err != nil {
			return err
		}
	}

	words := cells.Words()
	if _, err := pk.VarInt(len(words)).WriteTo(w); err != nil {
		return err
	}
	for _, word := range words {
		if _, err := pk.Long(word).WriteTo(w); err != nil {
			return err
		}
	}

	if _, err := w.Write(s.blockLight.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(s.skyLight.Bytes())
	return err
}
