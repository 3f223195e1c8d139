package world

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/annel0/chunkstore/internal/packed"
	"github.com/annel0/chunkstore/internal/vec"
	"github.com/annel0/chunkstore/internal/world/block"
)

// ErrMalformedPayload возвращается, если данные колонки обрезаны или некорректны
var ErrMalformedPayload = errors.New("malformed chunk payload")

const (
	// Ширина, начиная с которой таблица палитры не передаётся
	maxPalettedBits = 8
	// Верхние границы счётчиков в сетевом формате
	maxPaletteLen = SectionVolume
	maxWordCount  = SectionVolume
)

// LoadChunk разбирает сетевые данные колонки (x, z).
//
// isNew заменяет колонку целиком; иначе колонка должна существовать, и если её
// нет - обновлять нечего, возвращается nil. Каждый бит mask выбирает слот.
// После разбора грязными помечаются шесть соседних секций каждого разобранного слота.
// Загрузка не атомарна: при ошибке уже разобранные слоты остаются заполненными,
// и их соседи всё равно помечаются грязными.
func (w *World) LoadChunk(x, z int, isNew bool, mask uint16, data []byte) error {
	pos := vec.Vec2{X: x, Y: z}
	chunk, ok := w.chunks[pos]
	if isNew {
		chunk = newChunk(pos, &w.keys)
		w.chunks[pos] = chunk
		w.metrics.ChunksLoaded.Set(float64(len(w.chunks)))
	} else if !ok {
		w.log.Debug("Chunk %d,%d not loaded, update skipped", x, z)
		w.metrics.ChunkLoads.WithLabelValues("skipped").Inc()
		return nil
	}

	r := bytes.NewReader(data)
	var loaded uint16
	var err error
	for slot := 0; slot < SectionsPerChunk; slot++ {
		if mask&(1<<uint(slot)) == 0 {
			continue
		}
		s := chunk.ensureSection(slot)
		s.dirty = true

		before := s.Bits()
		if err = decodeSection(r, s, w.resolver); err != nil {
			err = fmt.Errorf("chunk %d,%d section %d: %w", x, z, slot, err)
			break
		}
		if s.Bits() > before {
			w.metrics.PaletteResizes.Inc()
		}
		loaded |= 1 << uint(slot)
	}

	// Хвост из 256 байт у новой колонки - слой биомов
	if err == nil && isNew && r.Len() >= BiomeArea {
		if _, rerr := io.ReadFull(r, chunk.biomes[:]); rerr != nil {
			err = fmt.Errorf("chunk %d,%d biomes: %w: %w", x, z, ErrMalformedPayload, rerr)
		}
	}

	w.flagNeighbours(x, z, loaded)

	if err != nil {
		w.metrics.ChunkLoads.WithLabelValues("error").Inc()
		w.log.Warn("Chunk %d,%d load failed after mask %#04x: %v", x, z, loaded, err)
		return err
	}
	w.metrics.ChunkLoads.WithLabelValues("ok").Inc()
	w.log.Trace("Chunk %d,%d loaded, mask %#04x, %d bytes", x, z, mask, len(data))
	return nil
}

// Соседи секции по граням: X/Z - соседние колонки, Y - соседние слоты
var faceOffsets = [...]vec.Vec3{
	{X: -1}, {X: 1},
	{Y: -1}, {Y: 1},
	{Z: -1}, {Z: 1},
}

// flagNeighbours помечает грязными соседей по граням каждого слота из mask
func (w *World) flagNeighbours(x, z int, mask uint16) {
	for slot := 0; slot < SectionsPerChunk; slot++ {
		if mask&(1<<uint(slot)) == 0 {
			continue
		}
		pos := vec.Vec3{X: x, Y: slot, Z: z}
		for _, off := range faceOffsets {
			w.flagSectionDirty(pos.Add(off))
		}
	}
}

func malformed(what string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrMalformedPayload, what)
	}
	return fmt.Errorf("%w: %s: %w", ErrMalformedPayload, what, err)
}

// decodeSection читает одну секцию: ширину, таблицу палитры, упакованные
// индексы и два массива света.
func decodeSection(r io.Reader, s *Section, resolver block.Resolver) error {
	var bitWidth pk.UnsignedByte
	if _, err := bitWidth.ReadFrom(r); err != nil {
		return malformed("bit width", err)
	}
	bits := int(bitWidth)
	if bits == 0 || bits > 64 {
		return malformed(fmt.Sprintf("bit width %d", bits), nil)
	}

	var table []uint32
	if bits <= maxPalettedBits {
		var count pk.VarInt
		if _, err := count.ReadFrom(r); err != nil {
			return malformed("palette length", err)
		}
		if count < 0 || int(count) > maxPaletteLen {
			return malformed(fmt.Sprintf("palette length %d", count), nil)
		}
		table = make([]uint32, count)
		for i := range table {
			var id pk.VarInt
			if _, err := id.ReadFrom(r); err != nil {
				return malformed("palette entry", err)
			}
			if id < 0 {
				return malformed(fmt.Sprintf("palette entry %d", id), nil)
			}
			table[i] = uint32(id)
		}
	}

	var wordCount pk.VarInt
	if _, err := wordCount.ReadFrom(r); err != nil {
		return malformed("data length", err)
	}
	need := (SectionVolume*bits + 63) / 64
	if int(wordCount) < need || int(wordCount) > maxWordCount {
		return malformed(fmt.Sprintf("data length %d for width %d", wordCount, bits), nil)
	}
	words := make([]uint64, wordCount)
	for i := range words {
		var word pk.Long
		if _, err := word.ReadFrom(r); err != nil {
			return malformed("data", err)
		}
		words[i] = uint64(word)
	}

	cells, err := packed.FromRaw(words, bits)
	if err != nil {
		return malformed("data", err)
	}
	for i := 0; i < SectionVolume; i++ {
		v := cells.Get(i)
		// значения шире 32 бит не бывают глобальными ID
		b := block.Missing
		switch {
		case v >= 0 && v < len(table):
			b = resolver.ByGlobalID(table[v])
		case v >= 0 && uint64(v) <= math.MaxUint32:
			b = resolver.ByGlobalID(uint32(v))
		}
		s.SetBlock(i&0xF, i>>8, (i>>4)&0xF, b)
	}

	if _, err := io.ReadFull(r, s.blockLight.Bytes()); err != nil {
		return malformed("block light", err)
	}
	if _, err := io.ReadFull(r, s.skyLight.Bytes()); err != nil {
		return malformed("sky light", err)
	}
	return nil
}
