package world

import (
	"github.com/annel0/chunkstore/internal/packed"
	"github.com/annel0/chunkstore/internal/vec"
	"github.com/annel0/chunkstore/internal/world/block"
)

// Размеры секции и колонки
const (
	SectionSize      = 16
	SectionVolume    = SectionSize * SectionSize * SectionSize
	SectionsPerChunk = 16
	ChunkHeight      = SectionSize * SectionsPerChunk

	// Начальная ширина индекса палитры
	defaultPaletteBits = 4
	// Полный уровень небесного света
	MaxLight = 15
)

// SectionKey - непрозрачный идентификатор секции для очередей перестройки.
// Generation уникален в пределах мира, поэтому ключ выгруженной секции
// никогда не совпадёт с ключом секции, созданной после повторной загрузки.
type SectionKey struct {
	Pos        vec.Vec3 // X/Z - колонка, Y - вертикальный слот
	Generation uint64
}

// keyAllocator выдаёт поколения для ключей секций
type keyAllocator struct {
	next uint64
}

func (a *keyAllocator) allocate(pos vec.Vec3) SectionKey {
	a.next++
	return SectionKey{Pos: pos, Generation: a.next}
}

type paletteEntry struct {
	block block.Block
	refs  uint32
}

// Section - куб 16x16x16 со сжатием через палитру.
// Ячейки хранят индексы палитры шириной от 4 бит, ширина удваивается
// только когда нет свободного слота.
type Section struct {
	key SectionKey
	y   uint8

	blocks     *packed.Array
	palette    []paletteEntry
	revPalette map[block.Block]int

	blockLight *packed.NibbleArray
	skyLight   *packed.NibbleArray

	dirty    bool
	building bool
}

func newSection(key SectionKey) *Section {
	s := &Section{
		key:        key,
		y:          uint8(key.Pos.Y),
		blocks:     packed.NewArray(SectionVolume, defaultPaletteBits),
		palette:    []paletteEntry{{block: block.Air, refs: SectionVolume}},
		revPalette: map[block.Block]int{block.Air: 0},
		blockLight: packed.NewNibbleArray(SectionVolume),
		skyLight:   packed.NewNibbleArray(SectionVolume),
	}
	s.skyLight.Fill(MaxLight)
	return s
}

// sectionIndex упаковывает локальные координаты в индекс ячейки
func sectionIndex(x, y, z int) int {
	return (y << 8) | (z << 4) | x
}

// Key возвращает идентификатор секции
func (s *Section) Key() SectionKey {
	return s.key
}

// Y возвращает вертикальный слот секции
func (s *Section) Y() int {
	return int(s.y)
}

// IsDirty сообщает, есть ли изменения, не отражённые в производных данных
func (s *Section) IsDirty() bool {
	return s.dirty
}

// IsBuilding сообщает, идёт ли перестройка производных данных
func (s *Section) IsBuilding() bool {
	return s.building
}

// Bits возвращает текущую ширину индекса палитры
func (s *Section) Bits() int {
	return s.blocks.Bits()
}

// PaletteLen возвращает количество слотов палитры, включая свободные
func (s *Section) PaletteLen() int {
	return len(s.palette)
}

// GetBlock возвращает блок по локальным координатам [0,16)
func (s *Section) GetBlock(x, y, z int) block.Block {
	idx := s.blocks.Get(sectionIndex(x, y, z))
	return s.palette[idx].block
}

// SetBlock записывает блок по локальным координатам [0,16)
func (s *Section) SetBlock(x, y, z int, b block.Block) {
	cell := sectionIndex(x, y, z)
	oldIdx := s.blocks.Get(cell)
	old := s.palette[oldIdx].block
	if old == b {
		return
	}

	// Освобождаем ссылку старого блока; слот остаётся для повторного использования
	s.palette[oldIdx].refs--
	if s.palette[oldIdx].refs == 0 {
		delete(s.revPalette, old)
	}

	idx, ok := s.revPalette[b]
	if !ok {
		idx = s.allocateSlot(b)
	}

	s.palette[idx].refs++
	s.blocks.Set(cell, idx)
	s.dirty = true
}

// allocateSlot занимает первый свободный слот палитры или добавляет новый,
// расширяя массив индексов при необходимости.
func (s *Section) allocateSlot(b block.Block) int {
	for i := range s.palette {
		if s.palette[i].refs == 0 {
			s.palette[i].block = b
			s.revPalette[b] = i
			return i
		}
	}

	if len(s.palette) >= 1<<uint(s.blocks.Bits()) {
		s.blocks = s.blocks.Resize(s.blocks.Bits() << 1)
	}
	idx := len(s.palette)
	s.palette = append(s.palette, paletteEntry{block: b})
	s.revPalette[b] = idx
	return idx
}

// GetBlockLight возвращает уровень света от блоков
func (s *Section) GetBlockLight(x, y, z int) uint8 {
	return s.blockLight.Get(sectionIndex(x, y, z))
}

// SetBlockLight устанавливает уровень света от блоков
func (s *Section) SetBlockLight(x, y, z int, level uint8) {
	s.blockLight.Set(sectionIndex(x, y, z), level)
}

// GetSkyLight возвращает уровень небесного света
func (s *Section) GetSkyLight(x, y, z int) uint8 {
	return s.skyLight.Get(sectionIndex(x, y, z))
}

// SetSkyLight устанавливает уровень небесного света
func (s *Section) SetSkyLight(x, y, z int, level uint8) {
	s.skyLight.Set(sectionIndex(x, y, z), level)
}

// enterBuild переводит секцию в состояние перестройки.
// Допустимо только из (dirty, !building).
func (s *Section) enterBuild() bool {
	if !s.dirty || s.building {
		return false
	}
	s.building = true
	s.dirty = false
	return true
}

// exitBuild завершает перестройку; флаг dirty не трогается, поэтому
// изменения, сделанные во время перестройки, не теряются.
func (s *Section) exitBuild() {
	s.building = false
}

// collectable - секция попадает в выборку грязных секций
func (s *Section) collectable() bool {
	return s.dirty && !s.building
}
