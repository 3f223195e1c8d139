package world

import (
	"github.com/annel0/chunkstore/internal/vec"
	"github.com/annel0/chunkstore/internal/world/block"
)

// BiomeArea - размер слоя биомов колонки (16x16)
const BiomeArea = SectionSize * SectionSize

// Chunk представляет колонку из 16 необязательных секций и плоского слоя биомов.
//
// Правила по умолчанию:
//   - запись пустого блока в отсутствующую секцию ничего не создаёт;
//   - запись непустого блока создаёт секцию;
//   - чтение из отсутствующей секции даёт block.Air.
type Chunk struct {
	Coords vec.Vec2 // Координаты колонки (X, Z)

	sections [SectionsPerChunk]*Section
	biomes   [BiomeArea]byte
	keys     *keyAllocator
}

func newChunk(coords vec.Vec2, keys *keyAllocator) *Chunk {
	return &Chunk{
		Coords: coords,
		keys:   keys,
	}
}

// Section возвращает секцию слота или nil, если она отсутствует
func (c *Chunk) Section(slot int) *Section {
	if slot < 0 || slot >= SectionsPerChunk {
		return nil
	}
	return c.sections[slot]
}

// SectionCount возвращает количество существующих секций
func (c *Chunk) SectionCount() int {
	n := 0
	for _, s := range c.sections {
		if s != nil {
			n++
		}
	}
	return n
}

// ensureSection возвращает секцию слота, создавая её при отсутствии
func (c *Chunk) ensureSection(slot int) *Section {
	if c.sections[slot] == nil {
		c.sections[slot] = newSection(c.keys.allocate(vec.Vec3{X: c.Coords.X, Y: slot, Z: c.Coords.Y}))
	}
	return c.sections[slot]
}

// GetBlock возвращает блок; x и z локальные, y - глобальная высота
func (c *Chunk) GetBlock(x, y, z int) block.Block {
	slot := y >> 4
	if slot < 0 || slot >= SectionsPerChunk {
		return block.Missing
	}
	s := c.sections[slot]
	if s == nil {
		return block.Air
	}
	return s.GetBlock(x, y&0xF, z)
}

// SetBlock записывает блок; x и z локальные, y - глобальная высота
func (c *Chunk) SetBlock(x, y, z int, b block.Block) {
	slot := y >> 4
	if slot < 0 || slot >= SectionsPerChunk {
		return
	}
	if c.sections[slot] == nil && b == block.Air {
		return
	}
	c.ensureSection(slot).SetBlock(x, y&0xF, z, b)
}

// GetBlockLight возвращает свет от блоков; отсутствующая секция даёт 0
func (c *Chunk) GetBlockLight(x, y, z int) uint8 {
	if s := c.Section(y >> 4); s != nil {
		return s.GetBlockLight(x, y&0xF, z)
	}
	return 0
}

// SetBlockLight устанавливает свет от блоков в существующей секции
func (c *Chunk) SetBlockLight(x, y, z int, level uint8) {
	if s := c.Section(y >> 4); s != nil {
		s.SetBlockLight(x, y&0xF, z, level)
	}
}

// GetSkyLight возвращает небесный свет; отсутствующая секция даёт MaxLight
func (c *Chunk) GetSkyLight(x, y, z int) uint8 {
	if s := c.Section(y >> 4); s != nil {
		return s.GetSkyLight(x, y&0xF, z)
	}
	return MaxLight
}

// SetSkyLight устанавливает небесный свет в существующей секции
func (c *Chunk) SetSkyLight(x, y, z int, level uint8) {
	if s := c.Section(y >> 4); s != nil {
		s.SetSkyLight(x, y&0xF, z, level)
	}
}

// GetBiome возвращает биом по локальным координатам
func (c *Chunk) GetBiome(x, z int) byte {
	return c.biomes[z<<4|x]
}

// SetBiome устанавливает биом по локальным координатам
func (c *Chunk) SetBiome(x, z int, biome byte) {
	c.biomes[z<<4|x] = biome
}
