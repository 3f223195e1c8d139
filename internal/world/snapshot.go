package world

import (
	"github.com/annel0/chunkstore/internal/packed"
	"github.com/annel0/chunkstore/internal/vec"
	"github.com/annel0/chunkstore/internal/world/block"
)

// Snapshot - отвязанная от мира плоская копия прямоугольной области.
// Не наблюдает последующих изменений мира и принадлежит вызывающей стороне.
type Snapshot struct {
	blocks     []block.Block
	blockLight *packed.NibbleArray
	skyLight   *packed.NibbleArray
	biomes     []byte

	x, y, z int
	w, h, d int
}

func newSnapshot(x, y, z, w, h, d int) *Snapshot {
	volume := w * h * d
	s := &Snapshot{
		blocks:     make([]block.Block, volume),
		blockLight: packed.NewNibbleArray(volume),
		skyLight:   packed.NewNibbleArray(volume),
		biomes:     make([]byte, w*d),
		x:          x, y: y, z: z,
		w: w, h: h, d: d,
	}
	for i := range s.blocks {
		s.blocks[i] = block.Missing
	}
	s.skyLight.Fill(MaxLight)
	return s
}

// CaptureSnapshot копирует область с началом (x, y, z) и размерами w x h x d.
// Ячейки незагруженных колонок остаются block.Missing; ячейки отсутствующих
// секций загруженной колонки становятся block.Air со светом по умолчанию.
func (w *World) CaptureSnapshot(x, y, z, width, height, depth int) *Snapshot {
	width, height, depth = max(width, 0), max(height, 0), max(depth, 0)
	snap := newSnapshot(x, y, z, width, height, depth)

	cx1, cy1, cz1 := x>>4, y>>4, z>>4
	cx2 := (x + width + 15) >> 4
	cy2 := (y + height + 15) >> 4
	cz2 := (z + depth + 15) >> 4

	for cx := cx1; cx < cx2; cx++ {
		for cz := cz1; cz < cz2; cz++ {
			chunk, ok := w.chunks[vec.Vec2{X: cx, Y: cz}]
			if !ok {
				continue
			}

			x1 := min(16, max(0, x-(cx<<4)))
			x2 := min(16, max(0, x+width-(cx<<4)))
			z1 := min(16, max(0, z-(cz<<4)))
			z2 := min(16, max(0, z+depth-(cz<<4)))

			for zz := z1; zz < z2; zz++ {
				for xx := x1; xx < x2; xx++ {
					snap.SetBiome(xx+(cx<<4), zz+(cz<<4), chunk.GetBiome(xx, zz))
				}
			}

			for cy := cy1; cy < cy2; cy++ {
				if cy < 0 || cy >= SectionsPerChunk {
					continue
				}
				section := chunk.sections[cy]
				y1 := min(16, max(0, y-(cy<<4)))
				y2 := min(16, max(0, y+height-(cy<<4)))

				for yy := y1; yy < y2; yy++ {
					for zz := z1; zz < z2; zz++ {
						for xx := x1; xx < x2; xx++ {
							ox, oy, oz := xx+(cx<<4), yy+(cy<<4), zz+(cz<<4)
							if section == nil {
								snap.SetBlock(ox, oy, oz, block.Air)
								continue
							}
							snap.SetBlock(ox, oy, oz, section.GetBlock(xx, yy, zz))
							snap.SetBlockLight(ox, oy, oz, section.GetBlockLight(xx, yy, zz))
							snap.SetSkyLight(ox, oy, oz, section.GetSkyLight(xx, yy, zz))
						}
					}
				}
			}
		}
	}

	w.metrics.SnapshotCaptures.Inc()
	w.metrics.SnapshotVolume.Observe(float64(len(snap.blocks)))
	return snap
}

// MakeRelative меняет начало координат снимка без перемещения данных
func (s *Snapshot) MakeRelative(x, y, z int) {
	s.x, s.y, s.z = x, y, z
}

// Origin возвращает текущее начало координат
func (s *Snapshot) Origin() vec.Vec3 {
	return vec.Vec3{X: s.x, Y: s.y, Z: s.z}
}

// Size возвращает размеры снимка (ширина, высота, глубина)
func (s *Snapshot) Size() vec.Vec3 {
	return vec.Vec3{X: s.w, Y: s.h, Z: s.d}
}

// Contains проверяет, попадает ли точка в снимок
func (s *Snapshot) Contains(x, y, z int) bool {
	return x >= s.x && x < s.x+s.w &&
		y >= s.y && y < s.y+s.h &&
		z >= s.z && z < s.z+s.d
}

func (s *Snapshot) index(x, y, z int) (int, bool) {
	if !s.Contains(x, y, z) {
		return 0, false
	}
	return (x - s.x) + (z-s.z)*s.w + (y-s.y)*s.w*s.d, true
}

// GetBlock возвращает блок; вне снимка - block.Missing
func (s *Snapshot) GetBlock(x, y, z int) block.Block {
	if i, ok := s.index(x, y, z); ok {
		return s.blocks[i]
	}
	return block.Missing
}

// SetBlock записывает блок; вне снимка ничего не делает
func (s *Snapshot) SetBlock(x, y, z int, b block.Block) {
	if i, ok := s.index(x, y, z); ok {
		s.blocks[i] = b
	}
}

// GetBlockLight возвращает свет от блоков; вне снимка - 0
func (s *Snapshot) GetBlockLight(x, y, z int) uint8 {
	if i, ok := s.index(x, y, z); ok {
		return s.blockLight.Get(i)
	}
	return 0
}

// SetBlockLight устанавливает свет от блоков
func (s *Snapshot) SetBlockLight(x, y, z int, level uint8) {
	if i, ok := s.index(x, y, z); ok {
		s.blockLight.Set(i, level)
	}
}

// GetSkyLight возвращает небесный свет; вне снимка - MaxLight
func (s *Snapshot) GetSkyLight(x, y, z int) uint8 {
	if i, ok := s.index(x, y, z); ok {
		return s.skyLight.Get(i)
	}
	return MaxLight
}

// SetSkyLight устанавливает небесный свет
func (s *Snapshot) SetSkyLight(x, y, z int, level uint8) {
	if i, ok := s.index(x, y, z); ok {
		s.skyLight.Set(i, level)
	}
}

// GetBiome возвращает биом столбца (x, z); вне снимка - 0
func (s *Snapshot) GetBiome(x, z int) byte {
	if x < s.x || x >= s.x+s.w || z < s.z || z >= s.z+s.d {
		return 0
	}
	return s.biomes[(x-s.x)+(z-s.z)*s.w]
}

// SetBiome устанавливает биом столбца (x, z)
func (s *Snapshot) SetBiome(x, z int, biome byte) {
	if x < s.x || x >= s.x+s.w || z < s.z || z >= s.z+s.d {
		return
	}
	s.biomes[(x-s.x)+(z-s.z)*s.w] = biome
}
