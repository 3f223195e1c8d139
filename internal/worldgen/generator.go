package worldgen

import (
	"math/rand"

	"github.com/aquilax/go-perlin"

	"github.com/annel0/chunkstore/internal/vec"
	"github.com/annel0/chunkstore/internal/world"
	"github.com/annel0/chunkstore/internal/world/block"
)

// Biome - тип биома, хранится в слое биомов колонки
type Biome byte

const (
	BiomePlains Biome = iota
	BiomeDesert
	BiomeForest
	BiomeMountains
	BiomeWater
	BiomeDeepWater
)

// Пороговые значения нормированной высоты
const (
	DeepWaterMax    = 0.20 // Ниже - глубинная вода
	ShallowWaterMax = 0.30 // Ниже - мелководье
	MountainStart   = 0.80 // Выше - горы
)

const (
	// MinHeight и MaxHeight задают диапазон поверхности
	MinHeight = 32
	MaxHeight = 112
	// SeaLevel - уровень воды
	SeaLevel = MinHeight + int(ShallowWaterMax*(MaxHeight-MinHeight))

	soilDepth   = 3
	trunkHeight = 4
)

var (
	stone  = block.Of(block.StoneBlockID)
	dirt   = block.Of(block.DirtBlockID)
	grass  = block.Of(block.GrassBlockID)
	sand   = block.Of(block.SandBlockID)
	water  = block.Of(block.WaterBlockID)
	trunk  = block.Of(block.TreeBlockID)
	cactus = block.Of(block.CactusBlockID)
	flower = block.Of(block.FlowerBlockID)
)

// Generator заполняет колонки рельефом на шуме Перлина.
// Одинаковый сид даёт одинаковый мир.
type Generator struct {
	Seed          int64   // Сид для генерации шума
	NoiseScale    float64 // Масштаб основного шума (высота)
	BiomeScale    float64 // Масштаб шума биомов
	ForestDensity float64 // Плотность деревьев на равнинах (от 0 до 1)

	height *perlin.Perlin
	biome  *perlin.Perlin
}

// New создаёт генератор
func New(seed int64) *Generator {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав

	return &Generator{
		Seed:          seed,
		NoiseScale:    0.02,
		BiomeScale:    0.01,
		ForestDensity: 0.02,
		height:        perlin.NewPerlin(alpha, beta, n, seed),
		biome:         perlin.NewPerlin(alpha, beta, n, seed+42),
	}
}

// normalize переводит шум из [-1, 1] в [0, 1]
func normalize(v float64) float64 {
	v = (v + 1) / 2
	return min(1, max(0, v))
}

func (g *Generator) heightValue(x, z int) float64 {
	return normalize(g.height.Noise2D(float64(x)*g.NoiseScale, float64(z)*g.NoiseScale))
}

// Height возвращает высоту поверхности в точке (x, z)
func (g *Generator) Height(x, z int) int {
	return MinHeight + int(g.heightValue(x, z)*(MaxHeight-MinHeight))
}

// Biome определяет биом точки (x, z)
func (g *Generator) Biome(x, z int) Biome {
	h := g.heightValue(x, z)
	switch {
	case h < DeepWaterMax:
		return BiomeDeepWater
	case h < ShallowWaterMax:
		return BiomeWater
	case h > MountainStart:
		return BiomeMountains
	}

	// Для средних высот биом выбирается по второму шуму
	v := g.biome.Noise2D(float64(x)*g.BiomeScale, float64(z)*g.BiomeScale)
	switch {
	case v < -0.3:
		return BiomeDesert
	case v > 0.3:
		return BiomeForest
	default:
		return BiomePlains
	}
}

func surfaceBlock(b Biome) block.Block {
	switch b {
	case BiomeDesert, BiomeWater, BiomeDeepWater:
		return sand
	case BiomeMountains:
		return stone
	default:
		return grass
	}
}

// Populate генерирует колонку (cx, cz) прямо в w
func (g *Generator) Populate(w *world.World, cx, cz int) {
	// Локальный генератор случайных чисел для детерминированности
	rng := rand.New(rand.NewSource(g.Seed + int64(cx*31) + int64(cz*17)))

	baseX, baseZ := cx<<4, cz<<4
	for z := 0; z < world.SectionSize; z++ {
		for x := 0; x < world.SectionSize; x++ {
			gx, gz := baseX+x, baseZ+z
			h := g.Height(gx, gz)
			biome := g.Biome(gx, gz)

			for y := 0; y <= h; y++ {
				switch {
				case y == h:
					w.SetBlock(gx, y, gz, surfaceBlock(biome))
				case y > h-soilDepth && biome != BiomeMountains:
					w.SetBlock(gx, y, gz, dirt)
				default:
					w.SetBlock(gx, y, gz, stone)
				}
			}
			for y := h + 1; y <= SeaLevel; y++ {
				w.SetBlock(gx, y, gz, water)
			}
			w.SetBiome(gx, gz, byte(biome))

			if h >= SeaLevel {
				g.decorate(w, rng, biome, gx, h+1, gz)
			}
		}
	}
}

// decorate ставит растительность на поверхность суши
func (g *Generator) decorate(w *world.World, rng *rand.Rand, biome Biome, x, y, z int) {
	switch {
	case biome == BiomeForest && rng.Float64() < 0.15,
		biome == BiomePlains && rng.Float64() < g.ForestDensity:
		for i := 0; i < trunkHeight; i++ {
			w.SetBlock(x, y+i, z, trunk)
		}
	case biome == BiomeDesert && rng.Float64() < 0.02:
		w.SetBlock(x, y, z, cactus)
	case biome == BiomePlains && rng.Float64() < 0.05:
		w.SetBlock(x, y, z, flower)
	}
}

// PopulateArea генерирует квадрат колонок радиуса radius вокруг center.
// Уже загруженные колонки пропускаются. Возвращает число созданных колонок.
func (g *Generator) PopulateArea(w *world.World, center vec.Vec2, radius int) int {
	created := 0
	for dz := -radius; dz <= radius; dz++ {
		for dx := -radius; dx <= radius; dx++ {
			cx, cz := center.X+dx, center.Y+dz
			if w.IsChunkLoaded(cx, cz) {
				continue
			}
			g.Populate(w, cx, cz)
			created++
		}
	}
	return created
}
