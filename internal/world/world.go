package world

import (
	"github.com/annel0/chunkstore/internal/logging"
	"github.com/annel0/chunkstore/internal/vec"
	"github.com/annel0/chunkstore/internal/world/block"
)

// DirtySection - запись выборки грязных секций
type DirtySection struct {
	Pos vec.Vec3 // X/Z - колонка, Y - слот
	Key SectionKey
}

// Stats - сводка состояния мира
type Stats struct {
	Chunks         int `json:"chunks"`
	Sections       int `json:"sections"`
	Dirty          int `json:"dirty"`
	Building       int `json:"building"`
	PaletteEntries int `json:"palette_entries"`
}

// World хранит колонки по их координатам.
//
// World не синхронизирован: все вызовы должны идти из одной горутины-владельца.
// Другим горутинам передаются только снимки (Snapshot) и копии Stats.
type World struct {
	chunks   map[vec.Vec2]*Chunk
	resolver block.Resolver
	keys     keyAllocator
	metrics  *Metrics
	log      *logging.Logger
}

// Option настраивает World
type Option func(*World)

// WithMetrics подключает метрики
func WithMetrics(m *Metrics) Option {
	return func(w *World) { w.metrics = m }
}

// WithLogger задаёт логгер
func WithLogger(l *logging.Logger) Option {
	return func(w *World) { w.log = l }
}

// New создаёт пустой мир. resolver используется десериализатором;
// nil означает встроенный реестр блоков.
func New(resolver block.Resolver, opts ...Option) *World {
	if resolver == nil {
		resolver = block.Default()
	}
	w := &World{
		chunks:   make(map[vec.Vec2]*Chunk),
		resolver: resolver,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.metrics == nil {
		w.metrics = NewMetrics(nil)
	}
	if w.log == nil {
		w.log = logging.GetWorldLogger()
	}
	return w
}

// Resolver возвращает реестр блоков мира
func (w *World) Resolver() block.Resolver {
	return w.resolver
}

// IsChunkLoaded проверяет наличие колонки
func (w *World) IsChunkLoaded(x, z int) bool {
	_, ok := w.chunks[vec.Vec2{X: x, Y: z}]
	return ok
}

// Chunk возвращает колонку или nil
func (w *World) Chunk(x, z int) *Chunk {
	return w.chunks[vec.Vec2{X: x, Y: z}]
}

// ChunkCount возвращает количество загруженных колонок
func (w *World) ChunkCount() int {
	return len(w.chunks)
}

// columnAt находит колонку по мировым координатам и локальные X/Z внутри неё
func (w *World) columnAt(x, z int) (*Chunk, vec.Vec2) {
	p := vec.Vec2{X: x, Y: z}
	return w.chunks[p.ToChunkCoords()], p.LocalInChunk()
}

// GetBlock возвращает блок по мировым координатам; незагруженная колонка даёт block.Missing
func (w *World) GetBlock(x, y, z int) block.Block {
	chunk, l := w.columnAt(x, z)
	if chunk == nil {
		return block.Missing
	}
	return chunk.GetBlock(l.X, y, l.Y)
}

// SetBlock записывает блок, создавая колонку при необходимости
func (w *World) SetBlock(x, y, z int, b block.Block) {
	p := vec.Vec2{X: x, Y: z}
	pos, l := p.ToChunkCoords(), p.LocalInChunk()
	chunk, ok := w.chunks[pos]
	if !ok {
		chunk = newChunk(pos, &w.keys)
		w.chunks[pos] = chunk
		w.metrics.ChunksLoaded.Set(float64(len(w.chunks)))
	}

	before := 0
	if s := chunk.Section(y >> 4); s != nil {
		before = s.Bits()
	}
	chunk.SetBlock(l.X, y, l.Y, b)
	if s := chunk.Section(y >> 4); s != nil && before != 0 && s.Bits() > before {
		w.metrics.PaletteResizes.Inc()
	}
}

// GetBlockLight возвращает свет от блоков (0 вне загруженных секций)
func (w *World) GetBlockLight(x, y, z int) uint8 {
	if chunk, l := w.columnAt(x, z); chunk != nil {
		return chunk.GetBlockLight(l.X, y, l.Y)
	}
	return 0
}

// SetBlockLight устанавливает свет от блоков в существующей секции
func (w *World) SetBlockLight(x, y, z int, level uint8) {
	if chunk, l := w.columnAt(x, z); chunk != nil {
		chunk.SetBlockLight(l.X, y, l.Y, level)
	}
}

// GetSkyLight возвращает небесный свет (MaxLight вне загруженных секций)
func (w *World) GetSkyLight(x, y, z int) uint8 {
	if chunk, l := w.columnAt(x, z); chunk != nil {
		return chunk.GetSkyLight(l.X, y, l.Y)
	}
	return MaxLight
}

// SetSkyLight устанавливает небесный свет в существующей секции
func (w *World) SetSkyLight(x, y, z int, level uint8) {
	if chunk, l := w.columnAt(x, z); chunk != nil {
		chunk.SetSkyLight(l.X, y, l.Y, level)
	}
}

// GetBiome возвращает биом по мировым координатам
func (w *World) GetBiome(x, z int) byte {
	if chunk, l := w.columnAt(x, z); chunk != nil {
		return chunk.GetBiome(l.X, l.Y)
	}
	return 0
}

// SetBiome устанавливает биом в загруженной колонке
func (w *World) SetBiome(x, z int, biome byte) {
	if chunk, l := w.columnAt(x, z); chunk != nil {
		chunk.SetBiome(l.X, l.Y, biome)
	}
}

// section находит секцию по координатам секции
func (w *World) section(pos vec.Vec3) *Section {
	chunk, ok := w.chunks[pos.Horizontal()]
	if !ok {
		return nil
	}
	return chunk.Section(pos.Y)
}

// GetDirtyChunkSections возвращает все грязные секции, которые не перестраиваются.
// Порядок не определён.
func (w *World) GetDirtyChunkSections() []DirtySection {
	var out []DirtySection
	for _, chunk := range w.chunks {
		for _, s := range chunk.sections {
			if s != nil && s.collectable() {
				out = append(out, DirtySection{Pos: s.key.Pos, Key: s.key})
			}
		}
	}
	w.metrics.DirtySections.Set(float64(len(out)))
	return out
}

// SectionKeyAt возвращает ключ живой секции; позволяет отбросить устаревшие ключи
func (w *World) SectionKeyAt(pos vec.Vec3) (SectionKey, bool) {
	s := w.section(pos)
	if s == nil {
		return SectionKey{}, false
	}
	return s.key, true
}

// SetBuildingFlag отмечает начало перестройки секции.
// Возвращает false, если секции нет или она не в состоянии (dirty, !building).
func (w *World) SetBuildingFlag(pos vec.Vec3) bool {
	s := w.section(pos)
	if s == nil {
		return false
	}
	return s.enterBuild()
}

// ResetBuildingFlag отмечает завершение перестройки секции
func (w *World) ResetBuildingFlag(pos vec.Vec3) {
	if s := w.section(pos); s != nil {
		s.exitBuild()
	}
}

// FlagDirtyAll помечает грязными все существующие секции
func (w *World) FlagDirtyAll() {
	for _, chunk := range w.chunks {
		for _, s := range chunk.sections {
			if s != nil {
				s.dirty = true
			}
		}
	}
}

// flagSectionDirty помечает секцию грязной, если она существует
func (w *World) flagSectionDirty(pos vec.Vec3) {
	if s := w.section(pos); s != nil {
		s.dirty = true
	}
}

// UnloadChunk удаляет колонку вместе с секциями.
// Выданные ранее ключи становятся устаревшими.
func (w *World) UnloadChunk(x, z int) {
	pos := vec.Vec2{X: x, Y: z}
	if _, ok := w.chunks[pos]; !ok {
		return
	}
	delete(w.chunks, pos)
	w.metrics.ChunkUnloads.Inc()
	w.metrics.ChunksLoaded.Set(float64(len(w.chunks)))
}

// Stats собирает сводку состояния
func (w *World) Stats() Stats {
	st := Stats{Chunks: len(w.chunks)}
	for _, chunk := range w.chunks {
		for _, s := range chunk.sections {
			if s == nil {
				continue
			}
			st.Sections++
			st.PaletteEntries += len(s.palette)
			if s.dirty {
				st.Dirty++
			}
			if s.building {
				st.Building++
			}
		}
	}
	return st
}
