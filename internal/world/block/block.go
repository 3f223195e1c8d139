package block

// BlockID представляет внутренний идентификатор типа блока
type BlockID uint16

// Константы ID блоков
const (
	// Базовые типы блоков
	AirBlockID   BlockID = iota // 0
	StoneBlockID                // 1
	GrassBlockID                // 2
	WaterBlockID                // 3
	SandBlockID                 // 4
	DirtBlockID                 // 5

	// Декоративные блоки (начиная с 100)
	FlowerBlockID BlockID = 100 // Цветок
	TreeBlockID   BlockID = 101 // Ствол дерева
	CactusBlockID BlockID = 102 // Кактус

	// Интерактивные блоки (начиная с 200)
	ChestBlockID BlockID = 200 // Сундук
	DoorBlockID  BlockID = 201 // Дверь

	// Специальные блоки (начиная с 1000)
	PortalBlockID  BlockID = 1000 // Портал
	SpawnerBlockID BlockID = 1001 // Спаунер

	// MissingBlockID зарезервирован за областями, которые не загружены
	MissingBlockID BlockID = 0xFFFF
)

// Block - значение ячейки мира: тип и 4-битное состояние.
// Сравнимо и пригодно как ключ карты.
type Block struct {
	ID   BlockID
	Data uint8
}

var (
	// Air - загруженная, но пустая ячейка
	Air = Block{ID: AirBlockID}
	// Missing - ячейка в незагруженной области
	Missing = Block{ID: MissingBlockID}
)

// Of создаёт блок без состояния
func Of(id BlockID) Block {
	return Block{ID: id}
}

// IsAir возвращает true для пустой ячейки
func (b Block) IsAir() bool {
	return b == Air
}

// IsMissing возвращает true для незагруженной ячейки
func (b Block) IsMissing() bool {
	return b == Missing
}
