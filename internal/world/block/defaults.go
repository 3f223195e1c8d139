package block

// VanillaID кодирует глобальный ID в классической схеме: id<<4 | meta
func VanillaID(id, meta uint32) uint32 {
	return id<<4 | meta&0xF
}

// Встроенные блоки и их глобальные ID
var builtin = []struct {
	name     string
	block    Block
	globalID uint32
}{
	{"air", Air, VanillaID(0, 0)},
	{"stone", Of(StoneBlockID), VanillaID(1, 0)},
	{"grass", Of(GrassBlockID), VanillaID(2, 0)},
	{"dirt", Of(DirtBlockID), VanillaID(3, 0)},
	{"water", Of(WaterBlockID), VanillaID(9, 0)},
	{"sand", Of(SandBlockID), VanillaID(12, 0)},
	{"log", Of(TreeBlockID), VanillaID(17, 0)},
	{"dandelion", Of(FlowerBlockID), VanillaID(37, 0)},
	{"spawner", Of(SpawnerBlockID), VanillaID(52, 0)},
	{"chest", Of(ChestBlockID), VanillaID(54, 0)},
	{"door", Of(DoorBlockID), VanillaID(64, 0)},
	{"cactus", Of(CactusBlockID), VanillaID(81, 0)},
	{"portal", Of(PortalBlockID), VanillaID(90, 0)},
}

// Default создаёт реестр со встроенными блоками
func Default() *Registry {
	r := NewRegistry()
	for _, e := range builtin {
		// встроенная таблица не содержит дубликатов
		_ = r.Register(e.name, e.block, e.globalID)
	}
	return r
}
