package block

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrDuplicateBlock возвращается при повторной регистрации имени, блока или глобального ID
var ErrDuplicateBlock = errors.New("block already registered")

// Resolver связывает значения блоков со стабильными глобальными числовыми ID,
// которые используются в сетевом формате.
type Resolver interface {
	// ByGlobalID возвращает блок по глобальному ID; неизвестный ID даёт Missing
	ByGlobalID(id uint32) Block
	// GlobalID возвращает глобальный ID блока
	GlobalID(b Block) (uint32, bool)
}

// Registry - двунаправленный реестр блоков
type Registry struct {
	byGlobal map[uint32]Block
	toGlobal map[Block]uint32
	byName   map[string]Block
	names    map[Block]string
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{
		byGlobal: make(map[uint32]Block),
		toGlobal: make(map[Block]uint32),
		byName:   make(map[string]Block),
		names:    make(map[Block]string),
	}
}

// Register добавляет блок в реестр
func (r *Registry) Register(name string, b Block, globalID uint32) error {
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: name %q", ErrDuplicateBlock, name)
	}
	if _, exists := r.byGlobal[globalID]; exists {
		return fmt.Errorf("%w: global id %d", ErrDuplicateBlock, globalID)
	}
	if _, exists := r.toGlobal[b]; exists {
		return fmt.Errorf("%w: block %d:%d", ErrDuplicateBlock, b.ID, b.Data)
	}

	r.byGlobal[globalID] = b
	r.toGlobal[b] = globalID
	r.byName[name] = b
	r.names[b] = name
	return nil
}

// ByGlobalID возвращает блок по глобальному ID
func (r *Registry) ByGlobalID(id uint32) Block {
	if b, ok := r.byGlobal[id]; ok {
		return b
	}
	return Missing
}

// GlobalID возвращает глобальный ID блока
func (r *Registry) GlobalID(b Block) (uint32, bool) {
	id, ok := r.toGlobal[b]
	return id, ok
}

// ByName ищет блок по имени
func (r *Registry) ByName(name string) (Block, bool) {
	b, ok := r.byName[name]
	return b, ok
}

// Name возвращает имя блока или "unknown"
func (r *Registry) Name(b Block) string {
	if b == Missing {
		return "missing"
	}
	if name, ok := r.names[b]; ok {
		return name
	}
	return "unknown"
}

// Len возвращает количество зарегистрированных блоков
func (r *Registry) Len() int {
	return len(r.byGlobal)
}

// registryFile описывает YAML-файл с дополнительными блоками
type registryFile struct {
	Blocks []struct {
		Name     string `yaml:"name"`
		ID       uint16 `yaml:"id"`
		Data     uint8  `yaml:"data"`
		GlobalID uint32 `yaml:"global_id"`
	} `yaml:"blocks"`
}

// LoadFile читает YAML-описания блоков и регистрирует их
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("ошибка разбора реестра блоков %s: %w", path, err)
	}

	for _, entry := range file.Blocks {
		b := Block{ID: BlockID(entry.ID), Data: entry.Data & 0xF}
		if err := r.Register(entry.Name, b, entry.GlobalID); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}
