package block

import (
	"fmt"
	"strings"
	"sync"
)

// BlockID представляет идентификатор типа блока
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

	// Растительность (начиная с 100)
	LeavesBlockID BlockID = 100
	WoodBlockID   BlockID = 101
	CactusBlockID BlockID = 102

	// Специальные блоки (начиная с 1000)
	MarkerBlockID BlockID = 1000 // Маркер для отладки генерации
)

// Opacity определяет, перекрывает ли блок пространство
type Opacity uint8

const (
	Transparent Opacity = iota
	Solid
)

func (o Opacity) String() string {
	if o == Solid {
		return "solid"
	}
	return "transparent"
}

// BlockType описание типа блока
type BlockType struct {
	ID         BlockID
	Name       string
	Opacity    Opacity
	Durability uint8 // прочность по умолчанию
}

var (
	registryMu sync.RWMutex
	registry   = make(map[BlockID]BlockType)
	byName     = make(map[string]BlockID)
)

func init() {
	Register(BlockType{ID: AirBlockID, Name: "air", Opacity: Transparent})
	Register(BlockType{ID: StoneBlockID, Name: "stone", Opacity: Solid, Durability: 10})
	Register(BlockType{ID: GrassBlockID, Name: "grass", Opacity: Solid, Durability: 3})
	Register(BlockType{ID: WaterBlockID, Name: "water", Opacity: Transparent})
	Register(BlockType{ID: SandBlockID, Name: "sand", Opacity: Solid, Durability: 2})
	Register(BlockType{ID: DirtBlockID, Name: "dirt", Opacity: Solid, Durability: 3})
	Register(BlockType{ID: LeavesBlockID, Name: "leaves", Opacity: Solid, Durability: 1})
	Register(BlockType{ID: WoodBlockID, Name: "wood", Opacity: Solid, Durability: 6})
	Register(BlockType{ID: CactusBlockID, Name: "cactus", Opacity: Solid, Durability: 2})
	Register(BlockType{ID: MarkerBlockID, Name: "marker", Opacity: Solid, Durability: 255})
}

// Register добавляет тип блока в регистр (повторная регистрация заменяет описание)
func Register(t BlockType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t.ID] = t
	byName[strings.ToLower(t.Name)] = t.ID
}

// Get возвращает описание для указанного ID
func Get(id BlockID) (BlockType, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, exists := registry[id]
	return t, exists
}

// ByName ищет тип блока по имени без учёта регистра
func ByName(name string) (BlockType, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	id, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return BlockType{}, fmt.Errorf("неизвестный тип блока %q", name)
	}
	return registry[id], nil
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := Get(id)
	return exists
}

// OpacityOf возвращает непрозрачность типа, неизвестные типы считаются твёрдыми
func OpacityOf(id BlockID) Opacity {
	if id == AirBlockID {
		return Transparent
	}
	t, ok := Get(id)
	if !ok {
		return Solid
	}
	return t.Opacity
}

func (id BlockID) String() string {
	if t, ok := Get(id); ok {
		return t.Name
	}
	return fmt.Sprintf("block#%d", uint16(id))
}
