package world

import (
	"fmt"

	"github.com/annel0/voxel-world/internal/world/block"
)

// Block представляет собой блок в мире
type Block struct {
	Type       block.BlockID // Идентификатор типа блока
	Durability uint8         // Текущая прочность
}

// AirBlock пустой блок
var AirBlock = Block{Type: block.AirBlockID}

// NewBlock создаёт блок с прочностью по умолчанию для его типа
func NewBlock(id block.BlockID) Block {
	t, exists := block.Get(id)
	if !exists {
		return Block{Type: id}
	}
	return Block{Type: id, Durability: t.Durability}
}

// Opacity возвращает непрозрачность типа блока
func (b Block) Opacity() block.Opacity {
	return block.OpacityOf(b.Type)
}

// IsSolid true для непрозрачных блоков (опора и препятствие)
func (b Block) IsSolid() bool {
	return b.Opacity() == block.Solid
}

func (b Block) IsAir() bool {
	return b.Type == block.AirBlockID
}

func (b Block) String() string {
	return fmt.Sprintf("%s(%d)", b.Type, b.Durability)
}
