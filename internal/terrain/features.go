package terrain

import (
	"math/rand"

	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

// tree ствол высотой 3-5 блоков и крона 3x3 в два слоя над ним
func tree(x, y, ground int32, rng *rand.Rand) []placedBlock {
	height := int32(3 + rng.Intn(3))
	wood := world.NewBlock(block.WoodBlockID)
	leaves := world.NewBlock(block.LeavesBlockID)

	out := make([]placedBlock, 0, height+18)
	for z := ground + 1; z <= ground+height; z++ {
		out = append(out, placedBlock{x: x, y: y, z: z, block: wood})
	}
	top := ground + height
	for z := top; z <= top+1; z++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dx := int32(-1); dx <= 1; dx++ {
				if z == top && dx == 0 && dy == 0 {
					continue
				}
				out = append(out, placedBlock{x: x + dx, y: y + dy, z: z, block: leaves})
			}
		}
	}
	return out
}

// cactus столбик высотой 1-3 блока
func cactus(x, y, ground int32, rng *rand.Rand) []placedBlock {
	height := int32(1 + rng.Intn(3))
	c := world.NewBlock(block.CactusBlockID)
	out := make([]placedBlock, 0, height)
	for z := ground + 1; z <= ground+height; z++ {
		out = append(out, placedBlock{x: x, y: y, z: z, block: c})
	}
	return out
}
