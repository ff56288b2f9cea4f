package world

import (
	"github.com/annel0/voxel-world/internal/world/block"
)

var (
	stone = NewBlock(block.StoneBlockID)
	grass = NewBlock(block.GrassBlockID)
)

func slabFrom(fill func(p SlabPosition) Block) *Slab {
	var blocks [SlabVolume]Block
	for i := range blocks {
		blocks[i] = fill(SlabPositionFromIndex(i))
	}
	return NewSlabFromBlocks(&blocks, SlabNormal)
}

func floorAt(z uint8) func(p SlabPosition) Block {
	return func(p SlabPosition) Block {
		if p.Z == z {
			return stone
		}
		return AirBlock
	}
}

func solidSlab() *Slab {
	return slabFrom(func(SlabPosition) Block { return stone })
}

// raisedFloor пол на z=2 и два приподнятых блока травы
func raisedFloor(p SlabPosition) Block {
	switch {
	case p.Z == 2:
		return stone
	case p.Z == 3 && ((p.X == 0 && p.Y == 0) || (p.X == 8 && p.Y == 8)):
		return grass
	default:
		return AirBlock
	}
}

// installSlab кладёт слэб в мир сразу с производными данными и графом
func installSlab(w *World, loc SlabLocation, slab *Slab, above, below *SlabVerticalSpace) []SlabArea {
	c := w.EnsureChunk(loc.Chunk)
	c.MarkSlabRequested(loc.Slab, w.NextStamp())
	h := slab.Handle()
	vs := DiscoverVerticalSpace(h)
	ticket, _ := c.MarkSlabAsInWorld(loc.Slab, slab, vs, DiscoverOcclusion(NewSlabNeighbourhood(h)), w.NextStamp())

	areas := DiscoverAreas(vs, above)
	areas = append(areas, DiscoverBottomAreas(vs, below)...)
	SortAreas(areas)
	g := DiscoverSlabNavGraph(areas)
	c.ReplaceSlabNavGraph(loc.Slab, ticket, g, areas, w.NextStamp())
	w.Graph().Absorb(loc, g)
	c.MarkSlabAsDone(loc.Slab, ticket, w.NextStamp())
	return areas
}
