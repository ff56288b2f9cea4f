package world

import (
	"errors"
	"math/rand"

	"github.com/annel0/voxel-world/internal/vec"
)

// ErrNoAccessibleArea исследовательская прогулка не нашла подходящую зону
var ErrNoAccessibleArea = errors.New("нет доступной зоны")

// Block блок по мировой позиции, false если его слэб не загружен
func (w *World) Block(pos vec.Vec3) (Block, bool) {
	c := w.FindChunk(ChunkLocationOf(pos))
	if c == nil {
		return Block{}, false
	}
	return c.Block(BlockPositionOf(pos))
}

func (w *World) lookupFrom(origin vec.Vec3, cursor *ChunkCursor) BlockLookup {
	return func(x, y, z int32) (Block, bool) {
		p := vec.Vec3{X: origin.X + x, Y: origin.Y + y, Z: origin.Z + z}
		c := cursor.Chunk(ChunkLocationOf(p))
		if c == nil {
			return Block{}, false
		}
		return c.Block(BlockPositionOf(p))
	}
}

// BlockOcclusionLazy затенение из разреженной таблицы слэба (только для
// твёрдых блоков с видимыми гранями)
func (w *World) BlockOcclusionLazy(pos vec.Vec3) (BlockOcclusion, bool) {
	c := w.FindChunk(ChunkLocationOf(pos))
	if c == nil {
		return BlockOcclusion{}, false
	}
	return c.GetOcclusion(BlockPositionOf(pos))
}

// BlockOcclusionComplete вычисляет затенение любой позиции по текущим блокам мира
func (w *World) BlockOcclusionComplete(pos vec.Vec3) BlockOcclusion {
	return ComputeBlockOcclusion(w.lookupFrom(pos, w.NewChunkCursor()), 0, 0, 0)
}

// AreaInfo прямоугольник и высота зоны
func (w *World) AreaInfo(area WorldArea) (SlabArea, bool) {
	d := w.SlabData(area.SlabLocation())
	if d == nil || d.navGraph == nil {
		return SlabArea{}, false
	}
	return findArea(d.areas, area.Key())
}

// FindAreaForBlock ищет зону, в которой может стоять агент с ногами в pos
// и свободной высотой не меньше requirement
func (w *World) FindAreaForBlock(pos vec.Vec3, requirement uint8) (WorldArea, bool) {
	loc := SlabLocationOf(pos)
	d := w.SlabData(loc)
	if d == nil || d.navGraph == nil {
		return WorldArea{}, false
	}
	p := SlabPositionOf(pos)
	slice := LocalSliceIndex(p.Z)
	sb := p.SliceBlock()
	for _, a := range d.areas {
		if a.Slice != slice {
			if a.Slice > slice {
				break
			}
			continue
		}
		if a.Area.Contains(sb) {
			if a.Area.Height < requirement {
				return WorldArea{}, false
			}
			return NewWorldArea(loc, a.Key()), true
		}
	}
	return WorldArea{}, false
}

// AreaCentre мировые координаты центра зоны на уровне ног агента
func AreaCentre(area WorldArea, a SlabArea) vec.Vec3Float {
	cx, cy := a.Area.Centre()
	o := area.SlabLocation().Origin()
	return vec.Vec3Float{
		X: float64(o.X) + cx,
		Y: float64(o.Y) + cy,
		Z: float64(area.GlobalSlice()),
	}
}

// AreaBlock мировая позиция клетки зоны
func AreaBlock(area WorldArea, b SliceBlock) vec.Vec3 {
	return area.SlabLocation().ToWorld(b.At(area.Slice))
}

// FindAccessibleBlockInColumn самая высокая позиция столбца, где может стоять агент
func (w *World) FindAccessibleBlockInColumn(x, y int32, requirement uint8) (vec.Vec3, bool) {
	c := w.FindChunk(ChunkLocationOf(vec.Vec3{X: x, Y: y}))
	if c == nil {
		return vec.Vec3{}, false
	}
	sb := SliceBlock{X: uint8(x & chunkMask), Y: uint8(y & chunkMask)}
	indices := c.SlabIndices()
	for i := len(indices) - 1; i >= 0; i-- {
		d := c.slabs[indices[i]]
		if d.navGraph == nil {
			continue
		}
		loc := SlabLocation{Chunk: c.loc, Slab: indices[i]}
		for j := len(d.areas) - 1; j >= 0; j-- {
			a := d.areas[j]
			if a.Area.Height >= requirement && a.Area.Contains(sb) {
				return loc.ToWorld(sb.At(a.Slice)), true
			}
		}
	}
	return vec.Vec3{}, false
}

// GroundLevel высота самого верхнего твёрдого блока столбца среди загруженных слэбов
func (w *World) GroundLevel(x, y int32) (int32, bool) {
	c := w.FindChunk(ChunkLocationOf(vec.Vec3{X: x, Y: y}))
	if c == nil {
		return 0, false
	}
	sb := SliceBlock{X: uint8(x & chunkMask), Y: uint8(y & chunkMask)}
	indices := c.SlabIndices()
	for i := len(indices) - 1; i >= 0; i-- {
		d := c.slabs[indices[i]]
		if d.terrain == nil {
			continue
		}
		for z := SlabSize - 1; z >= 0; z-- {
			if d.terrain.Block(sb.At(LocalSliceIndex(z))).IsSolid() {
				return indices[i].BaseZ() + int32(z), true
			}
		}
	}
	return 0, false
}

// ChooseRandomAccessiblePoint выбирает случайную позицию в случайной зоне
func (w *World) ChooseRandomAccessiblePoint(maxAttempts int, requirement uint8, rng *rand.Rand) (vec.Vec3, bool) {
	if len(w.chunks) == 0 {
		return vec.Vec3{}, false
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		c := w.chunks[rng.Intn(len(w.chunks))]
		indices := c.SlabIndices()
		if len(indices) == 0 {
			continue
		}
		idx := indices[rng.Intn(len(indices))]
		d := c.slabs[idx]
		if d.navGraph == nil || len(d.areas) == 0 {
			continue
		}
		a := d.areas[rng.Intn(len(d.areas))]
		if a.Area.Height < requirement {
			continue
		}
		sb := SliceBlock{
			X: a.Area.From.X + uint8(rng.Intn(int(a.Area.To.X-a.Area.From.X)+1)),
			Y: a.Area.From.Y + uint8(rng.Intn(int(a.Area.To.Y-a.Area.From.Y)+1)),
		}
		return SlabLocation{Chunk: c.loc, Slab: idx}.ToWorld(sb.At(a.Slice)), true
	}
	return vec.Vec3{}, false
}

// FindExploratoryDestination случайная прогулка по графу зон. Каждый переход
// тратит топливо по весу ребра, filter может остановить прогулку досрочно
// (вернув true для подходящей зоны).
func (w *World) FindExploratoryDestination(from vec.Vec3, fuel float64, requirement uint8, filter func(WorldArea) bool, rng *rand.Rand) (vec.Vec3, error) {
	current, ok := w.FindAreaForBlock(from, requirement)
	if !ok {
		return vec.Vec3{}, &SourceNotWalkableError{Pos: from, Height: requirement}
	}

	prev := current
	for fuel > 0 {
		edges, _ := w.graph.Neighbours(current)
		candidates := edges[:0:0]
		for _, e := range edges {
			if e.Clearance >= requirement && e.To != prev {
				candidates = append(candidates, e)
			}
		}
		if len(candidates) == 0 {
			// тупик: разрешаем вернуться назад
			for _, e := range edges {
				if e.Clearance >= requirement {
					candidates = append(candidates, e)
				}
			}
		}
		if len(candidates) == 0 {
			break
		}
		e := candidates[rng.Intn(len(candidates))]
		fuel -= e.Cost.Weight()
		prev, current = current, e.To
		if filter != nil && filter(current) {
			break
		}
	}

	a, ok := w.AreaInfo(current)
	if !ok {
		return vec.Vec3{}, ErrNoAccessibleArea
	}
	sb := SliceBlock{
		X: a.Area.From.X + uint8(rng.Intn(int(a.Area.To.X-a.Area.From.X)+1)),
		Y: a.Area.From.Y + uint8(rng.Intn(int(a.Area.To.Y-a.Area.From.Y)+1)),
	}
	return AreaBlock(current, sb), nil
}

// IterateBlocks обходит загруженные блоки диапазона (включительно), fn
// возвращает false для остановки
func (w *World) IterateBlocks(from, to vec.Vec3, fn func(pos vec.Vec3, b Block) bool) {
	lo, hi := from.Min(to), from.Max(to)
	cursor := w.NewChunkCursor()
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				p := vec.Vec3{X: x, Y: y, Z: z}
				c := cursor.Chunk(ChunkLocationOf(p))
				if c == nil {
					continue
				}
				b, ok := c.Block(BlockPositionOf(p))
				if !ok {
					continue
				}
				if !fn(p, b) {
					return
				}
			}
		}
	}
}

// FilterBlocksInRange выбирает позиции диапазона, удовлетворяющие pred
func (w *World) FilterBlocksInRange(from, to vec.Vec3, pred func(pos vec.Vec3, b Block) bool) []vec.Vec3 {
	var out []vec.Vec3
	w.IterateBlocks(from, to, func(pos vec.Vec3, b Block) bool {
		if pred(pos, b) {
			out = append(out, pos)
		}
		return true
	})
	return out
}

// SliceBounds диапазон высот (включительно), покрытый слэбами с блоками
func (w *World) SliceBounds() (GlobalSliceIndex, GlobalSliceIndex, bool) {
	var lo, hi SlabIndex
	found := false
	for _, c := range w.chunks {
		clo, chi, ok := c.SlabRange()
		if !ok {
			continue
		}
		if !found || clo < lo {
			lo = clo
		}
		if !found || chi > hi {
			hi = chi
		}
		found = true
	}
	if !found {
		return 0, 0, false
	}
	return lo.Slice(0), hi.Slice(topSlice), true
}

// TakeDirtySlabs собирает слэбы с устаревшими данными отрисовки
func (w *World) TakeDirtySlabs() []SlabLocation {
	var out []SlabLocation
	for _, c := range w.chunks {
		for _, idx := range c.TakeDirtySlabs() {
			out = append(out, SlabLocation{Chunk: c.loc, Slab: idx})
		}
	}
	return out
}
