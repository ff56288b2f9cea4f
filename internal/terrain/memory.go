package terrain

import (
	"context"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
)

// ChunkTerrain блоки одного чанка, разбитые на слэбы
type ChunkTerrain struct {
	slabs map[world.SlabIndex]*world.Slab
}

// NewChunkTerrain создаёт пустой рельеф чанка
func NewChunkTerrain() *ChunkTerrain {
	return &ChunkTerrain{slabs: make(map[world.SlabIndex]*world.Slab)}
}

// SetSlab кладёт готовый слэб
func (t *ChunkTerrain) SetSlab(idx world.SlabIndex, s *world.Slab) {
	t.slabs[idx] = s
}

// AddPlaceholder добавляет пустой слэб-заглушку
func (t *ChunkTerrain) AddPlaceholder(idx world.SlabIndex) {
	t.slabs[idx] = world.NewSlab(world.SlabPlaceholder)
}

// SlabRange минимальный и максимальный номер слэба
func (t *ChunkTerrain) SlabRange() (world.SlabIndex, world.SlabIndex, bool) {
	var lo, hi world.SlabIndex
	found := false
	for idx := range t.slabs {
		if !found || idx < lo {
			lo = idx
		}
		if !found || idx > hi {
			hi = idx
		}
		found = true
	}
	return lo, hi, found
}

func (t *ChunkTerrain) copySlab(idx world.SlabIndex) (*world.Slab, bool) {
	s, ok := t.slabs[idx]
	if !ok {
		return nil, false
	}
	return world.NewSlabFromBlocks(s.Handle().Blocks(), s.Type()), true
}

func (t *ChunkTerrain) groundLevel(x, y uint8) (int32, bool) {
	lo, hi, ok := t.SlabRange()
	if !ok {
		return 0, false
	}
	for idx := hi; idx >= lo; idx-- {
		s, ok := t.slabs[idx]
		if !ok {
			continue
		}
		for z := world.SlabSize - 1; z >= 0; z-- {
			if s.Block(world.SlabPosition{X: x, Y: y, Z: uint8(z)}).IsSolid() {
				return idx.BaseZ() + int32(z), true
			}
		}
	}
	return 0, false
}

// ChunkBuilder заполняет рельеф чанка поблочно. Слэбы создаются по мере
// обращения к ним.
type ChunkBuilder struct {
	terrain *ChunkTerrain
	muts    map[world.SlabIndex]*world.SlabMut
}

// NewChunkBuilder создаёт построитель пустого чанка
func NewChunkBuilder() *ChunkBuilder {
	return &ChunkBuilder{
		terrain: NewChunkTerrain(),
		muts:    make(map[world.SlabIndex]*world.SlabMut),
	}
}

func (b *ChunkBuilder) mut(idx world.SlabIndex) *world.SlabMut {
	if m, ok := b.muts[idx]; ok {
		return m
	}
	s, ok := b.terrain.slabs[idx]
	if !ok {
		s = world.NewSlab(world.SlabNormal)
		b.terrain.slabs[idx] = s
	}
	m := s.Mut()
	b.muts[idx] = m
	return m
}

// Set ставит блок в локальные координаты чанка (x, y) на мировой высоте z
func (b *ChunkBuilder) Set(x, y uint8, z int32, blk world.Block) *ChunkBuilder {
	m := b.mut(world.SlabIndexOf(z))
	m.Set(world.SlabPosition{X: x, Y: y, Z: uint8(z & (world.SlabSize - 1))}, blk)
	return b
}

// Fill заполняет параллелепипед (границы включительно)
func (b *ChunkBuilder) Fill(from, to vec.Vec3, blk world.Block) *ChunkBuilder {
	lo, hi := from.Min(to), from.Max(to)
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				b.Set(uint8(x), uint8(y), z, blk)
			}
		}
	}
	return b
}

// FillSlice заполняет весь срез на мировой высоте z
func (b *ChunkBuilder) FillSlice(z int32, blk world.Block) *ChunkBuilder {
	return b.Fill(vec.Vec3{X: 0, Y: 0, Z: z}, vec.Vec3{X: world.ChunkSize - 1, Y: world.ChunkSize - 1, Z: z}, blk)
}

// EnsureSlab гарантирует наличие слэба (например, полностью пустого)
func (b *ChunkBuilder) EnsureSlab(idx world.SlabIndex) *ChunkBuilder {
	b.mut(idx)
	return b
}

// Build завершает построение
func (b *ChunkBuilder) Build() *ChunkTerrain {
	for _, m := range b.muts {
		m.Finish()
	}
	b.muts = make(map[world.SlabIndex]*world.SlabMut)
	return b.terrain
}

// ChunkDescriptor рельеф одного чанка для источника в памяти
type ChunkDescriptor struct {
	Chunk   world.ChunkLocation
	Terrain *ChunkTerrain
}

// MemorySource источник рельефа из заранее построенных чанков (тесты и
// демонстрационные миры)
type MemorySource struct {
	chunks   map[world.ChunkLocation]*ChunkTerrain
	min, max world.ChunkLocation
}

var _ Source = (*MemorySource)(nil)

// NewMemorySource проверяет описания чанков и строит источник
func NewMemorySource(chunks ...ChunkDescriptor) (*MemorySource, error) {
	src := &MemorySource{chunks: make(map[world.ChunkLocation]*ChunkTerrain, len(chunks))}

	for _, d := range chunks {
		for _, s := range d.Terrain.slabs {
			if s.IsPlaceholder() && !s.Handle().IsAllAir() {
				return nil, ErrPlaceholderNotEmpty
			}
		}
		if _, dup := src.chunks[d.Chunk]; dup {
			return nil, &DuplicateChunkError{Chunk: d.Chunk}
		}
		src.chunks[d.Chunk] = d.Terrain
	}

	if len(src.chunks) == 0 {
		return nil, ErrNoChunks
	}
	if _, ok := src.chunks[world.ChunkLocation{}]; !ok {
		return nil, ErrMissingCentreChunk
	}

	first := true
	for c := range src.chunks {
		if first {
			src.min, src.max = c, c
			first = false
			continue
		}
		src.min.X = min(src.min.X, c.X)
		src.min.Y = min(src.min.Y, c.Y)
		src.max.X = max(src.max.X, c.X)
		src.max.Y = max(src.max.Y, c.Y)
	}
	return src, nil
}

// AllSlabs все слэбы источника по возрастанию (чанк, слэб), в порядке,
// ожидаемом загрузчиком
func (m *MemorySource) AllSlabs() []world.SlabLocation {
	var out []world.SlabLocation
	for c, t := range m.chunks {
		lo, hi, ok := t.SlabRange()
		if !ok {
			continue
		}
		for idx := lo; idx <= hi; idx++ {
			out = append(out, world.SlabLocation{Chunk: c, Slab: idx})
		}
	}
	sortSlabs(out)
	return out
}

func (m *MemorySource) WorldBoundary() (world.ChunkLocation, world.ChunkLocation) {
	return m.min, m.max
}

func (m *MemorySource) PrepareForChunks(context.Context, world.ChunkLocation, world.ChunkLocation) error {
	return nil
}

func (m *MemorySource) LoadSlab(_ context.Context, loc world.SlabLocation) (*GeneratedSlab, error) {
	t, ok := m.chunks[loc.Chunk]
	if !ok {
		return nil, ErrSlabOutOfBounds
	}
	s, ok := t.copySlab(loc.Slab)
	if !ok {
		return nil, ErrSlabOutOfBounds
	}
	return &GeneratedSlab{Terrain: s}, nil
}

func (m *MemorySource) GroundLevel(_ context.Context, x, y int32) (int32, error) {
	p := vec.Vec3{X: x, Y: y}
	t, ok := m.chunks[world.ChunkLocationOf(p)]
	if !ok {
		return 0, ErrBlockOutOfBounds
	}
	bp := world.BlockPositionOf(p)
	z, ok := t.groundLevel(bp.X, bp.Y)
	if !ok {
		return 0, ErrBlockOutOfBounds
	}
	return z, nil
}

func (m *MemorySource) FeatureBoundariesInRange(context.Context, []world.ChunkLocation, int32, int32) []FeatureBoundary {
	return nil
}

func (m *MemorySource) StealQueuedBlockUpdates(context.Context, map[world.TerrainUpdate]struct{}) int {
	return 0
}
