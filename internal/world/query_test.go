package world

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/vec"
)

func flatWorld(t *testing.T) (*World, SlabLocation) {
	t.Helper()
	w := NewWorld()
	loc := SlabLocation{Chunk: ChunkLocation{0, 0}, Slab: 0}
	installSlab(w, loc, slabFrom(floorAt(1)), nil, nil)
	require.Equal(t, Done, w.SlabState(loc))
	return w, loc
}

func TestFindAreaForBlock(t *testing.T) {
	w, loc := flatWorld(t)

	area, ok := w.FindAreaForBlock(vec.Vec3{X: 2, Y: 2, Z: 2}, MinClearance)
	require.True(t, ok)
	assert.Equal(t, NewWorldArea(loc, SlabAreaKey{Slice: 2}), area)
	assert.True(t, w.Graph().Contains(area))

	_, ok = w.FindAreaForBlock(vec.Vec3{X: 2, Y: 2, Z: 2}, 5)
	assert.False(t, ok, "высота зоны меньше требуемой")
	_, ok = w.FindAreaForBlock(vec.Vec3{X: 2, Y: 2, Z: 3}, MinClearance)
	assert.False(t, ok, "агент висит в воздухе")
	_, ok = w.FindAreaForBlock(vec.Vec3{X: 2, Y: 2, Z: 40}, MinClearance)
	assert.False(t, ok, "слэб не загружен")

	info, ok := w.AreaInfo(area)
	require.True(t, ok)
	assert.Equal(t, vec.Vec3Float{X: 8, Y: 8, Z: 2}, AreaCentre(area, info))
	assert.Equal(t, vec.Vec3{X: 3, Y: 4, Z: 2}, AreaBlock(area, SliceBlock{X: 3, Y: 4}))
}

func TestColumnQueries(t *testing.T) {
	w, _ := flatWorld(t)

	p, ok := w.FindAccessibleBlockInColumn(3, 3, MinClearance)
	require.True(t, ok)
	assert.Equal(t, vec.Vec3{X: 3, Y: 3, Z: 2}, p)

	ground, ok := w.GroundLevel(3, 3)
	require.True(t, ok)
	assert.Equal(t, int32(1), ground)

	_, ok = w.GroundLevel(100, 3)
	assert.False(t, ok)
}

func TestRandomPoints(t *testing.T) {
	w, _ := flatWorld(t)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 20; i++ {
		p, ok := w.ChooseRandomAccessiblePoint(10, MinClearance, rng)
		require.True(t, ok)
		assert.Equal(t, int32(2), p.Z)
		assert.True(t, p.X >= 0 && p.X < ChunkSize && p.Y >= 0 && p.Y < ChunkSize)
	}

	dst, err := w.FindExploratoryDestination(vec.Vec3{X: 1, Y: 1, Z: 2}, 10, MinClearance, nil, rng)
	require.NoError(t, err)
	assert.Equal(t, int32(2), dst.Z)

	_, err = w.FindExploratoryDestination(vec.Vec3{X: 1, Y: 1, Z: 7}, 10, MinClearance, nil, rng)
	var notWalkable *SourceNotWalkableError
	assert.ErrorAs(t, err, &notWalkable)
}

func TestWorldBlockMatchesChunk(t *testing.T) {
	w, loc := flatWorld(t)
	c := w.FindChunk(loc.Chunk)
	require.NotNil(t, c)

	w.IterateBlocks(vec.Vec3{X: 0, Y: 0, Z: 0}, vec.Vec3{X: 3, Y: 3, Z: 3}, func(pos vec.Vec3, b Block) bool {
		direct, ok := c.Block(BlockPositionOf(pos))
		assert.True(t, ok)
		assert.Equal(t, direct, b)
		return true
	})

	floor := w.FilterBlocksInRange(vec.Vec3{X: 0, Y: 0, Z: 0}, vec.Vec3{X: 1, Y: 1, Z: 5}, func(_ vec.Vec3, b Block) bool {
		return b.IsSolid()
	})
	assert.Len(t, floor, 4)

	_, ok := w.Block(vec.Vec3{X: 0, Y: 0, Z: -1})
	assert.False(t, ok)
}

func TestSlabStaleness(t *testing.T) {
	w, loc := flatWorld(t)
	now := w.Epoch()
	assert.False(t, w.IsSlabStale(loc, now))
	assert.True(t, w.IsSlabStale(loc, 0))
	assert.False(t, w.IsSlabStale(loc.Above(), 0), "незапрошенный слэб не меняется")

	c := w.FindChunk(loc.Chunk)
	_, ok := c.MarkSlabAsUpdating(loc.Slab, w.NextStamp())
	require.True(t, ok)
	assert.True(t, w.IsSlabStale(loc, w.Epoch()), "обновляющийся слэб всегда устаревший")
	assert.Equal(t, 1, w.CountLoadingSlabs())
	assert.Equal(t, map[SlabLoadState]int{Updating: 1}, w.CountSlabs())
}

func TestWorldBookkeeping(t *testing.T) {
	w, loc := flatWorld(t)

	lo, hi, ok := w.SliceBounds()
	require.True(t, ok)
	assert.Equal(t, GlobalSliceIndex(0), lo)
	assert.Equal(t, GlobalSliceIndex(31), hi)

	assert.Equal(t, []SlabLocation{loc}, w.TakeDirtySlabs())
	assert.Empty(t, w.TakeDirtySlabs())

	w.EnsureChunk(ChunkLocation{X: -1, Y: 5})
	w.EnsureChunk(ChunkLocation{X: 2, Y: -5})
	chunks := w.Chunks()
	require.Len(t, chunks, 3)
	for i := 1; i < len(chunks); i++ {
		assert.True(t, chunks[i-1].Location().Less(chunks[i].Location()))
	}
	assert.Same(t, chunks[0], w.NewChunkCursor().Chunk(chunks[0].Location()))
}
