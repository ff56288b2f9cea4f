package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkLoadStateMachine(t *testing.T) {
	c := NewChunk(ChunkLocation{1, 2})
	const idx = SlabIndex(0)

	assert.Equal(t, NotRequested, c.SlabState(idx))
	require.True(t, c.MarkSlabRequested(idx, 1))
	assert.False(t, c.MarkSlabRequested(idx, 2), "повторный запрос ничего не меняет")
	assert.Equal(t, uint64(1), c.Slab(idx).Stamp())

	slab := slabFrom(floorAt(1))
	h := slab.Handle()
	vs := DiscoverVerticalSpace(h)
	ticket, ok := c.MarkSlabAsInWorld(idx, slab, vs, DiscoverOcclusion(NewSlabNeighbourhood(h)), 3)
	require.True(t, ok)
	assert.Equal(t, TerrainInWorld, c.SlabState(idx))
	assert.False(t, c.Slab(idx).HasNav())

	b, ok := c.Block(BlockPosition{X: 4, Y: 4, Z: 1})
	require.True(t, ok)
	assert.True(t, b.IsSolid())

	areas := DiscoverAreas(vs, nil)
	g := DiscoverSlabNavGraph(areas)
	prev, ok := c.ReplaceSlabNavGraph(idx, ticket, g, areas, 4)
	require.True(t, ok)
	assert.Equal(t, UnsetNeighbourHashes(), prev)
	assert.Equal(t, DoneInIsolation, c.SlabState(idx))
	assert.Equal(t, uint64(1), c.Slab(idx).NavVersion())

	c.SetNeighbourHash(idx, FaceNorth, HashFace(areas, FaceNorth))
	require.True(t, c.MarkSlabAsDone(idx, ticket, 5))
	assert.Equal(t, Done, c.SlabState(idx))
	assert.Zero(t, c.CountLoading())
	assert.Equal(t, HashFace(areas, FaceNorth), c.Slab(idx).NeighbourHashes()[FaceNorth])
}

func TestChunkTicketsSupersedeDerivation(t *testing.T) {
	c := NewChunk(ChunkLocation{})
	const idx = SlabIndex(3)
	slab := slabFrom(floorAt(1))
	vs := DiscoverVerticalSpace(slab.Handle())

	first, ok := c.MarkSlabAsInWorld(idx, slab, vs, nil, 1)
	require.True(t, ok)

	second, ok := c.MarkSlabAsUpdating(idx, 2)
	require.True(t, ok)
	assert.NotEqual(t, first, second)
	assert.False(t, c.IsTicketCurrent(idx, first))
	assert.True(t, c.IsTicketCurrent(idx, second))

	areas := DiscoverAreas(vs, nil)
	_, ok = c.ReplaceSlabNavGraph(idx, first, DiscoverSlabNavGraph(areas), areas, 3)
	assert.False(t, ok, "устаревший билет не публикуется")
	assert.False(t, c.MarkSlabAsDone(idx, first, 3))

	_, ok = c.ReplaceSlabNavGraph(idx, second, DiscoverSlabNavGraph(areas), areas, 4)
	require.True(t, ok)
	assert.Equal(t, Updating, c.SlabState(idx), "Updating сохраняется до завершения")
	require.True(t, c.MarkSlabAsDone(idx, second, 5))
	assert.Equal(t, Done, c.SlabState(idx))
}

func TestChunkRejectsBackwardTransition(t *testing.T) {
	c := NewChunk(ChunkLocation{})
	slab := NewSlab(SlabNormal)
	_, ok := c.MarkSlabAsInWorld(0, slab, EmptyVerticalSpace(), nil, 1)
	require.True(t, ok)

	_, ok = c.MarkSlabAsInWorld(0, slab, EmptyVerticalSpace(), nil, 2)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.Slab(0).Stamp())

	_, ok = c.MarkSlabAsUpdating(5, 3)
	assert.False(t, ok, "незагруженный слэб нельзя обновлять")
}

func TestChunkRevertRequest(t *testing.T) {
	c := NewChunk(ChunkLocation{})
	require.True(t, c.MarkSlabRequested(2, 1))
	assert.Equal(t, 1, c.CountLoading())
	require.True(t, c.RevertSlabRequest(2))
	assert.Equal(t, NotRequested, c.SlabState(2))
	assert.Nil(t, c.Slab(2))
	assert.False(t, c.RevertSlabRequest(2))
}

func TestChunkDerivedDataFollowsTerrainVersion(t *testing.T) {
	c := NewChunk(ChunkLocation{})
	slab := slabFrom(floorAt(1))
	_, ok := c.MarkSlabAsInWorld(0, slab, DiscoverVerticalSpace(slab.Handle()), nil, 1)
	require.True(t, ok)
	c.TakeDirtySlabs()

	m, ok := c.SlabMut(0)
	require.True(t, ok)
	m.Set(SlabPosition{X: 1, Y: 1, Z: 2}, grass)
	version := m.Finish()
	assert.Equal(t, uint64(1), version)

	assert.False(t, c.ReplaceSlabDerived(0, version-1, EmptyVerticalSpace(), nil), "устаревшая версия отбрасывается")
	vs := DiscoverVerticalSpace(slab.Handle())
	require.True(t, c.ReplaceSlabDerived(0, version, vs, nil))
	assert.Same(t, vs, c.Slab(0).VerticalSpace())
	assert.Equal(t, []SlabIndex{0}, c.TakeDirtySlabs())
	assert.Empty(t, c.TakeDirtySlabs())
}

func TestChunkSlabRange(t *testing.T) {
	c := NewChunk(ChunkLocation{})
	_, _, ok := c.SlabRange()
	assert.False(t, ok)

	c.MarkSlabRequested(7, 1)
	for _, idx := range []SlabIndex{-2, 4} {
		_, ok := c.MarkSlabAsInWorld(idx, NewSlab(SlabNormal), EmptyVerticalSpace(), nil, 2)
		require.True(t, ok)
	}
	lo, hi, ok := c.SlabRange()
	require.True(t, ok)
	assert.Equal(t, SlabIndex(-2), lo)
	assert.Equal(t, SlabIndex(4), hi)
	assert.Equal(t, []SlabIndex{-2, 4, 7}, c.SlabIndices())
}
