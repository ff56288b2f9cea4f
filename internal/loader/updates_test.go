package loader

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
)

func updateSet(updates ...world.TerrainUpdate) map[world.TerrainUpdate]struct{} {
	out := make(map[world.TerrainUpdate]struct{}, len(updates))
	for _, u := range updates {
		out[u] = struct{}{}
	}
	return out
}

func TestApplySingleBlockUpdate(t *testing.T) {
	l, ref := newTestLoader(t, flatSource(t), testConfig())
	slab := world.SlabLocation{}
	loadAll(t, l, slab)

	before := terrainVersion(ref, slab)
	set := updateSet(world.SingleBlockUpdate(vec.Vec3{X: 1, Y: 1, Z: 1}, grass))

	events := l.ApplyTerrainUpdates(set)
	require.Len(t, events, 1)
	assert.Equal(t, world.ChangeEvent{Pos: vec.Vec3{X: 1, Y: 1, Z: 1}, Prev: stone, New: grass}, events[0])
	assert.Empty(t, set, "применённые изменения удаляются из набора")

	// блок виден сразу, навигация догоняет позже
	assert.Equal(t, grass, blockAt(ref, 1, 1, 1))
	assert.Equal(t, before+1, terrainVersion(ref, slab))

	require.NoError(t, l.BlockUntilAllDone(context.Background(), loadTimeout, nil))
	assert.Equal(t, world.Done, slabState(ref, slab))
	assert.Equal(t, before+1, terrainVersion(ref, slab))
}

func TestApplySameUpdateTwice(t *testing.T) {
	l, ref := newTestLoader(t, flatSource(t), testConfig())
	slab := world.SlabLocation{}
	loadAll(t, l, slab)

	u := world.SingleBlockUpdate(vec.Vec3{X: 4, Y: 4, Z: 1}, grass)
	require.Len(t, l.ApplyTerrainUpdates(updateSet(u)), 1)
	require.NoError(t, l.BlockUntilAllDone(context.Background(), loadTimeout, nil))
	version := terrainVersion(ref, slab)

	assert.Empty(t, l.ApplyTerrainUpdates(updateSet(u)))
	assert.Equal(t, version, terrainVersion(ref, slab))
	assert.Equal(t, world.Done, slabState(ref, slab))
}

func TestApplyEmptySet(t *testing.T) {
	l, _ := newTestLoader(t, flatSource(t), testConfig())
	assert.Nil(t, l.ApplyTerrainUpdates(nil))
	assert.Nil(t, l.ApplyTerrainUpdates(updateSet()))
}

func TestApplyDefersLoadingAndDropsUnknownSlabs(t *testing.T) {
	src := &blockingSource{Source: flatSource(t), release: make(chan struct{})}
	l, ref := newTestLoader(t, src, testConfig())

	slab := world.SlabLocation{}
	require.Equal(t, 2, l.RequestSlabs([]world.SlabLocation{slab}))

	pending := world.SingleBlockUpdate(vec.Vec3{X: 1, Y: 1, Z: 1}, grass)
	unknown := world.SingleBlockUpdate(vec.Vec3{X: 100, Y: 100, Z: 1}, grass)
	set := updateSet(pending, unknown)

	assert.Empty(t, l.ApplyTerrainUpdates(set))
	assert.Equal(t, updateSet(pending), set, "изменение загружающегося слэба остаётся в наборе")

	close(src.release)
	require.NoError(t, l.BlockUntilAllDone(context.Background(), loadTimeout, nil))

	events := l.ApplyTerrainUpdates(set)
	require.Len(t, events, 1)
	assert.Empty(t, set)
	assert.Equal(t, grass, blockAt(ref, 1, 1, 1))
}

func TestApplyUpdateSpanningSlabs(t *testing.T) {
	l, ref := newTestLoader(t, flatSource(t), testConfig())
	loadAll(t, l, world.SlabLocation{Slab: -1}, world.SlabLocation{})

	set := updateSet(world.BoxUpdate(vec.Vec3{X: 0, Y: 0, Z: -1}, vec.Vec3{X: 1, Y: 0, Z: 0}, stone))
	events := l.ApplyTerrainUpdates(set)
	assert.Len(t, events, 4, "по два блока в каждом из двух слэбов")
	assert.Empty(t, set)

	require.NoError(t, l.BlockUntilAllDone(context.Background(), loadTimeout, nil))
	assert.Equal(t, stone, blockAt(ref, 1, 0, -1))
	assert.Equal(t, stone, blockAt(ref, 0, 0, 0))
}

func TestCarvedHoleRemovesArea(t *testing.T) {
	l, ref := newTestLoader(t, flatSource(t), testConfig())
	loadAll(t, l, world.SlabLocation{})

	ref.Read(func(w *world.World) {
		_, ok := w.FindAreaForBlock(vec.Vec3{X: 5, Y: 5, Z: 2}, 2)
		require.True(t, ok)
	})

	events := l.ApplyTerrainUpdates(updateSet(world.SingleBlockUpdate(vec.Vec3{X: 5, Y: 5, Z: 1}, world.AirBlock)))
	require.Len(t, events, 1)
	assert.Equal(t, stone, events[0].Prev)
	assert.Equal(t, world.AirBlock, events[0].New)

	require.NoError(t, l.BlockUntilAllDone(context.Background(), loadTimeout, nil))
	ref.Read(func(w *world.World) {
		_, ok := w.FindAreaForBlock(vec.Vec3{X: 5, Y: 5, Z: 2}, 2)
		assert.False(t, ok, "над дырой стоять негде")

		_, ok = w.FindAreaForBlock(vec.Vec3{X: 6, Y: 5, Z: 2}, 2)
		assert.True(t, ok)
	})
}

func TestCompareUpdatesFarApart(t *testing.T) {
	near := world.SingleBlockUpdate(vec.Vec3{X: math.MinInt32, Y: 0, Z: 0}, stone)
	far := world.SingleBlockUpdate(vec.Vec3{X: math.MaxInt32, Y: 0, Z: 0}, stone)
	assert.Negative(t, compareUpdates(near, far))
	assert.Positive(t, compareUpdates(far, near))

	low := world.BoxUpdate(vec.Vec3{Z: math.MinInt32}, vec.Vec3{Z: math.MaxInt32}, grass)
	high := world.BoxUpdate(vec.Vec3{Z: math.MinInt32}, vec.Vec3{Z: math.MaxInt32 - 1}, grass)
	assert.Positive(t, compareUpdates(low, high))

	assert.Zero(t, compareUpdates(far, far))
	assert.NotZero(t, compareUpdates(far, world.SingleBlockUpdate(far.From, grass)))
}
