package terrain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/world"
)

func testPerlin() *PerlinSource {
	return NewPerlinSource(777, world.ChunkLocation{X: -2, Y: -2}, world.ChunkLocation{X: 2, Y: 2})
}

func TestPerlinSourceDeterministic(t *testing.T) {
	ctx := context.Background()
	loc := world.SlabLocation{Chunk: world.ChunkLocation{X: 1, Y: -1}, Slab: 0}

	a, err := testPerlin().LoadSlab(ctx, loc)
	require.NoError(t, err)
	b, err := testPerlin().LoadSlab(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, a.Terrain.Handle().Blocks(), b.Terrain.Handle().Blocks(), "одинаковый сид даёт одинаковый рельеф")
}

func TestPerlinSourceBounds(t *testing.T) {
	src := testPerlin()
	ctx := context.Background()

	_, err := src.LoadSlab(ctx, world.SlabLocation{Chunk: world.ChunkLocation{X: 3, Y: 0}})
	assert.ErrorIs(t, err, ErrSlabOutOfBounds)
	_, err = src.GroundLevel(ctx, 1000, 0)
	assert.ErrorIs(t, err, ErrBlockOutOfBounds)

	require.NoError(t, src.PrepareForChunks(ctx, world.ChunkLocation{X: -3, Y: -3}, world.ChunkLocation{X: 3, Y: 3}))
	assert.Len(t, src.plans, 25, "планы строятся только для чанков внутри границ")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = src.LoadSlab(cancelled, world.SlabLocation{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPerlinGroundLevelMatchesTerrain(t *testing.T) {
	src := testPerlin()
	ctx := context.Background()

	for _, p := range [][2]int32{{0, 0}, {5, 9}, {-7, 13}, {20, -30}} {
		ground, err := src.GroundLevel(ctx, p[0], p[1])
		require.NoError(t, err)

		loc := world.SlabLocation{Chunk: world.ChunkLocation{X: p[0] >> 4, Y: p[1] >> 4}, Slab: world.SlabIndexOf(ground)}
		gen, err := src.LoadSlab(ctx, loc)
		require.NoError(t, err)
		pos := world.SlabPosition{X: uint8(p[0] & 15), Y: uint8(p[1] & 15), Z: uint8(ground & 31)}
		assert.True(t, gen.Terrain.Block(pos).IsSolid(), "в столбце %v на высоте %d должен быть твёрдый блок", p, ground)

		below := world.SlabLocation{Chunk: loc.Chunk, Slab: world.SlabIndexOf(ground - world.SlabSize)}
		deep, err := src.LoadSlab(ctx, below)
		require.NoError(t, err)
		assert.False(t, deep.Terrain.Handle().IsAllAir(), "под поверхностью камень")
	}
}

func TestPerlinQueuedFeatureUpdates(t *testing.T) {
	src := testPerlin()
	src.ForestDensity = 1 // дерево в каждом столбце равнин и леса
	ctx := context.Background()
	require.NoError(t, src.PrepareForChunks(ctx, world.ChunkLocation{X: -2, Y: -2}, world.ChunkLocation{X: 2, Y: 2}))

	sink := make(map[world.TerrainUpdate]struct{})
	n := src.StealQueuedBlockUpdates(ctx, sink)
	assert.Equal(t, len(sink), n)
	for u := range sink {
		assert.Equal(t, u.From, u.To)
	}
	assert.Zero(t, src.StealQueuedBlockUpdates(ctx, sink), "очередь забирается целиком")

	var chunks []world.ChunkLocation
	for x := int32(-2); x <= 2; x++ {
		for y := int32(-2); y <= 2; y++ {
			chunks = append(chunks, world.ChunkLocation{X: x, Y: y})
		}
	}
	bounds := src.FeatureBoundariesInRange(ctx, chunks, -1000, 1000)
	if n > 0 {
		assert.NotEmpty(t, bounds)
	}
	assert.Empty(t, src.FeatureBoundariesInRange(ctx, chunks, 5000, 6000))
}
