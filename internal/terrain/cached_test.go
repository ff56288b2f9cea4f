package terrain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/world"
)

func TestCachedSourceHitsAfterFirstLoad(t *testing.T) {
	inner := testPerlin()
	cached, err := NewCachedSource(inner, 0, 16)
	require.NoError(t, err)
	defer cached.Close()

	ctx := context.Background()
	loc := world.SlabLocation{Chunk: world.ChunkLocation{X: -1, Y: 2}, Slab: 0}

	first, err := cached.LoadSlab(ctx, loc)
	require.NoError(t, err)
	second, err := cached.LoadSlab(ctx, loc)
	require.NoError(t, err)

	assert.Equal(t, first.Terrain.Handle().Blocks(), second.Terrain.Handle().Blocks())
	assert.NotSame(t, first.Terrain, second.Terrain)
	stats := cached.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Entries)

	require.NoError(t, cached.Invalidate(loc))
	require.NoError(t, cached.Invalidate(loc), "повторное удаление не ошибка")
	_, err = cached.LoadSlab(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), cached.Stats().Misses)
}

func TestCachedSourcePassesErrors(t *testing.T) {
	cached, err := NewCachedSource(testPerlin(), 1, 0)
	require.NoError(t, err)
	defer cached.Close()
	ctx := context.Background()

	_, err = cached.LoadSlab(ctx, world.SlabLocation{Chunk: world.ChunkLocation{X: 9}})
	assert.ErrorIs(t, err, ErrSlabOutOfBounds)
	assert.Zero(t, cached.Stats().Entries)

	// ограничение по числу записей
	_, err = cached.LoadSlab(ctx, world.SlabLocation{Slab: 0})
	require.NoError(t, err)
	_, err = cached.LoadSlab(ctx, world.SlabLocation{Slab: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), cached.Stats().Entries)

	lo, hi := cached.WorldBoundary()
	assert.Equal(t, world.ChunkLocation{X: -2, Y: -2}, lo)
	assert.Equal(t, world.ChunkLocation{X: 2, Y: 2}, hi)
}

func TestSlabCodecRejectsGarbage(t *testing.T) {
	_, err := decodeSlab([]byte{1, 2, 3})
	assert.ErrorIs(t, err, errBadSlabBlob)

	buf := encodeSlab(world.NewSlab(world.SlabNormal).Handle())
	buf[0] = 9
	_, err = decodeSlab(buf)
	assert.ErrorIs(t, err, errBadSlabBlob)
}
