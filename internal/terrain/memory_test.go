package terrain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

var stone = world.NewBlock(block.StoneBlockID)

func emptyChunk() *ChunkTerrain {
	return NewChunkBuilder().EnsureSlab(0).Build()
}

func TestMemorySourceValidation(t *testing.T) {
	_, err := NewMemorySource()
	assert.ErrorIs(t, err, ErrNoChunks)

	_, err = NewMemorySource(ChunkDescriptor{Chunk: world.ChunkLocation{X: 5, Y: 5}, Terrain: emptyChunk()})
	assert.ErrorIs(t, err, ErrMissingCentreChunk)

	_, err = NewMemorySource(
		ChunkDescriptor{Chunk: world.ChunkLocation{}, Terrain: emptyChunk()},
		ChunkDescriptor{Chunk: world.ChunkLocation{}, Terrain: emptyChunk()},
	)
	var dup *DuplicateChunkError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, world.ChunkLocation{}, dup.Chunk)

	bad := NewChunkTerrain()
	s := world.NewSlab(world.SlabPlaceholder)
	s.Mut().Set(world.SlabPosition{}, stone)
	bad.SetSlab(0, s)
	_, err = NewMemorySource(ChunkDescriptor{Chunk: world.ChunkLocation{}, Terrain: bad})
	assert.ErrorIs(t, err, ErrPlaceholderNotEmpty)
}

func TestMemorySourceBounds(t *testing.T) {
	one, err := NewMemorySource(ChunkDescriptor{Chunk: world.ChunkLocation{}, Terrain: emptyChunk()})
	require.NoError(t, err)
	lo, hi := one.WorldBoundary()
	assert.Equal(t, world.ChunkLocation{}, lo)
	assert.Equal(t, world.ChunkLocation{}, hi)
	assert.False(t, InBounds(one, world.SlabLocation{Chunk: world.ChunkLocation{X: 1, Y: 1}}))

	ctx := context.Background()
	_, err = one.LoadSlab(ctx, world.SlabLocation{})
	assert.NoError(t, err)
	_, err = one.LoadSlab(ctx, world.SlabLocation{Chunk: world.ChunkLocation{X: 1, Y: 1}})
	assert.ErrorIs(t, err, ErrSlabOutOfBounds)
	_, err = one.LoadSlab(ctx, world.SlabLocation{Slab: 4})
	assert.ErrorIs(t, err, ErrSlabOutOfBounds)

	var chunks []ChunkDescriptor
	for _, c := range []world.ChunkLocation{{X: 0, Y: 0}, {X: 2, Y: 5}, {X: 1, Y: 6}, {X: -5, Y: -4}, {X: -8, Y: -2}} {
		chunks = append(chunks, ChunkDescriptor{Chunk: c, Terrain: emptyChunk()})
	}
	sparse, err := NewMemorySource(chunks...)
	require.NoError(t, err)
	lo, hi = sparse.WorldBoundary()
	assert.Equal(t, world.ChunkLocation{X: -8, Y: -4}, lo)
	assert.Equal(t, world.ChunkLocation{X: 2, Y: 6}, hi)
}

func TestMemorySourceCopiesSlabs(t *testing.T) {
	terrain := NewChunkBuilder().FillSlice(1, stone).Build()
	src, err := NewMemorySource(ChunkDescriptor{Chunk: world.ChunkLocation{}, Terrain: terrain})
	require.NoError(t, err)

	ctx := context.Background()
	a, err := src.LoadSlab(ctx, world.SlabLocation{})
	require.NoError(t, err)
	a.Terrain.Mut().Set(world.SlabPosition{X: 3, Y: 3, Z: 1}, world.AirBlock)

	b, err := src.LoadSlab(ctx, world.SlabLocation{})
	require.NoError(t, err)
	assert.True(t, b.Terrain.Block(world.SlabPosition{X: 3, Y: 3, Z: 1}).IsSolid(), "изменение копии не затрагивает источник")
}

func TestMemorySourceGroundLevel(t *testing.T) {
	terrain := NewChunkBuilder().
		FillSlice(1, stone).
		Set(2, 3, 40, stone).
		EnsureSlab(-1).
		Build()
	src, err := NewMemorySource(ChunkDescriptor{Chunk: world.ChunkLocation{}, Terrain: terrain})
	require.NoError(t, err)
	ctx := context.Background()

	z, err := src.GroundLevel(ctx, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(1), z)

	z, err = src.GroundLevel(ctx, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(40), z)

	_, err = src.GroundLevel(ctx, 100, 3)
	assert.ErrorIs(t, err, ErrBlockOutOfBounds)

	assert.Equal(t, []world.SlabLocation{{Slab: -1}, {Slab: 0}, {Slab: 1}}, src.AllSlabs())
}

func TestChunkBuilderFill(t *testing.T) {
	terrain := NewChunkBuilder().
		Fill(vec.Vec3{X: 1, Y: 1, Z: 30}, vec.Vec3{X: 2, Y: 2, Z: 33}, stone).
		Build()
	lo, hi, ok := terrain.SlabRange()
	require.True(t, ok)
	assert.Equal(t, world.SlabIndex(0), lo)
	assert.Equal(t, world.SlabIndex(1), hi)

	s, ok := terrain.copySlab(1)
	require.True(t, ok)
	assert.True(t, s.Block(world.SlabPosition{X: 2, Y: 2, Z: 1}).IsSolid())
	assert.False(t, s.Block(world.SlabPosition{X: 2, Y: 2, Z: 2}).IsSolid())
}
