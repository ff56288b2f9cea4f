package world

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/voxel-world/internal/vec"
)

func TestWorldPositionRoundTrip(t *testing.T) {
	cases := []vec.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: -1, Y: 0, Z: 1},
		{X: 17, Y: -33, Z: -1},
		{X: -16, Y: 15, Z: 64},
	}
	for _, p := range cases {
		loc := SlabLocationOf(p)
		assert.Equal(t, p, loc.ToWorld(SlabPositionOf(p)), "позиция %s", p)
		assert.Equal(t, p, BlockPositionOf(p).ToWorld(ChunkLocationOf(p)))
	}

	assert.Equal(t, ChunkLocation{X: -1, Y: 0}, ChunkLocationOf(vec.Vec3{X: -1}))
	assert.Equal(t, SlabIndex(-1), SlabIndexOf(-1))
	assert.Equal(t, SlabIndex(2), SlabIndexOf(64))
	assert.Equal(t, GlobalSliceIndex(-1), SlabIndex(-1).Slice(topSlice))
}

func TestFaceNeighbours(t *testing.T) {
	loc := SlabLocation{Chunk: ChunkLocation{X: 3, Y: -2}, Slab: 1}
	for _, f := range Faces {
		assert.Equal(t, loc, loc.Neighbour(f).Neighbour(f.Opposite()), "грань %s", f)
		assert.Equal(t, f, f.Opposite().Opposite())
	}
	assert.Equal(t, loc.Above(), loc.Neighbour(FaceTop))
	assert.Equal(t, loc.Below(), loc.Neighbour(FaceBottom))
	assert.Equal(t, ChunkLocation{X: 4, Y: -2}, loc.Neighbour(FaceEast).Chunk)
	assert.Equal(t, ChunkLocation{X: 3, Y: -1}, loc.Neighbour(FaceNorth).Chunk)
	assert.Len(t, HorizontalFaces, 4)
	for _, f := range HorizontalFaces {
		assert.True(t, f.IsHorizontal())
	}
	assert.False(t, FaceTop.IsHorizontal())
}

func TestSlabLocationOrder(t *testing.T) {
	a := SlabLocation{Chunk: ChunkLocation{X: 0, Y: 0}, Slab: 5}
	b := SlabLocation{Chunk: ChunkLocation{X: 0, Y: 1}, Slab: -3}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, a.Below().Less(a))
	assert.False(t, a.Less(a))
}

func TestSlabPositionBorder(t *testing.T) {
	assert.True(t, SlabPosition{X: 0, Y: 5, Z: 5}.IsBorder())
	assert.True(t, SlabPosition{X: 5, Y: 5, Z: 31}.IsBorder())
	assert.False(t, SlabPosition{X: 5, Y: 5, Z: 5}.IsBorder())
	assert.False(t, SlabPosition{X: 14, Y: 1, Z: 30}.IsBorder())
}
