package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/vec"
)

func singleBlock(at SlabPosition) *Slab {
	return slabFrom(func(p SlabPosition) Block {
		if p == at {
			return stone
		}
		return AirBlock
	})
}

func TestDiscoverOcclusionIsolatedBlock(t *testing.T) {
	at := SlabPosition{X: 5, Y: 5, Z: 5}
	occ := DiscoverOcclusion(NewSlabNeighbourhood(singleBlock(at).Handle()))
	require.Equal(t, 1, occ.Len())

	b, ok := occ.Get(at)
	require.True(t, ok)
	for _, f := range Faces {
		assert.True(t, b.FaceVisible(f), "грань %s", f)
		assert.False(t, b.Face(f).HasSolid())
		for n := NeighbourS; n <= NeighbourSW; n++ {
			assert.Equal(t, OcclusionTransparent, b.Face(f).Get(n))
		}
	}

	_, ok = occ.Get(SlabPosition{X: 5, Y: 5, Z: 6})
	assert.False(t, ok, "воздух не хранится")
}

func TestDiscoverOcclusionHiddenBlocksNotStored(t *testing.T) {
	occ := DiscoverOcclusion(NewSlabNeighbourhood(solidSlab().Handle()))
	assert.Zero(t, occ.Len(), "без известных соседей ни одна грань не видна")

	empty := DiscoverOcclusion(NewSlabNeighbourhood(NewSlab(SlabNormal).Handle()))
	assert.Zero(t, empty.Len())
}

func TestRefreshBorderOcclusion(t *testing.T) {
	at := SlabPosition{X: 0, Y: 5, Z: 5}
	n := NewSlabNeighbourhood(singleBlock(at).Handle())
	occ := DiscoverOcclusion(n)

	b, ok := occ.Get(at)
	require.True(t, ok)
	assert.False(t, b.FaceVisible(FaceWest), "сосед неизвестен")
	assert.Equal(t, OcclusionUnknown, b.Face(FaceWest).Get(NeighbourN))

	west := slabFrom(func(p SlabPosition) Block {
		if p.X == chunkMask && p.Y == 6 && p.Z == 5 {
			return stone
		}
		return AirBlock
	})
	n.Set(-1, 0, 0, west.Handle())

	refreshed, changed := RefreshBorderOcclusion(occ, n)
	require.True(t, changed)
	b, ok = refreshed.Get(at)
	require.True(t, ok)
	assert.True(t, b.FaceVisible(FaceWest))
	assert.Equal(t, OcclusionTransparent, b.Face(FaceWest).Get(NeighbourS), "(-1,5,4) воздух")
	// ось u грани West идёт по +Y
	assert.Equal(t, OcclusionSolid, b.Face(FaceWest).Get(NeighbourE))

	again, changed := RefreshBorderOcclusion(refreshed, n)
	assert.False(t, changed)
	assert.Same(t, refreshed, again)

	// прежняя таблица не изменилась
	b, _ = occ.Get(at)
	assert.False(t, b.FaceVisible(FaceWest))
}

func TestVertexOcclusion(t *testing.T) {
	var f FaceOcclusion
	assert.Equal(t, VertexNotAtAll, f.Vertex(0))

	f = f.with(NeighbourSW, OcclusionSolid)
	assert.Equal(t, VertexMildly, f.Vertex(0))
	assert.Equal(t, VertexNotAtAll, f.Vertex(2))

	f = f.with(NeighbourS, OcclusionSolid).with(NeighbourW, OcclusionSolid)
	assert.Equal(t, VertexFull, f.Vertex(0))
	assert.Equal(t, VertexMildly, f.Vertex(1))
	assert.Equal(t, VertexMildly, f.Vertex(3))
}

func TestOcclusionAffectedNeighbours(t *testing.T) {
	loc := SlabLocation{Chunk: ChunkLocation{2, 3}, Slab: 1}

	assert.Empty(t, OcclusionAffectedNeighbours(loc, []SlabPosition{{X: 5, Y: 5, Z: 5}}))
	assert.Len(t, OcclusionAffectedNeighbours(loc, []SlabPosition{{X: 0, Y: 0, Z: 0}}), 7)
	assert.Equal(t,
		[]SlabLocation{loc.Offset(1, 0, 0)},
		OcclusionAffectedNeighbours(loc, []SlabPosition{{X: 15, Y: 4, Z: 4}, {X: 15, Y: 9, Z: 9}}),
	)
	assert.Len(t, OcclusionAffectedNeighbours(loc, []SlabPosition{{X: 15, Y: 5, Z: 31}}), 3)
}

func TestOcclusionAcrossChunkSeam(t *testing.T) {
	w := NewWorld()
	installSlab(w, SlabLocation{Chunk: ChunkLocation{0, 0}}, NewSlab(SlabNormal), nil, nil)
	installSlab(w, SlabLocation{Chunk: ChunkLocation{-1, 0}}, singleBlock(SlabPosition{X: 15, Y: 0, Z: 1}), nil, nil)

	b, ok := w.Block(vec.Vec3{X: -1, Y: 0, Z: 1})
	require.True(t, ok)
	require.True(t, b.IsSolid())

	occ := w.BlockOcclusionComplete(vec.Vec3{X: 0, Y: 0, Z: 0})
	top := occ.Face(FaceTop)
	assert.True(t, top.HasSolid())
	assert.Equal(t, OcclusionSolid, top.Get(NeighbourW))
	assert.Equal(t, OcclusionTransparent, top.Get(NeighbourE))
	assert.Equal(t, OcclusionUnknown, top.Get(NeighbourS), "чанк (0,-1) не загружен")
}
