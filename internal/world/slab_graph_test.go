package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discoverAll(slab *Slab) []SlabArea {
	areas := DiscoverAreas(DiscoverVerticalSpace(slab.Handle()), EmptyVerticalSpace())
	SortAreas(areas)
	return areas
}

func TestSlabNavGraphStepUp(t *testing.T) {
	slab := slabFrom(func(p SlabPosition) Block {
		if (p.X < 8 && p.Z == 1) || (p.X >= 8 && p.Z == 2) {
			return stone
		}
		return AirBlock
	})
	g := DiscoverSlabNavGraph(discoverAll(slab))

	require.Len(t, g.Nodes(), 2)
	require.Len(t, g.Edges(), 1)
	e := g.Edges()[0]
	assert.Equal(t, SlabAreaKey{Slice: 2, Index: 0}, e.From)
	assert.Equal(t, SlabAreaKey{Slice: 3, Index: 0}, e.To)
	assert.Equal(t, EdgeJumpUp, e.Cost)
	assert.Equal(t, NavAreaMaxHeight, e.Clearance)
}

func TestSlabNavGraphWalkWithinSlice(t *testing.T) {
	// низкий потолок над половиной пола
	slab := slabFrom(func(p SlabPosition) Block {
		if p.Z == 1 || (p.X < 8 && p.Z == 4) {
			return stone
		}
		return AirBlock
	})
	g := DiscoverSlabNavGraph(discoverAll(slab))

	require.Len(t, g.Nodes(), 3, "две зоны на полу и одна на потолке")
	require.Len(t, g.Edges(), 1)
	e := g.Edges()[0]
	assert.Equal(t, EdgeWalk, e.Cost)
	assert.Equal(t, LocalSliceIndex(2), e.From.Slice)
	assert.Equal(t, LocalSliceIndex(2), e.To.Slice)
	assert.Equal(t, uint8(2), e.Clearance)

	roof, ok := g.Area(SlabAreaKey{Slice: 5, Index: 0})
	require.True(t, ok)
	assert.Equal(t, SliceBlock{X: 7, Y: 15}, roof.Area.To)
	_, ok = g.Area(SlabAreaKey{Slice: 5, Index: 1})
	assert.False(t, ok)
}

func TestSlabNavGraphRaisedBlocks(t *testing.T) {
	g := DiscoverSlabNavGraph(discoverAll(slabFrom(raisedFloor)))

	ups := 0
	for _, e := range g.Edges() {
		switch e.Cost {
		case EdgeJumpUp:
			ups++
			assert.Equal(t, LocalSliceIndex(3), e.From.Slice)
			assert.Equal(t, LocalSliceIndex(4), e.To.Slice)
		case EdgeWalk:
			assert.Equal(t, e.From.Slice, e.To.Slice)
		default:
			t.Fatalf("внутри слэба рёбра строятся только снизу вверх: %v", e)
		}
	}
	assert.GreaterOrEqual(t, ups, 4, "к каждому блоку травы можно запрыгнуть минимум с двух сторон")
}

func TestEdgeCostSymmetry(t *testing.T) {
	for _, c := range []EdgeCost{EdgeWalk, EdgeJumpUp, EdgeJumpDown} {
		assert.Equal(t, c, c.Opposite().Opposite())
		assert.Equal(t, -c.ZOffset(), c.Opposite().ZOffset())
	}
	assert.Greater(t, EdgeJumpUp.Weight(), EdgeJumpDown.Weight())
	assert.Greater(t, EdgeJumpDown.Weight(), EdgeWalk.Weight())
}
