package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertDisjoint(t *testing.T, areas []SlabArea) {
	t.Helper()
	for i := range areas {
		assert.LessOrEqual(t, areas[i].Area.Height, MaxFreeHeight)
		assert.GreaterOrEqual(t, areas[i].Area.Height, MinClearance)
		for j := i + 1; j < len(areas); j++ {
			if areas[i].Slice != areas[j].Slice {
				continue
			}
			assert.False(t, areas[i].Area.Overlaps(areas[j].Area), "зоны %v и %v пересекаются", areas[i], areas[j])
		}
	}
}

func TestDiscoverAreasFlatFloor(t *testing.T) {
	vs := DiscoverVerticalSpace(slabFrom(floorAt(1)).Handle())
	areas := DiscoverAreas(vs, EmptyVerticalSpace())

	require.Len(t, areas, 1)
	a := areas[0]
	assert.Equal(t, LocalSliceIndex(2), a.Slice)
	assert.Equal(t, SliceAreaIndex(0), a.Index)
	assert.Equal(t, SliceBlock{0, 0}, a.Area.From)
	assert.Equal(t, SliceBlock{15, 15}, a.Area.To)
	assert.Equal(t, NavAreaMaxHeight, a.Area.Height)
}

func TestDiscoverAreasRaisedBlocks(t *testing.T) {
	vs := DiscoverVerticalSpace(slabFrom(raisedFloor).Handle())
	areas := DiscoverAreas(vs, EmptyVerticalSpace())
	SortAreas(areas)
	assertDisjoint(t, areas)

	cells := map[LocalSliceIndex]int{}
	for _, a := range areas {
		cells[a.Slice] += a.Area.Cells()
		if a.Slice == 3 {
			assert.False(t, a.Area.Contains(SliceBlock{0, 0}))
			assert.False(t, a.Area.Contains(SliceBlock{8, 8}))
		}
	}
	assert.Equal(t, SliceSize-2, cells[3], "срез 3 покрыт полностью, кроме двух блоков травы")
	assert.Equal(t, 2, cells[4])

	// номера зон внутри среза идут подряд с нуля
	next := map[LocalSliceIndex]SliceAreaIndex{}
	for _, a := range areas {
		assert.Equal(t, next[a.Slice], a.Index)
		next[a.Slice]++
	}
}

func TestDiscoverAreasSkipsLowClearance(t *testing.T) {
	slab := slabFrom(func(p SlabPosition) Block {
		if p.Z == 1 || p.Z == 3 {
			return stone
		}
		return AirBlock
	})
	areas := DiscoverAreas(DiscoverVerticalSpace(slab.Handle()), EmptyVerticalSpace())
	require.Len(t, areas, 1)
	assert.Equal(t, LocalSliceIndex(4), areas[0].Slice, "под потолком высотой 1 зон нет")
}

func TestDiscoverAreasExtendsIntoSlabAbove(t *testing.T) {
	// пол у самого верха: своего воздуха 2 блока, остальное в слэбе сверху
	vs := DiscoverVerticalSpace(slabFrom(floorAt(SlabSize - 3)).Handle())

	areas := DiscoverAreas(vs, EmptyVerticalSpace())
	require.Len(t, areas, 1)
	assert.Equal(t, NavAreaMaxHeight, areas[0].Area.Height)

	solidAbove := DiscoverVerticalSpace(solidSlab().Handle())
	areas = DiscoverAreas(vs, solidAbove)
	require.Len(t, areas, 1)
	assert.Equal(t, uint8(2), areas[0].Area.Height)
}

func TestDiscoverBottomAreas(t *testing.T) {
	vs := EmptyVerticalSpace()
	assert.Nil(t, DiscoverBottomAreas(vs, nil), "без слэба снизу опоры нет")
	assert.Nil(t, DiscoverBottomAreas(vs, EmptyVerticalSpace()), "снизу воздух")

	below := DiscoverVerticalSpace(solidSlab().Handle())
	areas := DiscoverBottomAreas(vs, below)
	require.Len(t, areas, 1)
	assert.Equal(t, bottomSlice, areas[0].Slice)
	assert.Equal(t, SliceSize, areas[0].Area.Cells())
}

func TestSliceAreaTouches(t *testing.T) {
	a := SliceArea{From: SliceBlock{0, 0}, To: SliceBlock{3, 3}}
	assert.True(t, a.Touches(SliceArea{From: SliceBlock{4, 2}, To: SliceBlock{6, 8}}))
	assert.True(t, a.Touches(SliceArea{From: SliceBlock{0, 4}, To: SliceBlock{0, 4}}))
	assert.False(t, a.Touches(SliceArea{From: SliceBlock{4, 4}, To: SliceBlock{5, 5}}), "касание углом не считается")
	assert.False(t, a.Touches(SliceArea{From: SliceBlock{5, 0}, To: SliceBlock{6, 3}}))
}
