package world

import (
	"fmt"
	"sort"
)

// SliceAreaIndex номер зоны внутри среза
type SliceAreaIndex uint16

// SliceArea прямоугольник проходимых клеток среза (границы включительно)
// с общей свободной высотой
type SliceArea struct {
	From   SliceBlock
	To     SliceBlock
	Height uint8
}

// SlabArea зона навигации слэба
type SlabArea struct {
	Slice LocalSliceIndex
	Index SliceAreaIndex
	Area  SliceArea
}

// SlabAreaKey идентификатор зоны внутри слэба
type SlabAreaKey struct {
	Slice LocalSliceIndex
	Index SliceAreaIndex
}

func (a SlabArea) Key() SlabAreaKey {
	return SlabAreaKey{Slice: a.Slice, Index: a.Index}
}

func (k SlabAreaKey) String() string {
	return fmt.Sprintf("%d:%d", k.Slice, k.Index)
}

// Contains лежит ли клетка внутри прямоугольника
func (a SliceArea) Contains(b SliceBlock) bool {
	return b.X >= a.From.X && b.X <= a.To.X && b.Y >= a.From.Y && b.Y <= a.To.Y
}

// Cells число клеток
func (a SliceArea) Cells() int {
	return (int(a.To.X) - int(a.From.X) + 1) * (int(a.To.Y) - int(a.From.Y) + 1)
}

// Centre центр прямоугольника в координатах среза
func (a SliceArea) Centre() (float64, float64) {
	return (float64(a.From.X) + float64(a.To.X) + 1) / 2, (float64(a.From.Y) + float64(a.To.Y) + 1) / 2
}

// Touches соприкасаются ли прямоугольники хотя бы одной гранью клетки
func (a SliceArea) Touches(o SliceArea) bool {
	xOverlap := a.From.X <= o.To.X && o.From.X <= a.To.X
	yOverlap := a.From.Y <= o.To.Y && o.From.Y <= a.To.Y
	xAdjacent := int(a.To.X)+1 == int(o.From.X) || int(o.To.X)+1 == int(a.From.X)
	yAdjacent := int(a.To.Y)+1 == int(o.From.Y) || int(o.To.Y)+1 == int(a.From.Y)
	return (xAdjacent && yOverlap) || (yAdjacent && xOverlap)
}

// Overlaps пересекаются ли прямоугольники
func (a SliceArea) Overlaps(o SliceArea) bool {
	return a.From.X <= o.To.X && o.From.X <= a.To.X && a.From.Y <= o.To.Y && o.From.Y <= a.To.Y
}

func (a SliceArea) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d) h=%d", a.From.X, a.From.Y, a.To.X, a.To.Y, a.Height)
}

// sliceHeights высоты для одного среза
type sliceHeights [SliceSize]uint8

func navHeight(h uint8) uint8 {
	h = min(h, NavAreaMaxHeight)
	if h < MinClearance {
		return 0
	}
	return h
}

// DiscoverAreas строит зоны для срезов 1..SlabSize-1. Если известен слэб
// сверху, столбцы, упирающиеся в верх слэба, продолжаются его нижним воздухом.
func DiscoverAreas(vs *SlabVerticalSpace, above *SlabVerticalSpace) []SlabArea {
	var grids [SlabSize]sliceHeights
	used := [SlabSize]bool{}

	for _, e := range vs.entries {
		if e.Z == bottomSlice {
			continue
		}
		h := e.Height
		if above != nil {
			remaining := uint8(topSlice - e.Z)
			if h > remaining {
				h += above.BelowAt(SliceBlock{X: e.X, Y: e.Y})
			}
		}
		h = navHeight(h)
		if h == 0 {
			continue
		}
		grids[e.Z][SliceBlock{X: e.X, Y: e.Y}.Index()] = h
		used[e.Z] = true
	}

	var areas []SlabArea
	for z := 1; z < SlabSize; z++ {
		if used[z] {
			areas = makeMesh(LocalSliceIndex(z), &grids[z], areas)
		}
	}
	return areas
}

// DiscoverBottomAreas строит зоны нижнего среза: опора под ним лежит в верхнем
// срезе слэба снизу, поэтому без него зон нет
func DiscoverBottomAreas(vs *SlabVerticalSpace, below *SlabVerticalSpace) []SlabArea {
	if below == nil {
		return nil
	}
	var grid sliceHeights
	used := false
	for _, e := range vs.entries {
		if e.Z != bottomSlice {
			continue
		}
		b := SliceBlock{X: e.X, Y: e.Y}
		if below.AboveAt(b) != 0 {
			continue
		}
		if h := navHeight(e.Height); h > 0 {
			grid[b.Index()] = h
			used = true
		}
	}
	if !used {
		return nil
	}
	return makeMesh(bottomSlice, &grid, nil)
}

// SortAreas упорядочивает зоны по (срез, номер)
func SortAreas(areas []SlabArea) {
	sort.Slice(areas, func(i, j int) bool {
		if areas[i].Slice != areas[j].Slice {
			return areas[i].Slice < areas[j].Slice
		}
		return areas[i].Index < areas[j].Index
	})
}

// makeMesh жадно разбивает срез на прямоугольники одинаковой высоты
func makeMesh(slice LocalSliceIndex, grid *sliceHeights, out []SlabArea) []SlabArea {
	var visited [SliceSize]bool
	var next SliceAreaIndex

	at := func(x, y int) int { return x | y<<ChunkSizeShift }

	for y0 := 0; y0 < ChunkSize; y0++ {
		for x0 := 0; x0 < ChunkSize; x0++ {
			h := grid[at(x0, y0)]
			if h == 0 || visited[at(x0, y0)] {
				continue
			}

			x1 := x0
			for x1+1 < ChunkSize && grid[at(x1+1, y0)] == h && !visited[at(x1+1, y0)] {
				x1++
			}

			y1 := y0
		rows:
			for y1+1 < ChunkSize {
				ny := y1 + 1
				for x := x0; x <= x1; x++ {
					if grid[at(x, ny)] == h && !visited[at(x, ny)] {
						continue
					}
					if x > x0 {
						// строка совпала частично: берём её, сузив прямоугольник
						x1 = x - 1
						y1 = ny
					}
					break rows
				}
				y1 = ny
			}

			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					visited[at(x, y)] = true
				}
			}

			out = append(out, SlabArea{
				Slice: slice,
				Index: next,
				Area: SliceArea{
					From:   SliceBlock{X: uint8(x0), Y: uint8(y0)},
					To:     SliceBlock{X: uint8(x1), Y: uint8(y1)},
					Height: h,
				},
			})
			next++
		}
	}
	return out
}
