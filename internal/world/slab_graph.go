package world

// EdgeCost вид перехода между зонами
type EdgeCost uint8

const (
	EdgeWalk EdgeCost = iota
	EdgeJumpUp
	EdgeJumpDown
)

// Weight стоимость перехода для поиска пути
func (c EdgeCost) Weight() float64 {
	switch c {
	case EdgeJumpUp:
		return 6
	case EdgeJumpDown:
		return 5
	default:
		return 1
	}
}

// Opposite стоимость того же перехода в обратную сторону
func (c EdgeCost) Opposite() EdgeCost {
	switch c {
	case EdgeJumpUp:
		return EdgeJumpDown
	case EdgeJumpDown:
		return EdgeJumpUp
	default:
		return EdgeWalk
	}
}

// ZOffset изменение высоты среза при переходе
func (c EdgeCost) ZOffset() int8 {
	switch c {
	case EdgeJumpUp:
		return 1
	case EdgeJumpDown:
		return -1
	default:
		return 0
	}
}

func (c EdgeCost) String() string {
	switch c {
	case EdgeJumpUp:
		return "jump-up"
	case EdgeJumpDown:
		return "jump-down"
	default:
		return "walk"
	}
}

// SlabNavEdge ребро между зонами одного слэба. Cost задан в направлении From -> To,
// обратный переход имеет стоимость Cost.Opposite().
type SlabNavEdge struct {
	From      SlabAreaKey
	To        SlabAreaKey
	Cost      EdgeCost
	Clearance uint8
}

// SlabNavGraph неориентированный граф зон внутри одного слэба.
// Всегда строится заново, на месте не изменяется.
type SlabNavGraph struct {
	nodes []SlabArea
	edges []SlabNavEdge
}

// DiscoverSlabNavGraph строит граф по списку зон, отсортированному SortAreas
func DiscoverSlabNavGraph(areas []SlabArea) *SlabNavGraph {
	g := &SlabNavGraph{nodes: areas}

	// границы срезов в отсортированном списке
	var start [SlabSize + 1]int
	for s := 0; s <= SlabSize; s++ {
		start[s] = len(areas)
	}
	for i := len(areas) - 1; i >= 0; i-- {
		start[areas[i].Slice] = i
	}
	for s := SlabSize - 1; s >= 0; s-- {
		if start[s] > start[s+1] {
			start[s] = start[s+1]
		}
	}

	for s := 0; s < SlabSize; s++ {
		same := areas[start[s]:start[s+1]]
		for i := range same {
			a := same[i]
			for j := i + 1; j < len(same); j++ {
				b := same[j]
				if a.Area.Touches(b.Area) {
					g.edges = append(g.edges, SlabNavEdge{
						From: a.Key(), To: b.Key(), Cost: EdgeWalk,
						Clearance: min(a.Area.Height, b.Area.Height),
					})
				}
			}

			if s+1 >= SlabSize {
				continue
			}
			for _, b := range areas[start[s+1]:start[s+2]] {
				if a.Area.Touches(b.Area) {
					g.edges = append(g.edges, SlabNavEdge{
						From: a.Key(), To: b.Key(), Cost: EdgeJumpUp,
						Clearance: min(a.Area.Height, b.Area.Height),
					})
				}
			}
		}
	}
	return g
}

// Nodes зоны графа (не изменять)
func (g *SlabNavGraph) Nodes() []SlabArea {
	return g.nodes
}

// Edges рёбра графа (не изменять)
func (g *SlabNavGraph) Edges() []SlabNavEdge {
	return g.edges
}

// Area ищет зону по ключу
func (g *SlabNavGraph) Area(key SlabAreaKey) (SlabArea, bool) {
	return findArea(g.nodes, key)
}

func findArea(areas []SlabArea, key SlabAreaKey) (SlabArea, bool) {
	lo, hi := 0, len(areas)
	for lo < hi {
		mid := (lo + hi) / 2
		k := areas[mid].Key()
		if k == key {
			return areas[mid], true
		}
		if k.Slice < key.Slice || (k.Slice == key.Slice && k.Index < key.Index) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return SlabArea{}, false
}
