package world

// InterSlabEdge ребро между зонами соседних слэбов, Cost задан в направлении From -> To
type InterSlabEdge struct {
	From      WorldArea
	To        WorldArea
	Cost      EdgeCost
	Clearance uint8
}

// LinkFace строит рёбра между пограничными зонами слэба us на грани f и
// пограничными зонами соседа them на противоположной грани. Зоны, не
// выходящие на грань, пропускаются.
func LinkFace(us SlabLocation, ours []SlabArea, f Face, them SlabLocation, theirs []SlabArea) []InterSlabEdge {
	var edges []InterSlabEdge
	for _, a := range ours {
		for _, b := range theirs {
			cost, ok := linkCost(a, f, b)
			if !ok {
				continue
			}
			edges = append(edges, InterSlabEdge{
				From:      NewWorldArea(us, a.Key()),
				To:        NewWorldArea(them, b.Key()),
				Cost:      cost,
				Clearance: min(a.Area.Height, b.Area.Height),
			})
		}
	}
	return edges
}

func linkCost(a SlabArea, f Face, b SlabArea) (EdgeCost, bool) {
	switch f {
	case FaceTop:
		if a.Slice == topSlice && b.Slice == bottomSlice && a.Area.Touches(b.Area) {
			return EdgeJumpUp, true
		}
		return 0, false
	case FaceBottom:
		if a.Slice == bottomSlice && b.Slice == topSlice && a.Area.Touches(b.Area) {
			return EdgeJumpDown, true
		}
		return 0, false
	}

	if !IsBorderArea(a, f) || !IsBorderArea(b, f.Opposite()) {
		return 0, false
	}

	var overlap bool
	if f == FaceNorth || f == FaceSouth {
		overlap = a.Area.From.X <= b.Area.To.X && b.Area.From.X <= a.Area.To.X
	} else {
		overlap = a.Area.From.Y <= b.Area.To.Y && b.Area.From.Y <= a.Area.To.Y
	}
	if !overlap {
		return 0, false
	}

	switch int(b.Slice) - int(a.Slice) {
	case 0:
		return EdgeWalk, true
	case 1:
		return EdgeJumpUp, true
	case -1:
		return EdgeJumpDown, true
	default:
		return 0, false
	}
}
