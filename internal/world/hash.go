package world

import (
	"github.com/cespare/xxhash/v2"
)

// NeighbourAreaHash короткий отпечаток пограничных зон одной грани слэба
type NeighbourAreaHash uint64

// UnsetNeighbourHash отпечаток ещё не вычислялся. Вычисленные значения
// всегда нечётны и с ним не совпадают.
const UnsetNeighbourHash NeighbourAreaHash = 0

// NeighbourHashes отпечатки по всем граням в порядке Faces
type NeighbourHashes [6]NeighbourAreaHash

// UnsetNeighbourHashes набор для только что созданного слэба
func UnsetNeighbourHashes() NeighbourHashes {
	return NeighbourHashes{}
}

// IsBorderArea касается ли зона грани f
func IsBorderArea(a SlabArea, f Face) bool {
	switch f {
	case FaceNorth:
		return a.Area.To.Y == chunkMask
	case FaceSouth:
		return a.Area.From.Y == 0
	case FaceEast:
		return a.Area.To.X == chunkMask
	case FaceWest:
		return a.Area.From.X == 0
	case FaceTop:
		return a.Slice == topSlice
	default:
		return a.Slice == bottomSlice
	}
}

// BorderAreas выбирает зоны, касающиеся грани f
func BorderAreas(areas []SlabArea, f Face) []SlabArea {
	var out []SlabArea
	for _, a := range areas {
		if IsBorderArea(a, f) {
			out = append(out, a)
		}
	}
	return out
}

// HashBorderAreas вычисляет отпечаток пограничных зон грани
func HashBorderAreas(border []SlabArea, f Face) NeighbourAreaHash {
	d := xxhash.New()
	buf := make([]byte, 0, 1+len(border)*8)
	buf = append(buf, byte(f))
	for _, a := range border {
		buf = append(buf,
			byte(a.Slice),
			byte(a.Index), byte(a.Index>>8),
			a.Area.From.X, a.Area.From.Y,
			a.Area.To.X, a.Area.To.Y,
			a.Area.Height,
		)
	}
	_, _ = d.Write(buf)
	return NeighbourAreaHash(d.Sum64() | 1)
}

// HashFace отпечаток грани по полному списку зон слэба
func HashFace(areas []SlabArea, f Face) NeighbourAreaHash {
	return HashBorderAreas(BorderAreas(areas, f), f)
}
