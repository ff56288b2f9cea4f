package world

import (
	"sort"
)

// VerticalSpaceEntry свободная высота над твёрдым блоком: Z это первый
// воздушный срез над опорой, Height число воздушных блоков (не больше MaxFreeHeight)
type VerticalSpaceEntry struct {
	X, Y   uint8
	Z      LocalSliceIndex
	Height uint8
}

// Position локальная позиция первого воздушного блока
func (e VerticalSpaceEntry) Position() SlabPosition {
	return SlabPosition{X: e.X, Y: e.Y, Z: uint8(e.Z)}
}

func (e VerticalSpaceEntry) less(x, y uint8, z LocalSliceIndex) bool {
	if e.X != x {
		return e.X < x
	}
	if e.Y != y {
		return e.Y < y
	}
	return e.Z < z
}

// SlabVerticalSpace таблица свободного пространства по столбцам слэба.
// Неизменяема после построения.
type SlabVerticalSpace struct {
	entries      []VerticalSpaceEntry // отсортированы по (x, y, z)
	topDown      [SliceSize]uint8
	bottomSolids [SliceSize]bool
}

var emptyVerticalSpace = func() *SlabVerticalSpace {
	vs := &SlabVerticalSpace{entries: make([]VerticalSpaceEntry, 0, SliceSize)}
	for x := 0; x < ChunkSize; x++ {
		for y := 0; y < ChunkSize; y++ {
			vs.entries = append(vs.entries, VerticalSpaceEntry{X: uint8(x), Y: uint8(y), Z: 0, Height: MaxFreeHeight})
		}
	}
	for i := range vs.topDown {
		vs.topDown[i] = MaxFreeHeight
	}
	return vs
}()

// EmptyVerticalSpace общий экземпляр для полностью пустого слэба
func EmptyVerticalSpace() *SlabVerticalSpace {
	return emptyVerticalSpace
}

type columnState struct {
	firstAir LocalSliceIndex
	height   uint8
}

// DiscoverVerticalSpace строит таблицу за один проход по срезам снизу вверх
func DiscoverVerticalSpace(slab SlabHandle) *SlabVerticalSpace {
	if slab.IsAllAir() {
		return emptyVerticalSpace
	}

	vs := &SlabVerticalSpace{}
	var state [SliceSize]columnState

	emit := func(i int, st columnState) {
		sb := SliceBlockFromIndex(i)
		vs.entries = append(vs.entries, VerticalSpaceEntry{
			X: sb.X, Y: sb.Y, Z: st.firstAir, Height: min(st.height, MaxFreeHeight),
		})
	}

	for z := 0; z < SlabSize; z++ {
		base := z * SliceSize
		for i := 0; i < SliceSize; i++ {
			st := &state[i]
			if !slab.blockAt(base + i).IsSolid() {
				if st.height == 0 {
					st.firstAir = LocalSliceIndex(z)
				}
				if st.height < 255 {
					st.height++
				}
				continue
			}

			if st.height > 0 {
				emit(i, *st)
			}
			*st = columnState{}
			if z == 0 {
				vs.bottomSolids[i] = true
			}
		}
	}

	for i := range state {
		st := state[i]
		if st.height > 0 {
			emit(i, st)
		}
		vs.topDown[i] = min(st.height, MaxFreeHeight)
	}

	sort.Slice(vs.entries, func(a, b int) bool {
		eb := vs.entries[b]
		return vs.entries[a].less(eb.X, eb.Y, eb.Z)
	})
	return vs
}

// Entries все записи, отсортированные по (x, y, z)
func (vs *SlabVerticalSpace) Entries() []VerticalSpaceEntry {
	return vs.entries
}

// AboveAt свободная высота от верха слэба вниз (то, что видит слэб сверху)
func (vs *SlabVerticalSpace) AboveAt(b SliceBlock) uint8 {
	return vs.topDown[b.Index()]
}

// BelowAt свободная высота над низом слэба (то, что видит слэб снизу)
func (vs *SlabVerticalSpace) BelowAt(b SliceBlock) uint8 {
	if h, ok := vs.FindBlockExact(SlabPosition{X: b.X, Y: b.Y, Z: 0}); ok {
		return h
	}
	if vs.bottomSolids[b.Index()] {
		return 0
	}
	return MaxFreeHeight
}

// IsBottomSolid твёрдый ли нижний блок столбца
func (vs *SlabVerticalSpace) IsBottomSolid(b SliceBlock) bool {
	return vs.bottomSolids[b.Index()]
}

// FindBlockExact ищет запись, начинающуюся ровно в позиции p
func (vs *SlabVerticalSpace) FindBlockExact(p SlabPosition) (uint8, bool) {
	z := LocalSliceIndex(p.Z)
	i := sort.Search(len(vs.entries), func(i int) bool {
		return !vs.entries[i].less(p.X, p.Y, z)
	})
	if i < len(vs.entries) {
		e := vs.entries[i]
		if e.X == p.X && e.Y == p.Y && e.Z == z {
			return e.Height, true
		}
	}
	return 0, false
}

// FindSlice ищет запись столбца, свободное пространство которой содержит p
// (ближайшая запись не выше p, у которой p.Z < Z + Height)
func (vs *SlabVerticalSpace) FindSlice(p SlabPosition) (VerticalSpaceEntry, bool) {
	z := LocalSliceIndex(p.Z)
	// первая запись строго после (x, y, z)
	i := sort.Search(len(vs.entries), func(i int) bool {
		e := vs.entries[i]
		return !e.less(p.X, p.Y, z) && !(e.X == p.X && e.Y == p.Y && e.Z == z)
	})
	if i == 0 {
		return VerticalSpaceEntry{}, false
	}
	e := vs.entries[i-1]
	if e.X != p.X || e.Y != p.Y {
		return VerticalSpaceEntry{}, false
	}
	if int(p.Z) < int(e.Z)+int(e.Height) {
		return e, true
	}
	return VerticalSpaceEntry{}, false
}

// Column записи одного столбца снизу вверх
func (vs *SlabVerticalSpace) Column(b SliceBlock) []VerticalSpaceEntry {
	lo := sort.Search(len(vs.entries), func(i int) bool {
		return !vs.entries[i].less(b.X, b.Y, 0)
	})
	hi := lo
	for hi < len(vs.entries) && vs.entries[hi].X == b.X && vs.entries[hi].Y == b.Y {
		hi++
	}
	return vs.entries[lo:hi]
}
