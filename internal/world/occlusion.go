package world

import (
	"sort"
)

// OcclusionOpacity непрозрачность соседнего блока с точки зрения затенения
type OcclusionOpacity uint8

const (
	OcclusionUnknown OcclusionOpacity = iota
	OcclusionTransparent
	OcclusionSolid
)

// Соседи грани в её плоскости (u, v)
const (
	NeighbourS = iota
	NeighbourSE
	NeighbourE
	NeighbourNE
	NeighbourN
	NeighbourNW
	NeighbourW
	NeighbourSW
)

var faceNeighbourOffsets = [8][2]int32{
	{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// FaceOcclusion непрозрачности восьми соседей грани, по 2 бита на соседа
type FaceOcclusion uint16

// Get непрозрачность соседа n (NeighbourS..NeighbourSW)
func (f FaceOcclusion) Get(n int) OcclusionOpacity {
	return OcclusionOpacity((f >> (2 * n)) & 0b11)
}

func (f FaceOcclusion) with(n int, o OcclusionOpacity) FaceOcclusion {
	f &^= 0b11 << (2 * n)
	return f | FaceOcclusion(o)<<(2*n)
}

// HasSolid есть ли среди соседей твёрдый блок
func (f FaceOcclusion) HasSolid() bool {
	for n := 0; n < 8; n++ {
		if f.Get(n) == OcclusionSolid {
			return true
		}
	}
	return false
}

// VertexOcclusion степень затенения вершины грани
type VertexOcclusion uint8

const (
	VertexNotAtAll VertexOcclusion = iota
	VertexMildly
	VertexMostly
	VertexFull
)

// Vertex затенение угла грани: 0 (-u,-v), 1 (+u,-v), 2 (+u,+v), 3 (-u,+v)
func (f FaceOcclusion) Vertex(corner int) VertexOcclusion {
	var side1, diag, side2 int
	switch corner & 3 {
	case 0:
		side1, diag, side2 = NeighbourS, NeighbourSW, NeighbourW
	case 1:
		side1, diag, side2 = NeighbourS, NeighbourSE, NeighbourE
	case 2:
		side1, diag, side2 = NeighbourN, NeighbourNE, NeighbourE
	default:
		side1, diag, side2 = NeighbourN, NeighbourNW, NeighbourW
	}
	s1 := f.Get(side1) == OcclusionSolid
	s2 := f.Get(side2) == OcclusionSolid
	if s1 && s2 {
		return VertexFull
	}
	n := 0
	for _, solid := range []bool{s1, s2, f.Get(diag) == OcclusionSolid} {
		if solid {
			n++
		}
	}
	return VertexOcclusion(n)
}

// BlockOcclusion затенение всех шести граней блока
type BlockOcclusion struct {
	Faces   [6]FaceOcclusion
	visible uint8
}

// Face затенение грани f
func (b BlockOcclusion) Face(f Face) FaceOcclusion {
	return b.Faces[f]
}

// FaceVisible видна ли грань (соседний по нормали блок известен и прозрачен)
func (b BlockOcclusion) FaceVisible(f Face) bool {
	return b.visible&(1<<f) != 0
}

// AnyVisible есть ли хотя бы одна видимая грань
func (b BlockOcclusion) AnyVisible() bool {
	return b.visible != 0
}

// BlockLookup возвращает блок со смещением относительно точки отсчёта и
// признак того, что он известен
type BlockLookup func(x, y, z int32) (Block, bool)

func faceAxes(f Face) (u, v [3]int32) {
	switch f {
	case FaceTop, FaceBottom:
		return [3]int32{1, 0, 0}, [3]int32{0, 1, 0}
	case FaceNorth, FaceSouth:
		return [3]int32{1, 0, 0}, [3]int32{0, 0, 1}
	default:
		return [3]int32{0, 1, 0}, [3]int32{0, 0, 1}
	}
}

func opacityOf(b Block, known bool) OcclusionOpacity {
	switch {
	case !known:
		return OcclusionUnknown
	case b.IsSolid():
		return OcclusionSolid
	default:
		return OcclusionTransparent
	}
}

// ComputeBlockOcclusion вычисляет затенение блока в точке (x, y, z)
func ComputeBlockOcclusion(lookup BlockLookup, x, y, z int32) BlockOcclusion {
	var out BlockOcclusion
	for _, f := range Faces {
		nx, ny, nz := f.Offset()
		cx, cy, cz := x+nx, y+ny, z+nz
		if b, ok := lookup(cx, cy, cz); ok && !b.IsSolid() {
			out.visible |= 1 << f
		}

		u, v := faceAxes(f)
		var fo FaceOcclusion
		for n, off := range faceNeighbourOffsets {
			du, dv := off[0], off[1]
			b, ok := lookup(cx+du*u[0]+dv*v[0], cy+du*u[1]+dv*v[1], cz+du*u[2]+dv*v[2])
			fo = fo.with(n, opacityOf(b, ok))
		}
		out.Faces[f] = fo
	}
	return out
}

// SlabNeighbourhood снимки слэба и его 26 соседей. Отсутствующий сосед
// означает неизвестные блоки.
type SlabNeighbourhood struct {
	slabs [27]SlabHandle
}

func neighbourhoodIndex(dx, dy, dz int32) int {
	return int((dx + 1) + (dy+1)*3 + (dz+1)*9)
}

// NewSlabNeighbourhood окрестность с известным только центральным слэбом
func NewSlabNeighbourhood(centre SlabHandle) *SlabNeighbourhood {
	n := &SlabNeighbourhood{}
	n.slabs[neighbourhoodIndex(0, 0, 0)] = centre
	return n
}

// Set задаёт соседа со смещением (dx, dy, dz) в слэбах
func (n *SlabNeighbourhood) Set(dx, dy, dz int32, h SlabHandle) {
	n.slabs[neighbourhoodIndex(dx, dy, dz)] = h
}

// Centre центральный слэб
func (n *SlabNeighbourhood) Centre() SlabHandle {
	return n.slabs[neighbourhoodIndex(0, 0, 0)]
}

func floorDivStep(v, size int32) (int32, int32) {
	switch {
	case v < 0:
		return -1, v + size
	case v >= size:
		return 1, v - size
	default:
		return 0, v
	}
}

// Block блок в локальных координатах центрального слэба (допускается выход на один слэб)
func (n *SlabNeighbourhood) Block(x, y, z int32) (Block, bool) {
	if x < -ChunkSize || x >= 2*ChunkSize || y < -ChunkSize || y >= 2*ChunkSize || z < -SlabSize || z >= 2*SlabSize {
		return Block{}, false
	}
	dx, lx := floorDivStep(x, ChunkSize)
	dy, ly := floorDivStep(y, ChunkSize)
	dz, lz := floorDivStep(z, SlabSize)
	h := n.slabs[neighbourhoodIndex(dx, dy, dz)]
	if !h.Valid() {
		return Block{}, false
	}
	return h.Block(SlabPosition{X: uint8(lx), Y: uint8(ly), Z: uint8(lz)}), true
}

// SlabOcclusion разреженное затенение: хранится только для твёрдых блоков
// с хотя бы одной видимой гранью. Неизменяемо после построения.
type SlabOcclusion struct {
	blocks map[uint16]BlockOcclusion
}

var emptySlabOcclusion = &SlabOcclusion{blocks: map[uint16]BlockOcclusion{}}

// Get затенение блока, false если блок не хранится
func (o *SlabOcclusion) Get(p SlabPosition) (BlockOcclusion, bool) {
	if o == nil {
		return BlockOcclusion{}, false
	}
	b, ok := o.blocks[uint16(p.Index())]
	return b, ok
}

// Len число хранимых блоков
func (o *SlabOcclusion) Len() int {
	if o == nil {
		return 0
	}
	return len(o.blocks)
}

func (o *SlabOcclusion) store(i int, lookup BlockLookup) {
	p := SlabPositionFromIndex(i)
	occ := ComputeBlockOcclusion(lookup, int32(p.X), int32(p.Y), int32(p.Z))
	if occ.AnyVisible() {
		o.blocks[uint16(i)] = occ
	} else {
		delete(o.blocks, uint16(i))
	}
}

// DiscoverOcclusion внутренняя фаза: затенение по блокам самой окрестности
// (обычно известен только центральный слэб)
func DiscoverOcclusion(n *SlabNeighbourhood) *SlabOcclusion {
	centre := n.Centre()
	if centre.IsAllAir() {
		return emptySlabOcclusion
	}
	out := &SlabOcclusion{blocks: make(map[uint16]BlockOcclusion)}
	for i := 0; i < SlabVolume; i++ {
		if centre.blockAt(i).IsSolid() {
			out.store(i, n.Block)
		}
	}
	return out
}

// RefreshBorderOcclusion пересчитывает блоки на гранях слэба с учётом соседей.
// Возвращает новое затенение и признак изменения.
func RefreshBorderOcclusion(prev *SlabOcclusion, n *SlabNeighbourhood) (*SlabOcclusion, bool) {
	centre := n.Centre()
	out := &SlabOcclusion{blocks: make(map[uint16]BlockOcclusion, prev.Len())}
	if prev != nil {
		for k, v := range prev.blocks {
			out.blocks[k] = v
		}
	}

	changed := false
	for i := 0; i < SlabVolume; i++ {
		p := SlabPositionFromIndex(i)
		if !p.IsBorder() || !centre.blockAt(i).IsSolid() {
			continue
		}
		before, had := out.blocks[uint16(i)]
		out.store(i, n.Block)
		after, has := out.blocks[uint16(i)]
		if had != has || before != after {
			changed = true
		}
	}
	if !changed && prev != nil {
		return prev, false
	}
	return out, changed
}

// OcclusionAffectedNeighbours соседние слэбы (из 26), затенение которых
// зависит от изменённых позиций
func OcclusionAffectedNeighbours(loc SlabLocation, changed []SlabPosition) []SlabLocation {
	seen := make(map[SlabLocation]struct{})
	for _, p := range changed {
		xs := borderSteps(p.X, chunkMask)
		ys := borderSteps(p.Y, chunkMask)
		zs := borderSteps(p.Z, slabMask)
		for _, dx := range xs {
			for _, dy := range ys {
				for _, dz := range zs {
					if dx == 0 && dy == 0 && dz == 0 {
						continue
					}
					seen[loc.Offset(dx, dy, dz)] = struct{}{}
				}
			}
		}
	}

	out := make([]SlabLocation, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func borderSteps(v uint8, maxV uint8) []int32 {
	switch v {
	case 0:
		return []int32{0, -1}
	case maxV:
		return []int32{0, 1}
	default:
		return []int32{0}
	}
}
