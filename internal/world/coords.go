package world

import (
	"fmt"

	"github.com/annel0/voxel-world/internal/vec"
)

// ChunkLocation координаты чанка (столбца слэбов) в мире
type ChunkLocation struct {
	X, Y int32
}

// SlabIndex номер слэба внутри чанка по вертикали
type SlabIndex int32

// SlabLocation глобальный адрес слэба
type SlabLocation struct {
	Chunk ChunkLocation
	Slab  SlabIndex
}

// LocalSliceIndex номер среза внутри слэба (0..SlabSize-1)
type LocalSliceIndex uint8

// GlobalSliceIndex абсолютная координата Z среза
type GlobalSliceIndex int32

// SliceBlock координаты блока внутри среза
type SliceBlock struct {
	X, Y uint8
}

// SlabPosition координаты блока внутри слэба
type SlabPosition struct {
	X, Y, Z uint8
}

// BlockPosition координаты блока внутри чанка с глобальной высотой
type BlockPosition struct {
	X, Y uint8
	Z    GlobalSliceIndex
}

// ChunkLocationOf возвращает чанк, содержащий мировую позицию
func ChunkLocationOf(p vec.Vec3) ChunkLocation {
	return ChunkLocation{X: p.X >> ChunkSizeShift, Y: p.Y >> ChunkSizeShift}
}

// SlabIndexOf возвращает номер слэба для мировой высоты
func SlabIndexOf(z int32) SlabIndex {
	return SlabIndex(z >> SlabSizeShift)
}

// SlabLocationOf возвращает слэб, содержащий мировую позицию
func SlabLocationOf(p vec.Vec3) SlabLocation {
	return SlabLocation{Chunk: ChunkLocationOf(p), Slab: SlabIndexOf(p.Z)}
}

// SlabPositionOf возвращает локальные координаты позиции внутри её слэба
func SlabPositionOf(p vec.Vec3) SlabPosition {
	return SlabPosition{X: uint8(p.X & chunkMask), Y: uint8(p.Y & chunkMask), Z: uint8(p.Z & slabMask)}
}

// BlockPositionOf возвращает координаты позиции внутри её чанка
func BlockPositionOf(p vec.Vec3) BlockPosition {
	return BlockPosition{X: uint8(p.X & chunkMask), Y: uint8(p.Y & chunkMask), Z: GlobalSliceIndex(p.Z)}
}

func (c ChunkLocation) Less(o ChunkLocation) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Y < o.Y
}

// Compare возвращает -1, 0 или 1 (для бинарного поиска)
func (c ChunkLocation) Compare(o ChunkLocation) int {
	switch {
	case c == o:
		return 0
	case c.Less(o):
		return -1
	default:
		return 1
	}
}

// Origin мировые координаты угла чанка
func (c ChunkLocation) Origin() vec.Vec2 {
	return vec.Vec2{X: c.X << ChunkSizeShift, Y: c.Y << ChunkSizeShift}
}

// Neighbour соседний чанк в горизонтальном направлении
func (c ChunkLocation) Neighbour(f Face) ChunkLocation {
	dx, dy, _ := f.Offset()
	return ChunkLocation{X: c.X + dx, Y: c.Y + dy}
}

func (c ChunkLocation) String() string {
	return fmt.Sprintf("[%d, %d]", c.X, c.Y)
}

// BaseZ мировая высота нижнего среза слэба
func (s SlabIndex) BaseZ() int32 {
	return int32(s) << SlabSizeShift
}

// Slice переводит локальный срез в глобальный
func (s SlabIndex) Slice(local LocalSliceIndex) GlobalSliceIndex {
	return GlobalSliceIndex(s.BaseZ() + int32(local))
}

// Less порядок (чанк, слэб), в котором ожидаются запросы загрузки
func (l SlabLocation) Less(o SlabLocation) bool {
	if l.Chunk != o.Chunk {
		return l.Chunk.Less(o.Chunk)
	}
	return l.Slab < o.Slab
}

func (l SlabLocation) Above() SlabLocation {
	return SlabLocation{Chunk: l.Chunk, Slab: l.Slab + 1}
}

func (l SlabLocation) Below() SlabLocation {
	return SlabLocation{Chunk: l.Chunk, Slab: l.Slab - 1}
}

// Neighbour соседний по грани слэб
func (l SlabLocation) Neighbour(f Face) SlabLocation {
	dx, dy, dz := f.Offset()
	return SlabLocation{Chunk: ChunkLocation{X: l.Chunk.X + dx, Y: l.Chunk.Y + dy}, Slab: l.Slab + SlabIndex(dz)}
}

// Offset слэб со смещением по всем трём осям
func (l SlabLocation) Offset(dx, dy, dz int32) SlabLocation {
	return SlabLocation{Chunk: ChunkLocation{X: l.Chunk.X + dx, Y: l.Chunk.Y + dy}, Slab: l.Slab + SlabIndex(dz)}
}

// Origin мировая позиция блока (0,0,0) слэба
func (l SlabLocation) Origin() vec.Vec3 {
	o := l.Chunk.Origin()
	return vec.Vec3{X: o.X, Y: o.Y, Z: l.Slab.BaseZ()}
}

// ToWorld переводит локальную позицию слэба в мировую
func (l SlabLocation) ToWorld(p SlabPosition) vec.Vec3 {
	o := l.Origin()
	return vec.Vec3{X: o.X + int32(p.X), Y: o.Y + int32(p.Y), Z: o.Z + int32(p.Z)}
}

func (l SlabLocation) String() string {
	return fmt.Sprintf("%s#%d", l.Chunk, l.Slab)
}

// Index линейный индекс блока в массиве слэба
func (p SlabPosition) Index() int {
	return int(p.X) | int(p.Y)<<ChunkSizeShift | int(p.Z)<<(2*ChunkSizeShift)
}

// SlabPositionFromIndex обратное преобразование к Index
func SlabPositionFromIndex(i int) SlabPosition {
	return SlabPosition{X: uint8(i & chunkMask), Y: uint8((i >> ChunkSizeShift) & chunkMask), Z: uint8(i >> (2 * ChunkSizeShift))}
}

func (p SlabPosition) SliceBlock() SliceBlock {
	return SliceBlock{X: p.X, Y: p.Y}
}

// IsBorder лежит ли позиция на любой грани слэба
func (p SlabPosition) IsBorder() bool {
	return p.X == 0 || p.Y == 0 || p.Z == 0 || p.X == chunkMask || p.Y == chunkMask || p.Z == slabMask
}

// Index линейный индекс блока в срезе
func (b SliceBlock) Index() int {
	return int(b.X) | int(b.Y)<<ChunkSizeShift
}

// SliceBlockFromIndex обратное преобразование к Index
func SliceBlockFromIndex(i int) SliceBlock {
	return SliceBlock{X: uint8(i & chunkMask), Y: uint8(i >> ChunkSizeShift)}
}

// At позиция блока среза на заданной высоте слэба
func (b SliceBlock) At(z LocalSliceIndex) SlabPosition {
	return SlabPosition{X: b.X, Y: b.Y, Z: uint8(z)}
}

// ToWorld переводит позицию внутри чанка в мировую
func (p BlockPosition) ToWorld(c ChunkLocation) vec.Vec3 {
	o := c.Origin()
	return vec.Vec3{X: o.X + int32(p.X), Y: o.Y + int32(p.Y), Z: int32(p.Z)}
}

// Face одна из шести граней (слэба или блока)
type Face uint8

const (
	FaceNorth  Face = iota // +Y
	FaceEast               // +X
	FaceSouth              // -Y
	FaceWest               // -X
	FaceTop                // +Z
	FaceBottom             // -Z
)

// Faces все грани в порядке хранения хешей соседей
var Faces = [6]Face{FaceNorth, FaceEast, FaceSouth, FaceWest, FaceTop, FaceBottom}

// HorizontalFaces боковые грани
var HorizontalFaces = [4]Face{FaceNorth, FaceEast, FaceSouth, FaceWest}

func (f Face) Opposite() Face {
	switch f {
	case FaceNorth:
		return FaceSouth
	case FaceEast:
		return FaceWest
	case FaceSouth:
		return FaceNorth
	case FaceWest:
		return FaceEast
	case FaceTop:
		return FaceBottom
	default:
		return FaceTop
	}
}

// Offset единичный вектор нормали грани
func (f Face) Offset() (dx, dy, dz int32) {
	switch f {
	case FaceNorth:
		return 0, 1, 0
	case FaceEast:
		return 1, 0, 0
	case FaceSouth:
		return 0, -1, 0
	case FaceWest:
		return -1, 0, 0
	case FaceTop:
		return 0, 0, 1
	default:
		return 0, 0, -1
	}
}

func (f Face) IsHorizontal() bool {
	return f < FaceTop
}

func (f Face) String() string {
	switch f {
	case FaceNorth:
		return "north"
	case FaceEast:
		return "east"
	case FaceSouth:
		return "south"
	case FaceWest:
		return "west"
	case FaceTop:
		return "top"
	case FaceBottom:
		return "bottom"
	default:
		return fmt.Sprintf("face(%d)", uint8(f))
	}
}
