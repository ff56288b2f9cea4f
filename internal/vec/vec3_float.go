package vec

import "math"

// Vec3Float представляет трехмерный вектор с плавающими координатами
type Vec3Float struct {
	X float64
	Y float64
	Z float64
}

// FromVec3 создает Vec3Float из Vec3
func FromVec3(v Vec3) Vec3Float {
	return Vec3Float{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// Floor округляет координаты вниз до позиции блока
func (v Vec3Float) Floor() Vec3 {
	return Vec3{X: int32(math.Floor(v.X)), Y: int32(math.Floor(v.Y)), Z: int32(math.Floor(v.Z))}
}

// ManhattanTo манхэттенское расстояние (используется эвристикой A*)
func (v Vec3Float) ManhattanTo(other Vec3Float) float64 {
	return math.Abs(v.X-other.X) + math.Abs(v.Y-other.Y) + math.Abs(v.Z-other.Z)
}
