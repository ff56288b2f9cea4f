package pathfind

import (
	"fmt"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
)

// crossing пара соседних клеток, через которую маршрут переходит из зоны a
// в зону b. Из возможных выбирается ближайшая к near.
func crossing(a, b areaBox, near vec.Vec3) (exit, entry vec.Vec3, ok bool) {
	exit.Z, entry.Z = a.lo.Z, b.lo.Z

	if ylo, yhi := max(a.lo.Y, b.lo.Y), min(a.hi.Y, b.hi.Y); ylo <= yhi {
		y := clamp(near.Y, ylo, yhi)
		switch {
		case a.hi.X+1 == b.lo.X:
			exit.X, entry.X = a.hi.X, b.lo.X
			exit.Y, entry.Y = y, y
			return exit, entry, true
		case b.hi.X+1 == a.lo.X:
			exit.X, entry.X = a.lo.X, b.hi.X
			exit.Y, entry.Y = y, y
			return exit, entry, true
		}
	}

	if xlo, xhi := max(a.lo.X, b.lo.X), min(a.hi.X, b.hi.X); xlo <= xhi {
		x := clamp(near.X, xlo, xhi)
		switch {
		case a.hi.Y+1 == b.lo.Y:
			exit.Y, entry.Y = a.hi.Y, b.lo.Y
			exit.X, entry.X = x, x
			return exit, entry, true
		case b.hi.Y+1 == a.lo.Y:
			exit.Y, entry.Y = a.lo.Y, b.hi.Y
			exit.X, entry.X = x, x
			return exit, entry, true
		}
	}
	return exit, entry, false
}

// expand раскладывает маршрут по зонам в точки на уровне блоков. Зона
// прямоугольная и целиком проходимая, поэтому внутри неё достаточно идти
// по прямой от точки входа к точке выхода.
func expand(rt *route, from vec.Vec3) ([]Waypoint, error) {
	points := []Waypoint{{Pos: from, Exit: world.EdgeWalk}}
	push := func(p vec.Vec3) {
		if points[len(points)-1].Pos != p {
			points = append(points, Waypoint{Pos: p, Exit: world.EdgeWalk})
		}
	}

	cur := from
	for i := 0; i+1 < len(rt.steps); i++ {
		a := boxOf(rt.steps[i].Area, rt.infos[i])
		b := boxOf(rt.steps[i+1].Area, rt.infos[i+1])
		exit, entry, ok := crossing(a, b, cur)
		if !ok {
			return nil, fmt.Errorf("%s -> %s: %w", rt.steps[i].Area, rt.steps[i+1].Area, ErrNoCrossing)
		}
		push(exit)
		points[len(points)-1].Exit = rt.steps[i].Exit.Cost
		push(entry)
		cur = entry
	}
	push(rt.target)
	return points, nil
}
