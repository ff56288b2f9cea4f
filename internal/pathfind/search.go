package pathfind

import (
	"container/heap"
	"slices"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
)

// request параметры одного поиска
type request struct {
	from        vec.Vec3
	to          vec.Vec3
	goal        Goal
	requirement uint8
}

// route маршрут по зонам с прямоугольниками каждой зоны
type route struct {
	steps  []AreaStep
	infos  []world.SlabArea
	target vec.Vec3
}

// areaBox прямоугольник зоны в мировых координатах на уровне ног агента
type areaBox struct {
	lo, hi vec.Vec3
}

func boxOf(area world.WorldArea, info world.SlabArea) areaBox {
	o := area.SlabLocation().Origin()
	z := int32(area.GlobalSlice())
	return areaBox{
		lo: vec.Vec3{X: o.X + int32(info.Area.From.X), Y: o.Y + int32(info.Area.From.Y), Z: z},
		hi: vec.Vec3{X: o.X + int32(info.Area.To.X), Y: o.Y + int32(info.Area.To.Y), Z: z},
	}
}

// closest ближайшая к p клетка прямоугольника
func (b areaBox) closest(p vec.Vec3) vec.Vec3 {
	return vec.Vec3{X: clamp(p.X, b.lo.X, b.hi.X), Y: clamp(p.Y, b.lo.Y, b.hi.Y), Z: b.lo.Z}
}

// remainingCost нижняя оценка стоимости пути от зоны до цели. Зона лежит в
// одном чанке, поэтому каждый переход (не дешевле 1) приближает ближайшую к
// цели клетку не больше чем на 2*ChunkSize. Цель засчитывается, когда до неё
// не больше r по каждой оси.
func remainingCost(b areaBox, to vec.Vec3, r int32) float64 {
	d := b.closest(to).ManhattanTo(to) - 3*r
	return float64(max(d, 0)) / (2 * world.ChunkSize)
}

func clamp(v, lo, hi int32) int32 {
	return max(lo, min(v, hi))
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// isLoading слэб запрошен, но ещё не готов
func isLoading(w *world.World, loc world.SlabLocation) bool {
	st := w.SlabState(loc)
	return st != world.Done && st != world.NotRequested
}

// resolve находит зону, в которой стоит агент. Если зоны нет, потому что
// слэб ещё загружается, возвращается StaleSlabsError.
func resolve(w *world.World, pos vec.Vec3, requirement uint8, notWalkable error) (world.WorldArea, world.SlabArea, error) {
	area, ok := w.FindAreaForBlock(pos, requirement)
	if !ok {
		if loc := world.SlabLocationOf(pos); isLoading(w, loc) {
			return world.WorldArea{}, world.SlabArea{}, &StaleSlabsError{Slabs: []world.SlabLocation{loc}}
		}
		return world.WorldArea{}, world.SlabArea{}, notWalkable
	}
	info, ok := w.AreaInfo(area)
	if !ok || !w.Graph().Contains(area) {
		return world.WorldArea{}, world.SlabArea{}, &world.InvalidAreaError{Area: area}
	}
	return area, info, nil
}

// search одна попытка A* по графу зон. Вызывается под блокировкой чтения.
// Слэбы, изменённые после since, прерывают поиск.
func search(w *world.World, req request, since uint64) (*route, error) {
	src, srcInfo, err := resolve(w, req.from, req.requirement,
		&world.SourceNotWalkableError{Pos: req.from, Height: req.requirement})
	if err != nil {
		return nil, err
	}

	var dst world.WorldArea
	if req.goal.Kind != GoalAdjacent {
		dst, _, err = resolve(w, req.to, req.requirement,
			&world.DestinationNotWalkableError{Pos: req.to, Height: req.requirement})
		if err != nil {
			return nil, err
		}
	}

	r := req.goal.radius()
	isGoal := func(area world.WorldArea, info world.SlabArea) (vec.Vec3, bool) {
		if req.goal.Kind == GoalArrive {
			return req.to, area == dst
		}
		p := boxOf(area, info).closest(req.to)
		ok := abs32(p.X-req.to.X) <= r && abs32(p.Y-req.to.Y) <= r && abs32(p.Z-req.to.Z) <= r
		return p, ok
	}
	heuristic := func(area world.WorldArea, info world.SlabArea) float64 {
		return remainingCost(boxOf(area, info), req.to, r)
	}

	stale := make(map[world.SlabLocation]bool)
	var changed []world.SlabLocation
	isStale := func(loc world.SlabLocation) bool {
		s, ok := stale[loc]
		if !ok {
			s = w.IsSlabStale(loc, since)
			stale[loc] = s
			if s {
				changed = append(changed, loc)
			}
		}
		return s
	}
	staleError := func() error {
		slices.SortFunc(changed, func(a, b world.SlabLocation) int {
			if c := a.Chunk.Compare(b.Chunk); c != 0 {
				return c
			}
			return int(a.Slab) - int(b.Slab)
		})
		return &StaleSlabsError{Slabs: changed}
	}

	if isStale(src.SlabLocation()) {
		return nil, staleError()
	}

	start := &searchNode{area: src, info: srcInfo, f: heuristic(src, srcInfo)}
	nodes := map[world.WorldArea]*searchNode{src: start}
	open := &nodeHeap{}
	heap.Push(open, start)

	for open.Len() > 0 {
		current := heap.Pop(open).(*searchNode)
		if p, ok := isGoal(current.area, current.info); ok {
			rt := buildRoute(current, p)
			for _, s := range rt.steps {
				isStale(s.Area.SlabLocation())
			}
			if len(changed) > 0 {
				return nil, staleError()
			}
			return rt, nil
		}
		current.closed = true

		w.Graph().ForEachNeighbour(current.area, func(e world.GraphEdge) {
			if e.Clearance < req.requirement {
				return
			}
			if isStale(e.To.SlabLocation()) {
				return
			}
			next, seen := nodes[e.To]
			if seen && next.closed {
				return
			}
			g := current.g + e.Cost.Weight()
			if !seen {
				info, ok := w.AreaInfo(e.To)
				if !ok {
					return
				}
				next = &searchNode{area: e.To, info: info, g: g, parent: current, entry: e}
				next.f = g + heuristic(e.To, info)
				nodes[e.To] = next
				heap.Push(open, next)
				return
			}
			if g < next.g {
				next.f += g - next.g
				next.g = g
				next.parent = current
				next.entry = e
				heap.Fix(open, next.index)
			}
		})
		if len(changed) > 0 {
			return nil, staleError()
		}
	}
	return nil, ErrNoPath
}

func buildRoute(last *searchNode, target vec.Vec3) *route {
	var chain []*searchNode
	for n := last; n != nil; n = n.parent {
		chain = append(chain, n)
	}
	slices.Reverse(chain)

	rt := &route{
		steps:  make([]AreaStep, len(chain)),
		infos:  make([]world.SlabArea, len(chain)),
		target: target,
	}
	for i, n := range chain {
		rt.steps[i].Area = n.area
		rt.infos[i] = n.info
		if i+1 < len(chain) {
			exit := chain[i+1].entry
			rt.steps[i].Exit = &exit
		}
	}
	return rt
}

// reachableAreas зоны, достижимые из src агентом с заданной высотой
func reachableAreas(w *world.World, src world.WorldArea, requirement uint8) map[world.WorldArea]struct{} {
	seen := map[world.WorldArea]struct{}{src: {}}
	queue := []world.WorldArea{src}
	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]
		w.Graph().ForEachNeighbour(a, func(e world.GraphEdge) {
			if e.Clearance < requirement {
				return
			}
			if _, ok := seen[e.To]; ok {
				return
			}
			seen[e.To] = struct{}{}
			queue = append(queue, e.To)
		})
	}
	return seen
}
