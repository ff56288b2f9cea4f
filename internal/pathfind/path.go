package pathfind

import (
	"fmt"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
)

// GoalKind вид цели поиска
type GoalKind uint8

const (
	// GoalArrive прийти точно в целевой блок
	GoalArrive GoalKind = iota
	// GoalAdjacent оказаться не дальше блока от цели, сама цель может быть непроходимой
	GoalAdjacent
	// GoalNearby оказаться в радиусе от цели, цель должна быть проходимой
	GoalNearby
)

// Goal цель поиска
type Goal struct {
	Kind   GoalKind
	Radius uint8
}

var (
	Arrive   = Goal{Kind: GoalArrive}
	Adjacent = Goal{Kind: GoalAdjacent, Radius: 1}
)

// Nearby цель в радиусе r (по каждой оси)
func Nearby(r uint8) Goal {
	return Goal{Kind: GoalNearby, Radius: r}
}

func (g Goal) String() string {
	switch g.Kind {
	case GoalAdjacent:
		return "adjacent"
	case GoalNearby:
		return fmt.Sprintf("nearby(%d)", g.Radius)
	default:
		return "arrive"
	}
}

// radius допустимое отклонение от цели по каждой оси
func (g Goal) radius() int32 {
	if g.Kind == GoalArrive {
		return 0
	}
	return int32(g.Radius)
}

// AreaStep шаг маршрута по зонам. Exit ребро, по которому маршрут покидает
// зону, у последнего шага nil.
type AreaStep struct {
	Area world.WorldArea
	Exit *world.GraphEdge
}

// Waypoint точка маршрута на уровне блоков. Exit вид перехода к следующей точке.
type Waypoint struct {
	Pos  vec.Vec3
	Exit world.EdgeCost
}

// Path найденный путь
type Path struct {
	Areas     []AreaStep
	Waypoints []Waypoint
	// Target фактическая конечная точка (для Adjacent и Nearby может
	// отличаться от запрошенной)
	Target vec.Vec3
}

// Edges рёбра между зонами в порядке прохождения
func (p *Path) Edges() []world.GraphEdge {
	var out []world.GraphEdge
	for _, s := range p.Areas {
		if s.Exit != nil {
			out = append(out, *s.Exit)
		}
	}
	return out
}

// FirstExit первый переход между зонами
func (p *Path) FirstExit() (world.EdgeCost, bool) {
	edges := p.Edges()
	if len(edges) == 0 {
		return 0, false
	}
	return edges[0].Cost, true
}

// LastExit последний переход между зонами
func (p *Path) LastExit() (world.EdgeCost, bool) {
	edges := p.Edges()
	if len(edges) == 0 {
		return 0, false
	}
	return edges[len(edges)-1].Cost, true
}

func (p *Path) String() string {
	return fmt.Sprintf("путь через %d зон, %d точек до %s", len(p.Areas), len(p.Waypoints), p.Target)
}
