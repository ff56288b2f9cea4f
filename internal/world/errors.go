package world

import (
	"fmt"

	"github.com/annel0/voxel-world/internal/vec"
)

// SourceNotWalkableError в начальной точке нельзя стоять с требуемой высотой
type SourceNotWalkableError struct {
	Pos    vec.Vec3
	Height uint8
}

func (e *SourceNotWalkableError) Error() string {
	return fmt.Sprintf("начальная точка %s непроходима для высоты %d", e.Pos, e.Height)
}

// DestinationNotWalkableError в конечной точке нельзя стоять с требуемой высотой
type DestinationNotWalkableError struct {
	Pos    vec.Vec3
	Height uint8
}

func (e *DestinationNotWalkableError) Error() string {
	return fmt.Sprintf("конечная точка %s непроходима для высоты %d", e.Pos, e.Height)
}

// InvalidAreaError зоны нет в графе (ошибка или гонка с загрузчиком)
type InvalidAreaError struct {
	Area WorldArea
}

func (e *InvalidAreaError) Error() string {
	return fmt.Sprintf("зона %s отсутствует в графе", e.Area)
}
