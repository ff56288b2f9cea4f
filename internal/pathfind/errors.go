package pathfind

import (
	"errors"
	"fmt"

	"github.com/annel0/voxel-world/internal/world"
)

var (
	// ErrNoPath цель недостижима из начальной зоны
	ErrNoPath = errors.New("путь не найден")

	// ErrWorldChanged мир менялся во время каждой из попыток поиска
	ErrWorldChanged = errors.New("мир изменился во время поиска")

	// ErrWaitingForSlabLoading поиск без ожидания упёрся в загружающиеся слэбы
	ErrWaitingForSlabLoading = errors.New("слэбы ещё загружаются")

	// ErrNoCrossing соседние зоны маршрута не соприкасаются
	ErrNoCrossing = errors.New("зоны маршрута не соприкасаются")
)

// StaleSlabsError попытка поиска прочитала слэбы, изменившиеся после её начала.
// Перед повтором стоит дождаться именно этих слэбов.
type StaleSlabsError struct {
	Slabs []world.SlabLocation
}

func (e *StaleSlabsError) Error() string {
	return fmt.Sprintf("изменились слэбы во время поиска: %v", e.Slabs)
}

func (e *StaleSlabsError) Is(target error) bool {
	return target == ErrWorldChanged
}
