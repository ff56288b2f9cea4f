package world

// SlabLoadState стадия загрузки слэба
type SlabLoadState uint8

const (
	// NotRequested слэба нет или он явно пуст
	NotRequested SlabLoadState = iota
	// Requested запрос поставлен в очередь, данных ещё нет
	Requested
	// TerrainInWorld блоки установлены, вертикальное пространство и
	// внутреннее затенение посчитаны
	TerrainInWorld
	// DoneInIsolation зоны и граф слэба готовы
	DoneInIsolation
	// Done слэб сшит со всеми существовавшими соседями
	Done
	// Updating слэб изменён и снова проходит конвейер
	Updating
)

func (s SlabLoadState) String() string {
	switch s {
	case NotRequested:
		return "not-requested"
	case Requested:
		return "requested"
	case TerrainInWorld:
		return "terrain-in-world"
	case DoneInIsolation:
		return "done-in-isolation"
	case Done:
		return "done"
	case Updating:
		return "updating"
	default:
		return "unknown"
	}
}

// IsLoading слэб ещё не дошёл до Done
func (s SlabLoadState) IsLoading() bool {
	return s != NotRequested && s != Done
}

// HasTerrain блоки слэба доступны для чтения
func (s SlabLoadState) HasTerrain() bool {
	return s >= TerrainInWorld
}

// progress порядок стадий для проверки монотонности. Updating ведёт себя
// как TerrainInWorld.
func (s SlabLoadState) progress() int {
	if s == Updating {
		return int(TerrainInWorld)
	}
	return int(s)
}
