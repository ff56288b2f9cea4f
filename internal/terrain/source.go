package terrain

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
)

var (
	// ErrNoChunks источник в памяти создан без чанков
	ErrNoChunks = errors.New("нет ни одного чанка")
	// ErrMissingCentreChunk отсутствует обязательный чанк (0, 0)
	ErrMissingCentreChunk = errors.New("отсутствует обязательный чанк (0, 0)")
	// ErrSlabOutOfBounds запрошенный слэб лежит за границей мира.
	// Загрузчик превращает его в пустой слэб-заглушку.
	ErrSlabOutOfBounds = errors.New("слэб за границей мира")
	// ErrBlockOutOfBounds запрошенный блок лежит за границей мира
	ErrBlockOutOfBounds = errors.New("блок за границей мира")
	// ErrPlaceholderNotEmpty в слэбе-заглушке есть непрозрачные блоки
	ErrPlaceholderNotEmpty = errors.New("слэб-заглушка содержит блоки")
)

// DuplicateChunkError чанк описан дважды
type DuplicateChunkError struct {
	Chunk world.ChunkLocation
}

func (e *DuplicateChunkError) Error() string {
	return fmt.Sprintf("чанк %s описан повторно", e.Chunk)
}

// GeneratedSlab результат загрузки слэба из источника
type GeneratedSlab struct {
	Terrain *world.Slab
}

// FeatureBoundary точка границы объекта рельефа (для отладочной отрисовки)
type FeatureBoundary struct {
	Feature int
	Pos     vec.Vec3
}

// Source источник рельефа мира
type Source interface {
	// WorldBoundary границы мира в чанках (включительно)
	WorldBoundary() (min, max world.ChunkLocation)
	// PrepareForChunks подготавливает область перед массовой загрузкой
	PrepareForChunks(ctx context.Context, min, max world.ChunkLocation) error
	// LoadSlab возвращает новую копию слэба
	LoadSlab(ctx context.Context, loc world.SlabLocation) (*GeneratedSlab, error)
	// GroundLevel высота верхнего твёрдого блока столбца (без объектов)
	GroundLevel(ctx context.Context, x, y int32) (int32, error)
	// FeatureBoundariesInRange границы объектов в чанках и диапазоне высот
	FeatureBoundariesInRange(ctx context.Context, chunks []world.ChunkLocation, zMin, zMax int32) []FeatureBoundary
	// StealQueuedBlockUpdates забирает накопленные изменения блоков (например,
	// части объектов, пересекающие границу чанка). Возвращает число добавленных.
	StealQueuedBlockUpdates(ctx context.Context, sink map[world.TerrainUpdate]struct{}) int
}

// InBounds лежит ли чанк слэба внутри границ источника (глубина не ограничена)
func InBounds(src Source, loc world.SlabLocation) bool {
	lo, hi := src.WorldBoundary()
	c := loc.Chunk
	return c.X >= lo.X && c.X <= hi.X && c.Y >= lo.Y && c.Y <= hi.Y
}

func sortSlabs(locs []world.SlabLocation) {
	slices.SortFunc(locs, func(a, b world.SlabLocation) int {
		if c := a.Chunk.Compare(b.Chunk); c != 0 {
			return c
		}
		return int(a.Slab) - int(b.Slab)
	})
}
