package terrain

import (
	"fmt"

	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

// FromConfig создаёт источник рельефа по секции world конфигурации.
// Возвращаемую функцию закрытия нужно вызвать при остановке.
func FromConfig(cfg config.WorldConfig) (Source, func() error, error) {
	min := world.ChunkLocation{X: cfg.ChunkMinX, Y: cfg.ChunkMinY}
	max := world.ChunkLocation{X: cfg.ChunkMaxX, Y: cfg.ChunkMaxY}
	noop := func() error { return nil }

	var src Source
	switch cfg.Source {
	case "perlin", "":
		src = NewPerlinSource(cfg.Seed, min, max)
	case "memory":
		mem, err := DemoSource(min, max)
		if err != nil {
			return nil, nil, err
		}
		src = mem
	default:
		return nil, nil, fmt.Errorf("неизвестный источник рельефа %q", cfg.Source)
	}

	if !cfg.CacheSlabs {
		return src, noop, nil
	}
	var maxEntries int64
	if cfg.CacheMB > 0 {
		// сжатый слэб в среднем занимает около 4 КБ
		maxEntries = cfg.CacheMB << 8
	}
	cached, err := NewCachedSource(src, maxEntries, cfg.CacheMB)
	if err != nil {
		return nil, nil, err
	}
	return cached, cached.Close, nil
}

// DemoSource небольшой мир для отладки: каменное основание с травой, ступени и
// стена с проходом в каждом чанке
func DemoSource(min, max world.ChunkLocation) (*MemorySource, error) {
	stone := world.NewBlock(block.StoneBlockID)
	grass := world.NewBlock(block.GrassBlockID)

	var chunks []ChunkDescriptor
	for x := min.X; x <= max.X; x++ {
		for y := min.Y; y <= max.Y; y++ {
			b := NewChunkBuilder().
				FillSlice(0, stone).
				FillSlice(1, grass).
				Fill(vec.Vec3{X: 4, Y: 4, Z: 2}, vec.Vec3{X: 5, Y: 5, Z: 2}, stone).
				Fill(vec.Vec3{X: 6, Y: 4, Z: 2}, vec.Vec3{X: 7, Y: 5, Z: 3}, stone).
				Fill(vec.Vec3{X: 12, Y: 0, Z: 2}, vec.Vec3{X: 12, Y: 6, Z: 4}, stone).
				Fill(vec.Vec3{X: 12, Y: 9, Z: 2}, vec.Vec3{X: 12, Y: 15, Z: 4}, stone).
				Fill(vec.Vec3{X: 0, Y: 0, Z: -world.SlabSize}, vec.Vec3{X: world.ChunkSize - 1, Y: world.ChunkSize - 1, Z: -1}, stone).
				EnsureSlab(1)
			chunks = append(chunks, ChunkDescriptor{Chunk: world.ChunkLocation{X: x, Y: y}, Terrain: b.Build()})
		}
	}
	return NewMemorySource(chunks...)
}
