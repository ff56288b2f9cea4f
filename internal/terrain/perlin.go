package terrain

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/util"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

// BiomeType представляет тип биома
type BiomeType int

const (
	BiomePlains BiomeType = iota
	BiomeDesert
	BiomeForest
	BiomeMountains
	BiomeWater
	BiomeDeepWater
)

func (b BiomeType) String() string {
	switch b {
	case BiomeDesert:
		return "desert"
	case BiomeForest:
		return "forest"
	case BiomeMountains:
		return "mountains"
	case BiomeWater:
		return "water"
	case BiomeDeepWater:
		return "deep-water"
	default:
		return "plains"
	}
}

// Константы высот для генерации (доли от MaxGround)
const (
	DeepWaterMax    = 0.20 // Ниже - глубинная вода
	ShallowWaterMax = 0.30 // Ниже - мелководье
	MountainStart   = 0.80 // Выше - горы
)

// PerlinSource процедурный рельеф: карта высот и биомов из шума Перлина.
// Объекты (деревья, кактусы) планируются на весь чанк сразу с детерминированным
// генератором случайных чисел, части за границей чанка ставятся в очередь
// изменений блоков.
type PerlinSource struct {
	Seed          int64   // Сид для генерации шума
	NoiseScale    float64 // Масштаб основного шума (высота)
	BiomeScale    float64 // Масштаб шума биомов
	ForestDensity float64 // Плотность лесов на равнинах (от 0 до 1)
	MaxGround     int32   // Высота рельефа при значении шума 1

	height *util.Noise
	biome  *util.Noise
	min    world.ChunkLocation
	max    world.ChunkLocation

	mu      sync.Mutex
	plans   map[world.ChunkLocation]*chunkPlan
	pending map[world.TerrainUpdate]struct{}

	logger *logging.Logger
}

var _ Source = (*PerlinSource)(nil)

// NewPerlinSource создаёт генератор для мира в границах [min, max] чанков
func NewPerlinSource(seed int64, min, max world.ChunkLocation) *PerlinSource {
	return &PerlinSource{
		Seed:          seed,
		NoiseScale:    0.02, // Настройка сглаженности ландшафта
		BiomeScale:    0.01, // Настройка размера биомов
		ForestDensity: 0.02, // 2% шанс появления деревьев на равнинах
		MaxGround:     48,
		height:        util.NewNoise(seed),
		biome:         util.NewNoise(seed + 42),
		min:           min,
		max:           max,
		plans:         make(map[world.ChunkLocation]*chunkPlan),
		pending:       make(map[world.TerrainUpdate]struct{}),
		logger:        logging.GetTerrainLogger(),
	}
}

// placedBlock блок объекта относительно угла чанка (x, y могут выходить за чанк)
type placedBlock struct {
	x, y, z int32
	block   world.Block
}

func (b placedBlock) inChunk() bool {
	return b.x >= 0 && b.x < world.ChunkSize && b.y >= 0 && b.y < world.ChunkSize
}

// chunkPlan всё, что генератор решил о чанке: высоты столбцов, биомы и объекты
type chunkPlan struct {
	ground   [world.SliceSize]int32
	biomes   [world.SliceSize]BiomeType
	features [][]placedBlock
}

func (p *chunkPlan) featuresInSlab(idx world.SlabIndex) []placedBlock {
	lo, hi := idx.BaseZ(), idx.BaseZ()+world.SlabSize-1
	var out []placedBlock
	for _, f := range p.features {
		for _, b := range f {
			if b.z >= lo && b.z <= hi {
				out = append(out, b)
			}
		}
	}
	return out
}

func (s *PerlinSource) seaLevel() int32 {
	return int32(ShallowWaterMax * float64(s.MaxGround))
}

func (s *PerlinSource) sample(x, y int32) (int32, BiomeType) {
	h := s.height.Noise2D(float64(x)*s.NoiseScale, float64(y)*s.NoiseScale)
	b := s.biome.Noise2D(float64(x)*s.BiomeScale, float64(y)*s.BiomeScale)
	ground := int32(math.Round(h * float64(s.MaxGround)))
	return ground, s.getBiomeType(h, b*2-1)
}

// getBiomeType определяет тип биома на основе значений шума
func (s *PerlinSource) getBiomeType(height, biomeValue float64) BiomeType {
	// Водные биомы в низинах
	if height < DeepWaterMax {
		return BiomeDeepWater
	}
	if height < ShallowWaterMax {
		return BiomeWater
	}

	// Горные биомы на возвышенностях
	if height > MountainStart {
		return BiomeMountains
	}

	// Для средних высот выбираем биом на основе biomeValue
	if biomeValue < -0.3 {
		return BiomeDesert
	} else if biomeValue > 0.3 {
		return BiomeForest
	}

	return BiomePlains
}

// getFloorBlockForBiome возвращает верхний блок столбца для указанного биома
func getFloorBlockForBiome(biome BiomeType) block.BlockID {
	switch biome {
	case BiomeDesert, BiomeWater, BiomeDeepWater:
		return block.SandBlockID
	case BiomeMountains:
		return block.StoneBlockID
	default:
		return block.GrassBlockID
	}
}

// columnBlock блок столбца на высоте z без учёта объектов
func (s *PerlinSource) columnBlock(ground int32, biome BiomeType, z int32) world.Block {
	switch {
	case z == ground:
		return world.NewBlock(getFloorBlockForBiome(biome))
	case z < ground-3:
		return world.NewBlock(block.StoneBlockID)
	case z < ground:
		if biome == BiomeMountains {
			return world.NewBlock(block.StoneBlockID)
		}
		if biome == BiomeDesert {
			return world.NewBlock(block.SandBlockID)
		}
		return world.NewBlock(block.DirtBlockID)
	case z <= s.seaLevel():
		return world.NewBlock(block.WaterBlockID)
	default:
		return world.AirBlock
	}
}

func (s *PerlinSource) plan(loc world.ChunkLocation) *chunkPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.plans[loc]; ok {
		return p
	}

	p := &chunkPlan{}
	origin := loc.Origin()
	for i := 0; i < world.SliceSize; i++ {
		sb := world.SliceBlockFromIndex(i)
		p.ground[i], p.biomes[i] = s.sample(origin.X+int32(sb.X), origin.Y+int32(sb.Y))
	}

	// Для каждого чанка создаем уникальный сид на основе глобального сида и координат
	chunkSeed := s.Seed + int64(loc.X)*31 + int64(loc.Y)*17
	rng := rand.New(rand.NewSource(chunkSeed))

	queued := 0
	for i := 0; i < world.SliceSize; i++ {
		sb := world.SliceBlockFromIndex(i)
		ground := p.ground[i]
		if ground <= s.seaLevel() {
			continue
		}

		var blocks []placedBlock
		switch biome := p.biomes[i]; {
		case biome == BiomeForest && rng.Float64() < 0.15, // 15% шанс дерева в лесу
			biome == BiomePlains && rng.Float64() < s.ForestDensity:
			blocks = tree(int32(sb.X), int32(sb.Y), ground, rng)
		case biome == BiomeDesert && rng.Float64() < 0.02: // 2% шанс кактуса в пустыне
			blocks = cactus(int32(sb.X), int32(sb.Y), ground, rng)
		}
		if len(blocks) == 0 {
			continue
		}

		var inside []placedBlock
		for _, b := range blocks {
			if b.inChunk() {
				inside = append(inside, b)
				continue
			}
			pos := vec.Vec3{X: origin.X + b.x, Y: origin.Y + b.y, Z: b.z}
			s.pending[world.SingleBlockUpdate(pos, b.block)] = struct{}{}
			queued++
		}
		p.features = append(p.features, inside)
	}

	if queued > 0 {
		s.logger.Debug("🌳 Чанк %s: %d блоков объектов за границей чанка поставлено в очередь", loc, queued)
	}
	s.plans[loc] = p
	return p
}

func (s *PerlinSource) WorldBoundary() (world.ChunkLocation, world.ChunkLocation) {
	return s.min, s.max
}

func (s *PerlinSource) PrepareForChunks(ctx context.Context, min, max world.ChunkLocation) error {
	for x := min.X; x <= max.X; x++ {
		for y := min.Y; y <= max.Y; y++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			loc := world.ChunkLocation{X: x, Y: y}
			if InBounds(s, world.SlabLocation{Chunk: loc}) {
				s.plan(loc)
			}
		}
	}
	return nil
}

func (s *PerlinSource) LoadSlab(ctx context.Context, loc world.SlabLocation) (*GeneratedSlab, error) {
	if !InBounds(s, loc) {
		return nil, ErrSlabOutOfBounds
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := s.plan(loc.Chunk)
	base := loc.Slab.BaseZ()

	var blocks [world.SlabVolume]world.Block
	for i := 0; i < world.SliceSize; i++ {
		sb := world.SliceBlockFromIndex(i)
		ground, biome := p.ground[i], p.biomes[i]
		for z := 0; z < world.SlabSize; z++ {
			blocks[sb.At(world.LocalSliceIndex(z)).Index()] = s.columnBlock(ground, biome, base+int32(z))
		}
	}
	for _, b := range p.featuresInSlab(loc.Slab) {
		pos := world.SlabPosition{X: uint8(b.x), Y: uint8(b.y), Z: uint8(b.z - base)}
		blocks[pos.Index()] = b.block
	}
	return &GeneratedSlab{Terrain: world.NewSlabFromBlocks(&blocks, world.SlabNormal)}, nil
}

func (s *PerlinSource) GroundLevel(_ context.Context, x, y int32) (int32, error) {
	if !InBounds(s, world.SlabLocationOf(vec.Vec3{X: x, Y: y})) {
		return 0, ErrBlockOutOfBounds
	}
	ground, _ := s.sample(x, y)
	return ground, nil
}

func (s *PerlinSource) FeatureBoundariesInRange(_ context.Context, chunks []world.ChunkLocation, zMin, zMax int32) []FeatureBoundary {
	var out []FeatureBoundary
	next := 0
	for _, c := range chunks {
		if !InBounds(s, world.SlabLocation{Chunk: c}) {
			continue
		}
		origin := c.Origin()
		for _, f := range s.plan(c).features {
			for _, b := range f {
				if b.z < zMin || b.z > zMax {
					continue
				}
				out = append(out, FeatureBoundary{
					Feature: next,
					Pos:     vec.Vec3{X: origin.X + b.x, Y: origin.Y + b.y, Z: b.z},
				})
			}
			next++
		}
	}
	return out
}

func (s *PerlinSource) StealQueuedBlockUpdates(_ context.Context, sink map[world.TerrainUpdate]struct{}) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for u := range s.pending {
		if _, ok := sink[u]; !ok {
			sink[u] = struct{}{}
			n++
		}
	}
	clear(s.pending)
	if n > 0 {
		s.logger.Debug("собрано %d изменений блоков от генератора", n)
	}
	return n
}
