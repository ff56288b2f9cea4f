package pathfind

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/loader"
	"github.com/annel0/voxel-world/internal/terrain"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

var (
	stone = world.NewBlock(block.StoneBlockID)
	grass = world.NewBlock(block.GrassBlockID)
)

const loadTimeout = 10 * time.Second

type testWorld struct {
	loader *loader.Loader
	ref    *world.Ref
	finder *Finder
}

// loadChunk загружает один чанк (0,0) с рельефом из builder
func loadChunk(t *testing.T, builder *terrain.ChunkBuilder) *testWorld {
	t.Helper()
	return loadChunks(t, map[world.ChunkLocation]*terrain.ChunkBuilder{{}: builder})
}

// loadChunks загружает нижний слэб каждого чанка
func loadChunks(t *testing.T, chunks map[world.ChunkLocation]*terrain.ChunkBuilder) *testWorld {
	t.Helper()
	var descs []terrain.ChunkDescriptor
	var slabs []world.SlabLocation
	for loc, b := range chunks {
		descs = append(descs, terrain.ChunkDescriptor{Chunk: loc, Terrain: b.Build()})
		slabs = append(slabs, world.SlabLocation{Chunk: loc})
	}
	src, err := terrain.NewMemorySource(descs...)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Loader.WorkerCount = 2
	cfg.Pathfind.WorkerCount = 1

	ref := world.NewRef(world.NewWorld())
	l := loader.New(context.Background(), ref, src, cfg.Loader)
	t.Cleanup(func() {
		_ = l.Close()
	})

	require.NotZero(t, l.RequestSlabs(slabs))
	require.NoError(t, l.BlockUntilAllDone(context.Background(), loadTimeout, nil))
	return &testWorld{loader: l, ref: ref, finder: NewFinder(ref, cfg.Pathfind)}
}

// flatChunk каменный пол на z=1
func flatChunk() *terrain.ChunkBuilder {
	return terrain.NewChunkBuilder().FillSlice(1, stone)
}

// walledChunk пол на z=1 и стена высотой 2 по x=8 с проходом в y=15
func walledChunk() *terrain.ChunkBuilder {
	return flatChunk().Fill(vec.Vec3{X: 8, Y: 0, Z: 2}, vec.Vec3{X: 8, Y: 14, Z: 3}, stone)
}

func v(x, y, z int32) vec.Vec3 {
	return vec.Vec3{X: x, Y: y, Z: z}
}

func (tw *testWorld) apply(t *testing.T, updates ...world.TerrainUpdate) {
	t.Helper()
	set := make(map[world.TerrainUpdate]struct{}, len(updates))
	for _, u := range updates {
		set[u] = struct{}{}
	}
	require.NotEmpty(t, tw.loader.ApplyTerrainUpdates(set))
}
