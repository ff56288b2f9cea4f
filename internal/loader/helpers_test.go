package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/config"
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

func testConfig() config.LoaderConfig {
	cfg := config.Default().Loader
	cfg.WorkerCount = 2
	return cfg
}

func newTestLoader(t *testing.T, src terrain.Source, cfg config.LoaderConfig) (*Loader, *world.Ref) {
	t.Helper()
	ref := world.NewRef(world.NewWorld())
	l := New(context.Background(), ref, src, cfg)
	t.Cleanup(func() {
		_ = l.Close()
	})
	return l, ref
}

// flatSource источник с каменным полом на z=1 в каждом из перечисленных чанков
func flatSource(t *testing.T, chunks ...world.ChunkLocation) *terrain.MemorySource {
	t.Helper()
	if len(chunks) == 0 {
		chunks = []world.ChunkLocation{{}}
	}
	var descs []terrain.ChunkDescriptor
	for _, c := range chunks {
		descs = append(descs, terrain.ChunkDescriptor{
			Chunk:   c,
			Terrain: terrain.NewChunkBuilder().FillSlice(1, stone).Build(),
		})
	}
	src, err := terrain.NewMemorySource(descs...)
	require.NoError(t, err)
	return src
}

func loadAll(t *testing.T, l *Loader, slabs ...world.SlabLocation) {
	t.Helper()
	require.NotZero(t, l.RequestSlabs(slabs))
	require.NoError(t, l.BlockUntilAllDone(context.Background(), loadTimeout, nil))
}

func slabState(ref *world.Ref, loc world.SlabLocation) world.SlabLoadState {
	var st world.SlabLoadState
	ref.Read(func(w *world.World) {
		st = w.SlabState(loc)
	})
	return st
}

func terrainVersion(ref *world.Ref, loc world.SlabLocation) uint64 {
	var v uint64
	ref.Read(func(w *world.World) {
		if d := w.SlabData(loc); d != nil {
			v = d.TerrainVersion()
		}
	})
	return v
}

func blockAt(ref *world.Ref, x, y, z int32) world.Block {
	var b world.Block
	ref.Read(func(w *world.World) {
		b, _ = w.Block(vec.Vec3{X: x, Y: y, Z: z})
	})
	return b
}

// blockingSource ждёт release перед отдачей каждого слэба
type blockingSource struct {
	terrain.Source
	release chan struct{}
}

func (s *blockingSource) LoadSlab(ctx context.Context, loc world.SlabLocation) (*terrain.GeneratedSlab, error) {
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Source.LoadSlab(ctx, loc)
}

var errBoom = errors.New("источник сломан")

// failingSource возвращает ошибку для одного слэба
type failingSource struct {
	terrain.Source
	fail world.SlabLocation
}

func (s *failingSource) LoadSlab(ctx context.Context, loc world.SlabLocation) (*terrain.GeneratedSlab, error) {
	if loc == s.fail {
		return nil, errBoom
	}
	return s.Source.LoadSlab(ctx, loc)
}
