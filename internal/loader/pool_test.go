package loader

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/annel0/voxel-world/internal/world"
)

func TestPoolGoAfterClose(t *testing.T) {
	p := NewPool(context.Background(), 2)
	ran := atomic.NewInt32(0)

	p.Go(func(context.Context) { ran.Inc() })
	require.NoError(t, p.Close())
	assert.Equal(t, int32(1), ran.Load())

	p.Go(func(context.Context) { ran.Inc() })
	assert.Equal(t, int32(1), ran.Load(), "после Close задачи не запускаются")
	assert.Zero(t, p.Inflight())
}

func TestPoolGoRacingClose(t *testing.T) {
	p := NewPool(context.Background(), 2)
	started := atomic.NewInt32(0)
	finished := atomic.NewInt32(0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				p.Go(func(context.Context) {
					started.Inc()
					// задачи порождают задачи, как обновление затенения соседей
					p.Go(func(context.Context) { finished.Inc() })
					finished.Inc()
				})
			}
		}()
	}
	require.NoError(t, p.Close())
	wg.Wait()

	assert.Zero(t, p.Inflight())
	assert.GreaterOrEqual(t, finished.Load(), started.Load(), "каждая запущенная задача завершилась")
}

func TestPoolFinalizationOrder(t *testing.T) {
	p := NewPool(context.Background(), 1)
	t.Cleanup(func() { _ = p.Close() })

	a := world.SlabLocation{Slab: 1}
	b := world.SlabLocation{Slab: 2}
	p.finalize(Finalization{Slab: a})
	p.finalize(Finalization{Slab: b, Err: errSlabSuperseded})

	f, err := p.NextFinalization(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a, f.Slab)
	f, err = p.NextFinalization(context.Background())
	require.NoError(t, err)
	assert.Equal(t, b, f.Slab)
	assert.ErrorIs(t, f.Err, errSlabSuperseded)
}
