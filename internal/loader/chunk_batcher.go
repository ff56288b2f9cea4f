package loader

import (
	"github.com/annel0/voxel-world/internal/world"
)

// slabRequest запрос на загрузку одного слэба
type slabRequest struct {
	slab        world.SlabLocation
	placeholder bool
	batch       UpdateBatch
	flush       bool // служебный запрос: сбросить накопленное
}

// chunkBatcher накапливает подряд идущие запросы одного чанка и отдаёт их
// группой. Группа сбрасывается при смене чанка, заполнении, явном сбросе
// или простое очереди.
type chunkBatcher struct {
	buf      []slabRequest
	capacity int
	chunk    world.ChunkLocation
	onFlush  func(chunk world.ChunkLocation, reqs []slabRequest)
}

func newChunkBatcher(capacity int, onFlush func(world.ChunkLocation, []slabRequest)) *chunkBatcher {
	if capacity <= 0 {
		capacity = world.SlabSize
	}
	return &chunkBatcher{
		buf:      make([]slabRequest, 0, capacity),
		capacity: capacity,
		onFlush:  onFlush,
	}
}

// add добавляет запрос, при необходимости сбрасывая предыдущую группу
func (b *chunkBatcher) add(req slabRequest) {
	if len(b.buf) > 0 && req.slab.Chunk != b.chunk {
		b.flush()
	}
	b.chunk = req.slab.Chunk
	b.buf = append(b.buf, req)
	if len(b.buf) >= b.capacity {
		b.flush()
	}
}

// flush отдаёт накопленную группу
func (b *chunkBatcher) flush() {
	if len(b.buf) == 0 {
		return
	}
	reqs := make([]slabRequest, len(b.buf))
	copy(reqs, b.buf)
	b.buf = b.buf[:0]
	b.onFlush(b.chunk, reqs)
}

// len число запросов в текущей группе
func (b *chunkBatcher) len() int {
	return len(b.buf)
}
