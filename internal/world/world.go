package world

import (
	"sort"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/atomic"
)

// World объединяет чанки и граф навигации. Сам по себе не потокобезопасен:
// доступ из разных горутин идёт через Ref.
type World struct {
	chunks   []*Chunk // отсортированы по ChunkLocation
	graph    *WorldGraph
	notifier *LoadNotifier
	epoch    *atomic.Uint64
}

// NewWorld создаёт пустой мир
func NewWorld() *World {
	return &World{
		graph:    NewWorldGraph(),
		notifier: NewLoadNotifier(),
		epoch:    atomic.NewUint64(0),
	}
}

// Graph граф навигации мира
func (w *World) Graph() *WorldGraph {
	return w.graph
}

// LoadNotifications уведомитель о стадиях загрузки
func (w *World) LoadNotifications() *LoadNotifier {
	return w.notifier
}

// Epoch текущее значение часов публикаций
func (w *World) Epoch() uint64 {
	return w.epoch.Load()
}

// NextStamp выдаёт метку для новой публикации
func (w *World) NextStamp() uint64 {
	return w.epoch.Inc()
}

// Chunks все чанки по возрастанию координат
func (w *World) Chunks() []*Chunk {
	return w.chunks
}

func (w *World) searchChunk(loc ChunkLocation) (int, bool) {
	i := sort.Search(len(w.chunks), func(i int) bool {
		return !w.chunks[i].loc.Less(loc)
	})
	return i, i < len(w.chunks) && w.chunks[i].loc == loc
}

// FindChunk ищет чанк бинарным поиском
func (w *World) FindChunk(loc ChunkLocation) *Chunk {
	if i, ok := w.searchChunk(loc); ok {
		return w.chunks[i]
	}
	return nil
}

// EnsureChunk возвращает чанк, создавая его при необходимости
func (w *World) EnsureChunk(loc ChunkLocation) *Chunk {
	i, ok := w.searchChunk(loc)
	if ok {
		return w.chunks[i]
	}
	c := NewChunk(loc)
	w.chunks = append(w.chunks, nil)
	copy(w.chunks[i+1:], w.chunks[i:])
	w.chunks[i] = c
	return c
}

// SlabData слот слэба или nil
func (w *World) SlabData(loc SlabLocation) *SlabData {
	c := w.FindChunk(loc.Chunk)
	if c == nil {
		return nil
	}
	return c.Slab(loc.Slab)
}

// SlabState стадия загрузки слэба
func (w *World) SlabState(loc SlabLocation) SlabLoadState {
	if d := w.SlabData(loc); d != nil {
		return d.state
	}
	return NotRequested
}

// CountLoadingSlabs число слэбов, не дошедших до Done
func (w *World) CountLoadingSlabs() int {
	n := 0
	for _, c := range w.chunks {
		n += c.CountLoading()
	}
	return n
}

// CountSlabs число слэбов по стадиям
func (w *World) CountSlabs() map[SlabLoadState]int {
	out := make(map[SlabLoadState]int)
	for _, c := range w.chunks {
		for _, d := range c.slabs {
			out[d.state]++
		}
	}
	return out
}

// IsSlabStale изменился ли слэб после момента since (или меняется сейчас)
func (w *World) IsSlabStale(loc SlabLocation, since uint64) bool {
	d := w.SlabData(loc)
	if d == nil {
		return false
	}
	switch d.state {
	case Updating, TerrainInWorld, Requested:
		return true
	}
	return d.stamp > since
}

// ChunkCursor последовательный поиск чанков, запоминающий предыдущий
// найденный индекс: при обходе диапазона соседние запросы попадают в тот же чанк
type ChunkCursor struct {
	w    *World
	last int
}

// NewChunkCursor создаёт курсор по чанкам мира
func (w *World) NewChunkCursor() *ChunkCursor {
	return &ChunkCursor{w: w, last: -1}
}

// Chunk ищет чанк, сначала проверяя предыдущий результат
func (cc *ChunkCursor) Chunk(loc ChunkLocation) *Chunk {
	if cc.last >= 0 && cc.last < len(cc.w.chunks) && cc.w.chunks[cc.last].loc == loc {
		return cc.w.chunks[cc.last]
	}
	i, ok := cc.w.searchChunk(loc)
	if !ok {
		return nil
	}
	cc.last = i
	return cc.w.chunks[i]
}

// Ref разделяемый доступ к миру. Критические секции должны быть короткими,
// ожидать внутри Read/Write нельзя.
type Ref struct {
	mu deadlock.RWMutex
	w  *World
}

// NewRef оборачивает мир
func NewRef(w *World) *Ref {
	return &Ref{w: w}
}

// Read выполняет fn под блокировкой чтения
func (r *Ref) Read(fn func(w *World)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(r.w)
}

// Write выполняет fn под блокировкой записи
func (r *Ref) Write(fn func(w *World)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.w)
}

// Notifier уведомитель мира (не требует блокировки)
func (r *Ref) Notifier() *LoadNotifier {
	return r.w.notifier
}

// Epoch текущее значение часов публикаций (не требует блокировки)
func (r *Ref) Epoch() uint64 {
	return r.w.epoch.Load()
}
