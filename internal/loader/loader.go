package loader

import (
	"context"
	"encoding/binary"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/terrain"
	"github.com/annel0/voxel-world/internal/world"
)

var tracer = otel.Tracer("github.com/annel0/voxel-world/internal/loader")

// idleFlushDelay сколько очередь запросов может простаивать, прежде чем
// неполная группа слэбов будет отправлена в работу
const idleFlushDelay = 5 * time.Millisecond

// Loader загружает слэбы из источника рельефа и проводит их через конвейер:
// блоки, вертикальное пространство и затенение, зоны и граф слэба, сшивка
// с соседями.
type Loader struct {
	ref    *world.Ref
	source terrain.Source
	cfg    config.LoaderConfig

	pool     *Pool
	channels []chan slabRequest
	limiter  *rate.Limiter

	reqMu     sync.Mutex
	ids       batchIDs
	lastBatch *atomic.Int64
	batches   *UpdateBatcher[world.SlabLocation]

	logger *logging.Logger
}

// New создаёт загрузчик и запускает обработчики очередей запросов
func New(ctx context.Context, ref *world.Ref, source terrain.Source, cfg config.LoaderConfig) *Loader {
	if cfg.RequestChannels <= 0 {
		cfg.RequestChannels = 8
	}
	if cfg.ChannelCapacity <= 0 {
		cfg.ChannelCapacity = 1024
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > world.SlabSize {
		cfg.BatchSize = world.SlabSize
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSec > 0 {
		burst := cfg.RequestBurst
		if burst <= 0 {
			burst = cfg.ChannelCapacity
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst)
	}

	l := &Loader{
		ref:       ref,
		source:    source,
		cfg:       cfg,
		pool:      NewPool(ctx, cfg.Workers()),
		channels:  make([]chan slabRequest, cfg.RequestChannels),
		limiter:   limiter,
		lastBatch: atomic.NewInt64(0),
		batches:   NewUpdateBatcher[world.SlabLocation](),
		logger:    logging.GetLoaderLogger(),
	}
	for i := range l.channels {
		ch := make(chan slabRequest, cfg.ChannelCapacity)
		l.channels[i] = ch
		l.pool.goLoop(func(ctx context.Context) error {
			return l.requestLoop(ctx, ch)
		})
	}

	l.logger.Info("🚀 Загрузчик запущен: %d воркеров, %d очередей по %d запросов",
		l.pool.Workers(), len(l.channels), cfg.ChannelCapacity)
	return l
}

// Ref мир, в который загружаются слэбы
func (l *Loader) Ref() *world.Ref {
	return l.ref
}

// Close останавливает обработчики и ждёт завершения задач
func (l *Loader) Close() error {
	err := l.pool.Close()
	l.logger.Info("🛑 Загрузчик остановлен")
	return err
}

// channelFor все слэбы одного чанка попадают в одну очередь
func (l *Loader) channelFor(c world.ChunkLocation) int {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:], uint32(c.X))
	binary.LittleEndian.PutUint32(buf[4:], uint32(c.Y))
	return int(xxhash.Sum64(buf[:]) % uint64(len(l.channels)))
}

func compareSlabs(a, b world.SlabLocation) int {
	if c := a.Chunk.Compare(b.Chunk); c != 0 {
		return c
	}
	switch {
	case a.Slab < b.Slab:
		return -1
	case a.Slab > b.Slab:
		return 1
	}
	return 0
}

// RequestSlabs ставит слэбы в очередь загрузки. Слэбы должны идти по
// возрастанию (чанк, номер слэба). Уже запрошенные слэбы пропускаются, над
// самым верхним запрошенным слэбом каждого чанка добавляется пустая
// заглушка. Возвращает число принятых запросов: при переполнении очередей
// или превышении частоты остаток отклоняется и может быть запрошен позже.
func (l *Loader) RequestSlabs(slabs []world.SlabLocation) int {
	if len(slabs) == 0 || l.pool.Context().Err() != nil {
		return 0
	}
	if !slices.IsSortedFunc(slabs, compareSlabs) {
		l.logger.Warn("⚠️ Запрос %d слэбов не отсортирован, сортируем", len(slabs))
		slabs = slices.Clone(slabs)
		slices.SortFunc(slabs, compareSlabs)
	}

	l.reqMu.Lock()
	defer l.reqMu.Unlock()

	reqs, chunkMin, chunkMax := l.registerRequests(slabs)
	if len(reqs) == 0 {
		return 0
	}

	// сколько запросов помещается в очереди прямо сейчас
	planned := make([]int, len(l.channels))
	accepted := 0
	now := time.Now()
	for _, r := range reqs {
		i := l.channelFor(r.slab.Chunk)
		if len(l.channels[i])+planned[i] >= cap(l.channels[i]) || !l.limiter.AllowN(now, 1) {
			break
		}
		planned[i]++
		accepted++
	}

	if rejected := reqs[accepted:]; len(rejected) > 0 {
		l.revertRequests(rejected)
		slabsRejected.Add(float64(len(rejected)))
		l.logger.Debug("очереди заполнены: отклонено %d из %d запросов", len(rejected), len(reqs))
	}
	if accepted == 0 {
		return 0
	}

	l.pool.Go(func(ctx context.Context) {
		err := l.pool.Generate(ctx, func() error {
			return l.source.PrepareForChunks(ctx, chunkMin, chunkMax)
		})
		if err != nil {
			l.logger.Warn("⚠️ Подготовка чанков %s..%s: %v", chunkMin, chunkMax, err)
		}
	})

	builder, err := newBatchBuilder(&l.ids, accepted)
	if err != nil {
		// пакет больше 65535 слэбов: номера пакета не нужны
		builder = nil
	}
	touched := make(map[int]struct{})
	for _, r := range reqs[:accepted] {
		if builder != nil {
			r.batch = builder.Next()
		}
		i := l.channelFor(r.slab.Chunk)
		l.channels[i] <- r
		touched[i] = struct{}{}
	}
	for i := range touched {
		select {
		case l.channels[i] <- slabRequest{flush: true}:
		default:
		}
	}

	slabsRequested.Add(float64(accepted))
	l.lastBatch.Store(int64(accepted))
	l.logger.Debug("📦 Отправлен пакет из %d слэбов", accepted)
	return accepted
}

// registerRequests отмечает слэбы как запрошенные до отправки задач, чтобы
// задачи соседних слэбов знали, что их стоит ждать
func (l *Loader) registerRequests(slabs []world.SlabLocation) ([]slabRequest, world.ChunkLocation, world.ChunkLocation) {
	var reqs []slabRequest
	chunkMin, chunkMax := slabs[0].Chunk, slabs[0].Chunk

	l.ref.Write(func(w *world.World) {
		stamp := w.NextStamp()
		for i := 0; i < len(slabs); {
			loc := slabs[i].Chunk
			c := w.EnsureChunk(loc)

			highest := slabs[i].Slab
			fresh := false
			for ; i < len(slabs) && slabs[i].Chunk == loc; i++ {
				highest = slabs[i].Slab
				if c.MarkSlabRequested(highest, stamp) {
					reqs = append(reqs, slabRequest{slab: slabs[i]})
					fresh = true
				}
			}

			// пустой слэб над самым верхним
			above := highest + 1
			if fresh && c.MarkSlabRequested(above, stamp) {
				reqs = append(reqs, slabRequest{
					slab:        world.SlabLocation{Chunk: loc, Slab: above},
					placeholder: true,
				})
			}

			chunkMin.X, chunkMin.Y = min(chunkMin.X, loc.X), min(chunkMin.Y, loc.Y)
			chunkMax.X, chunkMax.Y = max(chunkMax.X, loc.X), max(chunkMax.Y, loc.Y)
		}
	})
	return reqs, chunkMin, chunkMax
}

func (l *Loader) revertRequests(reqs []slabRequest) {
	locs := make([]world.SlabLocation, 0, len(reqs))
	l.ref.Write(func(w *world.World) {
		for _, r := range reqs {
			if c := w.FindChunk(r.slab.Chunk); c != nil && c.RevertSlabRequest(r.slab.Slab) {
				locs = append(locs, r.slab)
			}
		}
	})
	l.ref.Notifier().NotifyMany(locs)
}

// requestLoop обработчик одной очереди запросов
func (l *Loader) requestLoop(ctx context.Context, ch <-chan slabRequest) error {
	batcher := newChunkBatcher(l.cfg.BatchSize, l.startBatch)
	idle := time.NewTimer(idleFlushDelay)
	defer idle.Stop()

	for {
		select {
		case req := <-ch:
			if req.flush {
				batcher.flush()
				continue
			}
			batcher.add(req)
			if batcher.len() > 0 {
				idle.Reset(idleFlushDelay)
			}
		case <-idle.C:
			batcher.flush()
		case <-ctx.Done():
			return nil
		}
	}
}

// startBatch запускает задачи загрузки группы слэбов одного чанка
func (l *Loader) startBatch(chunk world.ChunkLocation, reqs []slabRequest) {
	l.logger.Trace("чанк %s: запуск %d задач загрузки", chunk, len(reqs))
	for _, r := range reqs {
		l.pool.Go(func(ctx context.Context) {
			l.loadSlab(ctx, r)
		})
	}
}

func (l *Loader) finalize(f Finalization) {
	l.pool.finalize(f)
	if f.Batch.Size > 0 {
		l.batches.Submit(f.Batch, f.Slab)
	}
}

// CompletedBatches забирает пакеты, все слэбы которых опубликовали блоки
func (l *Loader) CompletedBatches() [][]world.SlabLocation {
	return l.batches.PopComplete()
}

// Inflight число выполняющихся задач загрузчика
func (l *Loader) Inflight() int64 {
	return l.pool.Inflight()
}

// BlockUntilAllDone ждёт, пока все запрошенные слэбы не дойдут до Done.
// bail проверяется между ожиданиями и может прервать ожидание.
func (l *Loader) BlockUntilAllDone(ctx context.Context, timeout time.Duration, bail func() bool) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	listener := l.ref.Notifier().StartListening()
	defer listener.Close()

	for {
		if bail != nil && bail() {
			return ErrBailed
		}
		var loading int
		l.ref.Read(func(w *world.World) {
			loading = w.CountLoadingSlabs()
		})
		if loading == 0 {
			return nil
		}

		wait, stop := context.WithTimeout(ctx, 50*time.Millisecond)
		_, _ = listener.Recv(wait)
		stop()

		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				l.logger.Warn("⏱️ Не дождались загрузки: осталось %d слэбов", loading)
				return ErrTimeout
			}
			return err
		}
	}
}

// BlockOnNextFinalization ждёт следующий слэб, опубликовавший блоки (или
// ошибку источника)
func (l *Loader) BlockOnNextFinalization(ctx context.Context, timeout time.Duration, bail func() bool) (Finalization, error) {
	end := time.Now().Add(timeout)
	for {
		if bail != nil && bail() {
			return Finalization{}, ErrBailed
		}
		left := time.Until(end)
		if left <= 0 {
			return Finalization{}, ErrTimeout
		}

		wait, stop := context.WithTimeout(ctx, min(left, time.Second))
		f, err := l.pool.NextFinalization(wait)
		stop()
		switch {
		case err == nil:
			return f, nil
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			continue
		case ctx.Err() != nil:
			return Finalization{}, ctx.Err()
		default:
			return Finalization{}, err
		}
	}
}

// BlockForLastBatch ждёт публикации всех слэбов последнего пакета (запроса
// слэбов или изменения рельефа)
func (l *Loader) BlockForLastBatch(ctx context.Context, timeout time.Duration, bail func() bool) error {
	count := l.lastBatch.Swap(0)
	if count == 0 {
		return ErrNoBatch
	}
	start := time.Now()
	for i := int64(0); i < count; i++ {
		left := timeout - time.Since(start)
		if left <= 0 {
			return ErrTimeout
		}
		l.logger.Trace("ожидание слэба %d/%d", i+1, count)
		f, err := l.BlockOnNextFinalization(ctx, left, bail)
		if err != nil {
			return err
		}
		if f.Err != nil && !errors.Is(f.Err, errSlabSuperseded) {
			return f.Err
		}
	}
	return nil
}

// StealQueuedBlockUpdates забирает изменения блоков, накопленные источником
func (l *Loader) StealQueuedBlockUpdates(ctx context.Context, sink map[world.TerrainUpdate]struct{}) int {
	return l.source.StealQueuedBlockUpdates(ctx, sink)
}

// GroundLevel высота поверхности по источнику рельефа
func (l *Loader) GroundLevel(ctx context.Context, x, y int32) (int32, error) {
	return l.source.GroundLevel(ctx, x, y)
}

// IsInBounds лежит ли слэб в границах мира источника
func (l *Loader) IsInBounds(loc world.SlabLocation) bool {
	return terrain.InBounds(l.source, loc)
}

// WorldBoundary границы мира в чанках
func (l *Loader) WorldBoundary() (world.ChunkLocation, world.ChunkLocation) {
	return l.source.WorldBoundary()
}
